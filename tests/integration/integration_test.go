//go:build integration

// Package integration exercises the repository layer and the checkout
// transaction against a real PostgreSQL instance. Run with:
//
//	go test -tags integration ./tests/integration/...
package integration

import (
	"context"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/FabioPita18/ecommerce-product-catalog/internal/repository"
)

var pool *pgxpool.Pool

func TestMain(m *testing.M) {
	os.Exit(testMain(m))
}

func testMain(m *testing.M) int {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "shop",
				"POSTGRES_PASSWORD": "shop",
				"POSTGRES_DB":       "shop",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		},
		Started: true,
	})
	if err != nil {
		log.Fatalf("start postgres: %v", err)
	}
	defer func() {
		if err := container.Terminate(context.Background()); err != nil {
			log.Printf("terminate postgres: %v", err)
		}
	}()

	host, err := container.Host(ctx)
	if err != nil {
		log.Fatalf("container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		log.Fatalf("mapped port: %v", err)
	}

	dsn := fmt.Sprintf("postgres://shop:shop@%s:%s/shop?sslmode=disable", host, port.Port())

	pool, err = repository.NewPool(ctx, dsn)
	if err != nil {
		log.Fatalf("create pool: %v", err)
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		log.Fatalf("run migrations: %v", err)
	}

	return m.Run()
}

// seedProduct inserts or replaces one product row.
func seedProduct(t *testing.T, id, name, price string, inv int, active bool) {
	t.Helper()

	_, err := pool.Exec(context.Background(), `
		INSERT INTO products (id, name, description, category, price, inventory, active)
		VALUES ($1, $2, '', 'test', $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			price = EXCLUDED.price,
			inventory = EXCLUDED.inventory,
			active = EXCLUDED.active`,
		id, name, decimal.RequireFromString(price), inv, active,
	)
	require.NoError(t, err)
}

// cleanTables truncates all mutable state between tests.
func cleanTables(t *testing.T) {
	t.Helper()

	_, err := pool.Exec(context.Background(),
		`TRUNCATE products, carts, cart_lines, orders, order_lines CASCADE`)
	require.NoError(t, err)
}
