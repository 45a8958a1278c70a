// Command catalog-import bulk-loads a product catalog from gzipped JSONL
// feed files. Supplier feeds overlap between chunks, so records are
// deduplicated by product ID before hitting the database: a bloom filter
// screens the common case and the upsert handles the rare false positive.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/FabioPita18/ecommerce-product-catalog/internal/repository"
)

const (
	bloomCapacity = 10_000_000
	bloomFPR      = 0.001
	progressEvery = 100_000
)

type feedRecord struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Price       decimal.Decimal `json:"price"`
	Inventory   int             `json:"inventory"`
	Active      bool            `json:"active"`
}

func (r *feedRecord) valid() bool {
	return r.ID != "" && r.Name != "" && !r.Price.IsNegative() && r.Inventory >= 0
}

const upsertProductSQL = `
INSERT INTO products (id, name, description, category, price, inventory, active)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (id) DO UPDATE SET
	name = EXCLUDED.name,
	description = EXCLUDED.description,
	category = EXCLUDED.category,
	price = EXCLUDED.price,
	inventory = EXCLUDED.inventory,
	active = EXCLUDED.active,
	updated_at = now()`

func main() {
	var (
		dataDir     string
		databaseURL string
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing catalog *.jsonl.gz feed files")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, dataDir, databaseURL); err != nil {
		slog.Error("catalog import failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("catalog import completed successfully")
}

func run(ctx context.Context, dataDir, databaseURL string) error {
	files, err := filepath.Glob(filepath.Join(dataDir, "*.jsonl.gz"))
	if err != nil {
		return errors.Wrap(err, "glob feed files")
	}
	if len(files) == 0 {
		return errors.Errorf("no *.jsonl.gz files in %s", dataDir)
	}
	// Deterministic order so that later chunks win on duplicate IDs.
	sort.Strings(files)

	slog.Info("parsing feed files", slog.Int("files", len(files)))

	parsed, err := parseFeeds(ctx, files)
	if err != nil {
		return errors.Wrap(err, "parse feeds")
	}

	records := dedupe(parsed)
	slog.Info("records after dedupe", slog.Int("count", len(records)))

	if len(records) == 0 {
		slog.Info("nothing to import")
		return nil
	}

	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	return writeProducts(ctx, pool, records)
}

// parseFeeds streams every feed file concurrently, one goroutine per file.
// Results keep file order so dedupe stays deterministic.
func parseFeeds(ctx context.Context, files []string) ([][]feedRecord, error) {
	results := make([][]feedRecord, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(parseFeedFile(ctx, i, f, results))
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}

func parseFeedFile(ctx context.Context, idx int, path string, results [][]feedRecord) func() error {
	return func() error {
		var (
			records []feedRecord
			count   uint64
			skipped uint64
		)

		if err := streamGzFile(ctx, path, func(line []byte) error {
			count++
			if count%progressEvery == 0 {
				slog.Info("parse progress",
					slog.Int("file", idx+1),
					slog.Uint64("lines", count),
				)
			}

			var rec feedRecord
			if err := json.Unmarshal(line, &rec); err != nil || !rec.valid() {
				skipped++
				return nil
			}
			records = append(records, rec)
			return nil
		}); err != nil {
			return errors.Wrapf(err, "parse file %d", idx+1)
		}

		slog.Info("parse complete",
			slog.Int("file", idx+1),
			slog.Uint64("lines", count),
			slog.Uint64("skipped", skipped),
			slog.Int("records", len(records)),
		)

		results[idx] = records
		return nil
	}
}

// dedupe keeps the last occurrence of each product ID across all feeds. The
// bloom filter answers "definitely unseen" cheaply; only possible repeats
// pay for the exact map lookup.
func dedupe(parsed [][]feedRecord) []feedRecord {
	filter := bloom.NewWithEstimates(bloomCapacity, bloomFPR)
	index := make(map[string]int)

	var out []feedRecord
	for _, records := range parsed {
		for _, rec := range records {
			if filter.TestString(rec.ID) {
				if at, ok := index[rec.ID]; ok {
					out[at] = rec
					continue
				}
			}
			filter.AddString(rec.ID)
			index[rec.ID] = len(out)
			out = append(out, rec)
		}
	}
	return out
}

// streamGzFile opens a gzip-compressed file and calls fn for each line.
func streamGzFile(ctx context.Context, path string, fn func(line []byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(scanner.Bytes()); err != nil {
			return err
		}
	}

	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}

	return nil
}

// writeProducts upserts all deduplicated records into the database.
func writeProducts(ctx context.Context, pool *pgxpool.Pool, records []feedRecord) error {
	slog.Info("writing products to database", slog.Int("count", len(records)))

	for i, rec := range records {
		if _, err := pool.Exec(ctx, upsertProductSQL,
			rec.ID, rec.Name, rec.Description, rec.Category, rec.Price, rec.Inventory, rec.Active,
		); err != nil {
			return errors.Wrapf(err, "upsert product %s", rec.ID)
		}

		if (i+1)%1000 == 0 || i+1 == len(records) {
			slog.Info("write progress", slog.Int("written", i+1), slog.Int("total", len(records)))
		}
	}

	return nil
}
