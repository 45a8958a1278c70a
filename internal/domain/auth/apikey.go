// Package auth defines the caller identity model. Authentication itself
// happens at the HTTP boundary; core operations receive an explicit user ID.
package auth

import (
	"context"

	"github.com/go-faster/errors"
)

// ErrKeyNotFound is returned when no active API key matches a hash.
var ErrKeyNotFound = errors.New("api key not found")

// Scope names grant access to operator-only endpoints.
const ScopeAdmin = "admin"

// Identity is the authenticated caller derived from a validated API key.
type Identity struct {
	UserID string
	Scopes []string
}

// HasScope reports whether the identity carries the given scope.
func (i *Identity) HasScope(scope string) bool {
	for _, s := range i.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// APIKeyInfo holds the stored data for a validated API key.
type APIKeyInfo struct {
	ID      string
	KeyHash string
	Name    string
	UserID  string
	Scopes  []string
}

// Repository provides lookup of API keys by their HMAC hash.
type Repository interface {
	FindByHash(ctx context.Context, hash string) (*APIKeyInfo, error)
}
