package handler

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"

	"github.com/FabioPita18/ecommerce-product-catalog/internal/domain/auth"
)

// identityKey is the context key for the authenticated caller identity.
type identityKey struct{}

// IdentityFromContext extracts the authenticated identity, or nil when the
// request did not pass through Require.
func IdentityFromContext(ctx context.Context) *auth.Identity {
	if id, ok := ctx.Value(identityKey{}).(*auth.Identity); ok {
		return id
	}
	return nil
}

// SecurityHandler authenticates API requests via HMAC-SHA256 hashed API
// keys and resolves them to a user identity with scopes.
type SecurityHandler struct {
	apikeys auth.Repository
	pepper  []byte
}

// NewSecurityHandler creates a SecurityHandler with the given API key
// repository and HMAC pepper.
func NewSecurityHandler(apikeys auth.Repository, pepper []byte) *SecurityHandler {
	return &SecurityHandler{
		apikeys: apikeys,
		pepper:  pepper,
	}
}

// Require rejects requests without a valid api_key header before they reach
// the wrapped handler. On success the caller identity is stored in the
// request context.
func (s *SecurityHandler) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get("api_key")
		if key == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		mac := hmac.New(sha256.New, s.pepper)
		mac.Write([]byte(key))
		hash := mac.Sum(nil)

		info, err := s.apikeys.FindByHash(r.Context(), hex.EncodeToString(hash))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		// Constant-time comparison guards against timing side-channels even
		// though the lookup already succeeded; the stored hash could differ
		// if the repository returns a stale row.
		stored, err := hex.DecodeString(info.KeyHash)
		if err != nil || subtle.ConstantTimeCompare(hash, stored) != 1 {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		identity := &auth.Identity{UserID: info.UserID, Scopes: info.Scopes}
		ctx := context.WithValue(r.Context(), identityKey{}, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireScope rejects authenticated callers lacking the given scope.
// It must run inside Require.
func (s *SecurityHandler) RequireScope(scope string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity := IdentityFromContext(r.Context())
		if identity == nil || !identity.HasScope(scope) {
			writeError(w, http.StatusForbidden, "forbidden")
			return
		}
		next.ServeHTTP(w, r)
	})
}
