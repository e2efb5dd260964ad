package session

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"trackex/internal/apperr"
	"trackex/internal/auth"
	"trackex/internal/keylock"
	"trackex/internal/storage"
)

// QueryParam is the fallback query parameter carrying a token.
const QueryParam = "token"

const bearerPrefix = "Bearer "

// Store is the token persistence the credential store needs.
type Store interface {
	IssueToken(ctx context.Context, userID int64, candidate string) (string, error)
	ResolveToken(ctx context.Context, token string) (int64, error)
	DeleteToken(ctx context.Context, token string) error
}

// Credentials maps opaque bearer tokens to user identities.
type Credentials struct {
	store Store
	locks *keylock.Locker
}

// New creates a credential store over the given token storage.
func New(store Store) *Credentials {
	return &Credentials{store: store, locks: keylock.New()}
}

// TokenFromRequest extracts the token from the Authorization header, falling
// back to the token query parameter. A "Bearer " prefix is stripped.
func TokenFromRequest(r *http.Request) string {
	token := r.Header.Get("Authorization")
	if token == "" {
		token = r.URL.Query().Get(QueryParam)
	}
	return strings.TrimSpace(strings.TrimPrefix(token, bearerPrefix))
}

// Resolve returns the user a token belongs to. A missing or unknown token is
// always ErrUnauthenticated.
func (c *Credentials) Resolve(ctx context.Context, token string) (int64, error) {
	if token == "" {
		return 0, apperr.ErrUnauthenticated
	}
	userID, err := c.store.ResolveToken(ctx, token)
	if errors.Is(err, storage.ErrNotFound) {
		return 0, apperr.ErrUnauthenticated
	}
	if err != nil {
		return 0, err
	}
	return userID, nil
}

// Issue returns the user's live token, minting one if none exists.
func (c *Credentials) Issue(ctx context.Context, userID int64) (string, error) {
	unlock := c.locks.Lock(userID)
	defer unlock()
	return c.store.IssueToken(ctx, userID, auth.NewToken())
}

// Revoke deletes a token. Unknown tokens are ignored.
func (c *Credentials) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return c.store.DeleteToken(ctx, token)
}
