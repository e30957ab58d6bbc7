// Package directory resolves user identities against the authoritative
// user store. The authenticator hits it on every request: session state
// alone is never trusted, so deactivating an account takes effect on the
// very next request.
package directory

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no user matches the lookup. Any other
// error from a directory is transient (connectivity, timeouts) and
// callers are expected to fail closed.
var ErrNotFound = errors.New("user not found")

// UserRecord is the authoritative view of a user account
type UserRecord struct {
	ID       string
	Email    string
	Name     string
	Role     string
	IsActive bool
}

// UserDirectory looks up authoritative user records
type UserDirectory interface {
	GetByID(ctx context.Context, id string) (*UserRecord, error)
	GetByEmail(ctx context.Context, email string) (*UserRecord, error)
}
