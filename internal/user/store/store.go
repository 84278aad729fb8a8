// Package store persists user accounts. Two implementations are provided:
// an in-memory store for tests and demos, and a PostgreSQL store for
// production.
package store

import (
	"context"
	"time"

	"verifid/internal/user"
	id "verifid/pkg/domain"
)

// Error Contract:
// All store methods follow this error pattern:
// - Return errors wrapping sentinel.ErrNotFound when the entity does not exist
// - Return nil for successful operations
// - Return wrapped errors with context for infrastructure failures
type Store interface {
	Save(ctx context.Context, u *user.User) error
	FindByID(ctx context.Context, userID id.UserID) (*user.User, error)
	FindByEmail(ctx context.Context, email string) (*user.User, error)
	MarkVerified(ctx context.Context, userID id.UserID, at time.Time) error
}
