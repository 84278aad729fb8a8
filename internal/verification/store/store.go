// Package store persists verification records and provides the transactional
// boundary the orchestrator commits decisions through.
package store

import (
	"context"

	"verifid/internal/user"
	userstore "verifid/internal/user/store"
	"verifid/internal/verification/models"
	id "verifid/pkg/domain"
)

// Error Contract:
// All store methods follow this error pattern:
// - Return errors wrapping sentinel.ErrNotFound when the entity does not exist
// - Return errors wrapping sentinel.ErrConflict when the approved-once
//   invariant would be violated
// - Return wrapped errors with context for infrastructure failures

// RecordStore persists verification records. Records are append-only.
type RecordStore interface {
	Create(ctx context.Context, rec *models.Record) error
	FindBySubjectAndStatus(ctx context.Context, userID id.UserID, status models.Status) (*models.Record, error)
	FindLatestBySubject(ctx context.Context, userID id.UserID) (*models.Record, error)
}

// SubjectStore extends the user store with a locking read used to serialize
// concurrent verification attempts for the same account.
type SubjectStore interface {
	userstore.Store
	LockByID(ctx context.Context, userID id.UserID) (*user.User, error)
}

// TxStores bundles the stores visible inside a verification transaction.
type TxStores struct {
	Records  RecordStore
	Subjects SubjectStore
}

// Tx provides a transactional boundary for verification mutations.
// Implementations may wrap a database transaction or, in-memory, a coarse
// lock.
type Tx interface {
	RunInTx(ctx context.Context, fn func(stores TxStores) error) error
}

// Store is the full persistence surface for the verification flow.
type Store interface {
	RecordStore
	Tx
}
