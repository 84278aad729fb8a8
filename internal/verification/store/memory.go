package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"verifid/internal/sentinel"
	"verifid/internal/user"
	userstore "verifid/internal/user/store"
	"verifid/internal/verification/models"
	id "verifid/pkg/domain"
	pkgerrors "verifid/pkg/domain-errors"
)

// defaultTxTimeout is the maximum duration for a verification transaction.
const defaultTxTimeout = 5 * time.Second

// InMemoryStore keeps verification records in memory for tests and demo
// deployments. RunInTx serializes through a coarse lock, which gives the
// same approved-once guarantee the database enforces with row locks and a
// partial unique index.
type InMemoryStore struct {
	mu       sync.Mutex
	records  map[id.UserID][]*models.Record
	subjects *userstore.InMemoryStore
	timeout  time.Duration
}

// NewMemory constructs an in-memory store over the given subject store.
func NewMemory(subjects *userstore.InMemoryStore) *InMemoryStore {
	return &InMemoryStore{
		records:  make(map[id.UserID][]*models.Record),
		subjects: subjects,
		timeout:  defaultTxTimeout,
	}
}

func (s *InMemoryStore) Create(_ context.Context, rec *models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp, err := s.prepareLocked(rec, nil)
	if err != nil {
		return err
	}
	s.records[cp.UserID] = append(s.records[cp.UserID], cp)
	return nil
}

func (s *InMemoryStore) FindBySubjectAndStatus(_ context.Context, userID id.UserID, status models.Status) (*models.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return findByStatus(s.records[userID], status)
}

func (s *InMemoryStore) FindLatestBySubject(_ context.Context, userID id.UserID) (*models.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return findLatest(s.records[userID])
}

// RunInTx holds the store lock for the duration of fn. Mutations made inside
// fn are staged against a transaction view and applied only after fn returns
// nil, so a failed transaction leaves the store untouched.
func (s *InMemoryStore) RunInTx(ctx context.Context, fn func(stores TxStores) error) error {
	if err := ctx.Err(); err != nil {
		return pkgerrors.Wrap(err, pkgerrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Check again after acquiring the lock.
	if err := ctx.Err(); err != nil {
		return pkgerrors.Wrap(err, pkgerrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	tx := &memTx{s: s, verified: make(map[id.UserID]time.Time)}
	if err := fn(TxStores{
		Records:  (*memTxRecords)(tx),
		Subjects: (*memTxSubjects)(tx),
	}); err != nil {
		return err
	}

	tx.apply()
	return nil
}

// memTx stages the mutations of one transaction. Staged state is validated
// when it is staged, under the store lock, so apply cannot fail.
type memTx struct {
	s        *InMemoryStore
	staged   []*models.Record
	verified map[id.UserID]time.Time
}

func (tx *memTx) apply() {
	for userID, at := range tx.verified {
		// Cannot fail: existence was checked at staging time and users
		// are never removed.
		_ = tx.s.subjects.MarkVerified(context.Background(), userID, at) //nolint:errcheck
	}
	for _, rec := range tx.staged {
		tx.s.records[rec.UserID] = append(tx.s.records[rec.UserID], rec)
	}
}

func (tx *memTx) stagedFor(userID id.UserID) []*models.Record {
	recs := tx.s.records[userID]
	for _, rec := range tx.staged {
		if rec.UserID == userID {
			recs = append(recs[:len(recs):len(recs)], rec)
		}
	}
	return recs
}

// memTxRecords is the record view inside a transaction: reads see staged
// creates, and new creates are staged rather than applied.
type memTxRecords memTx

func (t *memTxRecords) Create(_ context.Context, rec *models.Record) error {
	tx := (*memTx)(t)
	cp, err := tx.s.prepareLocked(rec, tx.staged)
	if err != nil {
		return err
	}
	tx.staged = append(tx.staged, cp)
	return nil
}

func (t *memTxRecords) FindBySubjectAndStatus(_ context.Context, userID id.UserID, status models.Status) (*models.Record, error) {
	return findByStatus((*memTx)(t).stagedFor(userID), status)
}

func (t *memTxRecords) FindLatestBySubject(_ context.Context, userID id.UserID) (*models.Record, error) {
	return findLatest((*memTx)(t).stagedFor(userID))
}

// memTxSubjects is the subject view inside a transaction. Only MarkVerified
// is staged; reads reflect the staged flag so the transaction observes its
// own writes.
type memTxSubjects memTx

func (t *memTxSubjects) Save(ctx context.Context, u *user.User) error {
	return (*memTx)(t).s.subjects.Save(ctx, u)
}

func (t *memTxSubjects) FindByID(ctx context.Context, userID id.UserID) (*user.User, error) {
	tx := (*memTx)(t)
	u, err := tx.s.subjects.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if at, ok := tx.verified[userID]; ok {
		u.MarkVerified(at)
	}
	return u, nil
}

func (t *memTxSubjects) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	tx := (*memTx)(t)
	u, err := tx.s.subjects.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if at, ok := tx.verified[u.ID]; ok {
		u.MarkVerified(at)
	}
	return u, nil
}

// LockByID is equivalent to FindByID; transactions already serialize through
// the store mutex.
func (t *memTxSubjects) LockByID(ctx context.Context, userID id.UserID) (*user.User, error) {
	return t.FindByID(ctx, userID)
}

func (t *memTxSubjects) MarkVerified(ctx context.Context, userID id.UserID, at time.Time) error {
	tx := (*memTx)(t)
	if _, err := tx.s.subjects.FindByID(ctx, userID); err != nil {
		return err
	}
	tx.verified[userID] = at
	return nil
}

// prepareLocked validates a record and returns the copy to persist. The
// staged slice carries creates from the surrounding transaction so the
// approved-once check covers uncommitted records too.
func (s *InMemoryStore) prepareLocked(rec *models.Record, staged []*models.Record) (*models.Record, error) {
	if rec == nil {
		return nil, fmt.Errorf("record is required")
	}
	if err := rec.Validate(); err != nil {
		return nil, fmt.Errorf("invalid record: %w", sentinel.ErrInvalidInput)
	}
	if rec.Status == models.StatusApproved {
		existing := s.records[rec.UserID]
		existing = append(existing[:len(existing):len(existing)], staged...)
		for _, prior := range existing {
			if prior.UserID == rec.UserID && prior.Status == models.StatusApproved {
				return nil, fmt.Errorf("subject already approved: %w", sentinel.ErrConflict)
			}
		}
	}
	cp := *rec
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}
	return &cp, nil
}

func findByStatus(recs []*models.Record, status models.Status) (*models.Record, error) {
	for i := len(recs) - 1; i >= 0; i-- {
		if recs[i].Status == status {
			cp := *recs[i]
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("verification record not found: %w", sentinel.ErrNotFound)
}

func findLatest(recs []*models.Record) (*models.Record, error) {
	if len(recs) == 0 {
		return nil, fmt.Errorf("verification record not found: %w", sentinel.ErrNotFound)
	}
	cp := *recs[len(recs)-1]
	return &cp, nil
}

var (
	_ Store        = (*InMemoryStore)(nil)
	_ RecordStore  = (*memTxRecords)(nil)
	_ SubjectStore = (*memTxSubjects)(nil)
)
