package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"verifid/internal/sentinel"
	"verifid/internal/user"
	id "verifid/pkg/domain"
)

// querier is satisfied by *sql.DB and *sql.Tx so the store can run both
// standalone and inside the verification transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// PostgresStore persists users in PostgreSQL.
type PostgresStore struct {
	q querier
}

// NewPostgres constructs a PostgreSQL-backed user store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{q: db}
}

// WithTx returns a store bound to the given transaction.
func (s *PostgresStore) WithTx(tx *sql.Tx) *PostgresStore {
	return &PostgresStore{q: tx}
}

const upsertUser = `
INSERT INTO users (id, email, name, verified, verification_date, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (id) DO UPDATE SET
	email = EXCLUDED.email,
	name = EXCLUDED.name,
	verified = EXCLUDED.verified,
	verification_date = EXCLUDED.verification_date`

func (s *PostgresStore) Save(ctx context.Context, u *user.User) error {
	if u == nil {
		return fmt.Errorf("user is required")
	}
	createdAt := u.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := s.q.ExecContext(ctx, upsertUser,
		uuid.UUID(u.ID), u.Email, u.Name, u.Verified, u.VerificationDate, createdAt)
	if err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	return nil
}

const getUserByID = `
SELECT id, email, name, verified, verification_date, created_at
FROM users WHERE id = $1`

func (s *PostgresStore) FindByID(ctx context.Context, userID id.UserID) (*user.User, error) {
	return s.scanUser(s.q.QueryRowContext(ctx, getUserByID, uuid.UUID(userID)), "find user by id")
}

const getUserByEmail = `
SELECT id, email, name, verified, verification_date, created_at
FROM users WHERE email = $1`

func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	return s.scanUser(s.q.QueryRowContext(ctx, getUserByEmail, email), "find user by email")
}

const markUserVerified = `
UPDATE users SET verified = TRUE, verification_date = $2 WHERE id = $1`

func (s *PostgresStore) MarkVerified(ctx context.Context, userID id.UserID, at time.Time) error {
	res, err := s.q.ExecContext(ctx, markUserVerified, uuid.UUID(userID), at)
	if err != nil {
		return fmt.Errorf("mark user verified: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark user verified: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
	}
	return nil
}

// LockByID reads a user row under FOR UPDATE. Only meaningful inside a
// transaction; it serializes concurrent verification attempts for the same
// account.
const lockUserByID = `
SELECT id, email, name, verified, verification_date, created_at
FROM users WHERE id = $1 FOR UPDATE`

func (s *PostgresStore) LockByID(ctx context.Context, userID id.UserID) (*user.User, error) {
	return s.scanUser(s.q.QueryRowContext(ctx, lockUserByID, uuid.UUID(userID)), "lock user by id")
}

func (s *PostgresStore) scanUser(row *sql.Row, op string) (*user.User, error) {
	var (
		u   user.User
		uid uuid.UUID
	)
	err := row.Scan(&uid, &u.Email, &u.Name, &u.Verified, &u.VerificationDate, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	u.ID = id.UserID(uid)
	return &u, nil
}

var _ Store = (*PostgresStore)(nil)
