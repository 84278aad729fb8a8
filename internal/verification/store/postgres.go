package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"verifid/internal/sentinel"
	userstore "verifid/internal/user/store"
	"verifid/internal/verification/models"
	id "verifid/pkg/domain"
)

// uniqueViolation is the PostgreSQL error code raised by the partial unique
// index on approved records.
const uniqueViolation = "23505"

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// PostgresStore persists verification records in PostgreSQL.
type PostgresStore struct {
	db       *sql.DB
	q        querier
	subjects *userstore.PostgresStore
}

// NewPostgres constructs a PostgreSQL-backed verification store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{
		db:       db,
		q:        db,
		subjects: userstore.NewPostgres(db),
	}
}

const insertRecord = `
INSERT INTO verifications (id, user_id, status, face_confidence, match_confidence, face_gender, rg_gender, rg_data, reason, verified_at, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

func (s *PostgresStore) Create(ctx context.Context, rec *models.Record) error {
	if rec == nil {
		return fmt.Errorf("record is required")
	}
	if err := rec.Validate(); err != nil {
		return fmt.Errorf("invalid record: %w", sentinel.ErrInvalidInput)
	}
	rgData, err := json.Marshal(rec.RG)
	if err != nil {
		return fmt.Errorf("marshal rg data: %w", err)
	}
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err = s.q.ExecContext(ctx, insertRecord,
		uuid.UUID(rec.ID), uuid.UUID(rec.UserID), string(rec.Status),
		rec.FaceConfidence, rec.MatchConfidence, rec.FaceGender, rec.RGGender,
		rgData, rec.Reason, rec.VerifiedAt, createdAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("subject already approved: %w", sentinel.ErrConflict)
		}
		return fmt.Errorf("create verification record: %w", err)
	}
	return nil
}

const getRecordByStatus = `
SELECT id, user_id, status, face_confidence, match_confidence, face_gender, rg_gender, rg_data, reason, verified_at, created_at
FROM verifications WHERE user_id = $1 AND status = $2
ORDER BY created_at DESC LIMIT 1`

func (s *PostgresStore) FindBySubjectAndStatus(ctx context.Context, userID id.UserID, status models.Status) (*models.Record, error) {
	row := s.q.QueryRowContext(ctx, getRecordByStatus, uuid.UUID(userID), string(status))
	return scanRecord(row)
}

const getLatestRecord = `
SELECT id, user_id, status, face_confidence, match_confidence, face_gender, rg_gender, rg_data, reason, verified_at, created_at
FROM verifications WHERE user_id = $1
ORDER BY created_at DESC LIMIT 1`

func (s *PostgresStore) FindLatestBySubject(ctx context.Context, userID id.UserID) (*models.Record, error) {
	row := s.q.QueryRowContext(ctx, getLatestRecord, uuid.UUID(userID))
	return scanRecord(row)
}

// RunInTx executes fn inside a database transaction. Callers lock the
// subject row first (SubjectStore.LockByID) to serialize concurrent
// attempts; the partial unique index backstops the approved-once invariant.
func (s *PostgresStore) RunInTx(ctx context.Context, fn func(stores TxStores) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin verification tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback() //nolint:errcheck // rollback after commit is a no-op
	}()

	err = fn(TxStores{
		Records:  &PostgresStore{db: s.db, q: tx, subjects: s.subjects},
		Subjects: s.subjects.WithTx(tx),
	})
	if err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("subject already approved: %w", sentinel.ErrConflict)
		}
		return fmt.Errorf("commit verification tx: %w", err)
	}
	return nil
}

func scanRecord(row *sql.Row) (*models.Record, error) {
	var (
		rec    models.Record
		recID  uuid.UUID
		userID uuid.UUID
		status string
		rgData []byte
	)
	err := row.Scan(&recID, &userID, &status, &rec.FaceConfidence, &rec.MatchConfidence,
		&rec.FaceGender, &rec.RGGender, &rgData, &rec.Reason, &rec.VerifiedAt, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("verification record not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("scan verification record: %w", err)
	}
	if len(rgData) > 0 {
		if err := json.Unmarshal(rgData, &rec.RG); err != nil {
			return nil, fmt.Errorf("unmarshal rg data: %w", err)
		}
	}
	rec.ID = id.VerificationID(recID)
	rec.UserID = id.UserID(userID)
	rec.Status = models.Status(status)
	return &rec, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

var _ Store = (*PostgresStore)(nil)
