package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"verifid/internal/sentinel"
	"verifid/internal/user"
	userstore "verifid/internal/user/store"
	"verifid/internal/verification/models"
	id "verifid/pkg/domain"
)

func newStores(t *testing.T) (*InMemoryStore, id.UserID) {
	t.Helper()
	uid, err := id.ParseUserID("22222222-2222-2222-2222-222222222222")
	require.NoError(t, err)
	subjects := userstore.NewMemory()
	require.NoError(t, subjects.Save(context.Background(), &user.User{
		ID:    uid,
		Email: "maria@example.com",
		Name:  "Maria Silva Santos",
	}))
	return NewMemory(subjects), uid
}

func approvedRecord(userID id.UserID) *models.Record {
	verifiedAt := time.Now().UTC()
	return &models.Record{
		ID:              id.NewVerificationID(),
		UserID:          userID,
		Status:          models.StatusApproved,
		FaceConfidence:  0.85,
		MatchConfidence: 0.92,
		FaceGender:      "female",
		RGGender:        "female",
		RG: models.RGData{
			Name:     "Maria Silva Santos",
			RGNumber: "12.345.678-9",
		},
		VerifiedAt: &verifiedAt,
	}
}

func TestCreateAndFindLatest(t *testing.T) {
	ctx := context.Background()
	s, uid := newStores(t)

	rejected := approvedRecord(uid)
	rejected.Status = models.StatusRejected
	rejected.Reason = "gender mismatch"
	require.NoError(t, s.Create(ctx, rejected))

	approved := approvedRecord(uid)
	require.NoError(t, s.Create(ctx, approved))

	latest, err := s.FindLatestBySubject(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, approved.ID, latest.ID)
	assert.Equal(t, models.StatusApproved, latest.Status)

	byStatus, err := s.FindBySubjectAndStatus(ctx, uid, models.StatusRejected)
	require.NoError(t, err)
	assert.Equal(t, rejected.ID, byStatus.ID)
}

func TestFindNotFound(t *testing.T) {
	ctx := context.Background()
	s, uid := newStores(t)

	_, err := s.FindLatestBySubject(ctx, uid)
	assert.True(t, errors.Is(err, sentinel.ErrNotFound))

	_, err = s.FindBySubjectAndStatus(ctx, uid, models.StatusApproved)
	assert.True(t, errors.Is(err, sentinel.ErrNotFound))
}

func TestApprovedOnceInvariant(t *testing.T) {
	ctx := context.Background()
	s, uid := newStores(t)

	require.NoError(t, s.Create(ctx, approvedRecord(uid)))

	err := s.Create(ctx, approvedRecord(uid))
	require.Error(t, err)
	assert.True(t, errors.Is(err, sentinel.ErrConflict))

	// Rejected records are unaffected by the invariant.
	rejected := approvedRecord(uid)
	rejected.ID = id.NewVerificationID()
	rejected.Status = models.StatusRejected
	assert.NoError(t, s.Create(ctx, rejected))
}

func TestCreateValidatesRecord(t *testing.T) {
	ctx := context.Background()
	s, uid := newStores(t)

	bad := approvedRecord(uid)
	bad.FaceConfidence = 1.5
	err := s.Create(ctx, bad)
	require.Error(t, err)
	assert.True(t, errors.Is(err, sentinel.ErrInvalidInput))
}

func TestRunInTxSerializesApproval(t *testing.T) {
	ctx := context.Background()
	s, uid := newStores(t)

	// Two concurrent transactions both check for an approved record, then
	// insert. The coarse lock must admit exactly one.
	const attempts = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		conflicts int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.RunInTx(ctx, func(stores TxStores) error {
				if _, err := stores.Subjects.LockByID(ctx, uid); err != nil {
					return err
				}
				if _, err := stores.Records.FindBySubjectAndStatus(ctx, uid, models.StatusApproved); err == nil {
					return errors.New("already approved")
				}
				if err := stores.Records.Create(ctx, approvedRecord(uid)); err != nil {
					return err
				}
				return stores.Subjects.MarkVerified(ctx, uid, time.Now().UTC())
			})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
			} else {
				conflicts++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, attempts-1, conflicts)

	rec, err := s.FindBySubjectAndStatus(ctx, uid, models.StatusApproved)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, rec.Status)
}

func TestRunInTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s, uid := newStores(t)

	// A create followed by a failing subject update must leave no trace.
	unknown := id.NewUserID()
	err := s.RunInTx(ctx, func(stores TxStores) error {
		if err := stores.Records.Create(ctx, approvedRecord(uid)); err != nil {
			return err
		}
		return stores.Subjects.MarkVerified(ctx, unknown, time.Now().UTC())
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, sentinel.ErrNotFound))

	_, err = s.FindLatestBySubject(ctx, uid)
	assert.True(t, errors.Is(err, sentinel.ErrNotFound))

	subject, err := s.subjects.FindByID(ctx, uid)
	require.NoError(t, err)
	assert.False(t, subject.Verified)
}

func TestRunInTxSeesStagedWrites(t *testing.T) {
	ctx := context.Background()
	s, uid := newStores(t)

	err := s.RunInTx(ctx, func(stores TxStores) error {
		rec := approvedRecord(uid)
		if err := stores.Records.Create(ctx, rec); err != nil {
			return err
		}
		// The transaction observes its own uncommitted create.
		staged, err := stores.Records.FindBySubjectAndStatus(ctx, uid, models.StatusApproved)
		if err != nil {
			return err
		}
		if staged.ID != rec.ID {
			return errors.New("staged record not visible")
		}
		if err := stores.Subjects.MarkVerified(ctx, uid, time.Now().UTC()); err != nil {
			return err
		}
		subject, err := stores.Subjects.FindByID(ctx, uid)
		if err != nil {
			return err
		}
		if !subject.Verified {
			return errors.New("staged verified flag not visible")
		}
		return nil
	})
	require.NoError(t, err)

	rec, err := s.FindBySubjectAndStatus(ctx, uid, models.StatusApproved)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, rec.Status)
}

func TestRunInTxCancelledContext(t *testing.T) {
	s, _ := newStores(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.RunInTx(ctx, func(TxStores) error { return nil })
	require.Error(t, err)
}
