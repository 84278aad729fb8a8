package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"verifid/internal/sentinel"
	"verifid/internal/user"
	id "verifid/pkg/domain"
)

func newTestUser(t *testing.T) *user.User {
	t.Helper()
	uid, err := id.ParseUserID("11111111-1111-1111-1111-111111111111")
	require.NoError(t, err)
	return &user.User{
		ID:        uid,
		Email:     "maria@example.com",
		Name:      "Maria Silva Santos",
		CreatedAt: time.Now().UTC(),
	}
}

func TestMemoryStoreSaveAndFind(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	u := newTestUser(t)

	require.NoError(t, s.Save(ctx, u))

	byID, err := s.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.Email, byID.Email)

	byEmail, err := s.FindByEmail(ctx, u.Email)
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)
}

func TestMemoryStoreNotFound(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	_, err := s.FindByID(ctx, id.UserID{})
	assert.True(t, errors.Is(err, sentinel.ErrNotFound))

	_, err = s.FindByEmail(ctx, "nobody@example.com")
	assert.True(t, errors.Is(err, sentinel.ErrNotFound))

	err = s.MarkVerified(ctx, id.UserID{}, time.Now())
	assert.True(t, errors.Is(err, sentinel.ErrNotFound))
}

func TestMemoryStoreMarkVerified(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	u := newTestUser(t)
	require.NoError(t, s.Save(ctx, u))

	at := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.MarkVerified(ctx, u.ID, at))

	got, err := s.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, got.Verified)
	require.NotNil(t, got.VerificationDate)
	assert.Equal(t, at, *got.VerificationDate)
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	u := newTestUser(t)
	require.NoError(t, s.Save(ctx, u))

	got, err := s.FindByID(ctx, u.ID)
	require.NoError(t, err)
	got.Verified = true

	again, err := s.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, again.Verified)
}
