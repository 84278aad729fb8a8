package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"verifid/internal/sentinel"
	"verifid/internal/user"
	id "verifid/pkg/domain"
)

// InMemoryStore stores users in memory for tests and demo deployments.
type InMemoryStore struct {
	mu    sync.RWMutex
	users map[id.UserID]*user.User
}

// NewMemory constructs an empty in-memory user store.
func NewMemory() *InMemoryStore {
	return &InMemoryStore{users: make(map[id.UserID]*user.User)}
}

func (s *InMemoryStore) Save(_ context.Context, u *user.User) error {
	if u == nil {
		return fmt.Errorf("user is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, userID id.UserID) (*user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if u, ok := s.users[userID]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
}

func (s *InMemoryStore) FindByEmail(_ context.Context, email string) (*user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
}

// LockByID is equivalent to FindByID; in-memory callers serialize through
// the store mutex instead of row locks.
func (s *InMemoryStore) LockByID(ctx context.Context, userID id.UserID) (*user.User, error) {
	return s.FindByID(ctx, userID)
}

func (s *InMemoryStore) MarkVerified(_ context.Context, userID id.UserID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
	}
	u.MarkVerified(at)
	return nil
}

var _ Store = (*InMemoryStore)(nil)
