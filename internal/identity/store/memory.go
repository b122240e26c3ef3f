package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"atrium/internal/identity/models"
	"atrium/internal/sentinel"
)

// InMemoryStore stores users and grants in memory for tests and dev mode.
type InMemoryStore struct {
	mu          sync.RWMutex
	users       map[int64]*models.User
	roles       map[int64][]models.Role
	permissions map[int64][]string
	memberships map[int64][]models.CompanyMembership
	now         func() time.Time
}

// NewInMemory constructs an empty in-memory user store.
func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		users:       make(map[int64]*models.User),
		roles:       make(map[int64][]models.Role),
		permissions: make(map[int64][]string),
		memberships: make(map[int64][]models.CompanyMembership),
		now:         time.Now,
	}
}

// Add inserts a user with its full grant set.
func (s *InMemoryStore) Add(user *models.User, roles []models.Role, permissions []string, memberships []models.CompanyMembership) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := *user
	s.users[u.ID] = &u
	s.roles[u.ID] = append([]models.Role(nil), roles...)
	s.permissions[u.ID] = append([]string(nil), permissions...)
	s.memberships[u.ID] = append([]models.CompanyMembership(nil), memberships...)
}

func (s *InMemoryStore) FindByUserName(_ context.Context, userName string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.UserName == userName {
			copied := *u
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("user %q: %w", userName, sentinel.ErrNotFound)
}

func (s *InMemoryStore) FindByID(_ context.Context, userID int64) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, fmt.Errorf("user %d: %w", userID, sentinel.ErrNotFound)
	}
	copied := *u
	return &copied, nil
}

func (s *InMemoryStore) Roles(_ context.Context, userID int64) ([]models.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Role(nil), s.roles[userID]...), nil
}

func (s *InMemoryStore) Permissions(_ context.Context, userID int64) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]struct{}, len(s.permissions[userID]))
	out := make([]string, 0, len(s.permissions[userID]))
	for _, p := range s.permissions[userID] {
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	sort.Strings(out)
	return out, nil
}

func (s *InMemoryStore) Memberships(_ context.Context, userID int64) ([]models.CompanyMembership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.CompanyMembership(nil), s.memberships[userID]...), nil
}

func (s *InMemoryStore) TouchLastLogin(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return fmt.Errorf("user %d: %w", userID, sentinel.ErrNotFound)
	}
	t := s.now()
	u.LastLoginAt = &t
	return nil
}

var _ UserStore = (*InMemoryStore)(nil)
