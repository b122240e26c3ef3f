package directory

import (
	"context"
	"sync"

	"atrium/internal/sentinel"
	"atrium/internal/tenant/models"
)

// InMemory stores descriptors in memory for the dev environment and tests.
type InMemory struct {
	mu        sync.RWMutex
	companies map[int64]*models.Descriptor
}

// NewInMemory creates an in-memory tenant directory.
func NewInMemory() *InMemory {
	return &InMemory{companies: make(map[int64]*models.Descriptor)}
}

// Upsert inserts or replaces a descriptor.
func (s *InMemory) Upsert(_ context.Context, d *models.Descriptor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *d
	s.companies[d.CompanyID] = &copied
	return nil
}

// Lookup returns the descriptor for companyID, or sentinel.ErrNotFound.
func (s *InMemory) Lookup(_ context.Context, companyID int64) (*models.Descriptor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.companies[companyID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *d
	return &copied, nil
}

// SetActive flips the active flag for companyID.
func (s *InMemory) SetActive(_ context.Context, companyID int64, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.companies[companyID]
	if !ok {
		return sentinel.ErrNotFound
	}
	d.Active = active
	return nil
}
