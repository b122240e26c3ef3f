// Package directory is the source of truth mapping a company id to its
// connection descriptor. Stores return sentinel errors; the resolver translates
// them into typed outcomes exactly once.
package directory

import (
	"context"

	"atrium/internal/tenant/models"
)

// Directory reads tenant descriptors.
type Directory interface {
	// Lookup returns the descriptor for companyID, or sentinel.ErrNotFound.
	// Inactive companies are still returned; activity is the resolver's call.
	Lookup(ctx context.Context, companyID int64) (*models.Descriptor, error)
}

// Admin mutates the active flag. Callers must invalidate the tenant cache
// immediately after a successful change.
type Admin interface {
	SetActive(ctx context.Context, companyID int64, active bool) error
}
