// Package store persists users and their grants in the master database.
//
// Error contract: all methods return sentinel.ErrNotFound (wrapped) when the
// requested entity does not exist, and wrapped infrastructure errors otherwise.
package store

import (
	"context"

	"atrium/internal/identity/models"
)

// UserStore reads users and the grant sets their tokens are built from.
type UserStore interface {
	FindByUserName(ctx context.Context, userName string) (*models.User, error)
	FindByID(ctx context.Context, userID int64) (*models.User, error)

	// Roles returns the user's roles including the system flag.
	Roles(ctx context.Context, userID int64) ([]models.Role, error)
	// Permissions returns "{module}.{action}" permission names granted
	// through the user's roles, deduplicated.
	Permissions(ctx context.Context, userID int64) ([]string, error)
	// Memberships returns the companies the user may act in, including
	// inactive ones; callers filter.
	Memberships(ctx context.Context, userID int64) ([]models.CompanyMembership, error)

	TouchLastLogin(ctx context.Context, userID int64) error
}
