package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"atrium/internal/sentinel"
	"atrium/internal/tenant/models"
)

// PostgresStore reads tenant descriptors from the master database.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed tenant directory.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Lookup returns the descriptor for companyID, or sentinel.ErrNotFound.
func (s *PostgresStore) Lookup(ctx context.Context, companyID int64) (*models.Descriptor, error) {
	query := `
		SELECT id, name, store_name, connection_string, is_active
		FROM companies
		WHERE id = $1
	`
	var d models.Descriptor
	err := s.db.QueryRowContext(ctx, query, companyID).Scan(
		&d.CompanyID,
		&d.CompanyName,
		&d.StoreName,
		&d.DSN,
		&d.Active,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("lookup company %d: %w", companyID, err)
	}
	return &d, nil
}

// SetActive flips the active flag for companyID.
func (s *PostgresStore) SetActive(ctx context.Context, companyID int64, active bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE companies SET is_active = $2, updated_at = now() WHERE id = $1`,
		companyID, active,
	)
	if err != nil {
		return fmt.Errorf("set company %d active=%t: %w", companyID, active, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set company active rows: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// Ping reports directory reachability for health checks.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
