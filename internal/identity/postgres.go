package identity

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/apexaso/insights/internal/tracing"
)

// PostgresStore implements Store using PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// GetByID returns the identity for the given ID.
func (s *PostgresStore) GetByID(ctx context.Context, id string) (_ *Identity, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "identities", "query")
	defer func() { endSpan(err) }()

	query := `
		SELECT id, COALESCE(home_org_id, ''), elevated
		FROM identities
		WHERE id = $1
	`

	identity := &Identity{}
	err = s.db.QueryRowContext(ctx, query, id).Scan(
		&identity.ID,
		&identity.HomeOrgID,
		&identity.Elevated,
	)

	if err == sql.ErrNoRows {
		return nil, ErrIdentityNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get identity: %w", err)
	}

	return identity, nil
}
