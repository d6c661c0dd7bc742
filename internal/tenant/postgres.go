package tenant

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

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

// GetOrganization returns the organization for the given ID.
func (s *PostgresStore) GetOrganization(ctx context.Context, orgID string) (_ *Organization, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "organizations", "query")
	defer func() { endSpan(err) }()

	query := `
		SELECT id, name, is_agency
		FROM organizations
		WHERE id = $1
	`

	org := &Organization{}
	err = s.db.QueryRowContext(ctx, query, orgID).Scan(&org.ID, &org.Name, &org.IsAgency)
	if err == sql.ErrNoRows {
		return nil, ErrOrganizationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}

	return org, nil
}

// ListActiveClientLinks returns the client org IDs with active links from the agency.
func (s *PostgresStore) ListActiveClientLinks(ctx context.Context, agencyOrgID string) (_ []string, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "agency_client_links", "query")
	defer func() { endSpan(err) }()

	query := `
		SELECT client_org_id
		FROM agency_client_links
		WHERE agency_org_id = $1 AND active = true
		ORDER BY client_org_id
	`

	rows, err := s.db.QueryContext(ctx, query, agencyOrgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list client links: %w", err)
	}
	defer rows.Close()

	clients := make([]string, 0)
	for rows.Next() {
		var clientOrgID string
		if err := rows.Scan(&clientOrgID); err != nil {
			return nil, fmt.Errorf("failed to scan client link: %w", err)
		}
		clients = append(clients, clientOrgID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate client links: %w", err)
	}

	return clients, nil
}

// ListLiveGrants returns the app IDs with a live grant to any of the given organizations.
func (s *PostgresStore) ListLiveGrants(ctx context.Context, orgIDs []string) (_ []string, err error) {
	if len(orgIDs) == 0 {
		return []string{}, nil
	}

	ctx, endSpan := tracing.StartDBSpan(ctx, "app_access_grants", "query")
	defer func() { endSpan(err) }()

	query := `
		SELECT DISTINCT app_id
		FROM app_access_grants
		WHERE org_id = ANY($1) AND detached_at IS NULL
		ORDER BY app_id
	`

	rows, err := s.db.QueryContext(ctx, query, pq.Array(orgIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to list live grants: %w", err)
	}
	defer rows.Close()

	apps := make([]string, 0)
	for rows.Next() {
		var appID string
		if err := rows.Scan(&appID); err != nil {
			return nil, fmt.Errorf("failed to scan grant: %w", err)
		}
		apps = append(apps, appID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate grants: %w", err)
	}

	return apps, nil
}
