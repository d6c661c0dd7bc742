package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/apexaso/insights/internal/tracing"
)

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a new PostgresRepository.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Record persists one event.
func (r *PostgresRepository) Record(ctx context.Context, event *Event) (err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "audit_events", "insert")
	defer func() { endSpan(err) }()

	id := event.ID
	if id == "" {
		id = uuid.New().String()
	}
	createdAt := event.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	query := `
		INSERT INTO audit_events (
			id, principal_id, org_ids, requested_app_ids, authorized_app_ids,
			dropped_app_ids, start_date, end_date, comparison, row_count,
			latency_ms, from_cache, outcome, error_code, request_id,
			ip_address, user_agent, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15, $16, $17, $18
		)
	`

	_, err = r.db.ExecContext(ctx, query,
		id, event.PrincipalID,
		pq.Array(event.OrgIDs), pq.Array(event.RequestedAppIDs),
		pq.Array(event.AuthorizedAppIDs), pq.Array(event.DroppedAppIDs),
		event.StartDate, event.EndDate, event.Comparison, event.RowCount,
		event.LatencyMS, event.FromCache, event.Outcome, event.ErrorCode,
		event.RequestID, event.IPAddress, event.UserAgent, createdAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record audit event: %w", err)
	}

	return nil
}

// QueryByPrincipal retrieves events for a principal, newest first.
func (r *PostgresRepository) QueryByPrincipal(ctx context.Context, principalID string, limit int) ([]*Event, error) {
	query := `
		SELECT id, principal_id, org_ids, requested_app_ids, authorized_app_ids,
			dropped_app_ids, start_date, end_date, comparison, row_count,
			latency_ms, from_cache, outcome, error_code, request_id,
			ip_address, user_agent, created_at
		FROM audit_events
		WHERE principal_id = $1
		ORDER BY created_at DESC
	`
	args := []any{principalID}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit events: %w", err)
	}
	defer rows.Close()

	var results []*Event
	for rows.Next() {
		event := &Event{}
		err := rows.Scan(
			&event.ID, &event.PrincipalID,
			pq.Array(&event.OrgIDs), pq.Array(&event.RequestedAppIDs),
			pq.Array(&event.AuthorizedAppIDs), pq.Array(&event.DroppedAppIDs),
			&event.StartDate, &event.EndDate, &event.Comparison, &event.RowCount,
			&event.LatencyMS, &event.FromCache, &event.Outcome, &event.ErrorCode,
			&event.RequestID, &event.IPAddress, &event.UserAgent, &event.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit event: %w", err)
		}
		results = append(results, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate audit events: %w", err)
	}

	return results, nil
}
