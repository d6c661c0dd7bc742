// Package health provides health check implementations for external dependencies.
package health

import (
	"context"
	"database/sql"
)

// DBChecker implements health checking for the PostgreSQL authorization store.
type DBChecker struct {
	db *sql.DB
}

// NewDBChecker creates a new database health checker.
func NewDBChecker(db *sql.DB) *DBChecker {
	return &DBChecker{db: db}
}

// HealthCheck pings the database.
func (c *DBChecker) HealthCheck(ctx context.Context) error {
	return c.db.PingContext(ctx)
}
