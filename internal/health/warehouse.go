package health

import (
	"context"

	"cloud.google.com/go/bigquery"
)

// WarehouseChecker implements health checking for BigQuery using a dry-run
// query, which validates connectivity and credentials without scanning data.
type WarehouseChecker struct {
	client *bigquery.Client
}

// NewWarehouseChecker creates a new BigQuery health checker.
func NewWarehouseChecker(client *bigquery.Client) *WarehouseChecker {
	return &WarehouseChecker{client: client}
}

// HealthCheck dry-runs a trivial query.
func (c *WarehouseChecker) HealthCheck(ctx context.Context) error {
	q := c.client.Query("SELECT 1")
	q.DryRun = true
	_, err := q.Run(ctx)
	return err
}
