package warehouse

import (
	"context"
	"sync"
	"sync/atomic"
)

// MemoryClient is an in-memory Client for tests and local development. It
// holds unlabeled fact rows and applies the same filtering and period
// labeling a real warehouse query would.
type MemoryClient struct {
	mu   sync.RWMutex
	rows []FactRow

	// err, when set, is returned by every Query call.
	err error

	queryCount atomic.Int64
}

// NewMemoryClient creates an empty MemoryClient.
func NewMemoryClient() *MemoryClient {
	return &MemoryClient{}
}

// AddRows appends fact rows to the table. Period labels on the input are
// ignored; labels are assigned per query.
func (c *MemoryClient) AddRows(rows ...FactRow) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rows = append(c.rows, rows...)
}

// FailWith makes every subsequent Query return err. Pass nil to restore
// normal operation.
func (c *MemoryClient) FailWith(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
}

// QueryCount returns the number of Query calls observed.
func (c *MemoryClient) QueryCount() int64 {
	return c.queryCount.Load()
}

// Query filters the stored rows by the spec and labels each row by the
// current sub-range.
func (c *MemoryClient) Query(ctx context.Context, spec QuerySpec) ([]FactRow, error) {
	c.queryCount.Add(1)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.err != nil {
		return nil, c.err
	}

	allowed := make(map[string]bool, len(spec.AppIDs))
	for _, id := range spec.AppIDs {
		allowed[id] = true
	}

	out := make([]FactRow, 0, len(c.rows))
	for _, row := range c.rows {
		if row.Date < spec.Start || row.Date > spec.End {
			continue
		}
		if spec.Filtered && !allowed[row.AppID] {
			continue
		}
		if spec.TrafficSource != "" && row.TrafficSource != spec.TrafficSource {
			continue
		}
		labeled := row
		if spec.Current.Contains(row.Date) {
			labeled.PeriodLabel = PeriodCurrent
		} else {
			labeled.PeriodLabel = PeriodPrevious
		}
		out = append(out, labeled)
	}

	return out, nil
}
