package warehouse

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/apexaso/insights/internal/scope"
)

// Query errors. Clients classify their transport failures into these two
// kinds; everything downstream dispatches on errors.Is.
var (
	// ErrUnavailable marks transient upstream failures (transport errors,
	// timeouts, quota). Retryable by the caller with backoff; results behind
	// this error are never cached.
	ErrUnavailable = errors.New("warehouse unavailable")

	// ErrRejected marks a query the warehouse refused (malformed SQL, missing
	// table). Not retryable: the same query will always fail, so this
	// indicates a planner defect and should alert rather than retry.
	ErrRejected = errors.New("warehouse query rejected")
)

// QuerySpec is the resolved, access-checked description of a single warehouse
// query. Clients translate it into their native query form.
type QuerySpec struct {
	// Start and End bound the full scanned range. With a comparison this is
	// the union of both periods; Current distinguishes the sub-ranges.
	Start   string
	End     string
	Current DateRange

	// AppIDs is the application filter. Filtered=false (unrestricted scope
	// with no explicit app request) means no application clause.
	AppIDs   []string
	Filtered bool

	TrafficSource string
}

// Client executes a planned query and returns labeled fact rows.
type Client interface {
	Query(ctx context.Context, spec QuerySpec) ([]FactRow, error)
}

// Planner turns a scope and date range into exactly one warehouse query.
type Planner struct {
	client  Client
	timeout time.Duration
}

// NewPlanner creates a Planner over the given client. timeout bounds every
// warehouse call; a timeout surfaces as ErrUnavailable.
func NewPlanner(client Client, timeout time.Duration) *Planner {
	return &Planner{client: client, timeout: timeout}
}

// Execute runs the single query for the request and returns the labeled rows
// plus the observed query duration.
//
// Comparison is expressed inside the one query: the scanned range is widened
// to cover the equal-length preceding period, and each row carries a period
// label derived from which sub-range its date falls into. The application
// filter from the scope is always applied in the query itself, regardless of
// any upstream filtering.
func (p *Planner) Execute(ctx context.Context, s *scope.QueryScope, rng DateRange, comparison bool, trafficSource string) ([]FactRow, time.Duration, error) {
	appIDs, filtered := s.AppFilter()

	// A restricted scope that resolved to zero apps can never match a row;
	// skip the round trip.
	if filtered && len(appIDs) == 0 {
		return []FactRow{}, 0, nil
	}

	spec := QuerySpec{
		Start:         rng.Start,
		End:           rng.End,
		Current:       rng,
		AppIDs:        appIDs,
		Filtered:      filtered,
		TrafficSource: trafficSource,
	}
	if comparison {
		spec.Start = rng.Previous().Start
	}

	queryCtx := ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		queryCtx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	started := time.Now()
	rows, err := p.client.Query(queryCtx, spec)
	duration := time.Since(started)
	if err != nil {
		if errors.Is(err, ErrUnavailable) || errors.Is(err, ErrRejected) {
			return nil, duration, err
		}
		return nil, duration, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return rows, duration, nil
}
