// Package analytics is the request pipeline for the aggregation endpoint:
// credential resolution, scope expansion, cache lookup, warehouse query,
// aggregation, response assembly, and audit recording.
package analytics

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/apexaso/insights/internal/warehouse"
)

// ErrInvalidRequest marks caller-side validation failures.
var ErrInvalidRequest = errors.New("invalid request")

// Request is the parsed analytics query.
type Request struct {
	// OrgHint optionally names an organization the caller is asking about.
	// It can never widen scope; a hint outside the resolved scope is an
	// explicit access denial rather than silent narrowing.
	OrgHint string `json:"orgId"`

	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`

	AppIDs        []string `json:"appIds"`
	TrafficSource string   `json:"trafficSource"`

	Comparison bool `json:"comparison"`

	// IncludeRawRows opts into the raw drill-down payload.
	IncludeRawRows bool `json:"includeRawRows"`

	// Aggregate is on by default; legacy callers turn it off to get the
	// plain data array. The aggregated blocks are produced either way.
	Aggregate bool `json:"aggregate"`
}

// DateRange returns the requested range.
func (r *Request) DateRange() warehouse.DateRange {
	return warehouse.DateRange{Start: r.StartDate, End: r.EndDate}
}

// Validate checks required fields and bounds.
func (r *Request) Validate() error {
	if r.StartDate == "" || r.EndDate == "" {
		return fmt.Errorf("%w: startDate and endDate are required", ErrInvalidRequest)
	}
	if err := r.DateRange().Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return nil
}

// ParseRequest reads a Request from either GET query parameters or a POST
// JSON body.
func ParseRequest(r *http.Request) (*Request, error) {
	if r.Method == http.MethodPost {
		return parseBody(r)
	}
	return parseQuery(r)
}

func parseBody(r *http.Request) (*Request, error) {
	req := &Request{Aggregate: true}

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(req); err != nil {
		return nil, fmt.Errorf("%w: malformed JSON body: %v", ErrInvalidRequest, err)
	}

	if err := req.Validate(); err != nil {
		return nil, err
	}
	return req, nil
}

func parseQuery(r *http.Request) (*Request, error) {
	q := r.URL.Query()

	req := &Request{
		OrgHint:       q.Get("org_id"),
		StartDate:     q.Get("start_date"),
		EndDate:       q.Get("end_date"),
		TrafficSource: q.Get("traffic_source"),
		Aggregate:     true,
	}

	if raw := q.Get("app_ids"); raw != "" {
		for _, id := range strings.Split(raw, ",") {
			if id = strings.TrimSpace(id); id != "" {
				req.AppIDs = append(req.AppIDs, id)
			}
		}
	}

	var err error
	if req.Comparison, err = parseBool(q.Get("comparison")); err != nil {
		return nil, fmt.Errorf("%w: invalid comparison flag", ErrInvalidRequest)
	}
	if req.IncludeRawRows, err = parseBool(q.Get("include_raw")); err != nil {
		return nil, fmt.Errorf("%w: invalid include_raw flag", ErrInvalidRequest)
	}
	if raw := q.Get("aggregate"); raw != "" {
		if req.Aggregate, err = parseBool(raw); err != nil {
			return nil, fmt.Errorf("%w: invalid aggregate flag", ErrInvalidRequest)
		}
	}

	if err := req.Validate(); err != nil {
		return nil, err
	}
	return req, nil
}

func parseBool(raw string) (bool, error) {
	if raw == "" {
		return false, nil
	}
	return strconv.ParseBool(raw)
}
