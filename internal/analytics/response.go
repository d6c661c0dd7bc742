package analytics

import (
	"github.com/apexaso/insights/internal/aggregate"
	"github.com/apexaso/insights/internal/warehouse"
)

// Meta is the response metadata block.
type Meta struct {
	RowCount        int      `json:"rowCount"`
	QueryDurationMS int64    `json:"queryDurationMs"`
	TrafficSources  []string `json:"trafficSources"`

	// AccessibleAppIDs lists every application the resolved scope made
	// accessible, for client-side filter population. This is the full
	// authorized set, not the request's own filter. Empty for unrestricted
	// scopes with no explicit app request.
	AccessibleAppIDs []string `json:"accessibleAppIds"`

	FromCache bool `json:"fromCache"`
}

// ComparisonBlock carries the previous period and the summary delta when a
// comparison was requested. The top-level summary/timeseries/breakdown always
// describe the current period.
type ComparisonBlock struct {
	Previous aggregate.Result       `json:"previous"`
	Delta    aggregate.SummaryDelta `json:"delta"`
}

// Response is the wire shape of the analytics endpoint.
//
// The aggregated blocks are always present. Data is the legacy raw-row array
// kept for callers that predate aggregation (aggregate=false); RawRows is the
// opt-in drill-down. Both are additive so old integrations keep working.
type Response struct {
	Summary    aggregate.Metrics           `json:"summary"`
	Timeseries []aggregate.TimeseriesPoint `json:"timeseries"`
	Breakdown  []aggregate.BreakdownEntry  `json:"breakdown"`

	Comparison *ComparisonBlock `json:"comparison,omitempty"`

	RawRows []warehouse.FactRow `json:"rawRows,omitempty"`
	Data    []warehouse.FactRow `json:"data,omitempty"`

	Meta Meta `json:"meta"`
}

// Assemble builds the wire response from labeled rows and query metadata.
// fromCache is left false; cache hits flip it after deserialization so the
// cached aggregates themselves stay byte-identical.
func Assemble(req *Request, rows []warehouse.FactRow, accessibleAppIDs []string, queryDurationMS int64) *Response {
	resp := &Response{
		Meta: Meta{
			RowCount:         len(rows),
			QueryDurationMS:  queryDurationMS,
			TrafficSources:   aggregate.TrafficSources(rows),
			AccessibleAppIDs: accessibleAppIDs,
		},
	}

	if req.Comparison {
		comparison := aggregate.ReduceComparison(rows)
		resp.Summary = comparison.Current.Summary
		resp.Timeseries = comparison.Current.Timeseries
		resp.Breakdown = comparison.Current.Breakdown
		resp.Comparison = &ComparisonBlock{
			Previous: comparison.Previous,
			Delta:    comparison.Delta,
		}
	} else {
		result := aggregate.Reduce(rows)
		resp.Summary = result.Summary
		resp.Timeseries = result.Timeseries
		resp.Breakdown = result.Breakdown
	}

	if req.IncludeRawRows {
		resp.RawRows = rows
	}
	if !req.Aggregate {
		resp.Data = rows
	}

	return resp
}
