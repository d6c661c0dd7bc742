// Package aggregate reduces warehouse fact rows into summary totals, an
// ordered time series, and a per-traffic-source breakdown. All functions are
// pure and deterministic given identical input rows.
package aggregate

import (
	"sort"

	"github.com/apexaso/insights/internal/warehouse"
)

// Metrics holds the aggregates computed at every grouping level.
//
// ConversionRate is downloads over product page views, and is nil when there
// are no product page views: an unknown rate is semantically distinct from a
// measured 0% rate and must never be coerced to zero.
type Metrics struct {
	Impressions      int64    `json:"impressions"`
	ProductPageViews int64    `json:"productPageViews"`
	Downloads        int64    `json:"downloads"`
	ConversionRate   *float64 `json:"conversionRate"`
}

// TimeseriesPoint is the per-day aggregate for one distinct date.
type TimeseriesPoint struct {
	Date string `json:"date"`
	Metrics
}

// BreakdownEntry is the aggregate for one distinct traffic source.
type BreakdownEntry struct {
	TrafficSource string `json:"trafficSource"`
	Metrics
}

// Result is the full aggregation of one period's rows.
type Result struct {
	Summary    Metrics           `json:"summary"`
	Timeseries []TimeseriesPoint `json:"timeseries"`
	Breakdown  []BreakdownEntry  `json:"breakdown"`
}

// Delta compares one summary metric across periods. DeltaPercent is nil when
// the previous value is zero: the change is undefined, not infinite and not
// zero.
type Delta struct {
	Delta        int64    `json:"delta"`
	DeltaPercent *float64 `json:"deltaPercent"`
}

// SummaryDelta is the current-versus-previous comparison of summary totals.
type SummaryDelta struct {
	Impressions      Delta `json:"impressions"`
	ProductPageViews Delta `json:"productPageViews"`
	Downloads        Delta `json:"downloads"`
}

// Comparison is the result of a comparison-period request: both periods
// reduced independently, plus the summary delta.
type Comparison struct {
	Current  Result       `json:"current"`
	Previous Result       `json:"previous"`
	Delta    SummaryDelta `json:"delta"`
}

// Reduce aggregates rows into a single Result, ignoring period labels.
//
// The time series has one entry per distinct date present in the input,
// ascending; dates without rows are not synthesized. The breakdown has one
// entry per distinct traffic source, ordered by descending impressions with
// ties broken alphabetically.
func Reduce(rows []warehouse.FactRow) Result {
	var summary Metrics
	byDate := make(map[string]*Metrics)
	bySource := make(map[string]*Metrics)

	for _, row := range rows {
		summary.Impressions += row.Impressions
		summary.ProductPageViews += row.ProductPageViews
		summary.Downloads += row.Downloads

		day := byDate[row.Date]
		if day == nil {
			day = &Metrics{}
			byDate[row.Date] = day
		}
		day.Impressions += row.Impressions
		day.ProductPageViews += row.ProductPageViews
		day.Downloads += row.Downloads

		source := bySource[row.TrafficSource]
		if source == nil {
			source = &Metrics{}
			bySource[row.TrafficSource] = source
		}
		source.Impressions += row.Impressions
		source.ProductPageViews += row.ProductPageViews
		source.Downloads += row.Downloads
	}

	summary.ConversionRate = conversionRate(summary.Downloads, summary.ProductPageViews)

	timeseries := make([]TimeseriesPoint, 0, len(byDate))
	for date, m := range byDate {
		m.ConversionRate = conversionRate(m.Downloads, m.ProductPageViews)
		timeseries = append(timeseries, TimeseriesPoint{Date: date, Metrics: *m})
	}
	sort.Slice(timeseries, func(i, j int) bool {
		return timeseries[i].Date < timeseries[j].Date
	})

	breakdown := make([]BreakdownEntry, 0, len(bySource))
	for source, m := range bySource {
		m.ConversionRate = conversionRate(m.Downloads, m.ProductPageViews)
		breakdown = append(breakdown, BreakdownEntry{TrafficSource: source, Metrics: *m})
	}
	sort.Slice(breakdown, func(i, j int) bool {
		if breakdown[i].Impressions != breakdown[j].Impressions {
			return breakdown[i].Impressions > breakdown[j].Impressions
		}
		return breakdown[i].TrafficSource < breakdown[j].TrafficSource
	})

	return Result{Summary: summary, Timeseries: timeseries, Breakdown: breakdown}
}

// ReduceComparison splits rows by period label, reduces each period
// independently, and computes the summary delta.
func ReduceComparison(rows []warehouse.FactRow) Comparison {
	var current, previous []warehouse.FactRow
	for _, row := range rows {
		if row.PeriodLabel == warehouse.PeriodPrevious {
			previous = append(previous, row)
		} else {
			current = append(current, row)
		}
	}

	cur := Reduce(current)
	prev := Reduce(previous)

	return Comparison{
		Current:  cur,
		Previous: prev,
		Delta: SummaryDelta{
			Impressions:      delta(cur.Summary.Impressions, prev.Summary.Impressions),
			ProductPageViews: delta(cur.Summary.ProductPageViews, prev.Summary.ProductPageViews),
			Downloads:        delta(cur.Summary.Downloads, prev.Summary.Downloads),
		},
	}
}

// TrafficSources returns the distinct traffic sources observed in rows,
// sorted, for response metadata.
func TrafficSources(rows []warehouse.FactRow) []string {
	seen := make(map[string]bool)
	out := make([]string, 0)
	for _, row := range rows {
		if row.TrafficSource == "" || seen[row.TrafficSource] {
			continue
		}
		seen[row.TrafficSource] = true
		out = append(out, row.TrafficSource)
	}
	sort.Strings(out)
	return out
}

func conversionRate(downloads, productPageViews int64) *float64 {
	if productPageViews == 0 {
		return nil
	}
	rate := float64(downloads) / float64(productPageViews)
	return &rate
}

func delta(current, previous int64) Delta {
	d := Delta{Delta: current - previous}
	if previous != 0 {
		pct := float64(current-previous) / float64(previous) * 100
		d.DeltaPercent = &pct
	}
	return d
}
