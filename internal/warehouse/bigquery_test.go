package warehouse

import (
	"strings"
	"testing"
)

func TestBuildQuery_Filtered(t *testing.T) {
	spec := QuerySpec{
		Start:         "2026-07-01",
		End:           "2026-07-31",
		Current:       DateRange{Start: "2026-07-01", End: "2026-07-31"},
		AppIDs:        []string{"app1", "app2"},
		Filtered:      true,
		TrafficSource: "search",
	}

	sql, params := buildQuery("proj.aso.daily_facts", spec)

	for _, want := range []string{
		"FROM `proj.aso.daily_facts`",
		"date BETWEEN DATE(@start_date) AND DATE(@end_date)",
		"app_id IN UNNEST(@app_ids)",
		"traffic_source = @traffic_source",
		"AS period_label",
		"ORDER BY date",
	} {
		if !strings.Contains(sql, want) {
			t.Errorf("query missing %q:\n%s", want, sql)
		}
	}

	got := map[string]bool{}
	for _, p := range params {
		got[p.Name] = true
	}
	for _, want := range []string{"current_start", "current_end", "start_date", "end_date", "app_ids", "traffic_source"} {
		if !got[want] {
			t.Errorf("missing parameter %q", want)
		}
	}
}

func TestBuildQuery_Unfiltered(t *testing.T) {
	spec := QuerySpec{
		Start:   "2026-07-01",
		End:     "2026-07-31",
		Current: DateRange{Start: "2026-07-01", End: "2026-07-31"},
	}

	sql, params := buildQuery("proj.aso.daily_facts", spec)

	if strings.Contains(sql, "UNNEST") {
		t.Errorf("unfiltered query must not carry an app clause:\n%s", sql)
	}
	if strings.Contains(sql, "traffic_source = ") {
		t.Errorf("query must not filter traffic source:\n%s", sql)
	}
	if len(params) != 4 {
		t.Errorf("params = %d, want 4", len(params))
	}
}
