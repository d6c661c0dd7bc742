package analytics

import (
	"errors"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
)

func TestParseRequest_Query(t *testing.T) {
	r := httptest.NewRequest("GET", "/v1/analytics/query?start_date=2026-07-01&end_date=2026-07-31&app_ids=app1,%20app2&traffic_source=search&comparison=true&include_raw=1", nil)

	req, err := ParseRequest(r)
	if err != nil {
		t.Fatalf("ParseRequest() error = %v", err)
	}

	if req.StartDate != "2026-07-01" || req.EndDate != "2026-07-31" {
		t.Errorf("dates = %s..%s", req.StartDate, req.EndDate)
	}
	if !reflect.DeepEqual(req.AppIDs, []string{"app1", "app2"}) {
		t.Errorf("AppIDs = %v", req.AppIDs)
	}
	if req.TrafficSource != "search" || !req.Comparison || !req.IncludeRawRows {
		t.Errorf("req = %+v", req)
	}
	if !req.Aggregate {
		t.Error("Aggregate should default to true")
	}
}

func TestParseRequest_QueryDefaults(t *testing.T) {
	r := httptest.NewRequest("GET", "/v1/analytics/query?start_date=2026-07-01&end_date=2026-07-31", nil)

	req, err := ParseRequest(r)
	if err != nil {
		t.Fatalf("ParseRequest() error = %v", err)
	}
	if len(req.AppIDs) != 0 || req.Comparison || req.IncludeRawRows || !req.Aggregate {
		t.Errorf("req = %+v, want defaults", req)
	}
}

func TestParseRequest_Body(t *testing.T) {
	body := `{
		"startDate": "2026-07-01",
		"endDate": "2026-07-31",
		"appIds": ["app1"],
		"comparison": true,
		"aggregate": false
	}`
	r := httptest.NewRequest("POST", "/v1/analytics/query", strings.NewReader(body))

	req, err := ParseRequest(r)
	if err != nil {
		t.Fatalf("ParseRequest() error = %v", err)
	}
	if !req.Comparison || req.Aggregate {
		t.Errorf("req = %+v", req)
	}
}

func TestParseRequest_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		target string
	}{
		{"missing dates", "/v1/analytics/query"},
		{"missing end", "/v1/analytics/query?start_date=2026-07-01"},
		{"inverted range", "/v1/analytics/query?start_date=2026-07-31&end_date=2026-07-01"},
		{"bad date format", "/v1/analytics/query?start_date=07-01-2026&end_date=2026-07-31"},
		{"bad flag", "/v1/analytics/query?start_date=2026-07-01&end_date=2026-07-31&comparison=maybe"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", tt.target, nil)
			_, err := ParseRequest(r)
			if !errors.Is(err, ErrInvalidRequest) {
				t.Errorf("ParseRequest() error = %v, want ErrInvalidRequest", err)
			}
		})
	}
}

func TestParseRequest_MalformedBody(t *testing.T) {
	r := httptest.NewRequest("POST", "/v1/analytics/query", strings.NewReader("{not json"))
	if _, err := ParseRequest(r); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("ParseRequest() error = %v, want ErrInvalidRequest", err)
	}

	r = httptest.NewRequest("POST", "/v1/analytics/query", strings.NewReader(`{"startDate":"2026-07-01","endDate":"2026-07-31","bogus":1}`))
	if _, err := ParseRequest(r); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("unknown field error = %v, want ErrInvalidRequest", err)
	}
}
