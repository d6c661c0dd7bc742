// Package warehouse plans and executes read-only analytical queries against
// the ASO fact table. The planner builds exactly one query per request, even
// when a comparison period is requested, and re-asserts the application-ID
// access boundary inside the query itself.
package warehouse

import (
	"fmt"
	"time"
)

// dateLayout is the wire format for fact dates.
const dateLayout = "2006-01-02"

// Period labels attached to every fact row. Rows outside a comparison query
// are always labeled current.
const (
	PeriodCurrent  = "current"
	PeriodPrevious = "previous"
)

// FactRow is one immutable warehouse record: daily store metrics for one
// application and traffic source. The pipeline never writes fact rows.
type FactRow struct {
	Date             string `json:"date"`
	AppID            string `json:"appId"`
	TrafficSource    string `json:"trafficSource"`
	Impressions      int64  `json:"impressions"`
	ProductPageViews int64  `json:"productPageViews"`
	Downloads        int64  `json:"downloads"`
	PeriodLabel      string `json:"periodLabel"`
}

// DateRange is an inclusive date range in YYYY-MM-DD form.
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Validate checks both bounds parse and start <= end.
func (r DateRange) Validate() error {
	start, err := time.Parse(dateLayout, r.Start)
	if err != nil {
		return fmt.Errorf("invalid start date %q: must be YYYY-MM-DD", r.Start)
	}
	end, err := time.Parse(dateLayout, r.End)
	if err != nil {
		return fmt.Errorf("invalid end date %q: must be YYYY-MM-DD", r.End)
	}
	if end.Before(start) {
		return fmt.Errorf("start date %s is after end date %s", r.Start, r.End)
	}
	return nil
}

// Days returns the inclusive length of the range in days.
func (r DateRange) Days() int {
	start, _ := time.Parse(dateLayout, r.Start)
	end, _ := time.Parse(dateLayout, r.End)
	return int(end.Sub(start).Hours()/24) + 1
}

// Previous returns the equal-length range immediately preceding this one,
// used as the comparison period.
func (r DateRange) Previous() DateRange {
	start, _ := time.Parse(dateLayout, r.Start)
	days := r.Days()
	prevEnd := start.AddDate(0, 0, -1)
	prevStart := prevEnd.AddDate(0, 0, -(days - 1))
	return DateRange{
		Start: prevStart.Format(dateLayout),
		End:   prevEnd.Format(dateLayout),
	}
}

// Contains reports whether the given YYYY-MM-DD date falls inside the range.
func (r DateRange) Contains(date string) bool {
	return date >= r.Start && date <= r.End
}
