package warehouse

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
)

// BigQueryClient executes planned queries against a BigQuery fact table.
type BigQueryClient struct {
	client *bigquery.Client
	table  string
}

// NewBigQueryClient wraps an existing bigquery client for the given fact
// table. The caller owns the client's lifecycle.
func NewBigQueryClient(client *bigquery.Client, projectID, dataset, table string) *BigQueryClient {
	return &BigQueryClient{
		client: client,
		table:  fmt.Sprintf("%s.%s.%s", projectID, dataset, table),
	}
}

// Query runs the spec as a single parameterized query and returns labeled
// fact rows.
func (c *BigQueryClient) Query(ctx context.Context, spec QuerySpec) ([]FactRow, error) {
	sql, params := buildQuery(c.table, spec)

	q := c.client.Query(sql)
	q.Parameters = params

	it, err := q.Read(ctx)
	if err != nil {
		return nil, classifyError(err)
	}

	rows := make([]FactRow, 0, 256)
	for {
		var row bqFactRow
		err := it.Next(&row)
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, classifyError(err)
		}
		rows = append(rows, FactRow{
			Date:             row.Date,
			AppID:            row.AppID,
			TrafficSource:    row.TrafficSource,
			Impressions:      row.Impressions,
			ProductPageViews: row.ProductPageViews,
			Downloads:        row.Downloads,
			PeriodLabel:      row.PeriodLabel,
		})
	}

	return rows, nil
}

// bqFactRow mirrors the query's column list for the struct loader.
type bqFactRow struct {
	Date             string `bigquery:"date"`
	AppID            string `bigquery:"app_id"`
	TrafficSource    string `bigquery:"traffic_source"`
	Impressions      int64  `bigquery:"impressions"`
	ProductPageViews int64  `bigquery:"product_page_views"`
	Downloads        int64  `bigquery:"downloads"`
	PeriodLabel      string `bigquery:"period_label"`
}

// buildQuery renders the spec into one parameterized standard-SQL query.
// The period label is always emitted so the row shape is stable; without a
// comparison every row falls inside the current sub-range.
func buildQuery(table string, spec QuerySpec) (string, []bigquery.QueryParameter) {
	var b strings.Builder
	b.WriteString("SELECT\n")
	b.WriteString("  FORMAT_DATE('%F', date) AS date,\n")
	b.WriteString("  app_id,\n")
	b.WriteString("  traffic_source,\n")
	b.WriteString("  impressions,\n")
	b.WriteString("  product_page_views,\n")
	b.WriteString("  downloads,\n")
	b.WriteString("  CASE WHEN date BETWEEN DATE(@current_start) AND DATE(@current_end) THEN 'current' ELSE 'previous' END AS period_label\n")
	b.WriteString("FROM `" + table + "`\n")
	b.WriteString("WHERE date BETWEEN DATE(@start_date) AND DATE(@end_date)")

	params := []bigquery.QueryParameter{
		{Name: "current_start", Value: spec.Current.Start},
		{Name: "current_end", Value: spec.Current.End},
		{Name: "start_date", Value: spec.Start},
		{Name: "end_date", Value: spec.End},
	}

	if spec.Filtered {
		b.WriteString("\n  AND app_id IN UNNEST(@app_ids)")
		params = append(params, bigquery.QueryParameter{Name: "app_ids", Value: spec.AppIDs})
	}
	if spec.TrafficSource != "" {
		b.WriteString("\n  AND traffic_source = @traffic_source")
		params = append(params, bigquery.QueryParameter{Name: "traffic_source", Value: spec.TrafficSource})
	}

	b.WriteString("\nORDER BY date, app_id, traffic_source")

	return b.String(), params
}

// classifyError maps transport errors onto the planner's error kinds.
// Client-side rejections (bad SQL, missing table) are permanent; everything
// else is treated as transient.
func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case 400, 404:
			return fmt.Errorf("%w: %v", ErrRejected, err)
		}
	}

	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
