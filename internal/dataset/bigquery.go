package dataset

import (
	"context"
	"fmt"
	"strings"
	"time"

	bq "cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"google.golang.org/api/iterator"

	"github.com/funnelboard/funnelboard-backend/internal/engine"
	bigquery "github.com/funnelboard/funnelboard-backend/pkg/bigquery"
)

// BigQuerySource loads the event table from the warehouse. The query
// aggregates the raw GA4 export into the same shape the CSV export uses,
// limited to a trailing window and a row cap so a misconfigured table
// cannot blow up memory.
type BigQuerySource struct {
	client     *bigquery.Client
	windowDays int
	rowLimit   int
}

type bigqueryEventRow struct {
	EventAction string     `bigquery:"event_action"`
	Date        civil.Date `bigquery:"date"`
	Campaign    string     `bigquery:"campaign"`
	Channel     string     `bigquery:"channel"`
	LandingURL  string     `bigquery:"landing_url"`
	Count       int64      `bigquery:"count"`
}

func NewBigQuerySource(client *bigquery.Client, windowDays, rowLimit int) *BigQuerySource {
	return &BigQuerySource{client: client, windowDays: windowDays, rowLimit: rowLimit}
}

func (s *BigQuerySource) Name() string {
	return "bigquery:" + s.client.EventsTableRef()
}

func (s *BigQuerySource) Load(ctx context.Context) ([]engine.Record, error) {
	sql := fmt.Sprintf(`
SELECT
  event_action,
  date,
  IFNULL(campaign, @not_set) AS campaign,
  IFNULL(channel, @not_set) AS channel,
  IFNULL(landing_url, @not_set) AS landing_url,
  SUM(count) AS count
FROM %s
WHERE date >= DATE_SUB(CURRENT_DATE(), INTERVAL @window_days DAY)
GROUP BY event_action, date, campaign, channel, landing_url
ORDER BY date, event_action
LIMIT @row_limit`, s.client.EventsTableRef())

	params := []bq.QueryParameter{
		{Name: "not_set", Value: engine.NotSetSentinel},
		{Name: "window_days", Value: s.windowDays},
		{Name: "row_limit", Value: s.rowLimit},
	}

	it, err := s.client.RunQuery(ctx, sql, params)
	if err != nil {
		return nil, fmt.Errorf("querying events table: %w", err)
	}

	var records []engine.Record
	for {
		var row bigqueryEventRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading events row: %w", err)
		}
		records = append(records, engine.Record{
			EventAction: strings.TrimSpace(row.EventAction),
			Date:        row.Date.In(time.UTC),
			Campaign:    orNotSet(row.Campaign),
			Channel:     orNotSet(row.Channel),
			LandingURL:  orNotSet(row.LandingURL),
			Count:       row.Count,
		})
	}
	return records, nil
}
