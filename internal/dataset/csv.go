package dataset

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/funnelboard/funnelboard-backend/internal/engine"
)

// csv column aliases accepted for each semantic field. The upstream export
// sometimes names the landing page "url" and the date "timestamp".
var csvColumns = map[string][]string{
	"event_action": {"event_action"},
	"date":         {"date", "timestamp"},
	"campaign":     {"campaign"},
	"channel":      {"channel"},
	"landing_url":  {"landing_url", "url"},
	"count":        {"count"},
}

var csvDateLayouts = []string{"2006-01-02", "20060102", "02/01/2006"}

// CSVSource loads the event table from a local CSV export.
type CSVSource struct {
	path string
}

func NewCSVSource(path string) *CSVSource {
	return &CSVSource{path: path}
}

func (s *CSVSource) Name() string {
	return "csv:" + s.path
}

func (s *CSVSource) Load(ctx context.Context) ([]engine.Record, error) {
	file, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", s.path, err)
	}
	defer file.Close()
	return ReadRecords(ctx, file)
}

// ReadRecords parses a header-mapped CSV stream into event records.
// Columns beyond the required six are ignored explicitly; rows with a
// missing event action, an unparseable date or a negative count are
// rejected with their line number.
func ReadRecords(ctx context.Context, r io.Reader) ([]engine.Record, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading csv header: %w", err)
	}
	index, err := mapHeader(header)
	if err != nil {
		return nil, err
	}

	var records []engine.Record
	line := 1
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading csv row: %w", err)
		}
		line++

		rec, err := parseRow(row, index)
		if err != nil {
			return nil, fmt.Errorf("csv line %d: %w", line, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func mapHeader(header []string) (map[string]int, error) {
	position := make(map[string]int, len(header))
	for i, name := range header {
		position[strings.ToLower(strings.TrimSpace(name))] = i
	}

	index := make(map[string]int, len(csvColumns))
	for field, aliases := range csvColumns {
		found := false
		for _, alias := range aliases {
			if i, ok := position[alias]; ok {
				index[field] = i
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("csv header is missing column %q", field)
		}
	}
	return index, nil
}

func parseRow(row []string, index map[string]int) (engine.Record, error) {
	get := func(field string) string {
		i := index[field]
		if i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	action := get("event_action")
	if action == "" {
		return engine.Record{}, fmt.Errorf("event_action is empty")
	}

	date, err := parseDate(get("date"))
	if err != nil {
		return engine.Record{}, err
	}

	count, err := strconv.ParseInt(get("count"), 10, 64)
	if err != nil {
		return engine.Record{}, fmt.Errorf("count %q is not an integer", get("count"))
	}
	if count < 0 {
		return engine.Record{}, fmt.Errorf("count %d is negative", count)
	}

	return engine.Record{
		EventAction: action,
		Date:        date,
		Campaign:    orNotSet(get("campaign")),
		Channel:     orNotSet(get("channel")),
		LandingURL:  orNotSet(get("landing_url")),
		Count:       count,
	}, nil
}

func parseDate(value string) (time.Time, error) {
	for _, layout := range csvDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("date %q is not in a supported layout", value)
}

func orNotSet(value string) string {
	if value == "" {
		return engine.NotSetSentinel
	}
	return value
}
