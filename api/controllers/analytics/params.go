// Package analytics exposes the dashboard's query surface: filtered event
// tables, dimension listings, funnels, ratio metrics and cohort comparisons.
package analytics

import (
	"net/http"
	"strings"
	"time"

	"github.com/funnelboard/funnelboard-backend/internal/engine"
	pkgerrors "github.com/funnelboard/funnelboard-backend/pkg/errors"
)

var timeNowUTC = func() time.Time {
	return time.Now().UTC()
}

// parseFilterSpec builds the engine filter from query parameters. Dates are
// accepted as 2006-01-02 or RFC3339 and must come as a from/to pair; with
// neither present the preset window (default 30d) ends at now. campaign,
// channel and url repeat to build each value set.
func parseFilterSpec(r *http.Request, now time.Time) (engine.FilterSpec, error) {
	start, end, err := resolveRange(r, now)
	if err != nil {
		return engine.FilterSpec{}, err
	}

	query := r.URL.Query()
	return engine.FilterSpec{
		DateRange:   engine.DateRange{Start: start, End: end},
		Campaigns:   cleanValues(query["campaign"]),
		Channels:    cleanValues(query["channel"]),
		LandingURLs: cleanValues(query["url"]),
	}, nil
}

func resolveRange(r *http.Request, now time.Time) (time.Time, time.Time, error) {
	query := r.URL.Query()
	from := strings.TrimSpace(query.Get("from"))
	to := strings.TrimSpace(query.Get("to"))

	if from != "" || to != "" {
		if from == "" || to == "" {
			return time.Time{}, time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, "from and to must be provided together")
		}
		start, err := parseTimestamp(from)
		if err != nil {
			return time.Time{}, time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid from timestamp")
		}
		end, err := parseTimestamp(to)
		if err != nil {
			return time.Time{}, time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid to timestamp")
		}
		if end.Before(start) {
			return time.Time{}, time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, "to must not be before from")
		}
		return start, end, nil
	}

	duration, ok := presetDuration(strings.TrimSpace(query.Get("preset")))
	if !ok {
		return time.Time{}, time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid preset")
	}
	end := now
	return end.Add(-duration), end, nil
}

func parseTimestamp(value string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

func presetDuration(value string) (time.Duration, bool) {
	if value == "" {
		value = "30d"
	}
	switch strings.ToLower(value) {
	case "7d":
		return 7 * 24 * time.Hour, true
	case "30d":
		return 30 * 24 * time.Hour, true
	case "90d":
		return 90 * 24 * time.Hour, true
	}
	return 0, false
}

func cleanValues(values []string) []string {
	var out []string
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// filterDTO is the body-level form of the same filter, used by the POST
// endpoints. Dates accept the same two layouts as the query form.
type filterDTO struct {
	From        string   `json:"from" validate:"required"`
	To          string   `json:"to" validate:"required"`
	Campaigns   []string `json:"campaigns,omitempty" validate:"omitempty,max=100,dive,min=1"`
	Channels    []string `json:"channels,omitempty" validate:"omitempty,max=100,dive,min=1"`
	LandingURLs []string `json:"landing_urls,omitempty" validate:"omitempty,max=100,dive,min=1"`
}

func (d filterDTO) toSpec() (engine.FilterSpec, error) {
	start, err := parseTimestamp(d.From)
	if err != nil {
		return engine.FilterSpec{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid from timestamp")
	}
	end, err := parseTimestamp(d.To)
	if err != nil {
		return engine.FilterSpec{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid to timestamp")
	}
	spec := engine.FilterSpec{
		DateRange:   engine.DateRange{Start: start, End: end},
		Campaigns:   cleanValues(d.Campaigns),
		Channels:    cleanValues(d.Channels),
		LandingURLs: cleanValues(d.LandingURLs),
	}
	if err := spec.Validate(); err != nil {
		return engine.FilterSpec{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid filter")
	}
	return spec, nil
}
