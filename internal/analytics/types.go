package analytics

import (
	"github.com/funnelboard/funnelboard-backend/internal/engine"
)

// OverviewRequest drives the filtered event-table view. GroupBy is optional;
// Cascade asks for step-down ratios between adjacent rows of the sorted
// table. Limit, when positive, tightens the configured row cap but never
// raises it.
type OverviewRequest struct {
	Filter  engine.FilterSpec
	GroupBy engine.GroupKey
	Cascade bool
	Limit   int
}

type OverviewResult struct {
	TableVersion string                           `json:"table_version"`
	TotalEvents  int64                            `json:"total_events"`
	Leads        int64                            `json:"leads"`
	Rows         []engine.AggregateRow            `json:"rows"`
	CascadeRows  []engine.CascadeRow              `json:"cascade_rows,omitempty"`
	Groups       map[string][]engine.AggregateRow `json:"groups,omitempty"`
	Truncated    bool                             `json:"truncated"`
}

// ExportResult carries the full aggregated table, never truncated.
type ExportResult struct {
	TableVersion string                `json:"table_version"`
	TotalEvents  int64                 `json:"total_events"`
	Rows         []engine.AggregateRow `json:"rows"`
}

// FunnelRequest evaluates the funnel in the caller's step order. An empty
// Steps slice falls back to the configured default funnel.
type FunnelRequest struct {
	Filter engine.FilterSpec
	Steps  []string
}

type FunnelResult struct {
	TableVersion string              `json:"table_version"`
	TotalEvents  int64               `json:"total_events"`
	Steps        []engine.FunnelStep `json:"steps"`
}

// RatiosRequest evaluates caller-supplied ratio specs against the filtered
// table. With no specs the configured KPI set is evaluated instead.
type RatiosRequest struct {
	Filter engine.FilterSpec
	Specs  []engine.RatioSpec
}

type RatiosResult struct {
	TableVersion string               `json:"table_version"`
	Ratios       []engine.RatioResult `json:"ratios"`
}

// ComparisonRequest compares two cohorts of the same table. Steps defaults
// to the configured funnel when empty.
type ComparisonRequest struct {
	OldFilter engine.FilterSpec
	NewFilter engine.FilterSpec
	Steps     []string
}

type ComparisonResult struct {
	TableVersion string `json:"table_version"`
	*engine.Comparison
}

// DimensionValue is one picker entry: a distinct dimension value and the
// total events it accounts for inside the filtered window.
type DimensionValue struct {
	Value      string `json:"value"`
	TotalCount int64  `json:"total_count"`
}

// DimensionsResult lists the distinct values present for each groupable
// dimension after filtering, sorted by value ascending.
type DimensionsResult struct {
	TableVersion string           `json:"table_version"`
	Campaigns    []DimensionValue `json:"campaigns"`
	Channels     []DimensionValue `json:"channels"`
	LandingURLs  []DimensionValue `json:"landing_urls"`
}

type ReloadResult struct {
	TableVersion string `json:"table_version"`
	Rows         int    `json:"rows"`
}
