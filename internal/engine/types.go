// Package engine implements the filtering, aggregation, funnel and cohort
// comparison calculations over landing-page event records. Every function is
// a pure computation over its inputs: the same records and the same spec
// always produce the same result, and no call mutates the source slice.
package engine

import "time"

// NotSetSentinel is the literal the upstream export uses for absent
// dimension values. It is matched as an ordinary string, never as a null.
const NotSetSentinel = "(not set)"

// Record is one normalized, possibly pre-aggregated analytics event row.
type Record struct {
	EventAction string    `json:"event_action"`
	Date        time.Time `json:"date"`
	Campaign    string    `json:"campaign"`
	Channel     string    `json:"channel"`
	LandingURL  string    `json:"landing_url"`
	Count       int64     `json:"count"`
}

// AggregateRow is the per-event-action count produced by Aggregate.
type AggregateRow struct {
	EventAction string `json:"event_action"`
	TotalCount  int64  `json:"total_count"`
}

// CascadeRow decorates an AggregateRow with the ratio of its count against
// the row above it. The first row's ratio is 100; a ratio is nil when the
// previous row's count is 0.
type CascadeRow struct {
	AggregateRow
	CascadeRatioPct *float64 `json:"cascade_ratio_pct"`
}

// FunnelStep is one stage of a caller-ordered funnel.
type FunnelStep struct {
	StepIndex    int      `json:"step_index"`
	EventAction  string   `json:"event_action"`
	Count        int64    `json:"count"`
	RetentionPct *float64 `json:"retention_pct"`
	DropoffPct   *float64 `json:"dropoff_pct"`
}

// RatioSpec names a numerator/denominator event-action pair.
type RatioSpec struct {
	Name        string `json:"name,omitempty" validate:"omitempty,max=120"`
	Numerator   string `json:"numerator" validate:"required"`
	Denominator string `json:"denominator" validate:"required"`
}

// RatioResult is the evaluated percentage for one RatioSpec. RatioPct is nil
// when the denominator count is 0: the ratio is undefined, not zero and not
// an error.
type RatioResult struct {
	Name              string   `json:"name,omitempty"`
	NumeratorAction   string   `json:"numerator_action"`
	DenominatorAction string   `json:"denominator_action"`
	NumeratorCount    int64    `json:"numerator_count"`
	DenominatorCount  int64    `json:"denominator_count"`
	RatioPct          *float64 `json:"ratio_pct"`
}

func ptr(v float64) *float64 {
	return &v
}
