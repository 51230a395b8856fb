package engine

// CohortSummary is everything computed for one side of a comparison. It
// carries the filter spec that produced it so the payload stays
// self-describing for downstream consumers.
type CohortSummary struct {
	Label       string         `json:"label"`
	Filter      FilterSpec     `json:"filter"`
	TotalEvents int64          `json:"total_events"`
	Rows        []AggregateRow `json:"rows"`
	Funnel      []FunnelStep   `json:"funnel"`
	KPIs        []RatioResult  `json:"kpis"`
}

// StepDelta lines up one funnel step across both cohorts. A label absent
// from a cohort contributes count 0, it is never omitted, so step i of the
// old cohort always refers to the same event action as step i of the new.
type StepDelta struct {
	StepIndex                  int      `json:"step_index"`
	EventAction                string   `json:"event_action"`
	OldCount                   int64    `json:"old_count"`
	NewCount                   int64    `json:"new_count"`
	CountDelta                 int64    `json:"count_delta"`
	CountRelativeChangePct     *float64 `json:"count_relative_change_pct"`
	OldRetentionPct            *float64 `json:"old_retention_pct"`
	NewRetentionPct            *float64 `json:"new_retention_pct"`
	RetentionDeltaPP           *float64 `json:"retention_delta_pp"`
	RetentionRelativeChangePct *float64 `json:"retention_relative_change_pct"`
}

// KPIDelta compares one named ratio metric across cohorts. Delta fields are
// nil whenever either side's ratio is undefined, or, for the relative
// change, when the old value is 0.
type KPIDelta struct {
	Name              string      `json:"name"`
	Old               RatioResult `json:"old"`
	New               RatioResult `json:"new"`
	DeltaPP           *float64    `json:"delta_pp"`
	RelativeChangePct *float64    `json:"relative_change_pct"`
}

// Comparison is the full OLD-vs-NEW payload handed to presentation and to
// the external insight collaborator.
type Comparison struct {
	Steps      []string      `json:"steps"`
	Old        CohortSummary `json:"old"`
	New        CohortSummary `json:"new"`
	StepDeltas []StepDelta   `json:"step_deltas"`
	KPIDeltas  []KPIDelta    `json:"kpi_deltas"`
}

// Compare runs aggregation, funnel and ratio evaluation once per cohort
// against the same source table and assembles the diff. Both specs are
// validated up front; everything past that point is total.
func Compare(records []Record, oldSpec, newSpec FilterSpec, steps []string, kpis []RatioSpec) (*Comparison, error) {
	if err := oldSpec.Validate(); err != nil {
		return nil, err
	}
	if err := newSpec.Validate(); err != nil {
		return nil, err
	}

	oldSummary := summarize("old", records, oldSpec, steps, kpis)
	newSummary := summarize("new", records, newSpec, steps, kpis)

	cmp := &Comparison{
		Steps:      steps,
		Old:        oldSummary,
		New:        newSummary,
		StepDeltas: stepDeltas(oldSummary.Funnel, newSummary.Funnel),
		KPIDeltas:  kpiDeltas(oldSummary.KPIs, newSummary.KPIs),
	}
	return cmp, nil
}

func summarize(label string, records []Record, spec FilterSpec, steps []string, kpis []RatioSpec) CohortSummary {
	filtered := Apply(records, spec)
	rows := Aggregate(filtered)
	return CohortSummary{
		Label:       label,
		Filter:      spec,
		TotalEvents: TotalEvents(rows),
		Rows:        rows,
		Funnel:      Funnel(rows, steps),
		KPIs:        Ratios(rows, kpis),
	}
}

func stepDeltas(oldSteps, newSteps []FunnelStep) []StepDelta {
	out := make([]StepDelta, len(oldSteps))
	for i := range oldSteps {
		oldStep, newStep := oldSteps[i], newSteps[i]
		delta := StepDelta{
			StepIndex:       i,
			EventAction:     oldStep.EventAction,
			OldCount:        oldStep.Count,
			NewCount:        newStep.Count,
			CountDelta:      newStep.Count - oldStep.Count,
			OldRetentionPct: oldStep.RetentionPct,
			NewRetentionPct: newStep.RetentionPct,
		}
		if oldStep.Count > 0 {
			delta.CountRelativeChangePct = ptr(float64(newStep.Count-oldStep.Count) / float64(oldStep.Count) * 100)
		}
		if oldStep.RetentionPct != nil && newStep.RetentionPct != nil {
			delta.RetentionDeltaPP = ptr(*newStep.RetentionPct - *oldStep.RetentionPct)
			if *oldStep.RetentionPct != 0 {
				delta.RetentionRelativeChangePct = ptr((*newStep.RetentionPct - *oldStep.RetentionPct) / *oldStep.RetentionPct * 100)
			}
		}
		out[i] = delta
	}
	return out
}

func kpiDeltas(oldKPIs, newKPIs []RatioResult) []KPIDelta {
	out := make([]KPIDelta, len(oldKPIs))
	for i := range oldKPIs {
		oldKPI, newKPI := oldKPIs[i], newKPIs[i]
		delta := KPIDelta{
			Name: oldKPI.Name,
			Old:  oldKPI,
			New:  newKPI,
		}
		if oldKPI.RatioPct != nil && newKPI.RatioPct != nil {
			delta.DeltaPP = ptr(*newKPI.RatioPct - *oldKPI.RatioPct)
			if *oldKPI.RatioPct != 0 {
				delta.RelativeChangePct = ptr((*newKPI.RatioPct - *oldKPI.RatioPct) / *oldKPI.RatioPct * 100)
			}
		}
		out[i] = delta
	}
	return out
}
