package engine

// Funnel evaluates the caller-supplied step sequence against an aggregate
// table. Step order is a domain concept (the user journey), so it is taken
// from the caller as-is and never re-derived from counts. The result always
// has exactly one entry per requested step: a step absent from the data
// yields count 0.
//
// Retention is measured against step 0 and is nil when step 0 has no
// events. Drop-off is measured against the previous step and is nil when
// the previous step has no events. A step can grow relative to the previous
// one; that surfaces as a negative drop-off and is reported untouched.
func Funnel(rows []AggregateRow, steps []string) []FunnelStep {
	out := make([]FunnelStep, len(steps))

	var base int64
	for i, action := range steps {
		count := CountFor(rows, action)
		step := FunnelStep{
			StepIndex:   i,
			EventAction: action,
			Count:       count,
		}

		if i == 0 {
			base = count
			if base > 0 {
				step.RetentionPct = ptr(100)
			}
			out[i] = step
			continue
		}

		if base > 0 {
			step.RetentionPct = ptr(float64(count) / float64(base) * 100)
		}
		prev := out[i-1].Count
		if prev > 0 {
			step.DropoffPct = ptr(float64(prev-count) / float64(prev) * 100)
		}
		out[i] = step
	}
	return out
}
