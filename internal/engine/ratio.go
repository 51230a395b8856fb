package engine

// Ratio evaluates one numerator/denominator pair against an aggregate
// table. Unmatched actions count as 0. A zero denominator leaves RatioPct
// nil: the metric is undefined and callers must treat it that way.
func Ratio(rows []AggregateRow, spec RatioSpec) RatioResult {
	result := RatioResult{
		Name:              spec.Name,
		NumeratorAction:   spec.Numerator,
		DenominatorAction: spec.Denominator,
		NumeratorCount:    CountFor(rows, spec.Numerator),
		DenominatorCount:  CountFor(rows, spec.Denominator),
	}
	if result.DenominatorCount > 0 {
		result.RatioPct = ptr(float64(result.NumeratorCount) / float64(result.DenominatorCount) * 100)
	}
	return result
}

// Ratios evaluates each spec independently; there is no shared state
// between pairs.
func Ratios(rows []AggregateRow, specs []RatioSpec) []RatioResult {
	out := make([]RatioResult, len(specs))
	for i, spec := range specs {
		out[i] = Ratio(rows, spec)
	}
	return out
}
