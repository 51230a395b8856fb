package engine

import "testing"

func TestRatioComputesPercentage(t *testing.T) {
	rows := []AggregateRow{
		{EventAction: "form_success", TotalCount: 30},
		{EventAction: "page_view", TotalCount: 120},
	}

	result := Ratio(rows, RatioSpec{Name: "registration_rate", Numerator: "form_success", Denominator: "page_view"})
	if result.NumeratorCount != 30 || result.DenominatorCount != 120 {
		t.Fatalf("unexpected counts: %+v", result)
	}
	if result.RatioPct == nil || !almostEqual(*result.RatioPct, 25) {
		t.Fatalf("expected 25%%, got %v", result.RatioPct)
	}
}

// A zero denominator leaves the ratio undefined. It must never panic,
// never coerce to 0 and never produce an infinity.
func TestRatioZeroDenominatorIsUndefined(t *testing.T) {
	rows := []AggregateRow{{EventAction: "num", TotalCount: 5}}

	result := Ratio(rows, RatioSpec{Numerator: "num", Denominator: "denom"})
	if result.RatioPct != nil {
		t.Fatalf("expected undefined ratio, got %v", *result.RatioPct)
	}
	if result.NumeratorCount != 5 || result.DenominatorCount != 0 {
		t.Fatalf("unexpected counts: %+v", result)
	}
}

func TestRatioUnmatchedNumeratorCountsAsZero(t *testing.T) {
	rows := []AggregateRow{{EventAction: "denom", TotalCount: 10}}

	result := Ratio(rows, RatioSpec{Numerator: "missing", Denominator: "denom"})
	if result.RatioPct == nil || *result.RatioPct != 0 {
		t.Fatalf("expected 0%%, got %v", result.RatioPct)
	}
}

func TestRatiosEvaluateIndependently(t *testing.T) {
	rows := []AggregateRow{
		{EventAction: "a", TotalCount: 10},
		{EventAction: "b", TotalCount: 40},
	}
	specs := []RatioSpec{
		{Numerator: "a", Denominator: "b"},
		{Numerator: "a", Denominator: "zero"},
		{Numerator: "b", Denominator: "a"},
	}

	results := Ratios(rows, specs)
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if !almostEqual(*results[0].RatioPct, 25) {
		t.Fatalf("expected 25%%, got %v", *results[0].RatioPct)
	}
	if results[1].RatioPct != nil {
		t.Fatalf("second ratio must be undefined")
	}
	if !almostEqual(*results[2].RatioPct, 400) {
		t.Fatalf("ratios above 100%% are legal, got %v", *results[2].RatioPct)
	}
}
