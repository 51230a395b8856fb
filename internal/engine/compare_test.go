package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func comparisonFixture() ([]Record, FilterSpec, FilterSpec) {
	records := []Record{
		// old landing
		{EventAction: "page_view", Date: day("2026-03-01"), Campaign: "spring", Channel: "google", LandingURL: "/old", Count: 100},
		{EventAction: "form_start", Date: day("2026-03-01"), Campaign: "spring", Channel: "google", LandingURL: "/old", Count: 50},
		// new landing
		{EventAction: "page_view", Date: day("2026-03-02"), Campaign: "spring", Channel: "google", LandingURL: "/new", Count: 120},
		{EventAction: "form_start", Date: day("2026-03-02"), Campaign: "spring", Channel: "google", LandingURL: "/new", Count: 72},
	}
	window := DateRange{Start: day("2026-03-01"), End: day("2026-03-31")}
	oldSpec := FilterSpec{DateRange: window, LandingURLs: []string{"/old"}}
	newSpec := FilterSpec{DateRange: window, LandingURLs: []string{"/new"}}
	return records, oldSpec, newSpec
}

// Old funnel {100,50} vs new funnel {120,72}: step-1 retention 50% vs 60%,
// delta +10pp, relative change +20%.
func TestCompareRetentionScenario(t *testing.T) {
	records, oldSpec, newSpec := comparisonFixture()

	cmp, err := Compare(records, oldSpec, newSpec, []string{"page_view", "form_start"}, nil)
	require.NoError(t, err)
	require.Len(t, cmp.StepDeltas, 2)

	step := cmp.StepDeltas[1]
	assert.InDelta(t, 50, *step.OldRetentionPct, 1e-9)
	assert.InDelta(t, 60, *step.NewRetentionPct, 1e-9)
	assert.InDelta(t, 10, *step.RetentionDeltaPP, 1e-9)
	assert.InDelta(t, 20, *step.RetentionRelativeChangePct, 1e-9)
	assert.Equal(t, int64(22), step.CountDelta)
	assert.InDelta(t, 44, *step.CountRelativeChangePct, 1e-9)
}

func TestCompareKPIDeltas(t *testing.T) {
	records, oldSpec, newSpec := comparisonFixture()
	kpis := []RatioSpec{{Name: "start_rate", Numerator: "form_start", Denominator: "page_view"}}

	cmp, err := Compare(records, oldSpec, newSpec, []string{"page_view", "form_start"}, kpis)
	require.NoError(t, err)
	require.Len(t, cmp.KPIDeltas, 1)

	kpi := cmp.KPIDeltas[0]
	assert.Equal(t, "start_rate", kpi.Name)
	assert.InDelta(t, 50, *kpi.Old.RatioPct, 1e-9)
	assert.InDelta(t, 60, *kpi.New.RatioPct, 1e-9)
	assert.InDelta(t, 10, *kpi.DeltaPP, 1e-9)
	assert.InDelta(t, 20, *kpi.RelativeChangePct, 1e-9)
}

// Swapping OLD and NEW negates every delta.
func TestCompareIsSymmetric(t *testing.T) {
	records, oldSpec, newSpec := comparisonFixture()
	steps := []string{"page_view", "form_start"}
	kpis := []RatioSpec{{Name: "start_rate", Numerator: "form_start", Denominator: "page_view"}}

	forward, err := Compare(records, oldSpec, newSpec, steps, kpis)
	require.NoError(t, err)
	backward, err := Compare(records, newSpec, oldSpec, steps, kpis)
	require.NoError(t, err)

	for i := range forward.StepDeltas {
		assert.Equal(t, forward.StepDeltas[i].CountDelta, -backward.StepDeltas[i].CountDelta)
		if forward.StepDeltas[i].RetentionDeltaPP != nil {
			assert.InDelta(t, *forward.StepDeltas[i].RetentionDeltaPP, -*backward.StepDeltas[i].RetentionDeltaPP, 1e-9)
		}
	}
	for i := range forward.KPIDeltas {
		if forward.KPIDeltas[i].DeltaPP != nil {
			assert.InDelta(t, *forward.KPIDeltas[i].DeltaPP, -*backward.KPIDeltas[i].DeltaPP, 1e-9)
		}
	}
}

// A label absent from one cohort still appears in both funnels with count
// 0, so step i always lines up across cohorts.
func TestCompareZeroFillsAbsentLabels(t *testing.T) {
	records, oldSpec, newSpec := comparisonFixture()
	records = append(records, Record{
		EventAction: "form_success", Date: day("2026-03-02"), Campaign: "spring", Channel: "google", LandingURL: "/new", Count: 9,
	})

	cmp, err := Compare(records, oldSpec, newSpec, []string{"page_view", "form_start", "form_success"}, nil)
	require.NoError(t, err)
	require.Len(t, cmp.StepDeltas, 3)

	last := cmp.StepDeltas[2]
	assert.Equal(t, "form_success", last.EventAction)
	assert.Equal(t, int64(0), last.OldCount)
	assert.Equal(t, int64(9), last.NewCount)
	assert.Nil(t, last.CountRelativeChangePct)
}

func TestCompareEmbedsFilterSpecs(t *testing.T) {
	records, oldSpec, newSpec := comparisonFixture()

	cmp, err := Compare(records, oldSpec, newSpec, []string{"page_view"}, nil)
	require.NoError(t, err)
	assert.Equal(t, oldSpec.LandingURLs, cmp.Old.Filter.LandingURLs)
	assert.Equal(t, newSpec.LandingURLs, cmp.New.Filter.LandingURLs)
	assert.Equal(t, "old", cmp.Old.Label)
	assert.Equal(t, "new", cmp.New.Label)
}

func TestCompareRejectsInvalidSpec(t *testing.T) {
	records, oldSpec, newSpec := comparisonFixture()
	oldSpec.DateRange = DateRange{Start: day("2026-04-01"), End: day("2026-03-01")}

	_, err := Compare(records, oldSpec, newSpec, nil, nil)
	require.ErrorIs(t, err, ErrInvalidDateRange)
}

func TestCompareEmptyCohortsProduceValidPayload(t *testing.T) {
	records, oldSpec, newSpec := comparisonFixture()
	oldSpec.Campaigns = []string{"nothing-matches"}
	newSpec.Campaigns = []string{"nothing-matches"}

	cmp, err := Compare(records, oldSpec, newSpec, []string{"page_view"}, []RatioSpec{{Numerator: "a", Denominator: "b"}})
	require.NoError(t, err)
	assert.Equal(t, int64(0), cmp.Old.TotalEvents)
	assert.Len(t, cmp.StepDeltas, 1)
	assert.Nil(t, cmp.StepDeltas[0].RetentionDeltaPP)
	assert.Nil(t, cmp.KPIDeltas[0].DeltaPP)
}
