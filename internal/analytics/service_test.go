package analytics

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/funnelboard/funnelboard-backend/internal/dataset"
	"github.com/funnelboard/funnelboard-backend/internal/engine"
	"github.com/funnelboard/funnelboard-backend/pkg/cache"
	"github.com/funnelboard/funnelboard-backend/pkg/config"
	pkgerrors "github.com/funnelboard/funnelboard-backend/pkg/errors"
	"github.com/funnelboard/funnelboard-backend/pkg/logger"
	"github.com/funnelboard/funnelboard-backend/pkg/metrics"
)

type fixedProvider struct {
	table   *dataset.Table
	reloads int
}

func (p *fixedProvider) Current() (*dataset.Table, error) {
	if p.table == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "event table has not been loaded")
	}
	return p.table, nil
}

func (p *fixedProvider) Reload(context.Context) (*dataset.Table, error) {
	p.reloads++
	return p.table, nil
}

func defaultAnalyticsConfig() config.AnalyticsConfig {
	return config.AnalyticsConfig{
		FunnelSteps:     []string{"page_view", "form_start", "form_qualify", "form_success"},
		EntryAction:     "page_view",
		StartAction:     "form_start",
		QualifierAction: "form_qualify",
		SuccessAction:   "form_success",
		MaxEventRows:    36,
	}
}

func day(d int) time.Time {
	return time.Date(2025, 3, d, 0, 0, 0, 0, time.UTC)
}

func row(action string, d int, campaign string, count int64) engine.Record {
	return engine.Record{
		EventAction: action,
		Date:        day(d),
		Campaign:    campaign,
		Channel:     "organic",
		LandingURL:  "/landing",
		Count:       count,
	}
}

func marchFilter() engine.FilterSpec {
	return engine.FilterSpec{DateRange: engine.DateRange{Start: day(1), End: day(31)}}
}

func newTestService(t *testing.T, records []engine.Record, cfg config.AnalyticsConfig) (Service, *fixedProvider) {
	t.Helper()
	provider := &fixedProvider{table: dataset.NewTable(records)}
	svc, err := NewService(
		provider,
		cache.NewMemory(time.Minute),
		metrics.NewQueryMetrics(nil),
		logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		cfg,
	)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc, provider
}

func TestOverviewAggregatesAndCountsLeads(t *testing.T) {
	svc, _ := newTestService(t, []engine.Record{
		row("page_view", 1, "spring", 60),
		row("page_view", 2, "spring", 40),
		row("form_start", 2, "spring", 30),
		row("form_success", 3, "spring", 12),
	}, defaultAnalyticsConfig())

	out, err := svc.Overview(context.Background(), OverviewRequest{Filter: marchFilter(), Cascade: true})
	if err != nil {
		t.Fatalf("Overview: %v", err)
	}
	if out.TotalEvents != 142 {
		t.Fatalf("expected 142 total events, got %d", out.TotalEvents)
	}
	if out.Leads != 12 {
		t.Fatalf("expected 12 leads, got %d", out.Leads)
	}
	if out.Rows[0].EventAction != "page_view" || out.Rows[0].TotalCount != 100 {
		t.Fatalf("unexpected top row: %+v", out.Rows[0])
	}
	if len(out.CascadeRows) != len(out.Rows) {
		t.Fatalf("cascade rows should mirror rows, got %d vs %d", len(out.CascadeRows), len(out.Rows))
	}
	if out.Truncated {
		t.Fatal("small result must not be truncated")
	}
}

func TestOverviewCapsRows(t *testing.T) {
	cfg := defaultAnalyticsConfig()
	cfg.MaxEventRows = 2
	svc, _ := newTestService(t, []engine.Record{
		row("a", 1, "c", 4),
		row("b", 1, "c", 3),
		row("c", 1, "c", 2),
	}, cfg)

	out, err := svc.Overview(context.Background(), OverviewRequest{Filter: marchFilter()})
	if err != nil {
		t.Fatalf("Overview: %v", err)
	}
	if len(out.Rows) != 2 || !out.Truncated {
		t.Fatalf("expected 2 truncated rows, got %d truncated=%v", len(out.Rows), out.Truncated)
	}
	if out.TotalEvents != 9 {
		t.Fatal("totals must be computed before truncation")
	}
}

func TestOverviewRequestLimitOnlyTightensTheCap(t *testing.T) {
	cfg := defaultAnalyticsConfig()
	cfg.MaxEventRows = 2
	svc, _ := newTestService(t, []engine.Record{
		row("a", 1, "c", 4),
		row("b", 1, "c", 3),
		row("c", 1, "c", 2),
	}, cfg)

	out, err := svc.Overview(context.Background(), OverviewRequest{Filter: marchFilter(), Limit: 1})
	if err != nil {
		t.Fatalf("Overview: %v", err)
	}
	if len(out.Rows) != 1 || !out.Truncated {
		t.Fatalf("expected 1 truncated row, got %d truncated=%v", len(out.Rows), out.Truncated)
	}

	out, err = svc.Overview(context.Background(), OverviewRequest{Filter: marchFilter(), Limit: 10})
	if err != nil {
		t.Fatalf("Overview: %v", err)
	}
	if len(out.Rows) != 2 {
		t.Fatalf("a request limit above the configured cap must not raise it, got %d rows", len(out.Rows))
	}
}

func TestOverviewRejectsUnknownGroupKey(t *testing.T) {
	svc, _ := newTestService(t, nil, defaultAnalyticsConfig())
	_, err := svc.Overview(context.Background(), OverviewRequest{Filter: marchFilter(), GroupBy: "device"})
	if pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestOverviewRejectsInvertedDateRange(t *testing.T) {
	svc, _ := newTestService(t, nil, defaultAnalyticsConfig())
	_, err := svc.Overview(context.Background(), OverviewRequest{
		Filter: engine.FilterSpec{DateRange: engine.DateRange{Start: day(9), End: day(1)}},
	})
	if pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestFunnelUsesConfiguredDefaultSteps(t *testing.T) {
	svc, _ := newTestService(t, []engine.Record{
		row("page_view", 1, "c", 100),
		row("form_start", 1, "c", 60),
		row("form_qualify", 1, "c", 30),
	}, defaultAnalyticsConfig())

	out, err := svc.Funnel(context.Background(), FunnelRequest{Filter: marchFilter()})
	if err != nil {
		t.Fatalf("Funnel: %v", err)
	}
	if len(out.Steps) != 4 {
		t.Fatalf("expected configured 4 steps, got %d", len(out.Steps))
	}
	if out.Steps[3].EventAction != "form_success" || out.Steps[3].Count != 0 {
		t.Fatalf("absent step should zero-fill: %+v", out.Steps[3])
	}
}

func TestFunnelRejectsDuplicateSteps(t *testing.T) {
	svc, _ := newTestService(t, nil, defaultAnalyticsConfig())
	_, err := svc.Funnel(context.Background(), FunnelRequest{
		Filter: marchFilter(),
		Steps:  []string{"page_view", "page_view"},
	})
	if pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRatiosDefaultToKPISpecs(t *testing.T) {
	svc, _ := newTestService(t, []engine.Record{
		row("page_view", 1, "c", 200),
		row("form_start", 1, "c", 80),
		row("form_qualify", 1, "c", 40),
		row("form_success", 1, "c", 20),
	}, defaultAnalyticsConfig())

	out, err := svc.Ratios(context.Background(), RatiosRequest{Filter: marchFilter()})
	if err != nil {
		t.Fatalf("Ratios: %v", err)
	}
	byName := map[string]*float64{}
	for _, r := range out.Ratios {
		byName[r.Name] = r.RatioPct
	}
	for name, want := range map[string]float64{
		"start_rate":        40,
		"end_rate":          25,
		"registration_rate": 10,
		"qualified_rate":    50,
	} {
		got := byName[name]
		if got == nil || *got != want {
			t.Fatalf("%s: expected %v, got %v", name, want, got)
		}
	}
}

func TestComparisonDefaultsStepsAndCarriesVersion(t *testing.T) {
	svc, provider := newTestService(t, []engine.Record{
		row("page_view", 1, "old_camp", 100),
		row("form_start", 1, "old_camp", 50),
		row("page_view", 2, "new_camp", 120),
		row("form_start", 2, "new_camp", 72),
	}, defaultAnalyticsConfig())

	old := marchFilter()
	old.Campaigns = []string{"old_camp"}
	current := marchFilter()
	current.Campaigns = []string{"new_camp"}

	out, err := svc.Comparison(context.Background(), ComparisonRequest{OldFilter: old, NewFilter: current})
	if err != nil {
		t.Fatalf("Comparison: %v", err)
	}
	if out.TableVersion != provider.table.Version() {
		t.Fatal("comparison must carry the snapshot version")
	}
	if out.StepDeltas[0].CountDelta != 20 {
		t.Fatalf("expected page_view count delta 20, got %d", out.StepDeltas[0].CountDelta)
	}
}

func TestResultsAreMemoizedPerTableVersion(t *testing.T) {
	records := []engine.Record{row("page_view", 1, "c", 100)}
	provider := &fixedProvider{table: dataset.NewTable(records)}
	mem := cache.NewMemory(time.Minute)
	svc, err := NewService(provider, mem, metrics.NewQueryMetrics(nil),
		logger.New(logger.Options{ServiceName: "test", Output: io.Discard}), defaultAnalyticsConfig())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	req := OverviewRequest{Filter: marchFilter()}
	first, err := svc.Overview(context.Background(), req)
	if err != nil {
		t.Fatalf("Overview: %v", err)
	}
	second, err := svc.Overview(context.Background(), req)
	if err != nil {
		t.Fatalf("Overview: %v", err)
	}
	if first.TotalEvents != second.TotalEvents || first.TableVersion != second.TableVersion {
		t.Fatal("memoized result must match the computed one")
	}

	// A new snapshot changes the key, so stale entries are never served.
	provider.table = dataset.NewTable([]engine.Record{row("page_view", 1, "c", 999)})
	third, err := svc.Overview(context.Background(), req)
	if err != nil {
		t.Fatalf("Overview: %v", err)
	}
	if third.TotalEvents != 999 {
		t.Fatalf("expected fresh totals after snapshot swap, got %d", third.TotalEvents)
	}
}

func TestQueryLogsCarryKindAndTableVersion(t *testing.T) {
	var buf bytes.Buffer
	provider := &fixedProvider{table: dataset.NewTable([]engine.Record{row("page_view", 1, "c", 10)})}
	svc, err := NewService(
		provider,
		cache.NewMemory(time.Minute),
		metrics.NewQueryMetrics(nil),
		logger.New(logger.Options{ServiceName: "test", Output: &buf, Level: zerolog.DebugLevel}),
		defaultAnalyticsConfig(),
	)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	out, err := svc.Overview(context.Background(), OverviewRequest{Filter: marchFilter()})
	if err != nil {
		t.Fatalf("Overview: %v", err)
	}
	logged := buf.String()
	if !strings.Contains(logged, `"query_kind":"overview"`) {
		t.Fatalf("log entries missing query kind:\n%s", logged)
	}
	if !strings.Contains(logged, out.TableVersion) {
		t.Fatalf("log entries missing table version:\n%s", logged)
	}
}

func TestCacheKeysDeriveFromFilterFingerprint(t *testing.T) {
	base := marchFilter()
	ab, ba := base, base
	ab.Campaigns = []string{"spring", "summer"}
	ba.Campaigns = []string{"summer", "spring"}

	if overviewKey("v1", OverviewRequest{Filter: ab}) != overviewKey("v1", OverviewRequest{Filter: ba}) {
		t.Fatal("reordering a value set must not change the key")
	}
	if overviewKey("v1", OverviewRequest{Filter: ab}) == overviewKey("v2", OverviewRequest{Filter: ab}) {
		t.Fatal("a new table version must change the key")
	}
	if overviewKey("v1", OverviewRequest{Filter: ab}) == overviewKey("v1", OverviewRequest{Filter: ab, Cascade: true}) {
		t.Fatal("request flags must be part of the key")
	}
	if funnelKey("v1", FunnelRequest{Filter: ab, Steps: []string{"a", "b"}}) ==
		funnelKey("v1", FunnelRequest{Filter: ab, Steps: []string{"b", "a"}}) {
		t.Fatal("funnel step order must be part of the key")
	}
}

func TestReloadReportsRowsAndInvalidatesCache(t *testing.T) {
	svc, provider := newTestService(t, []engine.Record{row("page_view", 1, "c", 5)}, defaultAnalyticsConfig())

	out, err := svc.Reload(context.Background())
	if err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if out.Rows != 1 || provider.reloads != 1 {
		t.Fatalf("unexpected reload result %+v (reloads=%d)", out, provider.reloads)
	}
}

func TestDimensionsListValuesWithCounts(t *testing.T) {
	svc, _ := newTestService(t, []engine.Record{
		row("page_view", 1, "spring", 60),
		row("page_view", 2, "spring", 40),
		row("page_view", 2, "summer", 25),
	}, defaultAnalyticsConfig())

	out, err := svc.Dimensions(context.Background(), marchFilter())
	if err != nil {
		t.Fatalf("Dimensions: %v", err)
	}
	if len(out.Campaigns) != 2 {
		t.Fatalf("expected 2 campaigns, got %+v", out.Campaigns)
	}
	if out.Campaigns[0].Value != "spring" || out.Campaigns[0].TotalCount != 100 {
		t.Fatalf("unexpected campaign entry: %+v", out.Campaigns[0])
	}
	if len(out.Channels) != 1 || out.Channels[0].TotalCount != 125 {
		t.Fatalf("unexpected channels: %+v", out.Channels)
	}
}
