// Package analytics is the read-side service over the loaded event table.
// It validates filter specs, delegates the math to the engine package,
// memoizes results against the table version, and reports query metrics.
package analytics

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/funnelboard/funnelboard-backend/internal/dataset"
	"github.com/funnelboard/funnelboard-backend/internal/engine"
	"github.com/funnelboard/funnelboard-backend/pkg/cache"
	"github.com/funnelboard/funnelboard-backend/pkg/config"
	pkgerrors "github.com/funnelboard/funnelboard-backend/pkg/errors"
	"github.com/funnelboard/funnelboard-backend/pkg/logger"
	"github.com/funnelboard/funnelboard-backend/pkg/metrics"
)

type tableProvider interface {
	Current() (*dataset.Table, error)
	Reload(ctx context.Context) (*dataset.Table, error)
}

// Service exposes the filtering, aggregation, funnel, ratio and cohort
// comparison operations.
type Service interface {
	Overview(ctx context.Context, req OverviewRequest) (*OverviewResult, error)
	Export(ctx context.Context, filter engine.FilterSpec) (*ExportResult, error)
	Dimensions(ctx context.Context, filter engine.FilterSpec) (*DimensionsResult, error)
	Funnel(ctx context.Context, req FunnelRequest) (*FunnelResult, error)
	Ratios(ctx context.Context, req RatiosRequest) (*RatiosResult, error)
	Comparison(ctx context.Context, req ComparisonRequest) (*ComparisonResult, error)
	Reload(ctx context.Context) (*ReloadResult, error)
	DefaultSteps() []string
	KPISpecs() []engine.RatioSpec
}

type service struct {
	provider tableProvider
	cache    cache.Cache
	metrics  *metrics.QueryMetrics
	logg     *logger.Logger
	cfg      config.AnalyticsConfig
}

// NewService wires the service. Cache may be a cache.Noop and metrics may be
// built with a nil registry; neither is optional as a parameter.
func NewService(provider tableProvider, store cache.Cache, qm *metrics.QueryMetrics, logg *logger.Logger, cfg config.AnalyticsConfig) (Service, error) {
	if provider == nil {
		return nil, fmt.Errorf("table provider required")
	}
	if store == nil {
		return nil, fmt.Errorf("cache required")
	}
	if qm == nil {
		return nil, fmt.Errorf("query metrics required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{provider: provider, cache: store, metrics: qm, logg: logg, cfg: cfg}, nil
}

// KPISpecs derives the standing KPI ratios from the configured anchor
// actions. The names are stable and part of the API contract.
func (s *service) KPISpecs() []engine.RatioSpec {
	return []engine.RatioSpec{
		{Name: "start_rate", Numerator: s.cfg.StartAction, Denominator: s.cfg.EntryAction},
		{Name: "end_rate", Numerator: s.cfg.SuccessAction, Denominator: s.cfg.StartAction},
		{Name: "registration_rate", Numerator: s.cfg.SuccessAction, Denominator: s.cfg.EntryAction},
		{Name: "qualified_rate", Numerator: s.cfg.SuccessAction, Denominator: s.cfg.QualifierAction},
	}
}

func (s *service) DefaultSteps() []string {
	return append([]string(nil), s.cfg.FunnelSteps...)
}

func (s *service) Overview(ctx context.Context, req OverviewRequest) (*OverviewResult, error) {
	table, err := s.snapshot(ctx, req.Filter)
	if err != nil {
		return nil, err
	}
	ctx = s.queryContext(ctx, "overview", table.Version())
	if req.GroupBy != "" && !req.GroupBy.Valid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown group_by %q", req.GroupBy))
	}

	out := &OverviewResult{TableVersion: table.Version()}
	key := overviewKey(table.Version(), req)
	if s.memoized(ctx, "overview", key, out) {
		return out, nil
	}
	defer s.observe("overview", time.Now())

	filtered := engine.Apply(table.Records(), req.Filter)
	rows := engine.Aggregate(filtered)

	out.TotalEvents = engine.TotalEvents(rows)
	out.Leads = engine.CountFor(rows, s.cfg.LeadsAction())
	out.Rows, out.Truncated = capRows(rows, rowLimit(s.cfg.MaxEventRows, req.Limit))
	if req.Cascade {
		out.CascadeRows = engine.Cascade(out.Rows)
	}
	if req.GroupBy != "" {
		out.Groups = engine.AggregateBy(filtered, req.GroupBy)
	}

	s.store(ctx, key, out)
	return out, nil
}

// Export is the overview without the row cap, for CSV downloads.
func (s *service) Export(ctx context.Context, filter engine.FilterSpec) (*ExportResult, error) {
	table, err := s.snapshot(ctx, filter)
	if err != nil {
		return nil, err
	}
	ctx = s.queryContext(ctx, "export", table.Version())
	defer s.observe("export", time.Now())

	rows := engine.Aggregate(engine.Apply(table.Records(), filter))
	s.logg.Debug(ctx, "export assembled")
	return &ExportResult{
		TableVersion: table.Version(),
		TotalEvents:  engine.TotalEvents(rows),
		Rows:         rows,
	}, nil
}

func (s *service) Dimensions(ctx context.Context, filter engine.FilterSpec) (*DimensionsResult, error) {
	table, err := s.snapshot(ctx, filter)
	if err != nil {
		return nil, err
	}

	ctx = s.queryContext(ctx, "dimensions", table.Version())

	out := &DimensionsResult{TableVersion: table.Version()}
	key := dimensionsKey(table.Version(), filter)
	if s.memoized(ctx, "dimensions", key, out) {
		return out, nil
	}
	defer s.observe("dimensions", time.Now())

	filtered := engine.Apply(table.Records(), filter)
	campaigns := map[string]int64{}
	channels := map[string]int64{}
	urls := map[string]int64{}
	for _, rec := range filtered {
		campaigns[rec.Campaign] += rec.Count
		channels[rec.Channel] += rec.Count
		urls[rec.LandingURL] += rec.Count
	}
	out.Campaigns = dimensionValues(campaigns)
	out.Channels = dimensionValues(channels)
	out.LandingURLs = dimensionValues(urls)

	s.store(ctx, key, out)
	return out, nil
}

func (s *service) Funnel(ctx context.Context, req FunnelRequest) (*FunnelResult, error) {
	table, err := s.snapshot(ctx, req.Filter)
	if err != nil {
		return nil, err
	}
	if len(req.Steps) == 0 {
		req.Steps = s.DefaultSteps()
	}
	if err := validateSteps(req.Steps); err != nil {
		return nil, err
	}

	ctx = s.queryContext(ctx, "funnel", table.Version())

	out := &FunnelResult{TableVersion: table.Version()}
	key := funnelKey(table.Version(), req)
	if s.memoized(ctx, "funnel", key, out) {
		return out, nil
	}
	defer s.observe("funnel", time.Now())

	rows := engine.Aggregate(engine.Apply(table.Records(), req.Filter))
	out.TotalEvents = engine.TotalEvents(rows)
	out.Steps = engine.Funnel(rows, req.Steps)

	s.store(ctx, key, out)
	return out, nil
}

func (s *service) Ratios(ctx context.Context, req RatiosRequest) (*RatiosResult, error) {
	table, err := s.snapshot(ctx, req.Filter)
	if err != nil {
		return nil, err
	}
	if len(req.Specs) == 0 {
		req.Specs = s.KPISpecs()
	}

	ctx = s.queryContext(ctx, "ratios", table.Version())

	out := &RatiosResult{TableVersion: table.Version()}
	key := ratiosKey(table.Version(), req)
	if s.memoized(ctx, "ratios", key, out) {
		return out, nil
	}
	defer s.observe("ratios", time.Now())

	rows := engine.Aggregate(engine.Apply(table.Records(), req.Filter))
	out.Ratios = engine.Ratios(rows, req.Specs)

	s.store(ctx, key, out)
	return out, nil
}

func (s *service) Comparison(ctx context.Context, req ComparisonRequest) (*ComparisonResult, error) {
	if err := req.OldFilter.Validate(); err != nil {
		return nil, filterError(err)
	}
	if err := req.NewFilter.Validate(); err != nil {
		return nil, filterError(err)
	}
	if len(req.Steps) == 0 {
		req.Steps = s.DefaultSteps()
	}
	if err := validateSteps(req.Steps); err != nil {
		return nil, err
	}
	table, err := s.provider.Current()
	if err != nil {
		return nil, err
	}

	ctx = s.queryContext(ctx, "comparison", table.Version())

	out := &ComparisonResult{TableVersion: table.Version()}
	key := comparisonKey(table.Version(), req)
	if s.memoized(ctx, "comparison", key, out) {
		return out, nil
	}
	defer s.observe("comparison", time.Now())

	cmp, err := engine.Compare(table.Records(), req.OldFilter, req.NewFilter, req.Steps, s.KPISpecs())
	if err != nil {
		return nil, filterError(err)
	}
	out.Comparison = cmp

	s.store(ctx, key, out)
	return out, nil
}

func (s *service) Reload(ctx context.Context) (*ReloadResult, error) {
	table, err := s.provider.Reload(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.cache.InvalidateAll(ctx); err != nil {
		s.logg.Error(ctx, "invalidating query cache after reload", err)
	}
	s.metrics.SetDatasetRows(table.Len())
	s.metrics.IncReload()
	return &ReloadResult{TableVersion: table.Version(), Rows: table.Len()}, nil
}

// queryContext tags log entries for the rest of the operation with the
// query kind and the table snapshot it ran against.
func (s *service) queryContext(ctx context.Context, kind, version string) context.Context {
	ctx = s.logg.WithQueryKind(ctx, kind)
	return s.logg.WithTableVersion(ctx, version)
}

// snapshot validates the filter before touching the table so a bad request
// never surfaces as a dependency error.
func (s *service) snapshot(_ context.Context, filter engine.FilterSpec) (*dataset.Table, error) {
	if err := filter.Validate(); err != nil {
		return nil, filterError(err)
	}
	return s.provider.Current()
}

func filterError(err error) error {
	if errors.Is(err, engine.ErrInvalidDateRange) {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid filter")
	}
	return err
}

func validateSteps(steps []string) error {
	seen := map[string]bool{}
	for _, step := range steps {
		if strings.TrimSpace(step) == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "funnel steps must not be blank")
		}
		if seen[step] {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("duplicate funnel step %q", step))
		}
		seen[step] = true
	}
	return nil
}

func rowLimit(configured, requested int) int {
	if requested > 0 && (configured <= 0 || requested < configured) {
		return requested
	}
	return configured
}

func capRows(rows []engine.AggregateRow, limit int) ([]engine.AggregateRow, bool) {
	if limit <= 0 || len(rows) <= limit {
		return rows, false
	}
	return rows[:limit], true
}

func dimensionValues(totals map[string]int64) []DimensionValue {
	values := make([]DimensionValue, 0, len(totals))
	for value, count := range totals {
		values = append(values, DimensionValue{Value: value, TotalCount: count})
	}
	sort.Slice(values, func(i, j int) bool { return values[i].Value < values[j].Value })
	return values
}

// cacheKey ties a memoized result to the query kind, the exact table
// snapshot and the request. Filters enter through their fingerprint, so two
// requests selecting the same subset share an entry no matter how their
// value sets were ordered.
func cacheKey(kind, version string, parts ...string) string {
	h := sha256.New()
	h.Write([]byte(kind))
	h.Write([]byte{0x1f})
	h.Write([]byte(version))
	for _, part := range parts {
		h.Write([]byte{0x1f})
		h.Write([]byte(part))
	}
	return kind + ":" + hex.EncodeToString(h.Sum(nil))
}

func overviewKey(version string, req OverviewRequest) string {
	return cacheKey("overview", version, req.Filter.Fingerprint(),
		string(req.GroupBy), strconv.FormatBool(req.Cascade), strconv.Itoa(req.Limit))
}

func dimensionsKey(version string, filter engine.FilterSpec) string {
	return cacheKey("dimensions", version, filter.Fingerprint())
}

func funnelKey(version string, req FunnelRequest) string {
	return cacheKey("funnel", version, req.Filter.Fingerprint(), strings.Join(req.Steps, "\x1f"))
}

func ratiosKey(version string, req RatiosRequest) string {
	specs, _ := json.Marshal(req.Specs)
	return cacheKey("ratios", version, req.Filter.Fingerprint(), string(specs))
}

func comparisonKey(version string, req ComparisonRequest) string {
	return cacheKey("comparison", version, req.OldFilter.Fingerprint(),
		req.NewFilter.Fingerprint(), strings.Join(req.Steps, "\x1f"))
}

func (s *service) memoized(ctx context.Context, kind, key string, dst any) bool {
	raw, ok := s.cache.Get(ctx, key)
	if !ok {
		s.metrics.IncCacheMiss(kind)
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		s.metrics.IncCacheMiss(kind)
		return false
	}
	s.metrics.IncCacheHit(kind)
	s.logg.Debug(ctx, "serving memoized result")
	return true
}

func (s *service) store(ctx context.Context, key string, value any) {
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	s.cache.Set(ctx, key, raw)
	s.logg.Debug(ctx, "query computed")
}

func (s *service) observe(kind string, started time.Time) {
	s.metrics.ObserveDuration(kind, time.Since(started))
}
