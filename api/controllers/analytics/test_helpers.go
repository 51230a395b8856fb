package analytics

import (
	"context"

	"github.com/funnelboard/funnelboard-backend/internal/analytics"
	"github.com/funnelboard/funnelboard-backend/internal/engine"
)

type stubAnalyticsService struct {
	analytics.Service

	lastOverview   analytics.OverviewRequest
	lastExport     engine.FilterSpec
	lastDimensions engine.FilterSpec
	lastFunnel     analytics.FunnelRequest
	lastRatios     analytics.RatiosRequest
	lastComparison analytics.ComparisonRequest

	overview   *analytics.OverviewResult
	export     *analytics.ExportResult
	dimensions *analytics.DimensionsResult
	funnel     *analytics.FunnelResult
	ratios     *analytics.RatiosResult
	comparison *analytics.ComparisonResult
	reload     *analytics.ReloadResult
	err        error
	calls      int
}

func (s *stubAnalyticsService) Overview(_ context.Context, req analytics.OverviewRequest) (*analytics.OverviewResult, error) {
	s.calls++
	s.lastOverview = req
	if s.overview == nil {
		s.overview = &analytics.OverviewResult{}
	}
	return s.overview, s.err
}

func (s *stubAnalyticsService) Export(_ context.Context, filter engine.FilterSpec) (*analytics.ExportResult, error) {
	s.calls++
	s.lastExport = filter
	if s.export == nil {
		s.export = &analytics.ExportResult{}
	}
	return s.export, s.err
}

func (s *stubAnalyticsService) Dimensions(_ context.Context, filter engine.FilterSpec) (*analytics.DimensionsResult, error) {
	s.calls++
	s.lastDimensions = filter
	if s.dimensions == nil {
		s.dimensions = &analytics.DimensionsResult{}
	}
	return s.dimensions, s.err
}

func (s *stubAnalyticsService) Funnel(_ context.Context, req analytics.FunnelRequest) (*analytics.FunnelResult, error) {
	s.calls++
	s.lastFunnel = req
	if s.funnel == nil {
		s.funnel = &analytics.FunnelResult{}
	}
	return s.funnel, s.err
}

func (s *stubAnalyticsService) Ratios(_ context.Context, req analytics.RatiosRequest) (*analytics.RatiosResult, error) {
	s.calls++
	s.lastRatios = req
	if s.ratios == nil {
		s.ratios = &analytics.RatiosResult{}
	}
	return s.ratios, s.err
}

func (s *stubAnalyticsService) Comparison(_ context.Context, req analytics.ComparisonRequest) (*analytics.ComparisonResult, error) {
	s.calls++
	s.lastComparison = req
	if s.comparison == nil {
		s.comparison = &analytics.ComparisonResult{Comparison: &engine.Comparison{}}
	}
	return s.comparison, s.err
}

func (s *stubAnalyticsService) Reload(context.Context) (*analytics.ReloadResult, error) {
	s.calls++
	if s.reload == nil {
		s.reload = &analytics.ReloadResult{}
	}
	return s.reload, s.err
}
