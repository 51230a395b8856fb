package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// QueryMetrics records analytics query timings, cache effectiveness and
// the state of the loaded event table.
type QueryMetrics struct {
	duration    *prometheus.HistogramVec
	cacheHits   *prometheus.CounterVec
	cacheMisses *prometheus.CounterVec
	datasetRows prometheus.Gauge
	reloads     prometheus.Counter
}

// NewQueryMetrics registers the analytics metrics on the provided
// registerer. A nil registerer yields a no-op recorder, which keeps tests
// and workers free of registration conflicts.
func NewQueryMetrics(reg prometheus.Registerer) *QueryMetrics {
	if reg == nil {
		return &QueryMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "analytics_query_duration_seconds",
		Help:    "Duration of analytics engine queries in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"query"})
	cacheHits := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "analytics_cache_hits_total",
		Help: "Analytics queries answered from the memoization cache.",
	}, []string{"query"})
	cacheMisses := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "analytics_cache_misses_total",
		Help: "Analytics queries computed from the event table.",
	}, []string{"query"})
	datasetRows := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "analytics_dataset_rows",
		Help: "Rows in the currently loaded event table.",
	})
	reloads := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "analytics_dataset_reloads_total",
		Help: "Completed event table reloads.",
	})
	reg.MustRegister(duration, cacheHits, cacheMisses, datasetRows, reloads)
	return &QueryMetrics{
		duration:    duration,
		cacheHits:   cacheHits,
		cacheMisses: cacheMisses,
		datasetRows: datasetRows,
		reloads:     reloads,
	}
}

func (m *QueryMetrics) ObserveDuration(query string, duration time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(query)).Observe(duration.Seconds())
}

func (m *QueryMetrics) IncCacheHit(query string) {
	if m == nil || m.cacheHits == nil {
		return
	}
	m.cacheHits.WithLabelValues(normalizeLabel(query)).Inc()
}

func (m *QueryMetrics) IncCacheMiss(query string) {
	if m == nil || m.cacheMisses == nil {
		return
	}
	m.cacheMisses.WithLabelValues(normalizeLabel(query)).Inc()
}

func (m *QueryMetrics) SetDatasetRows(rows int) {
	if m == nil || m.datasetRows == nil {
		return
	}
	m.datasetRows.Set(float64(rows))
}

func (m *QueryMetrics) IncReload() {
	if m == nil || m.reloads == nil {
		return
	}
	m.reloads.Inc()
}

func normalizeLabel(label string) string {
	label = strings.TrimSpace(strings.ToLower(label))
	if label == "" {
		return "unknown"
	}
	return strings.ReplaceAll(label, " ", "_")
}
