package analytics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for the analytics pipeline.
type Metrics struct {
	cacheHits        prometheus.Counter
	cacheMisses      prometheus.Counter
	cacheCorruptions prometheus.Counter

	warehouseQueryDuration prometheus.Histogram
	scopeNarrowedTotal     prometheus.Counter

	queriesTotal *prometheus.CounterVec
}

// NewMetrics creates the analytics metric collectors.
func NewMetrics() *Metrics {
	return &Metrics{
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "analytics_cache_hits_total",
			Help: "Number of analytics requests served from the result cache",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "analytics_cache_misses_total",
			Help: "Number of analytics requests that missed the result cache",
		}),
		cacheCorruptions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "analytics_cache_corruptions_total",
			Help: "Number of cached payloads that failed to decode and were recomputed",
		}),
		warehouseQueryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "analytics_warehouse_query_duration_seconds",
			Help:    "Duration of warehouse queries in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		scopeNarrowedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "analytics_scope_narrowed_total",
			Help: "Number of requested app IDs dropped by scope narrowing",
		}),
		queriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "analytics_queries_total",
			Help: "Analytics queries by outcome",
		}, []string{"outcome"}),
	}
}

// Register registers all collectors with the given registry.
func (m *Metrics) Register(registry *prometheus.Registry) error {
	collectors := []prometheus.Collector{
		m.cacheHits,
		m.cacheMisses,
		m.cacheCorruptions,
		m.warehouseQueryDuration,
		m.scopeNarrowedTotal,
		m.queriesTotal,
	}
	for _, c := range collectors {
		if err := registry.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// ObserveCacheHit records a cache hit.
func (m *Metrics) ObserveCacheHit() {
	if m == nil {
		return
	}
	m.cacheHits.Inc()
}

// ObserveCacheMiss records a cache miss.
func (m *Metrics) ObserveCacheMiss() {
	if m == nil {
		return
	}
	m.cacheMisses.Inc()
}

// ObserveCacheCorruption records a cached payload that failed to decode.
func (m *Metrics) ObserveCacheCorruption() {
	if m == nil {
		return
	}
	m.cacheCorruptions.Inc()
}

// ObserveWarehouseQuery records one warehouse query duration.
func (m *Metrics) ObserveWarehouseQuery(seconds float64) {
	if m == nil {
		return
	}
	m.warehouseQueryDuration.Observe(seconds)
}

// ObserveScopeNarrowed records dropped app IDs from one request.
func (m *Metrics) ObserveScopeNarrowed(droppedCount int) {
	if m == nil || droppedCount == 0 {
		return
	}
	m.scopeNarrowedTotal.Add(float64(droppedCount))
}

// ObserveQuery records one completed query by outcome.
func (m *Metrics) ObserveQuery(outcome string) {
	if m == nil {
		return
	}
	m.queriesTotal.WithLabelValues(outcome).Inc()
}
