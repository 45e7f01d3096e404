package service

import (
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the planning engine.
type MetricsService struct {
	registry *prometheus.Registry
	handler  http.Handler

	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	generationRuns     *prometheus.CounterVec
	generationDuration prometheus.Observer
	generatedPlannings prometheus.Counter

	optimizerIterations prometheus.Histogram
	optimizerScore      prometheus.Gauge
	ruleEvaluations     prometheus.Counter

	cacheLatency prometheus.Observer
	cacheHits    prometheus.Counter
	cacheMisses  prometheus.Counter
	cacheWrite   prometheus.Observer
}

// NewMetricsService registers the engine's Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	generationRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "planning_generation_runs_total",
		Help: "Total planning generation runs by outcome",
	}, []string{"outcome"})

	generationDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "planning_generation_duration_seconds",
		Help:    "Duration of planning generation runs",
		Buckets: prometheus.DefBuckets,
	})

	generatedPlannings := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "planning_day_plannings_written_total",
		Help: "Total day plannings created or regenerated",
	})

	optimizerIterations := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "planning_optimizer_iterations",
		Help:    "Iterations consumed per optimization run",
		Buckets: []float64{1, 2, 3, 5, 8, 10},
	})

	optimizerScore := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "planning_optimizer_last_score",
		Help: "Overall score of the most recent optimization run",
	})

	ruleEvaluations := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "planning_rule_evaluations_total",
		Help: "Total candidate schedule evaluations against the rule engine",
	})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache lookups",
		Buckets: prometheus.DefBuckets,
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, generationRuns, generationDuration,
		generatedPlannings, optimizerIterations, optimizerScore, ruleEvaluations,
		cacheLatency, cacheHits, cacheMisses, cacheWrite, goroutines)

	return &MetricsService{
		registry:            registry,
		handler:             promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:     requestDuration,
		requestTotal:        requestTotal,
		generationRuns:      generationRuns,
		generationDuration:  generationDuration,
		generatedPlannings:  generatedPlannings,
		optimizerIterations: optimizerIterations,
		optimizerScore:      optimizerScore,
		ruleEvaluations:     ruleEvaluations,
		cacheLatency:        cacheLatency,
		cacheHits:           cacheHits,
		cacheMisses:         cacheMisses,
		cacheWrite:          cacheWrite,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordGeneration records the outcome and cost of one generation run.
func (m *MetricsService) RecordGeneration(outcome string, planningsWritten int, duration time.Duration) {
	if m == nil {
		return
	}
	m.generationRuns.WithLabelValues(outcome).Inc()
	m.generationDuration.Observe(duration.Seconds())
	m.generatedPlannings.Add(float64(planningsWritten))
}

// RecordOptimization records the iterations and final score of one run.
func (m *MetricsService) RecordOptimization(iterations int, score float64) {
	if m == nil {
		return
	}
	m.optimizerIterations.Observe(float64(iterations))
	m.optimizerScore.Set(score)
}

// RecordRuleEvaluation counts one candidate evaluation against the rule engine.
func (m *MetricsService) RecordRuleEvaluation() {
	if m == nil {
		return
	}
	m.ruleEvaluations.Inc()
}

// RecordCacheOperation records cache hit/miss metrics.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
	} else {
		m.cacheMisses.Inc()
	}
}

// ObserveCacheWrite tracks the duration of cache set operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil || m.cacheWrite == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}
