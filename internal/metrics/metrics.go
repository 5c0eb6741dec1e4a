// Package metrics exposes the ledger engine's counters and histograms.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector is what services report to. Services never depend on prometheus directly.
type Collector interface {
	RecordOperationDuration(operation string, duration time.Duration)
	RecordOperationResult(operation, result string)
	RecordCacheHit(cache string)
	RecordCacheMiss(cache string)
	RecordPayout(pool string, amount float64)
	RecordViolation()
	RecordBan(source string)
	RecordError(operation, code string)
	RecordHTTPRequest(method, path, status string, duration time.Duration)
}

// NoopCollector is a no-op implementation of Collector
type NoopCollector struct{}

func (NoopCollector) RecordOperationDuration(string, time.Duration)           {}
func (NoopCollector) RecordOperationResult(string, string)                    {}
func (NoopCollector) RecordCacheHit(string)                                   {}
func (NoopCollector) RecordCacheMiss(string)                                  {}
func (NoopCollector) RecordPayout(string, float64)                            {}
func (NoopCollector) RecordViolation()                                        {}
func (NoopCollector) RecordBan(string)                                        {}
func (NoopCollector) RecordError(string, string)                              {}
func (NoopCollector) RecordHTTPRequest(string, string, string, time.Duration) {}

// PrometheusCollector implements Collector on client_golang.
type PrometheusCollector struct {
	operationDuration *prometheus.HistogramVec
	operationResults  *prometheus.CounterVec
	cacheLookups      *prometheus.CounterVec
	payoutsTotal      *prometheus.CounterVec
	payoutAmount      *prometheus.CounterVec
	violationsTotal   prometheus.Counter
	bansTotal         *prometheus.CounterVec
	errorsTotal       *prometheus.CounterVec
	httpRequestsTotal *prometheus.CounterVec
	httpResponseTime  *prometheus.HistogramVec
}

// NewPrometheusCollector registers every metric on reg. Pass
// prometheus.DefaultRegisterer in production and a fresh registry in tests.
func NewPrometheusCollector(reg prometheus.Registerer) *PrometheusCollector {
	factory := promauto.With(reg)
	return &PrometheusCollector{
		operationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ledger_operation_duration_seconds",
				Help:    "Duration of ledger operations",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		operationResults: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_operation_results_total",
				Help: "Ledger operation outcomes",
			},
			[]string{"operation", "result"},
		),
		cacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_cache_lookups_total",
				Help: "Cache lookups by outcome",
			},
			[]string{"cache", "outcome"},
		),
		payoutsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_payouts_total",
				Help: "Daily income periods credited",
			},
			[]string{"pool"},
		),
		payoutAmount: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_payout_amount_total",
				Help: "Daily income credited, in currency units",
			},
			[]string{"pool"},
		),
		violationsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "anticheat_violations_total",
				Help: "Clock drift violations recorded",
			},
		),
		bansTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "anticheat_bans_total",
				Help: "Users banned",
			},
			[]string{"source"},
		),
		errorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_errors_total",
				Help: "Errors by operation and code",
			},
			[]string{"operation", "code"},
		),
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		httpResponseTime: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_response_time_seconds",
				Help:    "Histogram of response times",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}
}

func (p *PrometheusCollector) RecordOperationDuration(operation string, duration time.Duration) {
	p.operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

func (p *PrometheusCollector) RecordOperationResult(operation, result string) {
	p.operationResults.WithLabelValues(operation, result).Inc()
}

func (p *PrometheusCollector) RecordCacheHit(cache string) {
	p.cacheLookups.WithLabelValues(cache, "hit").Inc()
}

func (p *PrometheusCollector) RecordCacheMiss(cache string) {
	p.cacheLookups.WithLabelValues(cache, "miss").Inc()
}

func (p *PrometheusCollector) RecordPayout(pool string, amount float64) {
	p.payoutsTotal.WithLabelValues(pool).Inc()
	p.payoutAmount.WithLabelValues(pool).Add(amount)
}

func (p *PrometheusCollector) RecordViolation() {
	p.violationsTotal.Inc()
}

func (p *PrometheusCollector) RecordBan(source string) {
	p.bansTotal.WithLabelValues(source).Inc()
}

func (p *PrometheusCollector) RecordError(operation, code string) {
	p.errorsTotal.WithLabelValues(operation, code).Inc()
}

func (p *PrometheusCollector) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	p.httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	p.httpResponseTime.WithLabelValues(method, path).Observe(duration.Seconds())
}
