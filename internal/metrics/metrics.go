// Package metrics provides Prometheus metrics for the blockhtml service
package metrics

import (
	"github.com/derickschaefer/blockhtml"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus collectors of the service. It implements
// blockhtml.Observer.
type Metrics struct {
	DocumentsTotal   *prometheus.CounterVec
	BlocksTotal      *prometheus.CounterVec
	FallbacksTotal   *prometheus.CounterVec
	RenderDuration   prometheus.Histogram
	CacheHitsTotal   prometheus.Counter
	CacheMissesTotal prometheus.Counter
	CacheErrorsTotal prometheus.Counter

	RateLimitAllowed  prometheus.Counter
	RateLimitRejected prometheus.Counter
}

var _ blockhtml.Observer = (*Metrics)(nil)

// NewMetrics creates all collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		DocumentsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "blockhtml",
				Name:      "documents_total",
				Help:      "Number of render calls by outcome.",
			},
			[]string{"outcome"},
		),
		BlocksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "blockhtml",
				Name:      "blocks_total",
				Help:      "Number of rendered blocks by type.",
			},
			[]string{"type"},
		),
		FallbacksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "blockhtml",
				Name:      "fallback_blocks_total",
				Help:      "Number of blocks rendered with the fallback fragment, by type.",
			},
			[]string{"type"},
		),
		RenderDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "blockhtml",
				Name:      "render_duration_seconds",
				Help:      "Duration of render requests in seconds, cache lookups included.",
				Buckets:   prometheus.DefBuckets,
			},
		),
		CacheHitsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "blockhtml", Name: "cache_hits_total", Help: "Render cache hits.",
		}),
		CacheMissesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "blockhtml", Name: "cache_misses_total", Help: "Render cache misses.",
		}),
		CacheErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "blockhtml", Name: "cache_errors_total", Help: "Render cache backend errors.",
		}),
		RateLimitAllowed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "blockhtml", Name: "rate_limit_allowed_total", Help: "Requests admitted by the rate limiter.",
		}),
		RateLimitRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "blockhtml", Name: "rate_limit_rejected_total", Help: "Requests rejected by the rate limiter.",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.DocumentsTotal,
			m.BlocksTotal,
			m.FallbacksTotal,
			m.RenderDuration,
			m.CacheHitsTotal,
			m.CacheMissesTotal,
			m.CacheErrorsTotal,
			m.RateLimitAllowed,
			m.RateLimitRejected,
		)
	}
	return m
}

// ObserveDocument counts a render call.
func (m *Metrics) ObserveDocument(outcome blockhtml.Outcome) {
	m.DocumentsTotal.WithLabelValues(string(outcome)).Inc()
}

// ObserveBlock counts a rendered block. Unrecognised types are folded into
// a single "other" label to keep cardinality bounded.
func (m *Metrics) ObserveBlock(t blockhtml.BlockType, known bool) {
	label := string(t)
	if !blockhtml.IsKnown(t) {
		label = "other"
	}
	m.BlocksTotal.WithLabelValues(label).Inc()
	if !known {
		m.FallbacksTotal.WithLabelValues(label).Inc()
	}
}
