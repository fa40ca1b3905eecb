// Package metrics expõe os coletores Prometheus do cache de respostas e do rate limit.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Resultados de consulta ao cache.
const (
	CacheHit    = "hit"
	CacheMiss   = "miss"
	CacheBypass = "bypass"
	CacheError  = "error"
)

// Resultados de decisão do rate limit.
const (
	RateAllowed  = "allowed"
	RateRejected = "rejected"
	RateError    = "error"
	RateReleased = "released"
)

var (
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_cache_lookups_total",
			Help: "Response cache lookups by result",
		},
		[]string{"cache", "result"},
	)

	CacheStores = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_cache_stores_total",
			Help: "Responses stored in the response cache",
		},
		[]string{"cache"},
	)

	CacheEntries = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pipeline_cache_entries",
			Help: "Entries currently held by the response cache",
		},
		[]string{"cache"},
	)

	RateDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_ratelimit_decisions_total",
			Help: "Rate limit decisions by outcome",
		},
		[]string{"limiter", "outcome"},
	)

	RateWindows = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pipeline_ratelimit_active_windows",
			Help: "Rate limit windows currently tracked",
		},
		[]string{"limiter"},
	)

	SweepRemoved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_sweep_removed_total",
			Help: "Entries removed by background sweeps",
		},
		[]string{"component", "name"},
	)
)

func RecordCacheLookup(cache, result string) {
	CacheLookups.WithLabelValues(label(cache), result).Inc()
}

func RecordCacheStore(cache string) {
	CacheStores.WithLabelValues(label(cache)).Inc()
}

func SetCacheEntries(cache string, n int) {
	CacheEntries.WithLabelValues(label(cache)).Set(float64(n))
}

func RecordRateDecision(limiter, outcome string) {
	RateDecisions.WithLabelValues(label(limiter), outcome).Inc()
}

func SetRateWindows(limiter string, n int) {
	RateWindows.WithLabelValues(label(limiter)).Set(float64(n))
}

func RecordSweep(component, name string, removed int) {
	if removed <= 0 {
		return
	}
	SweepRemoved.WithLabelValues(component, label(name)).Add(float64(removed))
}

func label(name string) string {
	if name == "" {
		return "default"
	}
	return name
}
