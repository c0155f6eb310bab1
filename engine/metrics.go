package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the engine's Prometheus collectors. A fresh set is
// registered per Engine so tests can use isolated registries.
type Metrics struct {
	JobsTotal         *prometheus.CounterVec
	CacheRestoreTotal *prometheus.CounterVec
	CacheSaveTotal    prometheus.Counter
	StageDuration     *prometheus.HistogramVec
}

// NewMetrics registers the engine collectors with the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		JobsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stagehand_jobs_total",
				Help: "Total number of job evaluations by terminal status.",
			},
			[]string{"status"},
		),
		CacheRestoreTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stagehand_cache_restore_total",
				Help: "Total number of cache restore attempts by result.",
			},
			[]string{"result"},
		),
		CacheSaveTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "stagehand_cache_save_total",
				Help: "Total number of cache saves.",
			},
		),
		StageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stagehand_stage_duration_seconds",
				Help:    "Wall time spent per stage, barrier to barrier.",
				Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
			},
			[]string{"stage"},
		),
	}
}
