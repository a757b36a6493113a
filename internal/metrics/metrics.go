package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeSuccess labels analyses that produced a result.
	OutcomeSuccess = "success"
	// OutcomeError labels failed analyses (validation, pipeline or storage issues).
	OutcomeError = "error"

	// CacheHit and CacheMiss label result cache lookups.
	CacheHit  = "hit"
	CacheMiss = "miss"
)

var (
	analysesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sociogram",
			Name:      "analyses_total",
			Help:      "Total number of network analyses handled, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	analysisDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "sociogram",
			Name:      "analysis_seconds",
			Help:      "Network analysis latency in seconds.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
	)

	skippedNominationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sociogram",
			Name:      "skipped_items_total",
			Help:      "Survey items dropped during relationship extraction, partitioned by kind.",
		},
		[]string{"kind"},
	)

	cacheLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sociogram",
			Name:      "cache_lookups_total",
			Help:      "Result cache lookups, partitioned by hit or miss.",
		},
		[]string{"result"},
	)
)

// Register attaches sociogram collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		analysesTotal,
		analysisDurationSeconds,
		skippedNominationsTotal,
		cacheLookupsTotal,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveAnalysis records an analysis duration and outcome label.
func ObserveAnalysis(duration time.Duration, outcome string) {
	label := outcome
	if label != OutcomeError {
		label = OutcomeSuccess
	}
	analysesTotal.WithLabelValues(label).Inc()
	if duration < 0 {
		duration = 0
	}
	analysisDurationSeconds.Observe(duration.Seconds())
}

// ObserveSkipped adds dropped survey items. kind is one of "response",
// "answer" or "nomination"; zero counts are ignored.
func ObserveSkipped(kind string, count int) {
	if count <= 0 {
		return
	}
	skippedNominationsTotal.WithLabelValues(kind).Add(float64(count))
}

// ObserveCacheLookup counts a result cache hit or miss.
func ObserveCacheLookup(hit bool) {
	label := CacheMiss
	if hit {
		label = CacheHit
	}
	cacheLookupsTotal.WithLabelValues(label).Inc()
}
