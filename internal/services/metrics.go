package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all custom Prometheus metrics for the curiosity service
type Metrics struct {
	// Tangent ingestion
	TangentsQueued   prometheus.Counter
	TangentsRejected prometheus.Counter

	// Drain pipeline
	TangentsProcessed prometheus.Counter
	InsightsKept      prometheus.Counter
	DrainDuration     prometheus.Histogram
}

var globalMetrics *Metrics

// InitMetrics initializes the Prometheus metrics. queueSize is polled for
// the live queue depth gauge.
func InitMetrics(queueSize func() int) *Metrics {
	metrics := &Metrics{
		TangentsQueued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "rilie_curiosity_tangents_queued_total",
			Help: "Total number of tangents admitted to the curiosity queue",
		}),

		TangentsRejected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "rilie_curiosity_tangents_rejected_total",
			Help: "Total number of tangents rejected by the admission filter or dedup",
		}),

		TangentsProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "rilie_curiosity_tangents_processed_total",
			Help: "Total number of tangents drained through the research pipeline",
		}),

		InsightsKept: promauto.NewCounter(prometheus.CounterOpts{
			Name: "rilie_curiosity_insights_kept_total",
			Help: "Total number of insights that cleared the taste threshold",
		}),

		DrainDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "rilie_curiosity_drain_duration_seconds",
			Help:    "Drain cycle latency in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}, // up to 2 minutes of sequential research calls
		}),
	}

	// Queue depth comes straight from the engine on scrape
	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "rilie_curiosity_queue_depth",
			Help: "Current number of tangents waiting in the curiosity queue",
		},
		func() float64 {
			if queueSize != nil {
				return float64(queueSize())
			}
			return 0
		},
	))

	globalMetrics = metrics
	return metrics
}

// GetMetrics returns the global metrics instance
func GetMetrics() *Metrics {
	return globalMetrics
}

// DrainTimer returns a timer observing into the drain duration histogram
func (m *Metrics) DrainTimer() *prometheus.Timer {
	return prometheus.NewTimer(m.DrainDuration)
}
