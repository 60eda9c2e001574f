package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Trial outcomes used as the "outcome" label.
const (
	OutcomeSucceeded = "succeeded"
	OutcomeSkipped   = "skipped"
)

var (
	// trialsTotal counts finished trials by outcome
	trialsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inheritance_trials_total",
		Help: "Total Monte Carlo trials by outcome",
	}, []string{"outcome"})

	// cascadeIterations tracks how many iterations a cascade needs to settle
	cascadeIterations = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "inheritance_cascade_iterations",
		Help:    "Growth iterations per cascade",
		Buckets: []float64{0, 1, 2, 5, 10, 20, 50, 100, 300, 600},
	})

	// finalFraction tracks the controlled share at the fixed point
	finalFraction = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "inheritance_final_fraction",
		Help:    "Final controlled fraction per trial",
		Buckets: prometheus.LinearBuckets(0.1, 0.1, 10),
	})

	// sweepDuration tracks wall time of whole sweeps
	sweepDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "inheritance_sweep_duration_seconds",
		Help:    "Sweep duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 14), // 10ms to ~80s
	}, []string{"status"})
)

// ObserveSweep records a finished sweep with its terminal status
func ObserveSweep(status string, d time.Duration) {
	sweepDuration.WithLabelValues(status).Observe(d.Seconds())
}
