// Package metrics exposes the core's observability surface: prometheus
// counters and a histogram for the degeneracies that are logged or
// counted rather than raised as errors (BT non-convergence, shape
// mismatch) plus drill-serving volume by tier and update latency.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// DrillsServedTotal counts drills served, labeled by difficulty tier.
	DrillsServedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "drill_engine_drills_served_total",
		Help: "Total drills served by the sampler, labeled by difficulty tier.",
	}, []string{"tier"})

	// BTNonconvergentTotal counts Bradley-Terry MM iterations that hit
	// max_iter without satisfying the convergence tolerance -- never
	// fatal, but worth counting.
	BTNonconvergentTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "drill_engine_bt_nonconvergent_total",
		Help: "Bradley-Terry MM iterations that failed to converge within max_iter.",
	}, []string{"problem_type"})

	// ShapeMismatchTotal counts posteriors found with the wrong matrix
	// shape and re-initialized from priors.
	ShapeMismatchTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "drill_engine_posterior_shape_mismatch_total",
		Help: "Posteriors re-initialized from priors after a matrix shape mismatch.",
	}, []string{"problem_type"})

	// UpdateDuration times one DrillService.NextDrill call, locking and
	// persistence included.
	UpdateDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "drill_engine_drill_update_duration_seconds",
		Help:    "Time spent computing one next-drill response.",
		Buckets: prometheus.DefBuckets,
	})
)

// Register installs every collector with the given registerer. Call once
// at startup with prometheus.DefaultRegisterer.
func Register(reg prometheus.Registerer) {
	reg.MustRegister(DrillsServedTotal, BTNonconvergentTotal, ShapeMismatchTotal, UpdateDuration)
}
