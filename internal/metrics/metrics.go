// Package metrics holds the prometheus collectors of the compiler. They
// are registered with the default registry on first import.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels.
const (
	OutcomeOK = "ok"
	// Other outcomes are the compile error codes, e.g. UNSUPPORTED_FEATURE.
)

var (
	// CompilationsTotal counts compilations by outcome.
	CompilationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gplan_compilations_total",
			Help: "Total number of traversal compilations",
		},
		[]string{"outcome"},
	)

	// CompileDuration measures how long a compilation takes.
	CompileDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gplan_compile_duration_seconds",
			Help:    "Duration of traversal compilations in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"outcome"},
	)

	// PlanVertices is the size of compiled plans, loop bodies included.
	PlanVertices = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gplan_plan_vertices",
			Help:    "Number of vertices in compiled logical plans",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		},
	)

	// StepsRejected counts steps that made a compilation fail, by step name.
	StepsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gplan_steps_rejected_total",
			Help: "Total number of steps that failed compilation",
		},
		[]string{"step", "code"},
	)
)

// ObserveCompile records one compilation.
func ObserveCompile(outcome string, seconds float64, vertices int) {
	CompilationsTotal.WithLabelValues(outcome).Inc()
	CompileDuration.WithLabelValues(outcome).Observe(seconds)
	if outcome == OutcomeOK {
		PlanVertices.Observe(float64(vertices))
	}
}

// ObserveRejection records the step a compilation failed at.
func ObserveRejection(step, code string) {
	if step == "" {
		step = "unknown"
	}
	StepsRejected.WithLabelValues(step, code).Inc()
}
