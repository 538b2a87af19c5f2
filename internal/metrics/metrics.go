// Package metrics exposes prometheus collectors for optimization runs.
package metrics

import (
	"math"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the run collectors.
type Metrics struct {
	RunsStarted   *prometheus.CounterVec
	RunsFinished  *prometheus.CounterVec
	Steps         *prometheus.CounterVec
	ActiveRuns    prometheus.Gauge
	FinalDistance *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg. A nil reg skips
// registration.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RunsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gradbench",
			Name:      "runs_started_total",
			Help:      "Optimization runs started.",
		}, []string{"algorithm", "objective"}),
		RunsFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gradbench",
			Name:      "runs_finished_total",
			Help:      "Optimization runs finished, by terminal status.",
		}, []string{"status"}),
		Steps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gradbench",
			Name:      "steps_total",
			Help:      "Optimizer steps executed.",
		}, []string{"algorithm"}),
		ActiveRuns: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "gradbench",
			Name:      "active_runs",
			Help:      "Runs currently executing.",
		}),
		FinalDistance: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "gradbench",
			Name:      "final_distance",
			Help:      "Euclidean distance from the final iterate to the nearest known optimum.",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 10, 9),
		}, []string{"algorithm", "objective"}),
	}

	if reg != nil {
		reg.MustRegister(m.RunsStarted, m.RunsFinished, m.Steps, m.ActiveRuns, m.FinalDistance)
	}
	return m
}

// Started records a run entering the running state.
func (m *Metrics) Started(algorithm, objective string) {
	m.RunsStarted.WithLabelValues(algorithm, objective).Inc()
	m.ActiveRuns.Inc()
}

// Finished records a run leaving the running state. Non-finite distances
// are not observed.
func (m *Metrics) Finished(status, algorithm, objective string, steps int, distance float64) {
	m.ActiveRuns.Dec()
	m.RunsFinished.WithLabelValues(status).Inc()
	m.Steps.WithLabelValues(algorithm).Add(float64(steps))
	if !math.IsNaN(distance) && !math.IsInf(distance, 0) {
		m.FinalDistance.WithLabelValues(algorithm, objective).Observe(distance)
	}
}
