// Package metrics exposes teardown counters through a prometheus registry.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "letsgo_teardown"

// Recorder tracks teardown operations. A nil *Recorder is valid and records
// nothing.
type Recorder struct {
	registry   *prometheus.Registry
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	categories *prometheus.CounterVec
	runs       *prometheus.CounterVec
}

// NewRecorder creates a Recorder backed by its own registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Teardown operations by category, step and result.",
		}, []string{"category", "step", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Time spent in teardown operations.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"category", "step"}),
		categories: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "categories_total",
			Help:      "Processed categories by final status.",
		}, []string{"category", "status"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Teardown runs by result.",
		}, []string{"result"}),
	}

	r.registry.MustRegister(r.operations, r.duration, r.categories, r.runs)
	return r
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// ObserveOperation records a settled step.
func (r *Recorder) ObserveOperation(category, step, result string, took time.Duration) {
	if r == nil {
		return
	}
	r.operations.WithLabelValues(category, step, result).Inc()
	r.duration.WithLabelValues(category, step).Observe(took.Seconds())
}

// ObserveCategory records the final status of a category.
func (r *Recorder) ObserveCategory(category, status string) {
	if r == nil {
		return
	}
	r.categories.WithLabelValues(category, status).Inc()
}

// ObserveRun records the result of a whole run.
func (r *Recorder) ObserveRun(failed bool) {
	if r == nil {
		return
	}
	result := "succeeded"
	if failed {
		result = "failed"
	}
	r.runs.WithLabelValues(result).Inc()
}

// WriteTextfile writes the current metrics in the node exporter textfile
// format.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, r.registry)
}
