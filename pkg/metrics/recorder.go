// Package metrics exports registry activity to Prometheus.
package metrics

import (
	"time"

	assoc "github.com/goliatone/go-assoc"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements assoc.MetricsRecorder with Prometheus collectors.
type Recorder struct {
	mutations    *prometheus.CounterVec
	attributes   *prometheus.CounterVec
	composed     *prometheus.CounterVec
	invalid      *prometheus.CounterVec
	syncRequests *prometheus.CounterVec
	syncErrors   *prometheus.CounterVec
	syncDuration *prometheus.HistogramVec
}

// NewRecorder registers the collectors on reg. A nil reg uses the default
// Prometheus registerer.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Recorder{
		mutations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "assoc_node_mutations_total",
				Help: "Total number of committed node mutations",
			},
			[]string{"type"},
		),
		attributes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "assoc_node_attributes_changed_total",
				Help: "Total number of attributes changed by committed mutations",
			},
			[]string{"type"},
		),
		composed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "assoc_composed_events_total",
				Help: "Total number of composed events emitted on holders",
			},
			[]string{"type"},
		),
		invalid: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "assoc_validation_failures_total",
				Help: "Total number of rejected mutations",
			},
			[]string{"type"},
		),
		syncRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "assoc_sync_requests_total",
				Help: "Total number of sync calls",
			},
			[]string{"type", "method"},
		),
		syncErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "assoc_sync_errors_total",
				Help: "Total number of failed sync calls",
			},
			[]string{"type", "method"},
		),
		syncDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "assoc_sync_duration_seconds",
				Help:    "Duration of sync calls in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
			},
			[]string{"type", "method"},
		),
	}
}

func (r *Recorder) NodeChanged(typeName string, attrs int) {
	r.mutations.WithLabelValues(typeName).Inc()
	r.attributes.WithLabelValues(typeName).Add(float64(attrs))
}

func (r *Recorder) EventComposed(typeName string) {
	r.composed.WithLabelValues(typeName).Inc()
}

func (r *Recorder) ValidationFailed(typeName string) {
	r.invalid.WithLabelValues(typeName).Inc()
}

func (r *Recorder) SyncCompleted(typeName string, method assoc.Method, duration time.Duration, err error) {
	r.syncRequests.WithLabelValues(typeName, string(method)).Inc()
	r.syncDuration.WithLabelValues(typeName, string(method)).Observe(duration.Seconds())
	if err != nil {
		r.syncErrors.WithLabelValues(typeName, string(method)).Inc()
	}
}

var _ assoc.MetricsRecorder = (*Recorder)(nil)
