package assoc

import "time"

// MetricsRecorder receives counters from a registry. pkg/metrics provides a
// Prometheus implementation.
type MetricsRecorder interface {
	// NodeChanged is called once per committed mutation with the number of
	// attributes it changed.
	NodeChanged(typeName string, attrs int)
	// EventComposed is called for every composed event emitted on a holder.
	EventComposed(typeName string)
	ValidationFailed(typeName string)
	SyncCompleted(typeName string, method Method, duration time.Duration, err error)
}

type noopMetrics struct{}

func (noopMetrics) NodeChanged(string, int)                            {}
func (noopMetrics) EventComposed(string)                               {}
func (noopMetrics) ValidationFailed(string)                            {}
func (noopMetrics) SyncCompleted(string, Method, time.Duration, error) {}
