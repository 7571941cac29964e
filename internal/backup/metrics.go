package backup

import (
	"sync"
	"time"
)

// Metrics is an in-memory collector for per-process backup metrics. The
// pipeline is single-threaded, but the collector is safe for concurrent
// use so callers embedding it in a long-lived process are not surprised.
type Metrics struct {
	mu       sync.Mutex
	counters map[string]int64
	gauges   map[string]float64
}

// Counter and gauge names recorded by the orchestrator
const (
	MetricArtifactsCreated = "artifacts_created"
	MetricBytesWritten     = "bytes_written"
	MetricArtifactsDeleted = "artifacts_deleted"
	MetricBytesReclaimed   = "bytes_reclaimed"
	MetricUploadFailures   = "upload_failures"
	MetricUploadsCompleted = "uploads_completed"
	MetricIntegrityFailed  = "integrity_failures"
	MetricLastRunSeconds   = "last_run_seconds"
)

// NewMetrics creates an empty metrics collector
func NewMetrics() *Metrics {
	return &Metrics{
		counters: make(map[string]int64),
		gauges:   make(map[string]float64),
	}
}

// IncrCounter adds delta to a named counter
func (m *Metrics) IncrCounter(name string, delta int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[name] += delta
}

// SetGauge sets a named gauge
func (m *Metrics) SetGauge(name string, value float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gauges[name] = value
}

// ObserveDuration records a duration gauge in seconds
func (m *Metrics) ObserveDuration(name string, d time.Duration) {
	m.SetGauge(name, d.Seconds())
}

// Counter returns the current value of a counter
func (m *Metrics) Counter(name string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters[name]
}

// Gauge returns the current value of a gauge
func (m *Metrics) Gauge(name string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gauges[name]
}

// Snapshot returns a copy of all counters and gauges for logging
func (m *Metrics) Snapshot() (map[string]int64, map[string]float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	counters := make(map[string]int64, len(m.counters))
	for name, value := range m.counters {
		counters[name] = value
	}
	gauges := make(map[string]float64, len(m.gauges))
	for name, value := range m.gauges {
		gauges[name] = value
	}
	return counters, gauges
}
