// Package metrics provides the Prometheus metrics of the attendance engine.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SyncMetrics contains all Prometheus metrics related to sync runs and
// reconciliation. A nil *SyncMetrics is valid and records nothing.
type SyncMetrics struct {
	RunsTotal       *prometheus.CounterVec
	RunDuration     prometheus.Histogram
	RecordsTotal    *prometheus.CounterVec
	JanitorSwept    prometheus.Counter
	AgentHeartbeats prometheus.Counter
	AgentLastSeen   prometheus.Gauge
	RunningJobs     prometheus.Gauge
	PunchesIngested prometheus.Counter
	Anomalies       prometheus.Counter
	registry        *prometheus.Registry
}

// NewSyncMetrics creates a new instance of SyncMetrics and registers it.
func NewSyncMetrics(registry *prometheus.Registry) (*SyncMetrics, error) {
	m := &SyncMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register sync metrics: %w", err)
	}
	return m, nil
}

func (m *SyncMetrics) initMetrics() {
	m.RunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "attendance_sync_runs_total",
		Help: "Total number of sync runs by terminal status and trigger",
	}, []string{"status", "trigger"})

	m.RunDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "attendance_sync_run_duration_seconds",
		Help:    "Duration of sync runs from start to completion",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
	})

	m.RecordsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "attendance_records_processed_total",
		Help: "Total number of attendance records reconciled by outcome",
	}, []string{"outcome"})

	m.JanitorSwept = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "attendance_sync_janitor_swept_total",
		Help: "Total number of stuck sync runs marked failed by the janitor",
	})

	m.AgentHeartbeats = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "attendance_agent_heartbeats_total",
		Help: "Total number of heartbeats received from the collector agent",
	})

	m.AgentLastSeen = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "attendance_agent_last_seen_timestamp_seconds",
		Help: "Unix time of the last collector agent heartbeat",
	})

	m.RunningJobs = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "attendance_sync_running",
		Help: "Number of sync runs currently executing in this process",
	})

	m.PunchesIngested = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "attendance_punches_ingested_total",
		Help: "Total number of raw punches stored from collector deliveries",
	})

	m.Anomalies = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "attendance_anomalies_detected_total",
		Help: "Total number of anomalies newly flagged on attendance records",
	})
}

// ObserveRun records a finished run.
func (m *SyncMetrics) ObserveRun(status, trigger string, d time.Duration) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(status, trigger).Inc()
	if d > 0 {
		m.RunDuration.Observe(d.Seconds())
	}
}

// ObserveRecord records one reconciled employee/date.
func (m *SyncMetrics) ObserveRecord(outcome string) {
	if m == nil {
		return
	}
	m.RecordsTotal.WithLabelValues(outcome).Inc()
}

// AddSwept records runs failed by the janitor.
func (m *SyncMetrics) AddSwept(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.JanitorSwept.Add(float64(n))
}

// ObserveHeartbeat records an agent heartbeat at t.
func (m *SyncMetrics) ObserveHeartbeat(t time.Time) {
	if m == nil {
		return
	}
	m.AgentHeartbeats.Inc()
	m.AgentLastSeen.Set(float64(t.Unix()))
}

// AddPunches records stored punches.
func (m *SyncMetrics) AddPunches(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.PunchesIngested.Add(float64(n))
}

// AddAnomalies records newly flagged anomalies.
func (m *SyncMetrics) AddAnomalies(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.Anomalies.Add(float64(n))
}

// RunStarted increments the running gauge and returns its decrement.
func (m *SyncMetrics) RunStarted() func() {
	if m == nil {
		return func() {}
	}
	m.RunningJobs.Inc()
	return m.RunningJobs.Dec
}

// Describe implements the prometheus.Collector interface.
func (m *SyncMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.RunsTotal.Describe(ch)
	m.RunDuration.Describe(ch)
	m.RecordsTotal.Describe(ch)
	m.JanitorSwept.Describe(ch)
	m.AgentHeartbeats.Describe(ch)
	m.AgentLastSeen.Describe(ch)
	m.RunningJobs.Describe(ch)
	m.PunchesIngested.Describe(ch)
	m.Anomalies.Describe(ch)
}

// Collect implements the prometheus.Collector interface.
func (m *SyncMetrics) Collect(ch chan<- prometheus.Metric) {
	m.RunsTotal.Collect(ch)
	m.RunDuration.Collect(ch)
	m.RecordsTotal.Collect(ch)
	m.JanitorSwept.Collect(ch)
	m.AgentHeartbeats.Collect(ch)
	m.AgentLastSeen.Collect(ch)
	m.RunningJobs.Collect(ch)
	m.PunchesIngested.Collect(ch)
	m.Anomalies.Collect(ch)
}
