package monitoring

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Swarm metrics
	Agents        prometheus.Gauge
	AgentsWorking prometheus.Gauge
	Transitions   *prometheus.CounterVec

	// Stage metrics
	StageDepth      prometheus.Gauge
	IntentsServiced *prometheus.CounterVec
	IntentsDropped  prometheus.Counter
	IntentsElided   prometheus.Counter
	StageErrors     *prometheus.CounterVec
	ForceStops      prometheus.Counter

	// WebSocket metrics
	WSConnections *prometheus.GaugeVec
	WSMessages    *prometheus.CounterVec

	// System metrics
	Uptime    prometheus.Gauge
	startTime time.Time

	// Snapshot for JSON API - track current values
	snapshot Snapshot

	mu sync.RWMutex
}

// Snapshot holds current metric values for the JSON API
type Snapshot struct {
	TotalRequests   int64 `json:"total_requests"`
	TotalErrors     int64 `json:"total_errors"`
	Agents          int64 `json:"agents"`
	AgentsWorking   int64 `json:"agents_working"`
	IntentsServiced int64 `json:"intents_serviced"`
	IntentsDropped  int64 `json:"intents_dropped"`
	UptimeSeconds   int64 `json:"uptime_seconds"`
}

// NewMetrics creates a new metrics collector
func NewMetrics() *Metrics {
	m := &Metrics{
		startTime: time.Now(),

		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "swarmlens_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "swarmlens_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),

		Agents: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "swarmlens_agents",
				Help: "Number of tracked agents",
			},
		),
		AgentsWorking: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "swarmlens_agents_working",
				Help: "Number of agents currently working",
			},
		),
		Transitions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "swarmlens_status_transitions_total",
				Help: "Total number of observed agent status transitions",
			},
			[]string{"direction"},
		),

		StageDepth: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "swarmlens_stage_queue_depth",
				Help: "Number of pending stage intents",
			},
		),
		IntentsServiced: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "swarmlens_stage_intents_serviced_total",
				Help: "Total number of serviced stage intents",
			},
			[]string{"kind"},
		),
		IntentsDropped: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "swarmlens_stage_intents_dropped_total",
				Help: "Total number of intents dropped on queue overflow",
			},
		),
		IntentsElided: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "swarmlens_stage_intents_elided_total",
				Help: "Total number of focus intents cancelled by a matching unfocus",
			},
		),
		StageErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "swarmlens_stage_errors_total",
				Help: "Total number of failed renderer primitives",
			},
			[]string{"kind"},
		),
		ForceStops: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "swarmlens_stage_force_stops_total",
				Help: "Total number of operator force-stops",
			},
		),

		WSConnections: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "swarmlens_ws_connections",
				Help: "Number of active WebSocket connections",
			},
			[]string{"endpoint"},
		),
		WSMessages: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "swarmlens_ws_messages_total",
				Help: "Total number of WebSocket messages",
			},
			[]string{"endpoint", "type"},
		),

		Uptime: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "swarmlens_uptime_seconds",
				Help: "Backend uptime in seconds",
			},
		),
	}

	go m.updateUptime()

	return m
}

// updateUptime continuously updates the uptime metric
func (m *Metrics) updateUptime() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for range ticker.C {
		m.Uptime.Set(time.Since(m.startTime).Seconds())
	}
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())

	m.mu.Lock()
	m.snapshot.TotalRequests++
	if len(status) > 0 && (status[0] == '4' || status[0] == '5') {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// SetAgents sets the tracked and working agent gauges
func (m *Metrics) SetAgents(total, working int) {
	m.Agents.Set(float64(total))
	m.AgentsWorking.Set(float64(working))

	m.mu.Lock()
	m.snapshot.Agents = int64(total)
	m.snapshot.AgentsWorking = int64(working)
	m.mu.Unlock()
}

// RecordTransition records an observed status transition
func (m *Metrics) RecordTransition(direction string) {
	m.Transitions.WithLabelValues(direction).Inc()
}

// SetStageDepth sets the pending intent gauge
func (m *Metrics) SetStageDepth(depth int) {
	m.StageDepth.Set(float64(depth))
}

// RecordIntentServiced records a completed stage intent
func (m *Metrics) RecordIntentServiced(kind string) {
	m.IntentsServiced.WithLabelValues(kind).Inc()

	m.mu.Lock()
	m.snapshot.IntentsServiced++
	m.mu.Unlock()
}

// RecordIntentDropped records an intent lost to queue overflow
func (m *Metrics) RecordIntentDropped() {
	m.IntentsDropped.Inc()

	m.mu.Lock()
	m.snapshot.IntentsDropped++
	m.mu.Unlock()
}

// RecordIntentElided records a focus cancelled by its matching unfocus
func (m *Metrics) RecordIntentElided() {
	m.IntentsElided.Inc()
}

// RecordStageError records a failed renderer primitive
func (m *Metrics) RecordStageError(kind string) {
	m.StageErrors.WithLabelValues(kind).Inc()
}

// RecordForceStop records an operator force-stop
func (m *Metrics) RecordForceStop() {
	m.ForceStops.Inc()
}

// IncWSConnections increments the connection gauge for an endpoint
func (m *Metrics) IncWSConnections(endpoint string) {
	m.WSConnections.WithLabelValues(endpoint).Inc()
}

// DecWSConnections decrements the connection gauge for an endpoint
func (m *Metrics) DecWSConnections(endpoint string) {
	m.WSConnections.WithLabelValues(endpoint).Dec()
}

// RecordWSMessage records a WebSocket message
func (m *Metrics) RecordWSMessage(endpoint, msgType string) {
	m.WSMessages.WithLabelValues(endpoint, msgType).Inc()
}

// GetSnapshot returns current metric values for the JSON API
func (m *Metrics) GetSnapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := m.snapshot
	snap.UptimeSeconds = int64(time.Since(m.startTime).Seconds())
	return snap
}
