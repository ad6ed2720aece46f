package observability

import (
	"strconv"
	"strings"
	"time"

	"github.com/danmuck/boincctl/client"
	"github.com/danmuck/boincctl/model"
	"github.com/danmuck/boincctl/protocol"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "boinc"

var _ client.Observer = (*Metrics)(nil)

// Metrics implements client.Observer and holds the exporter gauges.
type Metrics struct {
	calls        *prometheus.CounterVec
	callDuration *prometheus.HistogramVec
	retries      *prometheus.CounterVec
	sessions     *prometheus.CounterVec

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	up          prometheus.Gauge
	hostNCPUs   prometheus.Gauge
	hostMemory  prometheus.Gauge
	results     *prometheus.GaugeVec
	lastSuccess prometheus.Gauge
}

// NewMetrics registers every collector on reg. Each registry takes one Metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		calls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "calls_total",
			Help:      "GUI RPC calls by operation and outcome.",
		}, []string{"op", "outcome"}),
		callDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "call_duration_seconds",
			Help:      "GUI RPC call duration in seconds, retries included.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		retries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "retries_total",
			Help:      "Attempts retried after a network-class failure.",
		}, []string{"op"}),
		sessions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "sessions_total",
			Help:      "Session constructions by outcome.",
		}, []string{"outcome"}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests served by the exporter.",
		}, []string{"method", "path", "status"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		up: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "up",
			Help:      "1 when the last poll of the daemon succeeded.",
		}),
		hostNCPUs: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "host",
			Name:      "ncpus",
			Help:      "Logical CPUs reported by the daemon.",
		}),
		hostMemory: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "host",
			Name:      "memory_bytes",
			Help:      "Physical memory reported by the daemon.",
		}),
		results: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "results",
			Help:      "Task results known to the daemon by state.",
		}, []string{"state"}),
		lastSuccess: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful poll.",
		}),
	}
}

// Outcome is the metric label for err: "ok", or the error kind.
func Outcome(err error) string {
	if err == nil {
		return "ok"
	}
	kind := protocol.KindOf(err)
	if kind == 0 {
		return "other"
	}
	return strings.ReplaceAll(kind.String(), " ", "_")
}

func (m *Metrics) ObserveCall(op string, err error, elapsed time.Duration) {
	m.calls.WithLabelValues(op, Outcome(err)).Inc()
	m.callDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveRetry(op string, _ error) {
	m.retries.WithLabelValues(op).Inc()
}

func (m *Metrics) ObserveSession(err error) {
	m.sessions.WithLabelValues(Outcome(err)).Inc()
}

func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	statusLabel := strconv.Itoa(status)
	m.httpRequests.WithLabelValues(method, path, statusLabel).Inc()
	m.httpDuration.WithLabelValues(method, path, statusLabel).Observe(duration.Seconds())
}

// SetDown marks the daemon unreachable and keeps the last known gauges.
func (m *Metrics) SetDown() {
	m.up.Set(0)
}

// SetSnapshot publishes one successful poll.
func (m *Metrics) SetSnapshot(host model.HostInfo, results []model.TaskResult, at time.Time) {
	m.up.Set(1)
	m.hostNCPUs.Set(float64(host.NCPUs))
	m.hostMemory.Set(host.MemoryBytes)

	counts := make(map[model.ResultState]int, len(model.ResultStates))
	for _, r := range results {
		counts[r.State]++
	}
	m.results.Reset()
	for _, state := range model.ResultStates {
		m.results.WithLabelValues(state.String()).Set(float64(counts[state]))
		delete(counts, state)
	}
	// states newer than this build still get a series
	for state, n := range counts {
		m.results.WithLabelValues(state.String()).Set(float64(n))
	}
	m.lastSuccess.Set(float64(at.Unix()))
}
