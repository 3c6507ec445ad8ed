package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the viewer's counters. A nil *Metrics is valid and records
// nothing, so the viewer can run without a registry.
type Metrics struct {
	Polls             prometheus.Counter
	PollFailures      prometheus.Counter
	StaleResponses    prometheus.Counter
	SessionStarts     prometheus.Counter
	StartFailures     prometheus.Counter
	SessionStops      prometheus.Counter
	HistoryRefreshes  prometheus.Counter
	RefreshFailures   prometheus.Counter
	SessionRunning    prometheus.Gauge
	ConsecutiveFailed prometheus.Gauge

	registry *prometheus.Registry
}

// New creates a Metrics instance on its own registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Polls: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "smile_viewer_polls_total",
			Help: "Detection polls issued while a session was running",
		}),
		PollFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "smile_viewer_poll_failures_total",
			Help: "Detection polls that failed and left the last result in place",
		}),
		StaleResponses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "smile_viewer_stale_responses_total",
			Help: "Poll responses discarded because their session had ended",
		}),
		SessionStarts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "smile_viewer_session_starts_total",
			Help: "Sessions the service acknowledged",
		}),
		StartFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "smile_viewer_start_failures_total",
			Help: "Start commands rejected or not delivered",
		}),
		SessionStops: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "smile_viewer_session_stops_total",
			Help: "Sessions stopped locally",
		}),
		HistoryRefreshes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "smile_viewer_history_refreshes_total",
			Help: "Snapshot list fetches issued",
		}),
		RefreshFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "smile_viewer_history_refresh_failures_total",
			Help: "Snapshot list fetches that failed and kept the previous list",
		}),
		SessionRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "smile_viewer_session_running",
			Help: "1 while a session is running",
		}),
		ConsecutiveFailed: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "smile_viewer_consecutive_poll_failures",
			Help: "Poll failures since the last successful tick",
		}),
	}

	m.registry.MustRegister(
		m.Polls, m.PollFailures, m.StaleResponses,
		m.SessionStarts, m.StartFailures, m.SessionStops,
		m.HistoryRefreshes, m.RefreshFailures,
		m.SessionRunning, m.ConsecutiveFailed,
	)
	return m
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObservePoll records one finished tick
func (m *Metrics) ObservePoll(err error) {
	if m == nil {
		return
	}
	m.Polls.Inc()
	if err != nil {
		m.PollFailures.Inc()
	}
}

// ObserveStale records a discarded poll response
func (m *Metrics) ObserveStale() {
	if m == nil {
		return
	}
	m.StaleResponses.Inc()
}

// ObserveStart records the outcome of a start command
func (m *Metrics) ObserveStart(err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.StartFailures.Inc()
		return
	}
	m.SessionStarts.Inc()
	m.SessionRunning.Set(1)
}

// ObserveStop records a local stop
func (m *Metrics) ObserveStop() {
	if m == nil {
		return
	}
	m.SessionStops.Inc()
	m.SessionRunning.Set(0)
	m.ConsecutiveFailed.Set(0)
}

// ObserveRefresh records the outcome of a snapshot list fetch
func (m *Metrics) ObserveRefresh(err error) {
	if m == nil {
		return
	}
	m.HistoryRefreshes.Inc()
	if err != nil {
		m.RefreshFailures.Inc()
	}
}

// SetConsecutiveFailures records the current failure streak
func (m *Metrics) SetConsecutiveFailures(n int) {
	if m == nil {
		return
	}
	m.ConsecutiveFailed.Set(float64(n))
}
