// Package metrics exposes Prometheus counters for the session lifecycle.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "session"

// Metrics holds all Prometheus metrics for the session lifecycle
type Metrics struct {
	Logins           prometheus.Counter
	Logouts          *prometheus.CounterVec
	PhaseTransitions *prometheus.CounterVec
	RefreshAttempts  *prometheus.CounterVec
	RefreshDuration  prometheus.Histogram
	CrossTabEvents   *prometheus.CounterVec
	GuardDecisions   *prometheus.CounterVec
}

// New registers the metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Logins: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logins_total",
			Help:      "Sessions created by a successful login.",
		}),
		Logouts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logouts_total",
			Help:      "Sessions cleared, by reason.",
		}, []string{"reason"}),
		PhaseTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "monitor_transitions_total",
			Help:      "Token expiry monitor phase changes, by phase entered.",
		}, []string{"phase"}),
		RefreshAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_attempts_total",
			Help:      "Refresh exchanges, by outcome.",
		}, []string{"outcome"}),
		RefreshDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "refresh_duration_seconds",
			Help:      "Latency of refresh exchanges.",
			Buckets:   prometheus.DefBuckets,
		}),
		CrossTabEvents: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "crosstab_events_total",
			Help:      "Storage change notifications from other tabs, by action taken.",
		}, []string{"action"}),
		GuardDecisions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "guard_decisions_total",
			Help:      "Route guard results, by decision.",
		}, []string{"decision"}),
	}
}

func (m *Metrics) Login() {
	if m == nil {
		return
	}
	m.Logins.Inc()
}

// Logout counts a logout by reason.
func (m *Metrics) Logout(reason string) {
	if m == nil {
		return
	}
	m.Logouts.WithLabelValues(reason).Inc()
}

// Transition counts a monitor phase change.
func (m *Metrics) Transition(phase string) {
	if m == nil {
		return
	}
	m.PhaseTransitions.WithLabelValues(phase).Inc()
}

// Refresh counts a refresh attempt. A negative duration is not observed.
func (m *Metrics) Refresh(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.RefreshAttempts.WithLabelValues(outcome).Inc()
	if seconds >= 0 {
		m.RefreshDuration.Observe(seconds)
	}
}

func (m *Metrics) CrossTab(action string) {
	if m == nil {
		return
	}
	m.CrossTabEvents.WithLabelValues(action).Inc()
}

func (m *Metrics) Guard(decision string) {
	if m == nil {
		return
	}
	m.GuardDecisions.WithLabelValues(decision).Inc()
}
