// Package metrics collects and exposes Prometheus metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is the metrics interface used by the session, record, roster and
// account packages.
type Recorder interface {
	RecordSessionState(state string)
	RecordSubmission(outcome string, latency time.Duration)
	RecordRosterOperation(op, result string)
	RecordAuthAttempt(kind, result string)
}

// Collector is the Prometheus implementation of Recorder.
type Collector struct {
	sessionStates *prometheus.CounterVec
	submissions   *prometheus.CounterVec
	submitLatency prometheus.Histogram
	rosterOps     *prometheus.CounterVec
	authAttempts  *prometheus.CounterVec
}

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		sessionStates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "caseentry_session_state_transitions_total",
			Help: "Session snapshot transitions by resulting state.",
		}, []string{"state"}),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "caseentry_record_submissions_total",
			Help: "Case record submissions by outcome.",
		}, []string{"outcome"}),
		submitLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "caseentry_record_submission_seconds",
			Help:    "Time spent dispatching a case record.",
			Buckets: prometheus.DefBuckets,
		}),
		rosterOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "caseentry_roster_operations_total",
			Help: "Admin roster operations by operation and result.",
		}, []string{"op", "result"}),
		authAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "caseentry_auth_attempts_total",
			Help: "Sign-in and registration attempts by result.",
		}, []string{"kind", "result"}),
	}

	reg.MustRegister(
		c.sessionStates,
		c.submissions,
		c.submitLatency,
		c.rosterOps,
		c.authAttempts,
	)

	return c
}

// RecordSessionState counts a snapshot transition into state.
func (c *Collector) RecordSessionState(state string) {
	c.sessionStates.WithLabelValues(state).Inc()
}

// RecordSubmission counts a submission and observes its dispatch latency.
func (c *Collector) RecordSubmission(outcome string, latency time.Duration) {
	c.submissions.WithLabelValues(outcome).Inc()
	c.submitLatency.Observe(latency.Seconds())
}

// RecordRosterOperation counts an admin roster operation.
func (c *Collector) RecordRosterOperation(op, result string) {
	c.rosterOps.WithLabelValues(op, result).Inc()
}

// RecordAuthAttempt counts a sign-in or registration attempt.
func (c *Collector) RecordAuthAttempt(kind, result string) {
	c.authAttempts.WithLabelValues(kind, result).Inc()
}

// Noop discards every measurement.
type Noop struct{}

func (Noop) RecordSessionState(string)              {}
func (Noop) RecordSubmission(string, time.Duration) {}
func (Noop) RecordRosterOperation(string, string)   {}
func (Noop) RecordAuthAttempt(string, string)       {}

// Handler returns the HTTP handler Prometheus scrapes.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
