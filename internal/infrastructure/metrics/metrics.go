// Package metrics exposes account operation counters to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Code lifecycle events.
const (
	CodeIssued   = "issued"
	CodeConsumed = "consumed"
	CodeRejected = "rejected"
)

// Recorder owns the service's counters and the registry they are served from.
// A nil *Recorder records nothing.
type Recorder struct {
	registry      *prometheus.Registry
	operations    *prometheus.CounterVec
	codes         *prometheus.CounterVec
	notifications *prometheus.CounterVec
}

func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "accounts_operations_total",
			Help: "Account operations by outcome",
		}, []string{"operation", "outcome"}),
		codes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "accounts_codes_total",
			Help: "One-time code lifecycle events by purpose",
		}, []string{"purpose", "event"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "accounts_notifications_total",
			Help: "Notification deliveries by action and outcome",
		}, []string{"action", "outcome"}),
	}
	r.registry.MustRegister(
		r.operations,
		r.codes,
		r.notifications,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Operation counts one completed operation; a nil err is a success.
func (r *Recorder) Operation(name string, err error) {
	if r == nil {
		return
	}
	r.operations.WithLabelValues(name, outcome(err)).Inc()
}

func (r *Recorder) Code(purpose, event string) {
	if r == nil {
		return
	}
	r.codes.WithLabelValues(purpose, event).Inc()
}

func (r *Recorder) Notification(action string, err error) {
	if r == nil {
		return
	}
	r.notifications.WithLabelValues(action, outcome(err)).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

func outcome(err error) string {
	if err != nil {
		return OutcomeFailure
	}
	return OutcomeSuccess
}
