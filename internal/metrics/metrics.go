// Package metrics holds the Prometheus collectors for the bot. All methods
// are safe on a nil *Metrics so components can run without instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/alfredjeanlab/guildkeeper/internal/workerpool"
)

const namespace = "guildkeeper"

// Metrics holds all Prometheus metrics for the bot.
type Metrics struct {
	// Tenant configuration cache
	PrefixLookups *prometheus.CounterVec
	PrefixErrors  *prometheus.CounterVec
	PrefixChanges prometheus.Counter

	// Reaction roles
	ReactionEvents *prometheus.CounterVec
	Registrations  *prometheus.CounterVec

	// Commands
	Commands *prometheus.CounterVec

	// Export / backup
	Exports        *prometheus.CounterVec
	ExportDuration prometheus.Histogram

	reg prometheus.Registerer
}

// New creates all collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		PrefixLookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "prefix",
			Name:      "lookups_total",
			Help:      "Prefix lookups by where the answer came from (cache, store, default).",
		}, []string{"source"}),
		PrefixErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "prefix",
			Name:      "errors_total",
			Help:      "Failed prefix reads and writes.",
		}, []string{"op"}),
		PrefixChanges: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "prefix",
			Name:      "changes_total",
			Help:      "Committed prefix changes.",
		}),
		ReactionEvents: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reaction",
			Name:      "events_total",
			Help:      "Reaction events handled, by kind and outcome.",
		}, []string{"kind", "outcome"}),
		Registrations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reaction",
			Name:      "registrations_total",
			Help:      "Reaction-role registrations, by outcome.",
		}, []string{"outcome"}),
		Commands: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "command",
			Name:      "invocations_total",
			Help:      "Command invocations, by command and outcome.",
		}, []string{"command", "outcome"}),
		Exports: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "export",
			Name:      "runs_total",
			Help:      "Export runs, by outcome.",
		}, []string{"outcome"}),
		ExportDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "export",
			Name:      "duration_seconds",
			Help:      "Export run duration.",
			Buckets:   prometheus.DefBuckets,
		}),
		reg: reg,
	}
}

// PrefixLookup counts a successful lookup answered from source.
func (m *Metrics) PrefixLookup(source string) {
	if m == nil {
		return
	}
	m.PrefixLookups.WithLabelValues(source).Inc()
}

// PrefixError counts a failed prefix get or set.
func (m *Metrics) PrefixError(op string) {
	if m == nil {
		return
	}
	m.PrefixErrors.WithLabelValues(op).Inc()
}

// PrefixChanged counts a committed prefix change.
func (m *Metrics) PrefixChanged() {
	if m == nil {
		return
	}
	m.PrefixChanges.Inc()
}

// ReactionEvent counts a handled reaction event.
func (m *Metrics) ReactionEvent(kind, outcome string) {
	if m == nil {
		return
	}
	m.ReactionEvents.WithLabelValues(kind, outcome).Inc()
}

// Registration counts a reaction-role registration.
func (m *Metrics) Registration(outcome string) {
	if m == nil {
		return
	}
	m.Registrations.WithLabelValues(outcome).Inc()
}

// Command counts a command invocation.
func (m *Metrics) Command(name, outcome string) {
	if m == nil {
		return
	}
	m.Commands.WithLabelValues(name, outcome).Inc()
}

// Export records an export run.
func (m *Metrics) Export(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.Exports.WithLabelValues(outcome).Inc()
	m.ExportDuration.Observe(seconds)
}

// WatchPool exposes queue depth and busy workers of p as gauges.
func (m *Metrics) WatchPool(p *workerpool.Pool) {
	if m == nil {
		return
	}
	name := p.Stats().Name
	f := promauto.With(m.reg)
	f.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace:   namespace,
		Subsystem:   "workerpool",
		Name:        "queued_tasks",
		Help:        "Tasks waiting in the worker pool queue.",
		ConstLabels: prometheus.Labels{"pool": name},
	}, func() float64 { return float64(p.Stats().QueuedTasks) })
	f.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace:   namespace,
		Subsystem:   "workerpool",
		Name:        "active_workers",
		Help:        "Workers currently running a task.",
		ConstLabels: prometheus.Labels{"pool": name},
	}, func() float64 { return float64(p.Stats().ActiveWorkers) })
	f.NewCounterFunc(prometheus.CounterOpts{
		Namespace:   namespace,
		Subsystem:   "workerpool",
		Name:        "rejected_tasks_total",
		Help:        "Tasks dropped because the queue was full or the pool stopped.",
		ConstLabels: prometheus.Labels{"pool": name},
	}, func() float64 { return float64(p.Stats().RejectedTasks) })
}
