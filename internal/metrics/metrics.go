package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/advisio/messaging-core/internal/broker"
	"github.com/advisio/messaging-core/internal/domain"
)

// Metrics groups all Prometheus instruments used across the application.
// Registered once at startup via New(); passed by pointer wherever needed.
type Metrics struct {
	MessagesPublished *prometheus.CounterVec
	MessagesProcessed *prometheus.CounterVec
	ProcessingLatency *prometheus.HistogramVec
	BrokerReconnects  prometheus.Counter
	DeadLetterDepth   prometheus.Gauge
	JobsFired         prometheus.Counter
	JobsFailed        prometheus.Counter
}

// New registers all instruments with the given Prometheus registerer and
// returns the populated Metrics struct.
// Using a custom registry (instead of prometheus.DefaultRegisterer) keeps
// tests isolated and avoids global state.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		MessagesPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "queue_messages_published_total",
			Help: "Total number of messages published per queue.",
		}, []string{"queue"}),

		MessagesProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "queue_messages_processed_total",
			Help: "Total number of consumed deliveries per queue and settlement outcome.",
		}, []string{"queue", "outcome"}),

		ProcessingLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "queue_processing_seconds",
			Help:    "Handler latency from dequeue to settlement.",
			Buckets: prometheus.DefBuckets,
		}, []string{"queue"}),

		BrokerReconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "broker_reconnects_total",
			Help: "Total number of successful broker re-dials after a lost connection.",
		}),

		DeadLetterDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dead_letter_queue_depth",
			Help: "Current number of messages parked in the dead-letter queue.",
		}),

		JobsFired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scheduled_jobs_fired_total",
			Help: "Total number of delayed jobs fired successfully.",
		}),
		JobsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scheduled_jobs_failed_total",
			Help: "Total number of delayed jobs parked after exhausting retries.",
		}),
	}

	reg.MustRegister(
		m.MessagesPublished,
		m.MessagesProcessed,
		m.ProcessingLatency,
		m.BrokerReconnects,
		m.DeadLetterDepth,
		m.JobsFired,
		m.JobsFailed,
	)

	return m
}

// PublishHook returns the callback the broker publisher invokes per message.
func (m *Metrics) PublishHook() func(domain.Queue) {
	return func(q domain.Queue) {
		m.MessagesPublished.WithLabelValues(string(q)).Inc()
	}
}

// ConsumeHook returns the callback the consumers invoke per settled delivery.
// Centralises the prometheus observation calls so the broker package stays
// free of metric imports.
func (m *Metrics) ConsumeHook() func(domain.Queue, broker.Outcome, time.Duration) {
	return func(q domain.Queue, outcome broker.Outcome, elapsed time.Duration) {
		m.MessagesProcessed.WithLabelValues(string(q), string(outcome)).Inc()
		m.ProcessingLatency.WithLabelValues(string(q)).Observe(elapsed.Seconds())
	}
}

// ReconnectHook returns the callback counting broker re-dials.
func (m *Metrics) ReconnectHook() func() {
	return func() { m.BrokerReconnects.Inc() }
}
