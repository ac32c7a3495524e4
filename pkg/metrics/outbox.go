package metrics

import "github.com/prometheus/client_golang/prometheus"

// Publish outcomes used as label values.
const (
	PublishPublished    = "published"
	PublishRetried      = "retried"
	PublishDeadLettered = "dead_lettered"
)

// PublisherMetrics counts outbox rows handled by the publisher.
type PublisherMetrics struct {
	events  *prometheus.CounterVec
	batches prometheus.Counter
}

// NewPublisherMetrics registers publisher counters on reg. A nil registerer yields no-op metrics.
func NewPublisherMetrics(reg prometheus.Registerer) *PublisherMetrics {
	if reg == nil {
		return &PublisherMetrics{}
	}
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "outbox_events_total",
		Help:      "Outbox rows handled by the publisher by event type and outcome.",
	}, []string{"event_type", "outcome"})
	batches := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "outbox_batches_total",
		Help:      "Non-empty outbox batches drained by the publisher.",
	})
	reg.MustRegister(events, batches)
	return &PublisherMetrics{events: events, batches: batches}
}

func (m *PublisherMetrics) IncEvent(eventType, outcome string) {
	if m == nil || m.events == nil {
		return
	}
	m.events.WithLabelValues(normalizeLabel(eventType), normalizeLabel(outcome)).Inc()
}

func (m *PublisherMetrics) IncBatch() {
	if m == nil || m.batches == nil {
		return
	}
	m.batches.Inc()
}
