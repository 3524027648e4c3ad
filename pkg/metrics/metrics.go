package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "restaurant"

// Metrics holds every collector the services export. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	orderTransitions  *prometheus.CounterVec
	webhookDeliveries *prometheus.CounterVec
	outboxEvents      *prometheus.CounterVec
	liveClients       prometheus.Gauge
	liveDropped       prometheus.Counter
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		orderTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_transitions_total",
			Help:      "Order status changes by source and target status.",
		}, []string{"from", "to"}),
		webhookDeliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_deliveries_total",
			Help:      "Webhook delivery attempts by event type and result.",
		}, []string{"event", "result"}),
		outboxEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_events_total",
			Help:      "Outbox events handled by the relay, by publisher and result.",
		}, []string{"publisher", "result"}),
		liveClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live_clients",
			Help:      "Connected WebSocket clients.",
		}),
		liveDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "live_messages_dropped_total",
			Help:      "Messages dropped because a client send buffer was full.",
		}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.orderTransitions,
		m.webhookDeliveries,
		m.outboxEvents,
		m.liveClients,
		m.liveDropped,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

func (m *Metrics) OrderTransition(from, to string) {
	if m == nil {
		return
	}
	m.orderTransitions.WithLabelValues(from, to).Inc()
}

func (m *Metrics) WebhookDelivery(event, result string) {
	if m == nil {
		return
	}
	m.webhookDeliveries.WithLabelValues(event, result).Inc()
}

func (m *Metrics) OutboxEvent(publisher, result string) {
	if m == nil {
		return
	}
	m.outboxEvents.WithLabelValues(publisher, result).Inc()
}

func (m *Metrics) LiveClients(n int) {
	if m == nil {
		return
	}
	m.liveClients.Set(float64(n))
}

func (m *Metrics) LiveDropped() {
	if m == nil {
		return
	}
	m.liveDropped.Inc()
}

// WebhookDeliveries exposes the delivery counter for assertions.
func (m *Metrics) WebhookDeliveries() *prometheus.CounterVec {
	return m.webhookDeliveries
}
