package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics agrupa los colectores del chat en un registry propio (los tests crean uno por caso).
// Todos los metodos aceptan receptor nil.
type Metrics struct {
	registry         *prometheus.Registry
	persisted        *prometheus.CounterVec
	deliveryFailures *prometheus.CounterVec
	liveConnections  prometheus.Gauge
	uploads          *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		persisted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chat_messages_persisted_total",
			Help: "Chat messages stored, by ingress path.",
		}, []string{"path"}),
		deliveryFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chat_delivery_failures_total",
			Help: "Delivery pipeline failures, by stage.",
		}, []string{"stage"}),
		liveConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "chat_live_connections",
			Help: "Currently open websocket connections.",
		}),
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chat_attachment_uploads_total",
			Help: "Attachment uploads, by outcome.",
		}, []string{"outcome"}),
	}
	m.registry.MustRegister(
		m.persisted,
		m.deliveryFailures,
		m.liveConnections,
		m.uploads,
		prometheus.NewGoCollector(),
	)
	return m
}

func (m *Metrics) MessagePersisted(path string) {
	if m == nil {
		return
	}
	m.persisted.WithLabelValues(path).Inc()
}

func (m *Metrics) DeliveryFailed(stage string) {
	if m == nil {
		return
	}
	m.deliveryFailures.WithLabelValues(stage).Inc()
}

func (m *Metrics) ConnectionOpened() {
	if m == nil {
		return
	}
	m.liveConnections.Inc()
}

func (m *Metrics) ConnectionClosed() {
	if m == nil {
		return
	}
	m.liveConnections.Dec()
}

func (m *Metrics) Upload(outcome string) {
	if m == nil {
		return
	}
	m.uploads.WithLabelValues(outcome).Inc()
}

// ObserveRouter publica el estado del router en vivo como gauges leidos en cada scrape.
// stats debe devolver las claves subscribers, active_rooms y active_channels.
func (m *Metrics) ObserveRouter(stats func() map[string]int) {
	if m == nil || stats == nil {
		return
	}
	gauge := func(name, help, key string) prometheus.Collector {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{Name: name, Help: help}, func() float64 {
			return float64(stats()[key])
		})
	}
	m.registry.MustRegister(
		gauge("chat_router_subscribers", "Subscribers known to the live router.", "subscribers"),
		gauge("chat_active_rooms", "Rooms with at least one subscriber.", "active_rooms"),
		gauge("chat_active_channels", "Mentor channels with at least one watcher.", "active_channels"),
	)
}

// Handler expone el registry en formato Prometheus.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Collectors de solo lectura para asserts en tests.
func (m *Metrics) PersistedCounter(path string) prometheus.Counter {
	return m.persisted.WithLabelValues(path)
}

func (m *Metrics) FailureCounter(stage string) prometheus.Counter {
	return m.deliveryFailures.WithLabelValues(stage)
}

func (m *Metrics) LiveConnections() prometheus.Gauge {
	return m.liveConnections
}
