package metrics

import "github.com/prometheus/client_golang/prometheus"

// WebhookMetrics exposes counters/histograms for the bot callback flow.
type WebhookMetrics struct {
	inboundTotal   *prometheus.CounterVec
	repliesTotal   *prometheus.CounterVec
	handleLatency  *prometheus.HistogramVec
	activeSessions prometheus.Gauge
}

func NewWebhookMetrics(reg prometheus.Registerer) *WebhookMetrics {
	m := &WebhookMetrics{
		inboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reservebot",
			Subsystem: "webhook",
			Name:      "inbound_total",
			Help:      "Total inbound bot callback events",
		}, []string{"event_type", "status"}),
		repliesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reservebot",
			Subsystem: "webhook",
			Name:      "replies_total",
			Help:      "Total outbound reply pushes",
		}, []string{"status"}),
		handleLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "reservebot",
			Subsystem: "webhook",
			Name:      "handle_latency_seconds",
			Help:      "Latency of callback handling including the dialog engine",
			Buckets:   prometheus.DefBuckets,
		}, []string{"event_type"}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "reservebot",
			Subsystem: "dialog",
			Name:      "active_sessions",
			Help:      "Dialog sessions currently held in memory",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.inboundTotal, m.repliesTotal, m.handleLatency, m.activeSessions)
	return m
}

func (m *WebhookMetrics) ObserveInbound(eventType, status string) {
	if m == nil {
		return
	}
	m.inboundTotal.WithLabelValues(eventType, status).Inc()
}

func (m *WebhookMetrics) ObserveReply(status string) {
	if m == nil {
		return
	}
	m.repliesTotal.WithLabelValues(status).Inc()
}

func (m *WebhookMetrics) ObserveHandleLatency(eventType string, seconds float64) {
	if m == nil {
		return
	}
	m.handleLatency.WithLabelValues(eventType).Observe(seconds)
}

func (m *WebhookMetrics) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.activeSessions.Set(float64(n))
}
