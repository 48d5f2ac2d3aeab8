package intercom

import "github.com/prometheus/client_golang/prometheus"

// Metrics 记录 channel 的关键指标。
type Metrics struct {
	requestsTotal      *prometheus.CounterVec
	requestLatency     *prometheus.HistogramVec
	notificationsTotal *prometheus.CounterVec
	reconnectsTotal    prometheus.Counter
	inflight           prometheus.Gauge
}

// NewMetrics 构造 Metrics，reg 为空则注册到默认注册器。
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "front_channel_requests_total",
			Help: "Requests sent over the authority channel",
		}, []string{"type", "outcome"}),
		requestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "front_channel_request_latency_ms",
			Help:    "Round trip latency of channel requests in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 5000, 30000},
		}, []string{"type"}),
		notificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "front_channel_notifications_total",
			Help: "Push notifications received from the authority",
		}, []string{"kind"}),
		reconnectsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "front_channel_reconnects_total",
			Help: "Number of channel reconnect attempts",
		}),
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "front_channel_inflight_requests",
			Help: "Requests currently awaiting a reply",
		}),
	}
	reg.MustRegister(m.requestsTotal, m.requestLatency, m.notificationsTotal, m.reconnectsTotal, m.inflight)
	return m
}

func (m *Metrics) observeRequest(msgType string, outcome string, durMs float64) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(labelOrUnknown(msgType), labelOrUnknown(outcome)).Inc()
	m.requestLatency.WithLabelValues(labelOrUnknown(msgType)).Observe(durMs)
}

func (m *Metrics) incNotification(kind string) {
	if m == nil {
		return
	}
	m.notificationsTotal.WithLabelValues(labelOrUnknown(kind)).Inc()
}

func (m *Metrics) incReconnect() {
	if m == nil {
		return
	}
	m.reconnectsTotal.Inc()
}

func (m *Metrics) addInflight(delta float64) {
	if m == nil {
		return
	}
	m.inflight.Add(delta)
}

func labelOrUnknown(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
