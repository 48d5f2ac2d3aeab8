package confirm

import "github.com/prometheus/client_golang/prometheus"

// Metrics 记录确认状态机的关键指标。
type Metrics struct {
	surfacedTotal  prometheus.Counter
	foreignTotal   prometheus.Counter
	duplicateTotal prometheus.Counter
	expiredTotal   prometheus.Counter
	queueDropTotal prometheus.Counter
	pendingGauge   prometheus.Gauge
}

// NewMetrics 构造 Metrics，reg 为空则注册到默认注册器。
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		surfacedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "front_confirm_surfaced_total",
			Help: "Confirmations surfaced to the presentation layer",
		}),
		foreignTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "front_confirm_foreign_dropped_total",
			Help: "Confirmation notifications dropped due to id mismatch",
		}),
		duplicateTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "front_confirm_duplicate_total",
			Help: "Duplicate confirmation notifications ignored",
		}),
		expiredTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "front_confirm_expired_total",
			Help: "Tracked confirmations expired by the authority",
		}),
		queueDropTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "front_confirm_queue_dropped_total",
			Help: "Notifications dropped because the watcher queue was full",
		}),
		pendingGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "front_confirm_pending",
			Help: "Whether a confirmation is currently awaiting a decision",
		}),
	}
	reg.MustRegister(m.surfacedTotal, m.foreignTotal, m.duplicateTotal, m.expiredTotal, m.queueDropTotal, m.pendingGauge)
	return m
}

func (m *Metrics) incSurfaced() {
	if m == nil {
		return
	}
	m.surfacedTotal.Inc()
	m.pendingGauge.Set(1)
}

func (m *Metrics) incForeign() {
	if m == nil {
		return
	}
	m.foreignTotal.Inc()
}

func (m *Metrics) incDuplicate() {
	if m == nil {
		return
	}
	m.duplicateTotal.Inc()
}

func (m *Metrics) incExpired() {
	if m == nil {
		return
	}
	m.expiredTotal.Inc()
}

func (m *Metrics) incQueueDrop() {
	if m == nil {
		return
	}
	m.queueDropTotal.Inc()
}

func (m *Metrics) clearPending() {
	if m == nil {
		return
	}
	m.pendingGauge.Set(0)
}
