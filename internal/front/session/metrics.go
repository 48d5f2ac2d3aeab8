package session

import "github.com/prometheus/client_golang/prometheus"

// Metrics 汇总会话层指标。nil 安全：零值接收者时所有方法为 no-op。
type Metrics struct {
	stateRefetches *prometheus.CounterVec
	gatedOps       *prometheus.CounterVec
	decisions      *prometheus.CounterVec
}

// NewMetrics 创建并注册会话指标。reg 为 nil 时使用默认注册表。
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		stateRefetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "front_session_state_refetch_total",
			Help: "Wallet state refetches triggered by notifications.",
		}, []string{"outcome"}),
		gatedOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "front_session_gated_total",
			Help: "Confirmation gated operations by type and outcome.",
		}, []string{"type", "outcome"}),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "front_session_decisions_total",
			Help: "Confirmation decisions submitted by the user.",
		}, []string{"type", "approved"}),
	}
	reg.MustRegister(m.stateRefetches, m.gatedOps, m.decisions)
	return m
}

func (m *Metrics) observeRefetch(outcome string) {
	if m == nil {
		return
	}
	m.stateRefetches.WithLabelValues(outcome).Inc()
}

func (m *Metrics) observeGated(opType, outcome string) {
	if m == nil {
		return
	}
	m.gatedOps.WithLabelValues(opType, outcome).Inc()
}

func (m *Metrics) observeDecision(opType string, approved bool) {
	if m == nil {
		return
	}
	v := "false"
	if approved {
		v = "true"
	}
	m.decisions.WithLabelValues(opType, v).Inc()
}
