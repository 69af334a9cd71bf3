package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics 审批流程指标
type Metrics struct {
	Transitions    *prometheus.CounterVec
	Rejections     *prometheus.CounterVec
	EffectFailures *prometheus.CounterVec
	registry       *prometheus.Registry
}

// New 创建指标并注册到独立 registry
func New() *Metrics {
	m := &Metrics{
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "phd_workflow",
			Name:      "transitions_total",
			Help:      "已提交的状态转移次数",
		}, []string{"workflow", "action", "from", "to"}),
		Rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "phd_workflow",
			Name:      "guard_rejections_total",
			Help:      "被守卫拒绝的动作次数（按错误分类）",
		}, []string{"workflow", "action", "kind"}),
		EffectFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "phd_workflow",
			Name:      "effect_failures_total",
			Help:      "提交后副作用执行失败次数",
		}, []string{"effect"}),
		registry: prometheus.NewRegistry(),
	}
	m.registry.MustRegister(
		m.Transitions,
		m.Rejections,
		m.EffectFailures,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry 供 /metrics 暴露
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// ObserveTransition 记录一次转移
func (m *Metrics) ObserveTransition(workflow, action, from, to string) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(workflow, action, from, to).Inc()
}

// ObserveRejection 记录一次守卫拒绝
func (m *Metrics) ObserveRejection(workflow, action, kind string) {
	if m == nil {
		return
	}
	m.Rejections.WithLabelValues(workflow, action, kind).Inc()
}

// ObserveEffectFailure 记录一次副作用失败
func (m *Metrics) ObserveEffectFailure(effect string) {
	if m == nil {
		return
	}
	m.EffectFailures.WithLabelValues(effect).Inc()
}
