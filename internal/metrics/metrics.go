// Package metrics 暴露 pipeline 的 Prometheus 指标
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "devpulse"

// 回落到本地数据的原因
const (
	ReasonConfigured     = "configured"
	ReasonForced         = "forced"
	ReasonConfigError    = "config_error"
	ReasonTransportError = "transport_error"
	ReasonEmpty          = "empty"
	ReasonWindowEmpty    = "window_empty"
)

// Metrics nil 时所有 Record 方法都是空操作，测试里可以不传
type Metrics struct {
	registry *prometheus.Registry

	Fallbacks *prometheus.CounterVec
	Duration  *prometheus.HistogramVec
	Items     *prometheus.GaugeVec
}

// New 在独立的 registry 上注册指标，避免全局 registry 在测试中重复注册
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return NewWithRegistry(reg)
}

func NewWithRegistry(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		Fallbacks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "fallbacks_total",
			Help:      "Pipeline invocations that served local mock data, by reason",
		}, []string{"reason"}),
		Duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "duration_seconds",
			Help:      "Time spent in one pipeline invocation",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"mode"}),
		Items: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "items",
			Help:      "Items returned by the last pipeline invocation",
		}, []string{"mode"}),
	}
}

func (m *Metrics) RecordFallback(reason string) {
	if m == nil {
		return
	}
	m.Fallbacks.WithLabelValues(reason).Inc()
}

// RecordInvocation mode 为 "live" 或 "mock"
func (m *Metrics) RecordInvocation(mode string, d time.Duration, items int) {
	if m == nil {
		return
	}
	m.Duration.WithLabelValues(mode).Observe(d.Seconds())
	m.Items.WithLabelValues(mode).Set(float64(items))
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler /metrics 的处理器
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
