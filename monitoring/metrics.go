// Package monitoring 提供预测服务的 Prometheus 指标
package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 预测结果类型
const (
	OutcomeFound    = "found"
	OutcomeNotFound = "not_found"
	OutcomeInvalid  = "invalid"
)

// Metrics 指标收集器
type Metrics struct {
	registry    *prometheus.Registry
	predictions *prometheus.CounterVec
	duration    prometheus.Histogram
	dishes      prometheus.Gauge
	reloads     *prometheus.CounterVec
}

// NewMetrics 创建指标收集器，使用独立的 registry
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nutripredict_predictions_total",
			Help: "Prediction requests by outcome.",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "nutripredict_predict_duration_seconds",
			Help:    "Time spent matching and predicting a dish.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		dishes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "nutripredict_artifact_dishes",
			Help: "Dish names in the loaded artifact.",
		}),
		reloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nutripredict_artifact_reloads_total",
			Help: "Artifact reload attempts by result.",
		}, []string{"result"}),
	}

	m.registry.MustRegister(
		m.predictions,
		m.duration,
		m.dishes,
		m.reloads,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObservePrediction 记录一次预测
func (m *Metrics) ObservePrediction(outcome string, elapsed time.Duration) {
	m.predictions.WithLabelValues(outcome).Inc()
	m.duration.Observe(elapsed.Seconds())
}

// SetDishes 更新当前模型的菜品数量
func (m *Metrics) SetDishes(n int) {
	m.dishes.Set(float64(n))
}

// ObserveReload 记录一次模型重载
func (m *Metrics) ObserveReload(err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.reloads.WithLabelValues(result).Inc()
}

// Handler 返回 /metrics 处理器
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
