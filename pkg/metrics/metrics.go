// Package metrics 提供 Prometheus 指标定义与注册
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 下单结果标签
const (
	OutcomeExecuted          = "executed"
	OutcomeExecutionFailed   = "execution_failed"
	OutcomeReplayed          = "replayed"
	OutcomeInsufficientFunds = "insufficient_funds"
	OutcomeAccountNotFound   = "account_not_found"
	OutcomePriceUnavailable  = "price_unavailable"
	OutcomeError             = "error"
)

// Metrics 服务指标集合
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// 下单结果计数
	OrdersPlaced *prometheus.CounterVec
	// 下单耗时（含报价与执行）
	PlacementDuration prometheus.Histogram
	// 交易所调用耗时
	ExchangeDuration *prometheus.HistogramVec
	// 熔断器状态变化
	BreakerTransitions *prometheus.CounterVec
}

// New 创建指标实例，namespace 通常为服务名
func New(namespace string) *Metrics {
	return &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		OrdersPlaced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_placed_total",
			Help:      "Order placement attempts by outcome",
		}, []string{"outcome"}),
		PlacementDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "order_placement_duration_seconds",
			Help:      "End to end order placement duration",
			Buckets:   prometheus.DefBuckets,
		}),
		ExchangeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "exchange_call_duration_seconds",
			Help:      "Exchange call duration by operation",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation", "result"}),
		BreakerTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exchange_breaker_transitions_total",
			Help:      "Exchange circuit breaker state changes",
		}, []string{"breaker", "to"}),
	}
}

// Register 将所有指标注册到 reg
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.OrdersPlaced,
		m.PlacementDuration,
		m.ExchangeDuration,
		m.BreakerTransitions,
	} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Handler 返回暴露 reg 中指标的 HTTP handler
func Handler(reg prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
