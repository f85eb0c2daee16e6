package exchange

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
	"github.com/wyfcoding/tradeportal/internal/trading/domain"
	"github.com/wyfcoding/tradeportal/pkg/logger"
	"github.com/wyfcoding/tradeportal/pkg/metrics"
)

// BreakerConfig 熔断配置
type BreakerConfig struct {
	// 连续失败达到该次数后打开
	FailureThreshold uint32
	// 打开状态持续时间，之后进入半开
	OpenTimeout time.Duration
}

// BreakerClient 为报价与执行分别加熔断，并记录调用耗时
type BreakerClient struct {
	next    domain.PricingPort
	price   *gobreaker.CircuitBreaker
	execute *gobreaker.CircuitBreaker
	metrics *metrics.Metrics
}

// NewBreakerClient 包装 next。m 可为 nil
func NewBreakerClient(next domain.PricingPort, cfg BreakerConfig, m *metrics.Metrics) *BreakerClient {
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	return &BreakerClient{
		next:    next,
		price:   gobreaker.NewCircuitBreaker(settings("exchange-price", cfg, m)),
		execute: gobreaker.NewCircuitBreaker(settings("exchange-execute", cfg, m)),
		metrics: m,
	}
}

func settings(name string, cfg BreakerConfig, m *metrics.Metrics) gobreaker.Settings {
	return gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn(context.Background(), "exchange circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
			if m != nil {
				m.BreakerTransitions.WithLabelValues(name, to.String()).Inc()
			}
		},
	}
}

var _ domain.PricingPort = (*BreakerClient)(nil)

func (c *BreakerClient) GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	start := time.Now()
	out, err := c.price.Execute(func() (interface{}, error) {
		return c.next.GetPrice(ctx, symbol)
	})
	c.observe("get_price", start, err)
	if err != nil {
		return decimal.Zero, err
	}
	return out.(decimal.Decimal), nil
}

func (c *BreakerClient) ExecuteOrder(ctx context.Context, symbol string, quantity int64) (string, error) {
	start := time.Now()
	out, err := c.execute.Execute(func() (interface{}, error) {
		return c.next.ExecuteOrder(ctx, symbol, quantity)
	})
	c.observe("execute", start, err)
	if err != nil {
		return "", err
	}
	return out.(string), nil
}

// State 返回两个熔断器的当前状态，供健康检查使用
func (c *BreakerClient) State() (price, execute gobreaker.State) {
	return c.price.State(), c.execute.State()
}

func (c *BreakerClient) observe(op string, start time.Time, err error) {
	if c.metrics == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.metrics.ExchangeDuration.WithLabelValues(op, result).Observe(time.Since(start).Seconds())
}
