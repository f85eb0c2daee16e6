// Package exchange 交易所适配：模拟交易所与熔断装饰
package exchange

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/wyfcoding/tradeportal/internal/trading/domain"
	"github.com/wyfcoding/tradeportal/pkg/logger"
)

var mockPrices = map[string]decimal.Decimal{
	"AAPL":  decimal.RequireFromString("175.50"),
	"MSFT":  decimal.RequireFromString("380.25"),
	"GOOGL": decimal.RequireFromString("140.75"),
	"AMZN":  decimal.RequireFromString("145.30"),
	"TSLA":  decimal.RequireFromString("245.60"),
}

var defaultPrice = decimal.RequireFromString("100.00")

// StubConfig 模拟交易所配置
type StubConfig struct {
	NodeID int64
	// 拒绝执行的代码，用于演练执行失败路径
	RejectSymbols []string
	// 模拟网络延迟
	PriceLatency   time.Duration
	ExecuteLatency time.Duration
}

// StubClient 模拟交易所：固定报价表，执行时生成交易所订单号
type StubClient struct {
	node           *snowflake.Node
	reject         map[string]struct{}
	priceLatency   time.Duration
	executeLatency time.Duration
}

// NewStubClient 创建模拟交易所
func NewStubClient(cfg StubConfig) (*StubClient, error) {
	node, err := snowflake.NewNode(cfg.NodeID)
	if err != nil {
		return nil, fmt.Errorf("failed to create snowflake node: %w", err)
	}
	reject := make(map[string]struct{}, len(cfg.RejectSymbols))
	for _, s := range cfg.RejectSymbols {
		reject[strings.ToUpper(s)] = struct{}{}
	}
	return &StubClient{
		node:           node,
		reject:         reject,
		priceLatency:   cfg.PriceLatency,
		executeLatency: cfg.ExecuteLatency,
	}, nil
}

var _ domain.PricingPort = (*StubClient)(nil)

// GetPrice 返回报价表中的价格，未收录的代码报 100.00
func (c *StubClient) GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	if err := sleep(ctx, c.priceLatency); err != nil {
		return decimal.Zero, err
	}
	if p, ok := mockPrices[strings.ToUpper(symbol)]; ok {
		return p, nil
	}
	return defaultPrice, nil
}

// ExecuteOrder 模拟执行，返回 EXC- 前缀的交易所订单号
func (c *StubClient) ExecuteOrder(ctx context.Context, symbol string, quantity int64) (string, error) {
	if err := sleep(ctx, c.executeLatency); err != nil {
		return "", err
	}
	if _, ok := c.reject[strings.ToUpper(symbol)]; ok {
		return "", fmt.Errorf("exchange rejected order for %s", symbol)
	}
	id := "EXC-" + strings.ToUpper(c.node.Generate().Base36())
	logger.Info(ctx, "Order executed on exchange", "symbol", symbol, "quantity", quantity, "exchange_order_id", id)
	return id, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
