package redis

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/tradeportal/internal/trading/domain"
	"github.com/wyfcoding/tradeportal/pkg/logger"
)

// JSONStore 缓存读写接口，由 pkg/cache.RedisCache 实现
type JSONStore interface {
	GetJSON(ctx context.Context, key string, dest any) (bool, error)
	SetJSON(ctx context.Context, key string, value any, expiration time.Duration) error
}

type cachedQuote struct {
	Price    decimal.Decimal `json:"price"`
	QuotedAt time.Time       `json:"quoted_at"`
}

// QuoteCache 报价读穿缓存，仅用于账户展示与报价查询；下单始终直接询价
type QuoteCache struct {
	next  domain.PricingPort
	store JSONStore
	ttl   time.Duration
}

// NewQuoteCache 创建报价缓存
func NewQuoteCache(next domain.PricingPort, store JSONStore, ttl time.Duration) *QuoteCache {
	return &QuoteCache{next: next, store: store, ttl: ttl}
}

func quoteKey(symbol string) string {
	return "trading:quote:" + symbol
}

// GetPrice 命中缓存直接返回；缓存异常时降级为直接询价
func (c *QuoteCache) GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	var q cachedQuote
	hit, err := c.store.GetJSON(ctx, quoteKey(symbol), &q)
	if err != nil {
		logger.Warn(ctx, "quote cache read failed", "symbol", symbol, "error", err)
	}
	if hit {
		return q.Price, nil
	}

	price, err := c.next.GetPrice(ctx, symbol)
	if err != nil {
		return decimal.Zero, err
	}
	if err := c.store.SetJSON(ctx, quoteKey(symbol), cachedQuote{Price: price, QuotedAt: time.Now().UTC()}, c.ttl); err != nil {
		logger.Warn(ctx, "quote cache write failed", "symbol", symbol, "error", err)
	}
	return price, nil
}

// ExecuteOrder 不缓存，直接转发
func (c *QuoteCache) ExecuteOrder(ctx context.Context, symbol string, quantity int64) (string, error) {
	return c.next.ExecuteOrder(ctx, symbol, quantity)
}
