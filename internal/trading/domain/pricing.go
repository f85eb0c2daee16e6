package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// PricingPort 报价与执行端口
type PricingPort interface {
	// GetPrice 获取代码的当前价格
	GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
	// ExecuteOrder 向交易所下单，返回交易所订单号
	ExecuteOrder(ctx context.Context, symbol string, quantity int64) (string, error)
}
