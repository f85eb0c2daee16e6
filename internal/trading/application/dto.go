package application

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/tradeportal/internal/trading/domain"
)

// OrderDTO 订单结果
type OrderDTO struct {
	OrderID         string          `json:"order_id"`
	AccountID       string          `json:"account_id"`
	Symbol          string          `json:"symbol"`
	OrderType       string          `json:"order_type"`
	Quantity        int64           `json:"quantity"`
	PricePerShare   decimal.Decimal `json:"price_per_share"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	Status          string          `json:"status"`
	ExchangeOrderID string          `json:"exchange_order_id,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	ExecutedAt      *time.Time      `json:"executed_at,omitempty"`
	ErrorMessage    string          `json:"error_message,omitempty"`
}

// PositionDTO 持仓展示，市值按当前价计算
type PositionDTO struct {
	Symbol       string          `json:"symbol"`
	Quantity     int64           `json:"quantity"`
	AveragePrice decimal.Decimal `json:"average_price"`
	CurrentPrice decimal.Decimal `json:"current_price"`
	MarketValue  decimal.Decimal `json:"market_value"`
	// 浮动盈亏 = 市值 - 成本
	UnrealizedPnL decimal.Decimal `json:"unrealized_pnl"`
	// 报价不可用时以均价代替
	PriceStale bool `json:"price_stale,omitempty"`
}

// AccountDTO 账户概览
type AccountDTO struct {
	AccountID   string          `json:"account_id"`
	ClientID    string          `json:"client_id"`
	CashBalance decimal.Decimal `json:"cash_balance"`
	Currency    string          `json:"currency"`
	Positions   []PositionDTO   `json:"positions"`
	// 现金 + 持仓市值
	TotalValue decimal.Decimal `json:"total_value"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// BalanceDTO 现金余额
type BalanceDTO struct {
	AccountID   string          `json:"account_id"`
	CashBalance decimal.Decimal `json:"cash_balance"`
	Currency    string          `json:"currency"`
	Display     string          `json:"display"`
}

// QuoteDTO 报价
type QuoteDTO struct {
	Symbol string          `json:"symbol"`
	Price  decimal.Decimal `json:"price"`
	AsOf   time.Time       `json:"as_of"`
}

// ValidationResultDTO 下单前校验结果
type ValidationResultDTO struct {
	IsValid      bool            `json:"is_valid"`
	Errors       []string        `json:"errors"`
	CurrentPrice decimal.Decimal `json:"current_price"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
}

// PagedOrdersDTO 订单分页结果
type PagedOrdersDTO struct {
	Items      []*OrderDTO `json:"items"`
	PageNumber int         `json:"page_number"`
	PageSize   int         `json:"page_size"`
	TotalCount int64       `json:"total_count"`
	TotalPages int64       `json:"total_pages"`
}

func toOrderDTO(o *domain.Order) *OrderDTO {
	if o == nil {
		return nil
	}
	return &OrderDTO{
		OrderID:         o.OrderID,
		AccountID:       o.AccountID,
		Symbol:          o.Symbol,
		OrderType:       string(o.Type),
		Quantity:        o.Quantity,
		PricePerShare:   o.PricePerShare,
		TotalAmount:     o.TotalAmount,
		Status:          string(o.Status),
		ExchangeOrderID: o.ExchangeOrderID,
		CreatedAt:       o.CreatedAt,
		ExecutedAt:      o.ExecutedAt,
		ErrorMessage:    o.ErrorMessage,
	}
}

// toPositionDTO 市值与盈亏按账户货币最小单位舍入
func toPositionDTO(p *domain.StockPosition, price decimal.Decimal, stale bool, places int32) PositionDTO {
	marketValue := p.MarketValue(price).Round(places)
	cost := p.MarketValue(p.AveragePrice).Round(places)
	return PositionDTO{
		Symbol:        p.Symbol,
		Quantity:      p.Quantity,
		AveragePrice:  p.AveragePrice,
		CurrentPrice:  price,
		MarketValue:   marketValue,
		UnrealizedPnL: marketValue.Sub(cost),
		PriceStale:    stale,
	}
}
