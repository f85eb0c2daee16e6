package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderType 订单方向
type OrderType string

const (
	OrderTypeBuy  OrderType = "Buy"
	OrderTypeSell OrderType = "Sell"
)

// OrderStatus 订单状态
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "Pending"
	OrderStatusExecuted  OrderStatus = "Executed"
	OrderStatusFailed    OrderStatus = "Failed"
	OrderStatusCancelled OrderStatus = "Cancelled"
)

// Order 订单实体。创建时为 Pending，只会迁移一次到 Executed 或 Failed
type Order struct {
	OrderID         string
	AccountID       string
	Symbol          string
	Type            OrderType
	Quantity        int64
	PricePerShare   decimal.Decimal
	TotalAmount     decimal.Decimal
	Status          OrderStatus
	ExchangeOrderID string
	ErrorMessage    string
	CreatedAt       time.Time
	ExecutedAt      *time.Time
	IdempotencyKey  string
}

// NewBuyOrder 创建待执行的买单
func NewBuyOrder(orderID, accountID, symbol string, quantity int64, price, total decimal.Decimal, idempotencyKey string, now time.Time) *Order {
	return &Order{
		OrderID:        orderID,
		AccountID:      accountID,
		Symbol:         symbol,
		Type:           OrderTypeBuy,
		Quantity:       quantity,
		PricePerShare:  price,
		TotalAmount:    total,
		Status:         OrderStatusPending,
		CreatedAt:      now,
		IdempotencyKey: idempotencyKey,
	}
}

// MarkExecuted 标记为已成交
func (o *Order) MarkExecuted(exchangeOrderID string, at time.Time) error {
	if o.Status != OrderStatusPending {
		return ErrInvalidOrderState
	}
	o.Status = OrderStatusExecuted
	o.ExchangeOrderID = exchangeOrderID
	o.ExecutedAt = &at
	return nil
}

// MarkFailed 标记为执行失败
func (o *Order) MarkFailed(reason string) error {
	if o.Status != OrderStatusPending {
		return ErrInvalidOrderState
	}
	o.Status = OrderStatusFailed
	o.ErrorMessage = reason
	return nil
}

// IsTerminal 是否处于终态
func (o *Order) IsTerminal() bool {
	return o.Status != OrderStatusPending
}
