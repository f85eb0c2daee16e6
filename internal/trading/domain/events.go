package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// 订单事件类型
const (
	EventOrderExecuted = "order.executed"
	EventOrderFailed   = "order.failed"
)

// OrderEvent 订单进入终态后对外发布的事件
type OrderEvent struct {
	EventType       string          `json:"event_type"`
	OrderID         string          `json:"order_id"`
	AccountID       string          `json:"account_id"`
	Symbol          string          `json:"symbol"`
	Quantity        int64           `json:"quantity"`
	PricePerShare   decimal.Decimal `json:"price_per_share"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	Status          OrderStatus     `json:"status"`
	ExchangeOrderID string          `json:"exchange_order_id,omitempty"`
	ErrorMessage    string          `json:"error_message,omitempty"`
	OccurredAt      time.Time       `json:"occurred_at"`
}

// NewOrderEvent 根据订单终态构造事件
func NewOrderEvent(order *Order, at time.Time) OrderEvent {
	eventType := EventOrderExecuted
	if order.Status == OrderStatusFailed {
		eventType = EventOrderFailed
	}
	return OrderEvent{
		EventType:       eventType,
		OrderID:         order.OrderID,
		AccountID:       order.AccountID,
		Symbol:          order.Symbol,
		Quantity:        order.Quantity,
		PricePerShare:   order.PricePerShare,
		TotalAmount:     order.TotalAmount,
		Status:          order.Status,
		ExchangeOrderID: order.ExchangeOrderID,
		ErrorMessage:    order.ErrorMessage,
		OccurredAt:      at,
	}
}

// EventPublisher 事件发布。在事务提交后调用，失败不影响订单结果
type EventPublisher interface {
	Publish(ctx context.Context, event OrderEvent) error
}
