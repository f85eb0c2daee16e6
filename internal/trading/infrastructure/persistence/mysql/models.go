package mysql

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/tradeportal/internal/trading/domain"
)

// AccountModel 账户表
type AccountModel struct {
	AccountID   string          `gorm:"column:account_id;primaryKey;type:varchar(36)"`
	ClientID    string          `gorm:"column:client_id;type:varchar(36);not null;index"`
	CashBalance decimal.Decimal `gorm:"column:cash_balance;type:decimal(15,2);not null"`
	Currency    string          `gorm:"column:currency;type:varchar(3);not null"`
	CreatedAt   time.Time       `gorm:"column:created_at;not null;autoCreateTime:false"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;not null;autoUpdateTime:false"`
}

func (AccountModel) TableName() string { return "accounts" }

// PositionModel 持仓表，(account_id, symbol) 唯一
type PositionModel struct {
	PositionID   string          `gorm:"column:position_id;primaryKey;type:varchar(36)"`
	AccountID    string          `gorm:"column:account_id;type:varchar(36);not null;uniqueIndex:idx_position_account_symbol,priority:1"`
	Symbol       string          `gorm:"column:symbol;type:varchar(10);not null;uniqueIndex:idx_position_account_symbol,priority:2"`
	Quantity     int64           `gorm:"column:quantity;not null"`
	AveragePrice decimal.Decimal `gorm:"column:average_price;type:decimal(15,4);not null"`
	CreatedAt    time.Time       `gorm:"column:created_at;not null;autoCreateTime:false"`
	UpdatedAt    time.Time       `gorm:"column:updated_at;not null;autoUpdateTime:false"`
}

func (PositionModel) TableName() string { return "stock_positions" }

// OrderModel 订单表，idempotency_key 唯一
type OrderModel struct {
	OrderID         string          `gorm:"column:order_id;primaryKey;type:varchar(36)"`
	AccountID       string          `gorm:"column:account_id;type:varchar(36);not null;index:idx_orders_account_created,priority:1"`
	Symbol          string          `gorm:"column:symbol;type:varchar(10);not null"`
	OrderType       string          `gorm:"column:order_type;type:varchar(10);not null"`
	Quantity        int64           `gorm:"column:quantity;not null"`
	PricePerShare   decimal.Decimal `gorm:"column:price_per_share;type:decimal(15,4);not null"`
	TotalAmount     decimal.Decimal `gorm:"column:total_amount;type:decimal(15,2);not null"`
	Status          string          `gorm:"column:status;type:varchar(20);not null"`
	ExchangeOrderID *string         `gorm:"column:exchange_order_id;type:varchar(64)"`
	ErrorMessage    *string         `gorm:"column:error_message;type:varchar(500)"`
	CreatedAt       time.Time       `gorm:"column:created_at;not null;autoCreateTime:false;index:idx_orders_account_created,priority:2"`
	ExecutedAt      *time.Time      `gorm:"column:executed_at"`
	IdempotencyKey  string          `gorm:"column:idempotency_key;type:varchar(100);not null;uniqueIndex:idx_orders_idempotency_key"`
}

func (OrderModel) TableName() string { return "orders" }

// TransactionModel 资金流水表
type TransactionModel struct {
	TransactionID   string          `gorm:"column:transaction_id;primaryKey;type:varchar(36)"`
	AccountID       string          `gorm:"column:account_id;type:varchar(36);not null;index"`
	OrderID         string          `gorm:"column:order_id;type:varchar(36);not null;index"`
	TransactionType string          `gorm:"column:transaction_type;type:varchar(10);not null"`
	Amount          decimal.Decimal `gorm:"column:amount;type:decimal(15,2);not null"`
	BalanceBefore   decimal.Decimal `gorm:"column:balance_before;type:decimal(15,2);not null"`
	BalanceAfter    decimal.Decimal `gorm:"column:balance_after;type:decimal(15,2);not null"`
	CreatedAt       time.Time       `gorm:"column:created_at;not null;autoCreateTime:false"`
}

func (TransactionModel) TableName() string { return "transactions" }

func toAccountModel(a *domain.Account) *AccountModel {
	return &AccountModel{
		AccountID:   a.AccountID,
		ClientID:    a.ClientID,
		CashBalance: a.CashBalance,
		Currency:    a.Currency,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}

func toAccount(m *AccountModel, positions []PositionModel) *domain.Account {
	a := &domain.Account{
		AccountID:   m.AccountID,
		ClientID:    m.ClientID,
		CashBalance: m.CashBalance,
		Currency:    m.Currency,
		Positions:   make(map[string]*domain.StockPosition, len(positions)),
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
	for i := range positions {
		p := toPosition(&positions[i])
		a.Positions[p.Symbol] = p
	}
	return a
}

func toPositionModel(p *domain.StockPosition) PositionModel {
	return PositionModel{
		PositionID:   p.PositionID,
		AccountID:    p.AccountID,
		Symbol:       p.Symbol,
		Quantity:     p.Quantity,
		AveragePrice: p.AveragePrice,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

func toPosition(m *PositionModel) *domain.StockPosition {
	return &domain.StockPosition{
		PositionID:   m.PositionID,
		AccountID:    m.AccountID,
		Symbol:       m.Symbol,
		Quantity:     m.Quantity,
		AveragePrice: m.AveragePrice,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func toOrderModel(o *domain.Order) *OrderModel {
	return &OrderModel{
		OrderID:         o.OrderID,
		AccountID:       o.AccountID,
		Symbol:          o.Symbol,
		OrderType:       string(o.Type),
		Quantity:        o.Quantity,
		PricePerShare:   o.PricePerShare,
		TotalAmount:     o.TotalAmount,
		Status:          string(o.Status),
		ExchangeOrderID: nullable(o.ExchangeOrderID),
		ErrorMessage:    nullable(o.ErrorMessage),
		CreatedAt:       o.CreatedAt,
		ExecutedAt:      o.ExecutedAt,
		IdempotencyKey:  o.IdempotencyKey,
	}
}

func toOrder(m *OrderModel) *domain.Order {
	return &domain.Order{
		OrderID:         m.OrderID,
		AccountID:       m.AccountID,
		Symbol:          m.Symbol,
		Type:            domain.OrderType(m.OrderType),
		Quantity:        m.Quantity,
		PricePerShare:   m.PricePerShare,
		TotalAmount:     m.TotalAmount,
		Status:          domain.OrderStatus(m.Status),
		ExchangeOrderID: deref(m.ExchangeOrderID),
		ErrorMessage:    deref(m.ErrorMessage),
		CreatedAt:       m.CreatedAt,
		ExecutedAt:      m.ExecutedAt,
		IdempotencyKey:  m.IdempotencyKey,
	}
}

func toTransactionModel(t *domain.Transaction) *TransactionModel {
	return &TransactionModel{
		TransactionID:   t.TransactionID,
		AccountID:       t.AccountID,
		OrderID:         t.OrderID,
		TransactionType: string(t.Type),
		Amount:          t.Amount,
		BalanceBefore:   t.BalanceBefore,
		BalanceAfter:    t.BalanceAfter,
		CreatedAt:       t.CreatedAt,
	}
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
