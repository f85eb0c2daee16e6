package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType 资金流水方向
type TransactionType string

const (
	TransactionTypeDebit  TransactionType = "Debit"
	TransactionTypeCredit TransactionType = "Credit"
)

// Transaction 资金流水，只追加不修改
type Transaction struct {
	TransactionID string
	AccountID     string
	OrderID       string
	Type          TransactionType
	Amount        decimal.Decimal
	BalanceBefore decimal.Decimal
	BalanceAfter  decimal.Decimal
	CreatedAt     time.Time
}

// NewDebitTransaction 为一笔成交订单生成扣款流水
func NewDebitTransaction(transactionID string, order *Order, before, after decimal.Decimal, now time.Time) *Transaction {
	return &Transaction{
		TransactionID: transactionID,
		AccountID:     order.AccountID,
		OrderID:       order.OrderID,
		Type:          TransactionTypeDebit,
		Amount:        order.TotalAmount,
		BalanceBefore: before,
		BalanceAfter:  after,
		CreatedAt:     now,
	}
}
