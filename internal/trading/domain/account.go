package domain

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// AveragePricePlaces 持仓均价保留的小数位数
const AveragePricePlaces = 4

// Account 客户资金账户聚合根，持有现金余额与各股票持仓
type Account struct {
	AccountID   string
	ClientID    string
	CashBalance decimal.Decimal
	Currency    string
	// 按股票代码索引的持仓，每个代码至多一条
	Positions map[string]*StockPosition
	CreatedAt time.Time
	UpdatedAt time.Time
}

// StockPosition 股票持仓
type StockPosition struct {
	PositionID   string
	AccountID    string
	Symbol       string
	Quantity     int64
	AveragePrice decimal.Decimal
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewAccount 创建账户
func NewAccount(accountID, clientID string, balance decimal.Decimal, currency string, now time.Time) *Account {
	return &Account{
		AccountID:   accountID,
		ClientID:    clientID,
		CashBalance: balance,
		Currency:    currency,
		Positions:   make(map[string]*StockPosition),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// HasSufficientFunds 余额大于等于 amount 即视为充足
func (a *Account) HasSufficientFunds(amount decimal.Decimal) bool {
	return a.CashBalance.GreaterThanOrEqual(amount)
}

// Debit 扣减现金余额，返回扣减前后的余额
func (a *Account) Debit(amount decimal.Decimal, now time.Time) (before, after decimal.Decimal, err error) {
	if !a.HasSufficientFunds(amount) {
		return a.CashBalance, a.CashBalance, &InsufficientFundsError{Required: amount, Available: a.CashBalance}
	}
	before = a.CashBalance
	a.CashBalance = a.CashBalance.Sub(amount)
	a.UpdatedAt = now
	return before, a.CashBalance, nil
}

// Position 按代码查找持仓
func (a *Account) Position(symbol string) (*StockPosition, bool) {
	p, ok := a.Positions[symbol]
	return p, ok
}

// ApplyBuy 记入一笔买入成交：已有持仓按加权平均更新成本，否则以 positionID 新建持仓
func (a *Account) ApplyBuy(positionID, symbol string, quantity int64, price decimal.Decimal, now time.Time) *StockPosition {
	if a.Positions == nil {
		a.Positions = make(map[string]*StockPosition)
	}
	if p, ok := a.Positions[symbol]; ok {
		p.AddShares(quantity, price, now)
		return p
	}
	p := &StockPosition{
		PositionID:   positionID,
		AccountID:    a.AccountID,
		Symbol:       symbol,
		Quantity:     quantity,
		AveragePrice: price.Round(AveragePricePlaces),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	a.Positions[symbol] = p
	return p
}

// SortedPositions 按代码排序后的持仓列表
func (a *Account) SortedPositions() []*StockPosition {
	out := make([]*StockPosition, 0, len(a.Positions))
	for _, p := range a.Positions {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// AddShares 增加持仓数量并重算加权平均成本：总成本 / 总股数
func (p *StockPosition) AddShares(quantity int64, price decimal.Decimal, now time.Time) {
	oldQty := decimal.NewFromInt(p.Quantity)
	newQty := decimal.NewFromInt(quantity)
	totalQty := oldQty.Add(newQty)

	if totalQty.IsPositive() {
		cost := oldQty.Mul(p.AveragePrice).Add(newQty.Mul(price))
		p.AveragePrice = cost.DivRound(totalQty, AveragePricePlaces)
	}
	p.Quantity += quantity
	p.UpdatedAt = now
}

// MarketValue 以给定价格计算持仓市值
func (p *StockPosition) MarketValue(price decimal.Decimal) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(p.Quantity))
}
