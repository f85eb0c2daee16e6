package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// ErrAccountNotFound 账户不存在
	ErrAccountNotFound = errors.New("account not found")
	// ErrOrderNotFound 订单不存在
	ErrOrderNotFound = errors.New("order not found")
	// ErrInsufficientFunds 余额不足
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrExecutionFailed 交易所执行失败
	ErrExecutionFailed = errors.New("order execution failed")
	// ErrPriceUnavailable 无法获取报价
	ErrPriceUnavailable = errors.New("price unavailable")
	// ErrDuplicateIdempotencyKey 幂等键冲突，由引擎内部消化
	ErrDuplicateIdempotencyKey = errors.New("duplicate idempotency key")
	// ErrInvalidOrderState 订单状态不允许该迁移
	ErrInvalidOrderState = errors.New("invalid order state transition")
	// ErrNoActiveTransaction 当前 context 中没有打开的事务
	ErrNoActiveTransaction = errors.New("no active transaction")
)

// InsufficientFundsError 携带所需金额与可用余额
type InsufficientFundsError struct {
	Required  decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds. Required: %s, Available: %s", e.Required.StringFixed(2), e.Available.StringFixed(2))
}

// Is 使 errors.Is(err, ErrInsufficientFunds) 成立
func (e *InsufficientFundsError) Is(target error) bool {
	return target == ErrInsufficientFunds
}

// ExecutionError 交易所执行失败。失败订单已提交，Order 为其最终状态
type ExecutionError struct {
	Order *Order
	Cause error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("order %s execution failed: %v", e.Order.OrderID, e.Cause)
}

func (e *ExecutionError) Unwrap() error {
	return e.Cause
}

// Is 使 errors.Is(err, ErrExecutionFailed) 成立
func (e *ExecutionError) Is(target error) bool {
	return target == ErrExecutionFailed
}
