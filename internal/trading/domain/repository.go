package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// AccountRepository 账户仓储。传入工作单元的 txCtx 时读写落在同一事务内
type AccountRepository interface {
	// GetByID 读取账户（不含持仓），不存在返回 nil, nil
	GetByID(ctx context.Context, accountID string) (*Account, error)
	// GetWithPositions 读取账户及全部持仓；事务内调用时对账户行加写锁
	GetWithPositions(ctx context.Context, accountID string) (*Account, error)
	// Update 持久化账户余额与持仓
	Update(ctx context.Context, account *Account) error
	// HasSufficientFunds 仅读余额，账户不存在返回 false
	HasSufficientFunds(ctx context.Context, accountID string, amount decimal.Decimal) (bool, error)
}

// OrderRepository 订单仓储
type OrderRepository interface {
	GetByID(ctx context.Context, orderID string) (*Order, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*Order, error)
	// GetByAccountID 按创建时间倒序分页，返回当前页与总数
	GetByAccountID(ctx context.Context, accountID string, pageNumber, pageSize int) ([]*Order, int64, error)
	// Add 插入新订单，幂等键重复时返回 ErrDuplicateIdempotencyKey
	Add(ctx context.Context, order *Order) error
	// Save 持久化订单状态迁移
	Save(ctx context.Context, order *Order) error
}

// TransactionRepository 资金流水仓储，只允许追加
type TransactionRepository interface {
	Add(ctx context.Context, tx *Transaction) error
}

// UnitOfWork 跨仓储的原子事务边界
type UnitOfWork interface {
	// BeginTransaction 打开事务，返回绑定该事务的 context
	BeginTransaction(ctx context.Context) (context.Context, error)
	// SaveChanges 刷新已登记的写操作，事务保持打开
	SaveChanges(ctx context.Context) error
	// CommitTransaction 刷新剩余写操作并提交
	CommitTransaction(ctx context.Context) error
	// RollbackTransaction 丢弃未刷新的写操作并回滚
	RollbackTransaction(ctx context.Context) error
	// Transactions 与事务同作用域的资金流水仓储
	Transactions() TransactionRepository
}
