package mysql

import (
	"context"
	"errors"
	"fmt"

	"github.com/wyfcoding/tradeportal/internal/trading/domain"
	"github.com/wyfcoding/tradeportal/pkg/contextx"
	"github.com/wyfcoding/tradeportal/pkg/db"
	"gorm.io/gorm"
)

// session 一次工作单元：打开的事务与尚未刷新的写操作
type session struct {
	tx      *gorm.DB
	pending []func(*gorm.DB) error
	done    bool
}

func (s *session) flush() error {
	for len(s.pending) > 0 {
		op := s.pending[0]
		s.pending = s.pending[1:]
		if err := op(s.tx); err != nil {
			s.pending = nil
			return err
		}
	}
	return nil
}

func sessionFrom(ctx context.Context) *session {
	s, _ := contextx.GetTx(ctx).(*session)
	if s == nil || s.done {
		return nil
	}
	return s
}

// unitOfWork 基于 GORM 事务的工作单元
type unitOfWork struct {
	db           *gorm.DB
	isolation    string
	transactions domain.TransactionRepository
}

// NewUnitOfWork 创建工作单元。isolation 为空时使用数据库默认隔离级别
func NewUnitOfWork(gdb *gorm.DB, isolation string) domain.UnitOfWork {
	return &unitOfWork{
		db:           gdb,
		isolation:    isolation,
		transactions: NewTransactionRepository(gdb),
	}
}

func (u *unitOfWork) BeginTransaction(ctx context.Context) (context.Context, error) {
	if sessionFrom(ctx) != nil {
		return nil, errors.New("transaction already open in context")
	}
	var tx *gorm.DB
	if opts := db.TxOptions(u.isolation); opts != nil && u.db.Dialector.Name() != "sqlite" {
		tx = u.db.WithContext(ctx).Begin(opts)
	} else {
		tx = u.db.WithContext(ctx).Begin()
	}
	if tx.Error != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}
	return contextx.WithTx(ctx, &session{tx: tx}), nil
}

func (u *unitOfWork) SaveChanges(ctx context.Context) error {
	s := sessionFrom(ctx)
	if s == nil {
		return domain.ErrNoActiveTransaction
	}
	return s.flush()
}

func (u *unitOfWork) CommitTransaction(ctx context.Context) error {
	s := sessionFrom(ctx)
	if s == nil {
		return domain.ErrNoActiveTransaction
	}
	if err := s.flush(); err != nil {
		s.done = true
		if rbErr := s.tx.Rollback().Error; rbErr != nil {
			return errors.Join(err, rbErr)
		}
		return err
	}
	s.done = true
	if err := s.tx.Commit().Error; err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// RollbackTransaction 对已结束的事务调用时为空操作
func (u *unitOfWork) RollbackTransaction(ctx context.Context) error {
	s := sessionFrom(ctx)
	if s == nil {
		return nil
	}
	s.pending = nil
	s.done = true
	if err := s.tx.Rollback().Error; err != nil && !errors.Is(err, gorm.ErrInvalidTransaction) {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}
	return nil
}

func (u *unitOfWork) Transactions() domain.TransactionRepository {
	return u.transactions
}

// executor 仓储共用的读写入口
type executor struct {
	db *gorm.DB
}

// reader 事务内读走事务连接，否则走连接池
func (e executor) reader(ctx context.Context) *gorm.DB {
	if s := sessionFrom(ctx); s != nil {
		return s.tx
	}
	return e.db.WithContext(ctx)
}

// write 事务内登记到工作单元等待刷新，否则立即执行
func (e executor) write(ctx context.Context, op func(*gorm.DB) error) error {
	if s := sessionFrom(ctx); s != nil {
		s.pending = append(s.pending, op)
		return nil
	}
	return op(e.db.WithContext(ctx))
}

// inTx 当前 context 是否处于打开的工作单元中
func (e executor) inTx(ctx context.Context) bool {
	return sessionFrom(ctx) != nil
}
