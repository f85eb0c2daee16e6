package mysql

import (
	"context"
	"fmt"

	"github.com/wyfcoding/tradeportal/internal/trading/domain"
	"gorm.io/gorm"
)

// transactionRepository 资金流水仓储，仅追加
type transactionRepository struct {
	executor
}

// NewTransactionRepository 创建资金流水仓储实例
func NewTransactionRepository(db *gorm.DB) domain.TransactionRepository {
	return &transactionRepository{executor{db: db}}
}

func (r *transactionRepository) Add(ctx context.Context, t *domain.Transaction) error {
	model := toTransactionModel(t)
	return r.write(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(model).Error; err != nil {
			return fmt.Errorf("failed to insert transaction: %w", err)
		}
		return nil
	})
}
