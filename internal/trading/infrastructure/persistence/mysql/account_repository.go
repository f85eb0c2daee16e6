package mysql

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/tradeportal/internal/trading/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// accountRepository 账户仓储实现
type accountRepository struct {
	executor
}

// NewAccountRepository 创建账户仓储实例
func NewAccountRepository(db *gorm.DB) domain.AccountRepository {
	return &accountRepository{executor{db: db}}
}

func (r *accountRepository) GetByID(ctx context.Context, accountID string) (*domain.Account, error) {
	var model AccountModel
	if err := r.reader(ctx).Where("account_id = ?", accountID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return toAccount(&model, nil), nil
}

// GetWithPositions 在工作单元内对账户行加 FOR UPDATE 锁，串行化同一账户的并发下单。
// sqlite 不支持行锁，其写事务本身已互斥
func (r *accountRepository) GetWithPositions(ctx context.Context, accountID string) (*domain.Account, error) {
	query := r.reader(ctx)
	if r.inTx(ctx) && query.Dialector.Name() != "sqlite" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var model AccountModel
	if err := query.Where("account_id = ?", accountID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	var positions []PositionModel
	if err := r.reader(ctx).Where("account_id = ?", accountID).Order("symbol").Find(&positions).Error; err != nil {
		return nil, fmt.Errorf("failed to load positions: %w", err)
	}
	return toAccount(&model, positions), nil
}

// Update 写入余额与全部持仓：已存在的持仓按主键更新，新持仓插入
func (r *accountRepository) Update(ctx context.Context, account *domain.Account) error {
	model := toAccountModel(account)
	positions := make([]PositionModel, 0, len(account.Positions))
	for _, p := range account.SortedPositions() {
		positions = append(positions, toPositionModel(p))
	}

	return r.write(ctx, func(db *gorm.DB) error {
		err := db.Model(&AccountModel{}).
			Where("account_id = ?", model.AccountID).
			Updates(map[string]any{
				"cash_balance": model.CashBalance,
				"updated_at":   model.UpdatedAt,
			}).Error
		if err != nil {
			return fmt.Errorf("failed to update account: %w", err)
		}
		if len(positions) == 0 {
			return nil
		}

		var existing []string
		if err := db.Model(&PositionModel{}).Where("account_id = ?", model.AccountID).Pluck("position_id", &existing).Error; err != nil {
			return fmt.Errorf("failed to load position ids: %w", err)
		}
		known := make(map[string]struct{}, len(existing))
		for _, id := range existing {
			known[id] = struct{}{}
		}

		for i := range positions {
			p := &positions[i]
			if _, ok := known[p.PositionID]; !ok {
				if err := db.Create(p).Error; err != nil {
					return fmt.Errorf("failed to insert position %s: %w", p.Symbol, err)
				}
				continue
			}
			err := db.Model(&PositionModel{}).
				Where("position_id = ?", p.PositionID).
				Updates(map[string]any{
					"quantity":      p.Quantity,
					"average_price": p.AveragePrice,
					"updated_at":    p.UpdatedAt,
				}).Error
			if err != nil {
				return fmt.Errorf("failed to update position %s: %w", p.Symbol, err)
			}
		}
		return nil
	})
}

func (r *accountRepository) HasSufficientFunds(ctx context.Context, accountID string, amount decimal.Decimal) (bool, error) {
	var model AccountModel
	err := r.reader(ctx).Select("account_id", "cash_balance").Where("account_id = ?", accountID).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read balance: %w", err)
	}
	return model.CashBalance.GreaterThanOrEqual(amount), nil
}
