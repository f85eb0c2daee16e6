package mysql

import (
	"context"
	"errors"
	"fmt"

	"github.com/wyfcoding/tradeportal/internal/trading/domain"
	"github.com/wyfcoding/tradeportal/pkg/db"
	"gorm.io/gorm"
)

// orderRepository 订单仓储实现
type orderRepository struct {
	executor
}

// NewOrderRepository 创建订单仓储实例
func NewOrderRepository(db *gorm.DB) domain.OrderRepository {
	return &orderRepository{executor{db: db}}
}

func (r *orderRepository) GetByID(ctx context.Context, orderID string) (*domain.Order, error) {
	return r.first(ctx, "order_id = ?", orderID)
}

func (r *orderRepository) GetByIdempotencyKey(ctx context.Context, key string) (*domain.Order, error) {
	return r.first(ctx, "idempotency_key = ?", key)
}

func (r *orderRepository) first(ctx context.Context, cond string, arg any) (*domain.Order, error) {
	var model OrderModel
	if err := r.reader(ctx).Where(cond, arg).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return toOrder(&model), nil
}

// GetByAccountID 按 created_at 倒序分页，同一时间戳按 order_id 倒序保证翻页稳定
func (r *orderRepository) GetByAccountID(ctx context.Context, accountID string, pageNumber, pageSize int) ([]*domain.Order, int64, error) {
	if pageNumber < 1 {
		pageNumber = 1
	}
	if pageSize < 1 {
		pageSize = 1
	}

	var total int64
	if err := r.reader(ctx).Model(&OrderModel{}).Where("account_id = ?", accountID).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	var models []OrderModel
	err := r.reader(ctx).
		Where("account_id = ?", accountID).
		Order("created_at DESC").
		Order("order_id DESC").
		Offset((pageNumber - 1) * pageSize).
		Limit(pageSize).
		Find(&models).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}

	orders := make([]*domain.Order, len(models))
	for i := range models {
		orders[i] = toOrder(&models[i])
	}
	return orders, total, nil
}

// Add 普通 INSERT，幂等键冲突交由唯一索引拒绝
func (r *orderRepository) Add(ctx context.Context, order *domain.Order) error {
	model := toOrderModel(order)
	return r.write(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(model).Error; err != nil {
			if db.IsDuplicateKey(err) {
				return fmt.Errorf("order %s: %w", order.IdempotencyKey, domain.ErrDuplicateIdempotencyKey)
			}
			return fmt.Errorf("failed to insert order: %w", err)
		}
		return nil
	})
}

func (r *orderRepository) Save(ctx context.Context, order *domain.Order) error {
	model := toOrderModel(order)
	return r.write(ctx, func(tx *gorm.DB) error {
		err := tx.Model(&OrderModel{}).
			Where("order_id = ?", model.OrderID).
			Updates(map[string]any{
				"status":            model.Status,
				"exchange_order_id": model.ExchangeOrderID,
				"error_message":     model.ErrorMessage,
				"executed_at":       model.ExecutedAt,
			}).Error
		if err != nil {
			return fmt.Errorf("failed to update order: %w", err)
		}
		return nil
	})
}
