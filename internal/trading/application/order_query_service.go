package application

import (
	"context"
	"fmt"

	"github.com/wyfcoding/tradeportal/internal/trading/domain"
	"github.com/wyfcoding/tradeportal/pkg/utils"
)

// 订单列表分页参数
const (
	defaultOrderPageSize = 20
	maxOrderPageSize     = 100
)

// OrderQueryService 订单查询
type OrderQueryService struct {
	orders domain.OrderRepository
}

// NewOrderQueryService 创建订单查询服务
func NewOrderQueryService(orders domain.OrderRepository) *OrderQueryService {
	return &OrderQueryService{orders: orders}
}

// GetOrder 按 ID 读取订单
func (s *OrderQueryService) GetOrder(ctx context.Context, orderID string) (*OrderDTO, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	if order == nil {
		return nil, domain.ErrOrderNotFound
	}
	return toOrderDTO(order), nil
}

// ListOrders 账户订单历史，按创建时间倒序
func (s *OrderQueryService) ListOrders(ctx context.Context, accountID string, pageNumber, pageSize int) (*PagedOrdersDTO, error) {
	page := utils.NewPagination(pageNumber, pageSize, defaultOrderPageSize, maxOrderPageSize)
	orders, total, err := s.orders.GetByAccountID(ctx, accountID, page.Page, page.PageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	page.SetTotal(total)

	items := make([]*OrderDTO, 0, len(orders))
	for _, o := range orders {
		items = append(items, toOrderDTO(o))
	}
	return &PagedOrdersDTO{
		Items:      items,
		PageNumber: page.Page,
		PageSize:   page.PageSize,
		TotalCount: page.Total,
		TotalPages: page.Pages,
	}, nil
}
