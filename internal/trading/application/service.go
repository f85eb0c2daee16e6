package application

import (
	"context"

	"github.com/wyfcoding/tradeportal/internal/trading/domain"
	"github.com/wyfcoding/tradeportal/pkg/metrics"
)

// Dependencies 交易服务依赖
type Dependencies struct {
	Accounts   domain.AccountRepository
	Orders     domain.OrderRepository
	UnitOfWork domain.UnitOfWork
	// 下单路径使用的报价与执行端口
	Pricing domain.PricingPort
	// 展示与校验使用的报价源，可带缓存；为空时使用 Pricing
	Quotes      domain.PricingPort
	Publisher   domain.EventPublisher
	Metrics     *metrics.Metrics
	Engine      EngineConfig
	MaxQuantity int64
}

// TradingService 交易服务门面，整合下单、查询与校验
type TradingService struct {
	Command    *OrderCommandService
	Orders     *OrderQueryService
	Accounts   *AccountQueryService
	Validation *ValidationService
}

// NewTradingService 构造函数
func NewTradingService(deps Dependencies) *TradingService {
	quotes := deps.Quotes
	if quotes == nil {
		quotes = deps.Pricing
	}

	opts := []Option{WithMetrics(deps.Metrics)}
	if deps.Publisher != nil {
		opts = append(opts, WithPublisher(deps.Publisher))
	}

	return &TradingService{
		Command:    NewOrderCommandService(deps.Accounts, deps.Orders, deps.UnitOfWork, deps.Pricing, deps.Engine, opts...),
		Orders:     NewOrderQueryService(deps.Orders),
		Accounts:   NewAccountQueryService(deps.Accounts, quotes, deps.Engine.PriceTimeout),
		Validation: NewValidationService(deps.Accounts, quotes, deps.MaxQuantity, deps.Engine.PriceTimeout),
	}
}

// --- Command (Writes) ---

// PlaceOrder 下单
func (s *TradingService) PlaceOrder(ctx context.Context, cmd PlaceOrderCommand) (*OrderDTO, error) {
	return s.Command.PlaceOrder(ctx, cmd)
}

// --- Query (Reads) ---

// GetOrder 获取订单详情
func (s *TradingService) GetOrder(ctx context.Context, orderID string) (*OrderDTO, error) {
	return s.Orders.GetOrder(ctx, orderID)
}

// ListOrders 列出账户订单
func (s *TradingService) ListOrders(ctx context.Context, accountID string, pageNumber, pageSize int) (*PagedOrdersDTO, error) {
	return s.Orders.ListOrders(ctx, accountID, pageNumber, pageSize)
}

// GetAccount 账户概览
func (s *TradingService) GetAccount(ctx context.Context, accountID string) (*AccountDTO, error) {
	return s.Accounts.GetAccount(ctx, accountID)
}

// GetBalance 现金余额
func (s *TradingService) GetBalance(ctx context.Context, accountID string) (*BalanceDTO, error) {
	return s.Accounts.GetBalance(ctx, accountID)
}

// GetPositions 持仓列表
func (s *TradingService) GetPositions(ctx context.Context, accountID string) ([]PositionDTO, error) {
	return s.Accounts.GetPositions(ctx, accountID)
}

// GetStockPrice 当前报价
func (s *TradingService) GetStockPrice(ctx context.Context, symbol string) (*QuoteDTO, error) {
	return s.Accounts.GetStockPrice(ctx, symbol)
}

// ValidateOrder 下单前校验
func (s *TradingService) ValidateOrder(ctx context.Context, q ValidateOrderQuery) *ValidationResultDTO {
	return s.Validation.ValidateOrder(ctx, q)
}
