package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/wyfcoding/tradeportal/internal/trading/domain"
	"github.com/wyfcoding/tradeportal/pkg/logger"
	"github.com/wyfcoding/tradeportal/pkg/metrics"
)

// PlaceOrderCommand 下单命令。数量与代码格式由接口层预先校验
type PlaceOrderCommand struct {
	AccountID      string
	Symbol         string
	Quantity       int64
	IdempotencyKey string
}

// EngineConfig 下单引擎的外部调用超时
type EngineConfig struct {
	PriceTimeout   time.Duration
	ExecuteTimeout time.Duration
}

// OrderCommandService 下单引擎：报价、资金校验、执行、记账在同一工作单元内完成
type OrderCommandService struct {
	accounts  domain.AccountRepository
	orders    domain.OrderRepository
	uow       domain.UnitOfWork
	pricing   domain.PricingPort
	publisher domain.EventPublisher
	metrics   *metrics.Metrics
	cfg       EngineConfig
	now       func() time.Time
	newID     func() string
}

// Option 下单引擎可选依赖
type Option func(*OrderCommandService)

// WithPublisher 提交后发布订单事件
func WithPublisher(p domain.EventPublisher) Option {
	return func(s *OrderCommandService) { s.publisher = p }
}

// WithMetrics 记录下单结果与耗时
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *OrderCommandService) { s.metrics = m }
}

// WithClock 替换时间源
func WithClock(now func() time.Time) Option {
	return func(s *OrderCommandService) { s.now = now }
}

// WithIDGenerator 替换订单、持仓、流水的 ID 生成
func WithIDGenerator(newID func() string) Option {
	return func(s *OrderCommandService) { s.newID = newID }
}

// NewOrderCommandService 创建下单引擎
func NewOrderCommandService(
	accounts domain.AccountRepository,
	orders domain.OrderRepository,
	uow domain.UnitOfWork,
	pricing domain.PricingPort,
	cfg EngineConfig,
	opts ...Option,
) *OrderCommandService {
	s := &OrderCommandService{
		accounts: accounts,
		orders:   orders,
		uow:      uow,
		pricing:  pricing,
		cfg:      cfg,
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PlaceOrder 下单。
// 同一幂等键只产生一次资金变动，重复请求原样返回已存订单。
// 交易所执行失败时失败订单仍然提交，返回该订单与 *domain.ExecutionError。
func (s *OrderCommandService) PlaceOrder(ctx context.Context, cmd PlaceOrderCommand) (*OrderDTO, error) {
	start := time.Now()
	order, replayed, err := s.placeOrder(ctx, cmd)
	s.observe(outcomeOf(err, replayed), start)

	if order != nil && !replayed && order.IsTerminal() {
		s.publish(ctx, order)
	}
	return toOrderDTO(order), err
}

func (s *OrderCommandService) placeOrder(ctx context.Context, cmd PlaceOrderCommand) (*domain.Order, bool, error) {
	if cmd.Quantity <= 0 {
		return nil, false, fmt.Errorf("quantity must be greater than zero, got %d", cmd.Quantity)
	}
	if cmd.IdempotencyKey == "" {
		return nil, false, errors.New("idempotency key is required")
	}

	existing, err := s.orders.GetByIdempotencyKey(ctx, cmd.IdempotencyKey)
	if err != nil {
		return nil, false, fmt.Errorf("failed to look up idempotency key: %w", err)
	}
	if existing != nil {
		logger.Info(ctx, "idempotent replay", "order_id", existing.OrderID, "idempotency_key", cmd.IdempotencyKey)
		return existing, true, nil
	}

	price, err := s.quote(ctx, cmd.Symbol)
	if err != nil {
		return nil, false, err
	}

	txCtx, err := s.uow.BeginTransaction(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("failed to begin transaction: %w", err)
	}

	order, err := s.execute(txCtx, cmd, price)
	var execErr *domain.ExecutionError
	switch {
	case err == nil:
		if err := s.uow.CommitTransaction(txCtx); err != nil {
			return s.resolveConflict(ctx, cmd.IdempotencyKey, fmt.Errorf("failed to commit order: %w", err))
		}
		logger.Info(ctx, "order executed",
			"order_id", order.OrderID,
			"account_id", order.AccountID,
			"symbol", order.Symbol,
			"quantity", order.Quantity,
			"total_amount", order.TotalAmount.String(),
			"exchange_order_id", order.ExchangeOrderID,
		)
		return order, false, nil

	case errors.As(err, &execErr):
		// 失败订单照常提交，幂等键随之被消耗
		if cerr := s.uow.CommitTransaction(txCtx); cerr != nil {
			return s.resolveConflict(ctx, cmd.IdempotencyKey, fmt.Errorf("failed to commit failed order: %w", cerr))
		}
		logger.Warn(ctx, "order execution failed",
			"order_id", execErr.Order.OrderID,
			"account_id", execErr.Order.AccountID,
			"symbol", execErr.Order.Symbol,
			"error", execErr.Cause,
		)
		return execErr.Order, false, err

	default:
		s.rollback(txCtx)
		return s.resolveConflict(ctx, cmd.IdempotencyKey, err)
	}
}

// execute 在 txCtx 的事务内完成资金校验、订单登记、交易所执行与记账，不负责提交
func (s *OrderCommandService) execute(txCtx context.Context, cmd PlaceOrderCommand, price decimal.Decimal) (*domain.Order, error) {
	account, err := s.accounts.GetWithPositions(txCtx, cmd.AccountID)
	if err != nil {
		return nil, fmt.Errorf("failed to load account: %w", err)
	}
	if account == nil {
		return nil, domain.ErrAccountNotFound
	}

	total := domain.OrderTotal(price, cmd.Quantity, account.Currency)
	if !account.HasSufficientFunds(total) {
		return nil, &domain.InsufficientFundsError{Required: total, Available: account.CashBalance}
	}

	order := domain.NewBuyOrder(s.newID(), account.AccountID, cmd.Symbol, cmd.Quantity, price, total, cmd.IdempotencyKey, s.now())
	if err := s.orders.Add(txCtx, order); err != nil {
		return nil, fmt.Errorf("failed to add order: %w", err)
	}
	// 先落 Pending 订单，幂等键冲突在此暴露
	if err := s.uow.SaveChanges(txCtx); err != nil {
		return nil, fmt.Errorf("failed to save pending order: %w", err)
	}

	exchangeOrderID, err := s.executeOnExchange(txCtx, order)
	if err != nil {
		if markErr := order.MarkFailed(err.Error()); markErr != nil {
			return nil, markErr
		}
		if saveErr := s.orders.Save(txCtx, order); saveErr != nil {
			return nil, fmt.Errorf("failed to save failed order: %w", saveErr)
		}
		return nil, &domain.ExecutionError{Order: order, Cause: err}
	}

	now := s.now()
	if err := order.MarkExecuted(exchangeOrderID, now); err != nil {
		return nil, err
	}
	before, after, err := account.Debit(total, now)
	if err != nil {
		return nil, err
	}
	account.ApplyBuy(s.newID(), order.Symbol, order.Quantity, price, now)

	if err := s.accounts.Update(txCtx, account); err != nil {
		return nil, fmt.Errorf("failed to update account: %w", err)
	}
	if err := s.orders.Save(txCtx, order); err != nil {
		return nil, fmt.Errorf("failed to save executed order: %w", err)
	}
	ledger := domain.NewDebitTransaction(s.newID(), order, before, after, now)
	if err := s.uow.Transactions().Add(txCtx, ledger); err != nil {
		return nil, fmt.Errorf("failed to add ledger entry: %w", err)
	}
	if err := s.uow.SaveChanges(txCtx); err != nil {
		return nil, fmt.Errorf("failed to save executed order: %w", err)
	}
	return order, nil
}

// quote 事务外取价，超时或非正价格均视为报价不可用
func (s *OrderCommandService) quote(ctx context.Context, symbol string) (decimal.Decimal, error) {
	pctx, cancel := context.WithTimeout(ctx, s.cfg.PriceTimeout)
	defer cancel()

	price, err := s.pricing.GetPrice(pctx, symbol)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s: %w", domain.ErrPriceUnavailable, symbol, err)
	}
	if !price.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %s: non-positive price %s", domain.ErrPriceUnavailable, symbol, price)
	}
	return price, nil
}

// executeOnExchange 执行超时等同于执行失败
func (s *OrderCommandService) executeOnExchange(ctx context.Context, order *domain.Order) (string, error) {
	ectx, cancel := context.WithTimeout(ctx, s.cfg.ExecuteTimeout)
	defer cancel()

	id, err := s.pricing.ExecuteOrder(ectx, order.Symbol, order.Quantity)
	if err != nil {
		if errors.Is(ectx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("exchange execution timed out after %s: %w", s.cfg.ExecuteTimeout, err)
		}
		return "", err
	}
	if id == "" {
		return "", errors.New("exchange returned an empty order id")
	}
	return id, nil
}

// resolveConflict 幂等键并发冲突时回读并返回先到的订单，其他错误原样返回
func (s *OrderCommandService) resolveConflict(ctx context.Context, key string, err error) (*domain.Order, bool, error) {
	if !errors.Is(err, domain.ErrDuplicateIdempotencyKey) {
		return nil, false, err
	}
	existing, lookupErr := s.orders.GetByIdempotencyKey(ctx, key)
	if lookupErr != nil {
		return nil, false, errors.Join(err, lookupErr)
	}
	if existing == nil {
		return nil, false, err
	}
	logger.Info(ctx, "idempotency key race resolved", "order_id", existing.OrderID, "idempotency_key", key)
	return existing, true, nil
}

func (s *OrderCommandService) rollback(txCtx context.Context) {
	if err := s.uow.RollbackTransaction(txCtx); err != nil {
		logger.Error(txCtx, "failed to rollback transaction", "error", err)
	}
}

func (s *OrderCommandService) publish(ctx context.Context, order *domain.Order) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, domain.NewOrderEvent(order, s.now())); err != nil {
		logger.Warn(ctx, "failed to publish order event", "order_id", order.OrderID, "error", err)
	}
}

func (s *OrderCommandService) observe(outcome string, start time.Time) {
	if s.metrics == nil {
		return
	}
	s.metrics.OrdersPlaced.WithLabelValues(outcome).Inc()
	s.metrics.PlacementDuration.Observe(time.Since(start).Seconds())
}

func outcomeOf(err error, replayed bool) string {
	switch {
	case replayed:
		return metrics.OutcomeReplayed
	case err == nil:
		return metrics.OutcomeExecuted
	case errors.Is(err, domain.ErrExecutionFailed):
		return metrics.OutcomeExecutionFailed
	case errors.Is(err, domain.ErrInsufficientFunds):
		return metrics.OutcomeInsufficientFunds
	case errors.Is(err, domain.ErrAccountNotFound):
		return metrics.OutcomeAccountNotFound
	case errors.Is(err, domain.ErrPriceUnavailable):
		return metrics.OutcomePriceUnavailable
	default:
		return metrics.OutcomeError
	}
}
