package application

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/tradeportal/internal/trading/domain"
	"github.com/wyfcoding/tradeportal/internal/trading/infrastructure/persistence/mysql"
	"github.com/wyfcoding/tradeportal/pkg/db"
	"gorm.io/gorm"
)

var base = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// fakePricer 可控的报价与执行端口
type fakePricer struct {
	mu         sync.Mutex
	prices     map[string]decimal.Decimal
	priceErr   error
	execErr    error
	blockExec  bool
	priceCalls int
	execCalls  int
}

func newFakePricer() *fakePricer {
	return &fakePricer{prices: map[string]decimal.Decimal{
		"AAPL": dec("175.50"),
		"MSFT": dec("380.25"),
		"NVDA": dec("150.00"),
		"ACME": dec("160.00"),
	}}
}

func (f *fakePricer) GetPrice(_ context.Context, symbol string) (decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.priceCalls++
	if f.priceErr != nil {
		return decimal.Zero, f.priceErr
	}
	p, ok := f.prices[symbol]
	if !ok {
		return decimal.Zero, fmt.Errorf("unknown symbol %s", symbol)
	}
	return p, nil
}

func (f *fakePricer) ExecuteOrder(ctx context.Context, symbol string, _ int64) (string, error) {
	f.mu.Lock()
	f.execCalls++
	n, block, execErr := f.execCalls, f.blockExec, f.execErr
	f.mu.Unlock()

	if block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if execErr != nil {
		return "", execErr
	}
	return fmt.Sprintf("EXC-%s-%04d", symbol, n), nil
}

func (f *fakePricer) setPrice(symbol, price string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prices[symbol] = dec(price)
}

func (f *fakePricer) calls() (price, exec int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.priceCalls, f.execCalls
}

// stepClock 每次调用前进一秒
type stepClock struct {
	mu  sync.Mutex
	cur time.Time
}

func (c *stepClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cur = c.cur.Add(time.Second)
	return c.cur
}

// recordingPublisher 记录发布的事件
type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.OrderEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e domain.OrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) published() []domain.OrderEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.OrderEvent(nil), p.events...)
}

type fixture struct {
	db        *gorm.DB
	accounts  domain.AccountRepository
	orders    domain.OrderRepository
	uow       domain.UnitOfWork
	pricer    *fakePricer
	publisher *recordingPublisher
	svc       *OrderCommandService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	d, err := db.Init(db.Config{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "trading.db")})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	if err := mysql.AutoMigrate(d.DB); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := mysql.SeedDemoData(context.Background(), d.DB, base); err != nil {
		t.Fatalf("seed: %v", err)
	}

	f := &fixture{
		db:        d.DB,
		accounts:  mysql.NewAccountRepository(d.DB),
		orders:    mysql.NewOrderRepository(d.DB),
		uow:       mysql.NewUnitOfWork(d.DB, ""),
		pricer:    newFakePricer(),
		publisher: &recordingPublisher{},
	}
	f.svc = f.engine(f.orders)
	return f
}

// engine 以指定订单仓储构造下单引擎
func (f *fixture) engine(orders domain.OrderRepository) *OrderCommandService {
	clock := &stepClock{cur: base}
	return NewOrderCommandService(f.accounts, orders, f.uow, f.pricer,
		EngineConfig{PriceTimeout: time.Second, ExecuteTimeout: 200 * time.Millisecond},
		WithClock(clock.now),
		WithPublisher(f.publisher),
	)
}

// addAccount 新建一个无持仓账户
func (f *fixture) addAccount(t *testing.T, id, balance string) {
	t.Helper()
	err := f.db.Create(&mysql.AccountModel{
		AccountID:   id,
		ClientID:    "client-" + id,
		CashBalance: dec(balance),
		Currency:    "EUR",
		CreatedAt:   base,
		UpdatedAt:   base,
	}).Error
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
}

func (f *fixture) account(t *testing.T, id string) *domain.Account {
	t.Helper()
	acc, err := f.accounts.GetWithPositions(context.Background(), id)
	if err != nil || acc == nil {
		t.Fatalf("load account %s: %v %v", id, acc, err)
	}
	return acc
}

func (f *fixture) ledger(t *testing.T, accountID string) []mysql.TransactionModel {
	t.Helper()
	var rows []mysql.TransactionModel
	if err := f.db.Where("account_id = ?", accountID).Order("created_at").Find(&rows).Error; err != nil {
		t.Fatalf("load ledger: %v", err)
	}
	return rows
}

func (f *fixture) orderCount(t *testing.T) int64 {
	t.Helper()
	var n int64
	if err := f.db.Model(&mysql.OrderModel{}).Count(&n).Error; err != nil {
		t.Fatalf("count orders: %v", err)
	}
	return n
}

// blindOrders 首次幂等键查询返回空，模拟并发请求都未看到对方的订单
type blindOrders struct {
	domain.OrderRepository
	mu      sync.Mutex
	blinded bool
}

func (b *blindOrders) GetByIdempotencyKey(ctx context.Context, key string) (*domain.Order, error) {
	b.mu.Lock()
	first := !b.blinded
	b.blinded = true
	b.mu.Unlock()
	if first {
		return nil, nil
	}
	return b.OrderRepository.GetByIdempotencyKey(ctx, key)
}

var errExchangeRejected = errors.New("exchange rejected order: symbol halted")
