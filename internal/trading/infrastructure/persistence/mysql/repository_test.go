package mysql

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/tradeportal/internal/trading/domain"
	"github.com/wyfcoding/tradeportal/pkg/db"
	"gorm.io/gorm"
)

var base = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	d, err := db.Init(db.Config{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "trading.db")})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	if err := AutoMigrate(d.DB); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := SeedDemoData(context.Background(), d.DB, base); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return d.DB
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newOrder(i int, key string, createdAt time.Time) *domain.Order {
	return domain.NewBuyOrder(fmt.Sprintf("order-%02d", i), DemoAccountID, "AAPL", 1, dec("175.50"), dec("175.50"), key, createdAt)
}

func TestSeedDemoData(t *testing.T) {
	gdb := newTestDB(t)
	ctx := context.Background()
	if err := SeedDemoData(ctx, gdb, base.Add(time.Hour)); err != nil {
		t.Fatalf("second seed: %v", err)
	}

	acc, err := NewAccountRepository(gdb).GetWithPositions(ctx, DemoAccountID)
	if err != nil || acc == nil {
		t.Fatalf("GetWithPositions: %v %v", acc, err)
	}
	if !acc.CashBalance.Equal(dec("50000")) || acc.Currency != "EUR" || acc.ClientID != DemoClientID {
		t.Fatalf("account = %+v", acc)
	}
	p, ok := acc.Position("AAPL")
	if !ok || p.Quantity != 10 || !p.AveragePrice.Equal(dec("150")) {
		t.Fatalf("AAPL position = %+v", p)
	}
}

func TestAccountRepositoryMissing(t *testing.T) {
	gdb := newTestDB(t)
	repo := NewAccountRepository(gdb)
	ctx := context.Background()

	acc, err := repo.GetByID(ctx, "nope")
	if err != nil || acc != nil {
		t.Fatalf("GetByID missing = %v, %v", acc, err)
	}
	acc, err = repo.GetWithPositions(ctx, "nope")
	if err != nil || acc != nil {
		t.Fatalf("GetWithPositions missing = %v, %v", acc, err)
	}
}

func TestHasSufficientFunds(t *testing.T) {
	repo := NewAccountRepository(newTestDB(t))
	ctx := context.Background()
	tests := []struct {
		account string
		amount  string
		want    bool
	}{
		{DemoAccountID, "49999.99", true},
		{DemoAccountID, "50000.00", true},
		{DemoAccountID, "50000.01", false},
		{"missing", "1", false},
	}
	for _, tt := range tests {
		got, err := repo.HasSufficientFunds(ctx, tt.account, dec(tt.amount))
		if err != nil {
			t.Fatalf("HasSufficientFunds: %v", err)
		}
		if got != tt.want {
			t.Errorf("HasSufficientFunds(%s, %s) = %v, want %v", tt.account, tt.amount, got, tt.want)
		}
	}
}

func TestAccountUpdatePersistsPositions(t *testing.T) {
	gdb := newTestDB(t)
	repo := NewAccountRepository(gdb)
	ctx := context.Background()

	acc, err := repo.GetWithPositions(ctx, DemoAccountID)
	if err != nil {
		t.Fatal(err)
	}
	later := base.Add(time.Minute)
	if _, _, err := acc.Debit(dec("1202.50"), later); err != nil {
		t.Fatal(err)
	}
	acc.ApplyBuy("pos-aapl-ignored", "AAPL", 5, dec("160.00"), later)
	acc.ApplyBuy("pos-msft", "MSFT", 1, dec("380.25"), later)
	if err := repo.Update(ctx, acc); err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, err := repo.GetWithPositions(ctx, DemoAccountID)
	if err != nil {
		t.Fatal(err)
	}
	if !got.CashBalance.Equal(dec("48797.50")) {
		t.Fatalf("balance = %s", got.CashBalance)
	}
	if len(got.Positions) != 2 {
		t.Fatalf("positions = %d, want 2", len(got.Positions))
	}
	aapl := got.Positions["AAPL"]
	if aapl.PositionID != demoPositionID || aapl.Quantity != 15 || !aapl.AveragePrice.Equal(dec("153.3333")) {
		t.Fatalf("AAPL = %+v", aapl)
	}
	if msft := got.Positions["MSFT"]; msft.Quantity != 1 || !msft.AveragePrice.Equal(dec("380.25")) {
		t.Fatalf("MSFT = %+v", msft)
	}
}

func TestOrderRepositoryPagination(t *testing.T) {
	gdb := newTestDB(t)
	repo := NewOrderRepository(gdb)
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		o := newOrder(i, fmt.Sprintf("key-%02d", i), base.Add(time.Duration(i)*time.Second))
		if err := repo.Add(ctx, o); err != nil {
			t.Fatalf("Add %d: %v", i, err)
		}
	}
	// 其他账户的订单不应出现
	other := domain.NewBuyOrder("other-1", "someone-else", "AAPL", 1, dec("1"), dec("1"), "key-other", base.Add(time.Hour))
	if err := repo.Add(ctx, other); err != nil {
		t.Fatal(err)
	}

	seen := map[string]bool{}
	var prev *time.Time
	for page, want := range []int{10, 10, 5} {
		orders, total, err := repo.GetByAccountID(ctx, DemoAccountID, page+1, 10)
		if err != nil {
			t.Fatalf("page %d: %v", page+1, err)
		}
		if total != 25 {
			t.Fatalf("total = %d, want 25", total)
		}
		if len(orders) != want {
			t.Fatalf("page %d size = %d, want %d", page+1, len(orders), want)
		}
		for _, o := range orders {
			if seen[o.OrderID] {
				t.Fatalf("duplicate order %s", o.OrderID)
			}
			seen[o.OrderID] = true
			if prev != nil && o.CreatedAt.After(*prev) {
				t.Fatalf("order %s out of newest-first order", o.OrderID)
			}
			created := o.CreatedAt
			prev = &created
		}
	}
	if len(seen) != 25 {
		t.Fatalf("saw %d distinct orders, want 25", len(seen))
	}

	first, _, _ := repo.GetByAccountID(ctx, DemoAccountID, 1, 1)
	if first[0].OrderID != "order-24" {
		t.Fatalf("newest order = %s, want order-24", first[0].OrderID)
	}
	empty, _, _ := repo.GetByAccountID(ctx, DemoAccountID, 4, 10)
	if len(empty) != 0 {
		t.Fatalf("page past the end returned %d orders", len(empty))
	}
}

func TestOrderIdempotencyKeyUnique(t *testing.T) {
	repo := NewOrderRepository(newTestDB(t))
	ctx := context.Background()

	if err := repo.Add(ctx, newOrder(1, "same-key", base)); err != nil {
		t.Fatal(err)
	}
	err := repo.Add(ctx, newOrder(2, "same-key", base))
	if !errors.Is(err, domain.ErrDuplicateIdempotencyKey) {
		t.Fatalf("err = %v, want ErrDuplicateIdempotencyKey", err)
	}

	got, err := repo.GetByIdempotencyKey(ctx, "same-key")
	if err != nil || got == nil || got.OrderID != "order-01" {
		t.Fatalf("GetByIdempotencyKey = %+v, %v", got, err)
	}
	missing, err := repo.GetByIdempotencyKey(ctx, "unknown")
	if err != nil || missing != nil {
		t.Fatalf("missing key = %+v, %v", missing, err)
	}
}

func TestOrderSaveTransition(t *testing.T) {
	repo := NewOrderRepository(newTestDB(t))
	ctx := context.Background()

	o := newOrder(1, "k1", base)
	if err := repo.Add(ctx, o); err != nil {
		t.Fatal(err)
	}
	if err := o.MarkExecuted("EXC-ABC", base.Add(time.Second)); err != nil {
		t.Fatal(err)
	}
	if err := repo.Save(ctx, o); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := repo.GetByID(ctx, o.OrderID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != domain.OrderStatusExecuted || got.ExchangeOrderID != "EXC-ABC" || got.ExecutedAt == nil || got.ErrorMessage != "" {
		t.Fatalf("saved order = %+v", got)
	}
	if !got.PricePerShare.Equal(dec("175.50")) || got.IdempotencyKey != "k1" {
		t.Fatalf("fields changed: %+v", got)
	}
}

func TestUnitOfWorkCommit(t *testing.T) {
	gdb := newTestDB(t)
	accounts := NewAccountRepository(gdb)
	orders := NewOrderRepository(gdb)
	uow := NewUnitOfWork(gdb, "SERIALIZABLE")
	ctx := context.Background()

	txCtx, err := uow.BeginTransaction(ctx)
	if err != nil {
		t.Fatal(err)
	}
	acc, err := accounts.GetWithPositions(txCtx, DemoAccountID)
	if err != nil {
		t.Fatal(err)
	}
	o := newOrder(1, "uow-key", base)
	if err := orders.Add(txCtx, o); err != nil {
		t.Fatal(err)
	}
	before, after, _ := acc.Debit(o.TotalAmount, base)
	if err := accounts.Update(txCtx, acc); err != nil {
		t.Fatal(err)
	}
	if err := uow.Transactions().Add(txCtx, domain.NewDebitTransaction("tx-1", o, before, after, base)); err != nil {
		t.Fatal(err)
	}
	if err := uow.CommitTransaction(txCtx); err != nil {
		t.Fatalf("commit: %v", err)
	}

	got, _ := accounts.GetByID(ctx, DemoAccountID)
	if !got.CashBalance.Equal(dec("49824.50")) {
		t.Fatalf("balance = %s", got.CashBalance)
	}
	if stored, _ := orders.GetByID(ctx, o.OrderID); stored == nil {
		t.Fatal("order not committed")
	}
	var ledger []TransactionModel
	if err := gdb.Find(&ledger).Error; err != nil || len(ledger) != 1 {
		t.Fatalf("ledger = %v, %v", ledger, err)
	}
	if !ledger[0].BalanceBefore.Equal(dec("50000")) || !ledger[0].BalanceAfter.Equal(dec("49824.50")) {
		t.Fatalf("ledger entry = %+v", ledger[0])
	}

	if err := uow.RollbackTransaction(txCtx); err != nil {
		t.Fatalf("rollback after commit should be a no-op: %v", err)
	}
}

func TestUnitOfWorkRollbackDiscardsFlushedAndPending(t *testing.T) {
	gdb := newTestDB(t)
	accounts := NewAccountRepository(gdb)
	orders := NewOrderRepository(gdb)
	uow := NewUnitOfWork(gdb, "")
	ctx := context.Background()

	txCtx, err := uow.BeginTransaction(ctx)
	if err != nil {
		t.Fatal(err)
	}
	o := newOrder(1, "rb-key", base)
	if err := orders.Add(txCtx, o); err != nil {
		t.Fatal(err)
	}
	if err := uow.SaveChanges(txCtx); err != nil {
		t.Fatalf("SaveChanges: %v", err)
	}
	acc, _ := accounts.GetWithPositions(txCtx, DemoAccountID)
	acc.CashBalance = dec("1")
	if err := accounts.Update(txCtx, acc); err != nil {
		t.Fatal(err)
	}
	if err := uow.RollbackTransaction(txCtx); err != nil {
		t.Fatalf("rollback: %v", err)
	}

	if got, _ := orders.GetByIdempotencyKey(ctx, "rb-key"); got != nil {
		t.Fatal("flushed order survived rollback")
	}
	if got, _ := accounts.GetByID(ctx, DemoAccountID); !got.CashBalance.Equal(dec("50000")) {
		t.Fatalf("balance = %s after rollback", got.CashBalance)
	}
	if err := uow.SaveChanges(txCtx); !errors.Is(err, domain.ErrNoActiveTransaction) {
		t.Fatalf("SaveChanges after rollback = %v", err)
	}
}

func TestUnitOfWorkSaveChangesSurfacesDuplicate(t *testing.T) {
	gdb := newTestDB(t)
	orders := NewOrderRepository(gdb)
	uow := NewUnitOfWork(gdb, "")
	ctx := context.Background()

	if err := orders.Add(ctx, newOrder(1, "dup", base)); err != nil {
		t.Fatal(err)
	}
	txCtx, err := uow.BeginTransaction(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if err := orders.Add(txCtx, newOrder(2, "dup", base)); err != nil {
		t.Fatalf("Add should only stage the insert: %v", err)
	}
	if err := uow.SaveChanges(txCtx); !errors.Is(err, domain.ErrDuplicateIdempotencyKey) {
		t.Fatalf("SaveChanges = %v, want ErrDuplicateIdempotencyKey", err)
	}
	if err := uow.RollbackTransaction(txCtx); err != nil {
		t.Fatal(err)
	}
}
