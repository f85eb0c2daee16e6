package application

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/wyfcoding/tradeportal/internal/trading/domain"
	"github.com/wyfcoding/tradeportal/internal/trading/infrastructure/persistence/mysql"
)

func TestGetAccountValuesPositions(t *testing.T) {
	f := newFixture(t)
	svc := NewAccountQueryService(f.accounts, f.pricer, time.Second)

	got, err := svc.GetAccount(context.Background(), mysql.DemoAccountID)
	if err != nil {
		t.Fatal(err)
	}
	if got.ClientID != mysql.DemoClientID || got.Currency != "EUR" || len(got.Positions) != 1 {
		t.Fatalf("account = %+v", got)
	}
	p := got.Positions[0]
	if p.Symbol != "AAPL" || p.PriceStale || !p.CurrentPrice.Equal(dec("175.50")) {
		t.Fatalf("position = %+v", p)
	}
	if !p.MarketValue.Equal(dec("1755.00")) || !p.UnrealizedPnL.Equal(dec("255.00")) {
		t.Fatalf("market value = %s pnl = %s", p.MarketValue, p.UnrealizedPnL)
	}
	if !got.TotalValue.Equal(dec("51755.00")) {
		t.Fatalf("total value = %s", got.TotalValue)
	}
}

func TestGetAccountFallsBackToAveragePrice(t *testing.T) {
	f := newFixture(t)
	f.pricer.priceErr = errors.New("quote feed down")
	svc := NewAccountQueryService(f.accounts, f.pricer, time.Second)

	got, err := svc.GetAccount(context.Background(), mysql.DemoAccountID)
	if err != nil {
		t.Fatalf("GetAccount should degrade, got %v", err)
	}
	p := got.Positions[0]
	if !p.PriceStale || !p.CurrentPrice.Equal(dec("150")) || !p.MarketValue.Equal(dec("1500.00")) || !p.UnrealizedPnL.IsZero() {
		t.Fatalf("position = %+v", p)
	}
}

func TestAccountQueriesMissingAccount(t *testing.T) {
	f := newFixture(t)
	svc := NewAccountQueryService(f.accounts, f.pricer, time.Second)
	ctx := context.Background()

	if _, err := svc.GetAccount(ctx, "missing"); !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("GetAccount err = %v", err)
	}
	if _, err := svc.GetBalance(ctx, "missing"); !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("GetBalance err = %v", err)
	}
	positions, err := svc.GetPositions(ctx, "missing")
	if err != nil || positions == nil || len(positions) != 0 {
		t.Fatalf("GetPositions = %v, %v", positions, err)
	}
}

func TestGetBalance(t *testing.T) {
	f := newFixture(t)
	svc := NewAccountQueryService(f.accounts, f.pricer, time.Second)

	got, err := svc.GetBalance(context.Background(), mysql.DemoAccountID)
	if err != nil {
		t.Fatal(err)
	}
	if !got.CashBalance.Equal(dec("50000")) || got.Currency != "EUR" || got.Display != "€50,000.00" {
		t.Fatalf("balance = %+v", got)
	}
}

func TestGetStockPrice(t *testing.T) {
	f := newFixture(t)
	svc := NewAccountQueryService(f.accounts, f.pricer, time.Second)
	ctx := context.Background()

	q, err := svc.GetStockPrice(ctx, "MSFT")
	if err != nil || q.Symbol != "MSFT" || !q.Price.Equal(dec("380.25")) || q.AsOf.IsZero() {
		t.Fatalf("quote = %+v, %v", q, err)
	}
	if _, err := svc.GetStockPrice(ctx, "NOPE"); !errors.Is(err, domain.ErrPriceUnavailable) {
		t.Fatalf("err = %v", err)
	}
}

func TestOrderQueries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	var ids []string
	for i := 0; i < 25; i++ {
		got, err := f.svc.PlaceOrder(ctx, buy(mysql.DemoAccountID, "AAPL", 1, fmt.Sprintf("page-%02d", i)))
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, got.OrderID)
	}
	svc := NewOrderQueryService(f.orders)

	seen := make(map[string]bool)
	var order []string
	for page, want := range []int{10, 10, 5} {
		res, err := svc.ListOrders(ctx, mysql.DemoAccountID, page+1, 10)
		if err != nil {
			t.Fatal(err)
		}
		if len(res.Items) != want || res.TotalCount != 25 || res.TotalPages != 3 {
			t.Fatalf("page %d: items=%d total=%d pages=%d", page+1, len(res.Items), res.TotalCount, res.TotalPages)
		}
		for _, o := range res.Items {
			if seen[o.OrderID] {
				t.Fatalf("order %s returned twice", o.OrderID)
			}
			seen[o.OrderID] = true
			order = append(order, o.OrderID)
		}
	}
	// 最新的在前
	for i := range ids {
		if order[i] != ids[len(ids)-1-i] {
			t.Fatalf("position %d = %s, want %s", i, order[i], ids[len(ids)-1-i])
		}
	}

	got, err := svc.GetOrder(ctx, ids[3])
	if err != nil || got.OrderID != ids[3] {
		t.Fatalf("GetOrder = %+v, %v", got, err)
	}
	if _, err := svc.GetOrder(ctx, "missing"); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("GetOrder missing err = %v", err)
	}

	res, err := svc.ListOrders(ctx, mysql.DemoAccountID, 0, 0)
	if err != nil || res.PageNumber != 1 || res.PageSize != defaultOrderPageSize || len(res.Items) != defaultOrderPageSize {
		t.Fatalf("default paging = %+v, %v", res, err)
	}
}

func TestValidateOrder(t *testing.T) {
	f := newFixture(t)
	svc := NewValidationService(f.accounts, f.pricer, 10000, time.Second)

	tests := []struct {
		name      string
		query     ValidateOrderQuery
		wantValid bool
		wantErrs  []string
		wantTotal string
	}{
		{
			name:      "valid",
			query:     ValidateOrderQuery{AccountID: mysql.DemoAccountID, Symbol: "AAPL", Quantity: 10},
			wantValid: true,
			wantErrs:  []string{},
			wantTotal: "1755.00",
		},
		{
			name:      "zero quantity",
			query:     ValidateOrderQuery{AccountID: mysql.DemoAccountID, Symbol: "AAPL", Quantity: 0},
			wantErrs:  []string{"Quantity must be greater than zero"},
			wantTotal: "0",
		},
		{
			name:      "quantity over limit",
			query:     ValidateOrderQuery{AccountID: mysql.DemoAccountID, Symbol: "NVDA", Quantity: 10001},
			wantErrs:  []string{"Quantity cannot exceed 10,000 shares", "Insufficient funds. Required: €1,500,150.00, Available: €50,000.00"},
			wantTotal: "1500150",
		},
		{
			name:     "missing symbol",
			query:    ValidateOrderQuery{AccountID: mysql.DemoAccountID, Symbol: " ", Quantity: 1},
			wantErrs: []string{"Stock symbol is required"},
		},
		{
			name:     "unknown symbol",
			query:    ValidateOrderQuery{AccountID: mysql.DemoAccountID, Symbol: "ZZZZ", Quantity: 1},
			wantErrs: []string{"Unable to retrieve current stock price"},
		},
		{
			name:      "insufficient funds",
			query:     ValidateOrderQuery{AccountID: mysql.DemoAccountID, Symbol: "AAPL", Quantity: 500},
			wantErrs:  []string{"Insufficient funds. Required: €87,750.00, Available: €50,000.00"},
			wantTotal: "87750",
		},
		{
			name:      "unknown account",
			query:     ValidateOrderQuery{AccountID: "missing", Symbol: "AAPL", Quantity: 1},
			wantErrs:  []string{"Account not found"},
			wantTotal: "175.5",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := svc.ValidateOrder(context.Background(), tt.query)
			if got.IsValid != tt.wantValid {
				t.Fatalf("IsValid = %v, errors %v", got.IsValid, got.Errors)
			}
			if !reflect.DeepEqual(got.Errors, tt.wantErrs) {
				t.Fatalf("errors = %q, want %q", got.Errors, tt.wantErrs)
			}
			if tt.wantTotal != "" && !got.TotalAmount.Equal(dec(tt.wantTotal)) {
				t.Fatalf("total = %s, want %s", got.TotalAmount, tt.wantTotal)
			}
		})
	}
}
