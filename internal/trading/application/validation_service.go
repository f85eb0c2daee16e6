package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/tradeportal/internal/trading/domain"
	"github.com/wyfcoding/tradeportal/pkg/logger"
	"github.com/wyfcoding/tradeportal/pkg/utils"
)

// ValidateOrderQuery 下单前校验请求
type ValidateOrderQuery struct {
	AccountID string
	Symbol    string
	Quantity  int64
}

// ValidationService 下单前校验，业务规则不通过时只收集错误信息，不返回 error
type ValidationService struct {
	accounts     domain.AccountRepository
	quotes       domain.PricingPort
	maxQuantity  int64
	priceTimeout time.Duration
}

// NewValidationService 创建校验服务
func NewValidationService(accounts domain.AccountRepository, quotes domain.PricingPort, maxQuantity int64, priceTimeout time.Duration) *ValidationService {
	return &ValidationService{
		accounts:     accounts,
		quotes:       quotes,
		maxQuantity:  maxQuantity,
		priceTimeout: priceTimeout,
	}
}

// ValidateOrder 校验数量、代码、报价与可用资金
func (s *ValidationService) ValidateOrder(ctx context.Context, q ValidateOrderQuery) *ValidationResultDTO {
	logger.Info(ctx, "validating order", "account_id", q.AccountID, "symbol", q.Symbol, "quantity", q.Quantity)

	errs := make([]string, 0)
	if q.Quantity <= 0 {
		errs = append(errs, "Quantity must be greater than zero")
	}
	if q.Quantity > s.maxQuantity {
		errs = append(errs, fmt.Sprintf("Quantity cannot exceed %s shares", utils.GroupThousands(s.maxQuantity)))
	}
	if strings.TrimSpace(q.Symbol) == "" {
		errs = append(errs, "Stock symbol is required")
		return &ValidationResultDTO{IsValid: false, Errors: errs}
	}

	pctx, cancel := context.WithTimeout(ctx, s.priceTimeout)
	price, err := s.quotes.GetPrice(pctx, q.Symbol)
	cancel()
	if err != nil {
		logger.Error(ctx, "failed to get stock price for validation", "symbol", q.Symbol, "error", err)
		errs = append(errs, "Unable to retrieve current stock price")
		return &ValidationResultDTO{IsValid: false, Errors: errs}
	}

	total := price.Mul(decimal.NewFromInt(q.Quantity))
	if msg, ok := s.checkFunds(ctx, q.AccountID, total); !ok {
		errs = append(errs, msg)
	}

	return &ValidationResultDTO{
		IsValid:      len(errs) == 0,
		Errors:       errs,
		CurrentPrice: price,
		TotalAmount:  total,
	}
}

func (s *ValidationService) checkFunds(ctx context.Context, accountID string, total decimal.Decimal) (string, bool) {
	ok, err := s.accounts.HasSufficientFunds(ctx, accountID, total)
	if err != nil {
		logger.Error(ctx, "failed to check account funds", "account_id", accountID, "error", err)
		return "Unable to verify account balance", false
	}
	if ok {
		return "", true
	}

	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		logger.Error(ctx, "failed to check account funds", "account_id", accountID, "error", err)
		return "Unable to verify account balance", false
	}
	if account == nil {
		return "Account not found", false
	}
	return fmt.Sprintf("Insufficient funds. Required: %s, Available: %s",
		domain.FormatAmount(total, account.Currency),
		domain.FormatAmount(account.CashBalance, account.Currency),
	), false
}
