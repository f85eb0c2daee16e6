package application

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/tradeportal/internal/trading/domain"
	"github.com/wyfcoding/tradeportal/pkg/logger"
)

// AccountQueryService 账户、持仓与报价的只读投影
type AccountQueryService struct {
	accounts     domain.AccountRepository
	quotes       domain.PricingPort
	priceTimeout time.Duration
	now          func() time.Time
}

// NewAccountQueryService 创建账户查询服务。quotes 可以是带缓存的报价源
func NewAccountQueryService(accounts domain.AccountRepository, quotes domain.PricingPort, priceTimeout time.Duration) *AccountQueryService {
	return &AccountQueryService{
		accounts:     accounts,
		quotes:       quotes,
		priceTimeout: priceTimeout,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// GetAccount 账户概览，持仓按当前价估值
func (s *AccountQueryService) GetAccount(ctx context.Context, accountID string) (*AccountDTO, error) {
	account, err := s.accounts.GetWithPositions(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to load account: %w", err)
	}
	if account == nil {
		return nil, domain.ErrAccountNotFound
	}

	positions := s.valuePositions(ctx, account)
	total := account.CashBalance
	for _, p := range positions {
		total = total.Add(p.MarketValue)
	}
	return &AccountDTO{
		AccountID:   account.AccountID,
		ClientID:    account.ClientID,
		CashBalance: account.CashBalance,
		Currency:    account.Currency,
		Positions:   positions,
		TotalValue:  total,
		CreatedAt:   account.CreatedAt,
		UpdatedAt:   account.UpdatedAt,
	}, nil
}

// GetBalance 现金余额
func (s *AccountQueryService) GetBalance(ctx context.Context, accountID string) (*BalanceDTO, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to load account: %w", err)
	}
	if account == nil {
		return nil, domain.ErrAccountNotFound
	}
	return &BalanceDTO{
		AccountID:   account.AccountID,
		CashBalance: account.CashBalance,
		Currency:    account.Currency,
		Display:     domain.FormatAmount(account.CashBalance, account.Currency),
	}, nil
}

// GetPositions 持仓列表，账户不存在时返回空列表
func (s *AccountQueryService) GetPositions(ctx context.Context, accountID string) ([]PositionDTO, error) {
	account, err := s.accounts.GetWithPositions(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to load positions: %w", err)
	}
	if account == nil {
		return []PositionDTO{}, nil
	}
	return s.valuePositions(ctx, account), nil
}

// GetStockPrice 当前报价
func (s *AccountQueryService) GetStockPrice(ctx context.Context, symbol string) (*QuoteDTO, error) {
	price, err := s.price(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrPriceUnavailable, symbol, err)
	}
	return &QuoteDTO{Symbol: symbol, Price: price, AsOf: s.now()}, nil
}

// valuePositions 报价失败时以均价展示，不影响下单路径
func (s *AccountQueryService) valuePositions(ctx context.Context, account *domain.Account) []PositionDTO {
	places := domain.MinorUnits(account.Currency)
	sorted := account.SortedPositions()
	out := make([]PositionDTO, 0, len(sorted))
	for _, p := range sorted {
		price, err := s.price(ctx, p.Symbol)
		if err != nil {
			logger.Warn(ctx, "quote unavailable, valuing position at average price",
				"account_id", account.AccountID,
				"symbol", p.Symbol,
				"error", err,
			)
			out = append(out, toPositionDTO(p, p.AveragePrice, true, places))
			continue
		}
		out = append(out, toPositionDTO(p, price, false, places))
	}
	return out
}

func (s *AccountQueryService) price(ctx context.Context, symbol string) (decimal.Decimal, error) {
	pctx, cancel := context.WithTimeout(ctx, s.priceTimeout)
	defer cancel()
	return s.quotes.GetPrice(pctx, symbol)
}
