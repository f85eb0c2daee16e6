package domain

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

const defaultMinorUnits = 2

// IsKnownCurrency 判断是否为 ISO 4217 货币代码
func IsKnownCurrency(code string) bool {
	return money.GetCurrency(code) != nil
}

// MinorUnits 货币的最小单位小数位数
func MinorUnits(code string) int32 {
	if c := money.GetCurrency(code); c != nil {
		return int32(c.Fraction)
	}
	return defaultMinorUnits
}

// OrderTotal 计算订单金额 price × quantity，按账户货币最小单位舍入
func OrderTotal(price decimal.Decimal, quantity int64, currency string) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(quantity)).Round(MinorUnits(currency))
}

// FormatAmount 按货币格式展示金额，例如 €1,755.00
func FormatAmount(amount decimal.Decimal, currency string) string {
	c := money.GetCurrency(currency)
	if c == nil {
		return amount.StringFixed(defaultMinorUnits) + " " + currency
	}
	minor := amount.Round(int32(c.Fraction)).Shift(int32(c.Fraction)).IntPart()
	return money.New(minor, c.Code).Display()
}
