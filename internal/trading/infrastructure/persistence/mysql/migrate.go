package mysql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// 演示账户，与前端默认账户保持一致
const (
	DemoAccountID  = "11111111-1111-1111-1111-111111111111"
	DemoClientID   = "22222222-2222-2222-2222-222222222222"
	demoPositionID = "33333333-3333-3333-3333-333333333333"
)

// AutoMigrate 创建或升级交易相关表
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&AccountModel{}, &PositionModel{}, &OrderModel{}, &TransactionModel{}); err != nil {
		return fmt.Errorf("failed to migrate trading schema: %w", err)
	}
	return nil
}

// SeedDemoData 写入演示账户：50000.00 EUR 现金与 10 股 AAPL@150.00。已存在时跳过
func SeedDemoData(ctx context.Context, db *gorm.DB, now time.Time) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing AccountModel
		err := tx.Where("account_id = ?", DemoAccountID).First(&existing).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		account := AccountModel{
			AccountID:   DemoAccountID,
			ClientID:    DemoClientID,
			CashBalance: decimal.RequireFromString("50000.00"),
			Currency:    "EUR",
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := tx.Create(&account).Error; err != nil {
			return fmt.Errorf("failed to seed account: %w", err)
		}
		position := PositionModel{
			PositionID:   demoPositionID,
			AccountID:    DemoAccountID,
			Symbol:       "AAPL",
			Quantity:     10,
			AveragePrice: decimal.RequireFromString("150.00"),
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := tx.Create(&position).Error; err != nil {
			return fmt.Errorf("failed to seed position: %w", err)
		}
		return nil
	})
}
