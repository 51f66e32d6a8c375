package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/GolfLocker/golf-locker-pos/pkg/enums"
)

// InventoryRow is a single physical item (or service slot) on the shop floor.
// Each unit gets its own row; a row is sold exactly once.
type InventoryRow struct {
	ID             uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	SKU            string            `gorm:"column:sku;not null;index:idx_inventory_rows_sku"`
	Category       enums.Category    `gorm:"column:category;not null;index:idx_inventory_rows_category"`
	Description    string            `gorm:"column:description;not null"`
	BuyPrice       *decimal.Decimal  `gorm:"column:buy_price;type:numeric(10,2)"`
	Party          string            `gorm:"column:party"`
	ExpectedPrice  decimal.Decimal   `gorm:"column:expected_price;type:numeric(10,2);not null"`
	ExpectedMargin decimal.Decimal   `gorm:"column:expected_margin;type:numeric(10,2);not null"`
	BackupExpected decimal.Decimal   `gorm:"column:backup_expected;type:numeric(10,2);not null"`
	SalePrice      *decimal.Decimal  `gorm:"column:sale_price;type:numeric(10,2)"`
	SaleDate       *time.Time        `gorm:"column:sale_date"`
	Channel        enums.SaleChannel `gorm:"column:channel;not null;default:'store'"`
	CreatedAt      time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// Sold reports whether the row has already been committed to a receipt.
func (r InventoryRow) Sold() bool {
	return r.SaleDate != nil
}
