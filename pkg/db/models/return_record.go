package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReturnRecord marks one (receipt, sku) pair as refunded. The unique index is
// the duplicate-return guard.
type ReturnRecord struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	ReturnNo  string          `gorm:"column:return_no;not null"`
	ReceiptNo string          `gorm:"column:receipt_no;not null;uniqueIndex:idx_return_records_receipt_sku"`
	SKU       string          `gorm:"column:sku;not null;uniqueIndex:idx_return_records_receipt_sku"`
	Amount    decimal.Decimal `gorm:"column:amount;type:numeric(10,2);not null"`
	Reason    *string         `gorm:"column:reason"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
}
