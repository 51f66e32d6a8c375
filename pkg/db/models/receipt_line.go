package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReceiptLine is one SKU position on a committed receipt. UnitPrice is the
// net unit price after proportional discount allocation. Return reversals
// append a second line with a negative quantity and total.
type ReceiptLine struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	ReceiptNo   string          `gorm:"column:receipt_no;not null;index:idx_receipt_lines_receipt_no"`
	SKU         string          `gorm:"column:sku;not null;index:idx_receipt_lines_sku"`
	Description string          `gorm:"column:description;not null"`
	UnitPrice   decimal.Decimal `gorm:"column:unit_price;type:numeric(10,2);not null"`
	Quantity    int             `gorm:"column:quantity;not null"`
	LineTotal   decimal.Decimal `gorm:"column:line_total;type:numeric(10,2);not null"`
	Party       string          `gorm:"column:party"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
}
