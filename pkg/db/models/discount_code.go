package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/GolfLocker/golf-locker-pos/pkg/enums"
)

// DiscountCode is a promotional code the register can apply to a sale. Percent
// codes store the percentage in Value; fixed codes store a euro amount. A code
// with an expiry stays usable through the end of that day.
type DiscountCode struct {
	Code      string             `gorm:"column:code;primaryKey"`
	Kind      enums.DiscountKind `gorm:"column:kind;not null"`
	Value     decimal.Decimal    `gorm:"column:value;type:numeric(10,2);not null"`
	Active    bool               `gorm:"column:active;not null;default:true"`
	ExpiresAt *time.Time         `gorm:"column:expires_at"`
	CreatedAt time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

// Usable reports whether the code can be applied at the given moment.
func (d DiscountCode) Usable(now time.Time) bool {
	if !d.Active {
		return false
	}
	if d.ExpiresAt == nil {
		return true
	}
	endOfDay := time.Date(d.ExpiresAt.Year(), d.ExpiresAt.Month(), d.ExpiresAt.Day(),
		23, 59, 59, 0, d.ExpiresAt.Location())
	return !now.After(endOfDay)
}
