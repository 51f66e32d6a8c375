package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// GiftCardHistory records every debit against a card, newest last.
type GiftCardHistory []string

// GiftCard is a prepaid card issued at checkout and redeemable at the register.
type GiftCard struct {
	Code            string          `gorm:"column:code;primaryKey"`
	InitialBalance  decimal.Decimal `gorm:"column:initial_balance;type:numeric(10,2);not null"`
	Balance         decimal.Decimal `gorm:"column:balance;type:numeric(10,2);not null"`
	IssuedReceiptNo *string         `gorm:"column:issued_receipt_no"`
	History         GiftCardHistory `gorm:"column:history;serializer:json"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
