package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/GolfLocker/golf-locker-pos/pkg/enums"
)

// ReceiptHead is the committed summary of a checkout.
type ReceiptHead struct {
	ReceiptNo     string              `gorm:"column:receipt_no;primaryKey"`
	IssuedAt      time.Time           `gorm:"column:issued_at;not null"`
	PaymentMethod enums.PaymentMethod `gorm:"column:payment_method;not null"`
	Subtotal      decimal.Decimal     `gorm:"column:subtotal;type:numeric(10,2);not null"`
	Discount      decimal.Decimal     `gorm:"column:discount;type:numeric(10,2);not null"`
	GiftCardUsed  decimal.Decimal     `gorm:"column:giftcard_used;type:numeric(10,2);not null"`
	Total         decimal.Decimal     `gorm:"column:total;type:numeric(10,2);not null"`
	CustomerEmail *string             `gorm:"column:customer_email"`
	TicketURL     string              `gorm:"column:ticket_url"`
	MailStatus    enums.MailStatus    `gorm:"column:mail_status;not null;default:'pending'"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
