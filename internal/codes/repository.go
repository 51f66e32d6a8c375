package codes

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/GolfLocker/golf-locker-pos/internal/repo"
	"github.com/GolfLocker/golf-locker-pos/pkg/db/models"
)

// Repository provides access to issued gift cards.
type Repository struct {
	repo.Base
}

// NewRepository constructs a gift card repository.
func NewRepository(conn *gorm.DB) Repository {
	return Repository{Base: repo.NewBase(conn)}
}

// GetDiscount loads a discount code.
func (r Repository) GetDiscount(ctx context.Context, code string) (*models.DiscountCode, error) {
	var discount models.DiscountCode
	if err := r.DB(ctx).First(&discount, "code = ?", code).Error; err != nil {
		return nil, err
	}
	return &discount, nil
}

// Get loads a card by code.
func (r Repository) Get(ctx context.Context, code string) (*models.GiftCard, error) {
	var card models.GiftCard
	if err := r.DB(ctx).First(&card, "code = ?", code).Error; err != nil {
		return nil, err
	}
	return &card, nil
}

// ListRecent returns the newest cards first.
func (r Repository) ListRecent(ctx context.Context, limit int) ([]models.GiftCard, error) {
	var cards []models.GiftCard
	err := r.DB(ctx).
		Order("created_at desc").
		Limit(limit).
		Find(&cards).Error
	if err != nil {
		return nil, fmt.Errorf("list gift cards: %w", err)
	}
	return cards, nil
}

// ExistsTx reports whether a code is already taken, reading through the
// supplied transaction so cards issued earlier in it are visible.
func (r Repository) ExistsTx(tx *gorm.DB, code string) (bool, error) {
	var count int64
	err := tx.Model(&models.GiftCard{}).Where("code = ?", code).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check gift card code: %w", err)
	}
	return count > 0, nil
}

// CreateTx inserts a freshly issued card inside the supplied transaction.
func (r Repository) CreateTx(tx *gorm.DB, card *models.GiftCard) error {
	if err := tx.Create(card).Error; err != nil {
		return fmt.Errorf("create gift card: %w", err)
	}
	return nil
}

// DebitTx reduces the card balance and stamps the receipt onto its history.
func (r Repository) DebitTx(tx *gorm.DB, code string, amount decimal.Decimal, receiptNo string) error {
	var card models.GiftCard
	if err := tx.First(&card, "code = ?", code).Error; err != nil {
		return err
	}
	if card.Balance.LessThan(amount) {
		return fmt.Errorf("gift card %s balance %s below debit %s", code, card.Balance, amount)
	}

	card.Balance = card.Balance.Sub(amount)
	card.History = append(card.History, fmt.Sprintf("%s | -€%s", receiptNo, amount.StringFixed(2)))
	if err := tx.Model(&card).Select("balance", "history").Updates(&card).Error; err != nil {
		return fmt.Errorf("debit gift card: %w", err)
	}
	return nil
}
