package returns

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/GolfLocker/golf-locker-pos/internal/repo"
	"github.com/GolfLocker/golf-locker-pos/pkg/db/models"
)

// Repository provides access to return records.
type Repository struct {
	repo.Base
}

// NewRepository constructs a returns repository.
func NewRepository(conn *gorm.DB) Repository {
	return Repository{Base: repo.NewBase(conn)}
}

// ExistsTx reports whether the (receipt, sku) pair was already refunded.
func (r Repository) ExistsTx(tx *gorm.DB, receiptNo, sku string) (bool, error) {
	var count int64
	err := tx.Model(&models.ReturnRecord{}).
		Where("receipt_no = ? AND sku = ?", receiptNo, sku).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check return record: %w", err)
	}
	return count > 0, nil
}

// ListForReceipt loads every refund already taken against a receipt.
func (r Repository) ListForReceipt(ctx context.Context, receiptNo string) ([]models.ReturnRecord, error) {
	var records []models.ReturnRecord
	err := r.DB(ctx).
		Where("receipt_no = ?", receiptNo).
		Order("created_at asc").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("list return records: %w", err)
	}
	return records, nil
}

// ListRecent returns the newest refunds first.
func (r Repository) ListRecent(ctx context.Context, limit int) ([]models.ReturnRecord, error) {
	var records []models.ReturnRecord
	err := r.DB(ctx).
		Order("created_at desc").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("list return records: %w", err)
	}
	return records, nil
}

// CreateTx inserts the refund marker inside the supplied transaction. The
// unique index on (receipt_no, sku) rejects concurrent duplicates.
func (r Repository) CreateTx(tx *gorm.DB, record *models.ReturnRecord) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if err := tx.Create(record).Error; err != nil {
		return fmt.Errorf("create return record: %w", err)
	}
	return nil
}
