package receipts

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/GolfLocker/golf-locker-pos/internal/repo"
	"github.com/GolfLocker/golf-locker-pos/pkg/db/models"
	"github.com/GolfLocker/golf-locker-pos/pkg/enums"
)

// Repository provides access to committed receipts.
type Repository struct {
	repo.Base
}

// NewRepository constructs a receipts repository.
func NewRepository(conn *gorm.DB) Repository {
	return Repository{Base: repo.NewBase(conn)}
}

// CreateHeadTx inserts the receipt summary inside the supplied transaction.
func (r Repository) CreateHeadTx(tx *gorm.DB, head *models.ReceiptHead) error {
	if err := tx.Create(head).Error; err != nil {
		return fmt.Errorf("create receipt head: %w", err)
	}
	return nil
}

// CreateLinesTx inserts the receipt lines inside the supplied transaction.
func (r Repository) CreateLinesTx(tx *gorm.DB, lines []models.ReceiptLine) error {
	for i := range lines {
		if lines[i].ID == uuid.Nil {
			lines[i].ID = uuid.New()
		}
	}
	if err := tx.Create(&lines).Error; err != nil {
		return fmt.Errorf("create receipt lines: %w", err)
	}
	return nil
}

// AppendLineTx adds one line to an existing receipt. Used by return reversals.
func (r Repository) AppendLineTx(tx *gorm.DB, line *models.ReceiptLine) error {
	if line.ID == uuid.Nil {
		line.ID = uuid.New()
	}
	if err := tx.Create(line).Error; err != nil {
		return fmt.Errorf("append receipt line: %w", err)
	}
	return nil
}

// AdjustTotalTx shifts the receipt total by delta, negative for refunds.
func (r Repository) AdjustTotalTx(tx *gorm.DB, receiptNo string, delta decimal.Decimal) error {
	res := tx.Model(&models.ReceiptHead{}).
		Where("receipt_no = ?", receiptNo).
		UpdateColumn("total", gorm.Expr("total + ?", delta))
	if res.Error != nil {
		return fmt.Errorf("adjust receipt total: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// GetHead loads the receipt summary.
func (r Repository) GetHead(ctx context.Context, receiptNo string) (*models.ReceiptHead, error) {
	var head models.ReceiptHead
	if err := r.DB(ctx).First(&head, "receipt_no = ?", receiptNo).Error; err != nil {
		return nil, err
	}
	return &head, nil
}

// GetHeadTx loads the receipt summary through the supplied transaction.
func (r Repository) GetHeadTx(tx *gorm.DB, receiptNo string) (*models.ReceiptHead, error) {
	var head models.ReceiptHead
	if err := tx.First(&head, "receipt_no = ?", receiptNo).Error; err != nil {
		return nil, err
	}
	return &head, nil
}

// GetLines loads a receipt's lines in insertion order.
func (r Repository) GetLines(ctx context.Context, receiptNo string) ([]models.ReceiptLine, error) {
	var lines []models.ReceiptLine
	err := r.DB(ctx).
		Where("receipt_no = ?", receiptNo).
		Order("created_at asc").
		Find(&lines).Error
	if err != nil {
		return nil, fmt.Errorf("load receipt lines: %w", err)
	}
	return lines, nil
}

// GetLinesTx loads a receipt's lines through the supplied transaction.
func (r Repository) GetLinesTx(tx *gorm.DB, receiptNo string) ([]models.ReceiptLine, error) {
	var lines []models.ReceiptLine
	err := tx.
		Where("receipt_no = ?", receiptNo).
		Order("created_at asc").
		Find(&lines).Error
	if err != nil {
		return nil, fmt.Errorf("load receipt lines: %w", err)
	}
	return lines, nil
}

// ListRecent returns the newest receipts first.
func (r Repository) ListRecent(ctx context.Context, limit int) ([]models.ReceiptHead, error) {
	var heads []models.ReceiptHead
	err := r.DB(ctx).
		Order("issued_at desc").
		Limit(limit).
		Find(&heads).Error
	if err != nil {
		return nil, fmt.Errorf("list receipts: %w", err)
	}
	return heads, nil
}

// Search matches receipts by number fragment or by a SKU they sold.
func (r Repository) Search(ctx context.Context, query string, limit int) ([]models.ReceiptHead, error) {
	var heads []models.ReceiptHead
	err := r.DB(ctx).
		Where("receipt_no LIKE ?", "%"+query+"%").
		Or("receipt_no IN (?)", r.DB(ctx).
			Model(&models.ReceiptLine{}).
			Select("receipt_no").
			Where("sku = ?", query)).
		Order("issued_at desc").
		Limit(limit).
		Find(&heads).Error
	if err != nil {
		return nil, fmt.Errorf("search receipts: %w", err)
	}
	return heads, nil
}

// UpdateMailStatus records the outcome of the receipt mail send.
func (r Repository) UpdateMailStatus(ctx context.Context, receiptNo string, status enums.MailStatus) error {
	res := r.DB(ctx).Model(&models.ReceiptHead{}).
		Where("receipt_no = ?", receiptNo).
		UpdateColumn("mail_status", status)
	if res.Error != nil {
		return fmt.Errorf("update mail status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// LastReceiptNoForSKU returns the newest receipt that sold the SKU. Empty
// string when the SKU never appeared on a receipt.
func (r Repository) LastReceiptNoForSKU(ctx context.Context, sku string) (string, error) {
	var line models.ReceiptLine
	err := r.DB(ctx).
		Where("sku = ? AND quantity > 0", sku).
		Order("created_at desc").
		First(&line).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return "", nil
		}
		return "", fmt.Errorf("find receipt for sku: %w", err)
	}
	return line.ReceiptNo, nil
}

// LastReceiptNoForSKUTx is LastReceiptNoForSKU reading through the supplied
// transaction, so a commit in flight sees the receipt that just beat it.
func (r Repository) LastReceiptNoForSKUTx(tx *gorm.DB, sku string) (string, error) {
	var line models.ReceiptLine
	err := tx.
		Where("sku = ? AND quantity > 0", sku).
		Order("created_at desc").
		First(&line).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return "", nil
		}
		return "", fmt.Errorf("find receipt for sku: %w", err)
	}
	return line.ReceiptNo, nil
}
