package inventory

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/GolfLocker/golf-locker-pos/internal/repo"
	"github.com/GolfLocker/golf-locker-pos/pkg/db/models"
	"github.com/GolfLocker/golf-locker-pos/pkg/enums"
)

// Repository provides access to the row-per-unit inventory table.
type Repository struct {
	repo.Base
}

// NewRepository constructs an inventory repository.
func NewRepository(db *gorm.DB) Repository {
	return Repository{Base: repo.NewBase(db)}
}

// ListByCategory returns every row in the category, free and sold.
func (r Repository) ListByCategory(ctx context.Context, category enums.Category) ([]models.InventoryRow, error) {
	var rows []models.InventoryRow
	err := r.DB(ctx).
		Where("category = ?", category).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list inventory by category: %w", err)
	}
	return rows, nil
}

// ListRecent returns the newest rows across all categories.
func (r Repository) ListRecent(ctx context.Context, limit int) ([]models.InventoryRow, error) {
	var rows []models.InventoryRow
	err := r.DB(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list recent inventory: %w", err)
	}
	return rows, nil
}

// Create inserts a new inventory row.
func (r Repository) Create(ctx context.Context, row *models.InventoryRow) error {
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	if err := r.DB(ctx).Create(row).Error; err != nil {
		return fmt.Errorf("create inventory row: %w", err)
	}
	return nil
}

// FindBySKUTx loads every row carrying the SKU inside the supplied transaction.
func (r Repository) FindBySKUTx(tx *gorm.DB, sku string) ([]models.InventoryRow, error) {
	var rows []models.InventoryRow
	err := tx.
		Where("sku = ?", sku).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("find inventory by sku: %w", err)
	}
	return rows, nil
}

// MarkSoldTx stamps a row as sold at the allocated net unit price. The
// expected price is zeroed so margin reports stop counting the item, while
// backup_expected keeps the original for return restores.
func (r Repository) MarkSoldTx(tx *gorm.DB, id uuid.UUID, unitNet decimal.Decimal, at time.Time) error {
	res := tx.Model(&models.InventoryRow{}).
		Where("id = ? AND sale_date IS NULL", id).
		Updates(map[string]any{
			"sale_price":      unitNet,
			"sale_date":       at,
			"expected_price":  decimal.Zero,
			"expected_margin": decimal.Zero,
		})
	if res.Error != nil {
		return fmt.Errorf("mark row sold: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// RestoreTx reverses a sale: the expected price comes back from the backup
// column and the sale stamp is cleared.
func (r Repository) RestoreTx(tx *gorm.DB, id uuid.UUID) error {
	var row models.InventoryRow
	if err := tx.First(&row, "id = ?", id).Error; err != nil {
		return fmt.Errorf("load row for restore: %w", err)
	}

	margin := row.BackupExpected
	if row.BuyPrice != nil {
		margin = row.BackupExpected.Sub(*row.BuyPrice)
	}

	res := tx.Model(&models.InventoryRow{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"sale_price":      nil,
			"sale_date":       nil,
			"expected_price":  row.BackupExpected,
			"expected_margin": margin,
		})
	if res.Error != nil {
		return fmt.Errorf("restore row: %w", res.Error)
	}
	return nil
}

// CreateTx inserts a new inventory row inside the supplied transaction.
func (r Repository) CreateTx(tx *gorm.DB, row *models.InventoryRow) error {
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	if err := tx.Create(row).Error; err != nil {
		return fmt.Errorf("create inventory row: %w", err)
	}
	return nil
}

// MaxSKUSuffixTx returns the highest numeric suffix among SKUs with the given
// prefix, or 0 when none exist. Reads through the supplied transaction so it
// can seed the prefix counter consistently with the insert that follows.
func (r Repository) MaxSKUSuffixTx(tx *gorm.DB, prefix string) (int, error) {
	var skus []string
	err := tx.Model(&models.InventoryRow{}).
		Where("sku LIKE ?", prefix+"%").
		Pluck("sku", &skus).Error
	if err != nil {
		return 0, fmt.Errorf("scan sku suffixes: %w", err)
	}

	max := 0
	for _, sku := range skus {
		suffix := strings.TrimPrefix(sku, prefix)
		n, err := strconv.Atoi(suffix)
		if err != nil {
			continue
		}
		if n > max {
			max = n
		}
	}
	return max, nil
}

// MaxNumericSKUTx returns the highest fully numeric SKU in the table, or 0.
func (r Repository) MaxNumericSKUTx(tx *gorm.DB) (int, error) {
	var skus []string
	err := tx.Model(&models.InventoryRow{}).
		Pluck("sku", &skus).Error
	if err != nil {
		return 0, fmt.Errorf("scan skus: %w", err)
	}

	max := 0
	for _, sku := range skus {
		n, err := strconv.Atoi(sku)
		if err != nil {
			continue
		}
		if n > max {
			max = n
		}
	}
	return max, nil
}
