package inventory

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/GolfLocker/golf-locker-pos/internal/sequence"
	"github.com/GolfLocker/golf-locker-pos/pkg/db"
	"github.com/GolfLocker/golf-locker-pos/pkg/db/models"
	"github.com/GolfLocker/golf-locker-pos/pkg/enums"
	pkgerrors "github.com/GolfLocker/golf-locker-pos/pkg/errors"
)

type noopInvalidator struct {
	calls int
}

func (n *noopInvalidator) Invalidate(_ context.Context, _ ...enums.Category) error {
	n.calls++
	return nil
}

func newTestConn(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"),
		&gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&models.InventoryRow{}, &models.Counter{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return conn
}

func newTestService(t *testing.T) (Service, Repository, *noopInvalidator) {
	t.Helper()
	conn := newTestConn(t)
	repo := NewRepository(conn)
	inv := &noopInvalidator{}
	svc, err := NewService(ServiceParams{
		DB:          db.NewFromConn(conn),
		Repo:        repo,
		Sequence:    sequence.NewRepository(conn),
		Invalidator: inv,
	})
	if err != nil {
		t.Fatalf("failed to build service: %v", err)
	}
	return svc, repo, inv
}

func TestCreateItemAutoNumbersFromBaseline(t *testing.T) {
	svc, _, inv := newTestService(t)
	ctx := context.Background()

	row, err := svc.CreateItem(ctx, CreateItemInput{
		Category:      enums.CategoryClubs,
		Description:   "Ping G425 driver",
		ExpectedPrice: decimal.NewFromInt(180),
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if row.SKU != "1514" {
		t.Fatalf("expected first auto sku 1514, got %s", row.SKU)
	}
	if inv.calls != 1 {
		t.Fatalf("expected one invalidation, got %d", inv.calls)
	}

	second, err := svc.CreateItem(ctx, CreateItemInput{
		Category:      enums.CategoryClubs,
		Description:   "Titleist 915 3-wood",
		ExpectedPrice: decimal.NewFromInt(90),
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if second.SKU != "1515" {
		t.Fatalf("expected next sku 1515, got %s", second.SKU)
	}
}

func TestCreateItemComputesMarginAndBackup(t *testing.T) {
	svc, _, _ := newTestService(t)
	buy := decimal.NewFromInt(40)

	row, err := svc.CreateItem(context.Background(), CreateItemInput{
		Category:      enums.CategoryBags,
		Description:   "Titleist cart bag",
		BuyPrice:      &buy,
		ExpectedPrice: decimal.NewFromInt(100),
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if !row.ExpectedMargin.Equal(decimal.NewFromInt(60)) {
		t.Fatalf("unexpected margin %s", row.ExpectedMargin)
	}
	if !row.BackupExpected.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("unexpected backup %s", row.BackupExpected)
	}
}

func TestCreateItemValidation(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.CreateItem(context.Background(), CreateItemInput{
		Category:      enums.Category("lawnmowers"),
		Description:   "x",
		ExpectedPrice: decimal.NewFromInt(10),
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected INVALID_INPUT, got %v", err)
	}

	_, err = svc.CreateItem(context.Background(), CreateItemInput{
		Category:      enums.CategoryClubs,
		ExpectedPrice: decimal.NewFromInt(10),
	})
	typed = pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected INVALID_INPUT for missing description, got %v", err)
	}
}

func TestCreateGeneratedNumbersPerPrefix(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.CreateGenerated(ctx, "GIFTCARD")
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if first.SKU != "GIFTCARD-1" {
		t.Fatalf("unexpected sku %s", first.SKU)
	}

	second, err := svc.CreateGenerated(ctx, "GIFTCARD")
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if second.SKU != "GIFTCARD-2" {
		t.Fatalf("unexpected sku %s", second.SKU)
	}

	if _, err := svc.CreateGenerated(ctx, "NOT-A-GENERATOR"); pkgerrors.As(err) == nil {
		t.Fatalf("expected typed error for unknown generator, got %v", err)
	}
}

func TestCreateItemNeverReissuesSKU(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.CreateItem(ctx, CreateItemInput{
		Category:      enums.CategoryClubs,
		Description:   "Mizuno JPX irons",
		ExpectedPrice: decimal.NewFromInt(300),
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	// with a max scan the deleted SKU would come back; the counter keeps
	// the sequence moving forward
	if err := repo.DB(ctx).Delete(&models.InventoryRow{}, "id = ?", first.ID).Error; err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	second, err := svc.CreateItem(ctx, CreateItemInput{
		Category:      enums.CategoryClubs,
		Description:   "Srixon ZX5 irons",
		ExpectedPrice: decimal.NewFromInt(250),
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if second.SKU == first.SKU {
		t.Fatalf("sku %s issued twice", second.SKU)
	}
	if second.SKU != "1515" {
		t.Fatalf("expected 1515, got %s", second.SKU)
	}
}

func TestCreateGeneratedNeverReissuesSuffix(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.CreateGenerated(ctx, "GIFTCARD")
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if err := repo.DB(ctx).Delete(&models.InventoryRow{}, "id = ?", first.ID).Error; err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	second, err := svc.CreateGenerated(ctx, "GIFTCARD")
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if second.SKU != "GIFTCARD-2" {
		t.Fatalf("expected GIFTCARD-2 after GIFTCARD-1 was removed, got %s", second.SKU)
	}
}

func TestMarkSoldAndRestoreRoundTrip(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()
	buy := decimal.NewFromInt(50)

	row, err := svc.CreateItem(ctx, CreateItemInput{
		Category:      enums.CategorySets,
		Description:   "Callaway starter set",
		BuyPrice:      &buy,
		ExpectedPrice: decimal.NewFromInt(120),
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	tx := repo.DB(ctx)
	if err := repo.MarkSoldTx(tx, row.ID, decimal.NewFromInt(110), time.Now()); err != nil {
		t.Fatalf("mark sold failed: %v", err)
	}

	var sold models.InventoryRow
	if err := tx.First(&sold, "id = ?", row.ID).Error; err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if !sold.Sold() {
		t.Fatalf("expected row to be sold")
	}
	if !sold.ExpectedPrice.IsZero() {
		t.Fatalf("expected price should be zeroed, got %s", sold.ExpectedPrice)
	}
	if !sold.BackupExpected.Equal(decimal.NewFromInt(120)) {
		t.Fatalf("backup should survive the sale, got %s", sold.BackupExpected)
	}

	// selling the same row twice must fail
	if err := repo.MarkSoldTx(tx, row.ID, decimal.NewFromInt(110), time.Now()); err != gorm.ErrRecordNotFound {
		t.Fatalf("expected ErrRecordNotFound on double sale, got %v", err)
	}

	if err := repo.RestoreTx(tx, row.ID); err != nil {
		t.Fatalf("restore failed: %v", err)
	}
	var restored models.InventoryRow
	if err := tx.First(&restored, "id = ?", row.ID).Error; err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if restored.Sold() {
		t.Fatalf("expected sale stamp cleared")
	}
	if !restored.ExpectedPrice.Equal(decimal.NewFromInt(120)) {
		t.Fatalf("expected price restored from backup, got %s", restored.ExpectedPrice)
	}
	if !restored.ExpectedMargin.Equal(decimal.NewFromInt(70)) {
		t.Fatalf("expected margin recomputed, got %s", restored.ExpectedMargin)
	}
}
