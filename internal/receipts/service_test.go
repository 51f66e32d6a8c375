package receipts

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/GolfLocker/golf-locker-pos/pkg/db/models"
	"github.com/GolfLocker/golf-locker-pos/pkg/enums"
	pkgerrors "github.com/GolfLocker/golf-locker-pos/pkg/errors"
)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&models.ReceiptHead{}, &models.ReceiptLine{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	svc, err := NewService(ServiceParams{
		Repo:          NewRepository(conn),
		TicketBaseURL: "https://tickets.golflocker.test/",
	})
	if err != nil {
		t.Fatalf("failed to build service: %v", err)
	}
	return svc, conn
}

func seedReceipt(t *testing.T, conn *gorm.DB, receiptNo string, issuedAt time.Time) {
	t.Helper()
	head := &models.ReceiptHead{
		ReceiptNo:     receiptNo,
		IssuedAt:      issuedAt,
		PaymentMethod: enums.PaymentMethodPin,
		Subtotal:      decimal.NewFromInt(150),
		Discount:      decimal.NewFromInt(30),
		GiftCardUsed:  decimal.Zero,
		Total:         decimal.NewFromInt(120),
		MailStatus:    enums.MailStatusPending,
	}
	if err := conn.Create(head).Error; err != nil {
		t.Fatalf("seed head failed: %v", err)
	}
	repo := NewRepository(conn)
	lines := []models.ReceiptLine{
		{ReceiptNo: receiptNo, SKU: "1600", Description: "driver", UnitPrice: decimal.NewFromInt(80), Quantity: 1, LineTotal: decimal.NewFromInt(80)},
		{ReceiptNo: receiptNo, SKU: "1601", Description: "putter", UnitPrice: decimal.NewFromInt(40), Quantity: 1, LineTotal: decimal.NewFromInt(40)},
	}
	if err := conn.Transaction(func(tx *gorm.DB) error {
		return repo.CreateLinesTx(tx, lines)
	}); err != nil {
		t.Fatalf("seed lines failed: %v", err)
	}
}

func TestGetReturnsHeadAndLines(t *testing.T) {
	svc, conn := newTestService(t)
	seedReceipt(t, conn, "GL-20240105-001", time.Now())

	receipt, err := svc.Get(context.Background(), "GL-20240105-001")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if receipt.Head.ReceiptNo != "GL-20240105-001" {
		t.Fatalf("unexpected head %+v", receipt.Head)
	}
	if len(receipt.Lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(receipt.Lines))
	}
}

func TestGetUnknownReceipt(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Get(context.Background(), "GL-20240105-999")
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestListRecentNewestFirst(t *testing.T) {
	svc, conn := newTestService(t)
	seedReceipt(t, conn, "GL-20240104-001", time.Now().Add(-24*time.Hour))
	seedReceipt(t, conn, "GL-20240105-001", time.Now())

	heads, err := svc.ListRecent(context.Background(), 10)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(heads) != 2 || heads[0].ReceiptNo != "GL-20240105-001" {
		t.Fatalf("expected newest first, got %+v", heads)
	}
}

func TestSearchMatchesNumberAndSKU(t *testing.T) {
	svc, conn := newTestService(t)
	seedReceipt(t, conn, "GL-20240104-001", time.Now().Add(-24*time.Hour))
	seedReceipt(t, conn, "GL-20240105-001", time.Now())

	heads, err := svc.Search(context.Background(), "20240105", 10)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(heads) != 1 || heads[0].ReceiptNo != "GL-20240105-001" {
		t.Fatalf("expected number match, got %+v", heads)
	}

	// a bare SKU finds every receipt that sold it, newest first
	heads, err = svc.Search(context.Background(), "1600", 10)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(heads) != 2 || heads[0].ReceiptNo != "GL-20240105-001" {
		t.Fatalf("expected sku match, got %+v", heads)
	}

	// blank query falls back to the recent list
	heads, err = svc.Search(context.Background(), "  ", 10)
	if err != nil || len(heads) != 2 {
		t.Fatalf("expected recent fallback, got %+v %v", heads, err)
	}
}

func TestTicketURL(t *testing.T) {
	svc, _ := newTestService(t)

	url := svc.TicketURL("GL-20240105-001")
	if url != "https://tickets.golflocker.test/t/GL-20240105-001" {
		t.Fatalf("unexpected ticket url %q", url)
	}
}

func TestMarkMail(t *testing.T) {
	svc, conn := newTestService(t)
	seedReceipt(t, conn, "GL-20240105-001", time.Now())

	if err := svc.MarkMail(context.Background(), "GL-20240105-001", enums.MailStatusSent); err != nil {
		t.Fatalf("mark failed: %v", err)
	}

	var head models.ReceiptHead
	if err := conn.First(&head, "receipt_no = ?", "GL-20240105-001").Error; err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if head.MailStatus != enums.MailStatusSent {
		t.Fatalf("expected sent, got %s", head.MailStatus)
	}
}

func TestMarkMailRejectsUnknownStatus(t *testing.T) {
	svc, conn := newTestService(t)
	seedReceipt(t, conn, "GL-20240105-001", time.Now())

	err := svc.MarkMail(context.Background(), "GL-20240105-001", enums.MailStatus("bounced"))
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected INVALID_INPUT, got %v", err)
	}

	var head models.ReceiptHead
	if err := conn.First(&head, "receipt_no = ?", "GL-20240105-001").Error; err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if head.MailStatus == enums.MailStatus("bounced") {
		t.Fatalf("status must not change on rejected input")
	}
}

func TestLastReceiptNoForSKUSkipsReturnLines(t *testing.T) {
	svc, conn := newTestService(t)
	_ = svc
	seedReceipt(t, conn, "GL-20240105-001", time.Now())

	repo := NewRepository(conn)
	err := conn.Transaction(func(tx *gorm.DB) error {
		return repo.AppendLineTx(tx, &models.ReceiptLine{
			ReceiptNo:   "GL-20240105-001",
			SKU:         "1600",
			Description: "driver (returned)",
			UnitPrice:   decimal.NewFromInt(80),
			Quantity:    -1,
			LineTotal:   decimal.NewFromInt(-80),
		})
	})
	if err != nil {
		t.Fatalf("append failed: %v", err)
	}

	receiptNo, err := repo.LastReceiptNoForSKU(context.Background(), "1600")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if receiptNo != "GL-20240105-001" {
		t.Fatalf("expected sale receipt, got %q", receiptNo)
	}

	missing, err := repo.LastReceiptNoForSKU(context.Background(), "0000")
	if err != nil || missing != "" {
		t.Fatalf("expected empty for unknown sku, got %q %v", missing, err)
	}
}
