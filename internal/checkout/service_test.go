package checkout

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/GolfLocker/golf-locker-pos/internal/availability"
	"github.com/GolfLocker/golf-locker-pos/internal/cart"
	"github.com/GolfLocker/golf-locker-pos/internal/codes"
	"github.com/GolfLocker/golf-locker-pos/internal/inventory"
	"github.com/GolfLocker/golf-locker-pos/internal/receipts"
	"github.com/GolfLocker/golf-locker-pos/internal/sequence"
	"github.com/GolfLocker/golf-locker-pos/pkg/db"
	"github.com/GolfLocker/golf-locker-pos/pkg/db/models"
	"github.com/GolfLocker/golf-locker-pos/pkg/enums"
	pkgerrors "github.com/GolfLocker/golf-locker-pos/pkg/errors"
	"github.com/GolfLocker/golf-locker-pos/pkg/lock"
	"github.com/GolfLocker/golf-locker-pos/pkg/logger"
)

type memoryStore struct {
	data map[string]string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: map[string]string{}}
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return "", redislib.Nil
}

func (m *memoryStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.data[key] = value.(string)
	return nil
}

func (m *memoryStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key] = value.(string)
	return true, nil
}

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

func (m *memoryStore) CartKey(userID string) string  { return "gl:cart:" + userID }
func (m *memoryStore) CodesKey(userID string) string { return "gl:codes:" + userID }
func (m *memoryStore) LockKey(name string) string    { return "gl:lock:" + name }
func (m *memoryStore) IndexKey(cat string) string    { return "gl:index:" + cat }

type fixture struct {
	svc      *Service
	cart     *cart.Service
	codes    *codes.Service
	conn     *gorm.DB
	invRepo  inventory.Repository
	store    *memoryStore
	rcptRepo receipts.Repository
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{Level: zerolog.ErrorLevel})
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"),
		&gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	err = conn.AutoMigrate(
		&models.InventoryRow{},
		&models.ReceiptHead{},
		&models.ReceiptLine{},
		&models.GiftCard{},
		&models.DiscountCode{},
		&models.Counter{},
	)
	if err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	store := newMemoryStore()
	invRepo := inventory.NewRepository(conn)
	rcptRepo := receipts.NewRepository(conn)

	avail, err := availability.NewService(availability.ServiceParams{
		Repo:       invRepo,
		Cache:      store,
		ReceiptRef: rcptRepo,
		TTL:        time.Hour,
	})
	if err != nil {
		t.Fatalf("availability: %v", err)
	}
	invSvc, err := inventory.NewService(inventory.ServiceParams{
		DB:          db.NewFromConn(conn),
		Repo:        invRepo,
		Sequence:    sequence.NewRepository(conn),
		Invalidator: avail,
	})
	if err != nil {
		t.Fatalf("inventory: %v", err)
	}
	cartSvc, err := cart.NewService(cart.ServiceParams{
		Store:        store,
		Availability: avail,
		Inventory:    invSvc,
		TTL:          30 * time.Minute,
	})
	if err != nil {
		t.Fatalf("cart: %v", err)
	}
	codesSvc, err := codes.NewService(codes.ServiceParams{
		Repo:       codes.NewRepository(conn),
		Store:      store,
		Logger:     testLogger(),
		SessionTTL: 2 * time.Hour,
	})
	if err != nil {
		t.Fatalf("codes: %v", err)
	}
	views, err := receipts.NewService(receipts.ServiceParams{
		Repo:          rcptRepo,
		TicketBaseURL: "https://tickets.golflocker.test",
	})
	if err != nil {
		t.Fatalf("receipts: %v", err)
	}
	locker, err := lock.New(store, 30*time.Second, 200*time.Millisecond)
	if err != nil {
		t.Fatalf("lock: %v", err)
	}

	svc, err := NewService(ServiceParams{
		DB:            db.NewFromConn(conn),
		Locker:        locker,
		Cart:          cartSvc,
		Codes:         codesSvc,
		Inventory:     invRepo,
		Receipts:      rcptRepo,
		ReceiptViews:  views,
		Sequence:      sequence.NewRepository(conn),
		Availability:  avail,
		ReceiptPrefix: "GL",
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	return &fixture{
		svc:      svc,
		cart:     cartSvc,
		codes:    codesSvc,
		conn:     conn,
		invRepo:  invRepo,
		store:    store,
		rcptRepo: rcptRepo,
	}
}

func (f *fixture) seedRow(t *testing.T, sku string, price int64) uuid.UUID {
	t.Helper()
	row := &models.InventoryRow{
		ID:             uuid.New(),
		SKU:            sku,
		Category:       enums.CategoryClubs,
		Description:    "test " + sku,
		ExpectedPrice:  decimal.NewFromInt(price),
		ExpectedMargin: decimal.NewFromInt(price),
		BackupExpected: decimal.NewFromInt(price),
		Channel:        enums.SaleChannelStore,
	}
	if err := f.invRepo.Create(context.Background(), row); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	return row.ID
}

func (f *fixture) seedDiscount(t *testing.T, code string, kind enums.DiscountKind, value int64) {
	t.Helper()
	row := &models.DiscountCode{
		Code:   code,
		Kind:   kind,
		Value:  decimal.NewFromInt(value),
		Active: true,
	}
	if err := f.conn.Create(row).Error; err != nil {
		t.Fatalf("seed discount failed: %v", err)
	}
}

func (f *fixture) addToCart(t *testing.T, userID, sku string) {
	t.Helper()
	if _, err := f.cart.Add(context.Background(), userID, cart.AddInput{SKU: sku}); err != nil {
		t.Fatalf("add %s failed: %v", sku, err)
	}
}

func TestCommitSellsUnitsAndNumbersReceipt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.seedRow(t, "1600", 100)
	f.seedRow(t, "1601", 50)
	f.addToCart(t, "u1", "1600")
	f.addToCart(t, "u1", "1601")
	f.seedDiscount(t, "TAKE30", enums.DiscountKindFixed, 30)
	if _, err := f.codes.Apply(ctx, "u1", "TAKE30"); err != nil {
		t.Fatalf("discount failed: %v", err)
	}

	result, err := f.svc.Commit(ctx, CommitInput{UserID: "u1", PaymentMethod: enums.PaymentMethodPin})
	if err != nil {
		t.Fatalf("commit failed: %v", err)
	}

	head := result.Receipt.Head
	want := "GL-" + time.Now().Format("20060102") + "-001"
	if head.ReceiptNo != want {
		t.Fatalf("expected %s, got %s", want, head.ReceiptNo)
	}
	if !head.Subtotal.Equal(decimal.NewFromInt(150)) || !head.Total.Equal(decimal.NewFromInt(120)) {
		t.Fatalf("unexpected totals %s/%s", head.Subtotal, head.Total)
	}
	if head.TicketURL != "https://tickets.golflocker.test/t/"+head.ReceiptNo {
		t.Fatalf("unexpected ticket url %q", head.TicketURL)
	}

	// discount spread 100:50, so nets are 80 and 40
	if len(result.Receipt.Lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(result.Receipt.Lines))
	}
	if !result.Receipt.Lines[0].LineTotal.Equal(decimal.NewFromInt(80)) ||
		!result.Receipt.Lines[1].LineTotal.Equal(decimal.NewFromInt(40)) {
		t.Fatalf("unexpected line totals %s/%s",
			result.Receipt.Lines[0].LineTotal, result.Receipt.Lines[1].LineTotal)
	}

	// the units are stamped sold at their net unit price
	var row models.InventoryRow
	if err := f.conn.First(&row, "sku = ?", "1600").Error; err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if row.SaleDate == nil || row.SalePrice == nil || !row.SalePrice.Equal(decimal.NewFromInt(80)) {
		t.Fatalf("expected sold at 80, got %+v", row)
	}
	if !row.ExpectedPrice.IsZero() || !row.BackupExpected.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("expected zeroed price with backup kept, got %+v", row)
	}

	// basket and staged codes are gone
	basket, err := f.cart.Get(ctx, "u1")
	if err != nil || len(basket.Lines) != 0 {
		t.Fatalf("expected cleared cart, got %+v %v", basket, err)
	}
	staged, err := f.codes.Get(ctx, "u1")
	if err != nil || staged.DiscountCode != "" {
		t.Fatalf("expected cleared codes session, got %+v %v", staged, err)
	}
}

func TestPreviewPricesOpenBasket(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.seedRow(t, "1600", 100)
	f.seedRow(t, "1601", 50)
	f.addToCart(t, "u1", "1600")
	f.addToCart(t, "u1", "1601")
	f.seedDiscount(t, "TAKE30", enums.DiscountKindFixed, 30)
	if _, err := f.codes.Apply(ctx, "u1", "TAKE30"); err != nil {
		t.Fatalf("discount failed: %v", err)
	}

	totals, err := f.svc.Preview(ctx, "u1")
	if err != nil {
		t.Fatalf("preview failed: %v", err)
	}
	if !totals.Subtotal.Equal(decimal.NewFromInt(150)) ||
		!totals.Discount.Equal(decimal.NewFromInt(30)) ||
		!totals.Total.Equal(decimal.NewFromInt(120)) {
		t.Fatalf("unexpected totals %+v", totals)
	}
	if totals.Lines != 2 || totals.Units != 2 {
		t.Fatalf("unexpected counts %+v", totals)
	}

	// preview commits nothing
	var row models.InventoryRow
	if err := f.conn.First(&row, "sku = ?", "1600").Error; err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if row.SaleDate != nil {
		t.Fatalf("preview must not sell units")
	}
}

func TestCommitResolvesPercentDiscountAgainstSubtotal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.seedRow(t, "1600", 100)
	f.seedRow(t, "1601", 50)
	f.addToCart(t, "u1", "1600")
	f.seedDiscount(t, "SPRING10", enums.DiscountKindPercent, 10)
	if _, err := f.codes.Apply(ctx, "u1", "SPRING10"); err != nil {
		t.Fatalf("discount failed: %v", err)
	}
	// the basket grows after the code was staged, the percentage
	// resolves against the final subtotal
	f.addToCart(t, "u1", "1601")

	result, err := f.svc.Commit(ctx, CommitInput{UserID: "u1", PaymentMethod: enums.PaymentMethodPin})
	if err != nil {
		t.Fatalf("commit failed: %v", err)
	}
	head := result.Receipt.Head
	if !head.Subtotal.Equal(decimal.NewFromInt(150)) ||
		!head.Discount.Equal(decimal.NewFromInt(15)) ||
		!head.Total.Equal(decimal.NewFromInt(135)) {
		t.Fatalf("unexpected totals %s/%s/%s", head.Subtotal, head.Discount, head.Total)
	}
}

func TestPreviewEmptyBasketIsZero(t *testing.T) {
	f := newFixture(t)

	totals, err := f.svc.Preview(context.Background(), "u1")
	if err != nil {
		t.Fatalf("preview failed: %v", err)
	}
	if !totals.Total.IsZero() || totals.Lines != 0 {
		t.Fatalf("unexpected totals %+v", totals)
	}
}

func TestCommitEmptyCart(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Commit(context.Background(), CommitInput{UserID: "u1", PaymentMethod: enums.PaymentMethodCash})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeEmptyCart {
		t.Fatalf("expected EMPTY_CART, got %v", err)
	}
}

func TestCommitRacingRegistersOnlyOneWins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.seedRow(t, "1600", 100)
	f.addToCart(t, "u1", "1600")
	// second register carted the same unit before the first committed
	f.addToCart(t, "u2", "1600")

	if _, err := f.svc.Commit(ctx, CommitInput{UserID: "u1", PaymentMethod: enums.PaymentMethodPin}); err != nil {
		t.Fatalf("first commit failed: %v", err)
	}

	_, err := f.svc.Commit(ctx, CommitInput{UserID: "u2", PaymentMethod: enums.PaymentMethodPin})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeAlreadySold {
		t.Fatalf("expected ALREADY_SOLD, got %v", err)
	}
	details := typed.Details().(map[string]any)
	if receiptNo, ok := details["receipt_no"].(string); !ok || receiptNo == "" {
		t.Fatalf("expected winning receipt in details, got %v", details)
	}

	// the loser's basket stays intact for correction
	basket, err := f.cart.Get(ctx, "u2")
	if err != nil || len(basket.Lines) != 1 {
		t.Fatalf("expected untouched basket, got %+v %v", basket, err)
	}
}

func TestCommitFailureBurnsNoReceiptNumber(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.seedRow(t, "1600", 100)
	f.addToCart(t, "u1", "1600")
	f.addToCart(t, "u2", "1600")

	if _, err := f.svc.Commit(ctx, CommitInput{UserID: "u1", PaymentMethod: enums.PaymentMethodPin}); err != nil {
		t.Fatalf("first commit failed: %v", err)
	}
	if _, err := f.svc.Commit(ctx, CommitInput{UserID: "u2", PaymentMethod: enums.PaymentMethodPin}); err == nil {
		t.Fatalf("expected second commit to fail")
	}

	f.seedRow(t, "1602", 20)
	f.addToCart(t, "u3", "1602")
	result, err := f.svc.Commit(ctx, CommitInput{UserID: "u3", PaymentMethod: enums.PaymentMethodPin})
	if err != nil {
		t.Fatalf("third commit failed: %v", err)
	}
	want := "GL-" + time.Now().Format("20060102") + "-002"
	if result.Receipt.Head.ReceiptNo != want {
		t.Fatalf("expected %s, got %s", want, result.Receipt.Head.ReceiptNo)
	}
}

func TestCommitIssuesGiftCards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	price := decimal.NewFromInt(50)
	if _, err := f.cart.Add(ctx, "u1", cart.AddInput{SKU: "GIFTCARD", UnitPrice: &price}); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	result, err := f.svc.Commit(ctx, CommitInput{UserID: "u1", PaymentMethod: enums.PaymentMethodCash})
	if err != nil {
		t.Fatalf("commit failed: %v", err)
	}
	if len(result.IssuedCards) != 1 {
		t.Fatalf("expected one issued card, got %d", len(result.IssuedCards))
	}
	card := result.IssuedCards[0]
	if !strings.HasPrefix(card.Code, "GC") || !card.Balance.Equal(price) {
		t.Fatalf("unexpected card %+v", card)
	}
	if card.IssuedReceiptNo == nil || *card.IssuedReceiptNo != result.Receipt.Head.ReceiptNo {
		t.Fatalf("expected issuing receipt stamped, got %v", card.IssuedReceiptNo)
	}
}

func TestCommitRedeemsGiftCardCappedAtTotal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// issue a 50 euro card through a first sale
	price := decimal.NewFromInt(50)
	if _, err := f.cart.Add(ctx, "u1", cart.AddInput{SKU: "GIFTCARD", UnitPrice: &price}); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	first, err := f.svc.Commit(ctx, CommitInput{UserID: "u1", PaymentMethod: enums.PaymentMethodCash})
	if err != nil {
		t.Fatalf("first commit failed: %v", err)
	}
	code := first.IssuedCards[0].Code

	// redeem it against a 30 euro sale, only 30 comes off the card
	f.seedRow(t, "1600", 30)
	f.addToCart(t, "u2", "1600")
	if _, err := f.codes.Apply(ctx, "u2", code); err != nil {
		t.Fatalf("apply failed: %v", err)
	}

	second, err := f.svc.Commit(ctx, CommitInput{UserID: "u2", PaymentMethod: enums.PaymentMethodGiftCard})
	if err != nil {
		t.Fatalf("second commit failed: %v", err)
	}
	head := second.Receipt.Head
	if !head.GiftCardUsed.Equal(decimal.NewFromInt(30)) || !head.Total.IsZero() {
		t.Fatalf("unexpected totals %s/%s", head.GiftCardUsed, head.Total)
	}

	var card models.GiftCard
	if err := f.conn.First(&card, "code = ?", code).Error; err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if !card.Balance.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("expected 20 remaining, got %s", card.Balance)
	}
	last := card.History[len(card.History)-1]
	if last != head.ReceiptNo+" | -€30.00" {
		t.Fatalf("unexpected history entry %q", last)
	}
}

func TestCommitLockTimeoutWhenHeld(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.seedRow(t, "1600", 100)
	f.addToCart(t, "u1", "1600")

	// another register holds the commit lock and never lets go
	f.store.data[f.store.LockKey(commitLock)] = "someone-else"

	_, err := f.svc.Commit(ctx, CommitInput{UserID: "u1", PaymentMethod: enums.PaymentMethodPin})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeLockTimeout {
		t.Fatalf("expected LOCK_TIMEOUT, got %v", err)
	}
}

func TestCommitReleasesLock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.seedRow(t, "1600", 100)
	f.addToCart(t, "u1", "1600")
	if _, err := f.svc.Commit(ctx, CommitInput{UserID: "u1", PaymentMethod: enums.PaymentMethodPin}); err != nil {
		t.Fatalf("commit failed: %v", err)
	}
	if _, held := f.store.data[f.store.LockKey(commitLock)]; held {
		t.Fatalf("expected lock released after commit")
	}
}

func TestCommitInvalidPaymentMethod(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Commit(context.Background(), CommitInput{UserID: "u1", PaymentMethod: "barter"})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected INVALID_INPUT, got %v", err)
	}
}
