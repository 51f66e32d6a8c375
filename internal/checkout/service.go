package checkout

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/GolfLocker/golf-locker-pos/internal/availability"
	"github.com/GolfLocker/golf-locker-pos/internal/cart"
	"github.com/GolfLocker/golf-locker-pos/internal/codes"
	"github.com/GolfLocker/golf-locker-pos/internal/inventory"
	"github.com/GolfLocker/golf-locker-pos/internal/pricing"
	"github.com/GolfLocker/golf-locker-pos/internal/receipts"
	"github.com/GolfLocker/golf-locker-pos/internal/sequence"
	"github.com/GolfLocker/golf-locker-pos/pkg/db"
	"github.com/GolfLocker/golf-locker-pos/pkg/db/models"
	"github.com/GolfLocker/golf-locker-pos/pkg/enums"
	pkgerrors "github.com/GolfLocker/golf-locker-pos/pkg/errors"
	"github.com/GolfLocker/golf-locker-pos/pkg/lock"
	"github.com/GolfLocker/golf-locker-pos/pkg/logger"
	"github.com/GolfLocker/golf-locker-pos/pkg/metrics"
)

// commitLock serializes receipt commits across every register instance.
const commitLock = "commit"

const operationCheckout = "checkout"

// giftCardSKUPrefix marks receipt lines that mint a card when they sell.
const giftCardSKUPrefix = "GIFTCARD-"

// Mailer sends the post-commit receipt mail.
type Mailer interface {
	SendReceipt(ctx context.Context, to string, receipt *receipts.Receipt) error
}

// ServiceParams wires the committer's dependencies.
type ServiceParams struct {
	DB            *db.Client
	Locker        *lock.Locker
	Cart          *cart.Service
	Codes         *codes.Service
	Inventory     inventory.Repository
	Receipts      receipts.Repository
	ReceiptViews  *receipts.Service
	Sequence      sequence.Repository
	Availability  availability.Service
	Mailer        Mailer
	Metrics       *metrics.CommitMetrics
	Logger        *logger.Logger
	ReceiptPrefix string
	SendMail      bool
}

// Service turns an open basket into a committed receipt.
type Service struct {
	dbc           *db.Client
	locker        *lock.Locker
	basket        *cart.Service
	codes         *codes.Service
	inv           inventory.Repository
	receipts      receipts.Repository
	views         *receipts.Service
	seq           sequence.Repository
	avail         availability.Service
	mailer        Mailer
	metrics       *metrics.CommitMetrics
	logg          *logger.Logger
	receiptPrefix string
	sendMail      bool
}

// NewService constructs the checkout committer.
func NewService(params ServiceParams) (*Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("db client is required")
	}
	if params.Locker == nil {
		return nil, fmt.Errorf("locker is required")
	}
	if params.Cart == nil || params.Codes == nil {
		return nil, fmt.Errorf("cart and codes services are required")
	}
	if params.ReceiptViews == nil {
		return nil, fmt.Errorf("receipt views are required")
	}
	if params.ReceiptPrefix == "" {
		params.ReceiptPrefix = "GL"
	}
	return &Service{
		dbc:           params.DB,
		locker:        params.Locker,
		basket:        params.Cart,
		codes:         params.Codes,
		inv:           params.Inventory,
		receipts:      params.Receipts,
		views:         params.ReceiptViews,
		seq:           params.Sequence,
		avail:         params.Availability,
		mailer:        params.Mailer,
		metrics:       params.Metrics,
		logg:          params.Logger,
		receiptPrefix: params.ReceiptPrefix,
		sendMail:      params.SendMail,
	}, nil
}

// CommitInput describes the settle action at the register.
type CommitInput struct {
	UserID        string
	PaymentMethod enums.PaymentMethod
	CustomerEmail string
}

// Result is the committed receipt plus any gift cards minted by it.
type Result struct {
	Receipt     receipts.Receipt  `json:"receipt"`
	IssuedCards []models.GiftCard `json:"issued_cards,omitempty"`
}

// Commit settles the register's basket. It revalidates every unit under the
// commit lock inside one transaction, so two registers racing for the last
// unit cannot both sell it.
func (s *Service) Commit(ctx context.Context, input CommitInput) (*Result, error) {
	start := time.Now()
	result, err := s.commit(ctx, input)
	if err != nil {
		s.metrics.IncFailure(operationCheckout, string(pkgerrors.CodeOf(err)))
		return nil, err
	}
	s.metrics.IncSuccess(operationCheckout)
	s.metrics.ObserveDuration(operationCheckout, time.Since(start))
	return result, nil
}

func (s *Service) commit(ctx context.Context, input CommitInput) (*Result, error) {
	if !input.PaymentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown payment method")
	}
	if input.UserID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}

	basket, err := s.basket.Get(ctx, input.UserID)
	if err != nil {
		return nil, err
	}
	if len(basket.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty")
	}

	staged, err := s.codes.Get(ctx, input.UserID)
	if err != nil {
		return nil, err
	}

	lease, err := s.locker.Acquire(ctx, commitLock)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = lease.Release(ctx)
	}()

	issuedAt := time.Now()
	var head *models.ReceiptHead
	var lines []models.ReceiptLine
	var issued []models.GiftCard

	err = s.dbc.WithTx(ctx, func(tx *gorm.DB) error {
		soldRows, err := s.reserveUnits(tx, basket)
		if err != nil {
			return err
		}

		discount := staged.DiscountAmount(basket.Subtotal())
		gift := giftCardPortion(staged, basket.Subtotal(), discount)

		alloc, err := pricing.Allocate(toPricingLines(basket), discount, gift)
		if err != nil {
			return err
		}

		receiptNo, err := s.seq.NextTx(tx, s.receiptPrefix, issuedAt)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "issue receipt number")
		}

		head = &models.ReceiptHead{
			ReceiptNo:     receiptNo,
			IssuedAt:      issuedAt,
			PaymentMethod: input.PaymentMethod,
			Subtotal:      alloc.Subtotal,
			Discount:      alloc.Discount,
			GiftCardUsed:  alloc.GiftCard,
			Total:         alloc.Total,
			TicketURL:     s.views.TicketURL(receiptNo),
			MailStatus:    enums.MailStatusSkipped,
		}
		if input.CustomerEmail != "" {
			email := input.CustomerEmail
			head.CustomerEmail = &email
			head.MailStatus = enums.MailStatusPending
		}
		if err := s.receipts.CreateHeadTx(tx, head); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist receipt head")
		}

		lines = make([]models.ReceiptLine, 0, len(alloc.Lines))
		for _, line := range alloc.Lines {
			lines = append(lines, models.ReceiptLine{
				ReceiptNo:   receiptNo,
				SKU:         line.SKU,
				Description: line.Description,
				UnitPrice:   line.NetUnit,
				Quantity:    line.Quantity,
				LineTotal:   line.NetTotal,
				Party:       line.Party,
			})
		}
		if err := s.receipts.CreateLinesTx(tx, lines); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist receipt lines")
		}

		for _, line := range alloc.Lines {
			rows := soldRows[line.SKU][:line.Quantity]
			for _, row := range rows {
				if err := s.inv.MarkSoldTx(tx, row.ID, line.NetUnit, issuedAt); err != nil {
					if err == gorm.ErrRecordNotFound {
						return pkgerrors.New(pkgerrors.CodeAlreadySold, "item already sold").
							WithDetails(map[string]any{"sku": line.SKU})
					}
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark unit sold")
				}
			}

			if strings.HasPrefix(line.SKU, giftCardSKUPrefix) {
				card, err := s.codes.IssueTx(tx, line.NetUnit, receiptNo)
				if err != nil {
					return err
				}
				issued = append(issued, *card)
			}
		}

		if gift.IsPositive() {
			if err := s.codes.DebitTx(tx, staged.GiftCardCode, gift, receiptNo); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterCommit(ctx, input, basket, head, lines)

	return &Result{
		Receipt:     receipts.Receipt{Head: *head, Lines: lines},
		IssuedCards: issued,
	}, nil
}

// Totals is the running register display: the open basket priced with the
// staged discount and gift card, without touching inventory.
type Totals struct {
	Subtotal     decimal.Decimal `json:"subtotal"`
	Discount     decimal.Decimal `json:"discount"`
	GiftCardUsed decimal.Decimal `json:"giftcard_used"`
	Total        decimal.Decimal `json:"total"`
	Lines        int             `json:"lines"`
	Units        int             `json:"units"`
}

// Preview prices the open basket without committing anything.
func (s *Service) Preview(ctx context.Context, userID string) (*Totals, error) {
	basket, err := s.basket.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	staged, err := s.codes.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	units := 0
	for _, line := range basket.Lines {
		units += line.Quantity
	}
	if len(basket.Lines) == 0 {
		return &Totals{
			Subtotal:     decimal.Zero,
			Discount:     decimal.Zero,
			GiftCardUsed: decimal.Zero,
			Total:        decimal.Zero,
		}, nil
	}

	discount := staged.DiscountAmount(basket.Subtotal())
	gift := giftCardPortion(staged, basket.Subtotal(), discount)
	alloc, err := pricing.Allocate(toPricingLines(basket), discount, gift)
	if err != nil {
		return nil, err
	}

	return &Totals{
		Subtotal:     alloc.Subtotal,
		Discount:     alloc.Discount,
		GiftCardUsed: alloc.GiftCard,
		Total:        alloc.Total,
		Lines:        len(basket.Lines),
		Units:        units,
	}, nil
}

// reserveUnits loads the free rows for every basket line and checks there are
// enough of them. The rows come back in free-first order per SKU.
func (s *Service) reserveUnits(tx *gorm.DB, basket *cart.Cart) (map[string][]models.InventoryRow, error) {
	reserved := make(map[string][]models.InventoryRow, len(basket.Lines))
	for _, line := range basket.Lines {
		rows, err := s.inv.FindBySKUTx(tx, line.SKU)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load units")
		}

		free := make([]models.InventoryRow, 0, len(rows))
		for _, row := range rows {
			if !row.Sold() {
				free = append(free, row)
			}
		}

		switch {
		case len(rows) == 0:
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "sku not found").
				WithDetails(map[string]any{"sku": line.SKU})
		case len(free) == 0:
			details := map[string]any{"sku": line.SKU}
			if receiptNo, err := s.receipts.LastReceiptNoForSKUTx(tx, line.SKU); err == nil && receiptNo != "" {
				details["receipt_no"] = receiptNo
			}
			return nil, pkgerrors.New(pkgerrors.CodeAlreadySold, "item already sold").WithDetails(details)
		case len(free) < line.Quantity:
			return nil, pkgerrors.New(pkgerrors.CodeOutOfStock, "not enough free units").
				WithDetails(map[string]any{"sku": line.SKU, "free": len(free)})
		}
		reserved[line.SKU] = free
	}
	return reserved, nil
}

// afterCommit runs the side effects that must not abort the sale.
func (s *Service) afterCommit(ctx context.Context, input CommitInput, basket *cart.Cart, head *models.ReceiptHead, lines []models.ReceiptLine) {
	categories := make([]enums.Category, 0, len(basket.Lines))
	seen := map[enums.Category]bool{}
	for _, line := range basket.Lines {
		if !seen[line.Category] {
			seen[line.Category] = true
			categories = append(categories, line.Category)
		}
	}
	if s.avail != nil {
		if err := s.avail.Invalidate(ctx, categories...); err != nil && s.logg != nil {
			s.logg.Warn(s.logg.WithReceiptNo(ctx, head.ReceiptNo), "availability invalidation failed after commit")
		}
	}

	if err := s.basket.Clear(ctx, input.UserID); err != nil && s.logg != nil {
		s.logg.Warn(s.logg.WithReceiptNo(ctx, head.ReceiptNo), "cart clear failed after commit")
	}
	if err := s.codes.Clear(ctx, input.UserID); err != nil && s.logg != nil {
		s.logg.Warn(s.logg.WithReceiptNo(ctx, head.ReceiptNo), "codes clear failed after commit")
	}

	if s.sendMail && s.mailer != nil && head.CustomerEmail != nil {
		receipt := &receipts.Receipt{Head: *head, Lines: lines}
		go s.deliverMail(context.WithoutCancel(ctx), *head.CustomerEmail, receipt)
	}
}

func (s *Service) deliverMail(ctx context.Context, to string, receipt *receipts.Receipt) {
	status := enums.MailStatusSent
	if err := s.mailer.SendReceipt(ctx, to, receipt); err != nil {
		status = enums.MailStatusFailed
		if s.logg != nil {
			s.logg.Error(s.logg.WithReceiptNo(ctx, receipt.Head.ReceiptNo), "receipt mail failed", err)
		}
	}
	if err := s.views.MarkMail(ctx, receipt.Head.ReceiptNo, status); err != nil && s.logg != nil {
		s.logg.Warn(s.logg.WithReceiptNo(ctx, receipt.Head.ReceiptNo), "mail status update failed")
	}
}

// giftCardPortion caps the staged card amount at what is left after the
// discount, a card is never debited past the receipt total.
func giftCardPortion(staged *codes.Session, subtotal, discount decimal.Decimal) decimal.Decimal {
	if staged.GiftCardCode == "" || !staged.GiftCardAmount.IsPositive() {
		return decimal.Zero
	}
	remaining := subtotal.Sub(discount)
	if remaining.IsNegative() {
		return decimal.Zero
	}
	if staged.GiftCardAmount.GreaterThan(remaining) {
		return remaining
	}
	return staged.GiftCardAmount
}

func toPricingLines(basket *cart.Cart) []pricing.Line {
	lines := make([]pricing.Line, 0, len(basket.Lines))
	for _, line := range basket.Lines {
		lines = append(lines, pricing.Line{
			SKU:         line.SKU,
			Description: line.Description,
			UnitPrice:   line.UnitPrice,
			Quantity:    line.Quantity,
			Party:       line.Party,
		})
	}
	return lines
}
