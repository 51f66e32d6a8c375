package returns

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/GolfLocker/golf-locker-pos/internal/availability"
	"github.com/GolfLocker/golf-locker-pos/internal/inventory"
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

// Returns share the commit lock with checkout so a refund can never race the
// sale it reverses.
const commitLock = "commit"

const operationReturn = "return"

// ServiceParams wires the reverser's dependencies.
type ServiceParams struct {
	DB           *db.Client
	Locker       *lock.Locker
	Repo         Repository
	Receipts     receipts.Repository
	Inventory    inventory.Repository
	Sequence     sequence.Repository
	Availability availability.Service
	Metrics      *metrics.CommitMetrics
	Logger       *logger.Logger
	ReturnPrefix string
}

// Service reverses committed receipt lines.
type Service struct {
	dbc          *db.Client
	locker       *lock.Locker
	repo         Repository
	receipts     receipts.Repository
	inv          inventory.Repository
	seq          sequence.Repository
	avail        availability.Service
	metrics      *metrics.CommitMetrics
	logg         *logger.Logger
	returnPrefix string
}

// NewService constructs the return reverser.
func NewService(params ServiceParams) (*Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("db client is required")
	}
	if params.Locker == nil {
		return nil, fmt.Errorf("locker is required")
	}
	if params.ReturnPrefix == "" {
		params.ReturnPrefix = "RT"
	}
	return &Service{
		dbc:          params.DB,
		locker:       params.Locker,
		repo:         params.Repo,
		receipts:     params.Receipts,
		inv:          params.Inventory,
		seq:          params.Sequence,
		avail:        params.Availability,
		metrics:      params.Metrics,
		logg:         params.Logger,
		returnPrefix: params.ReturnPrefix,
	}, nil
}

// Item selects one receipt line for refund.
type Item struct {
	SKU    string
	Reason string
}

// CommitInput identifies the receipt lines being refunded.
type CommitInput struct {
	ReceiptNo string
	Items     []Item
}

// ItemResult is one refunded line.
type ItemResult struct {
	ReturnNo string          `json:"return_no"`
	SKU      string          `json:"sku"`
	Amount   decimal.Decimal `json:"amount"`
}

// Result describes the committed refund.
type Result struct {
	ReceiptNo string          `json:"receipt_no"`
	Items     []ItemResult    `json:"items"`
	Amount    decimal.Decimal `json:"amount"`
	NewTotal  decimal.Decimal `json:"new_total"`
}

// Commit refunds the selected receipt lines in one transaction: every line is
// checked before anything is written, so a bad selection refunds nothing. For
// each line it appends the negative counterpart, puts the units back on sale,
// and records the refund so the same line cannot be returned twice. The head
// total drops by the combined refund.
func (s *Service) Commit(ctx context.Context, input CommitInput) (*Result, error) {
	start := time.Now()
	result, err := s.commit(ctx, input)
	if err != nil {
		s.metrics.IncFailure(operationReturn, string(pkgerrors.CodeOf(err)))
		return nil, err
	}
	s.metrics.IncSuccess(operationReturn)
	s.metrics.ObserveDuration(operationReturn, time.Since(start))
	return result, nil
}

func (s *Service) commit(ctx context.Context, input CommitInput) (*Result, error) {
	receiptNo := strings.TrimSpace(input.ReceiptNo)
	if receiptNo == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "receipt number is required")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "select at least one line to return")
	}
	seen := make(map[string]bool, len(input.Items))
	for i := range input.Items {
		sku := strings.TrimSpace(input.Items[i].SKU)
		if sku == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "every selected line needs a sku")
		}
		if seen[sku] {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "sku selected twice").
				WithDetails(map[string]any{"sku": sku})
		}
		seen[sku] = true
		input.Items[i].SKU = sku
	}

	lease, err := s.locker.Acquire(ctx, commitLock)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = lease.Release(ctx)
	}()

	var result *Result
	var touched []enums.Category

	err = s.dbc.WithTx(ctx, func(tx *gorm.DB) error {
		head, err := s.receipts.GetHeadTx(tx, receiptNo)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "receipt not found").
					WithDetails(map[string]any{"receipt_no": receiptNo})
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load receipt")
		}

		// every selected line must pass before anything is written
		saleLines := make([]*models.ReceiptLine, len(input.Items))
		for i, item := range input.Items {
			already, err := s.repo.ExistsTx(tx, receiptNo, item.SKU)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check earlier refunds")
			}
			if already {
				return pkgerrors.New(pkgerrors.CodeDuplicateReturn, "line already returned").
					WithDetails(map[string]any{"receipt_no": receiptNo, "sku": item.SKU})
			}
			saleLines[i], err = s.findSaleLine(tx, receiptNo, item.SKU)
			if err != nil {
				return err
			}
		}

		seenCategory := map[enums.Category]bool{}
		itemResults := make([]ItemResult, 0, len(input.Items))
		total := decimal.Zero
		for i, item := range input.Items {
			line := saleLines[i]

			returnNo, err := s.seq.NextTx(tx, s.returnPrefix, time.Now())
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "issue return number")
			}

			refund := line.LineTotal
			if err := s.receipts.AppendLineTx(tx, &models.ReceiptLine{
				ReceiptNo:   receiptNo,
				SKU:         item.SKU,
				Description: line.Description,
				UnitPrice:   line.UnitPrice,
				Quantity:    -line.Quantity,
				LineTotal:   refund.Neg(),
				Party:       line.Party,
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append refund line")
			}

			restored, err := s.restoreUnits(tx, item.SKU, line.Quantity)
			if err != nil {
				return err
			}
			for _, category := range restored {
				if !seenCategory[category] {
					seenCategory[category] = true
					touched = append(touched, category)
				}
			}

			record := &models.ReturnRecord{
				ReturnNo:  returnNo,
				ReceiptNo: receiptNo,
				SKU:       item.SKU,
				Amount:    refund,
			}
			if item.Reason != "" {
				reason := item.Reason
				record.Reason = &reason
			}
			if err := s.repo.CreateTx(tx, record); err != nil {
				if db.IsUniqueViolation(err, "") {
					return pkgerrors.New(pkgerrors.CodeDuplicateReturn, "line already returned").
						WithDetails(map[string]any{"receipt_no": receiptNo, "sku": item.SKU})
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record refund")
			}

			itemResults = append(itemResults, ItemResult{ReturnNo: returnNo, SKU: item.SKU, Amount: refund})
			total = total.Add(refund)
		}

		if err := s.receipts.AdjustTotalTx(tx, receiptNo, total.Neg()); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "adjust receipt total")
		}

		result = &Result{
			ReceiptNo: receiptNo,
			Items:     itemResults,
			Amount:    total,
			NewTotal:  head.Total.Sub(total),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.avail != nil && len(touched) > 0 {
		if err := s.avail.Invalidate(ctx, touched...); err != nil && s.logg != nil {
			s.logg.Warn(s.logg.WithReceiptNo(ctx, receiptNo), "availability invalidation failed after refund")
		}
	}
	return result, nil
}

// PreviewLine is one receipt position and whether it can still be refunded.
type PreviewLine struct {
	SKU         string          `json:"sku"`
	Description string          `json:"description"`
	Quantity    int             `json:"quantity"`
	Amount      decimal.Decimal `json:"amount"`
	Returned    bool            `json:"returned"`
}

// Preview lists a receipt's sale lines with their refund state, so the
// register can show what is still returnable.
func (s *Service) Preview(ctx context.Context, receiptNo string) ([]PreviewLine, error) {
	receiptNo = strings.TrimSpace(receiptNo)
	if receiptNo == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "receipt number is required")
	}

	if _, err := s.receipts.GetHead(ctx, receiptNo); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "receipt not found").
				WithDetails(map[string]any{"receipt_no": receiptNo})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load receipt")
	}

	lines, err := s.receipts.GetLines(ctx, receiptNo)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load receipt lines")
	}
	records, err := s.repo.ListForReceipt(ctx, receiptNo)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load earlier refunds")
	}

	returned := make(map[string]bool, len(records))
	for _, record := range records {
		returned[record.SKU] = true
	}

	preview := make([]PreviewLine, 0, len(lines))
	for _, line := range lines {
		if line.Quantity <= 0 {
			continue
		}
		preview = append(preview, PreviewLine{
			SKU:         line.SKU,
			Description: line.Description,
			Quantity:    line.Quantity,
			Amount:      line.LineTotal,
			Returned:    returned[line.SKU],
		})
	}
	return preview, nil
}

// Recent returns the newest refunds, capped at 200.
func (s *Service) Recent(ctx context.Context, limit int) ([]models.ReturnRecord, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	records, err := s.repo.ListRecent(ctx, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list refunds")
	}
	return records, nil
}

// findSaleLine returns the sale line for the SKU, skipping refund lines.
func (s *Service) findSaleLine(tx *gorm.DB, receiptNo, sku string) (*models.ReceiptLine, error) {
	lines, err := s.receipts.GetLinesTx(tx, receiptNo)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load receipt lines")
	}
	for i := range lines {
		if lines[i].SKU == sku && lines[i].Quantity > 0 {
			return &lines[i], nil
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "sku not on receipt").
		WithDetails(map[string]any{"receipt_no": receiptNo, "sku": sku})
}

// restoreUnits puts up to qty sold units of the SKU back on sale and reports
// which categories changed.
func (s *Service) restoreUnits(tx *gorm.DB, sku string, qty int) ([]enums.Category, error) {
	rows, err := s.inv.FindBySKUTx(tx, sku)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load units")
	}

	var touched []enums.Category
	seen := map[enums.Category]bool{}
	restored := 0
	for _, row := range rows {
		if restored == qty {
			break
		}
		if !row.Sold() {
			continue
		}
		if err := s.inv.RestoreTx(tx, row.ID); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "restore unit")
		}
		restored++
		if !seen[row.Category] {
			seen[row.Category] = true
			touched = append(touched, row.Category)
		}
	}
	return touched, nil
}
