package receipts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/GolfLocker/golf-locker-pos/pkg/db/models"
	"github.com/GolfLocker/golf-locker-pos/pkg/enums"
	pkgerrors "github.com/GolfLocker/golf-locker-pos/pkg/errors"
)

// Receipt is the full view handed to the register and the ticket page.
type Receipt struct {
	Head  models.ReceiptHead   `json:"head"`
	Lines []models.ReceiptLine `json:"lines"`
}

// ServiceParams wires the service dependencies.
type ServiceParams struct {
	Repo          Repository
	TicketBaseURL string
}

// Service reads committed receipts.
type Service struct {
	repo          Repository
	ticketBaseURL string
}

// NewService constructs the receipts service.
func NewService(params ServiceParams) (*Service, error) {
	return &Service{
		repo:          params.Repo,
		ticketBaseURL: strings.TrimRight(params.TicketBaseURL, "/"),
	}, nil
}

// Get loads one receipt with its lines.
func (s *Service) Get(ctx context.Context, receiptNo string) (*Receipt, error) {
	if receiptNo == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "receipt number is required")
	}

	head, err := s.repo.GetHead(ctx, receiptNo)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "receipt not found").
				WithDetails(map[string]any{"receipt_no": receiptNo})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load receipt")
	}

	lines, err := s.repo.GetLines(ctx, receiptNo)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load receipt lines")
	}
	return &Receipt{Head: *head, Lines: lines}, nil
}

// ListRecent returns the newest receipts, capped at 200.
func (s *Service) ListRecent(ctx context.Context, limit int) ([]models.ReceiptHead, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	heads, err := s.repo.ListRecent(ctx, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list receipts")
	}
	return heads, nil
}

// Search matches receipts by number fragment or SKU, capped at 200.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]models.ReceiptHead, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return s.ListRecent(ctx, limit)
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	heads, err := s.repo.Search(ctx, query, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "search receipts")
	}
	return heads, nil
}

// TicketURL builds the public link printed on the receipt.
func (s *Service) TicketURL(receiptNo string) string {
	if s.ticketBaseURL == "" {
		return ""
	}
	return fmt.Sprintf("%s/t/%s", s.ticketBaseURL, receiptNo)
}

// MarkMail records whether the receipt mail went out.
func (s *Service) MarkMail(ctx context.Context, receiptNo string, status enums.MailStatus) error {
	if !status.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown mail status")
	}
	if err := s.repo.UpdateMailStatus(ctx, receiptNo, status); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "receipt not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update mail status")
	}
	return nil
}
