package availability

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/GolfLocker/golf-locker-pos/internal/inventory"
	"github.com/GolfLocker/golf-locker-pos/pkg/enums"
	pkgerrors "github.com/GolfLocker/golf-locker-pos/pkg/errors"
	"github.com/GolfLocker/golf-locker-pos/pkg/logger"
	redisclient "github.com/GolfLocker/golf-locker-pos/pkg/redis"
)

// Entry is one physical unit as seen by the register.
type Entry struct {
	RowID         uuid.UUID         `json:"row_id"`
	SKU           string            `json:"sku"`
	Description   string            `json:"description"`
	ExpectedPrice decimal.Decimal   `json:"expected_price"`
	Party         string            `json:"party,omitempty"`
	Channel       enums.SaleChannel `json:"channel"`
	Sold          bool              `json:"sold"`
}

// Index maps SKU to its units within one category.
type Index map[string][]Entry

// Hit is a successful SKU lookup: the first free unit and where it lives.
type Hit struct {
	Entry    Entry
	Category enums.Category
}

// CacheStore is the segment cache. The Redis client satisfies it.
type CacheStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	IndexKey(category string) string
}

// ReceiptRef resolves the last receipt that touched a SKU, for sold-item errors.
type ReceiptRef interface {
	LastReceiptNoForSKU(ctx context.Context, sku string) (string, error)
}

// Service answers "is this SKU still for sale" without hitting the inventory
// table on every scan.
type Service interface {
	Get(ctx context.Context, category enums.Category) (Index, error)
	FindBySKU(ctx context.Context, sku string) (*Hit, error)
	Invalidate(ctx context.Context, categories ...enums.Category) error
	Warm(ctx context.Context) error
}

// ServiceParams wires the service dependencies.
type ServiceParams struct {
	Repo       inventory.Repository
	Cache      CacheStore
	ReceiptRef ReceiptRef
	Logger     *logger.Logger
	TTL        time.Duration
}

type service struct {
	repo       inventory.Repository
	cache      CacheStore
	receiptRef ReceiptRef
	logg       *logger.Logger
	ttl        time.Duration
}

// NewService constructs the availability service.
func NewService(params ServiceParams) (Service, error) {
	if params.Cache == nil {
		return nil, fmt.Errorf("cache store is required")
	}
	if params.TTL <= 0 {
		return nil, fmt.Errorf("index ttl must be positive")
	}
	return &service{
		repo:       params.Repo,
		cache:      params.Cache,
		receiptRef: params.ReceiptRef,
		logg:       params.Logger,
		ttl:        params.TTL,
	}, nil
}

func (s *service) Get(ctx context.Context, category enums.Category) (Index, error) {
	if !category.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown category").
			WithDetails(map[string]any{"category": string(category)})
	}

	key := s.cache.IndexKey(string(category))
	raw, err := s.cache.Get(ctx, key)
	if err == nil {
		var idx Index
		if jsonErr := json.Unmarshal([]byte(raw), &idx); jsonErr == nil {
			return idx, nil
		}
		// corrupt segment, rebuild below
		_ = s.cache.Del(ctx, key)
	} else if !redisclient.IsNil(err) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read index cache")
	}

	idx, err := s.build(ctx, category)
	if err != nil {
		return nil, err
	}

	encoded, err := json.Marshal(idx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode index")
	}
	if err := s.cache.Set(ctx, key, string(encoded), s.ttl); err != nil && s.logg != nil {
		s.logg.Warn(ctx, "index cache write failed")
	}
	return idx, nil
}

func (s *service) build(ctx context.Context, category enums.Category) (Index, error) {
	rows, err := s.repo.ListByCategory(ctx, category)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load category rows")
	}

	idx := Index{}
	for _, row := range rows {
		idx[row.SKU] = append(idx[row.SKU], Entry{
			RowID:         row.ID,
			SKU:           row.SKU,
			Description:   row.Description,
			ExpectedPrice: row.ExpectedPrice,
			Party:         row.Party,
			Channel:       row.Channel,
			Sold:          row.Sold(),
		})
	}
	return idx, nil
}

// FindBySKU walks the categories in their fixed search order and returns the
// first free unit. A SKU whose units are all sold yields ALREADY_SOLD with the
// last receipt that touched it.
func (s *service) FindBySKU(ctx context.Context, sku string) (*Hit, error) {
	if sku == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sku is required")
	}

	var soldIn enums.Category
	seenSold := false

	for _, category := range enums.CategorySearchOrder {
		idx, err := s.Get(ctx, category)
		if err != nil {
			return nil, err
		}
		entries, ok := idx[sku]
		if !ok {
			continue
		}
		for _, entry := range entries {
			if !entry.Sold {
				return &Hit{Entry: entry, Category: category}, nil
			}
		}
		seenSold = true
		soldIn = category
	}

	if seenSold {
		details := map[string]any{"sku": sku, "category": string(soldIn)}
		if s.receiptRef != nil {
			if receiptNo, err := s.receiptRef.LastReceiptNoForSKU(ctx, sku); err == nil && receiptNo != "" {
				details["receipt_no"] = receiptNo
			}
		}
		return nil, pkgerrors.New(pkgerrors.CodeAlreadySold, "item already sold").WithDetails(details)
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "sku not found").
		WithDetails(map[string]any{"sku": sku})
}

func (s *service) Invalidate(ctx context.Context, categories ...enums.Category) error {
	if len(categories) == 0 {
		categories = enums.CategorySearchOrder
	}
	keys := make([]string, 0, len(categories))
	for _, category := range categories {
		keys = append(keys, s.cache.IndexKey(string(category)))
	}
	if err := s.cache.Del(ctx, keys...); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "drop index segments")
	}
	return nil
}

// Warm rebuilds every category segment. Called at startup so the first scan
// after a deploy does not pay the build cost.
func (s *service) Warm(ctx context.Context) error {
	for _, category := range enums.CategorySearchOrder {
		if _, err := s.Get(ctx, category); err != nil {
			return err
		}
	}
	return nil
}
