package inventory

import (
	"context"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/GolfLocker/golf-locker-pos/internal/sequence"
	"github.com/GolfLocker/golf-locker-pos/pkg/db"
	"github.com/GolfLocker/golf-locker-pos/pkg/db/models"
	"github.com/GolfLocker/golf-locker-pos/pkg/enums"
	pkgerrors "github.com/GolfLocker/golf-locker-pos/pkg/errors"
	"github.com/GolfLocker/golf-locker-pos/pkg/logger"
)

// skuBaseline is the first SKU ever issued; auto-numbering never goes below it.
const skuBaseline = 1513

// numericSKUCounter is the counter row behind plain numeric intake SKUs.
// Generated prefixes get their own row, keyed by the prefix.
const numericSKUCounter = "SKU_SEQ"

// GeneratorSpec describes a virtual SKU that mints a fresh row each time it is
// rung up, numbered PREFIX<n>.
type GeneratorSpec struct {
	Prefix      string
	Description string
	Category    enums.Category
	Price       decimal.Decimal
}

func defaultGenerators() map[string]GeneratorSpec {
	return map[string]GeneratorSpec{
		"1569": {
			Prefix:      "1569+",
			Description: "Regrip service",
			Category:    enums.CategoryServices,
			Price:       decimal.NewFromInt(15),
		},
		"GIFTCARD": {
			Prefix:      "GIFTCARD-",
			Description: "Gift card",
			Category:    enums.CategoryServices,
			Price:       decimal.Zero,
		},
		"SHIPPING": {
			Prefix:      "SHIPPING-",
			Description: "Shipping",
			Category:    enums.CategoryServices,
			Price:       decimal.NewFromInt(7),
		},
	}
}

// Invalidator drops cached availability segments after inventory writes.
type Invalidator interface {
	Invalidate(ctx context.Context, categories ...enums.Category) error
}

// Service exposes inventory intake and lookups.
type Service interface {
	CreateItem(ctx context.Context, input CreateItemInput) (*models.InventoryRow, error)
	CreateGenerated(ctx context.Context, baseSKU string) (*models.InventoryRow, error)
	GeneratorFor(sku string) (GeneratorSpec, bool)
	ListRecent(ctx context.Context, limit int) ([]models.InventoryRow, error)
}

// ServiceParams wires the service dependencies.
type ServiceParams struct {
	DB          *db.Client
	Repo        Repository
	Sequence    sequence.Repository
	Invalidator Invalidator
	Logger      *logger.Logger
	Generators  map[string]GeneratorSpec
}

type service struct {
	dbc         *db.Client
	repo        Repository
	seq         sequence.Repository
	invalidator Invalidator
	logg        *logger.Logger
	generators  map[string]GeneratorSpec
}

// NewService constructs the inventory service.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("db client is required")
	}
	if params.Invalidator == nil {
		return nil, fmt.Errorf("invalidator is required")
	}
	generators := params.Generators
	if generators == nil {
		generators = defaultGenerators()
	}
	return &service{
		dbc:         params.DB,
		repo:        params.Repo,
		seq:         params.Sequence,
		invalidator: params.Invalidator,
		logg:        params.Logger,
		generators:  generators,
	}, nil
}

// CreateItemInput carries intake data for a single physical item.
type CreateItemInput struct {
	SKU           string
	Category      enums.Category
	Description   string
	BuyPrice      *decimal.Decimal
	Party         string
	ExpectedPrice decimal.Decimal
	Channel       enums.SaleChannel
}

func (s *service) CreateItem(ctx context.Context, input CreateItemInput) (*models.InventoryRow, error) {
	if !input.Category.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown category").
			WithDetails(map[string]any{"category": string(input.Category)})
	}
	if input.Description == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "description is required")
	}
	if input.ExpectedPrice.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "expected price cannot be negative")
	}

	channel := input.Channel
	if channel == "" {
		channel = enums.SaleChannelStore
	}

	margin := input.ExpectedPrice
	if input.BuyPrice != nil {
		margin = input.ExpectedPrice.Sub(*input.BuyPrice)
	}

	// SKU allocation and insert share a transaction, so two intakes racing
	// for the next number serialize on the counter row instead of both
	// scanning the same maximum
	var row *models.InventoryRow
	err := s.dbc.WithTx(ctx, func(tx *gorm.DB) error {
		sku := input.SKU
		if sku == "" {
			next, err := s.nextNumericSKUTx(tx)
			if err != nil {
				return err
			}
			sku = strconv.Itoa(next)
		}

		row = &models.InventoryRow{
			SKU:            sku,
			Category:       input.Category,
			Description:    input.Description,
			BuyPrice:       input.BuyPrice,
			Party:          input.Party,
			ExpectedPrice:  input.ExpectedPrice,
			ExpectedMargin: margin,
			BackupExpected: input.ExpectedPrice,
			Channel:        channel,
		}
		if err := s.repo.CreateTx(tx, row); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist inventory row")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.invalidator.Invalidate(ctx, input.Category); err != nil && s.logg != nil {
		s.logg.Warn(s.logg.WithSKU(ctx, row.SKU), "availability invalidation failed after intake")
	}
	return row, nil
}

func (s *service) GeneratorFor(sku string) (GeneratorSpec, bool) {
	spec, ok := s.generators[sku]
	return spec, ok
}

func (s *service) CreateGenerated(ctx context.Context, baseSKU string) (*models.InventoryRow, error) {
	spec, ok := s.generators[baseSKU]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "unknown generator sku").
			WithDetails(map[string]any{"sku": baseSKU})
	}

	var row *models.InventoryRow
	err := s.dbc.WithTx(ctx, func(tx *gorm.DB) error {
		seed, err := s.repo.MaxSKUSuffixTx(tx, spec.Prefix)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "scan generated skus")
		}
		suffix, err := s.seq.NextValueTx(tx, numericSKUCounter+"_"+spec.Prefix, int64(seed))
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "allocate generated sku")
		}

		row = &models.InventoryRow{
			SKU:            fmt.Sprintf("%s%d", spec.Prefix, suffix),
			Category:       spec.Category,
			Description:    spec.Description,
			ExpectedPrice:  spec.Price,
			ExpectedMargin: spec.Price,
			BackupExpected: spec.Price,
			Channel:        enums.SaleChannelStore,
		}
		if err := s.repo.CreateTx(tx, row); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist generated row")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.invalidator.Invalidate(ctx, spec.Category); err != nil && s.logg != nil {
		s.logg.Warn(s.logg.WithSKU(ctx, row.SKU), "availability invalidation failed after generation")
	}
	return row, nil
}

func (s *service) ListRecent(ctx context.Context, limit int) ([]models.InventoryRow, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := s.repo.ListRecent(ctx, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list inventory")
	}
	return rows, nil
}

// nextNumericSKUTx allocates the next numeric SKU from the counter row,
// seeding it from the highest SKU already in the table on first use.
func (s *service) nextNumericSKUTx(tx *gorm.DB) (int, error) {
	seed, err := s.repo.MaxNumericSKUTx(tx)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "scan skus")
	}
	if seed < skuBaseline {
		seed = skuBaseline
	}
	next, err := s.seq.NextValueTx(tx, numericSKUCounter, int64(seed))
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "allocate sku")
	}
	return int(next), nil
}
