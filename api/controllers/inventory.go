package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/GolfLocker/golf-locker-pos/api/responses"
	"github.com/GolfLocker/golf-locker-pos/api/validators"
	"github.com/GolfLocker/golf-locker-pos/internal/availability"
	"github.com/GolfLocker/golf-locker-pos/internal/inventory"
	"github.com/GolfLocker/golf-locker-pos/pkg/enums"
	pkgerrors "github.com/GolfLocker/golf-locker-pos/pkg/errors"
	"github.com/GolfLocker/golf-locker-pos/pkg/logger"
)

type InventoryController struct {
	svc   inventory.Service
	avail availability.Service
	log   *logger.Logger
}

func NewInventoryController(svc inventory.Service, avail availability.Service, log *logger.Logger) *InventoryController {
	return &InventoryController{svc: svc, avail: avail, log: log}
}

type createItemBody struct {
	SKU           string  `json:"sku" validate:"required"`
	Category      string  `json:"category" validate:"required"`
	Description   string  `json:"description" validate:"required"`
	ExpectedPrice string  `json:"expected_price" validate:"required"`
	BuyPrice      *string `json:"buy_price,omitempty"`
	Party         string  `json:"party,omitempty"`
	Channel       string  `json:"channel,omitempty"`
}

func (c *InventoryController) Create(w http.ResponseWriter, r *http.Request) {
	var body createItemBody
	if err := validators.DecodeBody(r, &body); err != nil {
		responses.WriteError(r.Context(), w, c.log, err)
		return
	}

	expected, err := decimal.NewFromString(body.ExpectedPrice)
	if err != nil {
		responses.WriteError(r.Context(), w, c.log,
			pkgerrors.New(pkgerrors.CodeValidation, "expected_price must be a decimal"))
		return
	}

	input := inventory.CreateItemInput{
		SKU:           validators.NormalizeSKU(body.SKU),
		Category:      enums.Category(body.Category),
		Description:   body.Description,
		ExpectedPrice: expected,
		Party:         body.Party,
		Channel:       enums.SaleChannel(body.Channel),
	}
	if body.BuyPrice != nil {
		buy, err := decimal.NewFromString(*body.BuyPrice)
		if err != nil {
			responses.WriteError(r.Context(), w, c.log,
				pkgerrors.New(pkgerrors.CodeValidation, "buy_price must be a decimal"))
			return
		}
		input.BuyPrice = &buy
	}

	row, err := c.svc.CreateItem(r.Context(), input)
	if err != nil {
		responses.WriteError(r.Context(), w, c.log, err)
		return
	}
	responses.WriteSuccess(w, http.StatusCreated, row)
}

func (c *InventoryController) ListRecent(w http.ResponseWriter, r *http.Request) {
	limit, err := validators.QueryInt(r, "limit", 50)
	if err != nil {
		responses.WriteError(r.Context(), w, c.log, err)
		return
	}

	rows, err := c.svc.ListRecent(r.Context(), limit)
	if err != nil {
		responses.WriteError(r.Context(), w, c.log, err)
		return
	}
	responses.WriteSuccess(w, http.StatusOK, rows)
}

// Availability returns the cached free-units index for one category.
func (c *InventoryController) Availability(w http.ResponseWriter, r *http.Request) {
	category := enums.Category(chi.URLParam(r, "category"))
	if !category.IsValid() {
		responses.WriteError(r.Context(), w, c.log,
			pkgerrors.New(pkgerrors.CodeValidation, "unknown category"))
		return
	}

	index, err := c.avail.Get(r.Context(), category)
	if err != nil {
		responses.WriteError(r.Context(), w, c.log, err)
		return
	}
	responses.WriteSuccess(w, http.StatusOK, index)
}

// WarmAvailability rebuilds the index cache for every category.
func (c *InventoryController) WarmAvailability(w http.ResponseWriter, r *http.Request) {
	if err := c.avail.Warm(r.Context()); err != nil {
		responses.WriteError(r.Context(), w, c.log, err)
		return
	}
	responses.WriteSuccess(w, http.StatusOK, map[string]bool{"warmed": true})
}
