package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/GolfLocker/golf-locker-pos/api/middleware"
	"github.com/GolfLocker/golf-locker-pos/api/responses"
	"github.com/GolfLocker/golf-locker-pos/api/validators"
	"github.com/GolfLocker/golf-locker-pos/internal/cart"
	pkgerrors "github.com/GolfLocker/golf-locker-pos/pkg/errors"
	"github.com/GolfLocker/golf-locker-pos/pkg/logger"
)

type CartController struct {
	svc *cart.Service
	log *logger.Logger
}

func NewCartController(svc *cart.Service, log *logger.Logger) *CartController {
	return &CartController{svc: svc, log: log}
}

type addLineBody struct {
	SKU       string  `json:"sku" validate:"required"`
	Quantity  int     `json:"quantity" validate:"required,gt=0"`
	UnitPrice *string `json:"unit_price,omitempty"`
}

func (c *CartController) Add(w http.ResponseWriter, r *http.Request) {
	var body addLineBody
	if err := validators.DecodeBody(r, &body); err != nil {
		responses.WriteError(r.Context(), w, c.log, err)
		return
	}

	input := cart.AddInput{
		SKU:      validators.NormalizeSKU(body.SKU),
		Quantity: body.Quantity,
	}
	if body.UnitPrice != nil {
		price, err := decimal.NewFromString(*body.UnitPrice)
		if err != nil {
			responses.WriteError(r.Context(), w, c.log,
				pkgerrors.New(pkgerrors.CodeValidation, "unit_price must be a decimal"))
			return
		}
		input.UnitPrice = &price
	}

	basket, err := c.svc.Add(r.Context(), middleware.UserID(r.Context()).String(), input)
	if err != nil {
		responses.WriteError(r.Context(), w, c.log, err)
		return
	}
	responses.WriteSuccess(w, http.StatusOK, basket)
}

type quantityBody struct {
	Quantity int `json:"quantity" validate:"gte=0"`
}

func (c *CartController) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	var body quantityBody
	if err := validators.DecodeBody(r, &body); err != nil {
		responses.WriteError(r.Context(), w, c.log, err)
		return
	}

	sku := validators.NormalizeSKU(chi.URLParam(r, "sku"))
	basket, err := c.svc.UpdateQuantity(r.Context(), middleware.UserID(r.Context()).String(), sku, body.Quantity)
	if err != nil {
		responses.WriteError(r.Context(), w, c.log, err)
		return
	}
	responses.WriteSuccess(w, http.StatusOK, basket)
}

type priceBody struct {
	UnitPrice string `json:"unit_price" validate:"required"`
}

func (c *CartController) UpdatePrice(w http.ResponseWriter, r *http.Request) {
	var body priceBody
	if err := validators.DecodeBody(r, &body); err != nil {
		responses.WriteError(r.Context(), w, c.log, err)
		return
	}

	price, err := decimal.NewFromString(body.UnitPrice)
	if err != nil {
		responses.WriteError(r.Context(), w, c.log,
			pkgerrors.New(pkgerrors.CodeValidation, "unit_price must be a decimal"))
		return
	}

	sku := validators.NormalizeSKU(chi.URLParam(r, "sku"))
	basket, err := c.svc.UpdatePrice(r.Context(), middleware.UserID(r.Context()).String(), sku, price)
	if err != nil {
		responses.WriteError(r.Context(), w, c.log, err)
		return
	}
	responses.WriteSuccess(w, http.StatusOK, basket)
}

type refreshResponse struct {
	Cart    *cart.Cart `json:"cart"`
	Changed int        `json:"changed"`
}

// Refresh syncs the basket with current store data and pushes out its idle
// timeout.
func (c *CartController) Refresh(w http.ResponseWriter, r *http.Request) {
	basket, changed, err := c.svc.Refresh(r.Context(), middleware.UserID(r.Context()).String())
	if err != nil {
		responses.WriteError(r.Context(), w, c.log, err)
		return
	}
	responses.WriteSuccess(w, http.StatusOK, refreshResponse{Cart: basket, Changed: changed})
}

func (c *CartController) Remove(w http.ResponseWriter, r *http.Request) {
	sku := validators.NormalizeSKU(chi.URLParam(r, "sku"))

	basket, err := c.svc.Remove(r.Context(), middleware.UserID(r.Context()).String(), sku)
	if err != nil {
		responses.WriteError(r.Context(), w, c.log, err)
		return
	}
	responses.WriteSuccess(w, http.StatusOK, basket)
}

func (c *CartController) Get(w http.ResponseWriter, r *http.Request) {
	basket, err := c.svc.Get(r.Context(), middleware.UserID(r.Context()).String())
	if err != nil {
		responses.WriteError(r.Context(), w, c.log, err)
		return
	}
	responses.WriteSuccess(w, http.StatusOK, basket)
}

func (c *CartController) Clear(w http.ResponseWriter, r *http.Request) {
	if err := c.svc.Clear(r.Context(), middleware.UserID(r.Context()).String()); err != nil {
		responses.WriteError(r.Context(), w, c.log, err)
		return
	}
	responses.WriteSuccess(w, http.StatusOK, map[string]bool{"cleared": true})
}
