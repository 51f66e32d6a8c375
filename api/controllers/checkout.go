package controllers

import (
	"net/http"

	"github.com/GolfLocker/golf-locker-pos/api/middleware"
	"github.com/GolfLocker/golf-locker-pos/api/responses"
	"github.com/GolfLocker/golf-locker-pos/api/validators"
	"github.com/GolfLocker/golf-locker-pos/internal/checkout"
	"github.com/GolfLocker/golf-locker-pos/pkg/enums"
	"github.com/GolfLocker/golf-locker-pos/pkg/logger"
)

type CheckoutController struct {
	svc *checkout.Service
	log *logger.Logger
}

func NewCheckoutController(svc *checkout.Service, log *logger.Logger) *CheckoutController {
	return &CheckoutController{svc: svc, log: log}
}

type commitBody struct {
	PaymentMethod string `json:"payment_method" validate:"required"`
	CustomerEmail string `json:"customer_email,omitempty" validate:"omitempty,email"`
}

func (c *CheckoutController) Commit(w http.ResponseWriter, r *http.Request) {
	var body commitBody
	if err := validators.DecodeBody(r, &body); err != nil {
		responses.WriteError(r.Context(), w, c.log, err)
		return
	}

	result, err := c.svc.Commit(r.Context(), checkout.CommitInput{
		UserID:        middleware.UserID(r.Context()).String(),
		PaymentMethod: enums.PaymentMethod(body.PaymentMethod),
		CustomerEmail: validators.NormalizeEmail(body.CustomerEmail),
	})
	if err != nil {
		responses.WriteError(r.Context(), w, c.log, err)
		return
	}
	responses.WriteSuccess(w, http.StatusCreated, result)
}

// Totals previews what the open basket would settle for.
func (c *CheckoutController) Totals(w http.ResponseWriter, r *http.Request) {
	totals, err := c.svc.Preview(r.Context(), middleware.UserID(r.Context()).String())
	if err != nil {
		responses.WriteError(r.Context(), w, c.log, err)
		return
	}
	responses.WriteSuccess(w, http.StatusOK, totals)
}
