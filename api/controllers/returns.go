package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/GolfLocker/golf-locker-pos/api/responses"
	"github.com/GolfLocker/golf-locker-pos/api/validators"
	"github.com/GolfLocker/golf-locker-pos/internal/returns"
	"github.com/GolfLocker/golf-locker-pos/pkg/logger"
)

type ReturnsController struct {
	svc *returns.Service
	log *logger.Logger
}

func NewReturnsController(svc *returns.Service, log *logger.Logger) *ReturnsController {
	return &ReturnsController{svc: svc, log: log}
}

type returnItemBody struct {
	SKU    string `json:"sku" validate:"required"`
	Reason string `json:"reason,omitempty"`
}

type returnBody struct {
	ReceiptNo string           `json:"receipt_no" validate:"required"`
	Items     []returnItemBody `json:"items" validate:"required,min=1,dive"`
}

// Commit refunds the selected lines of a receipt as one atomic operation.
func (c *ReturnsController) Commit(w http.ResponseWriter, r *http.Request) {
	var body returnBody
	if err := validators.DecodeBody(r, &body); err != nil {
		responses.WriteError(r.Context(), w, c.log, err)
		return
	}

	items := make([]returns.Item, 0, len(body.Items))
	for _, item := range body.Items {
		items = append(items, returns.Item{
			SKU:    validators.NormalizeSKU(item.SKU),
			Reason: item.Reason,
		})
	}

	result, err := c.svc.Commit(r.Context(), returns.CommitInput{
		ReceiptNo: body.ReceiptNo,
		Items:     items,
	})
	if err != nil {
		responses.WriteError(r.Context(), w, c.log, err)
		return
	}
	responses.WriteSuccess(w, http.StatusCreated, result)
}

// Preview shows which lines of a receipt can still be refunded.
func (c *ReturnsController) Preview(w http.ResponseWriter, r *http.Request) {
	lines, err := c.svc.Preview(r.Context(), chi.URLParam(r, "receiptNo"))
	if err != nil {
		responses.WriteError(r.Context(), w, c.log, err)
		return
	}
	responses.WriteSuccess(w, http.StatusOK, lines)
}

func (c *ReturnsController) Recent(w http.ResponseWriter, r *http.Request) {
	limit, err := validators.QueryInt(r, "limit", 50)
	if err != nil {
		responses.WriteError(r.Context(), w, c.log, err)
		return
	}

	records, err := c.svc.Recent(r.Context(), limit)
	if err != nil {
		responses.WriteError(r.Context(), w, c.log, err)
		return
	}
	responses.WriteSuccess(w, http.StatusOK, records)
}
