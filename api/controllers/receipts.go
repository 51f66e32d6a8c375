package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/GolfLocker/golf-locker-pos/api/responses"
	"github.com/GolfLocker/golf-locker-pos/api/validators"
	"github.com/GolfLocker/golf-locker-pos/internal/receipts"
	"github.com/GolfLocker/golf-locker-pos/pkg/enums"
	"github.com/GolfLocker/golf-locker-pos/pkg/logger"
)

type ReceiptsController struct {
	svc *receipts.Service
	log *logger.Logger
}

func NewReceiptsController(svc *receipts.Service, log *logger.Logger) *ReceiptsController {
	return &ReceiptsController{svc: svc, log: log}
}

func (c *ReceiptsController) Get(w http.ResponseWriter, r *http.Request) {
	receipt, err := c.svc.Get(r.Context(), chi.URLParam(r, "receiptNo"))
	if err != nil {
		responses.WriteError(r.Context(), w, c.log, err)
		return
	}
	responses.WriteSuccess(w, http.StatusOK, receipt)
}

func (c *ReceiptsController) ListRecent(w http.ResponseWriter, r *http.Request) {
	limit, err := validators.QueryInt(r, "limit", 50)
	if err != nil {
		responses.WriteError(r.Context(), w, c.log, err)
		return
	}

	heads, err := c.svc.Search(r.Context(), validators.QueryString(r, "query"), limit)
	if err != nil {
		responses.WriteError(r.Context(), w, c.log, err)
		return
	}
	responses.WriteSuccess(w, http.StatusOK, heads)
}

type markMailBody struct {
	Status string `json:"status" validate:"required"`
}

func (c *ReceiptsController) MarkMail(w http.ResponseWriter, r *http.Request) {
	var body markMailBody
	if err := validators.DecodeBody(r, &body); err != nil {
		responses.WriteError(r.Context(), w, c.log, err)
		return
	}

	receiptNo := chi.URLParam(r, "receiptNo")
	if err := c.svc.MarkMail(r.Context(), receiptNo, enums.MailStatus(body.Status)); err != nil {
		responses.WriteError(r.Context(), w, c.log, err)
		return
	}
	responses.WriteSuccess(w, http.StatusOK, map[string]string{
		"receipt_no": receiptNo,
		"status":     body.Status,
	})
}
