package controllers

import (
	"net/http"

	"github.com/GolfLocker/golf-locker-pos/api/middleware"
	"github.com/GolfLocker/golf-locker-pos/api/responses"
	"github.com/GolfLocker/golf-locker-pos/api/validators"
	"github.com/GolfLocker/golf-locker-pos/internal/codes"
	"github.com/GolfLocker/golf-locker-pos/pkg/logger"
)

type CodesController struct {
	svc *codes.Service
	log *logger.Logger
}

func NewCodesController(svc *codes.Service, log *logger.Logger) *CodesController {
	return &CodesController{svc: svc, log: log}
}

type applyCodeBody struct {
	Code string `json:"code" validate:"required"`
}

// Apply stages a scanned code, discount or gift card alike.
func (c *CodesController) Apply(w http.ResponseWriter, r *http.Request) {
	var body applyCodeBody
	if err := validators.DecodeBody(r, &body); err != nil {
		responses.WriteError(r.Context(), w, c.log, err)
		return
	}

	sess, err := c.svc.Apply(r.Context(), middleware.UserID(r.Context()).String(),
		validators.NormalizeCode(body.Code))
	if err != nil {
		responses.WriteError(r.Context(), w, c.log, err)
		return
	}
	responses.WriteSuccess(w, http.StatusOK, sess)
}

func (c *CodesController) Get(w http.ResponseWriter, r *http.Request) {
	sess, err := c.svc.Get(r.Context(), middleware.UserID(r.Context()).String())
	if err != nil {
		responses.WriteError(r.Context(), w, c.log, err)
		return
	}
	responses.WriteSuccess(w, http.StatusOK, sess)
}

func (c *CodesController) Clear(w http.ResponseWriter, r *http.Request) {
	if err := c.svc.Clear(r.Context(), middleware.UserID(r.Context()).String()); err != nil {
		responses.WriteError(r.Context(), w, c.log, err)
		return
	}
	responses.WriteSuccess(w, http.StatusOK, map[string]bool{"cleared": true})
}
