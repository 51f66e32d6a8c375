package controllers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"

	"github.com/GolfLocker/golf-locker-pos/api/responses"
	"github.com/GolfLocker/golf-locker-pos/api/validators"
	"github.com/GolfLocker/golf-locker-pos/internal/codes"
	pkgerrors "github.com/GolfLocker/golf-locker-pos/pkg/errors"
	"github.com/GolfLocker/golf-locker-pos/pkg/logger"
)

type GiftCardsController struct {
	repo codes.Repository
	log  *logger.Logger
}

func NewGiftCardsController(repo codes.Repository, log *logger.Logger) *GiftCardsController {
	return &GiftCardsController{repo: repo, log: log}
}

func (c *GiftCardsController) List(w http.ResponseWriter, r *http.Request) {
	limit, err := validators.QueryInt(r, "limit", 50)
	if err != nil {
		responses.WriteError(r.Context(), w, c.log, err)
		return
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	cards, err := c.repo.ListRecent(r.Context(), limit)
	if err != nil {
		responses.WriteError(r.Context(), w, c.log,
			pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list gift cards"))
		return
	}
	responses.WriteSuccess(w, http.StatusOK, cards)
}

// Get looks up a card so the register can quote its remaining balance.
func (c *GiftCardsController) Get(w http.ResponseWriter, r *http.Request) {
	code := validators.NormalizeCode(chi.URLParam(r, "code"))

	card, err := c.repo.Get(r.Context(), code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			err = pkgerrors.New(pkgerrors.CodeNotFound, "gift card not found")
		}
		responses.WriteError(r.Context(), w, c.log, err)
		return
	}
	responses.WriteSuccess(w, http.StatusOK, card)
}
