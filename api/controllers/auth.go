package controllers

import (
	"net/http"
	"strings"

	"github.com/GolfLocker/golf-locker-pos/api/responses"
	"github.com/GolfLocker/golf-locker-pos/api/validators"
	"github.com/GolfLocker/golf-locker-pos/internal/auth"
	pkgerrors "github.com/GolfLocker/golf-locker-pos/pkg/errors"
	"github.com/GolfLocker/golf-locker-pos/pkg/logger"
)

type AuthController struct {
	svc *auth.Service
	log *logger.Logger
}

func NewAuthController(svc *auth.Service, log *logger.Logger) *AuthController {
	return &AuthController{svc: svc, log: log}
}

type loginBody struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	UserID       string `json:"user_id"`
	Name         string `json:"name"`
	Role         string `json:"role"`
}

func (c *AuthController) Login(w http.ResponseWriter, r *http.Request) {
	var body loginBody
	if err := validators.DecodeBody(r, &body); err != nil {
		responses.WriteError(r.Context(), w, c.log, err)
		return
	}

	pair, user, err := c.svc.Login(r.Context(), validators.NormalizeEmail(body.Email), body.Password)
	if err != nil {
		responses.WriteError(r.Context(), w, c.log, err)
		return
	}

	responses.WriteSuccess(w, http.StatusOK, loginResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		UserID:       user.ID.String(),
		Name:         strings.TrimSpace(user.FirstName + " " + user.LastName),
		Role:         string(user.Role),
	})
}

type refreshBody struct {
	AccessToken  string `json:"access_token" validate:"required"`
	RefreshToken string `json:"refresh_token" validate:"required"`
}

func (c *AuthController) Refresh(w http.ResponseWriter, r *http.Request) {
	var body refreshBody
	if err := validators.DecodeBody(r, &body); err != nil {
		responses.WriteError(r.Context(), w, c.log, err)
		return
	}

	pair, err := c.svc.Refresh(r.Context(), body.AccessToken, body.RefreshToken)
	if err != nil {
		responses.WriteError(r.Context(), w, c.log, err)
		return
	}

	responses.WriteSuccess(w, http.StatusOK, pair)
}

func (c *AuthController) Logout(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		responses.WriteError(r.Context(), w, c.log,
			pkgerrors.New(pkgerrors.CodeUnauthorized, "missing bearer token"))
		return
	}

	if err := c.svc.Logout(r.Context(), token); err != nil {
		responses.WriteError(r.Context(), w, c.log, err)
		return
	}

	responses.WriteSuccess(w, http.StatusOK, map[string]bool{"logged_out": true})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
