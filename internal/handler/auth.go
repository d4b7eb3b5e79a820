package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/segyhp/lending-engine/internal/domain"
	"github.com/segyhp/lending-engine/pkg/response"
)

type AuthHandler struct {
	service   AuthService
	validator *validator.Validate
	logger    *slog.Logger
}

func NewAuthHandler(service AuthService, v *validator.Validate, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{service: service, validator: v, logger: logger}
}

// Register handles POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterRequest
	if err := decodeJSON(r, h.validator, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	token, err := h.service.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	response.Created(w, token)
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := decodeJSON(r, h.validator, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	token, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	response.Success(w, token)
}

// Me handles GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	caller, _ := contextGetIdentity(r)

	user, err := h.service.Me(r.Context(), caller)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	response.Success(w, user)
}
