package auth

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"quizonomy/internal/apperr"
	"quizonomy/internal/models"
	"quizonomy/pkg/response"

	"github.com/go-playground/validator/v10"
)

type Handler struct {
	service  *Service
	authn    Authenticator
	validate *validator.Validate
	logger   *slog.Logger
}

func NewHandler(service *Service, authn Authenticator, logger *slog.Logger) *Handler {
	return &Handler{
		service:  service,
		authn:    authn,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
	}
}

type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=24"`
	Password string `json:"password" validate:"required,min=8,max=24"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Fail(w, http.StatusBadRequest, "Invalid request")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.Fail(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.service.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		h.fail(w, "register", err)
		return
	}
	response.JSON(w, http.StatusCreated, user.ID)
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		h.fail(w, "list users", err)
		return
	}
	dtos := make([]models.UserDTO, len(users))
	for i, u := range users {
		dtos[i] = u.ToDTO()
	}
	response.JSON(w, http.StatusOK, dtos)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Fail(w, http.StatusBadRequest, "Invalid request")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.Fail(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.service.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.fail(w, "login", err)
		return
	}
	creds, err := h.authn.SignIn(w, r, user)
	if err != nil {
		h.fail(w, "sign in", err)
		return
	}
	h.logger.Info("user signed in", "user_id", user.ID)
	response.JSON(w, http.StatusOK, creds)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.authn.SignOut(w, r); err != nil {
		h.fail(w, "sign out", err)
		return
	}
	response.JSON(w, http.StatusOK, "Session invalidated")
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	principal, ok := PrincipalFrom(r.Context())
	if !ok {
		response.Error(w, apperr.ErrUnauthorized)
		return
	}
	user, err := h.service.CurrentUser(r.Context(), principal)
	if errors.Is(err, apperr.ErrNotFound) {
		// A valid credential for a deleted user is a server-side inconsistency.
		h.logger.Error("authenticated user not found", "username", principal.Username, "error", err)
		response.Fail(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if err != nil {
		h.fail(w, "current user", err)
		return
	}
	response.JSON(w, http.StatusOK, user.ToExtendedDTO())
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if apperr.Status(err) == http.StatusInternalServerError {
		h.logger.Error(op+" failed", "error", err)
	}
	response.Error(w, err)
}
