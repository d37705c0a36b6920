package users

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/shiftdesk/shiftdesk/internal/auth"
	"github.com/shiftdesk/shiftdesk/internal/platform/httpx"
)

// Handler manages user management endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	auth      auth.Middleware
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, authMW auth.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, auth: authMW, validator: httpx.NewValidator()}
}

// MountRoutes registers user routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Use(h.auth.Authenticate)
	r.Group(func(r chi.Router) {
		r.Use(h.auth.RequireAdmin())
		r.Get("/", h.listUsers)
		r.Post("/", h.createUser)
		r.Delete("/{id}", h.deleteUser)
	})
	r.Get("/{id}", h.getUser)
	r.Put("/{id}", h.updateUser)
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context(), auth.PrincipalFromContext(r.Context()))
	if err != nil {
		h.fail(w, "list users", err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]any{"users": users})
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.GetUser(r.Context(), auth.PrincipalFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, "get user", err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]any{"user": user})
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	var in CreateInput
	if err := httpx.DecodeJSON(w, r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := httpx.Validate(h.validator, in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	user, err := h.service.CreateUser(r.Context(), auth.PrincipalFromContext(r.Context()), in)
	if err != nil {
		h.fail(w, "create user", err)
		return
	}
	httpx.OK(w, http.StatusCreated, map[string]any{"user": user})
}

func (h *Handler) updateUser(w http.ResponseWriter, r *http.Request) {
	var in UpdateInput
	if err := httpx.DecodeJSON(w, r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := httpx.Validate(h.validator, in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	user, err := h.service.UpdateUser(r.Context(), auth.PrincipalFromContext(r.Context()), chi.URLParam(r, "id"), in)
	if err != nil {
		h.fail(w, "update user", err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]any{"user": user})
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteUser(r.Context(), auth.PrincipalFromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		h.fail(w, "delete user", err)
		return
	}
	httpx.Message(w, http.StatusOK, "User deleted successfully")
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if httpx.StatusOf(err) == http.StatusInternalServerError {
		h.logger.Error(op+" failed", slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
