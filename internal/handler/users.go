package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/homecook/storefront/internal/lifecycle"
	"github.com/homecook/storefront/internal/order"
	"github.com/homecook/storefront/internal/view"
)

// AccountServicer defines the service methods needed by user and admin handlers.
// Satisfied by *service.AccountService; narrow interface for testability.
type AccountServicer interface {
	Profile(ctx context.Context, a lifecycle.Actor) (*order.User, error)
	RequestRole(ctx context.Context, a lifecycle.Actor, requestType string) (*order.RoleRequest, error)
	Users(ctx context.Context, a lifecycle.Actor) ([]view.UserRow, error)
	SetRole(ctx context.Context, a lifecycle.Actor, userID, role string) error
	DeleteUser(ctx context.Context, a lifecycle.Actor, userID string) error
	Requests(ctx context.Context, a lifecycle.Actor) ([]view.RequestRow, error)
	ResolveRequest(ctx context.Context, a lifecycle.Actor, id, action string) error
	Stats(ctx context.Context, a lifecycle.Actor) (*order.PlatformStats, error)
}

// UserHandler handles profile, role request and admin endpoints.
type UserHandler struct {
	svc AccountServicer
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(svc AccountServicer) *UserHandler {
	return &UserHandler{svc: svc}
}

// RegisterRoutes registers endpoints for any signed-in user.
func (h *UserHandler) RegisterRoutes(r chi.Router) {
	r.Get("/me", h.Profile)
	r.Post("/role-requests", h.RequestRole)
}

// RegisterAdminRoutes registers the admin console. Expected to be mounted at
// /admin behind middleware.RequireRole(enum.RoleAdmin).
func (h *UserHandler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/users", h.List)
	r.Patch("/users/{id}/role", h.SetRole)
	r.Delete("/users/{id}", h.Delete)
	r.Get("/role-requests", h.Requests)
	r.Patch("/role-requests/{id}", h.ResolveRequest)
	r.Get("/platform-stats", h.Stats)
}

// --- Request types ---

type roleRequestRequest struct {
	RequestType string `json:"requestType"`
}

type setRoleRequest struct {
	Role string `json:"role"`
}

type resolveRequest struct {
	Action string `json:"action"`
}

// --- Handlers ---

func (h *UserHandler) Profile(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	u, err := h.svc.Profile(r.Context(), a)
	if err != nil {
		writeError(w, r, "get profile", err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// RequestRole asks an admin to make the caller a chef or admin.
func (h *UserHandler) RequestRole(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	var req roleRequestRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	rr, err := h.svc.RequestRole(r.Context(), a, req.RequestType)
	if err != nil {
		writeError(w, r, "request role", err)
		return
	}
	writeJSON(w, http.StatusCreated, rr)
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	rows, err := h.svc.Users(r.Context(), a)
	writeList(w, r, "list users", rows, err, "No users")
}

// SetRole makes a user chef or admin.
func (h *UserHandler) SetRole(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	var req setRoleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.svc.SetRole(r.Context(), a, chi.URLParam(r, "id"), req.Role); err != nil {
		writeError(w, r, "set user role", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": chi.URLParam(r, "id"), "role": req.Role})
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteUser(r.Context(), a, chi.URLParam(r, "id")); err != nil {
		writeError(w, r, "delete user", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *UserHandler) Requests(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	rows, err := h.svc.Requests(r.Context(), a)
	writeList(w, r, "list role requests", rows, err, "No role requests")
}

// ResolveRequest approves or rejects a pending role request.
func (h *UserHandler) ResolveRequest(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	var req resolveRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.svc.ResolveRequest(r.Context(), a, chi.URLParam(r, "id"), req.Action); err != nil {
		writeError(w, r, "resolve role request", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": chi.URLParam(r, "id"), "action": req.Action})
}

func (h *UserHandler) Stats(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	st, err := h.svc.Stats(r.Context(), a)
	if err != nil {
		writeError(w, r, "platform stats", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}
