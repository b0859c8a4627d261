package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/homecook/storefront/internal/guard"
	"github.com/homecook/storefront/internal/lifecycle"
	"github.com/homecook/storefront/internal/order"
	"github.com/homecook/storefront/internal/view"
)

// FavoriteGuard defines the guard methods needed by favorite handlers.
// Satisfied by *guard.Guard.
type FavoriteGuard interface {
	AddFavorite(ctx context.Context, a lifecycle.Actor, mealID string) (guard.FavoriteOutcome, error)
	RemoveFavorite(ctx context.Context, a lifecycle.Actor, favoriteID string) error
	Favorites(ctx context.Context, a lifecycle.Actor) ([]order.Favorite, error)
}

// FavoriteHandler handles favorite endpoints.
type FavoriteHandler struct {
	guard FavoriteGuard
}

// NewFavoriteHandler creates a new FavoriteHandler.
func NewFavoriteHandler(g FavoriteGuard) *FavoriteHandler {
	return &FavoriteHandler{guard: g}
}

// RegisterRoutes registers favorite endpoints. Expected to be mounted at /favorites.
func (h *FavoriteHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Add)
	r.Delete("/{id}", h.Remove)
}

type addFavoriteRequest struct {
	MealID string `json:"mealId"`
}

// List returns the user's favorites, each with a Remove control.
func (h *FavoriteHandler) List(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	favs, err := h.guard.Favorites(r.Context(), a)
	writeList(w, r, "list favorites", view.Favorites(favs), err, "No favorite meals yet")
}

// Add bookmarks a meal. A repeat answers 200 with an informational message
// instead of 201.
func (h *FavoriteHandler) Add(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	var req addFavoriteRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	out, err := h.guard.AddFavorite(r.Context(), a, req.MealID)
	if err != nil {
		writeError(w, r, "add favorite", err)
		return
	}
	status := http.StatusCreated
	if !out.Created {
		status = http.StatusOK
	}
	writeJSON(w, status, out)
}

// Remove deletes a favorite. Removing one that is already gone succeeds.
func (h *FavoriteHandler) Remove(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	if err := h.guard.RemoveFavorite(r.Context(), a, chi.URLParam(r, "id")); err != nil {
		writeError(w, r, "remove favorite", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
