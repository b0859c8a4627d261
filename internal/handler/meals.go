package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/homecook/storefront/internal/lifecycle"
	"github.com/homecook/storefront/internal/order"
	"github.com/homecook/storefront/internal/service"
)

// MealServicer defines the service methods needed by meal handlers.
// Satisfied by *service.MealService.
type MealServicer interface {
	Catalog(ctx context.Context, sort string) ([]order.Meal, error)
	Meal(ctx context.Context, a lifecycle.Actor, id string) (*service.MealDetail, error)
	MyMeals(ctx context.Context, a lifecycle.Actor) ([]order.Meal, error)
	Create(ctx context.Context, a lifecycle.Actor, in order.MealInput) (*order.Meal, error)
	Update(ctx context.Context, a lifecycle.Actor, id string, in order.MealInput) (*order.Meal, error)
	Delete(ctx context.Context, a lifecycle.Actor, id string) error
}

// MealHandler handles meal endpoints.
type MealHandler struct {
	svc MealServicer
}

// NewMealHandler creates a new MealHandler.
func NewMealHandler(svc MealServicer) *MealHandler {
	return &MealHandler{svc: svc}
}

// RegisterPublicRoutes registers the catalog. Mount behind middleware.Optional
// so review controls show for the signed-in author.
func (h *MealHandler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/meals", h.List)
	r.Get("/meals/{id}", h.Get)
}

// RegisterRoutes registers the chef's meal management endpoints.
func (h *MealHandler) RegisterRoutes(r chi.Router) {
	r.Get("/meals/mine", h.Mine)
	r.Post("/meals", h.Create)
	r.Put("/meals/{id}", h.Update)
	r.Delete("/meals/{id}", h.Delete)
}

// List returns the catalog, optionally sorted by price (?sort=asc|desc).
func (h *MealHandler) List(w http.ResponseWriter, r *http.Request) {
	meals, err := h.svc.Catalog(r.Context(), r.URL.Query().Get("sort"))
	writeList(w, r, "list meals", meals, err, "No meals available")
}

// Get returns a meal with its reviews.
func (h *MealHandler) Get(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.Meal(r.Context(), viewer(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, "get meal", err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *MealHandler) Mine(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	meals, err := h.svc.MyMeals(r.Context(), a)
	writeList(w, r, "list chef meals", meals, err, "You have not published any meals yet")
}

func (h *MealHandler) Create(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	var in order.MealInput
	if !decodeJSON(w, r, &in) {
		return
	}
	m, err := h.svc.Create(r.Context(), a, in)
	if err != nil {
		writeError(w, r, "create meal", err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (h *MealHandler) Update(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	var in order.MealInput
	if !decodeJSON(w, r, &in) {
		return
	}
	m, err := h.svc.Update(r.Context(), a, chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, r, "update meal", err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *MealHandler) Delete(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), a, chi.URLParam(r, "id")); err != nil {
		writeError(w, r, "delete meal", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
