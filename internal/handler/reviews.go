package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/homecook/storefront/internal/lifecycle"
	"github.com/homecook/storefront/internal/order"
	"github.com/homecook/storefront/internal/session"
	"github.com/homecook/storefront/internal/view"
)

// ReviewGuard defines the guard methods needed by review handlers.
// Satisfied by *guard.Guard.
type ReviewGuard interface {
	SubmitReview(ctx context.Context, a lifecycle.Actor, mealID, reviewerImage string, in order.ReviewInput) (order.Review, error)
	EditReview(ctx context.Context, a lifecycle.Actor, id string, in order.ReviewInput) (order.Review, error)
	DeleteReview(ctx context.Context, a lifecycle.Actor, id string) error
}

// ReviewLister lists reviews. Satisfied by *service.MealService.
type ReviewLister interface {
	MyReviews(ctx context.Context, a lifecycle.Actor) ([]view.ReviewItem, error)
	HomeReviews(ctx context.Context, a lifecycle.Actor) ([]view.ReviewItem, error)
}

// ReviewHandler handles review endpoints.
type ReviewHandler struct {
	guard ReviewGuard
	list  ReviewLister
}

// NewReviewHandler creates a new ReviewHandler.
func NewReviewHandler(g ReviewGuard, list ReviewLister) *ReviewHandler {
	return &ReviewHandler{guard: g, list: list}
}

// RegisterPublicRoutes registers the home page reviews.
func (h *ReviewHandler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/reviews/home", h.Home)
}

// RegisterRoutes registers endpoints that need a signed-in session.
func (h *ReviewHandler) RegisterRoutes(r chi.Router) {
	r.Post("/meals/{id}/reviews", h.Submit)
	r.Get("/reviews/mine", h.Mine)
	r.Patch("/reviews/{id}", h.Edit)
	r.Delete("/reviews/{id}", h.Delete)
}

// Submit posts a review for a meal. Invalid input is rejected before any
// backend call.
func (h *ReviewHandler) Submit(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	var in order.ReviewInput
	if !decodeJSON(w, r, &in) {
		return
	}

	image := session.FromContext(r.Context()).Subject().PhotoURL
	rev, err := h.guard.SubmitReview(r.Context(), a, chi.URLParam(r, "id"), image, in)
	if err != nil {
		writeError(w, r, "submit review", err)
		return
	}
	writeJSON(w, http.StatusCreated, rev)
}

// Edit changes the rating and comment of the caller's own review.
func (h *ReviewHandler) Edit(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	var in order.ReviewInput
	if !decodeJSON(w, r, &in) {
		return
	}

	rev, err := h.guard.EditReview(r.Context(), a, chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, r, "edit review", err)
		return
	}
	writeJSON(w, http.StatusOK, rev)
}

// Delete removes the caller's own review.
func (h *ReviewHandler) Delete(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	if err := h.guard.DeleteReview(r.Context(), a, chi.URLParam(r, "id")); err != nil {
		writeError(w, r, "delete review", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ReviewHandler) Mine(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	items, err := h.list.MyReviews(r.Context(), a)
	writeList(w, r, "list my reviews", items, err, "You have not reviewed any meals yet")
}

func (h *ReviewHandler) Home(w http.ResponseWriter, r *http.Request) {
	items, err := h.list.HomeReviews(r.Context(), viewer(r))
	writeList(w, r, "list home reviews", items, err, "No reviews yet")
}
