package handler_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/homecook/storefront/internal/apperr"
	"github.com/homecook/storefront/internal/handler"
	"github.com/homecook/storefront/internal/lifecycle"
	"github.com/homecook/storefront/internal/middleware"
	"github.com/homecook/storefront/internal/order"
	"github.com/homecook/storefront/internal/view"
)

// --- Mock ReviewGuard / ReviewLister ---

type mockReviewGuard struct {
	submitFn func(ctx context.Context, a lifecycle.Actor, mealID, reviewerImage string, in order.ReviewInput) (order.Review, error)
	editFn   func(ctx context.Context, a lifecycle.Actor, id string, in order.ReviewInput) (order.Review, error)
	deleteFn func(ctx context.Context, a lifecycle.Actor, id string) error
}

func (m *mockReviewGuard) SubmitReview(ctx context.Context, a lifecycle.Actor, mealID, reviewerImage string, in order.ReviewInput) (order.Review, error) {
	return m.submitFn(ctx, a, mealID, reviewerImage, in)
}
func (m *mockReviewGuard) EditReview(ctx context.Context, a lifecycle.Actor, id string, in order.ReviewInput) (order.Review, error) {
	return m.editFn(ctx, a, id, in)
}
func (m *mockReviewGuard) DeleteReview(ctx context.Context, a lifecycle.Actor, id string) error {
	return m.deleteFn(ctx, a, id)
}

type mockReviewLister struct {
	mineFn func(ctx context.Context, a lifecycle.Actor) ([]view.ReviewItem, error)
	homeFn func(ctx context.Context, a lifecycle.Actor) ([]view.ReviewItem, error)
}

func (m *mockReviewLister) MyReviews(ctx context.Context, a lifecycle.Actor) ([]view.ReviewItem, error) {
	return m.mineFn(ctx, a)
}
func (m *mockReviewLister) HomeReviews(ctx context.Context, a lifecycle.Actor) ([]view.ReviewItem, error) {
	return m.homeFn(ctx, a)
}

func setupReviewRouter(g handler.ReviewGuard, l handler.ReviewLister) *chi.Mux {
	h := handler.NewReviewHandler(g, l)
	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(middleware.Optional(testJWTSecret))
		h.RegisterPublicRoutes(r)
	})
	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(testJWTSecret))
		h.RegisterRoutes(r)
	})
	return r
}

func TestReviews_Submit(t *testing.T) {
	var gotImage, gotMeal string
	g := &mockReviewGuard{
		submitFn: func(ctx context.Context, a lifecycle.Actor, mealID, reviewerImage string, in order.ReviewInput) (order.Review, error) {
			if err := in.Validate(); err != nil {
				return order.Review{}, err
			}
			gotImage, gotMeal = reviewerImage, mealID
			return order.Review{ID: "r1", FoodID: mealID, ReviewerName: a.Name, ReviewerImage: reviewerImage, Rating: in.Rating, Comment: in.Comment}, nil
		},
	}
	router := setupReviewRouter(g, &mockReviewLister{})

	sub := customerSubject
	sub.PhotoURL = "https://example.com/sam.png"
	rr := doAuthRequest(t, router, "POST", "/meals/m1/reviews", map[string]interface{}{"rating": 5, "comment": "Great"}, &sub)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want %d (body %s)", rr.Code, http.StatusCreated, rr.Body.String())
	}
	if gotMeal != "m1" {
		t.Errorf("meal: got %q, want m1", gotMeal)
	}
	if gotImage != sub.PhotoURL {
		t.Errorf("reviewer image: got %q, want %q", gotImage, sub.PhotoURL)
	}
}

func TestReviews_SubmitInvalid(t *testing.T) {
	tests := []struct {
		name      string
		body      map[string]interface{}
		wantField string
	}{
		{"rating too high", map[string]interface{}{"rating": 6, "comment": "ok"}, "rating"},
		{"rating zero", map[string]interface{}{"rating": 0, "comment": "ok"}, "rating"},
		{"blank comment", map[string]interface{}{"rating": 4, "comment": "   "}, "comment"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := &mockReviewGuard{
				submitFn: func(ctx context.Context, a lifecycle.Actor, mealID, reviewerImage string, in order.ReviewInput) (order.Review, error) {
					return order.Review{}, in.Validate()
				},
			}
			router := setupReviewRouter(g, &mockReviewLister{})

			rr := doAuthRequest(t, router, "POST", "/meals/m1/reviews", tt.body, &customerSubject)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
			}
			body := decodeBody(t, rr)
			if body["field"] != tt.wantField {
				t.Errorf("field: got %v, want %s", body["field"], tt.wantField)
			}
		})
	}
}

func TestReviews_EditOthersForbidden(t *testing.T) {
	g := &mockReviewGuard{
		editFn: func(ctx context.Context, a lifecycle.Actor, id string, in order.ReviewInput) (order.Review, error) {
			return order.Review{}, apperr.ErrForbidden
		},
		deleteFn: func(ctx context.Context, a lifecycle.Actor, id string) error {
			return apperr.ErrForbidden
		},
	}
	router := setupReviewRouter(g, &mockReviewLister{})

	rr := doAuthRequest(t, router, "PATCH", "/reviews/r1", map[string]interface{}{"rating": 3, "comment": "meh"}, &chefSubject)
	if rr.Code != http.StatusForbidden {
		t.Errorf("edit status: got %d, want %d", rr.Code, http.StatusForbidden)
	}
	rr = doAuthRequest(t, router, "DELETE", "/reviews/r1", nil, &chefSubject)
	if rr.Code != http.StatusForbidden {
		t.Errorf("delete status: got %d, want %d", rr.Code, http.StatusForbidden)
	}
}

func TestReviews_HomeIsPublic(t *testing.T) {
	l := &mockReviewLister{
		homeFn: func(ctx context.Context, a lifecycle.Actor) ([]view.ReviewItem, error) {
			return nil, nil
		},
	}
	router := setupReviewRouter(&mockReviewGuard{}, l)

	rr := doAuthRequest(t, router, "GET", "/reviews/home", nil, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
	body := decodeBody(t, rr)
	if body["message"] != "No reviews yet" {
		t.Errorf("message: got %v, want No reviews yet", body["message"])
	}
}

func TestReviews_MineNotShadowedByID(t *testing.T) {
	called := false
	l := &mockReviewLister{
		mineFn: func(ctx context.Context, a lifecycle.Actor) ([]view.ReviewItem, error) {
			called = true
			return []view.ReviewItem{}, nil
		},
	}
	router := setupReviewRouter(&mockReviewGuard{}, l)

	rr := doAuthRequest(t, router, "GET", "/reviews/mine", nil, &customerSubject)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
	if !called {
		t.Error("MyReviews was not called")
	}
}
