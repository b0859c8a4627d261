// Package guard applies the ownership and uniqueness rules for favorites and
// reviews before anything reaches the backend.
package guard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/homecook/storefront/internal/apperr"
	"github.com/homecook/storefront/internal/enum"
	"github.com/homecook/storefront/internal/lifecycle"
	"github.com/homecook/storefront/internal/order"
)

// AlreadyFavorite is the informational message for a repeated favorite.
const AlreadyFavorite = "This meal is already in your favorites"

// Store is the backend surface the guard needs.
type Store interface {
	GetMeal(ctx context.Context, id string) (order.Meal, error)

	AddFavorite(ctx context.Context, f order.Favorite) (bool, error)
	FavoritesByUser(ctx context.Context, email string) ([]order.Favorite, error)
	DeleteFavorite(ctx context.Context, id string) error

	CreateReview(ctx context.Context, r order.Review) (string, error)
	GetReview(ctx context.Context, id string) (order.Review, error)
	UpdateReview(ctx context.Context, id string, in order.ReviewInput) error
	DeleteReview(ctx context.Context, id string) error
}

type Guard struct {
	store Store
	caps  lifecycle.Capabilities
	now   func() time.Time
}

func New(store Store, caps lifecycle.Capabilities) *Guard {
	return &Guard{store: store, caps: caps, now: time.Now}
}

// FavoriteOutcome is the result of AddFavorite. Created is false when the meal
// was already a favorite; that is not an error.
type FavoriteOutcome struct {
	Created  bool           `json:"created"`
	Message  string         `json:"message,omitempty"`
	Favorite order.Favorite `json:"favorite"`
}

// AddFavorite bookmarks mealID for the actor. At most one favorite exists per
// (user, meal); a repeat returns Created=false with an informational message.
func (g *Guard) AddFavorite(ctx context.Context, a lifecycle.Actor, mealID string) (FavoriteOutcome, error) {
	if !g.caps.Can(a.Role, enum.ActionFavorite) {
		return FavoriteOutcome{}, fmt.Errorf("%w: %s cannot save favorites", apperr.ErrForbidden, a.Role)
	}
	if strings.TrimSpace(mealID) == "" {
		return FavoriteOutcome{}, apperr.Validation("mealId", "meal is required")
	}

	existing, err := g.store.FavoritesByUser(ctx, a.Email)
	if err != nil {
		return FavoriteOutcome{}, fmt.Errorf("list favorites: %w", err)
	}
	for _, f := range existing {
		if f.MealID == mealID {
			return FavoriteOutcome{Message: AlreadyFavorite, Favorite: f}, nil
		}
	}

	meal, err := g.store.GetMeal(ctx, mealID)
	if err != nil {
		return FavoriteOutcome{}, fmt.Errorf("get meal: %w", err)
	}
	fav := order.NewFavorite(a.Email, meal, g.now())

	created, err := g.store.AddFavorite(ctx, fav)
	if err != nil {
		return FavoriteOutcome{}, fmt.Errorf("add favorite: %w", err)
	}
	if !created {
		return FavoriteOutcome{Message: AlreadyFavorite, Favorite: fav}, nil
	}
	return FavoriteOutcome{Created: true, Favorite: fav}, nil
}

// RemoveFavorite deletes one of the actor's favorites. Removing a favorite that
// is already gone succeeds. Favorites of other users are never touched.
func (g *Guard) RemoveFavorite(ctx context.Context, a lifecycle.Actor, favoriteID string) error {
	if strings.TrimSpace(favoriteID) == "" {
		return apperr.Validation("id", "favorite is required")
	}
	mine, err := g.store.FavoritesByUser(ctx, a.Email)
	if err != nil {
		return fmt.Errorf("list favorites: %w", err)
	}
	owned := false
	for _, f := range mine {
		if f.ID == favoriteID {
			owned = true
			break
		}
	}
	if !owned {
		return nil
	}

	if err := g.store.DeleteFavorite(ctx, favoriteID); err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return fmt.Errorf("delete favorite: %w", err)
	}
	return nil
}

// Favorites lists the actor's favorites.
func (g *Guard) Favorites(ctx context.Context, a lifecycle.Actor) ([]order.Favorite, error) {
	return g.store.FavoritesByUser(ctx, a.Email)
}

// SubmitReview validates in and stores a review of mealID by the actor. Invalid
// input is rejected before any backend call.
func (g *Guard) SubmitReview(ctx context.Context, a lifecycle.Actor, mealID, reviewerImage string, in order.ReviewInput) (order.Review, error) {
	if err := in.Validate(); err != nil {
		return order.Review{}, err
	}
	if strings.TrimSpace(mealID) == "" {
		return order.Review{}, apperr.Validation("mealId", "meal is required")
	}
	if !g.caps.Can(a.Role, enum.ActionReview) {
		return order.Review{}, fmt.Errorf("%w: %s cannot write reviews", apperr.ErrForbidden, a.Role)
	}

	meal, err := g.store.GetMeal(ctx, mealID)
	if err != nil {
		return order.Review{}, fmt.Errorf("get meal: %w", err)
	}
	r := order.Review{
		FoodID:        meal.ID,
		FoodName:      meal.FoodName,
		ReviewerName:  a.Name,
		ReviewerEmail: a.Email,
		ReviewerImage: reviewerImage,
		Rating:        in.Rating,
		Comment:       strings.TrimSpace(in.Comment),
		Date:          g.now().UTC(),
	}
	r.ID, err = g.store.CreateReview(ctx, r)
	if err != nil {
		return order.Review{}, fmt.Errorf("create review: %w", err)
	}
	return r, nil
}

// EditReview changes the rating and comment of one of the actor's reviews.
func (g *Guard) EditReview(ctx context.Context, a lifecycle.Actor, id string, in order.ReviewInput) (order.Review, error) {
	if err := in.Validate(); err != nil {
		return order.Review{}, err
	}
	r, err := g.owned(ctx, a, id)
	if err != nil {
		return order.Review{}, err
	}
	in.Comment = strings.TrimSpace(in.Comment)
	if err := g.store.UpdateReview(ctx, id, in); err != nil {
		return order.Review{}, fmt.Errorf("update review: %w", err)
	}
	r.Rating = in.Rating
	r.Comment = in.Comment
	return r, nil
}

// DeleteReview removes one of the actor's reviews.
func (g *Guard) DeleteReview(ctx context.Context, a lifecycle.Actor, id string) error {
	if _, err := g.owned(ctx, a, id); err != nil {
		return err
	}
	if err := g.store.DeleteReview(ctx, id); err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	return nil
}

func (g *Guard) owned(ctx context.Context, a lifecycle.Actor, id string) (order.Review, error) {
	r, err := g.store.GetReview(ctx, id)
	if err != nil {
		return order.Review{}, fmt.Errorf("get review: %w", err)
	}
	if !CanModify(r, a) {
		return order.Review{}, fmt.Errorf("%w: review %s belongs to someone else", apperr.ErrForbidden, id)
	}
	return r, nil
}

// CanModify reports whether a may edit or delete r.
func CanModify(r order.Review, a lifecycle.Actor) bool {
	return r.OwnedBy(a.Email, a.Name)
}
