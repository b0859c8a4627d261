package service

import (
	"context"
	"fmt"
	"time"

	"github.com/homecook/storefront/internal/apperr"
	"github.com/homecook/storefront/internal/enum"
	"github.com/homecook/storefront/internal/lifecycle"
	"github.com/homecook/storefront/internal/order"
	"github.com/homecook/storefront/internal/view"
)

// MealStore defines the backend calls the meal service needs.
type MealStore interface {
	ListMeals(ctx context.Context, sort string) ([]order.Meal, error)
	GetMeal(ctx context.Context, id string) (order.Meal, error)
	MealsByChef(ctx context.Context, email string) ([]order.Meal, error)
	CreateMeal(ctx context.Context, m order.Meal) (string, error)
	UpdateMeal(ctx context.Context, id string, m order.Meal) error
	DeleteMeal(ctx context.Context, id string) error

	ReviewsByMeal(ctx context.Context, mealID string) ([]order.Review, error)
	ReviewsByReviewer(ctx context.Context, name string) ([]order.Review, error)
	HomeReviews(ctx context.Context) ([]order.Review, error)
}

// MealService serves the catalog and lets chefs manage their own meals.
type MealService struct {
	store MealStore
	caps  lifecycle.Capabilities
	now   func() time.Time
}

func NewMealService(store MealStore, caps lifecycle.Capabilities) *MealService {
	return &MealService{store: store, caps: caps, now: time.Now}
}

// Catalog lists every meal, sorted by price when sort is asc or desc.
func (s *MealService) Catalog(ctx context.Context, sort string) ([]order.Meal, error) {
	if sort != "" && sort != enum.MealSortAsc && sort != enum.MealSortDesc {
		return nil, apperr.Validation("sort", "sort must be asc or desc")
	}
	return s.store.ListMeals(ctx, sort)
}

// MealDetail is a meal with its reviews.
type MealDetail struct {
	Meal    order.Meal        `json:"meal"`
	Reviews []view.ReviewItem `json:"reviews"`
}

// Meal returns a meal with its reviews as seen by a. A failure to load reviews
// leaves the review list empty.
func (s *MealService) Meal(ctx context.Context, a lifecycle.Actor, id string) (*MealDetail, error) {
	m, err := s.store.GetMeal(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get meal: %w", err)
	}
	reviews, err := s.store.ReviewsByMeal(ctx, id)
	if err != nil {
		reviews = nil
	}
	return &MealDetail{Meal: m, Reviews: view.Reviews(reviews, a)}, nil
}

// MyMeals lists the chef's own meals.
func (s *MealService) MyMeals(ctx context.Context, a lifecycle.Actor) ([]order.Meal, error) {
	if !s.caps.Can(a.Role, enum.ActionCreateMeal) {
		return nil, fmt.Errorf("%w: %s has no meals", apperr.ErrForbidden, a.Role)
	}
	return s.store.MealsByChef(ctx, a.Email)
}

// Create publishes a new meal owned by the chef.
func (s *MealService) Create(ctx context.Context, a lifecycle.Actor, in order.MealInput) (*order.Meal, error) {
	if !s.caps.Can(a.Role, enum.ActionCreateMeal) {
		return nil, fmt.Errorf("%w: %s cannot publish meals", apperr.ErrForbidden, a.Role)
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	m := in.Apply(order.Meal{
		ChefName:  a.Name,
		ChefID:    a.UserID,
		ChefEmail: a.Email,
		CreatedAt: s.now().UTC(),
	})
	id, err := s.store.CreateMeal(ctx, m)
	if err != nil {
		return nil, fmt.Errorf("create meal: %w", err)
	}
	m.ID = id
	return &m, nil
}

// Update replaces the editable fields of one of the chef's meals.
func (s *MealService) Update(ctx context.Context, a lifecycle.Actor, id string, in order.MealInput) (*order.Meal, error) {
	if !s.caps.Can(a.Role, enum.ActionUpdateMeal) {
		return nil, fmt.Errorf("%w: %s cannot edit meals", apperr.ErrForbidden, a.Role)
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	m, err := s.store.GetMeal(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get meal: %w", err)
	}
	if !ownsMeal(m, a) {
		return nil, fmt.Errorf("%w: meal %s belongs to another chef", apperr.ErrForbidden, id)
	}

	m = in.Apply(m)
	if err := s.store.UpdateMeal(ctx, id, m); err != nil {
		return nil, fmt.Errorf("update meal: %w", err)
	}
	return &m, nil
}

// Delete removes a meal. Chefs may delete their own meals, admins any meal.
func (s *MealService) Delete(ctx context.Context, a lifecycle.Actor, id string) error {
	if !s.caps.Can(a.Role, enum.ActionDeleteMeal) {
		return fmt.Errorf("%w: %s cannot delete meals", apperr.ErrForbidden, a.Role)
	}
	if a.Role != enum.RoleAdmin {
		m, err := s.store.GetMeal(ctx, id)
		if err != nil {
			return fmt.Errorf("get meal: %w", err)
		}
		if !ownsMeal(m, a) {
			return fmt.Errorf("%w: meal %s belongs to another chef", apperr.ErrForbidden, id)
		}
	}
	if err := s.store.DeleteMeal(ctx, id); err != nil {
		return fmt.Errorf("delete meal: %w", err)
	}
	return nil
}

// MyReviews lists the reviews the actor wrote.
func (s *MealService) MyReviews(ctx context.Context, a lifecycle.Actor) ([]view.ReviewItem, error) {
	reviews, err := s.store.ReviewsByReviewer(ctx, a.Name)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	return view.Reviews(reviews, a), nil
}

// HomeReviews lists the featured reviews.
func (s *MealService) HomeReviews(ctx context.Context, a lifecycle.Actor) ([]view.ReviewItem, error) {
	reviews, err := s.store.HomeReviews(ctx)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	return view.Reviews(reviews, a), nil
}

func ownsMeal(m order.Meal, a lifecycle.Actor) bool {
	if m.ChefID != "" {
		return m.ChefID == a.UserID
	}
	return m.ChefEmail != "" && m.ChefEmail == a.Email
}
