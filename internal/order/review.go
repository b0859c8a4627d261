package order

import (
	"strings"
	"time"

	"github.com/homecook/storefront/internal/apperr"
	"github.com/shopspring/decimal"
)

const (
	MinRating = 1
	MaxRating = 5
)

// Favorite is a denormalized bookmark of a meal. It is created and deleted, never updated.
type Favorite struct {
	ID        string          `json:"_id,omitempty"`
	UserEmail string          `json:"userEmail"`
	MealID    string          `json:"mealId"`
	MealName  string          `json:"mealName"`
	ChefID    string          `json:"chefId"`
	ChefName  string          `json:"chefName"`
	Price     decimal.Decimal `json:"price"`
	AddedAt   time.Time       `json:"addedTime"`
}

// NewFavorite snapshots meal for userEmail.
func NewFavorite(userEmail string, meal Meal, now time.Time) Favorite {
	return Favorite{
		UserEmail: userEmail,
		MealID:    meal.ID,
		MealName:  meal.FoodName,
		ChefID:    meal.ChefID,
		ChefName:  meal.ChefName,
		Price:     meal.Price,
		AddedAt:   now.UTC(),
	}
}

// Review is a customer's rating of a meal.
type Review struct {
	ID            string    `json:"_id,omitempty"`
	FoodID        string    `json:"foodId"`
	FoodName      string    `json:"foodName"`
	ReviewerName  string    `json:"reviewerName"`
	ReviewerEmail string    `json:"reviewerEmail,omitempty"`
	ReviewerImage string    `json:"reviewerImage"`
	Rating        int       `json:"rating"`
	Comment       string    `json:"comment"`
	Date          time.Time `json:"date"`
}

// OwnedBy matches the reviewer identity. Older records carry only the reviewer name.
func (r Review) OwnedBy(email, name string) bool {
	if r.ReviewerEmail != "" {
		return strings.EqualFold(r.ReviewerEmail, email)
	}
	return name != "" && r.ReviewerName == name
}

// ReviewInput is the rating and comment a reviewer submits or edits.
type ReviewInput struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

// Validate enforces the rating range and a non-empty comment.
func (in ReviewInput) Validate() error {
	if in.Rating < MinRating || in.Rating > MaxRating {
		return apperr.Validation("rating", "rating must be between 1 and 5")
	}
	if strings.TrimSpace(in.Comment) == "" {
		return apperr.Validation("comment", "comment is required")
	}
	return nil
}
