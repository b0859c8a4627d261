package order

import (
	"strings"
	"time"

	"github.com/homecook/storefront/internal/apperr"
	"github.com/shopspring/decimal"
)

// Meal is a dish published by a chef.
type Meal struct {
	ID                    string          `json:"_id,omitempty"`
	FoodName              string          `json:"foodName"`
	ChefName              string          `json:"chefName"`
	ChefID                string          `json:"chefId"`
	ChefEmail             string          `json:"userEmail"`
	FoodImage             string          `json:"foodImage"`
	Price                 decimal.Decimal `json:"price"`
	Rating                float64         `json:"rating"`
	Ingredients           []string        `json:"ingredients"`
	EstimatedDeliveryTime string          `json:"estimatedDeliveryTime"`
	ChefExperience        string          `json:"chefExperience"`
	DeliveryArea          string          `json:"deliveryArea"`
	CreatedAt             time.Time       `json:"createdAt"`
}

// MealInput is the create/update form a chef submits.
type MealInput struct {
	FoodName              string          `json:"foodName"`
	FoodImage             string          `json:"foodImage"`
	Price                 decimal.Decimal `json:"price"`
	Ingredients           []string        `json:"ingredients"`
	EstimatedDeliveryTime string          `json:"estimatedDeliveryTime"`
	ChefExperience        string          `json:"chefExperience"`
	DeliveryArea          string          `json:"deliveryArea"`
}

// Validate checks required fields and drops blank ingredients.
func (in *MealInput) Validate() error {
	in.FoodName = strings.TrimSpace(in.FoodName)
	if in.FoodName == "" {
		return apperr.Validation("foodName", "meal name is required")
	}
	if !in.Price.IsPositive() {
		return apperr.Validation("price", "price must be greater than 0")
	}
	if strings.TrimSpace(in.EstimatedDeliveryTime) == "" {
		return apperr.Validation("estimatedDeliveryTime", "estimated delivery time is required")
	}
	if strings.TrimSpace(in.DeliveryArea) == "" {
		return apperr.Validation("deliveryArea", "delivery area is required")
	}

	kept := in.Ingredients[:0]
	for _, ing := range in.Ingredients {
		if s := strings.TrimSpace(ing); s != "" {
			kept = append(kept, s)
		}
	}
	in.Ingredients = kept
	return nil
}

// Apply copies the form onto m, leaving ownership fields untouched.
func (in MealInput) Apply(m Meal) Meal {
	m.FoodName = in.FoodName
	m.FoodImage = in.FoodImage
	m.Price = in.Price
	m.Ingredients = in.Ingredients
	m.EstimatedDeliveryTime = in.EstimatedDeliveryTime
	m.ChefExperience = in.ChefExperience
	m.DeliveryArea = in.DeliveryArea
	return m
}
