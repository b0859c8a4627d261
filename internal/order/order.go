// Package order defines the records the gateway exchanges with the backend:
// orders, meals, favorites, reviews, payments and accounts.
package order

import (
	"strings"
	"time"

	"github.com/homecook/storefront/internal/apperr"
	"github.com/homecook/storefront/internal/enum"
	"github.com/shopspring/decimal"
)

func init() {
	// The backend stores prices as JSON numbers, not strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// Order is the persisted shape of a customer's order. Meal name, unit price and
// chef are snapshots taken when the order is placed.
type Order struct {
	ID              string          `json:"_id,omitempty"`
	MealID          string          `json:"foodId"`
	MealName        string          `json:"mealName"`
	UnitPrice       decimal.Decimal `json:"price"`
	Quantity        int             `json:"quantity"`
	ChefID          string          `json:"chefId"`
	CustomerEmail   string          `json:"userEmail"`
	DeliveryAddress string          `json:"userAddress"`
	OrderStatus     string          `json:"orderStatus"`
	PaymentStatus   string          `json:"paymentStatus"`
	CreatedAt       time.Time       `json:"orderTime"`
}

// TotalPrice is always derived from unit price and quantity.
func (o Order) TotalPrice() decimal.Decimal {
	return o.UnitPrice.Mul(decimal.NewFromInt(int64(o.Quantity)))
}

// IsPaid reports whether the backend has recorded the order as paid.
func (o Order) IsPaid() bool {
	return o.PaymentStatus == enum.PaymentStatusPaid
}

// IsTerminal reports whether no further status transition exists.
func (o Order) IsTerminal() bool {
	return o.OrderStatus == enum.OrderStatusCancelled || o.OrderStatus == enum.OrderStatusDelivered
}

// PlaceOrderInput is what the customer submits from the meal detail view.
type PlaceOrderInput struct {
	MealID          string `json:"mealId"`
	Quantity        int    `json:"quantity"`
	DeliveryAddress string `json:"deliveryAddress"`
}

// Validate checks the form before anything is sent to the backend.
func (in PlaceOrderInput) Validate() error {
	if strings.TrimSpace(in.MealID) == "" {
		return apperr.Validation("mealId", "meal is required")
	}
	if in.Quantity < 1 {
		return apperr.Validation("quantity", "quantity must be at least 1")
	}
	if strings.TrimSpace(in.DeliveryAddress) == "" {
		return apperr.Validation("deliveryAddress", "delivery address is required")
	}
	return nil
}

// NewOrder builds a pending, unpaid order from a meal snapshot.
func NewOrder(meal Meal, customerEmail string, in PlaceOrderInput, now time.Time) (Order, error) {
	if err := in.Validate(); err != nil {
		return Order{}, err
	}
	if meal.ID != in.MealID {
		return Order{}, apperr.Validation("mealId", "meal does not match the order form")
	}
	if customerEmail == "" {
		return Order{}, apperr.Validation("userEmail", "customer email is required")
	}
	return Order{
		MealID:          meal.ID,
		MealName:        meal.FoodName,
		UnitPrice:       meal.Price,
		Quantity:        in.Quantity,
		ChefID:          meal.ChefID,
		CustomerEmail:   customerEmail,
		DeliveryAddress: strings.TrimSpace(in.DeliveryAddress),
		OrderStatus:     enum.OrderStatusPending,
		PaymentStatus:   enum.PaymentStatusUnpaid,
		CreatedAt:       now.UTC(),
	}, nil
}

// Payment is the history entry written after the processor confirms a charge.
type Payment struct {
	ID            string          `json:"_id,omitempty"`
	OrderID       string          `json:"orderId"`
	CustomerEmail string          `json:"userEmail"`
	Amount        decimal.Decimal `json:"amount"`
	TransactionID string          `json:"transactionId"`
	CreatedAt     time.Time       `json:"date"`
}
