package order_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/homecook/storefront/internal/apperr"
	"github.com/homecook/storefront/internal/enum"
	"github.com/homecook/storefront/internal/order"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMeal() order.Meal {
	return order.Meal{
		ID:       "m1",
		FoodName: "Chicken Biryani",
		ChefName: "Rahima",
		ChefID:   "chef-1",
		Price:    decimal.NewFromInt(10),
	}
}

func TestNewOrder_TotalPriceDerived(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	o, err := order.NewOrder(testMeal(), "sam@example.com", order.PlaceOrderInput{
		MealID:          "m1",
		Quantity:        3,
		DeliveryAddress: " 12 Lake Road ",
	}, now)
	require.NoError(t, err)

	assert.Equal(t, enum.OrderStatusPending, o.OrderStatus)
	assert.Equal(t, enum.PaymentStatusUnpaid, o.PaymentStatus)
	assert.True(t, o.TotalPrice().Equal(decimal.NewFromInt(30)), "total: got %s", o.TotalPrice())
	assert.Equal(t, "12 Lake Road", o.DeliveryAddress)
	assert.Equal(t, "chef-1", o.ChefID)
	assert.Equal(t, now, o.CreatedAt)
	assert.False(t, o.IsPaid())
	assert.False(t, o.IsTerminal())
}

func TestOrder_TotalFollowsQuantity(t *testing.T) {
	o := order.Order{UnitPrice: decimal.RequireFromString("12.50"), Quantity: 2}
	assert.Equal(t, "25", o.TotalPrice().String())

	o.Quantity = 4
	assert.Equal(t, "50", o.TotalPrice().String())
}

func TestPlaceOrderInput_Validate(t *testing.T) {
	tests := []struct {
		name  string
		in    order.PlaceOrderInput
		field string
	}{
		{"missing meal", order.PlaceOrderInput{Quantity: 1, DeliveryAddress: "x"}, "mealId"},
		{"zero quantity", order.PlaceOrderInput{MealID: "m1", Quantity: 0, DeliveryAddress: "x"}, "quantity"},
		{"negative quantity", order.PlaceOrderInput{MealID: "m1", Quantity: -2, DeliveryAddress: "x"}, "quantity"},
		{"blank address", order.PlaceOrderInput{MealID: "m1", Quantity: 1, DeliveryAddress: "   "}, "deliveryAddress"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.in.Validate()
			var verr *apperr.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestNewOrder_MealMismatch(t *testing.T) {
	_, err := order.NewOrder(testMeal(), "sam@example.com", order.PlaceOrderInput{
		MealID: "other", Quantity: 1, DeliveryAddress: "x",
	}, time.Now())
	assert.True(t, apperr.IsValidation(err))
}

func TestOrder_JSONUsesBackendFieldNames(t *testing.T) {
	o := order.Order{
		ID:            "o1",
		MealID:        "m1",
		UnitPrice:     decimal.NewFromInt(10),
		Quantity:      2,
		CustomerEmail: "sam@example.com",
		OrderStatus:   enum.OrderStatusPending,
	}
	b, err := json.Marshal(o)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(b, &raw))
	assert.Equal(t, "o1", raw["_id"])
	assert.Equal(t, "m1", raw["foodId"])
	assert.Equal(t, float64(10), raw["price"])
	assert.Equal(t, "sam@example.com", raw["userEmail"])
}

func TestReviewInput_Validate(t *testing.T) {
	assert.Error(t, order.ReviewInput{Rating: 0, Comment: "tasty"}.Validate())
	assert.Error(t, order.ReviewInput{Rating: 6, Comment: "tasty"}.Validate())
	assert.Error(t, order.ReviewInput{Rating: 4, Comment: "  "}.Validate())
	assert.NoError(t, order.ReviewInput{Rating: 1, Comment: "ok"}.Validate())
	assert.NoError(t, order.ReviewInput{Rating: 5, Comment: "great"}.Validate())
}

func TestReview_OwnedBy(t *testing.T) {
	byEmail := order.Review{ReviewerName: "Sam", ReviewerEmail: "sam@example.com"}
	assert.True(t, byEmail.OwnedBy("SAM@example.com", "Someone"))
	assert.False(t, byEmail.OwnedBy("kim@example.com", "Sam"))

	byName := order.Review{ReviewerName: "Sam"}
	assert.True(t, byName.OwnedBy("sam@example.com", "Sam"))
	assert.False(t, byName.OwnedBy("sam@example.com", ""))
}

func TestMealInput_Validate(t *testing.T) {
	in := order.MealInput{
		FoodName:              "  Khichuri ",
		Price:                 decimal.NewFromInt(8),
		Ingredients:           []string{"rice", " ", "lentils", ""},
		EstimatedDeliveryTime: "30 min",
		DeliveryArea:          "Dhanmondi",
	}
	require.NoError(t, in.Validate())
	assert.Equal(t, "Khichuri", in.FoodName)
	assert.Equal(t, []string{"rice", "lentils"}, in.Ingredients)

	bad := in
	bad.Price = decimal.Zero
	assert.True(t, apperr.IsValidation(bad.Validate()))
}

func TestNewRoleRequest(t *testing.T) {
	u := order.User{ID: "u1", Name: "Sam", Email: "sam@example.com", Role: enum.RoleUser}

	req, err := order.NewRoleRequest(u, enum.RequestTypeChef, time.Now())
	require.NoError(t, err)
	assert.Equal(t, enum.RequestStatusPending, req.Status)

	_, err = order.NewRoleRequest(u, "owner", time.Now())
	assert.True(t, apperr.IsValidation(err))

	u.Role = enum.RoleChef
	_, err = order.NewRoleRequest(u, enum.RequestTypeChef, time.Now())
	assert.True(t, apperr.IsValidation(err))
}
