package view

import (
	"errors"
	"sort"

	"github.com/homecook/storefront/internal/apperr"
	"github.com/homecook/storefront/internal/enum"
	"github.com/homecook/storefront/internal/lifecycle"
	"github.com/homecook/storefront/internal/order"
	"github.com/shopspring/decimal"
)

// OrderCard is one order with its derived total and the viewer's actions.
// NextStatuses are the statuses the order can still reach in one step.
// PaymentPending is set while a captured charge waits to be recorded.
type OrderCard struct {
	order.Order
	TotalPrice     decimal.Decimal `json:"totalPrice"`
	Terminal       bool            `json:"terminal"`
	PaymentPending bool            `json:"paymentPending"`
	NextStatuses   []string        `json:"nextStatuses"`
	Actions        []Action        `json:"actions"`
}

// NewOrderCard lists the given actions for o as seen by a.
func NewOrderCard(e *lifecycle.Engine, o order.Order, a lifecycle.Actor, actions []string) OrderCard {
	card := OrderCard{
		Order:        o,
		TotalPrice:   o.TotalPrice(),
		Terminal:     o.IsTerminal(),
		NextStatuses: append([]string{}, lifecycle.ValidNext(o.OrderStatus)...),
		Actions:      make([]Action, 0, len(actions)),
	}
	for _, name := range actions {
		var err error
		if name == enum.ActionPay {
			err = e.CanPay(o, a)
		} else {
			_, err = e.Decide(o, a, name)
		}
		card.Actions = append(card.Actions, action(name, err))
	}
	return card
}

// MarkPaymentPending flags the cards whose order ID is in pending and disables
// Pay Now on them.
func MarkPaymentPending(cards []OrderCard, pending map[string]bool) {
	for i := range cards {
		if !pending[cards[i].ID] {
			continue
		}
		cards[i].PaymentPending = true
		for j, a := range cards[i].Actions {
			if a.Name == enum.ActionPay {
				cards[i].Actions[j] = enabled(enum.ActionPay, false, "Payment received, waiting for confirmation")
			}
		}
	}
}

// ChefQueue is the chef's incoming orders, newest first, each with
// accept/cancel/deliver. meals are the chef's own meals; the backend's order
// list is not filtered by chef.
func ChefQueue(e *lifecycle.Engine, chef lifecycle.Actor, orders []order.Order, meals []order.Meal) []OrderCard {
	chef = WithMeals(chef, meals)
	var mine []order.Order
	for _, o := range orders {
		if lifecycle.Owns(o, chef) {
			mine = append(mine, o)
		}
	}
	newestFirst(mine)

	cards := make([]OrderCard, 0, len(mine))
	for _, o := range mine {
		cards = append(cards, NewOrderCard(e, o, chef, lifecycle.StatusActions))
	}
	return cards
}

// WithMeals returns a with the IDs of meals appended to its MealIDs.
func WithMeals(a lifecycle.Actor, meals []order.Meal) lifecycle.Actor {
	ids := make([]string, 0, len(a.MealIDs)+len(meals))
	ids = append(ids, a.MealIDs...)
	for _, m := range meals {
		ids = append(ids, m.ID)
	}
	a.MealIDs = ids
	return a
}

// CustomerOrders is the customer's own orders, newest first, each with Pay Now
// and, when the customer may cancel, Cancel.
func CustomerOrders(e *lifecycle.Engine, customer lifecycle.Actor, orders []order.Order) []OrderCard {
	actions := []string{enum.ActionPay}
	if e.Capabilities().Can(customer.Role, enum.ActionCancel) {
		actions = append(actions, enum.ActionCancel)
	}

	var mine []order.Order
	for _, o := range orders {
		if o.CustomerEmail == customer.Email {
			mine = append(mine, o)
		}
	}
	newestFirst(mine)

	cards := make([]OrderCard, 0, len(mine))
	for _, o := range mine {
		cards = append(cards, NewOrderCard(e, o, customer, actions))
	}
	return cards
}

func newestFirst(orders []order.Order) {
	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
}

// Placement is the order form on a meal's detail page.
type Placement struct {
	Meal        order.Meal        `json:"meal"`
	Quantity    int               `json:"quantity"`
	Address     string            `json:"deliveryAddress"`
	TotalPrice  decimal.Decimal   `json:"totalPrice"`
	FieldErrors map[string]string `json:"fieldErrors,omitempty"`
	Submit      Action            `json:"submit"`
}

// NewPlacement fills the form from in and reports field errors inline. The total
// is recomputed from the meal's current price and the entered quantity.
func NewPlacement(caps lifecycle.Capabilities, meal order.Meal, a lifecycle.Actor, in order.PlaceOrderInput) Placement {
	in.MealID = meal.ID
	p := Placement{
		Meal:     meal,
		Quantity: in.Quantity,
		Address:  in.DeliveryAddress,
	}
	if in.Quantity > 0 {
		p.TotalPrice = meal.Price.Mul(decimal.NewFromInt(int64(in.Quantity)))
	}

	err := in.Validate()
	var v *apperr.ValidationError
	if errors.As(err, &v) {
		p.FieldErrors = map[string]string{v.Field: v.Msg}
	}
	switch {
	case !caps.Can(a.Role, enum.ActionPlaceOrder):
		p.Submit = enabled(enum.ActionPlaceOrder, false, "Only customers can place orders")
	default:
		p.Submit = action(enum.ActionPlaceOrder, err)
	}
	return p
}
