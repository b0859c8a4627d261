package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/homecook/storefront/internal/apperr"
	"github.com/homecook/storefront/internal/enum"
	"github.com/homecook/storefront/internal/lifecycle"
	"github.com/homecook/storefront/internal/order"
	"github.com/homecook/storefront/internal/view"
)

// OrderStore defines the backend calls the order service needs.
// Satisfied by *backend.Client.
type OrderStore interface {
	GetMeal(ctx context.Context, id string) (order.Meal, error)
	MealsByChef(ctx context.Context, email string) ([]order.Meal, error)
	PlaceOrder(ctx context.Context, o order.Order) (string, error)
	GetOrder(ctx context.Context, id string) (order.Order, error)
	OrdersByCustomer(ctx context.Context, email string) ([]order.Order, error)
	ListOrders(ctx context.Context) ([]order.Order, error)
	UpdateOrderStatus(ctx context.Context, id, status string) error
	PaymentsByCustomer(ctx context.Context, email string) ([]order.Payment, error)
}

// Notifier tells connected browsers that an order changed.
type Notifier interface {
	NotifyOrder(o order.Order)
}

type nopNotifier struct{}

func (nopNotifier) NotifyOrder(order.Order) {}

// PendingPayments reports which orders have a captured charge that is not yet
// reflected on the order. Satisfied by *reconcile.Store.
type PendingPayments interface {
	UnresolvedOrders(ctx context.Context, orderIDs []string) (map[string]bool, error)
}

// StaleOrderError is returned when the backend rejected a transition because the
// order had already moved on. Order is the re-fetched authoritative record.
type StaleOrderError struct {
	Order order.Order
	Err   error
}

func (e *StaleOrderError) Error() string {
	return fmt.Sprintf("%v: order %s is now %s", apperr.ErrInvalidTransition, e.Order.ID, e.Order.OrderStatus)
}

func (e *StaleOrderError) Unwrap() []error {
	return []error{apperr.ErrInvalidTransition, e.Err}
}

// OrderService places orders and applies status transitions. Every decision is
// made against a freshly fetched order, never a cached one.
type OrderService struct {
	store   OrderStore
	engine  *lifecycle.Engine
	notify  Notifier
	pending PendingPayments
	now     func() time.Time
}

// OrderOption configures an OrderService.
type OrderOption func(*OrderService)

// WithPendingPayments marks order cards whose payment awaits reconciliation.
func WithPendingPayments(p PendingPayments) OrderOption {
	return func(s *OrderService) { s.pending = p }
}

// NewOrderService creates a new OrderService. notify may be nil.
func NewOrderService(store OrderStore, engine *lifecycle.Engine, notify Notifier, opts ...OrderOption) *OrderService {
	if notify == nil {
		notify = nopNotifier{}
	}
	s := &OrderService{store: store, engine: engine, notify: notify, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PlaceOrder validates the form, snapshots the meal and creates a pending, unpaid order.
func (s *OrderService) PlaceOrder(ctx context.Context, a lifecycle.Actor, in order.PlaceOrderInput) (*order.Order, error) {
	if !s.engine.Capabilities().Can(a.Role, enum.ActionPlaceOrder) {
		return nil, fmt.Errorf("%w: %s cannot place orders", apperr.ErrForbidden, a.Role)
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	meal, err := s.store.GetMeal(ctx, in.MealID)
	if err != nil {
		return nil, fmt.Errorf("get meal: %w", err)
	}
	o, err := order.NewOrder(meal, a.Email, in, s.now())
	if err != nil {
		return nil, err
	}

	o.ID, err = s.store.PlaceOrder(ctx, o)
	if err != nil {
		return nil, fmt.Errorf("place order: %w", err)
	}
	s.notify.NotifyOrder(o)
	return &o, nil
}

// Placement previews the order form for mealID with the viewer's input.
func (s *OrderService) Placement(ctx context.Context, a lifecycle.Actor, mealID string, in order.PlaceOrderInput) (*view.Placement, error) {
	meal, err := s.store.GetMeal(ctx, mealID)
	if err != nil {
		return nil, fmt.Errorf("get meal: %w", err)
	}
	p := view.NewPlacement(s.engine.Capabilities(), meal, a, in)
	return &p, nil
}

// Transition applies action to the order. The order is re-read first; if the
// backend still rejects the change as stale, the order is re-read again and a
// *StaleOrderError carries the current record.
func (s *OrderService) Transition(ctx context.Context, a lifecycle.Actor, orderID, action string) (*order.Order, error) {
	o, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	a, err = s.withChefMeals(ctx, a, o)
	if err != nil {
		return nil, err
	}
	next, err := s.engine.Apply(o, a, action)
	if err != nil {
		return nil, err
	}

	if err := s.store.UpdateOrderStatus(ctx, o.ID, next.OrderStatus); err != nil {
		if errors.Is(err, apperr.ErrConflict) || apperr.IsValidation(err) {
			fresh, ferr := s.store.GetOrder(ctx, o.ID)
			if ferr != nil {
				return nil, fmt.Errorf("update order status: %w", err)
			}
			return nil, &StaleOrderError{Order: fresh, Err: err}
		}
		return nil, fmt.Errorf("update order status: %w", err)
	}

	updated, err := s.store.GetOrder(ctx, o.ID)
	if err != nil {
		log.Printf("ERROR: re-read order %s after %s: %v", o.ID, action, err)
		updated = next
	}
	s.notify.NotifyOrder(updated)
	return &updated, nil
}

// Order returns one order as seen by a. Customers see their own orders, chefs
// the orders for their meals, admins everything.
func (s *OrderService) Order(ctx context.Context, a lifecycle.Actor, orderID string) (*view.OrderCard, error) {
	o, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	a, err = s.withChefMeals(ctx, a, o)
	if err != nil {
		return nil, err
	}
	switch {
	case a.Role == enum.RoleAdmin:
	case a.Role == enum.RoleChef && lifecycle.Owns(o, a):
	case o.CustomerEmail == a.Email:
	default:
		return nil, fmt.Errorf("%w: order %s", apperr.ErrNotFound, orderID)
	}
	actions := append([]string{}, lifecycle.StatusActions...)
	actions = append(actions, enum.ActionPay)
	cards := []view.OrderCard{view.NewOrderCard(s.engine, o, a, actions)}
	s.markPending(ctx, cards)
	return &cards[0], nil
}

// withChefMeals loads a chef's meals when o is not stamped with the chef's ID,
// so lifecycle.Owns can match the order by meal.
func (s *OrderService) withChefMeals(ctx context.Context, a lifecycle.Actor, o order.Order) (lifecycle.Actor, error) {
	if a.Role != enum.RoleChef || lifecycle.Owns(o, a) {
		return a, nil
	}
	meals, err := s.store.MealsByChef(ctx, a.Email)
	if err != nil {
		return a, fmt.Errorf("list chef meals: %w", err)
	}
	return view.WithMeals(a, meals), nil
}

// markPending flags cards with a charge awaiting reconciliation. A failed
// lookup leaves the cards as they are; the payment gate re-checks before charging.
func (s *OrderService) markPending(ctx context.Context, cards []view.OrderCard) {
	if s.pending == nil || len(cards) == 0 {
		return
	}
	ids := make([]string, 0, len(cards))
	for _, c := range cards {
		if !c.IsPaid() {
			ids = append(ids, c.ID)
		}
	}
	if len(ids) == 0 {
		return
	}
	pending, err := s.pending.UnresolvedOrders(ctx, ids)
	if err != nil {
		log.Printf("ERROR: check pending payments: %v", err)
		return
	}
	view.MarkPaymentPending(cards, pending)
}

// ChefQueue lists the orders for the chef's meals.
func (s *OrderService) ChefQueue(ctx context.Context, a lifecycle.Actor) ([]view.OrderCard, error) {
	if a.Role != enum.RoleChef {
		return nil, fmt.Errorf("%w: only chefs have an order queue", apperr.ErrForbidden)
	}
	meals, err := s.store.MealsByChef(ctx, a.Email)
	if err != nil {
		return nil, fmt.Errorf("list chef meals: %w", err)
	}
	orders, err := s.store.ListOrders(ctx)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	cards := view.ChefQueue(s.engine, a, orders, meals)
	s.markPending(ctx, cards)
	return cards, nil
}

// CustomerOrders lists the actor's own orders.
func (s *OrderService) CustomerOrders(ctx context.Context, a lifecycle.Actor) ([]view.OrderCard, error) {
	orders, err := s.store.OrdersByCustomer(ctx, a.Email)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	cards := view.CustomerOrders(s.engine, a, orders)
	s.markPending(ctx, cards)
	return cards, nil
}

// Payments lists the actor's payment history.
func (s *OrderService) Payments(ctx context.Context, a lifecycle.Actor) ([]order.Payment, error) {
	payments, err := s.store.PaymentsByCustomer(ctx, a.Email)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return payments, nil
}
