// Package lifecycle decides which order status changes are legal and who may make them.
// It mirrors the backend's rules so the UI never offers an action the backend rejects;
// the backend still re-validates every write.
package lifecycle

import (
	"fmt"

	"github.com/homecook/storefront/internal/apperr"
	"github.com/homecook/storefront/internal/enum"
	"github.com/homecook/storefront/internal/order"
)

// Actor is the signed-in user requesting an action. MealIDs are the meals a
// chef publishes; orders for those meals belong to the chef whatever chefId
// the order was stamped with.
type Actor struct {
	UserID  string
	Email   string
	Name    string
	Role    string
	MealIDs []string
}

// Transition is one directed edge of the order status graph.
type Transition struct {
	From   string `json:"from"`
	Action string `json:"action"`
	To     string `json:"to"`
}

// transitions is the complete status graph. cancelled and delivered have no outgoing edges.
var transitions = []Transition{
	{From: enum.OrderStatusPending, Action: enum.ActionAccept, To: enum.OrderStatusAccepted},
	{From: enum.OrderStatusPending, Action: enum.ActionCancel, To: enum.OrderStatusCancelled},
	{From: enum.OrderStatusAccepted, Action: enum.ActionDeliver, To: enum.OrderStatusDelivered},
}

type edgeKey struct {
	from   string
	action string
}

var edges = func() map[edgeKey]string {
	m := make(map[edgeKey]string, len(transitions))
	for _, t := range transitions {
		m[edgeKey{t.From, t.Action}] = t.To
	}
	return m
}()

// StatusActions are the actions that change orderStatus, in display order.
var StatusActions = []string{enum.ActionAccept, enum.ActionCancel, enum.ActionDeliver}

// Engine is a pure decision function over the status graph and a capability table.
type Engine struct {
	caps Capabilities
}

// NewEngine creates an Engine using caps.
func NewEngine(caps Capabilities) *Engine {
	return &Engine{caps: caps}
}

// Capabilities returns the table the engine consults.
func (e *Engine) Capabilities() Capabilities {
	return e.caps
}

// Decide returns the status o moves to when a performs action, or an error:
// a *apperr.ValidationError for unknown actions, apperr.ErrInvalidTransition when
// the current status has no such edge, apperr.ErrForbidden when the role or
// ownership check fails.
func (e *Engine) Decide(o order.Order, a Actor, action string) (string, error) {
	if !isStatusAction(action) {
		return "", apperr.Validation("action", fmt.Sprintf("unknown action %q", action))
	}

	to, ok := edges[edgeKey{o.OrderStatus, action}]
	if !ok {
		return "", fmt.Errorf("%w: cannot %s an order that is %s", apperr.ErrInvalidTransition, action, o.OrderStatus)
	}

	if !e.caps.Can(a.Role, action) {
		return "", fmt.Errorf("%w: %s cannot %s orders", apperr.ErrForbidden, a.Role, action)
	}
	if !Owns(o, a) {
		return "", fmt.Errorf("%w: order %s does not belong to you", apperr.ErrForbidden, o.ID)
	}
	return to, nil
}

// Apply returns a copy of o with the decided status.
func (e *Engine) Apply(o order.Order, a Actor, action string) (order.Order, error) {
	to, err := e.Decide(o, a, action)
	if err != nil {
		return o, err
	}
	o.OrderStatus = to
	return o, nil
}

// CanPay reports whether a may start a payment for o. Once o is paid it stays
// ineligible, so repeated renders or retries never offer a second charge.
func (e *Engine) CanPay(o order.Order, a Actor) error {
	if o.IsPaid() {
		return fmt.Errorf("%w: order %s is already paid", apperr.ErrInvalidTransition, o.ID)
	}
	if o.OrderStatus != enum.OrderStatusAccepted {
		return fmt.Errorf("%w: cannot pay an order that is %s", apperr.ErrInvalidTransition, o.OrderStatus)
	}
	if !e.caps.Can(a.Role, enum.ActionPay) {
		return fmt.Errorf("%w: %s cannot pay orders", apperr.ErrForbidden, a.Role)
	}
	if o.CustomerEmail != a.Email {
		return fmt.Errorf("%w: order %s does not belong to you", apperr.ErrForbidden, o.ID)
	}
	return nil
}

// AvailableActions lists every action a may perform on o right now.
func (e *Engine) AvailableActions(o order.Order, a Actor) []string {
	var out []string
	for _, action := range StatusActions {
		if _, err := e.Decide(o, a, action); err == nil {
			out = append(out, action)
		}
	}
	if e.CanPay(o, a) == nil {
		out = append(out, enum.ActionPay)
	}
	return out
}

// ValidNext returns the statuses reachable from status in one step.
func ValidNext(status string) []string {
	var out []string
	for _, t := range transitions {
		if t.From == status {
			out = append(out, t.To)
		}
	}
	return out
}

// Transitions returns the full status graph.
func Transitions() []Transition {
	out := make([]Transition, len(transitions))
	copy(out, transitions)
	return out
}

func isStatusAction(action string) bool {
	for _, a := range StatusActions {
		if a == action {
			return true
		}
	}
	return false
}

// Owns reports whether o belongs to a: chefs own orders for their meals,
// customers the orders they placed.
func Owns(o order.Order, a Actor) bool {
	switch a.Role {
	case enum.RoleChef:
		if a.UserID != "" && o.ChefID == a.UserID {
			return true
		}
		for _, id := range a.MealIDs {
			if id != "" && id == o.MealID {
				return true
			}
		}
		return false
	case enum.RoleUser:
		return a.Email != "" && o.CustomerEmail == a.Email
	}
	return false
}
