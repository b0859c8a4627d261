package lifecycle

import "github.com/homecook/storefront/internal/enum"

type capKey struct {
	role   string
	action string
}

// Capabilities is the (role, action) authorization table consulted by the engine,
// the guard and the presentation adapters.
type Capabilities struct {
	grants map[capKey]bool
}

// DefaultCapabilities is the table observed in production: only chefs move orders,
// only customers pay, admins manage accounts.
func DefaultCapabilities() Capabilities {
	c := Capabilities{grants: make(map[capKey]bool)}
	for _, g := range []struct {
		role    string
		actions []string
	}{
		{enum.RoleUser, []string{
			enum.ActionPlaceOrder, enum.ActionPay, enum.ActionFavorite,
			enum.ActionReview, enum.ActionRequestRole,
		}},
		{enum.RoleChef, []string{
			enum.ActionAccept, enum.ActionCancel, enum.ActionDeliver,
			enum.ActionCreateMeal, enum.ActionUpdateMeal, enum.ActionDeleteMeal,
			enum.ActionFavorite, enum.ActionReview, enum.ActionRequestRole,
		}},
		{enum.RoleAdmin, []string{
			enum.ActionManageUsers, enum.ActionManageRequests, enum.ActionViewStats,
			enum.ActionDeleteMeal,
		}},
	} {
		for _, a := range g.actions {
			c.grants[capKey{g.role, a}] = true
		}
	}
	return c
}

// With returns a copy of c that also grants action to role.
func (c Capabilities) With(role, action string) Capabilities {
	out := Capabilities{grants: make(map[capKey]bool, len(c.grants)+1)}
	for k, v := range c.grants {
		out.grants[k] = v
	}
	out.grants[capKey{role, action}] = true
	return out
}

// Can reports whether role may perform action.
func (c Capabilities) Can(role, action string) bool {
	return c.grants[capKey{role, action}]
}
