// Package view builds the JSON view models the browser renders. Every item
// carries the actions the current user may take, so no screen repeats the
// lifecycle or role rules.
package view

import (
	"errors"

	"github.com/homecook/storefront/internal/apperr"
)

// Action is a button on an item. Disabled actions are still listed so the
// browser can render them greyed out with Reason as a hint.
type Action struct {
	Name    string `json:"name"`
	Label   string `json:"label"`
	Enabled bool   `json:"enabled"`
	Reason  string `json:"reason,omitempty"`
}

var labels = map[string]string{
	"accept":       "Accept",
	"cancel":       "Cancel",
	"deliver":      "Deliver",
	"pay":          "Pay Now",
	"edit":         "Edit",
	"delete":       "Delete",
	"remove":       "Remove",
	"approve":      "Approve",
	"reject":       "Reject",
	"make_admin":   "Make Admin",
	"make_chef":    "Make Chef",
	"delete_user":  "Delete",
	"place_order":  "Confirm Order",
	"add_favorite": "Favorite",
}

func action(name string, err error) Action {
	a := Action{Name: name, Label: labels[name], Enabled: err == nil}
	if err != nil {
		a.Reason = reason(err)
	}
	return a
}

func enabled(name string, ok bool, why string) Action {
	a := Action{Name: name, Label: labels[name], Enabled: ok}
	if !ok {
		a.Reason = why
	}
	return a
}

func reason(err error) string {
	var v *apperr.ValidationError
	switch {
	case errors.As(err, &v):
		return v.Msg
	case errors.Is(err, apperr.ErrInvalidTransition):
		return "Not available in the order's current state"
	case errors.Is(err, apperr.ErrForbidden):
		return "Not permitted for your account"
	}
	return err.Error()
}

// List is a read-only collection. When loading fails it degrades to an empty
// list with a message and a retry hint instead of an error.
type List[T any] struct {
	Items     []T    `json:"items"`
	Empty     bool   `json:"empty"`
	Message   string `json:"message,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

// NewList wraps items, or the failure to load them.
func NewList[T any](items []T, err error, emptyMessage string) List[T] {
	if err != nil {
		return List[T]{
			Items:     []T{},
			Empty:     true,
			Message:   "Could not load this list right now. Try again.",
			Retryable: true,
		}
	}
	if items == nil {
		items = []T{}
	}
	l := List[T]{Items: items, Empty: len(items) == 0}
	if l.Empty {
		l.Message = emptyMessage
	}
	return l
}
