package handler

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/homecook/storefront/internal/apperr"
	"github.com/homecook/storefront/internal/enum"
	"github.com/homecook/storefront/internal/lifecycle"
	"github.com/homecook/storefront/internal/order"
	"github.com/homecook/storefront/internal/service"
	"github.com/homecook/storefront/internal/view"
)

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	PlaceOrder(ctx context.Context, a lifecycle.Actor, in order.PlaceOrderInput) (*order.Order, error)
	Placement(ctx context.Context, a lifecycle.Actor, mealID string, in order.PlaceOrderInput) (*view.Placement, error)
	Transition(ctx context.Context, a lifecycle.Actor, orderID, action string) (*order.Order, error)
	Order(ctx context.Context, a lifecycle.Actor, orderID string) (*view.OrderCard, error)
	ChefQueue(ctx context.Context, a lifecycle.Actor) ([]view.OrderCard, error)
	CustomerOrders(ctx context.Context, a lifecycle.Actor) ([]view.OrderCard, error)
	Payments(ctx context.Context, a lifecycle.Actor) ([]order.Payment, error)
}

// OrderHandler handles order endpoints.
type OrderHandler struct {
	svc OrderServicer
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(svc OrderServicer) *OrderHandler {
	return &OrderHandler{svc: svc}
}

// RegisterRoutes registers order endpoints on the given Chi router.
// Expected to be mounted at /orders inside an authenticated group.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Post("/preview", h.Preview)
	r.Get("/mine", h.Mine)
	r.Get("/queue", h.Queue)
	r.Get("/{id}", h.Get)
	r.Patch("/{id}/status", h.UpdateStatus)
}

// RegisterPublicRoutes registers the status graph the browser mirrors to
// render order timelines.
func (h *OrderHandler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/lifecycle", h.Lifecycle)
}

// --- Request / Response types ---

type updateStatusRequest struct {
	Action string `json:"action"`
}

type staleOrderResponse struct {
	Error string      `json:"error"`
	Order order.Order `json:"order"`
}

// --- Handlers ---

// Create places an order for the signed-in customer.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	var in order.PlaceOrderInput
	if !decodeJSON(w, r, &in) {
		return
	}

	o, err := h.svc.PlaceOrder(r.Context(), a, in)
	if err != nil {
		writeError(w, r, "place order", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"order":      o,
		"totalPrice": o.TotalPrice(),
	})
}

// Preview returns the order form with its derived total, field errors and
// whether Confirm Order is enabled. Nothing is written.
func (h *OrderHandler) Preview(w http.ResponseWriter, r *http.Request) {
	var in order.PlaceOrderInput
	if !decodeJSON(w, r, &in) {
		return
	}
	p, err := h.svc.Placement(r.Context(), viewer(r), in.MealID, in)
	if err != nil {
		writeError(w, r, "order preview", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Mine lists the customer's own orders. A failed load degrades to an empty list.
func (h *OrderHandler) Mine(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	cards, err := h.svc.CustomerOrders(r.Context(), a)
	writeList(w, r, "list customer orders", cards, err, "You have not placed any orders yet")
}

// Queue lists the orders for the chef's meals.
func (h *OrderHandler) Queue(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	cards, err := h.svc.ChefQueue(r.Context(), a)
	writeList(w, r, "list chef orders", cards, err, "No orders for your meals yet")
}

// Get returns one order with the caller's actions.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	card, err := h.svc.Order(r.Context(), a, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, "get order", err)
		return
	}
	writeJSON(w, http.StatusOK, card)
}

// UpdateStatus applies accept, cancel or deliver. When the order moved on in
// the meantime the answer is 409 with the current order.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	var req updateStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	o, err := h.svc.Transition(r.Context(), a, chi.URLParam(r, "id"), req.Action)
	if err != nil {
		var stale *service.StaleOrderError
		if errors.As(err, &stale) {
			writeJSON(w, http.StatusConflict, staleOrderResponse{
				Error: "this action is no longer available",
				Order: stale.Order,
			})
			return
		}
		writeError(w, r, "update order status", err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// writeList answers with a view.List. A list that could not be loaded because
// the backend is down or has nothing degrades to an empty list.
func writeList[T any](w http.ResponseWriter, r *http.Request, op string, items []T, err error, empty string) {
	switch {
	case err == nil:
	case errors.Is(err, apperr.ErrNotFound):
		items, err = nil, nil
	case apperr.Retryable(err):
		log.Printf("ERROR: %s: %v", op, err)
	default:
		writeError(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, view.NewList(items, err, empty))
}

// Lifecycle returns every status transition and the terminal statuses.
func (h *OrderHandler) Lifecycle(w http.ResponseWriter, r *http.Request) {
	terminal := []string{}
	for _, status := range []string{enum.OrderStatusPending, enum.OrderStatusAccepted, enum.OrderStatusCancelled, enum.OrderStatusDelivered} {
		if len(lifecycle.ValidNext(status)) == 0 {
			terminal = append(terminal, status)
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"transitions": lifecycle.Transitions(),
		"terminal":    terminal,
	})
}
