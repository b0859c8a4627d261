package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/homecook/storefront/internal/lifecycle"
	"github.com/homecook/storefront/internal/order"
	"github.com/homecook/storefront/internal/payment"
	"github.com/shopspring/decimal"
)

// Payer defines the payment gate methods needed by payment handlers.
// Satisfied by *payment.Gate.
type Payer interface {
	Pay(ctx context.Context, a lifecycle.Actor, orderID string, card payment.Card) (*payment.Receipt, error)
}

// PaymentHistory lists a customer's payments. Satisfied by *service.OrderService.
type PaymentHistory interface {
	Payments(ctx context.Context, a lifecycle.Actor) ([]order.Payment, error)
}

// PaymentHandler handles payment endpoints.
type PaymentHandler struct {
	gate    Payer
	history PaymentHistory
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(gate Payer, history PaymentHistory) *PaymentHandler {
	return &PaymentHandler{gate: gate, history: history}
}

// RegisterRoutes registers payment endpoints on the given Chi router.
// Expected to be mounted inside an authenticated group.
func (h *PaymentHandler) RegisterRoutes(r chi.Router) {
	r.Post("/orders/{id}/pay", h.Pay)
	r.Get("/payments/mine", h.Mine)
}

// --- Response types ---

type receiptResponse struct {
	Payment    order.Payment   `json:"payment"`
	Order      order.Order     `json:"order"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
}

type reconciliationResponse struct {
	Status           string `json:"status"`
	Message          string `json:"message"`
	TransactionID    string `json:"transactionId"`
	ReconciliationID string `json:"reconciliationId,omitempty"`
	Queued           bool   `json:"queued"`
}

// --- Handlers ---

// Pay charges the order's total to the submitted card.
//
// A charge that went through but could not be recorded answers 202: the
// customer has paid and must not be offered the button again.
func (h *PaymentHandler) Pay(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	var card payment.Card
	if !decodeJSON(w, r, &card) {
		return
	}
	if card.PaymentMethodID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "paymentMethodId is required", "field": "paymentMethodId"})
		return
	}

	receipt, err := h.gate.Pay(r.Context(), a, chi.URLParam(r, "id"), card)
	if err != nil {
		var rec *payment.ReconciliationError
		if errors.As(err, &rec) {
			resp := reconciliationResponse{
				Status:        "reconciliation_required",
				Message:       "Your payment went through. Your order will show as paid shortly.",
				TransactionID: rec.TransactionID,
				Queued:        rec.Queued,
			}
			if rec.Queued {
				resp.ReconciliationID = rec.ID.String()
			}
			writeJSON(w, http.StatusAccepted, resp)
			return
		}
		writeError(w, r, "pay order", err)
		return
	}

	writeJSON(w, http.StatusOK, receiptResponse{
		Payment:    receipt.Payment,
		Order:      receipt.Order,
		TotalPrice: receipt.Order.TotalPrice(),
	})
}

// Mine lists the customer's payment history.
func (h *PaymentHandler) Mine(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	payments, err := h.history.Payments(r.Context(), a)
	writeList(w, r, "list payments", payments, err, "No payments yet")
}
