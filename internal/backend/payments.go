package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/homecook/storefront/internal/apperr"
	"github.com/homecook/storefront/internal/enum"
	"github.com/homecook/storefront/internal/order"
	"github.com/shopspring/decimal"
)

type intentRequest struct {
	Price   decimal.Decimal `json:"price"`
	OrderID string          `json:"orderId"`
	Email   string          `json:"email"`
}

// CreatePaymentIntent asks the backend to open a provider intent for amount and
// returns its client secret. The request carries a per-order Idempotency-Key so
// concurrent attempts for one order resolve to the same intent.
func (c *Client) CreatePaymentIntent(ctx context.Context, amount decimal.Decimal, orderID, customerEmail string) (string, error) {
	var res struct {
		ClientSecret string `json:"clientSecret"`
	}
	req := intentRequest{Price: amount, OrderID: orderID, Email: customerEmail}
	h := http.Header{}
	h.Set("Idempotency-Key", IntentKey(orderID))
	if err := c.sendWithHeader(ctx, http.MethodPost, "/create-payment-intent", req, &res, h); err != nil {
		return "", err
	}
	if res.ClientSecret == "" {
		return "", fmt.Errorf("%w: empty client secret", apperr.ErrPaymentProvider)
	}
	return res.ClientSecret, nil
}

// IntentKey is the Idempotency-Key sent when opening an intent for orderID.
func IntentKey(orderID string) string {
	return "intent:" + orderID
}

// RecordPayment appends p to the payment history. idempotencyKey lets the backend
// drop a repeated write for the same capture.
func (c *Client) RecordPayment(ctx context.Context, p order.Payment, idempotencyKey string) error {
	h := http.Header{}
	if idempotencyKey != "" {
		h.Set("Idempotency-Key", idempotencyKey)
	}
	return c.sendWithHeader(ctx, http.MethodPost, "/payments", p, nil, h)
}

// MarkOrderPaid flips the order's paymentStatus to paid.
func (c *Client) MarkOrderPaid(ctx context.Context, orderID string) error {
	body := map[string]string{"paymentStatus": enum.PaymentStatusPaid}
	return c.send(ctx, http.MethodPatch, "/orders/"+url.PathEscape(orderID)+"/pay", body, nil)
}

// PaymentsByCustomer returns the payment history of email.
func (c *Client) PaymentsByCustomer(ctx context.Context, email string) ([]order.Payment, error) {
	var payments []order.Payment
	if err := c.get(ctx, "/payments/user/"+url.PathEscape(email), &payments); err != nil {
		return nil, err
	}
	return payments, nil
}
