package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/homecook/storefront/internal/apperr"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"
)

// Card identifies the payment method the customer entered.
type Card struct {
	PaymentMethodID string `json:"paymentMethodId"`
	Email           string `json:"email,omitempty"`
	Name            string `json:"name,omitempty"`
}

// Result is a confirmed capture.
type Result struct {
	TransactionID string
}

// Processor confirms a payment intent against a card. A decline is returned as
// apperr.ErrPaymentDeclined, any other failure as apperr.ErrPaymentProvider.
type Processor interface {
	Confirm(ctx context.Context, clientSecret string, card Card) (Result, error)
}

// StripeProcessor confirms intents with the Stripe API.
type StripeProcessor struct {
	api *client.API
}

// NewStripeProcessor creates a StripeProcessor using the secret key.
func NewStripeProcessor(secretKey string) *StripeProcessor {
	sc := &client.API{}
	sc.Init(secretKey, nil)
	return &StripeProcessor{api: sc}
}

func (p *StripeProcessor) Confirm(ctx context.Context, clientSecret string, card Card) (Result, error) {
	if card.PaymentMethodID == "" {
		return Result{}, apperr.Validation("paymentMethodId", "card details are required")
	}
	intentID, ok := IntentID(clientSecret)
	if !ok {
		return Result{}, fmt.Errorf("%w: malformed client secret", apperr.ErrPaymentProvider)
	}

	params := &stripe.PaymentIntentConfirmParams{
		PaymentMethod: stripe.String(card.PaymentMethodID),
	}
	if card.Email != "" {
		params.ReceiptEmail = stripe.String(card.Email)
	}
	params.Context = ctx

	pi, err := p.api.PaymentIntents.Confirm(intentID, params)
	if err != nil {
		var se *stripe.Error
		if errors.As(err, &se) && se.Type == stripe.ErrorTypeCard {
			return Result{}, fmt.Errorf("%w: %s", apperr.ErrPaymentDeclined, se.Msg)
		}
		return Result{}, fmt.Errorf("%w: %v", apperr.ErrPaymentProvider, err)
	}
	if pi.Status != stripe.PaymentIntentStatusSucceeded {
		return Result{}, fmt.Errorf("%w: payment %s", apperr.ErrPaymentDeclined, pi.Status)
	}
	return Result{TransactionID: pi.ID}, nil
}

// IntentID extracts the payment intent id from a client secret of the form
// "pi_123_secret_abc".
func IntentID(clientSecret string) (string, bool) {
	id, _, ok := strings.Cut(clientSecret, "_secret_")
	if !ok || id == "" {
		return "", false
	}
	return id, true
}
