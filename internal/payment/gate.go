// Package payment decides when an order may be paid and reconciles a confirmed
// charge back into the order record.
package payment

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/homecook/storefront/internal/apperr"
	"github.com/homecook/storefront/internal/enum"
	"github.com/homecook/storefront/internal/lifecycle"
	"github.com/homecook/storefront/internal/order"
	"github.com/shopspring/decimal"
)

const followUpAttempts = 3

// Backend is the slice of the REST backend the gate needs.
type Backend interface {
	GetOrder(ctx context.Context, id string) (order.Order, error)
	CreatePaymentIntent(ctx context.Context, amount decimal.Decimal, orderID, customerEmail string) (string, error)
	RecordPayment(ctx context.Context, p order.Payment, idempotencyKey string) error
	MarkOrderPaid(ctx context.Context, orderID string) error
}

// Reconciler stores charges whose follow-up writes could not be completed.
type Reconciler interface {
	Enqueue(ctx context.Context, p Pending) error
	HasUnresolved(ctx context.Context, orderID string) (bool, error)
}

// Notifier tells connected browsers that an order changed.
type Notifier interface {
	NotifyOrder(o order.Order)
}

type nopNotifier struct{}

func (nopNotifier) NotifyOrder(order.Order) {}

// Receipt is returned after a successful payment.
type Receipt struct {
	Payment order.Payment
	Order   order.Order
}

// Eligible is the "Pay Now" predicate.
func Eligible(o order.Order) bool {
	return o.OrderStatus == enum.OrderStatusAccepted && o.PaymentStatus != enum.PaymentStatusPaid
}

// Gate orchestrates intent creation, card capture and the follow-up writes.
type Gate struct {
	backend   Backend
	processor Processor
	recon     Reconciler
	engine    *lifecycle.Engine
	notify    Notifier
	retry     func() backoff.BackOff
	now       func() time.Time

	mu         sync.Mutex
	inflight   map[string]bool
	unrecorded map[string]string // order ID -> transaction ID captured but not queued
}

// Option configures a Gate.
type Option func(*Gate)

// WithRetryPolicy replaces the backoff used for the follow-up writes.
func WithRetryPolicy(f func() backoff.BackOff) Option {
	return func(g *Gate) { g.retry = f }
}

// WithNotifier pushes a refetch hint after a payment lands or is queued.
func WithNotifier(n Notifier) Option {
	return func(g *Gate) {
		if n != nil {
			g.notify = n
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(g *Gate) { g.now = now }
}

// NewGate creates a new Gate.
func NewGate(b Backend, p Processor, r Reconciler, e *lifecycle.Engine, opts ...Option) *Gate {
	g := &Gate{
		backend:   b,
		processor: p,
		recon:     r,
		engine:     e,
		notify:     nopNotifier{},
		retry:      defaultRetry,
		now:        time.Now,
		inflight:   make(map[string]bool),
		unrecorded: make(map[string]string),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func defaultRetry() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	return backoff.WithMaxRetries(b, followUpAttempts-1)
}

// Pay charges the order's total to card and marks the order paid.
//
// The order is re-read from the backend first; eligibility is never taken from
// the caller. An order with a payment already in flight, or with a captured
// charge still awaiting reconciliation, is not charged again. A decline or
// provider error leaves the order untouched and records nothing. If the charge
// succeeds but the follow-up writes keep failing, the charge is queued for
// reconciliation and a *ReconciliationError is returned.
func (g *Gate) Pay(ctx context.Context, a lifecycle.Actor, orderID string, card Card) (*Receipt, error) {
	if !g.claim(orderID) {
		return nil, fmt.Errorf("%w: a payment for order %s is already in progress", apperr.ErrInvalidTransition, orderID)
	}
	defer g.release(orderID)

	o, err := g.backend.GetOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if err := g.engine.CanPay(o, a); err != nil {
		return nil, err
	}
	if err := g.checkNotCaptured(ctx, o.ID); err != nil {
		return nil, err
	}

	amount := o.TotalPrice()
	secret, err := g.backend.CreatePaymentIntent(ctx, amount, o.ID, a.Email)
	if err != nil {
		return nil, fmt.Errorf("create payment intent: %w", err)
	}
	if card.Email == "" {
		card.Email = a.Email
	}
	if card.Name == "" {
		card.Name = a.Name
	}

	res, err := g.processor.Confirm(ctx, secret, card)
	if err != nil {
		return nil, err
	}

	p := &Pending{
		ID: uuid.New(),
		Payment: order.Payment{
			OrderID:       o.ID,
			CustomerEmail: a.Email,
			Amount:        amount,
			TransactionID: res.TransactionID,
			CreatedAt:     g.now().UTC(),
		},
		Stage:     StageRecordPayment,
		CreatedAt: g.now().UTC(),
	}

	if err := g.finish(ctx, p); err != nil {
		rerr := g.handOff(ctx, p, err)
		g.notify.NotifyOrder(o)
		return nil, rerr
	}

	updated, err := g.backend.GetOrder(ctx, o.ID)
	if err != nil {
		// The charge and both writes succeeded; reflect them locally.
		updated = o
		updated.PaymentStatus = enum.PaymentStatusPaid
	}
	g.notify.NotifyOrder(updated)
	return &Receipt{Payment: p.Payment, Order: updated}, nil
}

// PaymentPending reports whether orderID has a captured charge that is not yet
// reflected on the order.
func (g *Gate) PaymentPending(ctx context.Context, orderID string) (bool, error) {
	g.mu.Lock()
	_, lost := g.unrecorded[orderID]
	g.mu.Unlock()
	if lost {
		return true, nil
	}
	return g.recon.HasUnresolved(ctx, orderID)
}

func (g *Gate) checkNotCaptured(ctx context.Context, orderID string) error {
	pending, err := g.PaymentPending(ctx, orderID)
	if err != nil {
		return fmt.Errorf("check reconciliation queue: %w", err)
	}
	if pending {
		return fmt.Errorf("%w: payment for order %s already captured, awaiting reconciliation",
			apperr.ErrInvalidTransition, orderID)
	}
	return nil
}

func (g *Gate) claim(orderID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.inflight[orderID] {
		return false
	}
	g.inflight[orderID] = true
	return true
}

func (g *Gate) release(orderID string) {
	g.mu.Lock()
	delete(g.inflight, orderID)
	g.mu.Unlock()
}

// Resume advances a queued charge one attempt. It is used by the reconciliation poller.
func (g *Gate) Resume(ctx context.Context, p *Pending) error {
	p.Attempts++
	if err := g.advance(ctx, p); err != nil {
		p.LastError = err.Error()
		return err
	}
	p.LastError = ""
	if p.Done() {
		g.notifyPaid(ctx, p.Payment)
	}
	return nil
}

func (g *Gate) notifyPaid(ctx context.Context, pay order.Payment) {
	o, err := g.backend.GetOrder(ctx, pay.OrderID)
	if err != nil {
		log.Printf("ERROR: re-read order %s after reconciliation: %v", pay.OrderID, err)
		o = order.Order{ID: pay.OrderID, CustomerEmail: pay.CustomerEmail, PaymentStatus: enum.PaymentStatusPaid}
	}
	g.notify.NotifyOrder(o)
}

func (g *Gate) finish(ctx context.Context, p *Pending) error {
	op := func() error {
		p.Attempts++
		err := g.advance(ctx, p)
		if err == nil {
			return nil
		}
		p.LastError = err.Error()
		if !transient(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	return backoff.Retry(op, backoff.WithContext(g.retry(), ctx))
}

// advance runs whichever follow-up writes are still outstanding. The payment
// entry is written before the status flip so a retry never records it twice.
func (g *Gate) advance(ctx context.Context, p *Pending) error {
	if p.Stage == StageRecordPayment {
		if err := g.backend.RecordPayment(ctx, p.Payment, p.ID.String()); err != nil && !errors.Is(err, apperr.ErrConflict) {
			return fmt.Errorf("record payment: %w", err)
		}
		p.Stage = StageMarkPaid
	}
	if p.Stage == StageMarkPaid {
		if err := g.backend.MarkOrderPaid(ctx, p.Payment.OrderID); err != nil {
			return fmt.Errorf("mark order paid: %w", err)
		}
		p.Stage = StageDone
	}
	return nil
}

func (g *Gate) handOff(ctx context.Context, p *Pending, cause error) error {
	// Reconciliation must be queued even if the request context is gone.
	qctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	rerr := &ReconciliationError{ID: p.ID, TransactionID: p.Payment.TransactionID, Err: cause}
	if err := g.recon.Enqueue(qctx, *p); err != nil {
		log.Printf("ERROR: payment %s for order %s captured but not queued for reconciliation: %v (cause: %v)",
			p.Payment.TransactionID, p.Payment.OrderID, err, cause)
		rerr.Queued = false
		g.mu.Lock()
		g.unrecorded[p.Payment.OrderID] = p.Payment.TransactionID
		g.mu.Unlock()
		return rerr
	}
	log.Printf("payment %s for order %s queued for reconciliation as %s: %v",
		p.Payment.TransactionID, p.Payment.OrderID, p.ID, cause)
	rerr.Queued = true
	return rerr
}

func transient(err error) bool {
	return errors.Is(err, apperr.ErrNetwork) || errors.Is(err, context.DeadlineExceeded)
}
