package reconcile

import (
	"context"
	"log"
	"time"

	"github.com/homecook/storefront/internal/payment"
)

const batchSize = 50

// Queue is the persistence the poller needs.
type Queue interface {
	ListUnresolved(ctx context.Context, limit int) ([]payment.Pending, error)
	Update(ctx context.Context, p payment.Pending) error
}

// Resumer advances a pending charge; *payment.Gate implements it.
type Resumer interface {
	Resume(ctx context.Context, p *payment.Pending) error
}

// Poller retries unresolved charges on a fixed interval.
type Poller struct {
	queue    Queue
	resumer  Resumer
	interval time.Duration
}

// NewPoller creates a new Poller.
func NewPoller(q Queue, r Resumer, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Poller{queue: q, resumer: r, interval: interval}
}

// Run polls until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.RunOnce(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// RunOnce makes one attempt on every unresolved row and returns how many were resolved.
func (p *Poller) RunOnce(ctx context.Context) int {
	pending, err := p.queue.ListUnresolved(ctx, batchSize)
	if err != nil {
		log.Printf("ERROR: list reconciliations: %v", err)
		return 0
	}

	resolved := 0
	for i := range pending {
		item := &pending[i]
		if err := p.resumer.Resume(ctx, item); err != nil {
			log.Printf("reconciliation %s (transaction %s) attempt %d failed: %v",
				item.ID, item.Payment.TransactionID, item.Attempts, err)
		}
		if err := p.queue.Update(ctx, *item); err != nil {
			log.Printf("ERROR: update reconciliation %s: %v", item.ID, err)
			continue
		}
		if item.Done() {
			resolved++
			log.Printf("reconciliation %s resolved: order %s marked paid", item.ID, item.Payment.OrderID)
		}
	}
	return resolved
}
