package payment

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/homecook/storefront/internal/apperr"
	"github.com/homecook/storefront/internal/order"
)

// Stages of the follow-up writes after a successful capture.
const (
	StageRecordPayment = "record_payment"
	StageMarkPaid      = "mark_paid"
	StageDone          = "done"
)

// Pending is a captured charge whose follow-up writes are not all done yet.
type Pending struct {
	ID         uuid.UUID
	Payment    order.Payment
	Stage      string
	Attempts   int
	LastError  string
	CreatedAt  time.Time
	ResolvedAt *time.Time
}

// Done reports whether every follow-up write has succeeded.
func (p Pending) Done() bool {
	return p.Stage == StageDone
}

// ReconciliationError is returned when a charge succeeded but the order could not
// be marked paid. It matches apperr.ErrReconciliationRequired.
type ReconciliationError struct {
	ID            uuid.UUID
	TransactionID string
	Queued        bool
	Err           error
}

func (e *ReconciliationError) Error() string {
	if !e.Queued {
		return fmt.Sprintf("%v: transaction %s needs manual reconciliation: %v",
			apperr.ErrReconciliationRequired, e.TransactionID, e.Err)
	}
	return fmt.Sprintf("%v: transaction %s queued as %s: %v",
		apperr.ErrReconciliationRequired, e.TransactionID, e.ID, e.Err)
}

func (e *ReconciliationError) Unwrap() []error {
	return []error{apperr.ErrReconciliationRequired, e.Err}
}
