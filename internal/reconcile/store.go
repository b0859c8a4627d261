// Package reconcile persists captured charges whose follow-up writes failed and
// retries them until the order is marked paid.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/homecook/storefront/internal/apperr"
	"github.com/homecook/storefront/internal/payment"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store is the payment_reconciliations table.
type Store struct {
	db DBTX
}

// NewStore creates a new Store.
func NewStore(db DBTX) *Store {
	return &Store{db: db}
}

const enqueueSQL = `
INSERT INTO payment_reconciliations
    (id, order_id, customer_email, amount, transaction_id, stage, attempts, last_error, created_at)
VALUES ($1, $2, $3, $4::numeric, $5, $6, $7, $8, $9)
ON CONFLICT (transaction_id) DO UPDATE
    SET stage = EXCLUDED.stage,
        attempts = payment_reconciliations.attempts + EXCLUDED.attempts,
        last_error = EXCLUDED.last_error`

// Enqueue stores p. A second enqueue for the same transaction updates the existing row.
func (s *Store) Enqueue(ctx context.Context, p payment.Pending) error {
	_, err := s.db.Exec(ctx, enqueueSQL,
		p.ID, p.Payment.OrderID, p.Payment.CustomerEmail, p.Payment.Amount.String(),
		p.Payment.TransactionID, p.Stage, p.Attempts, p.LastError, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert reconciliation: %w", err)
	}
	return nil
}

// HasUnresolved reports whether orderID has a captured charge still waiting to be recorded.
func (s *Store) HasUnresolved(ctx context.Context, orderID string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM payment_reconciliations
		 WHERE order_id = $1 AND resolved_at IS NULL)`, orderID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check reconciliation for order %s: %w", orderID, err)
	}
	return exists, nil
}

// UnresolvedOrders returns the subset of orderIDs with an unresolved row.
func (s *Store) UnresolvedOrders(ctx context.Context, orderIDs []string) (map[string]bool, error) {
	out := make(map[string]bool)
	if len(orderIDs) == 0 {
		return out, nil
	}
	rows, err := s.db.Query(ctx,
		`SELECT DISTINCT order_id FROM payment_reconciliations
		 WHERE order_id = ANY($1) AND resolved_at IS NULL`, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("list unresolved orders: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan unresolved order: %w", err)
		}
		out[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list unresolved orders: %w", err)
	}
	return out, nil
}

const selectColumns = `id, order_id, customer_email, amount::text, transaction_id, stage, attempts, last_error, created_at, resolved_at`

// ListUnresolved returns up to limit unresolved rows, oldest first.
func (s *Store) ListUnresolved(ctx context.Context, limit int) ([]payment.Pending, error) {
	return s.list(ctx,
		`SELECT `+selectColumns+` FROM payment_reconciliations
		 WHERE resolved_at IS NULL ORDER BY created_at LIMIT $1`, limit)
}

// ListAll returns up to limit rows, newest first.
func (s *Store) ListAll(ctx context.Context, limit int) ([]payment.Pending, error) {
	return s.list(ctx,
		`SELECT `+selectColumns+` FROM payment_reconciliations
		 ORDER BY created_at DESC LIMIT $1`, limit)
}

func (s *Store) list(ctx context.Context, query string, limit int) ([]payment.Pending, error) {
	rows, err := s.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list reconciliations: %w", err)
	}
	defer rows.Close()

	var out []payment.Pending
	for rows.Next() {
		p, err := scanPending(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list reconciliations: %w", err)
	}
	return out, nil
}

// Get returns one row by id.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (payment.Pending, error) {
	row := s.db.QueryRow(ctx, `SELECT `+selectColumns+` FROM payment_reconciliations WHERE id = $1`, id)
	p, err := scanPending(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return payment.Pending{}, fmt.Errorf("reconciliation %s: %w", id, apperr.ErrNotFound)
	}
	return p, err
}

// Update saves the progress of p. A row whose stage is done is marked resolved.
func (s *Store) Update(ctx context.Context, p payment.Pending) error {
	var resolved *time.Time
	if p.Done() {
		now := time.Now().UTC()
		resolved = &now
	}
	tag, err := s.db.Exec(ctx,
		`UPDATE payment_reconciliations
		 SET stage = $2, attempts = $3, last_error = $4, resolved_at = $5
		 WHERE id = $1`,
		p.ID, p.Stage, p.Attempts, p.LastError, resolved,
	)
	if err != nil {
		return fmt.Errorf("update reconciliation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("reconciliation %s: %w", p.ID, apperr.ErrNotFound)
	}
	return nil
}

func scanPending(row pgx.Row) (payment.Pending, error) {
	var (
		p      payment.Pending
		amount string
	)
	err := row.Scan(
		&p.ID, &p.Payment.OrderID, &p.Payment.CustomerEmail, &amount, &p.Payment.TransactionID,
		&p.Stage, &p.Attempts, &p.LastError, &p.CreatedAt, &p.ResolvedAt,
	)
	if err != nil {
		return payment.Pending{}, err
	}
	p.Payment.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return payment.Pending{}, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	p.Payment.CreatedAt = p.CreatedAt
	return p, nil
}
