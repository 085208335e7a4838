// Package repository contains data access logic for ticketed events. An
// event carries the fiscal aggregates (tickets_sold, tickets_cancelled,
// total_revenue_cents); those columns are only ever touched inside the
// issuance/cancellation transaction via the *Tx methods below.
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/botteghino/fiscal-ticketing/internal/model"
)

// ErrEventNotFound indicates that an event was not located in the DB.
var ErrEventNotFound = errors.New("event not found")

// EventRepo manages persistence for ticketed events.
type EventRepo struct {
	db *sql.DB
}

// NewEventRepo constructs an EventRepo with the given DB handle.
func NewEventRepo(db *sql.DB) *EventRepo {
	return &EventRepo{db: db}
}

// DB exposes the underlying sql.DB.  It allows callers to begin
// transactions spanning multiple repositories.
func (r *EventRepo) DB() *sql.DB {
	return r.db
}

const eventCols = `id, title, venue, starts_at, status, tickets_sold, tickets_cancelled, total_revenue_cents, created_at, updated_at`

func scanEvent(row *sql.Row, e *model.TicketedEvent) error {
	return row.Scan(
		&e.ID, &e.Title, &e.Venue, &e.StartsAt, &e.Status,
		&e.TicketsSold, &e.TicketsCancelled, &e.TotalRevenueCents,
		&e.CreatedAt, &e.UpdatedAt,
	)
}

// Create inserts a new event and assigns the generated ID back to the
// struct.  Status defaults to DRAFT and the aggregates to zero via the
// DB column defaults; the freshly inserted row is re-read so the caller
// sees them populated.
func (r *EventRepo) Create(ctx context.Context, e *model.TicketedEvent) error {
	const q = `INSERT INTO events (title, venue, starts_at) VALUES (?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, e.Title, e.Venue, e.StartsAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = uint64(id)
	const sel = `SELECT ` + eventCols + ` FROM events WHERE id = ?`
	return scanEvent(r.db.QueryRowContext(ctx, sel, e.ID), e)
}

// GetByID retrieves an event by its ID.  It returns ErrEventNotFound if
// there is no matching row.
func (r *EventRepo) GetByID(ctx context.Context, id uint64) (*model.TicketedEvent, error) {
	const q = `SELECT ` + eventCols + ` FROM events WHERE id = ?`
	var e model.TicketedEvent
	if err := scanEvent(r.db.QueryRowContext(ctx, q, id), &e); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	return &e, nil
}

// List returns all events ordered by start time ascending.  When no
// events exist it returns an empty slice and nil error.
func (r *EventRepo) List(ctx context.Context) ([]model.TicketedEvent, error) {
	const q = `SELECT ` + eventCols + ` FROM events ORDER BY starts_at ASC`
	return r.queryEvents(ctx, q)
}

// ListOnSale returns only events currently open for emission.  It backs
// the public browse endpoint, so closed and draft events stay hidden.
func (r *EventRepo) ListOnSale(ctx context.Context) ([]model.TicketedEvent, error) {
	const q = `SELECT ` + eventCols + ` FROM events WHERE status = 'ON_SALE' ORDER BY starts_at ASC`
	return r.queryEvents(ctx, q)
}

func (r *EventRepo) queryEvents(ctx context.Context, q string, args ...any) ([]model.TicketedEvent, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []model.TicketedEvent
	for rows.Next() {
		var e model.TicketedEvent
		if err := rows.Scan(
			&e.ID, &e.Title, &e.Venue, &e.StartsAt, &e.Status,
			&e.TicketsSold, &e.TicketsCancelled, &e.TotalRevenueCents,
			&e.CreatedAt, &e.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// SetOnSale transitions a DRAFT event to ON_SALE.  It returns
// ErrConflict when the event exists but is not in DRAFT (already on
// sale or closed) and ErrEventNotFound when the row does not exist.
func (r *EventRepo) SetOnSale(ctx context.Context, id uint64) error {
	const q = `UPDATE events SET status = 'ON_SALE', updated_at = CURRENT_TIMESTAMP WHERE id = ? AND status = 'DRAFT'`
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	return r.explainNoChange(ctx, id)
}

// Close transitions an event to CLOSED, ending emission.  Closing an
// already closed event returns ErrConflict.
func (r *EventRepo) Close(ctx context.Context, id uint64) error {
	const q = `UPDATE events SET status = 'CLOSED', updated_at = CURRENT_TIMESTAMP WHERE id = ? AND status <> 'CLOSED'`
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	return r.explainNoChange(ctx, id)
}

// explainNoChange distinguishes "row missing" from "row already in the
// target/incompatible state" after a guarded UPDATE affected zero rows.
func (r *EventRepo) explainNoChange(ctx context.Context, id uint64) error {
	var one int
	if err := r.db.QueryRowContext(ctx, `SELECT 1 FROM events WHERE id = ? LIMIT 1`, id).Scan(&one); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrEventNotFound
		}
		return err
	}
	return ErrConflict
}

// LockAggregatesTx takes the event row lock inside the caller's
// transaction and returns the current sold counter and status.  The
// next progressive number is ticketsSold+1; the lock is held until the
// transaction ends, so concurrent issuers serialize here.
func (r *EventRepo) LockAggregatesTx(ctx context.Context, tx *sql.Tx, id uint64) (ticketsSold uint32, status string, err error) {
	const q = `SELECT tickets_sold, status FROM events WHERE id = ? FOR UPDATE`
	err = tx.QueryRowContext(ctx, q, id).Scan(&ticketsSold, &status)
	if errors.Is(err, sql.ErrNoRows) {
		err = ErrEventNotFound
	}
	return
}

// ApplyIssueTx records one emission on the event aggregates using the
// caller's transaction: tickets_sold becomes the ticket's progressive
// number and the ticket price is added to total revenue.
func (r *EventRepo) ApplyIssueTx(ctx context.Context, tx *sql.Tx, id uint64, progressive uint32, priceCents uint32) error {
	const q = `UPDATE events
	           SET tickets_sold = ?, total_revenue_cents = total_revenue_cents + ?, updated_at = CURRENT_TIMESTAMP
	           WHERE id = ?`
	_, err := tx.ExecContext(ctx, q, progressive, priceCents, id)
	return err
}

// ApplyCancelTx records one cancellation on the event aggregates using
// the caller's transaction.  tickets_sold is never decremented (the
// progressive sequence is append-only); revenue is reduced by the
// ticket price but clamped at zero.
func (r *EventRepo) ApplyCancelTx(ctx context.Context, tx *sql.Tx, id uint64, priceCents uint32) error {
	const q = `UPDATE events
	           SET tickets_cancelled = tickets_cancelled + 1,
	               total_revenue_cents = IF(total_revenue_cents >= ?, total_revenue_cents - ?, 0),
	               updated_at = CURRENT_TIMESTAMP
	           WHERE id = ?`
	_, err := tx.ExecContext(ctx, q, priceCents, priceCents, id)
	return err
}
