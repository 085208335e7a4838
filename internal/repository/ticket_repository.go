// Package repository contains data access logic for issued tickets. A
// ticket row is immutable after insert except for the cancellation
// columns; the seal fields are written once at emission and never
// touched again, because they mirror what the fiscal device printed.
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/botteghino/fiscal-ticketing/internal/model"
)

// ErrTicketNotFound indicates that a ticket was not located in the DB.
var ErrTicketNotFound = errors.New("ticket not found")

// TicketRepo manages persistence for tickets.
type TicketRepo struct {
	db *sql.DB
}

// NewTicketRepo constructs a TicketRepo with the given DB handle.
func NewTicketRepo(db *sql.DB) *TicketRepo {
	return &TicketRepo{db: db}
}

// DB exposes the underlying sql.DB for transaction control.
func (r *TicketRepo) DB() *sql.DB {
	return r.db
}

const ticketCols = `id, public_code, event_id, sector_id, allocation_id, progressive_number,
	ticket_type, price_cents, status, participant, payment_method, issued_by,
	seal_counter, seal_code, seal_serial, seal_mac, sealed_at,
	cancel_reason, cancel_note, cancelled_by, cancelled_at, created_at, updated_at`

func scanTicket(scan func(dest ...any) error) (*model.Ticket, error) {
	var (
		t            model.Ticket
		allocationID sql.NullInt64
		participant  sql.NullString
		cancelReason sql.NullString
		cancelNote   sql.NullString
		cancelledBy  sql.NullInt64
		cancelledAt  sql.NullTime
	)
	err := scan(
		&t.ID, &t.PublicCode, &t.EventID, &t.SectorID, &allocationID, &t.ProgressiveNumber,
		&t.TicketType, &t.PriceCents, &t.Status, &participant, &t.PaymentMethod, &t.IssuedBy,
		&t.SealCounter, &t.SealCode, &t.SealSerial, &t.SealMAC, &t.SealedAt,
		&cancelReason, &cancelNote, &cancelledBy, &cancelledAt, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if allocationID.Valid {
		v := uint64(allocationID.Int64)
		t.AllocationID = &v
	}
	if participant.Valid {
		t.Participant = &participant.String
	}
	if cancelReason.Valid {
		t.CancelReason = &cancelReason.String
	}
	if cancelNote.Valid {
		t.CancelNote = &cancelNote.String
	}
	if cancelledBy.Valid {
		v := uint64(cancelledBy.Int64)
		t.CancelledBy = &v
	}
	if cancelledAt.Valid {
		t.CancelledAt = &cancelledAt.Time
	}
	return &t, nil
}

// InsertTx inserts the ticket using the caller's transaction and
// re-reads the full row so DB defaults (status, timestamps) are
// populated on the struct.  The caller must commit or roll back.
func (r *TicketRepo) InsertTx(ctx context.Context, tx *sql.Tx, t *model.Ticket) error {
	const q = `INSERT INTO tickets
	           (public_code, event_id, sector_id, allocation_id, progressive_number,
	            ticket_type, price_cents, participant, payment_method, issued_by,
	            seal_counter, seal_code, seal_serial, seal_mac, sealed_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q,
		t.PublicCode, t.EventID, t.SectorID, t.AllocationID, t.ProgressiveNumber,
		t.TicketType, t.PriceCents, t.Participant, t.PaymentMethod, t.IssuedBy,
		t.SealCounter, t.SealCode, t.SealSerial, t.SealMAC, t.SealedAt,
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	got, err := r.GetTx(ctx, tx, t.ID)
	if err != nil {
		return err
	}
	*t = *got
	return nil
}

// GetTx reads a ticket inside the caller's transaction.
func (r *TicketRepo) GetTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Ticket, error) {
	const q = `SELECT ` + ticketCols + ` FROM tickets WHERE id = ?`
	t, err := scanTicket(tx.QueryRowContext(ctx, q, id).Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTicketNotFound
		}
		return nil, err
	}
	return t, nil
}

// GetByID retrieves a ticket by its ID.  It returns ErrTicketNotFound
// if there is no matching row.
func (r *TicketRepo) GetByID(ctx context.Context, id uint64) (*model.Ticket, error) {
	const q = `SELECT ` + ticketCols + ` FROM tickets WHERE id = ?`
	t, err := scanTicket(r.db.QueryRowContext(ctx, q, id).Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTicketNotFound
		}
		return nil, err
	}
	return t, nil
}

// GetByPublicCode retrieves a ticket by the opaque code printed on it.
// Used at the gate to verify a presented ticket without exposing row IDs.
func (r *TicketRepo) GetByPublicCode(ctx context.Context, code string) (*model.Ticket, error) {
	const q = `SELECT ` + ticketCols + ` FROM tickets WHERE public_code = ?`
	t, err := scanTicket(r.db.QueryRowContext(ctx, q, code).Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTicketNotFound
		}
		return nil, err
	}
	return t, nil
}

// GetForViewer retrieves a ticket on behalf of a user.  Cashiers may
// only see tickets they issued themselves; manager-tier roles see
// everything.  Returns ErrForbidden when the viewer is not entitled.
func (r *TicketRepo) GetForViewer(ctx context.Context, id, viewerID uint64, viewerRole string) (*model.Ticket, error) {
	t, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !model.ManagerTier(viewerRole) && t.IssuedBy != viewerID {
		return nil, ErrForbidden
	}
	return t, nil
}

// ListByIssuer returns the most recent tickets emitted by a cashier,
// newest first.
func (r *TicketRepo) ListByIssuer(ctx context.Context, issuerID uint64, limit int) ([]model.Ticket, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	const q = `SELECT ` + ticketCols + ` FROM tickets WHERE issued_by = ? ORDER BY id DESC LIMIT ?`
	return r.queryTickets(ctx, q, issuerID, limit)
}

// ListByEvent returns an event's tickets in progressive order, which is
// the order the fiscal trail expects them in.
func (r *TicketRepo) ListByEvent(ctx context.Context, eventID uint64, limit int) ([]model.Ticket, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	const q = `SELECT ` + ticketCols + ` FROM tickets WHERE event_id = ? ORDER BY progressive_number ASC LIMIT ?`
	return r.queryTickets(ctx, q, eventID, limit)
}

func (r *TicketRepo) queryTickets(ctx context.Context, q string, args ...any) ([]model.Ticket, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []model.Ticket
	for rows.Next() {
		t, err := scanTicket(rows.Scan)
		if err != nil {
			return nil, err
		}
		result = append(result, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// CountActiveBySector counts non-cancelled tickets in a sector.  The
// sector's capacity minus its available seats must always equal this
// number; managers see both on the sector listing.
func (r *TicketRepo) CountActiveBySector(ctx context.Context, sectorID uint64) (int, error) {
	const q = `SELECT COUNT(*) FROM tickets WHERE sector_id = ? AND status <> 'CANCELLED'`
	var n int
	err := r.db.QueryRowContext(ctx, q, sectorID).Scan(&n)
	return n, err
}

// CancelTx marks a ticket cancelled using the caller's transaction.
// The status guard makes the update a no-op when the ticket is already
// cancelled; it returns the number of affected rows so the caller can
// tell a win from a lost race.  The row lock taken by the UPDATE keeps
// the subsequent reversal reads consistent.
func (r *TicketRepo) CancelTx(ctx context.Context, tx *sql.Tx, id uint64, reason string, note *string, cancelledBy uint64) (int64, error) {
	const q = `UPDATE tickets
	           SET status = 'CANCELLED', cancel_reason = ?, cancel_note = ?, cancelled_by = ?,
	               cancelled_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
	           WHERE id = ? AND status <> 'CANCELLED'`
	res, err := tx.ExecContext(ctx, q, reason, note, cancelledBy, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
