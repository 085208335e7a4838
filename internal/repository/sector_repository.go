package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/botteghino/fiscal-ticketing/internal/model"
)

// ErrSectorNotFound indicates that a sector was not located in the DB.
var ErrSectorNotFound = errors.New("sector not found")

// SectorRepo manages persistence for event sectors.  available_seats is
// the live inventory counter; it only moves through the guarded *Tx
// methods so it can never cross its bounds.
type SectorRepo struct {
	db *sql.DB
}

// NewSectorRepo constructs a SectorRepo with the given DB handle.
func NewSectorRepo(db *sql.DB) *SectorRepo {
	return &SectorRepo{db: db}
}

// DB exposes the underlying sql.DB for transaction control.
func (r *SectorRepo) DB() *sql.DB {
	return r.db
}

const sectorCols = `id, event_id, name, capacity, available_seats, price_cents, created_at, updated_at`

// Create inserts a new sector under an event.  Available seats start
// equal to capacity.  The inserted row is re-read to populate
// timestamps.
func (r *SectorRepo) Create(ctx context.Context, s *model.EventSector) error {
	const q = `INSERT INTO event_sectors (event_id, name, capacity, available_seats, price_cents) VALUES (?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, s.EventID, s.Name, s.Capacity, s.Capacity, s.PriceCents)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	const sel = `SELECT ` + sectorCols + ` FROM event_sectors WHERE id = ?`
	return r.db.QueryRowContext(ctx, sel, s.ID).Scan(
		&s.ID, &s.EventID, &s.Name, &s.Capacity, &s.AvailableSeats, &s.PriceCents,
		&s.CreatedAt, &s.UpdatedAt,
	)
}

// GetByID retrieves a sector by its ID.  It returns ErrSectorNotFound
// if there is no matching row.
func (r *SectorRepo) GetByID(ctx context.Context, id uint64) (*model.EventSector, error) {
	const q = `SELECT ` + sectorCols + ` FROM event_sectors WHERE id = ?`
	var s model.EventSector
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&s.ID, &s.EventID, &s.Name, &s.Capacity, &s.AvailableSeats, &s.PriceCents,
		&s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSectorNotFound
		}
		return nil, err
	}
	return &s, nil
}

// ListByEvent returns all sectors of an event ordered by name.  When
// the event has no sectors it returns an empty slice and nil error.
func (r *SectorRepo) ListByEvent(ctx context.Context, eventID uint64) ([]model.EventSector, error) {
	const q = `SELECT ` + sectorCols + ` FROM event_sectors WHERE event_id = ? ORDER BY name ASC`
	rows, err := r.db.QueryContext(ctx, q, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []model.EventSector
	for rows.Next() {
		var s model.EventSector
		if err := rows.Scan(
			&s.ID, &s.EventID, &s.Name, &s.Capacity, &s.AvailableSeats, &s.PriceCents,
			&s.CreatedAt, &s.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// DecrementSeatsTx takes one seat from the sector inside the caller's
// transaction.  The guard available_seats > 0 makes the decrement a
// no-op when the sector is already empty; the caller must treat zero
// affected rows as sold out.
func (r *SectorRepo) DecrementSeatsTx(ctx context.Context, tx *sql.Tx, id uint64) (int64, error) {
	const q = `UPDATE event_sectors
	           SET available_seats = available_seats - 1, updated_at = CURRENT_TIMESTAMP
	           WHERE id = ? AND available_seats > 0`
	res, err := tx.ExecContext(ctx, q, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// IncrementSeatsTx returns one seat to the sector inside the caller's
// transaction.  The guard available_seats < capacity keeps the counter
// from exceeding capacity even if a cancellation is somehow replayed.
func (r *SectorRepo) IncrementSeatsTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	const q = `UPDATE event_sectors
	           SET available_seats = available_seats + 1, updated_at = CURRENT_TIMESTAMP
	           WHERE id = ? AND available_seats < capacity`
	_, err := tx.ExecContext(ctx, q, id)
	return err
}
