// Package repository contains data access logic for cashier allocations.
// An allocation is the quota ledger row granting a cashier the right to
// emit up to quota_quantity tickets for one event, optionally restricted
// to a single sector.  The pair (cashier_id, event_id) is unique, so a
// cashier holds at most one allocation per event.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/botteghino/fiscal-ticketing/internal/model"
)

// ErrAllocationExists indicates the cashier already holds an allocation
// for the event (unique key violation on grant).
var ErrAllocationExists = errors.New("allocation already exists")

// ErrAllocationNotFound indicates that no matching allocation row exists.
var ErrAllocationNotFound = errors.New("allocation not found")

// ErrQuotaBelowUsed indicates a resize tried to shrink the quota below
// the number of tickets already emitted against it.
var ErrQuotaBelowUsed = errors.New("quota below used")

// ErrQuotaInUse indicates a revoke was attempted while quota_used > 0.
var ErrQuotaInUse = errors.New("quota in use")

// AllocationRepo manages persistence for cashier allocations.
type AllocationRepo struct {
	db *sql.DB
}

// NewAllocationRepo constructs an AllocationRepo with the given DB handle.
func NewAllocationRepo(db *sql.DB) *AllocationRepo {
	return &AllocationRepo{db: db}
}

// DB exposes the underlying sql.DB for transaction control.
func (r *AllocationRepo) DB() *sql.DB {
	return r.db
}

const allocationCols = `id, cashier_id, event_id, sector_id, quota_quantity, quota_used, is_active, created_at, updated_at`

func scanAllocation(scan func(dest ...any) error) (*model.CashierAllocation, error) {
	var (
		a        model.CashierAllocation
		sectorID sql.NullInt64
	)
	err := scan(
		&a.ID, &a.CashierID, &a.EventID, &sectorID,
		&a.QuotaQuantity, &a.QuotaUsed, &a.IsActive,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if sectorID.Valid {
		v := uint64(sectorID.Int64)
		a.SectorID = &v
	}
	return &a, nil
}

// Grant inserts a new allocation row.  It returns ErrAllocationExists
// when the cashier already holds an allocation for the event (the
// unique key on (cashier_id, event_id) trips).  On success the
// generated ID and DB defaults are populated on the given struct.
func (r *AllocationRepo) Grant(ctx context.Context, a *model.CashierAllocation) error {
	var sector any
	if a.SectorID != nil {
		sector = *a.SectorID
	}
	const q = `INSERT INTO cashier_allocations (cashier_id, event_id, sector_id, quota_quantity) VALUES (?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, a.CashierID, a.EventID, sector, a.QuotaQuantity)
	if err != nil {
		// MySQL duplicate key violation carries error number 1062.
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return ErrAllocationExists
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	a.ID = uint64(id)
	const sel = `SELECT ` + allocationCols + ` FROM cashier_allocations WHERE id = ?`
	got, err := scanAllocation(r.db.QueryRowContext(ctx, sel, a.ID).Scan)
	if err != nil {
		return err
	}
	*a = *got
	return nil
}

// GetByID retrieves an allocation by its ID.  It returns
// ErrAllocationNotFound if there is no matching row.
func (r *AllocationRepo) GetByID(ctx context.Context, id uint64) (*model.CashierAllocation, error) {
	const q = `SELECT ` + allocationCols + ` FROM cashier_allocations WHERE id = ?`
	a, err := scanAllocation(r.db.QueryRowContext(ctx, q, id).Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAllocationNotFound
		}
		return nil, err
	}
	return a, nil
}

// FindActive returns the active allocation held by a cashier for an
// event.  At most one row can match because (cashier_id, event_id) is
// unique.  Inactive allocations are invisible to emission, so they are
// filtered out here and ErrAllocationNotFound is returned instead.
func (r *AllocationRepo) FindActive(ctx context.Context, cashierID, eventID uint64) (*model.CashierAllocation, error) {
	const q = `SELECT ` + allocationCols + ` FROM cashier_allocations WHERE cashier_id = ? AND event_id = ? AND is_active = 1`
	a, err := scanAllocation(r.db.QueryRowContext(ctx, q, cashierID, eventID).Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAllocationNotFound
		}
		return nil, err
	}
	return a, nil
}

// Resize changes quota_quantity.  Shrinking below quota_used is
// refused with ErrQuotaBelowUsed; tickets already emitted can never be
// pushed outside their quota retroactively.
func (r *AllocationRepo) Resize(ctx context.Context, id uint64, newQuota uint32) error {
	const q = `UPDATE cashier_allocations
	           SET quota_quantity = ?, updated_at = CURRENT_TIMESTAMP
	           WHERE id = ? AND quota_used <= ?`
	res, err := r.db.ExecContext(ctx, q, newQuota, id, newQuota)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	// Zero rows: either the row is missing or quota_used exceeds the
	// requested quantity.  A same-value resize also affects zero rows
	// on some configurations, so re-check quota_used explicitly.
	var used uint32
	err = r.db.QueryRowContext(ctx, `SELECT quota_used FROM cashier_allocations WHERE id = ?`, id).Scan(&used)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrAllocationNotFound
		}
		return err
	}
	if used > newQuota {
		return ErrQuotaBelowUsed
	}
	return nil
}

// Revoke deletes an allocation that has never been drawn on.  Once a
// single ticket has been emitted against it the row is part of the
// fiscal trail and can only be deactivated, so the delete is guarded by
// quota_used = 0 and ErrQuotaInUse is returned otherwise.
func (r *AllocationRepo) Revoke(ctx context.Context, id uint64) error {
	const q = `DELETE FROM cashier_allocations WHERE id = ? AND quota_used = 0`
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	var one int
	if err := r.db.QueryRowContext(ctx, `SELECT 1 FROM cashier_allocations WHERE id = ? LIMIT 1`, id).Scan(&one); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrAllocationNotFound
		}
		return err
	}
	return ErrQuotaInUse
}

// SetActive toggles the allocation on or off without touching the
// quota counters.  Deactivated allocations keep their history but stop
// authorizing new emissions.
func (r *AllocationRepo) SetActive(ctx context.Context, id uint64, active bool) error {
	const q = `UPDATE cashier_allocations SET is_active = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, active, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var one int
		if err := r.db.QueryRowContext(ctx, `SELECT 1 FROM cashier_allocations WHERE id = ? LIMIT 1`, id).Scan(&one); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrAllocationNotFound
			}
			return err
		}
	}
	return nil
}

// ListByEvent returns all allocations granted for an event, active or
// not, ordered by cashier.
func (r *AllocationRepo) ListByEvent(ctx context.Context, eventID uint64) ([]model.CashierAllocation, error) {
	const q = `SELECT ` + allocationCols + ` FROM cashier_allocations WHERE event_id = ? ORDER BY cashier_id ASC`
	return r.queryAllocations(ctx, q, eventID)
}

// ListByCashier returns all allocations held by a cashier ordered by
// event.
func (r *AllocationRepo) ListByCashier(ctx context.Context, cashierID uint64) ([]model.CashierAllocation, error) {
	const q = `SELECT ` + allocationCols + ` FROM cashier_allocations WHERE cashier_id = ? ORDER BY event_id ASC`
	return r.queryAllocations(ctx, q, cashierID)
}

func (r *AllocationRepo) queryAllocations(ctx context.Context, q string, args ...any) ([]model.CashierAllocation, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []model.CashierAllocation
	for rows.Next() {
		a, err := scanAllocation(rows.Scan)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// LockTx reads the allocation row FOR UPDATE inside the caller's
// transaction.  Every concurrent issuance against the same allocation
// blocks here until the holder commits, which is what makes the quota
// re-check after this call authoritative.
func (r *AllocationRepo) LockTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.CashierAllocation, error) {
	const q = `SELECT ` + allocationCols + ` FROM cashier_allocations WHERE id = ? FOR UPDATE`
	a, err := scanAllocation(tx.QueryRowContext(ctx, q, id).Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAllocationNotFound
		}
		return nil, err
	}
	return a, nil
}

// ConsumeQuotaTx draws one unit of quota inside the caller's
// transaction.  The guard mirrors the locked re-check; zero affected
// rows means the quota is exhausted.
func (r *AllocationRepo) ConsumeQuotaTx(ctx context.Context, tx *sql.Tx, id uint64) (int64, error) {
	const q = `UPDATE cashier_allocations
	           SET quota_used = quota_used + 1, updated_at = CURRENT_TIMESTAMP
	           WHERE id = ? AND quota_used < quota_quantity`
	res, err := tx.ExecContext(ctx, q, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ReleaseQuotaTx returns one unit of quota inside the caller's
// transaction, clamped at zero.  Used when a ticket emitted against
// this allocation is cancelled.
func (r *AllocationRepo) ReleaseQuotaTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	const q = `UPDATE cashier_allocations
	           SET quota_used = quota_used - 1, updated_at = CURRENT_TIMESTAMP
	           WHERE id = ? AND quota_used > 0`
	_, err := tx.ExecContext(ctx, q, id)
	return err
}
