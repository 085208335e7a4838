package model

import "time"

// CashierAllocation mirrors the `cashier_allocations` table.  An
// allocation is the grant binding one cashier to one event with a ticket
// quota, optionally restricted to a single sector.  At most one
// allocation exists per (cashier, event) pair.  The invariant
// `0 <= quota_used <= quota_quantity` holds at all times: QuotaUsed is
// incremented only under an exclusive row lock inside the issuance
// transaction and decremented (floored at zero) by the cancellation
// transaction.
//
// Fields:
//  ID            – primary key identifier.
//  CashierID     – user the quota is granted to.
//  EventID       – event the quota applies to.
//  SectorID      – restricting sector, or null for all sectors.
//  QuotaQuantity – maximum tickets the cashier may issue.
//  QuotaUsed     – tickets currently counted against the quota.
//  IsActive      – managers deactivate instead of deleting once issuance began.
//  CreatedAt     – creation timestamp.
//  UpdatedAt     – last update timestamp.
type CashierAllocation struct {
    ID            uint64    // cashier_allocations.id
    CashierID     uint64    // cashier_allocations.cashier_id
    EventID       uint64    // cashier_allocations.event_id
    SectorID      *uint64   // cashier_allocations.sector_id (nullable)
    QuotaQuantity uint32    // cashier_allocations.quota_quantity
    QuotaUsed     uint32    // cashier_allocations.quota_used
    IsActive      bool      // cashier_allocations.is_active
    CreatedAt     time.Time // cashier_allocations.created_at
    UpdatedAt     time.Time // cashier_allocations.updated_at
}

// QuotaRemaining returns the number of quota units still available.
func (a *CashierAllocation) QuotaRemaining() uint32 {
    if a.QuotaUsed >= a.QuotaQuantity {
        return 0
    }
    return a.QuotaQuantity - a.QuotaUsed
}

// AuthorizesSector reports whether the allocation permits issuance into
// the given sector.  Unrestricted allocations cover every sector of the
// event.
func (a *CashierAllocation) AuthorizesSector(sectorID uint64) bool {
    return a.SectorID == nil || *a.SectorID == sectorID
}
