package emission

import (
	"context"

	"github.com/botteghino/fiscal-ticketing/internal/fiscal"
	"github.com/botteghino/fiscal-ticketing/internal/model"
)

// AllocationState is the read-side view of a cashier allocation used for
// the optimistic precondition checks. The authoritative quota check
// happens again inside IssueTicket under the row lock.
type AllocationState struct {
	ID            uint64
	CashierID     uint64
	EventID       uint64
	SectorID      *uint64 // nil = allocation covers every sector
	QuotaQuantity uint32
	QuotaUsed     uint32
	IsActive      bool
}

// Remaining returns the quota units left on the snapshot.
func (a *AllocationState) Remaining() uint32 {
	if a.QuotaUsed >= a.QuotaQuantity {
		return 0
	}
	return a.QuotaQuantity - a.QuotaUsed
}

// EventState is the read-side view of an event's fiscal aggregates.
type EventState struct {
	ID                uint64
	Title             string
	Status            string
	TicketsSold       uint32
	TicketsCancelled  uint32
	TotalRevenueCents uint64
}

// SectorState is the read-side view of one sector's inventory.
type SectorState struct {
	ID             uint64
	EventID        uint64
	Name           string
	Capacity       uint32
	AvailableSeats uint32
	PriceCents     uint32
}

// TicketDraft carries everything the issuance transaction needs to
// persist one ticket. The progressive number is NOT part of the draft:
// stores assign it inside the transaction from the event's locked
// tickets_sold counter.
type TicketDraft struct {
	PublicCode    string
	EventID       uint64
	SectorID      uint64
	AllocationID  uint64
	TicketType    string
	PriceCents    uint32
	Participant   *string
	PaymentMethod string
	IssuedBy      uint64
	Seal          fiscal.SealRecord
}

// CancelRequest carries the cancellation transaction inputs. The seal is
// the zero-value cancellation seal already obtained from the device.
type CancelRequest struct {
	TicketID    uint64
	ReasonCode  string
	Note        *string
	CancelledBy uint64
	Seal        fiscal.SealRecord
}

// Store is the persistence capability behind the engine. Implementations
// must provide two atomicity guarantees:
//
//   - IssueTicket applies steps quota-recheck through seat-decrement
//     all-or-nothing, serializing concurrent calls against the same
//     allocation (row lock or equivalent) and assigning the progressive
//     number from the event counter under the same transaction.
//   - CancelTicket flips the ticket status guarded by
//     "status is not CANCELLED" and applies the reversal updates in the
//     same transaction; a tripped guard yields ALREADY_CANCELLED.
//
// Domain outcomes are returned as *Error values; anything else is an
// unexpected fault.
type Store interface {
	// FindActiveAllocation returns the active allocation granted to the
	// cashier for the event, or ALLOCATION_NOT_FOUND.
	FindActiveAllocation(ctx context.Context, cashierID, eventID uint64) (*AllocationState, error)

	// GetEvent returns the event's fiscal aggregates, or EVENT_NOT_FOUND.
	GetEvent(ctx context.Context, eventID uint64) (*EventState, error)

	// GetSector returns the sector inventory, or SECTOR_NOT_FOUND.
	GetSector(ctx context.Context, sectorID uint64) (*SectorState, error)

	// GetTicket returns a ticket by ID, or TICKET_NOT_FOUND.
	GetTicket(ctx context.Context, ticketID uint64) (*model.Ticket, error)

	// IssueTicket runs the issuance transaction and returns the persisted
	// ticket. Possible domain outcomes: QUOTA_EXCEEDED (authoritative
	// re-check lost under the lock), NO_SEATS_AVAILABLE,
	// ALLOCATION_NOT_FOUND (revoked between precheck and lock).
	IssueTicket(ctx context.Context, draft *TicketDraft) (*model.Ticket, error)

	// CancelTicket runs the cancellation transaction and returns the
	// updated ticket. Possible domain outcomes: TICKET_NOT_FOUND,
	// ALREADY_CANCELLED.
	CancelTicket(ctx context.Context, req *CancelRequest) (*model.Ticket, error)
}
