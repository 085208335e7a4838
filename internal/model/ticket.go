package model

import "time"

// Ticket status values.  A ticket is created ACTIVE by the issuance
// transaction.  It moves to CANCELLED through the cancellation
// transaction or to USED through check-in; neither transition is ever
// reversed.
const (
    TicketStatusActive    = "ACTIVE"
    TicketStatusCancelled = "CANCELLED"
    TicketStatusUsed      = "USED"
)

// Ticket type values accepted on emission.  REDUCED and COMP exist for
// fiscal reporting; a COMP ticket is sealed at price zero.
const (
    TicketTypeFull    = "FULL"
    TicketTypeReduced = "REDUCED"
    TicketTypeComp    = "COMP"
)

// ValidTicketType reports whether t is one of the accepted ticket types.
func ValidTicketType(t string) bool {
    switch t {
    case TicketTypeFull, TicketTypeReduced, TicketTypeComp:
        return true
    }
    return false
}

// Ticket mirrors the `tickets` table.  A ticket row is created only by
// the issuance transaction and mutated only by the cancellation
// transaction.  ProgressiveNumber is unique and monotonic per event; the
// four Seal* fields plus SealedAt store the fiscal seal returned by the
// card device and are immutable once written.
//
// Fields:
//  ID                – primary key identifier.
//  PublicCode        – opaque UUID printed on the ticket (QR payload).
//  EventID           – event the ticket admits to.
//  SectorID          – sector the ticket is seated in.
//  AllocationID      – cashier allocation the ticket was charged against
//                      (null when issued without a quota grant, e.g. by a manager).
//  ProgressiveNumber – per-event sequential fiscal counter.
//  TicketType        – FULL, REDUCED or COMP.
//  PriceCents        – price in minor currency units.
//  Status            – ACTIVE, CANCELLED or USED.
//  Participant       – optional attendee name for nominative events.
//  PaymentMethod     – free-form payment tag (cash, card, ...).
//  IssuedBy          – user ID of the issuing cashier.
//  SealCounter       – device counter at seal time.
//  SealCode          – seal code derived from the device MAC.
//  SealSerial        – serial number of the fiscal card.
//  SealMAC           – hex MAC bytes returned by the device.
//  SealedAt          – timestamp the device stamped into the seal.
//  CancelReason      – fiscal reason code when cancelled (nullable).
//  CancelNote        – optional free-text cancellation note (nullable).
//  CancelledBy       – user who performed the cancellation (nullable).
//  CancelledAt       – when the cancellation transaction committed (nullable).
//  CreatedAt         – creation timestamp.
//  UpdatedAt         – last update timestamp.
type Ticket struct {
    ID                uint64     // tickets.id
    PublicCode        string     // tickets.public_code
    EventID           uint64     // tickets.event_id
    SectorID          uint64     // tickets.sector_id
    AllocationID      *uint64    // tickets.allocation_id (nullable)
    ProgressiveNumber uint32     // tickets.progressive_number
    TicketType        string     // tickets.ticket_type
    PriceCents        uint32     // tickets.price_cents
    Status            string     // tickets.status
    Participant       *string    // tickets.participant (nullable)
    PaymentMethod     string     // tickets.payment_method
    IssuedBy          uint64     // tickets.issued_by
    SealCounter       uint32     // tickets.seal_counter
    SealCode          string     // tickets.seal_code
    SealSerial        string     // tickets.seal_serial
    SealMAC           string     // tickets.seal_mac
    SealedAt          time.Time  // tickets.sealed_at
    CancelReason      *string    // tickets.cancel_reason (nullable)
    CancelNote        *string    // tickets.cancel_note (nullable)
    CancelledBy       *uint64    // tickets.cancelled_by (nullable)
    CancelledAt       *time.Time // tickets.cancelled_at (nullable)
    CreatedAt         time.Time  // tickets.created_at
    UpdatedAt         time.Time  // tickets.updated_at
}
