package model

import "time"

// Event status values.  Tickets can only be emitted while an event is
// ON_SALE.  CLOSED events keep their fiscal aggregates for reporting but
// reject further emission; cancellation of already-issued tickets remains
// possible.
const (
    EventStatusDraft  = "DRAFT"
    EventStatusOnSale = "ON_SALE"
    EventStatusClosed = "CLOSED"
)

// TicketedEvent mirrors the `events` table.  The three aggregate columns
// are fiscal counters maintained exclusively by the issuance and
// cancellation transactions: TicketsSold is the high-water mark of
// progressive numbers ever assigned for the event and never decreases,
// not even when tickets are cancelled.
//
// Fields:
//  ID                – primary key identifier.
//  Title             – public name of the event.
//  Venue             – free-text venue description printed on tickets.
//  StartsAt          – when the event begins.
//  Status            – lifecycle state (DRAFT, ON_SALE, CLOSED).
//  TicketsSold       – highest progressive number issued so far.
//  TicketsCancelled  – count of fiscally cancelled tickets.
//  TotalRevenueCents – sum of active ticket prices in minor units; reduced
//                      on cancellation, floored at zero.
//  CreatedAt         – creation timestamp.
//  UpdatedAt         – last update timestamp.
type TicketedEvent struct {
    ID                uint64    // events.id
    Title             string    // events.title
    Venue             string    // events.venue
    StartsAt          time.Time // events.starts_at
    Status            string    // events.status
    TicketsSold       uint32    // events.tickets_sold
    TicketsCancelled  uint32    // events.tickets_cancelled
    TotalRevenueCents uint64    // events.total_revenue_cents
    CreatedAt         time.Time // events.created_at
    UpdatedAt         time.Time // events.updated_at
}
