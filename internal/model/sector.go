package model

import "time"

// EventSector mirrors the `event_sectors` table.  A sector is a named
// block of identical seats inside an event (stalls, gallery, standing).
// Seats are tracked as counters, not individual rows: the invariant
// `capacity - available_seats == count(active tickets in sector)` is
// maintained by the issuance and cancellation transactions.
//
// Fields:
//  ID             – primary key identifier.
//  EventID        – event this sector belongs to.
//  Name           – sector label shown on tickets.
//  Capacity       – total number of seats; fixed after creation.
//  AvailableSeats – seats still sellable; decremented on issuance,
//                   incremented on cancellation.
//  PriceCents     – default ticket price in minor units for this sector.
//  CreatedAt      – creation timestamp.
//  UpdatedAt      – last update timestamp.
type EventSector struct {
    ID             uint64    // event_sectors.id
    EventID        uint64    // event_sectors.event_id
    Name           string    // event_sectors.name
    Capacity       uint32    // event_sectors.capacity
    AvailableSeats uint32    // event_sectors.available_seats
    PriceCents     uint32    // event_sectors.price_cents
    CreatedAt      time.Time // event_sectors.created_at
    UpdatedAt      time.Time // event_sectors.updated_at
}
