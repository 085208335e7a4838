// Package queue defines message payloads exchanged over the message broker.
package queue

// Audit actions carried by TicketAuditEvent.
const (
    ActionTicketIssued    = "ticket.issued"
    ActionTicketCancelled = "ticket.cancelled"
)

// TicketAuditEvent is published once per completed emission or
// cancellation. It carries the whole fiscal identity of the ticket (seal
// counter, seal code, device serial, progressive number) so downstream
// consumers can persist and log the audit trail without querying the
// primary database.
type TicketAuditEvent struct {
    Action            string `json:"action"`
    TicketID          uint64 `json:"ticket_id"`
    PublicCode        string `json:"public_code"`
    EventID           uint64 `json:"event_id"`
    SectorID          uint64 `json:"sector_id"`
    ProgressiveNumber uint32 `json:"progressive_number"`
    TicketType        string `json:"ticket_type"`
    PriceCents        uint32 `json:"price_cents"`
    SealCounter       uint32 `json:"seal_counter"`
    SealCode          string `json:"seal_code"`
    SealSerial        string `json:"seal_serial"`
    ActorID           uint64 `json:"actor_id"`
    ReasonCode        string `json:"reason_code,omitempty"`
    Description       string `json:"description"`
    OccurredAt        string `json:"occurred_at"`
}
