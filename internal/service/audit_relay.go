package queue_publisher

import (
    "context"
    "time"

    "github.com/botteghino/fiscal-ticketing/internal/emission"
    q "github.com/botteghino/fiscal-ticketing/internal/queue"
)

// AuditRelay adapts the emission engine's audit hook to the broker. Record
// returns immediately and publishes from a goroutine with a fresh context:
// the engine calls it after the ticket transaction committed, and neither a
// slow broker nor a cancelled request context may delay or drop the
// response to the cashier.
type AuditRelay struct{}

// NewAuditRelay returns a relay publishing to the ticket.audit queue.
func NewAuditRelay() *AuditRelay { return &AuditRelay{} }

// Record converts the entry and publishes it fire-and-forget.
func (*AuditRelay) Record(entry emission.AuditEntry) {
    if entry.Ticket == nil {
        return
    }
    t := entry.Ticket
    ev := q.TicketAuditEvent{
        Action:            entry.Action,
        TicketID:          t.ID,
        PublicCode:        t.PublicCode,
        EventID:           t.EventID,
        SectorID:          t.SectorID,
        ProgressiveNumber: t.ProgressiveNumber,
        TicketType:        t.TicketType,
        PriceCents:        t.PriceCents,
        SealCounter:       t.SealCounter,
        SealCode:          t.SealCode,
        SealSerial:        t.SealSerial,
        ActorID:           entry.ActorID,
        ReasonCode:        entry.ReasonCode,
        Description:       entry.Description,
        OccurredAt:        entry.OccurredAt.Format(time.RFC3339),
    }
    go func() {
        ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
        defer cancel()
        _ = PublishTicketAudit(ctx, ev)
    }()
}
