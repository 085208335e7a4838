package model

import "time"

// Audit action names recorded for fiscal traceability.
const (
    AuditActionTicketIssued    = "ticket.issued"
    AuditActionTicketCancelled = "ticket.cancelled"
)

// AuditRecord mirrors the `audit_records` table.  One row is written per
// issuance or cancellation by the background consumer; records are
// produced fire-and-forget and are not part of the atomic ticket
// transactions.
//
// Fields:
//  ID          – primary key identifier.
//  ActorID     – user who performed the action.
//  Action      – one of the AuditAction* constants.
//  Entity      – entity kind the action touched (always "ticket" today).
//  EntityID    – primary key of the touched entity.
//  Description – single-line human-readable summary.
//  CreatedAt   – insertion timestamp.
type AuditRecord struct {
    ID          uint64    // audit_records.id
    ActorID     uint64    // audit_records.actor_id
    Action      string    // audit_records.action
    Entity      string    // audit_records.entity
    EntityID    uint64    // audit_records.entity_id
    Description string    // audit_records.description
    CreatedAt   time.Time // audit_records.created_at
}
