// Package emission implements the fiscal ticket engine: quota-checked
// ticket issuance, fiscally sealed cancellation, and sequential batch
// emission with partial-success reporting. The engine coordinates the
// seal device and the persistence store but owns no storage itself; the
// database row lock taken by Store.IssueTicket is the sole mechanism
// serializing concurrent issuance against one allocation, which keeps
// the engine safe to run on multiple server instances at once.
package emission

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/botteghino/fiscal-ticketing/internal/fiscal"
	"github.com/botteghino/fiscal-ticketing/internal/model"
)

// MaxBatchSize caps one emission request. Requested quantities are
// clamped to [1, MaxBatchSize], never rejected.
const MaxBatchSize = 50

// IssueCommand is the typed issuance request built by the HTTP boundary.
// PriceCents overrides the sector default when set; COMP tickets are
// always sealed at price zero.
type IssueCommand struct {
	CashierID     uint64
	EventID       uint64
	SectorID      uint64
	TicketType    string
	PriceCents    *uint32
	Quantity      int
	Participant   *string
	PaymentMethod string
}

// CancelCommand is the typed cancellation request. CallerRole decides
// whether cancelling someone else's ticket is allowed.
type CancelCommand struct {
	TicketID   uint64
	ReasonCode string
	Note       *string
	CallerID   uint64
	CallerRole string
}

// BatchResult reports the outcome of a batch emission. Three shapes
// exist: full success (Cause nil), partial success (some tickets plus a
// Cause), and full failure (no tickets, Cause set). Partial batches are
// never rolled back; every emitted ticket is fiscally sealed and valid.
type BatchResult struct {
	RequestedCount int
	EmittedCount   int
	Tickets        []*model.Ticket
	Cause          *Error
}

// FullSuccess reports whether every requested ticket was emitted.
func (r *BatchResult) FullSuccess() bool { return r.Cause == nil }

// PartialSuccess reports whether the batch stopped after at least one
// emitted ticket.
func (r *BatchResult) PartialSuccess() bool { return r.EmittedCount > 0 && r.Cause != nil }

// FullFailure reports whether the batch produced nothing.
func (r *BatchResult) FullFailure() bool { return r.EmittedCount == 0 && r.Cause != nil }

// AuditEntry describes one issuance or cancellation for the audit sink.
type AuditEntry struct {
	Action      string
	Ticket      *model.Ticket
	ActorID     uint64
	ReasonCode  string
	Description string
	OccurredAt  time.Time
}

// AuditSink receives one entry per completed issuance/cancellation,
// fire-and-forget: recording happens after the transaction committed and
// failures must never affect the ticket outcome.
type AuditSink interface {
	Record(entry AuditEntry)
}

// Engine drives the per-ticket protocol. All dependencies are injected
// so tests can substitute a fake device and an in-memory store.
type Engine struct {
	store      Store
	device     fiscal.Device
	audit      AuditSink // may be nil
	sealBypass bool      // admin test bypass: skip the device probes
}

// NewEngine constructs an Engine. store and device must be non-nil;
// audit may be nil to disable the sink.
func NewEngine(store Store, device fiscal.Device, audit AuditSink, sealBypass bool) *Engine {
	if store == nil || device == nil {
		panic("nil dependency passed to NewEngine")
	}
	return &Engine{store: store, device: device, audit: audit, sealBypass: sealBypass}
}

// ClampQuantity normalizes a requested batch size into [1, MaxBatchSize].
func ClampQuantity(n int) int {
	if n < 1 {
		return 1
	}
	if n > MaxBatchSize {
		return MaxBatchSize
	}
	return n
}

// Issue emits exactly one ticket following the per-ticket protocol:
// preconditions, seal request outside any transaction, then the atomic
// store transaction. The returned error is always a *Error.
func (e *Engine) Issue(ctx context.Context, cmd IssueCommand) (*model.Ticket, error) {
	t, errc := e.issueOne(ctx, &cmd)
	if errc != nil {
		return nil, errc
	}
	return t, nil
}

// IssueBatch emits up to cmd.Quantity tickets strictly sequentially: the
// seal device is a single serialized resource and every emission mutates
// shared allocation and sector state. The batch stops at the first
// failure; earlier tickets stay valid.
func (e *Engine) IssueBatch(ctx context.Context, cmd IssueCommand) *BatchResult {
	qty := ClampQuantity(cmd.Quantity)
	res := &BatchResult{RequestedCount: qty}
	for i := 0; i < qty; i++ {
		t, errc := e.issueOne(ctx, &cmd)
		if errc != nil {
			res.Cause = errc
			break
		}
		res.Tickets = append(res.Tickets, t)
		res.EmittedCount++
	}
	return res
}

// issueOne runs the full protocol for a single ticket.
func (e *Engine) issueOne(ctx context.Context, cmd *IssueCommand) (*model.Ticket, *Error) {
	// Preconditions, all before the seal request so an obviously doomed
	// emission never burns a counter on the card.
	if errc := e.checkDevice(ctx); errc != nil {
		return nil, errc
	}

	alloc, err := e.store.FindActiveAllocation(ctx, cmd.CashierID, cmd.EventID)
	if err != nil {
		return nil, AsError(err)
	}
	if alloc.SectorID != nil && *alloc.SectorID != cmd.SectorID {
		return nil, newError(CodeAllocationNotFound,
			"allocation for cashier %d on event %d is restricted to another sector", cmd.CashierID, cmd.EventID)
	}

	ev, err := e.store.GetEvent(ctx, cmd.EventID)
	if err != nil {
		return nil, AsError(err)
	}
	if ev.Status != model.EventStatusOnSale {
		return nil, newError(CodeEventNotOnSale, "event %q is not on sale", ev.Title)
	}

	sec, err := e.store.GetSector(ctx, cmd.SectorID)
	if err != nil {
		return nil, AsError(err)
	}
	if sec.EventID != cmd.EventID {
		return nil, newError(CodeSectorNotFound, "sector %d does not belong to event %d", cmd.SectorID, cmd.EventID)
	}
	if sec.AvailableSeats == 0 {
		return nil, newError(CodeNoSeatsAvailable, "sector %q is sold out", sec.Name)
	}

	// Optimistic quota check. Saves a seal when the quota is plainly
	// exhausted; the binding re-check runs under the row lock inside
	// IssueTicket.
	if alloc.Remaining() == 0 {
		return nil, newError(CodeQuotaExceeded, "quota exhausted: %d of %d used", alloc.QuotaUsed, alloc.QuotaQuantity)
	}

	price := resolvePrice(cmd, sec)

	seal, errc := e.requestSeal(ctx, price)
	if errc != nil {
		return nil, errc
	}

	draft := &TicketDraft{
		PublicCode:    uuid.NewString(),
		EventID:       cmd.EventID,
		SectorID:      cmd.SectorID,
		AllocationID:  alloc.ID,
		TicketType:    cmd.TicketType,
		PriceCents:    price,
		Participant:   cmd.Participant,
		PaymentMethod: cmd.PaymentMethod,
		IssuedBy:      cmd.CashierID,
		Seal:          seal,
	}
	t, err := e.store.IssueTicket(ctx, draft)
	if err != nil {
		ec := AsError(err)
		// The counter on the card is consumed whether or not a ticket was
		// persisted. Log the orphan so the gap in the fiscal sequence can
		// be explained at audit time; it is never reused.
		log.Printf("emission: seal consumed without ticket: counter=%d seal=%s serial=%s event=%d cashier=%d outcome=%s",
			seal.Counter, seal.SealCode, seal.SerialNumber, cmd.EventID, cmd.CashierID, ec.Code)
		return nil, ec
	}

	e.recordAudit(AuditEntry{
		Action:      model.AuditActionTicketIssued,
		Ticket:      t,
		ActorID:     cmd.CashierID,
		Description: fmt.Sprintf("ticket %s progressive=%d event=%d sector=%d price=%d", t.PublicCode, t.ProgressiveNumber, t.EventID, t.SectorID, t.PriceCents),
		OccurredAt:  time.Now().UTC(),
	})
	return t, nil
}

// Cancel fiscally cancels one ticket. The zero-value cancellation seal
// is requested outside the transaction; the conditional status update in
// the store is the concurrency guard, so two racing cancellations yield
// one success and one ALREADY_CANCELLED.
func (e *Engine) Cancel(ctx context.Context, cmd CancelCommand) (*model.Ticket, error) {
	if !model.ValidCancelReason(cmd.ReasonCode) {
		return nil, newError(CodeInvalidReasonCode, "unknown cancellation reason %q", cmd.ReasonCode)
	}

	t, err := e.store.GetTicket(ctx, cmd.TicketID)
	if err != nil {
		return nil, AsError(err)
	}
	if t.Status == model.TicketStatusCancelled {
		return nil, newError(CodeAlreadyCancelled, "ticket %d is already cancelled", t.ID)
	}
	if t.IssuedBy != cmd.CallerID && !model.ManagerTier(cmd.CallerRole) {
		return nil, newError(CodeUnauthorized, "only the issuing cashier or a manager may cancel ticket %d", t.ID)
	}

	if errc := e.checkDevice(ctx); errc != nil {
		return nil, errc
	}

	// Cancellation is itself a fiscal event: it burns a zero-value seal
	// before any database mutation.
	seal, errc := e.requestSeal(ctx, 0)
	if errc != nil {
		return nil, errc
	}

	cancelled, err := e.store.CancelTicket(ctx, &CancelRequest{
		TicketID:    cmd.TicketID,
		ReasonCode:  cmd.ReasonCode,
		Note:        cmd.Note,
		CancelledBy: cmd.CallerID,
		Seal:        seal,
	})
	if err != nil {
		ec := AsError(err)
		log.Printf("emission: cancellation seal consumed without effect: counter=%d ticket=%d outcome=%s",
			seal.Counter, cmd.TicketID, ec.Code)
		return nil, ec
	}

	e.recordAudit(AuditEntry{
		Action:      model.AuditActionTicketCancelled,
		Ticket:      cancelled,
		ActorID:     cmd.CallerID,
		ReasonCode:  cmd.ReasonCode,
		Description: fmt.Sprintf("ticket %s cancelled reason=%s (%s) seal_counter=%d", cancelled.PublicCode, cmd.ReasonCode, model.CancelReasonLabel(cmd.ReasonCode), seal.Counter),
		OccurredAt:  time.Now().UTC(),
	})
	return cancelled, nil
}

// checkDevice enforces the device preconditions unless the admin test
// bypass is active.
func (e *Engine) checkDevice(ctx context.Context) *Error {
	if e.sealBypass {
		return nil
	}
	if !e.device.IsDeviceConnected(ctx) {
		return newError(CodeBridgeNotConnected, "fiscal bridge is not connected")
	}
	ready, reason := e.device.IsCardReady(ctx)
	if !ready {
		return newError(CodeCardNotReady, "fiscal card not ready: %s", reason)
	}
	return nil
}

// requestSeal calls the device and converts its typed failure into an
// engine outcome.
func (e *Engine) requestSeal(ctx context.Context, priceCents uint32) (fiscal.SealRecord, *Error) {
	seal, err := e.device.RequestSeal(ctx, priceCents)
	if err != nil {
		if se := fiscal.AsSealError(err); se != nil {
			return fiscal.SealRecord{}, newError(sealOutcome(se.Code), "%s", se.Message)
		}
		return fiscal.SealRecord{}, internalErr(err)
	}
	return seal, nil
}

func sealOutcome(code string) string {
	switch code {
	case fiscal.CodeBridgeNotConnected:
		return CodeBridgeNotConnected
	case fiscal.CodeCardNotReady:
		return CodeCardNotReady
	}
	return CodeSealError
}

// resolvePrice picks the effective price: COMP is always zero, an
// explicit price wins otherwise, and the sector default fills the rest.
func resolvePrice(cmd *IssueCommand, sec *SectorState) uint32 {
	if cmd.TicketType == model.TicketTypeComp {
		return 0
	}
	if cmd.PriceCents != nil {
		return *cmd.PriceCents
	}
	return sec.PriceCents
}

func (e *Engine) recordAudit(entry AuditEntry) {
	if e.audit == nil {
		return
	}
	e.audit.Record(entry)
}
