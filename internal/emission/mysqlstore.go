package emission

import (
	"context"
	"database/sql"
	"errors"

	"github.com/botteghino/fiscal-ticketing/internal/model"
	"github.com/botteghino/fiscal-ticketing/internal/repository"
)

// MySQLStore implements Store on MySQL through the repository layer.
// Issuance serializes on the allocation row lock and cancellation on the
// guarded status update, so the engine can run on any number of server
// instances against the same database.
type MySQLStore struct {
	db          *sql.DB
	allocations *repository.AllocationRepo
	events      *repository.EventRepo
	sectors     *repository.SectorRepo
	tickets     *repository.TicketRepo
}

// NewMySQLStore wires a store over the shared DB handle.
func NewMySQLStore(db *sql.DB) *MySQLStore {
	return &MySQLStore{
		db:          db,
		allocations: repository.NewAllocationRepo(db),
		events:      repository.NewEventRepo(db),
		sectors:     repository.NewSectorRepo(db),
		tickets:     repository.NewTicketRepo(db),
	}
}

// FindActiveAllocation returns the cashier's active allocation snapshot
// for the event.
func (s *MySQLStore) FindActiveAllocation(ctx context.Context, cashierID, eventID uint64) (*AllocationState, error) {
	a, err := s.allocations.FindActive(ctx, cashierID, eventID)
	if err != nil {
		if errors.Is(err, repository.ErrAllocationNotFound) {
			return nil, newError(CodeAllocationNotFound, "no active allocation for cashier %d on event %d", cashierID, eventID)
		}
		return nil, internalErr(err)
	}
	return allocationState(a), nil
}

// GetEvent returns the event's fiscal aggregates.
func (s *MySQLStore) GetEvent(ctx context.Context, eventID uint64) (*EventState, error) {
	e, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, repository.ErrEventNotFound) {
			return nil, newError(CodeEventNotFound, "event %d does not exist", eventID)
		}
		return nil, internalErr(err)
	}
	return &EventState{
		ID:                e.ID,
		Title:             e.Title,
		Status:            e.Status,
		TicketsSold:       e.TicketsSold,
		TicketsCancelled:  e.TicketsCancelled,
		TotalRevenueCents: e.TotalRevenueCents,
	}, nil
}

// GetSector returns the sector inventory snapshot.
func (s *MySQLStore) GetSector(ctx context.Context, sectorID uint64) (*SectorState, error) {
	sec, err := s.sectors.GetByID(ctx, sectorID)
	if err != nil {
		if errors.Is(err, repository.ErrSectorNotFound) {
			return nil, newError(CodeSectorNotFound, "sector %d does not exist", sectorID)
		}
		return nil, internalErr(err)
	}
	return &SectorState{
		ID:             sec.ID,
		EventID:        sec.EventID,
		Name:           sec.Name,
		Capacity:       sec.Capacity,
		AvailableSeats: sec.AvailableSeats,
		PriceCents:     sec.PriceCents,
	}, nil
}

// GetTicket returns a ticket by ID.
func (s *MySQLStore) GetTicket(ctx context.Context, ticketID uint64) (*model.Ticket, error) {
	t, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, repository.ErrTicketNotFound) {
			return nil, newError(CodeTicketNotFound, "ticket %d does not exist", ticketID)
		}
		return nil, internalErr(err)
	}
	return t, nil
}

// IssueTicket runs the issuance transaction:
//
//	lock allocation row -> authoritative quota check -> consume quota
//	-> lock event row -> assign progressive number -> insert ticket
//	-> bump event aggregates -> guarded seat decrement -> commit
//
// The allocation lock is taken first and every later lock in a fixed
// order, so concurrent issuers cannot deadlock among themselves.
func (s *MySQLStore) IssueTicket(ctx context.Context, draft *TicketDraft) (*model.Ticket, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, internalErr(err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	alloc, err := s.allocations.LockTx(ctx, tx, draft.AllocationID)
	if err != nil {
		if errors.Is(err, repository.ErrAllocationNotFound) {
			return nil, newError(CodeAllocationNotFound, "allocation %d vanished before issuance", draft.AllocationID)
		}
		return nil, internalErr(err)
	}
	if !alloc.IsActive {
		return nil, newError(CodeAllocationNotFound, "allocation %d was deactivated", alloc.ID)
	}
	// Authoritative quota check under the row lock. A concurrent issuer
	// that committed first already bumped quota_used, so losing the race
	// is observed here.
	if alloc.QuotaUsed >= alloc.QuotaQuantity {
		return nil, newError(CodeQuotaExceeded, "quota exhausted: %d of %d used", alloc.QuotaUsed, alloc.QuotaQuantity)
	}
	n, err := s.allocations.ConsumeQuotaTx(ctx, tx, alloc.ID)
	if err != nil {
		return nil, internalErr(err)
	}
	if n == 0 {
		return nil, newError(CodeQuotaExceeded, "quota exhausted: %d of %d used", alloc.QuotaUsed, alloc.QuotaQuantity)
	}

	ticketsSold, status, err := s.events.LockAggregatesTx(ctx, tx, draft.EventID)
	if err != nil {
		if errors.Is(err, repository.ErrEventNotFound) {
			return nil, newError(CodeEventNotFound, "event %d does not exist", draft.EventID)
		}
		return nil, internalErr(err)
	}
	if status != model.EventStatusOnSale {
		return nil, newError(CodeEventNotOnSale, "event %d left sale before issuance", draft.EventID)
	}
	progressive := ticketsSold + 1

	allocID := draft.AllocationID
	t := &model.Ticket{
		PublicCode:        draft.PublicCode,
		EventID:           draft.EventID,
		SectorID:          draft.SectorID,
		AllocationID:      &allocID,
		ProgressiveNumber: progressive,
		TicketType:        draft.TicketType,
		PriceCents:        draft.PriceCents,
		Participant:       draft.Participant,
		PaymentMethod:     draft.PaymentMethod,
		IssuedBy:          draft.IssuedBy,
		SealCounter:       draft.Seal.Counter,
		SealCode:          draft.Seal.SealCode,
		SealSerial:        draft.Seal.SerialNumber,
		SealMAC:           draft.Seal.MAC,
		SealedAt:          draft.Seal.Timestamp,
	}
	if err := s.tickets.InsertTx(ctx, tx, t); err != nil {
		return nil, internalErr(err)
	}
	if err := s.events.ApplyIssueTx(ctx, tx, draft.EventID, progressive, draft.PriceCents); err != nil {
		return nil, internalErr(err)
	}
	n, err = s.sectors.DecrementSeatsTx(ctx, tx, draft.SectorID)
	if err != nil {
		return nil, internalErr(err)
	}
	if n == 0 {
		// Sold out between the precheck and here; the rollback undoes
		// the quota consumption and the inserted ticket.
		return nil, newError(CodeNoSeatsAvailable, "sector %d is sold out", draft.SectorID)
	}

	if err := tx.Commit(); err != nil {
		return nil, internalErr(err)
	}
	committed = true
	return t, nil
}

// CancelTicket runs the cancellation transaction. The guarded status
// update is the concurrency gate: exactly one of two racing
// cancellations flips the row, the other observes zero affected rows and
// gets ALREADY_CANCELLED. The reversal updates ride in the same
// transaction as the flip.
func (s *MySQLStore) CancelTicket(ctx context.Context, req *CancelRequest) (*model.Ticket, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, internalErr(err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	n, err := s.tickets.CancelTx(ctx, tx, req.TicketID, req.ReasonCode, req.Note, req.CancelledBy)
	if err != nil {
		return nil, internalErr(err)
	}
	if n == 0 {
		// Nothing flipped: the ticket is missing or already cancelled.
		_, err := s.tickets.GetTx(ctx, tx, req.TicketID)
		if err != nil {
			if errors.Is(err, repository.ErrTicketNotFound) {
				return nil, newError(CodeTicketNotFound, "ticket %d does not exist", req.TicketID)
			}
			return nil, internalErr(err)
		}
		return nil, newError(CodeAlreadyCancelled, "ticket %d is already cancelled", req.TicketID)
	}

	t, err := s.tickets.GetTx(ctx, tx, req.TicketID)
	if err != nil {
		return nil, internalErr(err)
	}
	if err := s.sectors.IncrementSeatsTx(ctx, tx, t.SectorID); err != nil {
		return nil, internalErr(err)
	}
	if err := s.events.ApplyCancelTx(ctx, tx, t.EventID, t.PriceCents); err != nil {
		return nil, internalErr(err)
	}
	// Tickets emitted before the allocation ledger existed carry no
	// allocation; only release quota when there is one to release.
	if t.AllocationID != nil {
		if err := s.allocations.ReleaseQuotaTx(ctx, tx, *t.AllocationID); err != nil {
			return nil, internalErr(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, internalErr(err)
	}
	committed = true
	return t, nil
}

func allocationState(a *model.CashierAllocation) *AllocationState {
	st := &AllocationState{
		ID:            a.ID,
		CashierID:     a.CashierID,
		EventID:       a.EventID,
		QuotaQuantity: a.QuotaQuantity,
		QuotaUsed:     a.QuotaUsed,
		IsActive:      a.IsActive,
	}
	if a.SectorID != nil {
		v := *a.SectorID
		st.SectorID = &v
	}
	return st
}
