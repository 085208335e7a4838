package emission

import (
	"context"
	"sync"
	"time"

	"github.com/botteghino/fiscal-ticketing/internal/model"
)

// MemStore is an in-memory Store. One mutex plays the role the database
// row lock plays in the MySQL store: every mutating call runs atomically
// under it, so the authoritative quota re-check and the conditional
// cancellation guard behave exactly as specified under concurrency.
// Intended for tests and for development machines without MySQL.
type MemStore struct {
	mu sync.Mutex

	events      map[uint64]*EventState
	sectors     map[uint64]*SectorState
	allocations map[uint64]*AllocationState
	tickets     map[uint64]*model.Ticket

	nextEventID  uint64
	nextSectorID uint64
	nextAllocID  uint64
	nextTicketID uint64
}

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{
		events:      make(map[uint64]*EventState),
		sectors:     make(map[uint64]*SectorState),
		allocations: make(map[uint64]*AllocationState),
		tickets:     make(map[uint64]*model.Ticket),
	}
}

// SeedEvent inserts an event and returns its assigned ID.
func (s *MemStore) SeedEvent(ev EventState) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextEventID++
	ev.ID = s.nextEventID
	s.events[ev.ID] = &ev
	return ev.ID
}

// SeedSector inserts a sector and returns its assigned ID.
func (s *MemStore) SeedSector(sec SectorState) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSectorID++
	sec.ID = s.nextSectorID
	s.sectors[sec.ID] = &sec
	return sec.ID
}

// SeedAllocation inserts an allocation and returns its assigned ID.
func (s *MemStore) SeedAllocation(a AllocationState) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextAllocID++
	a.ID = s.nextAllocID
	s.allocations[a.ID] = &a
	return a.ID
}

// SeedTicket inserts a ticket row as given, without touching any
// aggregate counters; the caller is responsible for seeding aggregates
// that are consistent with it.
func (s *MemStore) SeedTicket(t model.Ticket) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextTicketID++
	t.ID = s.nextTicketID
	s.tickets[t.ID] = &t
	return t.ID
}

// ActiveTicketsInSector counts tickets with status ACTIVE in the sector.
func (s *MemStore) ActiveTicketsInSector(sectorID uint64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.tickets {
		if t.SectorID == sectorID && t.Status == model.TicketStatusActive {
			n++
		}
	}
	return n
}

// FindActiveAllocation implements Store.
func (s *MemStore) FindActiveAllocation(_ context.Context, cashierID, eventID uint64) (*AllocationState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.allocations {
		if a.CashierID == cashierID && a.EventID == eventID && a.IsActive {
			cp := *a
			return &cp, nil
		}
	}
	return nil, newError(CodeAllocationNotFound, "no active allocation for cashier %d on event %d", cashierID, eventID)
}

// GetEvent implements Store.
func (s *MemStore) GetEvent(_ context.Context, eventID uint64) (*EventState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev, ok := s.events[eventID]
	if !ok {
		return nil, newError(CodeEventNotFound, "event %d not found", eventID)
	}
	cp := *ev
	return &cp, nil
}

// GetSector implements Store.
func (s *MemStore) GetSector(_ context.Context, sectorID uint64) (*SectorState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sec, ok := s.sectors[sectorID]
	if !ok {
		return nil, newError(CodeSectorNotFound, "sector %d not found", sectorID)
	}
	cp := *sec
	return &cp, nil
}

// GetTicket implements Store.
func (s *MemStore) GetTicket(_ context.Context, ticketID uint64) (*model.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tickets[ticketID]
	if !ok {
		return nil, newError(CodeTicketNotFound, "ticket %d not found", ticketID)
	}
	cp := *t
	return &cp, nil
}

// IssueTicket implements Store. Everything below the lock corresponds to
// the MySQL store's transaction body: authoritative quota re-check,
// quota increment, progressive assignment from the event counter, ticket
// insert, aggregate updates and seat decrement, all-or-nothing.
func (s *MemStore) IssueTicket(_ context.Context, draft *TicketDraft) (*model.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	alloc, ok := s.allocations[draft.AllocationID]
	if !ok || !alloc.IsActive {
		return nil, newError(CodeAllocationNotFound, "allocation %d no longer active", draft.AllocationID)
	}
	if alloc.QuotaUsed >= alloc.QuotaQuantity {
		return nil, newError(CodeQuotaExceeded, "quota exhausted: %d of %d used", alloc.QuotaUsed, alloc.QuotaQuantity)
	}
	ev, ok := s.events[draft.EventID]
	if !ok {
		return nil, newError(CodeEventNotFound, "event %d not found", draft.EventID)
	}
	sec, ok := s.sectors[draft.SectorID]
	if !ok {
		return nil, newError(CodeSectorNotFound, "sector %d not found", draft.SectorID)
	}
	if sec.AvailableSeats == 0 {
		return nil, newError(CodeNoSeatsAvailable, "sector %q is sold out", sec.Name)
	}

	alloc.QuotaUsed++
	progressive := ev.TicketsSold + 1

	now := time.Now().UTC()
	s.nextTicketID++
	allocID := draft.AllocationID
	t := &model.Ticket{
		ID:                s.nextTicketID,
		PublicCode:        draft.PublicCode,
		EventID:           draft.EventID,
		SectorID:          draft.SectorID,
		AllocationID:      &allocID,
		ProgressiveNumber: progressive,
		TicketType:        draft.TicketType,
		PriceCents:        draft.PriceCents,
		Status:            model.TicketStatusActive,
		Participant:       draft.Participant,
		PaymentMethod:     draft.PaymentMethod,
		IssuedBy:          draft.IssuedBy,
		SealCounter:       draft.Seal.Counter,
		SealCode:          draft.Seal.SealCode,
		SealSerial:        draft.Seal.SerialNumber,
		SealMAC:           draft.Seal.MAC,
		SealedAt:          draft.Seal.Timestamp,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	s.tickets[t.ID] = t

	ev.TicketsSold = progressive
	ev.TotalRevenueCents += uint64(draft.PriceCents)
	sec.AvailableSeats--

	cp := *t
	return &cp, nil
}

// CancelTicket implements Store. The status check-and-set under the
// mutex mirrors the conditional UPDATE guard of the MySQL store.
func (s *MemStore) CancelTicket(_ context.Context, req *CancelRequest) (*model.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tickets[req.TicketID]
	if !ok {
		return nil, newError(CodeTicketNotFound, "ticket %d not found", req.TicketID)
	}
	if t.Status == model.TicketStatusCancelled {
		return nil, newError(CodeAlreadyCancelled, "ticket %d is already cancelled", t.ID)
	}

	now := time.Now().UTC()
	reason := req.ReasonCode
	cancelledBy := req.CancelledBy
	t.Status = model.TicketStatusCancelled
	t.CancelReason = &reason
	t.CancelNote = req.Note
	t.CancelledBy = &cancelledBy
	t.CancelledAt = &now
	t.UpdatedAt = now

	if sec, ok := s.sectors[t.SectorID]; ok {
		sec.AvailableSeats++
	}
	if ev, ok := s.events[t.EventID]; ok {
		ev.TicketsCancelled++
		// Floored at zero: pre-existing drift is absorbed, not amplified.
		if ev.TotalRevenueCents >= uint64(t.PriceCents) {
			ev.TotalRevenueCents -= uint64(t.PriceCents)
		} else {
			ev.TotalRevenueCents = 0
		}
	}
	if t.AllocationID != nil {
		if alloc, ok := s.allocations[*t.AllocationID]; ok && alloc.QuotaUsed > 0 {
			alloc.QuotaUsed--
		}
	}

	cp := *t
	return &cp, nil
}
