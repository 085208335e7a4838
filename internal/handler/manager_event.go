package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/botteghino/fiscal-ticketing/internal/model"
	"github.com/botteghino/fiscal-ticketing/internal/repository"
)

// ManagerEventHandler covers event and sector administration: create,
// lifecycle transitions, and the fiscal aggregate views managers read
// during and after the sale.
type ManagerEventHandler struct {
	Events  *repository.EventRepo
	Sectors *repository.SectorRepo
	Tickets *repository.TicketRepo
}

func NewManagerEventHandler(e *repository.EventRepo, s *repository.SectorRepo, t *repository.TicketRepo) *ManagerEventHandler {
	return &ManagerEventHandler{Events: e, Sectors: s, Tickets: t}
}

// ----- DTOs -----

type createEventReq struct {
	Title    string `json:"title"`
	Venue    string `json:"venue"`
	StartsAt string `json:"starts_at"` // RFC3339
}

type eventResp struct {
	ID                uint64    `json:"id"`
	Title             string    `json:"title"`
	Venue             string    `json:"venue"`
	StartsAt          time.Time `json:"starts_at"`
	Status            string    `json:"status"`
	TicketsSold       uint32    `json:"tickets_sold"`
	TicketsCancelled  uint32    `json:"tickets_cancelled"`
	TotalRevenueCents uint64    `json:"total_revenue_cents"`
}

func toEventResp(e *model.TicketedEvent) eventResp {
	return eventResp{
		ID:                e.ID,
		Title:             e.Title,
		Venue:             e.Venue,
		StartsAt:          e.StartsAt,
		Status:            e.Status,
		TicketsSold:       e.TicketsSold,
		TicketsCancelled:  e.TicketsCancelled,
		TotalRevenueCents: e.TotalRevenueCents,
	}
}

type createSectorReq struct {
	Name       string `json:"name"`
	Capacity   uint32 `json:"capacity"`
	PriceCents uint32 `json:"price_cents"`
}

type sectorResp struct {
	ID             uint64 `json:"id"`
	EventID        uint64 `json:"event_id"`
	Name           string `json:"name"`
	Capacity       uint32 `json:"capacity"`
	AvailableSeats uint32 `json:"available_seats"`
	PriceCents     uint32 `json:"price_cents"`
	ActiveTickets  int    `json:"active_tickets,omitempty"`
}

func toSectorResp(s *model.EventSector) sectorResp {
	return sectorResp{
		ID:             s.ID,
		EventID:        s.EventID,
		Name:           s.Name,
		Capacity:       s.Capacity,
		AvailableSeats: s.AvailableSeats,
		PriceCents:     s.PriceCents,
	}
}

// CreateEvent creates an event in DRAFT. POST /v1/events
func (h *ManagerEventHandler) CreateEvent(c echo.Context) error {
	var req createEventReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Title = strings.TrimSpace(req.Title)
	req.Venue = strings.TrimSpace(req.Venue)
	if req.Title == "" || req.Venue == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title and venue required"})
	}
	startsAt, err := time.Parse(time.RFC3339, strings.TrimSpace(req.StartsAt))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "starts_at must be RFC3339"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	ev := &model.TicketedEvent{Title: req.Title, Venue: req.Venue, StartsAt: startsAt.UTC()}
	if err := h.Events.Create(ctx, ev); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create event failed"})
	}
	return c.JSON(http.StatusCreated, toEventResp(ev))
}

// ListEvents returns all events with their aggregates. GET /v1/events
func (h *ManagerEventHandler) ListEvents(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	events, err := h.Events.List(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]eventResp, 0, len(events))
	for i := range events {
		out = append(out, toEventResp(&events[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{"events": out})
}

// GetEvent returns one event with its sectors and per-sector active
// ticket counts. GET /v1/events/:id
func (h *ManagerEventHandler) GetEvent(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	ev, err := h.Events.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrEventNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	sectors, err := h.Sectors.ListByEvent(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	secOut := make([]sectorResp, 0, len(sectors))
	for i := range sectors {
		sr := toSectorResp(&sectors[i])
		if n, err := h.Tickets.CountActiveBySector(ctx, sectors[i].ID); err == nil {
			sr.ActiveTickets = n
		}
		secOut = append(secOut, sr)
	}
	return c.JSON(http.StatusOK, echo.Map{"event": toEventResp(ev), "sectors": secOut})
}

// OpenSale moves a DRAFT event to ON_SALE. POST /v1/events/:id/open
func (h *ManagerEventHandler) OpenSale(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	// an event with no sectors can never emit, refuse to open it
	sectors, err := h.Sectors.ListByEvent(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if len(sectors) == 0 {
		return c.JSON(http.StatusConflict, echo.Map{"error": "event has no sectors"})
	}

	if err := h.Events.SetOnSale(ctx, id); err != nil {
		switch err {
		case repository.ErrEventNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		case repository.ErrConflict:
			return c.JSON(http.StatusConflict, echo.Map{"error": "event is not in DRAFT"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"id": id, "status": model.EventStatusOnSale})
}

// CloseEvent ends the sale. Closed events keep their aggregates and
// still accept cancellations. POST /v1/events/:id/close
func (h *ManagerEventHandler) CloseEvent(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Events.Close(ctx, id); err != nil {
		switch err {
		case repository.ErrEventNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		case repository.ErrConflict:
			return c.JSON(http.StatusConflict, echo.Map{"error": "event already closed"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"id": id, "status": model.EventStatusClosed})
}

// CreateSector adds a sector to an event. Sectors are created with all
// seats available; capacity is fixed after creation because tickets
// reference it. POST /v1/events/:id/sectors
func (h *ManagerEventHandler) CreateSector(c echo.Context) error {
	eventID, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	var req createSectorReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name required"})
	}
	if req.Capacity < 1 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "capacity must be at least 1"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	ev, err := h.Events.GetByID(ctx, eventID)
	if err != nil {
		if err == repository.ErrEventNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if ev.Status == model.EventStatusClosed {
		return c.JSON(http.StatusConflict, echo.Map{"error": "event is closed"})
	}

	sec := &model.EventSector{
		EventID:    eventID,
		Name:       req.Name,
		Capacity:   req.Capacity,
		PriceCents: req.PriceCents,
	}
	if err := h.Sectors.Create(ctx, sec); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create sector failed"})
	}
	return c.JSON(http.StatusCreated, toSectorResp(sec))
}

// ListSectors returns the sectors of an event. GET /v1/events/:id/sectors
func (h *ManagerEventHandler) ListSectors(c echo.Context) error {
	eventID, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	sectors, err := h.Sectors.ListByEvent(ctx, eventID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]sectorResp, 0, len(sectors))
	for i := range sectors {
		out = append(out, toSectorResp(&sectors[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{"sectors": out})
}

// ListEventTickets returns the issued tickets of an event in fiscal
// order, for reconciliation against the printed register.
// GET /v1/events/:id/tickets
func (h *ManagerEventHandler) ListEventTickets(c echo.Context) error {
	eventID, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	tickets, err := h.Tickets.ListByEvent(ctx, eventID, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]ticketResp, 0, len(tickets))
	for i := range tickets {
		out = append(out, toTicketResp(&tickets[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{"tickets": out})
}
