// Package handler exposes HTTP handlers for both authenticated and public endpoints.
// This file defines handlers for the public browsing API. These routes let
// unauthenticated buyers see what is on sale without exposing fiscal
// aggregates, cashier identities or quota data.

package handler

import (
    "net/http"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/botteghino/fiscal-ticketing/internal/repository"
)

// PublicBrowseHandler aggregates repositories needed for unauthenticated
// browsing. It produces sanitized responses suitable for public
// consumption; these routes sit behind the Redis response cache.
type PublicBrowseHandler struct {
    Events  *repository.EventRepo
    Sectors *repository.SectorRepo
}

func NewPublicBrowseHandler(e *repository.EventRepo, s *repository.SectorRepo) *PublicBrowseHandler {
    return &PublicBrowseHandler{Events: e, Sectors: s}
}

// PublicEvent is an on-sale event as shown to buyers.
type PublicEvent struct {
    ID       uint64    `json:"id"`
    Title    string    `json:"title"`
    Venue    string    `json:"venue"`
    StartsAt time.Time `json:"starts_at"`
}

// PublicSector carries per-sector availability and price.
type PublicSector struct {
    ID             uint64  `json:"id"`
    Name           string  `json:"name"`
    AvailableSeats uint32  `json:"available_seats"`
    PriceCents     uint32  `json:"price_cents"`
    Price          float64 `json:"price"`
}

// PublicEventDetail is the single-event response with its sectors.
type PublicEventDetail struct {
    PublicEvent
    Sectors []PublicSector `json:"sectors"`
}

// ListOnSaleEvents returns events currently on sale.
// GET /v1/public/events
func (h *PublicBrowseHandler) ListOnSaleEvents(c echo.Context) error {
    ctx := c.Request().Context()
    events, err := h.Events.ListOnSale(ctx)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    out := make([]PublicEvent, 0, len(events))
    for _, ev := range events {
        out = append(out, PublicEvent{ID: ev.ID, Title: ev.Title, Venue: ev.Venue, StartsAt: ev.StartsAt})
    }
    return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// GetPublicEvent returns one on-sale event with sector availability.
// Draft and closed events are hidden from the public surface entirely.
// GET /v1/public/events/:id
func (h *PublicBrowseHandler) GetPublicEvent(c echo.Context) error {
    ctx := c.Request().Context()
    id, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    ev, err := h.Events.GetByID(ctx, id)
    if err != nil {
        if err == repository.ErrEventNotFound {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    if ev.Status != "ON_SALE" {
        return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
    }
    sectors, err := h.Sectors.ListByEvent(ctx, id)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    resp := PublicEventDetail{
        PublicEvent: PublicEvent{ID: ev.ID, Title: ev.Title, Venue: ev.Venue, StartsAt: ev.StartsAt},
        Sectors:     make([]PublicSector, 0, len(sectors)),
    }
    for _, s := range sectors {
        resp.Sectors = append(resp.Sectors, PublicSector{
            ID:             s.ID,
            Name:           s.Name,
            AvailableSeats: s.AvailableSeats,
            PriceCents:     s.PriceCents,
            Price:          float64(s.PriceCents) / 100.0,
        })
    }
    return c.JSON(http.StatusOK, resp)
}
