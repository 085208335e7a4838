package handler

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/botteghino/fiscal-ticketing/internal/model"
	"github.com/botteghino/fiscal-ticketing/internal/repository"
)

// ManagerAllocationHandler administers the quota ledger: managers grant
// each cashier a bounded slice of an event's tickets, resize it while
// the sale runs, and revoke unused grants.
type ManagerAllocationHandler struct {
	Allocations *repository.AllocationRepo
	Users       *repository.UserRepo
	Events      *repository.EventRepo
	Sectors     *repository.SectorRepo
}

func NewManagerAllocationHandler(a *repository.AllocationRepo, u *repository.UserRepo, e *repository.EventRepo, s *repository.SectorRepo) *ManagerAllocationHandler {
	return &ManagerAllocationHandler{Allocations: a, Users: u, Events: e, Sectors: s}
}

// ----- DTOs -----

type grantReq struct {
	CashierID     uint64  `json:"cashier_id"`
	EventID       uint64  `json:"event_id"`
	SectorID      *uint64 `json:"sector_id,omitempty"` // nil = any sector
	QuotaQuantity uint32  `json:"quota_quantity"`
}

type allocationResp struct {
	ID             uint64  `json:"id"`
	CashierID      uint64  `json:"cashier_id"`
	EventID        uint64  `json:"event_id"`
	SectorID       *uint64 `json:"sector_id,omitempty"`
	QuotaQuantity  uint32  `json:"quota_quantity"`
	QuotaUsed      uint32  `json:"quota_used"`
	QuotaRemaining uint32  `json:"quota_remaining"`
	IsActive       bool    `json:"is_active"`
}

func toAllocationResp(a *model.CashierAllocation) allocationResp {
	return allocationResp{
		ID:             a.ID,
		CashierID:      a.CashierID,
		EventID:        a.EventID,
		SectorID:       a.SectorID,
		QuotaQuantity:  a.QuotaQuantity,
		QuotaUsed:      a.QuotaUsed,
		QuotaRemaining: a.QuotaRemaining(),
		IsActive:       a.IsActive,
	}
}

// Grant creates an allocation for a cashier on an event. One allocation
// per (cashier, event) pair; granting twice is a conflict, use resize.
// POST /v1/allocations
func (h *ManagerAllocationHandler) Grant(c echo.Context) error {
	var req grantReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.CashierID == 0 || req.EventID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "cashier_id and event_id required"})
	}
	if req.QuotaQuantity < 1 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "quota_quantity must be at least 1"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByID(ctx, req.CashierID)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "cashier not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if u.Role != model.RoleCashier {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user is not a cashier"})
	}
	if !u.IsActive {
		return c.JSON(http.StatusConflict, echo.Map{"error": "cashier account is disabled"})
	}

	ev, err := h.Events.GetByID(ctx, req.EventID)
	if err != nil {
		if err == repository.ErrEventNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if ev.Status == model.EventStatusClosed {
		return c.JSON(http.StatusConflict, echo.Map{"error": "event is closed"})
	}

	// a sector restriction must point into this event
	if req.SectorID != nil {
		sec, err := h.Sectors.GetByID(ctx, *req.SectorID)
		if err != nil {
			if err == repository.ErrSectorNotFound {
				return c.JSON(http.StatusNotFound, echo.Map{"error": "sector not found"})
			}
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
		}
		if sec.EventID != req.EventID {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "sector does not belong to event"})
		}
	}

	alloc := &model.CashierAllocation{
		CashierID:     req.CashierID,
		EventID:       req.EventID,
		SectorID:      req.SectorID,
		QuotaQuantity: req.QuotaQuantity,
	}
	if err := h.Allocations.Grant(ctx, alloc); err != nil {
		if err == repository.ErrAllocationExists {
			return c.JSON(http.StatusConflict, echo.Map{"error": "allocation already exists for this cashier and event"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "grant failed"})
	}
	return c.JSON(http.StatusCreated, toAllocationResp(alloc))
}

type resizeReq struct {
	QuotaQuantity uint32 `json:"quota_quantity"`
}

// Resize changes the quota of an existing allocation. Shrinking below
// the number of tickets already emitted is refused.
// PATCH /v1/allocations/:id
func (h *ManagerAllocationHandler) Resize(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid allocation id"})
	}
	var req resizeReq
	if err := c.Bind(&req); err != nil || req.QuotaQuantity < 1 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "quota_quantity must be at least 1"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Allocations.Resize(ctx, id, req.QuotaQuantity); err != nil {
		switch err {
		case repository.ErrAllocationNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"error": "allocation not found"})
		case repository.ErrQuotaBelowUsed:
			return c.JSON(http.StatusConflict, echo.Map{"error": "quota below tickets already emitted"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "resize failed"})
	}
	alloc, err := h.Allocations.GetByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, toAllocationResp(alloc))
}

// Revoke deletes an unused allocation. Once a single ticket has been
// emitted against it the grant is part of the fiscal record and can
// only be deactivated. DELETE /v1/allocations/:id
func (h *ManagerAllocationHandler) Revoke(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid allocation id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Allocations.Revoke(ctx, id); err != nil {
		switch err {
		case repository.ErrAllocationNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"error": "allocation not found"})
		case repository.ErrQuotaInUse:
			return c.JSON(http.StatusConflict, echo.Map{"error": "allocation has emitted tickets, deactivate instead"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "revoke failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// SetAllocationActive suspends or resumes a grant without touching its
// quota accounting. PATCH /v1/allocations/:id/active
func (h *ManagerAllocationHandler) SetAllocationActive(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid allocation id"})
	}
	var req setActiveReq
	if err := c.Bind(&req); err != nil || req.Active == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "active flag required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Allocations.SetActive(ctx, id, *req.Active); err != nil {
		if err == repository.ErrAllocationNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "allocation not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	alloc, err := h.Allocations.GetByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, toAllocationResp(alloc))
}

// ListByEvent returns every allocation of an event so a manager can see
// how the quota is spread across the box office.
// GET /v1/events/:id/allocations
func (h *ManagerAllocationHandler) ListByEvent(c echo.Context) error {
	eventID, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	allocs, err := h.Allocations.ListByEvent(ctx, eventID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]allocationResp, 0, len(allocs))
	for i := range allocs {
		out = append(out, toAllocationResp(&allocs[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{"allocations": out})
}

// MyAllocations returns the calling cashier's own grants so the
// terminal can show remaining quota per event.
// GET /v1/allocations/mine
func (h *ManagerAllocationHandler) MyAllocations(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	allocs, err := h.Allocations.ListByCashier(ctx, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]allocationResp, 0, len(allocs))
	for i := range allocs {
		out = append(out, toAllocationResp(&allocs[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{"allocations": out})
}
