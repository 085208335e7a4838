package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/botteghino/fiscal-ticketing/internal/emission"
	"github.com/botteghino/fiscal-ticketing/internal/model"
	"github.com/botteghino/fiscal-ticketing/internal/repository"
)

// CashierTicketHandler exposes the emission engine over HTTP: issue,
// batch issue, cancel, and the cashier's own ticket views.
type CashierTicketHandler struct {
	Engine  *emission.Engine
	Tickets *repository.TicketRepo
}

func NewCashierTicketHandler(e *emission.Engine, t *repository.TicketRepo) *CashierTicketHandler {
	return &CashierTicketHandler{Engine: e, Tickets: t}
}

// ----- DTOs -----

type emitReq struct {
	EventID       uint64  `json:"event_id"`
	SectorID      uint64  `json:"sector_id"`
	TicketType    string  `json:"ticket_type"`           // FULL | REDUCED | COMP, default FULL
	PriceCents    *uint32 `json:"price_cents,omitempty"` // overrides the sector default
	Quantity      int     `json:"quantity"`              // clamped to 1..50
	Participant   *string `json:"participant,omitempty"`
	PaymentMethod string  `json:"payment_method"`
}

type batchErrPart struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type batchResp struct {
	RequestedCount int           `json:"requested_count"`
	EmittedCount   int           `json:"emitted_count"`
	Tickets        []ticketResp  `json:"tickets"`
	Err            *batchErrPart `json:"error,omitempty"`
}

type cancelReq struct {
	ReasonCode string  `json:"reason_code"`
	Note       *string `json:"note,omitempty"`
}

// Emit issues tickets against the cashier's active allocation.
// POST /v1/tickets
//
// quantity <= 1 returns the single ticket; larger quantities return a
// batch envelope. A batch that stops early still returns every ticket
// emitted before the failure: those are sealed and fiscally valid, so
// the client must hand them out (or cancel them), never discard them.
func (h *CashierTicketHandler) Emit(c echo.Context) error {
	var req emitReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.EventID == 0 || req.SectorID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "event_id and sector_id required"})
	}
	req.TicketType = strings.ToUpper(strings.TrimSpace(req.TicketType))
	if req.TicketType == "" {
		req.TicketType = model.TicketTypeFull
	}
	if !model.ValidTicketType(req.TicketType) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "ticket_type must be FULL, REDUCED or COMP"})
	}
	req.PaymentMethod = strings.ToUpper(strings.TrimSpace(req.PaymentMethod))
	if req.PaymentMethod == "" {
		req.PaymentMethod = "CASH"
	}

	cashierID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	cmd := emission.IssueCommand{
		CashierID:     cashierID,
		EventID:       req.EventID,
		SectorID:      req.SectorID,
		TicketType:    req.TicketType,
		PriceCents:    req.PriceCents,
		Quantity:      emission.ClampQuantity(req.Quantity),
		Participant:   req.Participant,
		PaymentMethod: req.PaymentMethod,
	}

	// No per-call timeout here: the seal device is strictly serialized
	// and a 50-ticket batch legitimately takes tens of seconds.
	ctx := c.Request().Context()

	if cmd.Quantity == 1 {
		t, err := h.Engine.Issue(ctx, cmd)
		if err != nil {
			return emissionJSON(c, err)
		}
		return c.JSON(http.StatusCreated, toTicketResp(t))
	}

	res := h.Engine.IssueBatch(ctx, cmd)
	out := batchResp{
		RequestedCount: res.RequestedCount,
		EmittedCount:   res.EmittedCount,
		Tickets:        make([]ticketResp, 0, len(res.Tickets)),
	}
	for _, t := range res.Tickets {
		out.Tickets = append(out.Tickets, toTicketResp(t))
	}
	if res.Cause != nil {
		out.Err = &batchErrPart{Code: res.Cause.Code, Message: res.Cause.Message}
	}
	switch {
	case res.FullSuccess():
		return c.JSON(http.StatusCreated, out)
	case res.PartialSuccess():
		return c.JSON(http.StatusOK, out)
	default:
		return c.JSON(emissionStatus(res.Cause.Code), out)
	}
}

// Cancel voids a ticket with a fiscal reason code. Cashiers may cancel
// only their own tickets; managers and admins may cancel any.
// POST /v1/tickets/:id/cancel
func (h *CashierTicketHandler) Cancel(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid ticket id"})
	}
	var req cancelReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	callerID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	t, err := h.Engine.Cancel(c.Request().Context(), emission.CancelCommand{
		TicketID:   id,
		ReasonCode: strings.ToUpper(strings.TrimSpace(req.ReasonCode)),
		Note:       req.Note,
		CallerID:   callerID,
		CallerRole: getRole(c),
	})
	if err != nil {
		return emissionJSON(c, err)
	}
	return c.JSON(http.StatusOK, toTicketResp(t))
}

// ListMine returns the caller's most recent tickets, newest first.
// GET /v1/tickets/mine?limit=
func (h *CashierTicketHandler) ListMine(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	tickets, err := h.Tickets.ListByIssuer(ctx, uid, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]ticketResp, 0, len(tickets))
	for i := range tickets {
		out = append(out, toTicketResp(&tickets[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{"tickets": out})
}

// GetTicket returns one ticket. Cashiers see only tickets they issued;
// managers and admins see all.
// GET /v1/tickets/:id
func (h *CashierTicketHandler) GetTicket(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid ticket id"})
	}
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	t, err := h.Tickets.GetForViewer(ctx, id, uid, getRole(c))
	if err != nil {
		switch err {
		case repository.ErrTicketNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"error": "ticket not found"})
		case repository.ErrForbidden:
			return c.JSON(http.StatusForbidden, echo.Map{"error": "not your ticket"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, toTicketResp(t))
}

// VerifyByCode looks a ticket up by the public code printed in its QR,
// for gate scanning. Any authenticated staff role may verify.
// GET /v1/tickets/verify/:code
func (h *CashierTicketHandler) VerifyByCode(c echo.Context) error {
	code := strings.TrimSpace(c.Param("code"))
	if code == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "code required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	t, err := h.Tickets.GetByPublicCode(ctx, code)
	if err != nil {
		if err == repository.ErrTicketNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "ticket not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"valid":  t.Status == model.TicketStatusActive,
		"ticket": toTicketResp(t),
	})
}

// CancelReasons lists the accepted fiscal cancellation reason codes so
// terminals can render the picker without hardcoding them.
// GET /v1/tickets/cancel-reasons
func (h *CashierTicketHandler) CancelReasons(c echo.Context) error {
	codes := model.CancelReasonCodes()
	out := make([]echo.Map, 0, len(codes))
	for _, code := range codes {
		out = append(out, echo.Map{"code": code, "label": model.CancelReasonLabel(code)})
	}
	return c.JSON(http.StatusOK, echo.Map{"reasons": out})
}
