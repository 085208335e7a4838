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

// AuditHandler lets managers read the fiscal audit trail. The records
// are written asynchronously by the queue consumer, so a ticket issued
// a moment ago may not be visible yet.
type AuditHandler struct {
	Audits *repository.AuditRepo
}

func NewAuditHandler(a *repository.AuditRepo) *AuditHandler {
	return &AuditHandler{Audits: a}
}

type auditResp struct {
	ID          uint64    `json:"id"`
	ActorID     uint64    `json:"actor_id"`
	Action      string    `json:"action"`
	Entity      string    `json:"entity"`
	EntityID    uint64    `json:"entity_id"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

func toAuditResp(rec *model.AuditRecord) auditResp {
	return auditResp{
		ID:          rec.ID,
		ActorID:     rec.ActorID,
		Action:      rec.Action,
		Entity:      rec.Entity,
		EntityID:    rec.EntityID,
		Description: rec.Description,
		CreatedAt:   rec.CreatedAt,
	}
}

// ListAudit returns recent audit records, newest first. Filters:
// ?action=ticket.issued|ticket.cancelled, ?actor_id=, ?limit=.
// GET /v1/audit
func (h *AuditHandler) ListAudit(c echo.Context) error {
	action := strings.TrimSpace(c.QueryParam("action"))
	if action != "" && action != model.AuditActionTicketIssued && action != model.AuditActionTicketCancelled {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown action"})
	}
	actorID, _ := strconv.ParseUint(c.QueryParam("actor_id"), 10, 64)
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	recs, err := h.Audits.ListRecent(ctx, action, actorID, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]auditResp, 0, len(recs))
	for i := range recs {
		out = append(out, toAuditResp(&recs[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{"records": out})
}
