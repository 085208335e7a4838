package handler // handler defines http handlers

import (
    "errors"  // errors provides sentinel values used in getUserID
    "net/http"
    "strconv" // strconv converts strings to numeric types
    "time"

    "github.com/labstack/echo/v4" // echo defines request context types

    "github.com/botteghino/fiscal-ticketing/internal/emission"
    "github.com/botteghino/fiscal-ticketing/internal/model"
)

// getUserID extracts the user_id from echo.Context and converts it to uint64.
// JWT numeric claims arrive as float64; tests may store native integers.
func getUserID(c echo.Context) (uint64, error) {
    v := c.Get("user_id")
    switch t := v.(type) {
    case uint64:
        return t, nil
    case int:
        return uint64(t), nil
    case int64:
        return uint64(t), nil
    case float64:
        return uint64(t), nil
    case string:
        if n, err := strconv.ParseUint(t, 10, 64); err == nil {
            return n, nil
        }
    }
    return 0, errors.New("invalid user_id in context")
}

// getRole extracts the role claim stored by the JWT middleware.
func getRole(c echo.Context) string {
    if s, ok := c.Get("role").(string); ok {
        return s
    }
    return ""
}

// parseIDParam reads a numeric path parameter.
func parseIDParam(c echo.Context, name string) (uint64, error) {
    return strconv.ParseUint(c.Param(name), 10, 64)
}

// emissionStatus maps an engine outcome code to its HTTP status. The
// codes are part of the API contract; clients branch on the "error"
// field, the status only mirrors it for generic HTTP tooling.
func emissionStatus(code string) int {
    switch code {
    case emission.CodeAllocationNotFound,
        emission.CodeTicketNotFound,
        emission.CodeEventNotFound,
        emission.CodeSectorNotFound:
        return http.StatusNotFound
    case emission.CodeQuotaExceeded,
        emission.CodeNoSeatsAvailable,
        emission.CodeAlreadyCancelled,
        emission.CodeEventNotOnSale:
        return http.StatusConflict
    case emission.CodeSealError,
        emission.CodeBridgeNotConnected,
        emission.CodeCardNotReady:
        return http.StatusServiceUnavailable
    case emission.CodeUnauthorized:
        return http.StatusForbidden
    case emission.CodeInvalidReasonCode:
        return http.StatusBadRequest
    }
    return http.StatusInternalServerError
}

// emissionJSON writes the error envelope for an engine outcome: the
// stable code under "error", the human-readable detail under "message".
func emissionJSON(c echo.Context, err error) error {
    ec := emission.AsError(err)
    return c.JSON(emissionStatus(ec.Code), echo.Map{"error": ec.Code, "message": ec.Message})
}

// ticketResp is the wire shape of a ticket. The seal block mirrors what
// the fiscal device printed; cancellation fields appear only on
// cancelled tickets.
type ticketResp struct {
    ID                uint64     `json:"id"`
    PublicCode        string     `json:"public_code"`
    EventID           uint64     `json:"event_id"`
    SectorID          uint64     `json:"sector_id"`
    ProgressiveNumber uint32     `json:"progressive_number"`
    TicketType        string     `json:"ticket_type"`
    PriceCents        uint32     `json:"price_cents"`
    Status            string     `json:"status"`
    Participant       *string    `json:"participant,omitempty"`
    PaymentMethod     string     `json:"payment_method"`
    IssuedBy          uint64     `json:"issued_by"`
    SealCounter       uint32     `json:"seal_counter"`
    SealCode          string     `json:"seal_code"`
    SealSerial        string     `json:"seal_serial"`
    SealMAC           string     `json:"seal_mac"`
    SealedAt          time.Time  `json:"sealed_at"`
    CancelReason      *string    `json:"cancel_reason,omitempty"`
    CancelNote        *string    `json:"cancel_note,omitempty"`
    CancelledBy       *uint64    `json:"cancelled_by,omitempty"`
    CancelledAt       *time.Time `json:"cancelled_at,omitempty"`
    IssuedAt          time.Time  `json:"issued_at"`
}

func toTicketResp(t *model.Ticket) ticketResp {
    return ticketResp{
        ID:                t.ID,
        PublicCode:        t.PublicCode,
        EventID:           t.EventID,
        SectorID:          t.SectorID,
        ProgressiveNumber: t.ProgressiveNumber,
        TicketType:        t.TicketType,
        PriceCents:        t.PriceCents,
        Status:            t.Status,
        Participant:       t.Participant,
        PaymentMethod:     t.PaymentMethod,
        IssuedBy:          t.IssuedBy,
        SealCounter:       t.SealCounter,
        SealCode:          t.SealCode,
        SealSerial:        t.SealSerial,
        SealMAC:           t.SealMAC,
        SealedAt:          t.SealedAt,
        CancelReason:      t.CancelReason,
        CancelNote:        t.CancelNote,
        CancelledBy:       t.CancelledBy,
        CancelledAt:       t.CancelledAt,
        IssuedAt:          t.CreatedAt,
    }
}
