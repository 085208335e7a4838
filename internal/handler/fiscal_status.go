package handler

import (
    "context"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/botteghino/fiscal-ticketing/internal/fiscal"
)

// FiscalStatusHandler reports the seal device state so operators can
// tell a dead bridge from a pulled card before opening the register.
type FiscalStatusHandler struct {
    Device fiscal.Device
    Bypass bool
}

func NewFiscalStatusHandler(d fiscal.Device, bypass bool) *FiscalStatusHandler {
    return &FiscalStatusHandler{Device: d, Bypass: bypass}
}

// statusFetcher is implemented by devices that expose the full agent
// status payload (the HTTP bridge does, the stub does not).
type statusFetcher interface {
    Status(ctx context.Context) (fiscal.BridgeStatus, error)
}

// Status probes the device. GET /v1/fiscal/status
func (h *FiscalStatusHandler) Status(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    connected := h.Device.IsDeviceConnected(ctx)
    ready, cardErr := h.Device.IsCardReady(ctx)

    out := echo.Map{
        "connected":   connected,
        "card_ready":  ready,
        "seal_bypass": h.Bypass,
    }
    if cardErr != "" {
        out["card_error"] = cardErr
    }
    // the real bridge also reports serial and counter
    if sf, ok := h.Device.(statusFetcher); ok {
        if st, err := sf.Status(ctx); err == nil && st.Connected {
            if st.SerialNumber != "" {
                out["serial_number"] = st.SerialNumber
            }
            if st.Counter > 0 {
                out["counter"] = st.Counter
            }
        }
    }
    return c.JSON(http.StatusOK, out)
}
