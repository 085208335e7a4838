package handler

import (
    "net/http"
    "net/http/httptest"
    "testing"

    "github.com/labstack/echo/v4"

    "github.com/botteghino/fiscal-ticketing/internal/emission"
)

func TestEmissionStatus(t *testing.T) {
    cases := []struct {
        code string
        want int
    }{
        {emission.CodeAllocationNotFound, http.StatusNotFound},
        {emission.CodeTicketNotFound, http.StatusNotFound},
        {emission.CodeEventNotFound, http.StatusNotFound},
        {emission.CodeSectorNotFound, http.StatusNotFound},
        {emission.CodeQuotaExceeded, http.StatusConflict},
        {emission.CodeNoSeatsAvailable, http.StatusConflict},
        {emission.CodeAlreadyCancelled, http.StatusConflict},
        {emission.CodeEventNotOnSale, http.StatusConflict},
        {emission.CodeSealError, http.StatusServiceUnavailable},
        {emission.CodeBridgeNotConnected, http.StatusServiceUnavailable},
        {emission.CodeCardNotReady, http.StatusServiceUnavailable},
        {emission.CodeUnauthorized, http.StatusForbidden},
        {emission.CodeInvalidReasonCode, http.StatusBadRequest},
        {"SOMETHING_NEW", http.StatusInternalServerError},
        {"", http.StatusInternalServerError},
    }
    for _, tc := range cases {
        if got := emissionStatus(tc.code); got != tc.want {
            t.Errorf("emissionStatus(%q) = %d, want %d", tc.code, got, tc.want)
        }
    }
}

func TestGetUserID(t *testing.T) {
    newCtx := func(v interface{}) echo.Context {
        e := echo.New()
        req := httptest.NewRequest(http.MethodGet, "/", nil)
        c := e.NewContext(req, httptest.NewRecorder())
        if v != nil {
            c.Set("user_id", v)
        }
        return c
    }

    cases := []struct {
        name    string
        value   interface{}
        want    uint64
        wantErr bool
    }{
        {"uint64", uint64(7), 7, false},
        {"int", int(12), 12, false},
        {"int64", int64(99), 99, false},
        {"jwt float64", float64(42), 42, false}, // MapClaims decode numbers as float64
        {"numeric string", "314", 314, false},
        {"garbage string", "not-a-number", 0, true},
        {"missing", nil, 0, true},
    }
    for _, tc := range cases {
        t.Run(tc.name, func(t *testing.T) {
            got, err := getUserID(newCtx(tc.value))
            if tc.wantErr {
                if err == nil {
                    t.Fatalf("got id %d, want error", got)
                }
                return
            }
            if err != nil {
                t.Fatalf("unexpected error: %v", err)
            }
            if got != tc.want {
                t.Fatalf("got %d, want %d", got, tc.want)
            }
        })
    }
}

func TestGetRole(t *testing.T) {
    e := echo.New()
    c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
    if got := getRole(c); got != "" {
        t.Fatalf("role on empty context = %q, want empty", got)
    }
    c.Set("role", "MANAGER")
    if got := getRole(c); got != "MANAGER" {
        t.Fatalf("role = %q, want MANAGER", got)
    }
}
