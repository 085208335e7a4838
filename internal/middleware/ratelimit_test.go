package middleware

import (
    "encoding/json"
    "net/http"
    "net/http/httptest"
    "strings"
    "testing"

    "github.com/labstack/echo/v4"

    "github.com/botteghino/fiscal-ticketing/internal/config"
)

func TestCurrentUserID(t *testing.T) {
    newCtx := func(v interface{}) echo.Context {
        e := echo.New()
        c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
        if v != nil {
            c.Set("user_id", v)
        }
        return c
    }

    cases := []struct {
        name  string
        value interface{}
        want  string
    }{
        {"unauthenticated", nil, "anon"},
        {"float64 claim", float64(42), "42"},
        {"int64", int64(9), "9"},
        {"uint64", uint64(7), "7"},
        {"string", "15", "15"},
        {"empty string", "", "anon"},
        {"json number", json.Number("33"), "33"},
        {"unsupported type", []int{1}, "anon"},
    }
    for _, tc := range cases {
        t.Run(tc.name, func(t *testing.T) {
            if got := currentUserID(newCtx(tc.value)); got != tc.want {
                t.Errorf("currentUserID = %q, want %q", got, tc.want)
            }
        })
    }
}

func TestBuildRateKey(t *testing.T) {
    newCtx := func() echo.Context {
        e := echo.New()
        req := httptest.NewRequest(http.MethodPost, "/v1/tickets", nil)
        c := e.NewContext(req, httptest.NewRecorder())
        c.SetPath("/v1/tickets")
        c.Set("user_id", uint64(7))
        return c
    }
    cfg := func(strategy string) config.RateLimitConfig {
        return config.RateLimitConfig{Prefix: "rl", KeyStrategy: strategy}
    }

    userKey := buildRateKey(cfg("user"), newCtx())
    if userKey != "rl:user:7" {
        t.Errorf("user key = %q, want rl:user:7", userKey)
    }

    routeKey := buildRateKey(cfg("route"), newCtx())
    if routeKey != "rl:route:POST /v1/tickets" {
        t.Errorf("route key = %q, want rl:route:POST /v1/tickets", routeKey)
    }

    ipKey := buildRateKey(cfg("ip"), newCtx())
    if !strings.HasPrefix(ipKey, "rl:ip:") || strings.HasSuffix(ipKey, ":") {
        t.Errorf("ip key = %q, want rl:ip:<addr>", ipKey)
    }

    // The default strategy combines all three dimensions, so two
    // cashiers at one terminal never share a bucket.
    defKey := buildRateKey(cfg(""), newCtx())
    if !strings.Contains(defKey, ":user:7") || !strings.Contains(defKey, "POST /v1/tickets") {
        t.Errorf("default key = %q, want ip+user+route", defKey)
    }
}

func TestTokenBucketFailsOpenWithoutRedis(t *testing.T) {
    cfg := config.RateLimitConfig{Enabled: true, Capacity: 1, KeyStrategy: "user", Prefix: "rl"}

    e := echo.New()
    c := e.NewContext(httptest.NewRequest(http.MethodPost, "/v1/tickets", nil), httptest.NewRecorder())

    reached := 0
    h := NewTokenBucket(cfg, nil)(func(c echo.Context) error {
        reached++
        return c.String(http.StatusOK, "ok")
    })
    // Without Redis even a capacity-1 bucket must not block: a Redis
    // outage never stops the box office.
    for i := 0; i < 3; i++ {
        if err := h(c); err != nil {
            t.Fatalf("call %d returned error: %v", i, err)
        }
    }
    if reached != 3 {
        t.Fatalf("handler ran %d times, want 3", reached)
    }
}

func TestTokenBucketDisabled(t *testing.T) {
    cfg := config.RateLimitConfig{Enabled: false}

    e := echo.New()
    rec := httptest.NewRecorder()
    c := e.NewContext(httptest.NewRequest(http.MethodPost, "/v1/tickets", nil), rec)

    reached := false
    h := NewTokenBucket(cfg, nil)(func(c echo.Context) error {
        reached = true
        return c.String(http.StatusOK, "ok")
    })
    if err := h(c); err != nil {
        t.Fatalf("handler returned error: %v", err)
    }
    if !reached {
        t.Fatal("disabled limiter blocked the request")
    }
    if got := rec.Header().Get("X-RateLimit-Limit"); got != "" {
        t.Errorf("disabled limiter set X-RateLimit-Limit %q", got)
    }
}
