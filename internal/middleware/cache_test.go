package middleware

import (
    "net/http"
    "net/http/httptest"
    "reflect"
    "testing"

    "github.com/labstack/echo/v4"

    "github.com/botteghino/fiscal-ticketing/internal/config"
)

func TestPayloadRoundtrip(t *testing.T) {
    hdr := http.Header{}
    hdr.Set("Content-Type", "application/json")
    hdr.Add("X-Sale-Window", "a")
    hdr.Add("X-Sale-Window", "b")
    body := []byte(`{"items":[{"id":1,"title":"Summer Gala"}]}`)

    bs, err := encodePayload(http.StatusOK, hdr, body)
    if err != nil {
        t.Fatalf("encode: %v", err)
    }
    status, gotHdr, gotBody, ok := decodePayload(bs)
    if !ok {
        t.Fatal("decode reported failure on a fresh payload")
    }
    if status != http.StatusOK {
        t.Errorf("status = %d, want 200", status)
    }
    if !reflect.DeepEqual(gotHdr, hdr) {
        t.Errorf("headers = %v, want %v", gotHdr, hdr)
    }
    if string(gotBody) != string(body) {
        t.Errorf("body = %s, want %s", gotBody, body)
    }
}

func TestDecodePayloadRejectsCorrupt(t *testing.T) {
    cases := []struct {
        name string
        bs   []byte
    }{
        {"empty", nil},
        {"too short", []byte{0, 0, 0}},
        {"header length past end", []byte{0, 0, 0, 200, 0, 0, 0, 99, 'x'}},
        {"header not json", append([]byte{0, 0, 0, 200, 0, 0, 0, 2}, 'n', 'o')},
    }
    for _, tc := range cases {
        t.Run(tc.name, func(t *testing.T) {
            if _, _, _, ok := decodePayload(tc.bs); ok {
                t.Error("corrupt payload decoded as valid")
            }
        })
    }
}

func TestCacheKeyStrategies(t *testing.T) {
    newCtx := func(target string) echo.Context {
        e := echo.New()
        req := httptest.NewRequest(http.MethodGet, target, nil)
        c := e.NewContext(req, httptest.NewRecorder())
        c.SetPath("/v1/search/events")
        return c
    }
    cfg := func(strategy string) config.CacheConfig {
        return config.CacheConfig{Prefix: "cache", KeyStrategy: strategy}
    }

    // Same request, same key. Keys are hashed, so only stability and
    // prefix are observable.
    a := cacheKeyFrom(cfg("route_query"), newCtx("/v1/search/events?title=gala"))
    b := cacheKeyFrom(cfg("route_query"), newCtx("/v1/search/events?title=gala"))
    if a != b {
        t.Errorf("same request produced different keys %q / %q", a, b)
    }
    if len(a) <= len("cache:") || a[:6] != "cache:" {
        t.Errorf("key %q does not carry the prefix", a)
    }

    // Different query, different key under the default strategy.
    other := cacheKeyFrom(cfg("route_query"), newCtx("/v1/search/events?title=opera"))
    if a == other {
        t.Error("route_query strategy ignored the query string")
    }

    // The plain route strategy must collapse queries into one key.
    ra := cacheKeyFrom(cfg("route"), newCtx("/v1/search/events?title=gala"))
    rb := cacheKeyFrom(cfg("route"), newCtx("/v1/search/events?title=opera"))
    if ra != rb {
        t.Error("route strategy keyed on the query string")
    }
}

func TestCachePassThroughWithoutRedis(t *testing.T) {
    cfg := config.CacheConfig{Enabled: true, Methods: map[string]bool{"GET": true}, Prefix: "cache"}

    e := echo.New()
    c := e.NewContext(httptest.NewRequest(http.MethodGet, "/v1/public/events", nil), httptest.NewRecorder())

    reached := false
    h := NewRedisCache(cfg, nil)(func(c echo.Context) error {
        reached = true
        return c.JSON(http.StatusOK, echo.Map{"items": []string{}})
    })
    if err := h(c); err != nil {
        t.Fatalf("handler returned error: %v", err)
    }
    if !reached {
        t.Fatal("cache without Redis blocked the request")
    }
}
