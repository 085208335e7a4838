package middleware

import (
    "net/http"
    "net/http/httptest"
    "strings"
    "testing"

    "github.com/golang-jwt/jwt/v5"
    "github.com/labstack/echo/v4"

    "github.com/botteghino/fiscal-ticketing/internal/utils"
)

const testSecret = "unit-test-secret"

// runThrough sends a request with the given Authorization header through
// JWTAuth and reports the recorder plus whether the inner handler ran.
func runThrough(t *testing.T, secret, authHeader string) (*httptest.ResponseRecorder, bool, echo.Context) {
    t.Helper()
    e := echo.New()
    req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
    if authHeader != "" {
        req.Header.Set("Authorization", authHeader)
    }
    rec := httptest.NewRecorder()
    c := e.NewContext(req, rec)

    reached := false
    h := JWTAuth(secret)(func(c echo.Context) error {
        reached = true
        return c.String(http.StatusOK, "ok")
    })
    if err := h(c); err != nil {
        t.Fatalf("middleware returned error: %v", err)
    }
    return rec, reached, c
}

func TestJWTAuthInjectsClaims(t *testing.T) {
    tok, err := utils.NewAccessToken(testSecret, 42, "CASHIER", 5)
    if err != nil {
        t.Fatalf("mint token: %v", err)
    }

    rec, reached, c := runThrough(t, testSecret, "Bearer "+tok.Token)
    if !reached || rec.Code != http.StatusOK {
        t.Fatalf("valid token rejected: status %d, body %s", rec.Code, rec.Body.String())
    }
    // MapClaims decode JSON numbers as float64.
    uid, ok := c.Get("user_id").(float64)
    if !ok || uid != 42 {
        t.Errorf("user_id in context = %v, want float64 42", c.Get("user_id"))
    }
    if role, _ := c.Get("role").(string); role != "CASHIER" {
        t.Errorf("role in context = %v, want CASHIER", c.Get("role"))
    }
}

func TestJWTAuthRejects(t *testing.T) {
    valid, err := utils.NewAccessToken(testSecret, 42, "CASHIER", 5)
    if err != nil {
        t.Fatalf("mint token: %v", err)
    }
    expired, err := utils.NewAccessToken(testSecret, 42, "CASHIER", -5)
    if err != nil {
        t.Fatalf("mint expired token: %v", err)
    }
    foreign, err := utils.NewAccessToken("some-other-secret", 42, "ADMIN", 5)
    if err != nil {
        t.Fatalf("mint foreign token: %v", err)
    }

    // A token that claims alg "none" must never pass, whatever it carries.
    unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": 1, "role": "ADMIN"})
    unsignedRaw, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
    if err != nil {
        t.Fatalf("build alg-none token: %v", err)
    }

    cases := []struct {
        name     string
        header   string
        wantBody string
    }{
        {"no header", "", "missing bearer token"},
        {"not bearer", "Basic dXNlcjpwdw==", "missing bearer token"},
        {"garbage token", "Bearer nope.nope.nope", "invalid token"},
        {"wrong secret", "Bearer " + foreign.Token, "invalid token"},
        {"expired", "Bearer " + expired.Token, "invalid token"},
        {"alg none", "Bearer " + unsignedRaw, "invalid token"},
    }
    for _, tc := range cases {
        t.Run(tc.name, func(t *testing.T) {
            rec, reached, _ := runThrough(t, testSecret, tc.header)
            if reached {
                t.Fatal("inner handler ran for a rejected token")
            }
            if rec.Code != http.StatusUnauthorized {
                t.Fatalf("status = %d, want 401", rec.Code)
            }
            if !strings.Contains(rec.Body.String(), tc.wantBody) {
                t.Errorf("body %s does not mention %q", rec.Body.String(), tc.wantBody)
            }
        })
    }

    // Sanity: the valid token still passes after all the rejects.
    if _, reached, _ := runThrough(t, testSecret, "Bearer "+valid.Token); !reached {
        t.Fatal("valid token no longer accepted")
    }
}

func TestRequireRole(t *testing.T) {
    run := func(role interface{}) (*httptest.ResponseRecorder, bool) {
        e := echo.New()
        c := e.NewContext(httptest.NewRequest(http.MethodGet, "/v1/events", nil), httptest.NewRecorder())
        if role != nil {
            c.Set("role", role)
        }
        reached := false
        h := RequireRole("MANAGER", "ADMIN")(func(c echo.Context) error {
            reached = true
            return c.String(http.StatusOK, "ok")
        })
        if err := h(c); err != nil {
            t.Fatalf("middleware returned error: %v", err)
        }
        return c.Response().Writer.(*httptest.ResponseRecorder), reached
    }

    if rec, reached := run("CASHIER"); reached || rec.Code != http.StatusForbidden {
        t.Errorf("CASHIER on a manager route: reached=%v status=%d, want blocked 403", reached, rec.Code)
    }
    if _, reached := run("MANAGER"); !reached {
        t.Error("MANAGER blocked from a manager route")
    }
    if _, reached := run("ADMIN"); !reached {
        t.Error("ADMIN blocked from a manager route")
    }
    if rec, reached := run(nil); reached || rec.Code != http.StatusForbidden {
        t.Errorf("missing role: reached=%v status=%d, want blocked 403", reached, rec.Code)
    }
    if rec, reached := run(123); reached || rec.Code != http.StatusForbidden {
        t.Errorf("non-string role: reached=%v status=%d, want blocked 403", reached, rec.Code)
    }
}
