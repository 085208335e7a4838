package middleware

// identity.go defines helper functions shared across middleware files. It
// provides the user identity extraction used for rate-limit key building.
// JWTAuth stores the raw "sub" claim under "user_id"; since JSON numbers
// decode as float64 the helper normalizes whatever arrives into a decimal
// string. When no user is authenticated it returns "anon" so unauthenticated
// traffic shares one bucket per IP.

import (
    "encoding/json"
    "strconv"

    "github.com/labstack/echo/v4"
)

// currentUserID extracts a stable user identifier from the Echo context.
func currentUserID(c echo.Context) string {
    v := c.Get("user_id")
    if v == nil {
        return "anon"
    }
    switch t := v.(type) {
    case string:
        if t != "" {
            return t
        }
    case float64:
        return strconv.FormatUint(uint64(t), 10)
    case int64:
        return strconv.FormatInt(t, 10)
    case uint64:
        return strconv.FormatUint(t, 10)
    case json.Number:
        return t.String()
    }
    return "anon"
}
