package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/botteghino/fiscal-ticketing/internal/handler"    // import the handlers that implement business logic
	"github.com/botteghino/fiscal-ticketing/internal/middleware" // import middleware for JWT authentication and role enforcement
)

// RegisterRoutes registers routes that do not require authentication on
// the provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	// Map the GET request at path "/healthz" to the Health handler.  This
	// endpoint can be used by load balancers or monitoring systems to verify
	// that the service is up and running.
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers all authentication-related routes and applies the
// necessary middleware.  Unauthenticated operations live under /v1/auth,
// while protected endpoints live under /v1.  There is no /register route:
// operator accounts are provisioned through the admin user endpoints.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string, loginLimit echo.MiddlewareFunc) {
	// Session establishment and token exchange do not require an existing
	// session.  Each handler generates or exchanges tokens itself.
	g := e.Group("/v1/auth")
	// Register a POST endpoint to handle user login at /v1/auth/login.  The
	// token bucket slows credential stuffing against terminal accounts.
	g.POST("/login", a.Login, loginLimit)
	// Register a POST endpoint to refresh access tokens at /v1/auth/refresh. This rotates the refresh token.
	g.POST("/refresh", a.Refresh)
	// Register a POST endpoint to issue a new access token without rotating the refresh token.
	g.POST("/refresh-access", a.RefreshAccess)
	// Logout does not require JWT authentication: the handler accepts a
	// `refresh_token` body or a bearer token and invalidates accordingly.
	g.POST("/logout", a.Logout)

	// Protected endpoints live under /v1 and require a valid access token.
	auth := e.Group("/v1")
	// Apply the JWTAuth middleware to the protected group using the provided secret.
	auth.Use(middleware.JWTAuth(jwtSecret))
	// Every staff role may read its own profile.
	auth.Use(middleware.RequireRole("CASHIER", "MANAGER", "ADMIN"))
	// Register a GET endpoint at /v1/me that returns the authenticated user's information.
	auth.GET("/me", a.Me)

	// Additionally map POST /v1/logout to the same handler so clients can
	// call either /v1/auth/logout or /v1/logout to end a session.
	e.POST("/v1/logout", a.Logout)
}

// RegisterPublic registers unauthenticated browse endpoints on the provided
// Echo instance.  The PublicBrowseHandler returns sanitized data for on-sale
// events; no fiscal aggregates or staff identities leak through these
// routes.  The cache middleware is attached per-route so only these
// user-independent responses are ever cached.
func RegisterPublic(e *echo.Echo, p *handler.PublicBrowseHandler, cache echo.MiddlewareFunc) {
	// List all events currently on sale.
	e.GET("/v1/public/events", p.ListOnSaleEvents, cache)
	// Event detail with per-sector availability and prices.
	e.GET("/v1/public/events/:id", p.GetPublicEvent, cache)
	// Filtered and paginated search over on-sale events.
	e.GET("/v1/search/events", p.SearchEvents, cache)
}
