package router

import (
	"github.com/labstack/echo/v4"

	"github.com/botteghino/fiscal-ticketing/internal/handler"
	"github.com/botteghino/fiscal-ticketing/internal/middleware"
)

// RegisterTickets registers the emission endpoints under /v1.  All routes
// require a valid JWT; every staff role may reach them because quota
// enforcement happens inside the engine (a manager cancelling a ticket
// goes through the same route as the issuing cashier).  The rate limiter
// guards only the routes that consume fiscal seals.
func RegisterTickets(e *echo.Echo, h *handler.CashierTicketHandler, a *handler.ManagerAllocationHandler, f *handler.FiscalStatusHandler, jwtSecret string, sealLimit echo.MiddlewareFunc) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("CASHIER", "MANAGER", "ADMIN"),
	)

	// Seal-consuming operations, rate limited per user.
	g.POST("/tickets", h.Emit, sealLimit)
	g.POST("/tickets/:id/cancel", h.Cancel, sealLimit)

	// Static segments must be registered alongside /tickets/:id; echo
	// resolves them before the parameter route.
	g.GET("/tickets/mine", h.ListMine)
	g.GET("/tickets/cancel-reasons", h.CancelReasons)
	g.GET("/tickets/verify/:code", h.VerifyByCode)
	g.GET("/tickets/:id", h.GetTicket)

	// A cashier's own quota view, used by the terminal's header widget.
	g.GET("/allocations/mine", a.MyAllocations)

	// Device state probe so the operator can check the bridge before
	// opening the register.
	g.GET("/fiscal/status", f.Status)
}
