package router // router defines how HTTP routes are registered for the API

import (
	"github.com/botteghino/fiscal-ticketing/internal/handler"    // manager handlers
	"github.com/botteghino/fiscal-ticketing/internal/middleware" // JWT + role middlewares
	"github.com/labstack/echo/v4"
)

// RegisterManager registers MANAGER-scoped endpoints under /v1.
// All routes require a valid JWT and the MANAGER or ADMIN role.
func RegisterManager(e *echo.Echo, ev *handler.ManagerEventHandler, al *handler.ManagerAllocationHandler, au *handler.AuditHandler, jwtSecret string) {
	// Attach middlewares at group construction time for clarity.
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("MANAGER", "ADMIN"),
	)

	// ---- Events ----
	g.POST("/events", ev.CreateEvent)
	g.GET("/events", ev.ListEvents)
	g.GET("/events/:id", ev.GetEvent)
	g.POST("/events/:id/open", ev.OpenSale)
	g.POST("/events/:id/close", ev.CloseEvent)

	// ---- Sectors ----
	g.POST("/events/:id/sectors", ev.CreateSector)
	g.GET("/events/:id/sectors", ev.ListSectors)

	// ---- Fiscal register ----
	// Issued tickets of an event in progressive order, for reconciliation.
	g.GET("/events/:id/tickets", ev.ListEventTickets)

	// ---- Allocations ----
	g.POST("/allocations", al.Grant)
	g.PATCH("/allocations/:id", al.Resize)
	g.DELETE("/allocations/:id", al.Revoke)
	g.PATCH("/allocations/:id/active", al.SetAllocationActive)
	g.GET("/events/:id/allocations", al.ListByEvent)

	// ---- Audit trail ----
	g.GET("/audit", au.ListAudit)
}
