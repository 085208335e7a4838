package router

import (
	"github.com/botteghino/fiscal-ticketing/internal/handler"
	"github.com/botteghino/fiscal-ticketing/internal/middleware"
	"github.com/labstack/echo/v4"
)

// RegisterAdmin registers ADMIN-scoped endpoints under /v1.  Account
// provisioning is the only admin-exclusive surface; everything else an
// admin can do goes through the manager routes.
func RegisterAdmin(e *echo.Echo, u *handler.AdminUserHandler, jwtSecret string) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("ADMIN"),
	)

	g.POST("/users", u.CreateUser)
	g.GET("/users", u.ListUsers)
	g.PATCH("/users/:id/active", u.SetUserActive)
}
