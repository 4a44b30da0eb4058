package router

import (
	"github.com/labstack/echo/v4"

	"github.com/pharmapin/pharmapin/internal/middleware"
	"github.com/pharmapin/pharmapin/internal/model"
)

// registerAdmin mounts pharmacy review, statistics and user management under
// /v1/admin for the admin role.
func registerAdmin(v1 *echo.Group, h Handlers, auth echo.MiddlewareFunc) {
	g := v1.Group("/admin", auth, middleware.RequireRole(model.RoleAdmin))

	g.GET("/pharmacies", h.Pharmacies.ListForReview)
	g.GET("/pharmacies/all", h.Pharmacies.ListAll)
	g.PUT("/pharmacies/:id/approve", h.Pharmacies.Approve)
	g.PUT("/pharmacies/:id/reject", h.Pharmacies.Reject)

	g.GET("/stats", h.Admin.Stats)
	g.GET("/users", h.Admin.ListUsers)
	g.GET("/users/:id", h.Admin.GetUser)
	g.PUT("/users/:id", h.Admin.UpdateUser)
	g.DELETE("/users/:id", h.Admin.DeleteUser)
}
