package router

import (
	"github.com/labstack/echo/v4"

	"github.com/pharmapin/pharmapin/internal/handler"
	"github.com/pharmapin/pharmapin/internal/middleware"
	"github.com/pharmapin/pharmapin/internal/model"
)

// registerOrders mounts order placement and tracking. Who may read or update
// a given order is decided by the service.
func registerOrders(v1 *echo.Group, o *handler.OrderHandler, auth echo.MiddlewareFunc) {
	g := v1.Group("/orders", auth)
	g.POST("", o.Place, middleware.RequireRole(model.RolePatient))
	g.GET("/mine", o.ListMine, middleware.RequireRole(model.RolePatient))
	g.GET("/pharmacy", o.ListForPharmacy, middleware.RequireRole(model.RolePharmacist))
	g.GET("/:id", o.Get)
	g.PUT("/:id/status", o.UpdateStatus)
}

func registerPatient(v1 *echo.Group, p *handler.PatientHandler, auth echo.MiddlewareFunc) {
	g := v1.Group("/patient", auth, middleware.RequireRole(model.RolePatient))
	g.GET("/profile", p.Profile)
	g.GET("/addresses", p.Addresses)
	g.POST("/addresses", p.AddAddress)
	g.PUT("/addresses/:id", p.UpdateAddress)
	g.DELETE("/addresses/:id", p.DeleteAddress)
	g.PUT("/addresses/:id/default", p.SetDefaultAddress)
	g.GET("/favorites", p.Favorites)
	g.POST("/favorites/:pharmacyId", p.ToggleFavorite)
}
