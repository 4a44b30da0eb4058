package router

import (
	"github.com/labstack/echo/v4"

	"github.com/pharmapin/pharmapin/internal/middleware"
	"github.com/pharmapin/pharmapin/internal/model"
)

// registerPublic mounts the browse and search endpoints. Reads are open to
// guests; writes on the same paths need a token. GET search endpoints go
// through the response cache.
func registerPublic(v1 *echo.Group, h Handlers, auth, cache echo.MiddlewareFunc) {
	cached := optional(cache)
	ownerOrAdmin := middleware.RequireRole(model.RolePharmacist, model.RoleAdmin)

	p := v1.Group("/pharmacies")
	p.GET("", h.Pharmacies.List, cached...)
	p.GET("/:id", h.Pharmacies.Get)
	p.PUT("/:id", h.Pharmacies.Update, auth, ownerOrAdmin)
	p.DELETE("/:id", h.Pharmacies.Delete, auth, ownerOrAdmin)

	d := v1.Group("/drugs")
	d.GET("", h.Drugs.List, cached...)
	d.GET("/:id", h.Drugs.Get)

	i := v1.Group("/inventory")
	i.GET("/pharmacy/:id", h.Inventory.ByPharmacy, cached...)
	i.GET("/search/drugs", h.Inventory.SearchDrugs, cached...)

	v1.POST("/search", h.Search.Search)
}
