package router

import (
	"github.com/labstack/echo/v4"

	"github.com/pharmapin/pharmapin/internal/middleware"
	"github.com/pharmapin/pharmapin/internal/model"
)

// registerPharmacist mounts onboarding and catalog management. Every route
// requires a token carrying the pharmacist role.
func registerPharmacist(v1 *echo.Group, h Handlers, auth echo.MiddlewareFunc) {
	pharmacist := middleware.RequireRole(model.RolePharmacist)

	o := v1.Group("/onboarding", auth, pharmacist)
	o.GET("/status", h.Onboarding.Status)
	o.GET("/profile", h.Onboarding.Profile)
	o.POST("/draft", h.Onboarding.SaveDraft)
	o.POST("/complete-profile", h.Onboarding.CompleteProfile)
	o.POST("/certificates", h.Onboarding.UploadCertificates)
	o.POST("/location", h.Onboarding.SetLocation)
	o.GET("/location", h.Onboarding.GetLocation)

	d := v1.Group("/drugs", auth, pharmacist)
	d.POST("", h.Drugs.Create)
	d.GET("/mine", h.Drugs.ListMine)
	d.GET("/not-in-inventory", h.Drugs.NotInInventory)
	d.PUT("/:id", h.Drugs.Update)
	d.DELETE("/:id", h.Drugs.Delete)

	i := v1.Group("/inventory", auth, pharmacist)
	i.POST("", h.Inventory.Add)
	i.PUT("/:id", h.Inventory.Update)
}
