// Package router registers the HTTP routes of the API on an echo instance.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/pharmapin/pharmapin/internal/handler"
	"github.com/pharmapin/pharmapin/internal/middleware"
)

// Handlers bundles every handler the routes dispatch to.
type Handlers struct {
	Auth       *handler.AuthHandler
	Health     *handler.HealthHandler
	Onboarding *handler.OnboardingHandler
	Pharmacies *handler.PharmacyHandler
	Drugs      *handler.DrugHandler
	Inventory  *handler.InventoryHandler
	Search     *handler.SearchHandler
	Orders     *handler.OrderHandler
	Patients   *handler.PatientHandler
	Admin      *handler.AdminHandler
}

// Options carries the route-level middleware built at startup. Nil
// middlewares are skipped.
type Options struct {
	JWTSecret string
	AuthLimit echo.MiddlewareFunc
	Cache     echo.MiddlewareFunc
}

// Register mounts every route. Health checks live at the root; the API lives
// under /v1.
func Register(e *echo.Echo, h Handlers, opt Options) {
	e.GET("/healthz", h.Health.Live)
	e.GET("/readyz", h.Health.Ready)

	v1 := e.Group("/v1")
	auth := middleware.JWTAuth(opt.JWTSecret)

	registerAuth(v1, h.Auth, auth, opt.AuthLimit)
	registerPharmacist(v1, h, auth)
	registerPublic(v1, h, auth, opt.Cache)
	registerOrders(v1, h.Orders, auth)
	registerPatient(v1, h.Patients, auth)
	registerAdmin(v1, h, auth)
}

func registerAuth(v1 *echo.Group, a *handler.AuthHandler, auth, limit echo.MiddlewareFunc) {
	g := v1.Group("/auth")
	g.POST("/register", a.Register, optional(limit)...)
	g.POST("/login", a.Login, optional(limit)...)
	g.POST("/refresh", a.Refresh)
	g.POST("/refresh-access", a.RefreshAccess)
	g.POST("/logout", a.Logout)

	v1.GET("/me", a.Me, auth)
}

func optional(mws ...echo.MiddlewareFunc) []echo.MiddlewareFunc {
	out := make([]echo.MiddlewareFunc, 0, len(mws))
	for _, m := range mws {
		if m != nil {
			out = append(out, m)
		}
	}
	return out
}
