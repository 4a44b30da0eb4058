package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/pharmapin/pharmapin/internal/apperr"
)

// Pinger is anything the readiness probe can check.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct{ Store Pinger }

func NewHealthHandler(store Pinger) *HealthHandler { return &HealthHandler{Store: store} }

// Live always answers ok while the process runs.
func (h *HealthHandler) Live(c echo.Context) error { return c.String(http.StatusOK, "ok") }

// Ready answers ok only when the store responds within two seconds.
func (h *HealthHandler) Ready(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()
	if err := h.Store.Ping(ctx); err != nil {
		return apperr.Wrap(apperr.CodeStoreUnavailable, "store unavailable", err)
	}
	return c.String(http.StatusOK, "ok")
}
