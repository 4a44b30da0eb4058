// Package handler adapts HTTP requests to the application services. Handlers
// return errors instead of writing them; ErrorHandler renders them.
package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/pharmapin/pharmapin/internal/apperr"
	"github.com/pharmapin/pharmapin/internal/geo"
	"github.com/pharmapin/pharmapin/internal/middleware"
	"github.com/pharmapin/pharmapin/internal/service"
)

// actor is the authenticated caller, or the zero Actor on public routes.
func actor(c echo.Context) service.Actor {
	id, role, _ := middleware.CurrentUser(c)
	return service.Actor{UserID: id, Role: role}
}

func bind(c echo.Context, v any) error {
	if err := c.Bind(v); err != nil {
		return apperr.New(apperr.CodeInvalidInput, "invalid request body")
	}
	return nil
}

func paramID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.Newf(apperr.CodeInvalidInput, "invalid %s", name)
	}
	return id, nil
}

func pageOf(c echo.Context) service.Page {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	return service.NewPage(page, limit)
}

// queryBool reads an optional boolean filter.
func queryBool(c echo.Context, name string) (*bool, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, apperr.Newf(apperr.CodeInvalidInput, "%s must be true or false", name)
	}
	return &b, nil
}

// queryOrigin reads lat/lng. Both or neither must be present.
func queryOrigin(c echo.Context) (*geo.Point, error) {
	rawLat, rawLng := c.QueryParam("lat"), c.QueryParam("lng")
	if rawLat == "" && rawLng == "" {
		return nil, nil
	}
	lat, err1 := strconv.ParseFloat(rawLat, 64)
	lng, err2 := strconv.ParseFloat(rawLng, 64)
	if err1 != nil || err2 != nil {
		return nil, apperr.New(apperr.CodeInvalidInput, "lat and lng must both be numbers")
	}
	pt := geo.NewPoint(lat, lng)
	if err := pt.Validate(); err != nil {
		return nil, apperr.Wrap(apperr.CodeInvalidInput, "invalid coordinates", err)
	}
	return &pt, nil
}

// radiusKm reads a distance given in metres and returns kilometres. An
// absent parameter yields defKm; zero is rejected rather than read as unset.
func radiusKm(c echo.Context, name string, defKm float64) (float64, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return defKm, nil
	}
	m, err := strconv.ParseFloat(raw, 64)
	if err != nil || m <= 0 {
		return 0, apperr.Newf(apperr.CodeInvalidInput, "%s must be a positive number of metres", name)
	}
	return m / 1000, nil
}

type pageBody struct {
	Data     any   `json:"data"`
	Total    int64 `json:"total"`
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
}

func paged(c echo.Context, data any, total int64, pg service.Page) error {
	return c.JSON(http.StatusOK, pageBody{Data: data, Total: total, Page: pg.Page, PageSize: pg.Limit})
}
