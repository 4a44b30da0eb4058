package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/pharmapin/pharmapin/internal/model"
	"github.com/pharmapin/pharmapin/internal/service"
)

type PharmacyHandler struct {
	Pharmacies      *service.PharmacyService
	DefaultRadiusKm float64
}

func NewPharmacyHandler(p *service.PharmacyService, defaultRadiusKm float64) *PharmacyHandler {
	return &PharmacyHandler{Pharmacies: p, DefaultRadiusKm: defaultRadiusKm}
}

// List is the public directory: ?search=&city=&lat=&lng=&maxDistance=(m)&page=&limit=
func (h *PharmacyHandler) List(c echo.Context) error {
	origin, err := queryOrigin(c)
	if err != nil {
		return err
	}
	km, err := radiusKm(c, "maxDistance", h.DefaultRadiusKm)
	if err != nil {
		return err
	}
	pg := pageOf(c)
	items, total, err := h.Pharmacies.ListPublic(c.Request().Context(), service.PharmacyQuery{
		Search:   strings.TrimSpace(c.QueryParam("search")),
		City:     strings.TrimSpace(c.QueryParam("city")),
		Origin:   origin,
		RadiusKm: km,
		Page:     pg,
	})
	if err != nil {
		return err
	}
	return paged(c, items, total, pg)
}

func (h *PharmacyHandler) Get(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	p, err := h.Pharmacies.Get(c.Request().Context(), actor(c), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func (h *PharmacyHandler) Update(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var in service.ProfileInput
	if err := bind(c, &in); err != nil {
		return err
	}
	p, err := h.Pharmacies.Update(c.Request().Context(), actor(c), id, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func (h *PharmacyHandler) Delete(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := h.Pharmacies.Delete(c.Request().Context(), actor(c), id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "pharmacy deactivated"})
}

// ListForReview is the admin queue; status defaults to pending_approval.
func (h *PharmacyHandler) ListForReview(c echo.Context) error {
	status := model.PharmacyStatus(c.QueryParam("status"))
	if status == "" {
		status = model.StatusPendingApproval
	}
	return h.listByStatus(c, status)
}

func (h *PharmacyHandler) ListAll(c echo.Context) error { return h.listByStatus(c, "") }

func (h *PharmacyHandler) listByStatus(c echo.Context, status model.PharmacyStatus) error {
	pg := pageOf(c)
	items, total, err := h.Pharmacies.ListByStatus(c.Request().Context(), actor(c), status, pg)
	if err != nil {
		return err
	}
	return paged(c, items, total, pg)
}

func (h *PharmacyHandler) Approve(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	p, err := h.Pharmacies.Approve(c.Request().Context(), actor(c), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

type rejectReq struct {
	RejectionReason string `json:"rejectionReason"`
}

func (h *PharmacyHandler) Reject(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req rejectReq
	if err := bind(c, &req); err != nil {
		return err
	}
	p, err := h.Pharmacies.Reject(c.Request().Context(), actor(c), id, req.RejectionReason)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}
