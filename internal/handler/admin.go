package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/pharmapin/pharmapin/internal/model"
	"github.com/pharmapin/pharmapin/internal/service"
)

// AdminHandler serves dashboard statistics and user management. Pharmacy
// review routes live on PharmacyHandler.
type AdminHandler struct{ Admin *service.AdminService }

func NewAdminHandler(a *service.AdminService) *AdminHandler { return &AdminHandler{Admin: a} }

func (h *AdminHandler) Stats(c echo.Context) error {
	st, err := h.Admin.Stats(c.Request().Context(), actor(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, st)
}

func (h *AdminHandler) ListUsers(c echo.Context) error {
	pg := pageOf(c)
	items, total, err := h.Admin.ListUsers(c.Request().Context(), actor(c), service.UserQuery{
		Search: strings.TrimSpace(c.QueryParam("search")),
		Role:   model.Role(c.QueryParam("role")),
		Page:   pg,
	})
	if err != nil {
		return err
	}
	return paged(c, items, total, pg)
}

func (h *AdminHandler) GetUser(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	u, err := h.Admin.GetUser(c.Request().Context(), actor(c), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, u)
}

func (h *AdminHandler) UpdateUser(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var in service.UserUpdate
	if err := bind(c, &in); err != nil {
		return err
	}
	u, err := h.Admin.UpdateUser(c.Request().Context(), actor(c), id, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, u)
}

func (h *AdminHandler) DeleteUser(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := h.Admin.DeleteUser(c.Request().Context(), actor(c), id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "user deactivated"})
}
