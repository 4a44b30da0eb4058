package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/pharmapin/pharmapin/internal/model"
	"github.com/pharmapin/pharmapin/internal/service"
)

type OrderHandler struct{ Orders *service.OrderService }

func NewOrderHandler(o *service.OrderService) *OrderHandler { return &OrderHandler{Orders: o} }

func (h *OrderHandler) Place(c echo.Context) error {
	var in service.PlaceOrderInput
	if err := bind(c, &in); err != nil {
		return err
	}
	o, err := h.Orders.Place(c.Request().Context(), actor(c), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, o)
}

func (h *OrderHandler) ListMine(c echo.Context) error {
	pg := pageOf(c)
	items, total, err := h.Orders.ListMine(c.Request().Context(), actor(c), model.OrderStatus(c.QueryParam("status")), pg)
	if err != nil {
		return err
	}
	return paged(c, items, total, pg)
}

func (h *OrderHandler) ListForPharmacy(c echo.Context) error {
	pg := pageOf(c)
	items, total, err := h.Orders.ListForPharmacy(c.Request().Context(), actor(c), model.OrderStatus(c.QueryParam("status")), pg)
	if err != nil {
		return err
	}
	return paged(c, items, total, pg)
}

func (h *OrderHandler) Get(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	o, err := h.Orders.Get(c.Request().Context(), actor(c), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, o)
}

func (h *OrderHandler) UpdateStatus(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var in service.StatusInput
	if err := bind(c, &in); err != nil {
		return err
	}
	o, err := h.Orders.UpdateStatus(c.Request().Context(), actor(c), id, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, o)
}
