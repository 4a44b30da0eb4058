package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/pharmapin/pharmapin/internal/service"
)

type DrugHandler struct{ Catalog *service.CatalogService }

func NewDrugHandler(c *service.CatalogService) *DrugHandler { return &DrugHandler{Catalog: c} }

func (h *DrugHandler) Create(c echo.Context) error {
	var in service.DrugInput
	if err := bind(c, &in); err != nil {
		return err
	}
	d, err := h.Catalog.CreateDrug(c.Request().Context(), actor(c), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, d)
}

func (h *DrugHandler) Update(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var in service.DrugInput
	if err := bind(c, &in); err != nil {
		return err
	}
	d, err := h.Catalog.UpdateDrug(c.Request().Context(), actor(c), id, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, d)
}

func (h *DrugHandler) Delete(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := h.Catalog.DeleteDrug(c.Request().Context(), actor(c), id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "drug deactivated"})
}

func (h *DrugHandler) Get(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	d, err := h.Catalog.GetDrug(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, d)
}

// List is the public catalog: ?search=&category=&prescriptionRequired=&page=&limit=
func (h *DrugHandler) List(c echo.Context) error {
	rx, err := queryBool(c, "prescriptionRequired")
	if err != nil {
		return err
	}
	pg := pageOf(c)
	items, total, err := h.Catalog.ListDrugs(c.Request().Context(), service.DrugQuery{
		Search:               strings.TrimSpace(c.QueryParam("search")),
		Category:             strings.TrimSpace(c.QueryParam("category")),
		PrescriptionRequired: rx,
		Page:                 pg,
	})
	if err != nil {
		return err
	}
	return paged(c, items, total, pg)
}

func (h *DrugHandler) ListMine(c echo.Context) error {
	active, err := queryBool(c, "isActive")
	if err != nil {
		return err
	}
	pg := pageOf(c)
	items, total, err := h.Catalog.ListMyDrugs(c.Request().Context(), actor(c), service.DrugQuery{
		Search:   strings.TrimSpace(c.QueryParam("search")),
		Category: strings.TrimSpace(c.QueryParam("category")),
		IsActive: active,
		Page:     pg,
	})
	if err != nil {
		return err
	}
	return paged(c, items, total, pg)
}

func (h *DrugHandler) NotInInventory(c echo.Context) error {
	items, err := h.Catalog.NotInInventory(c.Request().Context(), actor(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"data": items, "count": len(items)})
}
