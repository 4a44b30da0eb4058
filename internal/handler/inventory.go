package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/pharmapin/pharmapin/internal/search"
	"github.com/pharmapin/pharmapin/internal/service"
)

type InventoryHandler struct {
	Catalog         *service.CatalogService
	Search          *search.Service
	DefaultRadiusKm float64
}

func NewInventoryHandler(c *service.CatalogService, s *search.Service, defaultRadiusKm float64) *InventoryHandler {
	return &InventoryHandler{Catalog: c, Search: s, DefaultRadiusKm: defaultRadiusKm}
}

func (h *InventoryHandler) Add(c echo.Context) error {
	var in service.InventoryInput
	if err := bind(c, &in); err != nil {
		return err
	}
	inv, err := h.Catalog.AddInventory(c.Request().Context(), actor(c), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, inv)
}

func (h *InventoryHandler) Update(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var in service.InventoryInput
	if err := bind(c, &in); err != nil {
		return err
	}
	inv, err := h.Catalog.UpdateInventory(c.Request().Context(), actor(c), id, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, inv)
}

// ByPharmacy lists a pharmacy's stock: ?search=&category=&inStock=
func (h *InventoryHandler) ByPharmacy(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	inStock, err := queryBool(c, "inStock")
	if err != nil {
		return err
	}
	items, err := h.Catalog.PharmacyInventory(c.Request().Context(), service.InventoryQuery{
		PharmacyID:  id,
		Search:      strings.TrimSpace(c.QueryParam("search")),
		Category:    strings.TrimSpace(c.QueryParam("category")),
		InStockOnly: inStock != nil && *inStock,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"data": items, "count": len(items)})
}

// SearchDrugs is the query-string search: ?drugName=&lat=&lng=&maxDistance=(m).
// The drug name is mandatory here.
func (h *InventoryHandler) SearchDrugs(c echo.Context) error {
	origin, err := queryOrigin(c)
	if err != nil {
		return err
	}
	km, err := radiusKm(c, "maxDistance", h.DefaultRadiusKm)
	if err != nil {
		return err
	}
	results, err := h.Search.Search(c.Request().Context(), search.Request{
		Term:        c.QueryParam("drugName"),
		Origin:      origin,
		Filters:     search.Filters{DistanceKm: &km, InStockOnly: true},
		RequireTerm: true,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"data": results, "count": len(results)})
}
