package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/pharmapin/pharmapin/internal/apperr"
	"github.com/pharmapin/pharmapin/internal/geo"
	"github.com/pharmapin/pharmapin/internal/search"
)

type SearchHandler struct{ Finder *search.Service }

func NewSearchHandler(s *search.Service) *SearchHandler { return &SearchHandler{Finder: s} }

type searchReq struct {
	SearchTerm string `json:"searchTerm"`
	Category   string `json:"category"`
	Filters    struct {
		Distance *float64         `json:"distance"`
		InStock  *bool            `json:"inStock"`
		MaxPrice *decimal.Decimal `json:"maxPrice"`
	} `json:"filters"`
	UserLocation *geo.LatLng `json:"userLocation"`
}

// Search runs a drug availability search. distance is in kilometres and
// inStock defaults to true.
func (h *SearchHandler) Search(c echo.Context) error {
	var req searchReq
	if err := bind(c, &req); err != nil {
		return err
	}
	r := search.Request{
		Term:     req.SearchTerm,
		Category: req.Category,
		Filters: search.Filters{
			DistanceKm:  req.Filters.Distance,
			InStockOnly: req.Filters.InStock == nil || *req.Filters.InStock,
			MaxPrice:    req.Filters.MaxPrice,
		},
	}
	if req.UserLocation != nil {
		pt, ok := req.UserLocation.Point()
		if !ok {
			return apperr.New(apperr.CodeInvalidInput, "userLocation needs both lat and lng")
		}
		r.Origin = &pt
	}
	results, err := h.Finder.Search(c.Request().Context(), r)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"data": results, "count": len(results)})
}
