// Package search finds where a medication can be bought near a point.
//
// A search runs as three independent lookups joined in memory: drugs whose
// text matches the term, pharmacies that are eligible (active, verified and,
// when an origin is given, within the radius), and the inventory rows that
// connect the two. Text matching and radius filtering are never combined in
// a single store query.
package search

import (
	"context"
	"encoding/json"
	"math"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/pharmapin/pharmapin/internal/apperr"
	"github.com/pharmapin/pharmapin/internal/geo"
	"github.com/pharmapin/pharmapin/internal/model"
)

// DrugMatcher returns active drugs whose name, generic name, description or
// category contains term case-insensitively. An empty term matches every
// active drug. category, when non-empty, must match exactly (ignoring case).
type DrugMatcher interface {
	MatchDrugs(ctx context.Context, term, category string) ([]model.Drug, error)
}

// PharmacyLocator returns active, verified pharmacies. With a non-nil origin
// only pharmacies with a set location within radiusKm are returned.
type PharmacyLocator interface {
	EligiblePharmacies(ctx context.Context, origin *geo.Point, radiusKm float64) ([]model.Pharmacy, error)
}

// InventoryJoiner returns inventory rows for the given drug and pharmacy ids,
// ordered by inventory id.
type InventoryJoiner interface {
	JoinInventory(ctx context.Context, drugIDs, pharmacyIDs []uint64, f JoinFilter) ([]model.Inventory, error)
}

// JoinFilter is applied at the inventory stage.
type JoinFilter struct {
	InStockOnly bool
	MaxPrice    *decimal.Decimal
}

// Filters narrow a search. A nil DistanceKm means the service default.
type Filters struct {
	DistanceKm  *float64
	InStockOnly bool
	MaxPrice    *decimal.Decimal
}

// Request is one search.
type Request struct {
	Term     string
	Category string
	Filters  Filters
	Origin   *geo.Point
	// RequireTerm makes an empty Term an INVALID_INPUT error.
	RequireTerm bool
}

// Distance is a distance in kilometres that may be unknown. Unknown
// distances serialize as "N/A"; known ones are rounded to 0.1 km.
type Distance struct {
	Km    float64
	Known bool
}

func (d Distance) MarshalJSON() ([]byte, error) {
	if !d.Known {
		return []byte(`"N/A"`), nil
	}
	return json.Marshal(math.Round(d.Km*10) / 10)
}

// PharmacySummary is the public slice of a pharmacy shown with a result.
type PharmacySummary struct {
	ID             uint64               `json:"id"`
	Name           string               `json:"name"`
	Address        model.Address        `json:"address"`
	Location       *geo.Point           `json:"location,omitempty"`
	Contact        model.Contact        `json:"contact"`
	OperatingHours model.OperatingHours `json:"operatingHours"`
}

// Result is one (drug, pharmacy, price, distance, stock) tuple.
type Result struct {
	InventoryID uint64          `json:"inventoryId"`
	Drug        model.Drug      `json:"drug"`
	Pharmacy    PharmacySummary `json:"pharmacy"`
	Price       decimal.Decimal `json:"price"`
	PriceUnit   model.PriceUnit `json:"priceUnit"`
	Quantity    int             `json:"quantity"`
	InStock     bool            `json:"inStock"`
	Distance    Distance        `json:"distance"`
}

// Service runs searches. It holds no state of its own.
type Service struct {
	drugs      DrugMatcher
	pharmacies PharmacyLocator
	inventory  InventoryJoiner
	defaultKm  float64
}

// New builds a Service. defaultRadiusKm is used when a request with an
// origin leaves Filters.DistanceKm unset.
func New(drugs DrugMatcher, pharmacies PharmacyLocator, inventory InventoryJoiner, defaultRadiusKm float64) *Service {
	if defaultRadiusKm <= 0 {
		defaultRadiusKm = 10
	}
	return &Service{drugs: drugs, pharmacies: pharmacies, inventory: inventory, defaultKm: defaultRadiusKm}
}

// Search returns matching offers sorted nearest first. Offers without a
// computable distance come last in their original order. No match is an
// empty slice, not an error.
func (s *Service) Search(ctx context.Context, req Request) ([]Result, error) {
	term := strings.TrimSpace(req.Term)
	if req.RequireTerm && term == "" {
		return nil, apperr.New(apperr.CodeInvalidInput, "search term is required")
	}
	if d := req.Filters.DistanceKm; d != nil && *d <= 0 {
		return nil, apperr.New(apperr.CodeInvalidInput, "distance must be greater than 0")
	}
	if req.Filters.MaxPrice != nil && req.Filters.MaxPrice.IsNegative() {
		return nil, apperr.New(apperr.CodeInvalidInput, "maxPrice must not be negative")
	}
	if req.Origin != nil {
		if err := req.Origin.Validate(); err != nil {
			return nil, apperr.Wrap(apperr.CodeInvalidInput, "invalid origin", err)
		}
	}
	category := strings.TrimSpace(req.Category)
	if strings.EqualFold(category, "all") {
		category = ""
	}

	drugs, err := s.drugs.MatchDrugs(ctx, term, category)
	if err != nil {
		return nil, apperr.Unavailable(err)
	}
	drugByID := make(map[uint64]model.Drug, len(drugs))
	drugIDs := make([]uint64, 0, len(drugs))
	for _, d := range drugs {
		if !d.IsActive {
			continue
		}
		drugByID[d.ID] = d
		drugIDs = append(drugIDs, d.ID)
	}
	if len(drugIDs) == 0 {
		return []Result{}, nil
	}

	radius := s.defaultKm
	if req.Filters.DistanceKm != nil {
		radius = *req.Filters.DistanceKm
	}
	pharmacies, err := s.pharmacies.EligiblePharmacies(ctx, req.Origin, radius)
	if err != nil {
		return nil, apperr.Unavailable(err)
	}
	pharmacyByID := make(map[uint64]model.Pharmacy, len(pharmacies))
	pharmacyIDs := make([]uint64, 0, len(pharmacies))
	for _, p := range pharmacies {
		if !p.Searchable() {
			continue
		}
		// The locator is trusted for the radius, but an unset location can
		// never satisfy an origin-based query.
		if req.Origin != nil && (!p.HasLocation() || geo.DistanceKm(*req.Origin, p.Location) > radius) {
			continue
		}
		pharmacyByID[p.ID] = p
		pharmacyIDs = append(pharmacyIDs, p.ID)
	}
	if len(pharmacyIDs) == 0 {
		return []Result{}, nil
	}

	rows, err := s.inventory.JoinInventory(ctx, drugIDs, pharmacyIDs, JoinFilter{
		InStockOnly: req.Filters.InStockOnly,
		MaxPrice:    req.Filters.MaxPrice,
	})
	if err != nil {
		return nil, apperr.Unavailable(err)
	}

	out := make([]Result, 0, len(rows))
	for _, inv := range rows {
		d, okD := drugByID[inv.DrugID]
		p, okP := pharmacyByID[inv.PharmacyID]
		if !okD || !okP {
			continue
		}
		if req.Filters.InStockOnly && !inv.IsAvailable {
			continue
		}
		if req.Filters.MaxPrice != nil && inv.Price.GreaterThan(*req.Filters.MaxPrice) {
			continue
		}
		out = append(out, Result{
			InventoryID: inv.ID,
			Drug:        d,
			Pharmacy:    summarize(p),
			Price:       inv.Price,
			PriceUnit:   inv.PriceUnit,
			Quantity:    inv.Quantity,
			InStock:     inv.IsAvailable,
			Distance:    distanceTo(req.Origin, p),
		})
	}
	SortByDistance(out)
	return out, nil
}

// SortByDistance orders results nearest first; unknown distances go last
// and keep their relative order.
func SortByDistance(rs []Result) {
	sort.SliceStable(rs, func(i, j int) bool {
		a, b := rs[i].Distance, rs[j].Distance
		if a.Known != b.Known {
			return a.Known
		}
		if !a.Known {
			return false
		}
		return a.Km < b.Km
	})
}

func distanceTo(origin *geo.Point, p model.Pharmacy) Distance {
	if origin == nil || !p.HasLocation() {
		return Distance{}
	}
	return Distance{Km: geo.DistanceKm(*origin, p.Location), Known: true}
}

func summarize(p model.Pharmacy) PharmacySummary {
	s := PharmacySummary{
		ID:             p.ID,
		Name:           p.Name,
		Address:        p.Address,
		Contact:        p.Contact,
		OperatingHours: p.OperatingHours,
	}
	if p.HasLocation() {
		loc := p.Location
		s.Location = &loc
	}
	return s
}
