package memstore

import (
	"context"
	"sort"
	"strings"

	"github.com/pharmapin/pharmapin/internal/geo"
	"github.com/pharmapin/pharmapin/internal/model"
	"github.com/pharmapin/pharmapin/internal/search"
)

// Search serves the three lookups of a drug availability search.
type Search struct{ db *db }

var (
	_ search.DrugMatcher     = (*Search)(nil)
	_ search.PharmacyLocator = (*Search)(nil)
	_ search.InventoryJoiner = (*Search)(nil)
)

func (s *Search) MatchDrugs(_ context.Context, term, category string) ([]model.Drug, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	out := []model.Drug{}
	for _, d := range s.db.drugs {
		if !d.IsActive {
			continue
		}
		if category != "" && !strings.EqualFold(d.Category, category) {
			continue
		}
		if term != "" && !containsFold(d.Name+"\x00"+d.GenericName+"\x00"+d.Description+"\x00"+d.Category, term) {
			continue
		}
		out = append(out, cloneDrug(d))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Search) EligiblePharmacies(_ context.Context, origin *geo.Point, radiusKm float64) ([]model.Pharmacy, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	out := []model.Pharmacy{}
	for _, p := range s.db.pharmacies {
		if !p.Searchable() {
			continue
		}
		if origin != nil && (!p.HasLocation() || geo.DistanceKm(*origin, p.Location) > radiusKm) {
			continue
		}
		out = append(out, clonePharmacy(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Search) JoinInventory(_ context.Context, drugIDs, pharmacyIDs []uint64, f search.JoinFilter) ([]model.Inventory, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	drugs := make(map[uint64]bool, len(drugIDs))
	for _, id := range drugIDs {
		drugs[id] = true
	}
	pharmacies := make(map[uint64]bool, len(pharmacyIDs))
	for _, id := range pharmacyIDs {
		pharmacies[id] = true
	}
	out := []model.Inventory{}
	for _, inv := range s.db.inventory {
		if !drugs[inv.DrugID] || !pharmacies[inv.PharmacyID] {
			continue
		}
		if f.InStockOnly && !inv.IsAvailable {
			continue
		}
		if f.MaxPrice != nil && inv.Price.GreaterThan(*f.MaxPrice) {
			continue
		}
		out = append(out, inv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
