package search

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/pharmapin/pharmapin/internal/apperr"
	"github.com/pharmapin/pharmapin/internal/geo"
	"github.com/pharmapin/pharmapin/internal/model"
)

// fakeCatalog implements the three lookups over slices, filtering only the
// way a store is required to.
type fakeCatalog struct {
	drugs      []model.Drug
	pharmacies []model.Pharmacy
	inventory  []model.Inventory
	err        error
}

func (f *fakeCatalog) MatchDrugs(_ context.Context, term, category string) ([]model.Drug, error) {
	if f.err != nil {
		return nil, f.err
	}
	term = strings.ToLower(term)
	var out []model.Drug
	for _, d := range f.drugs {
		if !d.IsActive {
			continue
		}
		if category != "" && !strings.EqualFold(d.Category, category) {
			continue
		}
		hay := strings.ToLower(d.Name + "\x00" + d.GenericName + "\x00" + d.Description + "\x00" + d.Category)
		if term != "" && !strings.Contains(hay, term) {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

func (f *fakeCatalog) EligiblePharmacies(_ context.Context, origin *geo.Point, radiusKm float64) ([]model.Pharmacy, error) {
	var out []model.Pharmacy
	for _, p := range f.pharmacies {
		if !p.IsActive || !p.IsVerified {
			continue
		}
		if origin != nil && p.LocationSet && geo.DistanceKm(*origin, p.Location) > radiusKm {
			continue
		}
		// Deliberately returns unset-location pharmacies for origin queries
		// so the service's own exclusion is exercised.
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeCatalog) JoinInventory(_ context.Context, drugIDs, pharmacyIDs []uint64, jf JoinFilter) ([]model.Inventory, error) {
	dset := map[uint64]bool{}
	for _, id := range drugIDs {
		dset[id] = true
	}
	pset := map[uint64]bool{}
	for _, id := range pharmacyIDs {
		pset[id] = true
	}
	var out []model.Inventory
	for _, inv := range f.inventory {
		if !dset[inv.DrugID] || !pset[inv.PharmacyID] {
			continue
		}
		if jf.InStockOnly && !inv.IsAvailable {
			continue
		}
		if jf.MaxPrice != nil && inv.Price.GreaterThan(*jf.MaxPrice) {
			continue
		}
		out = append(out, inv)
	}
	return out, nil
}

func newService(f *fakeCatalog) *Service { return New(f, f, f, 10) }

func km(v float64) *float64 { return &v }

func pharmacyAt(id uint64, name string, lat, lng float64) model.Pharmacy {
	return model.Pharmacy{
		ID: id, Name: name, Location: geo.NewPoint(lat, lng), LocationSet: true,
		IsActive: true, IsVerified: true, Status: model.StatusApproved,
	}
}

func inv(id, pharmacyID, drugID uint64, price int64, available bool) model.Inventory {
	return model.Inventory{
		ID: id, PharmacyID: pharmacyID, DrugID: drugID,
		Price: decimal.NewFromInt(price), PriceUnit: model.UnitDose,
		Quantity: 10, IsAvailable: available,
	}
}

// nairobiCatalog: three pharmacies around Nairobi CBD plus one far away, one
// without a location and one unverified.
func nairobiCatalog() *fakeCatalog {
	unset := model.Pharmacy{ID: 4, Name: "No Location", IsActive: true, IsVerified: true}
	unverified := pharmacyAt(5, "Unverified", -1.2925, 36.8220)
	unverified.IsVerified = false
	return &fakeCatalog{
		drugs: []model.Drug{
			{ID: 1, Name: "Paracetamol 500mg", Category: "Analgesic", IsActive: true},
			{ID: 2, Name: "Calpol", GenericName: "PARACETAMOL", Category: "Analgesic", IsActive: true},
			{ID: 3, Name: "Ibuprofen", Category: "Analgesic", IsActive: true},
			{ID: 4, Name: "Paracetamol Old Stock", Category: "Analgesic", IsActive: false},
		},
		pharmacies: []model.Pharmacy{
			pharmacyAt(1, "Westlands", -1.2676, 36.8108), // ~3 km
			pharmacyAt(2, "CBD", -1.2864, 36.8172),       // ~0.8 km
			pharmacyAt(3, "Thika", -1.0333, 37.0693),     // ~40 km
			unset,
			unverified,
		},
		inventory: []model.Inventory{
			inv(10, 1, 1, 120, true),
			inv(11, 2, 2, 90, true),
			inv(12, 3, 1, 80, true),
			inv(13, 4, 1, 100, true),
			inv(14, 5, 1, 50, true),
			inv(15, 2, 3, 200, true),
			inv(16, 1, 4, 10, true),
		},
	}
}

func TestParacetamolNearNairobi(t *testing.T) {
	origin := geo.NewPoint(-1.2921, 36.8219)
	got, err := newService(nairobiCatalog()).Search(context.Background(), Request{
		Term:    "paracetamol",
		Origin:  &origin,
		Filters: Filters{DistanceKm: km(10), InStockOnly: true},
	})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("want 2 results, got %d: %+v", len(got), got)
	}
	if got[0].Pharmacy.ID != 2 || got[1].Pharmacy.ID != 1 {
		t.Fatalf("wrong order: %d, %d", got[0].Pharmacy.ID, got[1].Pharmacy.ID)
	}
	for _, r := range got {
		if !r.Distance.Known || r.Distance.Km > 10 {
			t.Fatalf("result outside radius: %+v", r.Distance)
		}
		name := strings.ToLower(r.Drug.Name + r.Drug.GenericName)
		if !strings.Contains(name, "paracetamol") {
			t.Fatalf("non-matching drug %q", r.Drug.Name)
		}
	}
}

func TestNoTermNoOriginReturnsAllInStockActive(t *testing.T) {
	cat := nairobiCatalog()
	cat.inventory = append(cat.inventory, inv(17, 3, 3, 60, false))
	got, err := newService(cat).Search(context.Background(), Request{Filters: Filters{InStockOnly: true}})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	// Every available row for an active drug at an active, verified pharmacy.
	want := map[uint64]bool{10: true, 11: true, 12: true, 13: true, 15: true}
	if len(got) != len(want) {
		t.Fatalf("want %d results, got %d", len(want), len(got))
	}
	for i, r := range got {
		if !want[r.InventoryID] {
			t.Fatalf("unexpected inventory %d", r.InventoryID)
		}
		if r.Distance.Known {
			t.Fatalf("distance should be unknown without origin")
		}
		// Without distances the join order is preserved.
		if i > 0 && got[i-1].InventoryID > r.InventoryID {
			t.Fatalf("order not preserved: %d before %d", got[i-1].InventoryID, r.InventoryID)
		}
	}
}

func TestUnsetLocationExcludedFromRadiusQuery(t *testing.T) {
	cat := nairobiCatalog()
	// A pharmacy flagged as located but still at the [0,0] placeholder.
	zero := model.Pharmacy{ID: 6, Name: "Null Island", LocationSet: true, IsActive: true, IsVerified: true}
	cat.pharmacies = append(cat.pharmacies, zero)
	cat.inventory = append(cat.inventory, inv(18, 6, 1, 10, true))

	origin := geo.NewPoint(0.01, 0.01)
	got, err := newService(cat).Search(context.Background(), Request{
		Term: "paracetamol", Origin: &origin, Filters: Filters{DistanceKm: km(50000)},
	})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	for _, r := range got {
		if r.Pharmacy.ID == 4 || r.Pharmacy.ID == 6 {
			t.Fatalf("pharmacy %d without a real location returned", r.Pharmacy.ID)
		}
	}
}

func TestSortUnknownDistancesLastAndStable(t *testing.T) {
	rs := []Result{
		{InventoryID: 1},
		{InventoryID: 2, Distance: Distance{Km: 5, Known: true}},
		{InventoryID: 3},
		{InventoryID: 4, Distance: Distance{Km: 1, Known: true}},
		{InventoryID: 5},
		{InventoryID: 6, Distance: Distance{Km: 5, Known: true}},
	}
	SortByDistance(rs)
	want := []uint64{4, 2, 6, 1, 3, 5}
	for i, id := range want {
		if rs[i].InventoryID != id {
			t.Fatalf("position %d: want %d got %d", i, id, rs[i].InventoryID)
		}
	}
}

func TestFiltersAtInventoryStage(t *testing.T) {
	cat := nairobiCatalog()
	cat.inventory[0].IsAvailable = false // Westlands paracetamol
	ceiling := decimal.NewFromInt(100)
	got, err := newService(cat).Search(context.Background(), Request{
		Term:    "paracetamol",
		Filters: Filters{InStockOnly: true, MaxPrice: &ceiling},
	})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	for _, r := range got {
		if !r.InStock {
			t.Fatalf("out-of-stock row returned")
		}
		if r.Price.GreaterThan(ceiling) {
			t.Fatalf("price %s above ceiling", r.Price)
		}
	}
	if len(got) != 3 { // CBD 90, Thika 80, No Location 100
		t.Fatalf("want 3, got %d", len(got))
	}
}

func TestCategoryAllMeansNoFilter(t *testing.T) {
	cat := nairobiCatalog()
	a, _ := newService(cat).Search(context.Background(), Request{Category: "all"})
	b, _ := newService(cat).Search(context.Background(), Request{})
	if len(a) != len(b) {
		t.Fatalf("category=all changed results: %d vs %d", len(a), len(b))
	}
	c, _ := newService(cat).Search(context.Background(), Request{Category: "antibiotic"})
	if len(c) != 0 {
		t.Fatalf("unknown category matched %d rows", len(c))
	}
}

func TestRequiredTerm(t *testing.T) {
	_, err := newService(nairobiCatalog()).Search(context.Background(), Request{RequireTerm: true, Term: "  "})
	if apperr.CodeOf(err) != apperr.CodeInvalidInput {
		t.Fatalf("want INVALID_INPUT, got %v", err)
	}
}

func TestExplicitDistanceMustBePositive(t *testing.T) {
	origin := geo.NewPoint(-1.2921, 36.8219)
	for _, d := range []float64{0, -3} {
		_, err := newService(nairobiCatalog()).Search(context.Background(), Request{
			Term: "paracetamol", Origin: &origin, Filters: Filters{DistanceKm: km(d)},
		})
		if apperr.CodeOf(err) != apperr.CodeInvalidInput {
			t.Fatalf("distance %v: want INVALID_INPUT, got %v", d, err)
		}
	}
	got, err := newService(nairobiCatalog()).Search(context.Background(), Request{
		Term: "paracetamol", Origin: &origin,
	})
	if err != nil || len(got) == 0 {
		t.Fatalf("unset distance should use the default radius: %v %d", err, len(got))
	}
}

func TestNoMatchIsEmptyNotError(t *testing.T) {
	got, err := newService(nairobiCatalog()).Search(context.Background(), Request{Term: "amoxicillin"})
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("want empty slice, got %#v", got)
	}
}

func TestStoreFailureIsUnavailable(t *testing.T) {
	cat := nairobiCatalog()
	cat.err = errors.New("connection refused")
	_, err := newService(cat).Search(context.Background(), Request{Term: "x"})
	if apperr.CodeOf(err) != apperr.CodeStoreUnavailable {
		t.Fatalf("want STORE_UNAVAILABLE, got %v", err)
	}
}

func TestDistanceJSON(t *testing.T) {
	b, _ := json.Marshal(Distance{})
	if string(b) != `"N/A"` {
		t.Fatalf("unknown distance = %s", b)
	}
	b, _ = json.Marshal(Distance{Km: 3.14159, Known: true})
	if string(b) != "3.1" {
		t.Fatalf("known distance = %s", b)
	}
}
