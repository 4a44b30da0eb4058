package repository

import (
	"context"
	"database/sql"

	"github.com/pharmapin/pharmapin/internal/geo"
	"github.com/pharmapin/pharmapin/internal/model"
	"github.com/pharmapin/pharmapin/internal/search"
)

// SearchRepo serves the three independent lookups of a drug search. None of
// its queries combines text matching with a distance filter.
type SearchRepo struct{ DB *sql.DB }

func NewSearchRepo(db *sql.DB) *SearchRepo { return &SearchRepo{DB: db} }

var (
	_ search.DrugMatcher     = (*SearchRepo)(nil)
	_ search.PharmacyLocator = (*SearchRepo)(nil)
	_ search.InventoryJoiner = (*SearchRepo)(nil)
)

func (r *SearchRepo) MatchDrugs(ctx context.Context, term, category string) ([]model.Drug, error) {
	conds := []string{"d.is_active=1"}
	var args []any
	if term != "" {
		conds = append(conds, `(LOWER(d.name) LIKE ? OR LOWER(d.generic_name) LIKE ?
			OR LOWER(d.description) LIKE ? OR LOWER(d.category) LIKE ?)`)
		like := likeArg(term)
		args = append(args, like, like, like, like)
	}
	if category != "" {
		conds = append(conds, "LOWER(d.category)=LOWER(?)")
		args = append(args, category)
	}
	return (&DrugRepo{DB: r.DB}).query(ctx,
		"SELECT "+drugColumns+" FROM drugs d WHERE "+whereClause(conds)+" ORDER BY d.id", args...)
}

func (r *SearchRepo) EligiblePharmacies(ctx context.Context, origin *geo.Point, radiusKm float64) ([]model.Pharmacy, error) {
	conds := []string{"p.is_active=1", "p.is_verified=1"}
	var args []any
	if origin != nil {
		conds = append(conds, "p.location_set=1", "NOT (p.lat=0 AND p.lng=0)",
			"ST_Distance_Sphere(POINT(p.lng,p.lat), POINT(?,?)) <= ?")
		args = append(args, origin.Lng, origin.Lat, radiusKm*1000)
	}
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+pharmacyColumns+" FROM pharmacies p WHERE "+whereClause(conds)+" ORDER BY p.id", args...)
	if err != nil {
		return nil, translate(err, "pharmacies")
	}
	defer rows.Close()
	out := []model.Pharmacy{}
	for rows.Next() {
		p, err := scanPharmacy(rows)
		if err != nil {
			return nil, translate(err, "pharmacies")
		}
		out = append(out, *p)
	}
	return out, translate(rows.Err(), "pharmacies")
}

func (r *SearchRepo) JoinInventory(ctx context.Context, drugIDs, pharmacyIDs []uint64, f search.JoinFilter) ([]model.Inventory, error) {
	if len(drugIDs) == 0 || len(pharmacyIDs) == 0 {
		return []model.Inventory{}, nil
	}
	args := make([]any, 0, len(drugIDs)+len(pharmacyIDs)+1)
	for _, id := range drugIDs {
		args = append(args, id)
	}
	for _, id := range pharmacyIDs {
		args = append(args, id)
	}
	conds := []string{
		"i.drug_id IN (" + placeholders(len(drugIDs)) + ")",
		"i.pharmacy_id IN (" + placeholders(len(pharmacyIDs)) + ")",
	}
	if f.InStockOnly {
		conds = append(conds, "i.is_available=1")
	}
	if f.MaxPrice != nil {
		conds = append(conds, "i.price<=?")
		args = append(args, *f.MaxPrice)
	}
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+inventoryColumns+" FROM inventory i WHERE "+whereClause(conds)+" ORDER BY i.id", args...)
	if err != nil {
		return nil, translate(err, "inventory")
	}
	defer rows.Close()
	out := []model.Inventory{}
	for rows.Next() {
		inv, err := scanInventory(rows)
		if err != nil {
			return nil, translate(err, "inventory")
		}
		out = append(out, *inv)
	}
	return out, translate(rows.Err(), "inventory")
}
