package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/pharmapin/pharmapin/internal/model"
	"github.com/pharmapin/pharmapin/internal/service"
)

type InventoryRepo struct{ DB *sql.DB }

func NewInventoryRepo(db *sql.DB) *InventoryRepo { return &InventoryRepo{DB: db} }

var _ service.InventoryStore = (*InventoryRepo)(nil)

const inventoryColumns = `i.id,i.pharmacy_id,i.drug_id,i.price,i.price_unit,i.quantity,i.is_available,i.created_at,i.updated_at`

func scanInventory(row interface{ Scan(...any) error }) (*model.Inventory, error) {
	var inv model.Inventory
	if err := row.Scan(&inv.ID, &inv.PharmacyID, &inv.DrugID, &inv.Price, &inv.PriceUnit,
		&inv.Quantity, &inv.IsAvailable, &inv.CreatedAt, &inv.UpdatedAt); err != nil {
		return nil, err
	}
	return &inv, nil
}

// Create relies on uq_inventory_pair; a second row for the same pharmacy
// and drug comes back as DUPLICATE_ENTRY.
func (r *InventoryRepo) Create(ctx context.Context, inv *model.Inventory) error {
	res, err := r.DB.ExecContext(ctx, `INSERT INTO inventory
		(pharmacy_id,drug_id,price,price_unit,quantity,is_available) VALUES (?,?,?,?,?,?)`,
		inv.PharmacyID, inv.DrugID, inv.Price, inv.PriceUnit, inv.Quantity, inv.IsAvailable)
	if err != nil {
		return translate(err, "inventory")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	inv.ID = uint64(id)
	return translate(r.DB.QueryRowContext(ctx,
		"SELECT created_at, updated_at FROM inventory WHERE id=?", inv.ID).Scan(&inv.CreatedAt, &inv.UpdatedAt), "inventory")
}

func (r *InventoryRepo) Save(ctx context.Context, inv *model.Inventory) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE inventory SET price=?,price_unit=?,quantity=?,is_available=? WHERE id=?",
		inv.Price, inv.PriceUnit, inv.Quantity, inv.IsAvailable, inv.ID)
	if err != nil {
		return translate(err, "inventory")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var one int
		if err := r.DB.QueryRowContext(ctx, "SELECT 1 FROM inventory WHERE id=?", inv.ID).Scan(&one); err != nil {
			return translate(err, "inventory")
		}
	}
	inv.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *InventoryRepo) GetByID(ctx context.Context, id uint64) (*model.Inventory, error) {
	inv, err := scanInventory(r.DB.QueryRowContext(ctx,
		"SELECT "+inventoryColumns+" FROM inventory i WHERE i.id=?", id))
	if err != nil {
		return nil, translate(err, "inventory")
	}
	return inv, nil
}

func (r *InventoryRepo) FindByPharmacyAndDrug(ctx context.Context, pharmacyID, drugID uint64) (*model.Inventory, error) {
	inv, err := scanInventory(r.DB.QueryRowContext(ctx,
		"SELECT "+inventoryColumns+" FROM inventory i WHERE i.pharmacy_id=? AND i.drug_id=?", pharmacyID, drugID))
	if err != nil {
		return nil, translate(err, "inventory")
	}
	return inv, nil
}

// ListByPharmacy joins each row with its drug, newest first.
func (r *InventoryRepo) ListByPharmacy(ctx context.Context, q service.InventoryQuery) ([]model.InventoryItem, error) {
	conds := []string{"i.pharmacy_id=?"}
	args := []any{q.PharmacyID}
	if q.Search != "" {
		conds = append(conds, drugSearchCond)
		like := likeArg(q.Search)
		args = append(args, like, like, like, like, like)
	}
	if q.Category != "" {
		conds = append(conds, "LOWER(d.category)=LOWER(?)")
		args = append(args, q.Category)
	}
	if q.InStockOnly {
		conds = append(conds, "i.is_available=1")
	}
	rows, err := r.DB.QueryContext(ctx, "SELECT "+inventoryColumns+","+drugColumns+
		" FROM inventory i JOIN drugs d ON d.id=i.drug_id WHERE "+whereClause(conds)+" ORDER BY i.id DESC", args...)
	if err != nil {
		return nil, translate(err, "inventory")
	}
	defer rows.Close()
	out := []model.InventoryItem{}
	for rows.Next() {
		var it model.InventoryItem
		var sideEffects string
		d := &it.Drug
		inv := &it.Inventory
		if err := rows.Scan(&inv.ID, &inv.PharmacyID, &inv.DrugID, &inv.Price, &inv.PriceUnit,
			&inv.Quantity, &inv.IsAvailable, &inv.CreatedAt, &inv.UpdatedAt,
			&d.ID, &d.PharmacyID, &d.Name, &d.GenericName, &d.Brand, &d.Description, &d.Category,
			&d.Form, &d.Strength.Value, &d.Strength.Unit, &d.PrescriptionRequired, &d.Manufacturer, &d.Barcode,
			&d.DosageInstructions, &sideEffects, &d.IsActive, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, translate(err, "inventory")
		}
		d.SideEffects = splitList(sideEffects)
		out = append(out, it)
	}
	return out, translate(rows.Err(), "inventory")
}
