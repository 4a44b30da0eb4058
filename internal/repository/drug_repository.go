package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/pharmapin/pharmapin/internal/model"
	"github.com/pharmapin/pharmapin/internal/service"
)

type DrugRepo struct{ DB *sql.DB }

func NewDrugRepo(db *sql.DB) *DrugRepo { return &DrugRepo{DB: db} }

var _ service.DrugStore = (*DrugRepo)(nil)

const drugColumns = `d.id,d.pharmacy_id,d.name,d.generic_name,d.brand,d.description,d.category,d.form,
	d.strength_value,d.strength_unit,d.prescription_required,d.manufacturer,d.barcode,d.dosage_instructions,
	d.side_effects,d.is_active,d.created_at,d.updated_at`

const drugSearchCond = `(LOWER(d.name) LIKE ? OR LOWER(d.generic_name) LIKE ? OR LOWER(d.brand) LIKE ?
	OR LOWER(d.description) LIKE ? OR LOWER(d.category) LIKE ?)`

func scanDrug(row interface{ Scan(...any) error }) (*model.Drug, error) {
	var d model.Drug
	var sideEffects string
	if err := row.Scan(&d.ID, &d.PharmacyID, &d.Name, &d.GenericName, &d.Brand, &d.Description, &d.Category,
		&d.Form, &d.Strength.Value, &d.Strength.Unit, &d.PrescriptionRequired, &d.Manufacturer, &d.Barcode,
		&d.DosageInstructions, &sideEffects, &d.IsActive, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, err
	}
	d.SideEffects = splitList(sideEffects)
	return &d, nil
}

func drugArgs(d *model.Drug) []any {
	return []any{
		d.Name, d.GenericName, d.Brand, d.Description, d.Category, d.Form, d.Strength.Value, d.Strength.Unit,
		d.PrescriptionRequired, d.Manufacturer, d.Barcode, d.DosageInstructions, joinList(d.SideEffects), d.IsActive,
	}
}

func (r *DrugRepo) Create(ctx context.Context, d *model.Drug) error {
	args := append([]any{d.PharmacyID}, drugArgs(d)...)
	res, err := r.DB.ExecContext(ctx, `INSERT INTO drugs
		(pharmacy_id,name,generic_name,brand,description,category,form,strength_value,strength_unit,
		 prescription_required,manufacturer,barcode,dosage_instructions,side_effects,is_active)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`, args...)
	if err != nil {
		return translate(err, "drug")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	d.ID = uint64(id)
	return translate(r.DB.QueryRowContext(ctx,
		"SELECT created_at, updated_at FROM drugs WHERE id=?", d.ID).Scan(&d.CreatedAt, &d.UpdatedAt), "drug")
}

func (r *DrugRepo) Save(ctx context.Context, d *model.Drug) error {
	args := append(drugArgs(d), d.ID)
	res, err := r.DB.ExecContext(ctx, `UPDATE drugs SET
		name=?,generic_name=?,brand=?,description=?,category=?,form=?,strength_value=?,strength_unit=?,
		prescription_required=?,manufacturer=?,barcode=?,dosage_instructions=?,side_effects=?,is_active=?
		WHERE id=?`, args...)
	if err != nil {
		return translate(err, "drug")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var one int
		if err := r.DB.QueryRowContext(ctx, "SELECT 1 FROM drugs WHERE id=?", d.ID).Scan(&one); err != nil {
			return translate(err, "drug")
		}
	}
	d.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *DrugRepo) GetByID(ctx context.Context, id uint64) (*model.Drug, error) {
	d, err := scanDrug(r.DB.QueryRowContext(ctx, "SELECT "+drugColumns+" FROM drugs d WHERE d.id=?", id))
	if err != nil {
		return nil, translate(err, "drug")
	}
	return d, nil
}

func (r *DrugRepo) List(ctx context.Context, q service.DrugQuery) ([]model.Drug, int64, error) {
	var conds []string
	var args []any
	if q.PharmacyID != 0 {
		conds = append(conds, "d.pharmacy_id=?")
		args = append(args, q.PharmacyID)
	}
	if q.Search != "" {
		conds = append(conds, drugSearchCond)
		like := likeArg(q.Search)
		args = append(args, like, like, like, like, like)
	}
	if q.Category != "" {
		conds = append(conds, "LOWER(d.category)=LOWER(?)")
		args = append(args, q.Category)
	}
	if q.IsActive != nil {
		conds = append(conds, "d.is_active=?")
		args = append(args, *q.IsActive)
	}
	if q.PrescriptionRequired != nil {
		conds = append(conds, "d.prescription_required=?")
		args = append(args, *q.PrescriptionRequired)
	}
	cond := whereClause(conds)

	var total int64
	if err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM drugs d WHERE "+cond, args...).Scan(&total); err != nil {
		return nil, 0, translate(err, "drugs")
	}
	query := "SELECT " + drugColumns + " FROM drugs d WHERE " + cond + " ORDER BY d.id DESC"
	if q.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, q.Limit, q.Offset())
	}
	out, err := r.query(ctx, query, args...)
	return out, total, err
}

// ListNotInInventory returns the pharmacy's active drugs that have no
// inventory row yet, by name.
func (r *DrugRepo) ListNotInInventory(ctx context.Context, pharmacyID uint64) ([]model.Drug, error) {
	return r.query(ctx, "SELECT "+drugColumns+` FROM drugs d
		LEFT JOIN inventory i ON i.drug_id=d.id AND i.pharmacy_id=d.pharmacy_id
		WHERE d.pharmacy_id=? AND d.is_active=1 AND i.id IS NULL
		ORDER BY d.name`, pharmacyID)
}

func (r *DrugRepo) query(ctx context.Context, query string, args ...any) ([]model.Drug, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, translate(err, "drugs")
	}
	defer rows.Close()
	out := []model.Drug{}
	for rows.Next() {
		d, err := scanDrug(rows)
		if err != nil {
			return nil, translate(err, "drugs")
		}
		out = append(out, *d)
	}
	return out, translate(rows.Err(), "drugs")
}

func (r *DrugRepo) Deactivate(ctx context.Context, id uint64) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return translate(err, "drug")
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	res, err := tx.ExecContext(ctx, "UPDATE drugs SET is_active=0 WHERE id=?", id)
	if err != nil {
		return translate(err, "drug")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var one int
		if err := tx.QueryRowContext(ctx, "SELECT 1 FROM drugs WHERE id=?", id).Scan(&one); err != nil {
			return translate(err, "drug")
		}
	}
	if _, err := tx.ExecContext(ctx, "UPDATE inventory SET is_available=0 WHERE drug_id=?", id); err != nil {
		return translate(err, "inventory")
	}
	if err := tx.Commit(); err != nil {
		return translate(err, "drug")
	}
	committed = true
	return nil
}

func (r *DrugRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM drugs").Scan(&n)
	return n, translate(err, "drugs")
}
