package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/pharmapin/pharmapin/internal/apperr"
	"github.com/pharmapin/pharmapin/internal/model"
	"github.com/pharmapin/pharmapin/internal/service"
)

type OrderRepo struct{ DB *sql.DB }

func NewOrderRepo(db *sql.DB) *OrderRepo { return &OrderRepo{DB: db} }

var _ service.OrderStore = (*OrderRepo)(nil)

const orderColumns = `o.id,o.order_number,o.patient_id,o.pharmacy_id,o.total_amount,o.discount_amount,o.final_amount,
	o.status,o.payment_status,o.payment_method,o.delivery_option,o.delivery_address,o.patient_notes,
	o.pharmacy_notes,o.cancellation_reason,o.actual_delivery,o.created_at,o.updated_at`

func scanOrder(row interface{ Scan(...any) error }) (*model.Order, error) {
	var o model.Order
	var delivered sql.NullTime
	if err := row.Scan(&o.ID, &o.OrderNumber, &o.PatientID, &o.PharmacyID, &o.TotalAmount, &o.DiscountAmount,
		&o.FinalAmount, &o.Status, &o.PaymentStatus, &o.PaymentMethod, &o.DeliveryOption, &o.DeliveryAddress,
		&o.PatientNotes, &o.PharmacyNotes, &o.CancellationReason, &delivered, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	if delivered.Valid {
		t := delivered.Time
		o.ActualDelivery = &t
	}
	o.Items = []model.OrderItem{}
	return &o, nil
}

// InTx follows the same commit-or-rollback shape as every other write
// transaction in this package: the deferred rollback is a no-op once
// committed is set.
func (r *OrderRepo) InTx(ctx context.Context, fn func(tx service.OrderTx) error) error {
	tx, err := r.DB.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return translate(err, "order transaction")
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(&sqlOrderTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return translate(err, "order transaction")
	}
	committed = true
	return nil
}

func (r *OrderRepo) GetByID(ctx context.Context, id uint64) (*model.Order, error) {
	o, err := scanOrder(r.DB.QueryRowContext(ctx, "SELECT "+orderColumns+" FROM orders o WHERE o.id=?", id))
	if err != nil {
		return nil, translate(err, "order")
	}
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id,order_id,drug_id,inventory_id,quantity,price,discount FROM order_items WHERE order_id=? ORDER BY id", id)
	if err != nil {
		return nil, translate(err, "order items")
	}
	defer rows.Close()
	for rows.Next() {
		var it model.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.DrugID, &it.InventoryID, &it.Quantity, &it.Price, &it.Discount); err != nil {
			return nil, translate(err, "order items")
		}
		o.Items = append(o.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, translate(err, "order items")
	}
	return o, nil
}

// List returns order headers without items, newest first.
func (r *OrderRepo) List(ctx context.Context, q service.OrderQuery) ([]model.Order, int64, error) {
	var conds []string
	var args []any
	if q.PatientID != 0 {
		conds = append(conds, "o.patient_id=?")
		args = append(args, q.PatientID)
	}
	if q.PharmacyID != 0 {
		conds = append(conds, "o.pharmacy_id=?")
		args = append(args, q.PharmacyID)
	}
	if q.Status != "" {
		conds = append(conds, "o.status=?")
		args = append(args, q.Status)
	}
	cond := whereClause(conds)

	var total int64
	if err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM orders o WHERE "+cond, args...).Scan(&total); err != nil {
		return nil, 0, translate(err, "orders")
	}
	query := "SELECT " + orderColumns + " FROM orders o WHERE " + cond + " ORDER BY o.id DESC"
	if q.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, q.Limit, q.Offset())
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, translate(err, "orders")
	}
	defer rows.Close()
	out := []model.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, translate(err, "orders")
		}
		out = append(out, *o)
	}
	return out, total, translate(rows.Err(), "orders")
}

func (r *OrderRepo) UpdateStatus(ctx context.Context, o *model.Order) error {
	var delivered any
	if o.ActualDelivery != nil {
		delivered = o.ActualDelivery.UTC()
	}
	res, err := r.DB.ExecContext(ctx,
		"UPDATE orders SET status=?,pharmacy_notes=?,cancellation_reason=?,actual_delivery=? WHERE id=?",
		o.Status, o.PharmacyNotes, o.CancellationReason, delivered, o.ID)
	if err != nil {
		return translate(err, "order")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var one int
		if err := r.DB.QueryRowContext(ctx, "SELECT 1 FROM orders WHERE id=?", o.ID).Scan(&one); err != nil {
			return translate(err, "order")
		}
	}
	o.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *OrderRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM orders").Scan(&n)
	return n, translate(err, "orders")
}

type sqlOrderTx struct{ tx *sql.Tx }

// GetInventory locks the row until the transaction ends.
func (t *sqlOrderTx) GetInventory(ctx context.Context, id uint64) (*model.Inventory, error) {
	inv, err := scanInventory(t.tx.QueryRowContext(ctx,
		"SELECT "+inventoryColumns+" FROM inventory i WHERE i.id=? FOR UPDATE", id))
	if err != nil {
		return nil, translate(err, "inventory")
	}
	return inv, nil
}

func (t *sqlOrderTx) DecrementStock(ctx context.Context, inventoryID uint64, qty int) error {
	res, err := t.tx.ExecContext(ctx,
		"UPDATE inventory SET quantity=quantity-? WHERE id=? AND quantity>=? AND is_available=1",
		qty, inventoryID, qty)
	if err != nil {
		return translate(err, "inventory")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return translate(err, "inventory")
	}
	if n == 0 {
		return apperr.Newf(apperr.CodeInsufficientStock, "insufficient stock for inventory %d", inventoryID)
	}
	return nil
}

// InsertOrder writes the header and its lines. A duplicate order number
// only fails the statement, so the caller may retry inside the same
// transaction.
func (t *sqlOrderTx) InsertOrder(ctx context.Context, o *model.Order) error {
	res, err := t.tx.ExecContext(ctx, `INSERT INTO orders
		(order_number,patient_id,pharmacy_id,total_amount,discount_amount,final_amount,status,payment_status,
		 payment_method,delivery_option,delivery_address,patient_notes,pharmacy_notes,cancellation_reason)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		o.OrderNumber, o.PatientID, o.PharmacyID, o.TotalAmount, o.DiscountAmount, o.FinalAmount, o.Status,
		o.PaymentStatus, o.PaymentMethod, o.DeliveryOption, o.DeliveryAddress, o.PatientNotes,
		o.PharmacyNotes, o.CancellationReason)
	if err != nil {
		if isDuplicate(err) {
			return apperr.Wrap(apperr.CodeDuplicateEntry, "order number already used", err)
		}
		return translate(err, "order")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	o.ID = uint64(id)
	for i := range o.Items {
		it := &o.Items[i]
		res, err := t.tx.ExecContext(ctx,
			"INSERT INTO order_items (order_id,drug_id,inventory_id,quantity,price,discount) VALUES (?,?,?,?,?,?)",
			o.ID, it.DrugID, it.InventoryID, it.Quantity, it.Price, it.Discount)
		if err != nil {
			return translate(err, "order item")
		}
		itemID, err := res.LastInsertId()
		if err != nil {
			return err
		}
		it.ID, it.OrderID = uint64(itemID), o.ID
	}
	return translate(t.tx.QueryRowContext(ctx,
		"SELECT created_at, updated_at FROM orders WHERE id=?", o.ID).Scan(&o.CreatedAt, &o.UpdatedAt), "order")
}
