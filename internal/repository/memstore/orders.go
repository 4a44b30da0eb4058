package memstore

import (
	"context"
	"maps"
	"sort"

	"github.com/pharmapin/pharmapin/internal/apperr"
	"github.com/pharmapin/pharmapin/internal/model"
	"github.com/pharmapin/pharmapin/internal/service"
)

type Orders struct{ db *db }

var _ service.OrderStore = (*Orders)(nil)

// InTx holds the store lock for the whole of fn, so transactions are
// serialized. On error the inventory and order tables are restored.
func (s *Orders) InTx(ctx context.Context, fn func(tx service.OrderTx) error) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	inventory := maps.Clone(s.db.inventory)
	orders := maps.Clone(s.db.orders)
	seq := maps.Clone(s.db.seq)
	if err := fn(orderTx{s.db}); err != nil {
		s.db.inventory = inventory
		s.db.orders = orders
		s.db.seq = seq
		return err
	}
	return nil
}

func (s *Orders) GetByID(_ context.Context, id uint64) (*model.Order, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	o, ok := s.db.orders[id]
	if !ok {
		return nil, apperr.New(apperr.CodeNotFound, "order not found")
	}
	o = cloneOrder(o)
	return &o, nil
}

func (s *Orders) List(_ context.Context, q service.OrderQuery) ([]model.Order, int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	out := []model.Order{}
	for _, o := range s.db.orders {
		if q.PatientID != 0 && o.PatientID != q.PatientID {
			continue
		}
		if q.PharmacyID != 0 && o.PharmacyID != q.PharmacyID {
			continue
		}
		if q.Status != "" && o.Status != q.Status {
			continue
		}
		out = append(out, cloneOrder(o))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return paginate(out, q.Page), int64(len(out)), nil
}

func (s *Orders) UpdateStatus(_ context.Context, o *model.Order) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	cur, ok := s.db.orders[o.ID]
	if !ok {
		return apperr.New(apperr.CodeNotFound, "order not found")
	}
	cur.Status = o.Status
	cur.PharmacyNotes = o.PharmacyNotes
	cur.CancellationReason = o.CancellationReason
	cur.ActualDelivery = o.ActualDelivery
	cur.UpdatedAt = s.db.now().UTC()
	o.UpdatedAt = cur.UpdatedAt
	s.db.orders[o.ID] = cloneOrder(cur)
	return nil
}

func (s *Orders) Count(context.Context) (int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return int64(len(s.db.orders)), nil
}

// orderTx runs with db.mu already held by InTx.
type orderTx struct{ db *db }

func (t orderTx) GetInventory(_ context.Context, id uint64) (*model.Inventory, error) {
	inv, ok := t.db.inventory[id]
	if !ok {
		return nil, apperr.New(apperr.CodeNotFound, "inventory not found")
	}
	return &inv, nil
}

func (t orderTx) DecrementStock(_ context.Context, inventoryID uint64, qty int) error {
	inv, ok := t.db.inventory[inventoryID]
	if !ok || !inv.IsAvailable || inv.Quantity < qty {
		return apperr.Newf(apperr.CodeInsufficientStock, "insufficient stock for inventory %d", inventoryID)
	}
	inv.Quantity -= qty
	inv.UpdatedAt = t.db.now().UTC()
	t.db.inventory[inventoryID] = inv
	return nil
}

func (t orderTx) InsertOrder(_ context.Context, o *model.Order) error {
	for _, other := range t.db.orders {
		if other.OrderNumber == o.OrderNumber {
			return apperr.New(apperr.CodeDuplicateEntry, "order number already used")
		}
	}
	now := t.db.now().UTC()
	o.ID = t.db.nextID("orders")
	o.CreatedAt, o.UpdatedAt = now, now
	for i := range o.Items {
		o.Items[i].ID = t.db.nextID("order_items")
		o.Items[i].OrderID = o.ID
	}
	t.db.orders[o.ID] = cloneOrder(*o)
	return nil
}
