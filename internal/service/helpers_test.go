package service_test

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/pharmapin/pharmapin/internal/geo"
	"github.com/pharmapin/pharmapin/internal/model"
	"github.com/pharmapin/pharmapin/internal/repository/memstore"
	"github.com/pharmapin/pharmapin/internal/service"
)

// recorder captures published events by queue name.
type recorder struct {
	mu     sync.Mutex
	queues []string
}

func (r *recorder) Publish(_ context.Context, queue string, _ any) error {
	r.mu.Lock()
	r.queues = append(r.queues, queue)
	r.mu.Unlock()
	return nil
}

func (r *recorder) count(queue string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, q := range r.queues {
		if q == queue {
			n++
		}
	}
	return n
}

var (
	admin      = service.Actor{UserID: 1, Role: model.RoleAdmin}
	pharmacist = service.Actor{UserID: 2, Role: model.RolePharmacist}
	patient    = service.Actor{UserID: 3, Role: model.RolePatient}
)

// fixture is one approved pharmacy owned by pharmacist with one drug.
type fixture struct {
	st       *memstore.Store
	events   *recorder
	pharmacy *model.Pharmacy
	drug     *model.Drug
	catalog  *service.CatalogService
	orders   *service.OrderService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	st := memstore.New()
	p := &model.Pharmacy{
		OwnerID: pharmacist.UserID, Name: "CBD Chemist", LicenseNumber: "PPB-001",
		Address: model.Address{Street: "Moi Avenue", City: "Nairobi"},
		Location: geo.NewPoint(-1.2864, 36.8172), LocationSet: true,
		Status: model.StatusApproved, IsActive: true, IsVerified: true,
	}
	if err := st.Pharmacies.Create(ctx, p); err != nil {
		t.Fatalf("create pharmacy: %v", err)
	}
	d := &model.Drug{PharmacyID: p.ID, Name: "Paracetamol 500mg", Category: "Analgesic", Form: model.FormTablet, IsActive: true}
	if err := st.Drugs.Create(ctx, d); err != nil {
		t.Fatalf("create drug: %v", err)
	}
	events := &recorder{}
	return &fixture{
		st:       st,
		events:   events,
		pharmacy: p,
		drug:     d,
		catalog:  service.NewCatalogService(st.Drugs, st.Inventory, st.Pharmacies),
		orders:   service.NewOrderService(st.Orders, st.Pharmacies, events),
	}
}

// stock adds an inventory row for a new drug of the fixture pharmacy.
func (f *fixture) stock(t *testing.T, name string, price int64, qty int) *model.Inventory {
	t.Helper()
	ctx := context.Background()
	d := &model.Drug{PharmacyID: f.pharmacy.ID, Name: name, Category: "General", Form: model.FormTablet, IsActive: true}
	if err := f.st.Drugs.Create(ctx, d); err != nil {
		t.Fatalf("create drug: %v", err)
	}
	pr := decimal.NewFromInt(price)
	inv, err := f.catalog.AddInventory(ctx, pharmacist, service.InventoryInput{DrugID: d.ID, Price: &pr, Quantity: &qty})
	if err != nil {
		t.Fatalf("add inventory: %v", err)
	}
	return inv
}

func (f *fixture) quantity(t *testing.T, id uint64) int {
	t.Helper()
	inv, err := f.st.Inventory.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("get inventory: %v", err)
	}
	return inv.Quantity
}

func ptr[T any](v T) *T { return &v }
