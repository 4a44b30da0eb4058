package service_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/pharmapin/pharmapin/internal/apperr"
	"github.com/pharmapin/pharmapin/internal/model"
	"github.com/pharmapin/pharmapin/internal/service"
)

func TestAddInventoryTwiceIsDuplicate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	price := decimal.NewFromInt(120)
	first, err := f.catalog.AddInventory(ctx, pharmacist, service.InventoryInput{DrugID: f.drug.ID, Price: &price, Quantity: ptr(4)})
	if err != nil {
		t.Fatalf("first add: %v", err)
	}

	other := decimal.NewFromInt(1)
	_, err = f.catalog.AddInventory(ctx, pharmacist, service.InventoryInput{DrugID: f.drug.ID, Price: &other, Quantity: ptr(99)})
	if apperr.CodeOf(err) != apperr.CodeDuplicateEntry || !apperr.IsConflict(err) {
		t.Fatalf("want DUPLICATE_ENTRY, got %v", err)
	}

	got, err := f.st.Inventory.GetByID(ctx, first.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !got.Price.Equal(price) || got.Quantity != 4 {
		t.Fatalf("original row changed: %+v", got)
	}
}

func TestAddInventoryDefaultsAndValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.catalog.AddInventory(ctx, pharmacist, service.InventoryInput{DrugID: f.drug.ID}); apperr.CodeOf(err) != apperr.CodeValidation {
		t.Fatalf("missing price: want VALIDATION_ERROR, got %v", err)
	}
	neg := decimal.NewFromInt(-1)
	if _, err := f.catalog.AddInventory(ctx, pharmacist, service.InventoryInput{DrugID: f.drug.ID, Price: &neg}); apperr.CodeOf(err) != apperr.CodeValidation {
		t.Fatalf("negative price: want VALIDATION_ERROR, got %v", err)
	}

	price := decimal.RequireFromString("12.345")
	inv, err := f.catalog.AddInventory(ctx, pharmacist, service.InventoryInput{DrugID: f.drug.ID, Price: &price})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if inv.PriceUnit != model.UnitDose || !inv.IsAvailable {
		t.Fatalf("defaults not applied: %+v", inv)
	}
	if inv.Price.String() != "12.35" {
		t.Fatalf("price not rounded to cents: %s", inv.Price)
	}
}

func TestCatalogOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	stranger := service.Actor{UserID: 99, Role: model.RolePharmacist}

	if _, err := f.catalog.UpdateDrug(ctx, stranger, f.drug.ID, service.DrugInput{Name: ptr("x")}); apperr.CodeOf(err) != apperr.CodeNotFound {
		t.Fatalf("pharmacist without pharmacy: want NOT_FOUND, got %v", err)
	}
	if _, err := f.catalog.CreateDrug(ctx, patient, service.DrugInput{Name: ptr("x"), Category: ptr("y")}); apperr.CodeOf(err) != apperr.CodeForbidden {
		t.Fatalf("patient creating drug: want FORBIDDEN, got %v", err)
	}
}

func TestDeleteDrugMakesInventoryUnavailable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	price := decimal.NewFromInt(10)
	inv, err := f.catalog.AddInventory(ctx, pharmacist, service.InventoryInput{DrugID: f.drug.ID, Price: &price, Quantity: ptr(3)})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := f.catalog.DeleteDrug(ctx, pharmacist, f.drug.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	d, _ := f.st.Drugs.GetByID(ctx, f.drug.ID)
	got, _ := f.st.Inventory.GetByID(ctx, inv.ID)
	if d.IsActive || got.IsAvailable {
		t.Fatalf("cascade missing: drug active=%v inventory available=%v", d.IsActive, got.IsAvailable)
	}

	public, _, err := f.catalog.ListDrugs(ctx, service.DrugQuery{Page: service.NewPage(1, 10)})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(public) != 0 {
		t.Fatalf("inactive drug listed publicly: %+v", public)
	}
	mine, _, _ := f.catalog.ListMyDrugs(ctx, pharmacist, service.DrugQuery{Page: service.NewPage(1, 10)})
	if len(mine) != 1 {
		t.Fatalf("owner should still see the inactive drug, got %d", len(mine))
	}
}

func TestCreateDrugValidation(t *testing.T) {
	f := newFixture(t)
	form := model.DrugForm("powder")
	_, err := f.catalog.CreateDrug(context.Background(), pharmacist, service.DrugInput{Form: &form})
	e, ok := err.(*apperr.Error)
	if !ok || e.Code != apperr.CodeValidation {
		t.Fatalf("want validation error, got %v", err)
	}
	for _, field := range []string{"name", "category", "form"} {
		if e.Fields[field] == "" {
			t.Fatalf("missing message for %s: %v", field, e.Fields)
		}
	}
}

func TestNotInInventory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.stock(t, "Ibuprofen", 50, 1)
	got, err := f.catalog.NotInInventory(ctx, pharmacist)
	if err != nil {
		t.Fatalf("not in inventory: %v", err)
	}
	if len(got) != 1 || got[0].ID != f.drug.ID {
		t.Fatalf("want only the unstocked drug, got %+v", got)
	}
}
