package service

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/pharmapin/pharmapin/internal/apperr"
	"github.com/pharmapin/pharmapin/internal/model"
)

// DrugInput is used for both create (all required fields set) and update
// (nil means unchanged).
type DrugInput struct {
	Name                 *string         `json:"name"`
	GenericName          *string         `json:"genericName"`
	Brand                *string         `json:"brand"`
	Description          *string         `json:"description"`
	Category             *string         `json:"category"`
	Form                 *model.DrugForm `json:"form"`
	Strength             *model.Strength `json:"strength"`
	PrescriptionRequired *bool           `json:"prescriptionRequired"`
	Manufacturer         *string         `json:"manufacturer"`
	Barcode              *string         `json:"barcode"`
	DosageInstructions   *string         `json:"dosageInstructions"`
	SideEffects          []string        `json:"sideEffects"`
	IsActive             *bool           `json:"isActive"`
}

type InventoryInput struct {
	DrugID      uint64           `json:"drugId"`
	Price       *decimal.Decimal `json:"price"`
	PriceUnit   *model.PriceUnit `json:"priceUnit"`
	Quantity    *int             `json:"quantity"`
	IsAvailable *bool            `json:"isAvailable"`
}

// CatalogService manages a pharmacy's drugs and inventory.
type CatalogService struct {
	Drugs      DrugStore
	Inventory  InventoryStore
	Pharmacies PharmacyStore
}

func NewCatalogService(d DrugStore, i InventoryStore, p PharmacyStore) *CatalogService {
	if d == nil || i == nil || p == nil {
		panic("nil store passed to NewCatalogService")
	}
	return &CatalogService{Drugs: d, Inventory: i, Pharmacies: p}
}

// ownPharmacy returns the acting pharmacist's active pharmacy.
func (s *CatalogService) ownPharmacy(ctx context.Context, a Actor) (*model.Pharmacy, error) {
	if a.Role != model.RolePharmacist {
		return nil, apperr.New(apperr.CodeForbidden, "only pharmacists manage a catalog")
	}
	p, err := s.Pharmacies.GetByOwner(ctx, a.UserID)
	if err != nil {
		if apperr.CodeOf(err) == apperr.CodeNotFound {
			return nil, apperr.New(apperr.CodeNotFound, "create your pharmacy profile first")
		}
		return nil, apperr.Unavailable(err)
	}
	if !p.IsActive {
		return nil, apperr.New(apperr.CodeConflict, "pharmacy is deactivated")
	}
	return p, nil
}

func (s *CatalogService) ownDrug(ctx context.Context, a Actor, id uint64) (*model.Drug, *model.Pharmacy, error) {
	p, err := s.ownPharmacy(ctx, a)
	if err != nil {
		return nil, nil, err
	}
	d, err := s.Drugs.GetByID(ctx, id)
	if err != nil {
		return nil, nil, apperr.Unavailable(err)
	}
	if d.PharmacyID != p.ID {
		return nil, nil, apperr.New(apperr.CodeForbidden, "drug belongs to another pharmacy")
	}
	return d, p, nil
}

func (s *CatalogService) CreateDrug(ctx context.Context, a Actor, in DrugInput) (*model.Drug, error) {
	p, err := s.ownPharmacy(ctx, a)
	if err != nil {
		return nil, err
	}
	d := &model.Drug{PharmacyID: p.ID, Form: model.FormTablet, IsActive: true}
	if err := applyDrug(d, in); err != nil {
		return nil, err
	}
	if err := validateDrug(d); err != nil {
		return nil, err
	}
	if err := s.Drugs.Create(ctx, d); err != nil {
		return nil, apperr.Unavailable(err)
	}
	return d, nil
}

func (s *CatalogService) UpdateDrug(ctx context.Context, a Actor, id uint64, in DrugInput) (*model.Drug, error) {
	d, _, err := s.ownDrug(ctx, a, id)
	if err != nil {
		return nil, err
	}
	if err := applyDrug(d, in); err != nil {
		return nil, err
	}
	if err := validateDrug(d); err != nil {
		return nil, err
	}
	if err := s.Drugs.Save(ctx, d); err != nil {
		return nil, apperr.Unavailable(err)
	}
	return d, nil
}

// DeleteDrug soft-deletes a drug; its inventory rows become unavailable.
func (s *CatalogService) DeleteDrug(ctx context.Context, a Actor, id uint64) error {
	if _, _, err := s.ownDrug(ctx, a, id); err != nil {
		return err
	}
	return apperr.Unavailable(s.Drugs.Deactivate(ctx, id))
}

func (s *CatalogService) GetDrug(ctx context.Context, id uint64) (*model.Drug, error) {
	d, err := s.Drugs.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Unavailable(err)
	}
	return d, nil
}

// ListMyDrugs lists the caller's own catalog, including inactive drugs
// unless q.IsActive says otherwise.
func (s *CatalogService) ListMyDrugs(ctx context.Context, a Actor, q DrugQuery) ([]model.Drug, int64, error) {
	p, err := s.ownPharmacy(ctx, a)
	if err != nil {
		return nil, 0, err
	}
	q.PharmacyID = p.ID
	items, total, err := s.Drugs.List(ctx, q)
	return items, total, apperr.Unavailable(err)
}

// ListDrugs is the public catalog: active drugs only.
func (s *CatalogService) ListDrugs(ctx context.Context, q DrugQuery) ([]model.Drug, int64, error) {
	active := true
	q.IsActive = &active
	items, total, err := s.Drugs.List(ctx, q)
	return items, total, apperr.Unavailable(err)
}

func (s *CatalogService) NotInInventory(ctx context.Context, a Actor) ([]model.Drug, error) {
	p, err := s.ownPharmacy(ctx, a)
	if err != nil {
		return nil, err
	}
	items, err := s.Drugs.ListNotInInventory(ctx, p.ID)
	return items, apperr.Unavailable(err)
}

// AddInventory makes one of the pharmacy's drugs sellable. A second row for
// the same drug fails with DUPLICATE_ENTRY and leaves the first untouched.
func (s *CatalogService) AddInventory(ctx context.Context, a Actor, in InventoryInput) (*model.Inventory, error) {
	if in.DrugID == 0 {
		return nil, apperr.Validation(map[string]string{"drugId": "drug is required"})
	}
	d, p, err := s.ownDrug(ctx, a, in.DrugID)
	if err != nil {
		return nil, err
	}
	if !d.IsActive {
		return nil, apperr.New(apperr.CodeConflict, "drug is inactive")
	}
	existing, err := s.Inventory.FindByPharmacyAndDrug(ctx, p.ID, d.ID)
	switch {
	case err == nil && existing != nil:
		return nil, apperr.New(apperr.CodeDuplicateEntry, "drug already exists in inventory")
	case err != nil && apperr.CodeOf(err) != apperr.CodeNotFound:
		return nil, apperr.Unavailable(err)
	}

	inv := &model.Inventory{PharmacyID: p.ID, DrugID: d.ID, PriceUnit: model.UnitDose, IsAvailable: true}
	if in.Price == nil {
		return nil, apperr.Validation(map[string]string{"price": "price is required"})
	}
	if err := applyInventory(inv, in); err != nil {
		return nil, err
	}
	if err := s.Inventory.Create(ctx, inv); err != nil {
		return nil, apperr.Unavailable(err)
	}
	return inv, nil
}

func (s *CatalogService) UpdateInventory(ctx context.Context, a Actor, id uint64, in InventoryInput) (*model.Inventory, error) {
	p, err := s.ownPharmacy(ctx, a)
	if err != nil {
		return nil, err
	}
	inv, err := s.Inventory.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Unavailable(err)
	}
	if inv.PharmacyID != p.ID {
		return nil, apperr.New(apperr.CodeForbidden, "inventory belongs to another pharmacy")
	}
	if err := applyInventory(inv, in); err != nil {
		return nil, err
	}
	if err := s.Inventory.Save(ctx, inv); err != nil {
		return nil, apperr.Unavailable(err)
	}
	return inv, nil
}

// PharmacyInventory lists a pharmacy's inventory joined with drugs.
func (s *CatalogService) PharmacyInventory(ctx context.Context, q InventoryQuery) ([]model.InventoryItem, error) {
	if _, err := s.Pharmacies.GetByID(ctx, q.PharmacyID); err != nil {
		return nil, apperr.Unavailable(err)
	}
	items, err := s.Inventory.ListByPharmacy(ctx, q)
	return items, apperr.Unavailable(err)
}

func applyDrug(d *model.Drug, in DrugInput) error {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	set(&d.Name, in.Name)
	set(&d.GenericName, in.GenericName)
	set(&d.Brand, in.Brand)
	set(&d.Description, in.Description)
	set(&d.Category, in.Category)
	set(&d.Manufacturer, in.Manufacturer)
	set(&d.Barcode, in.Barcode)
	set(&d.DosageInstructions, in.DosageInstructions)
	if in.Form != nil {
		d.Form = *in.Form
	}
	if in.Strength != nil {
		d.Strength = *in.Strength
	}
	if in.PrescriptionRequired != nil {
		d.PrescriptionRequired = *in.PrescriptionRequired
	}
	if in.SideEffects != nil {
		d.SideEffects = cleanList(in.SideEffects)
	}
	if in.IsActive != nil {
		d.IsActive = *in.IsActive
	}
	return nil
}

func validateDrug(d *model.Drug) error {
	f := map[string]string{}
	switch {
	case d.Name == "":
		f["name"] = "name is required"
	case len(d.Name) > 100:
		f["name"] = "name must be at most 100 characters"
	}
	switch {
	case d.Category == "":
		f["category"] = "category is required"
	case len(d.Category) > 50:
		f["category"] = "category must be at most 50 characters"
	}
	if len(d.Brand) > 50 {
		f["brand"] = "brand must be at most 50 characters"
	}
	if len(d.Description) > 500 {
		f["description"] = "description must be at most 500 characters"
	}
	if !d.Form.Valid() {
		f["form"] = "unknown dosage form"
	}
	if d.Strength.Value < 0 {
		f["strength.value"] = "strength must not be negative"
	}
	return apperr.Validation(f)
}

func applyInventory(inv *model.Inventory, in InventoryInput) error {
	f := map[string]string{}
	if in.Price != nil {
		if in.Price.IsNegative() {
			f["price"] = "price must not be negative"
		} else {
			inv.Price = in.Price.Round(2)
		}
	}
	if in.PriceUnit != nil {
		if in.PriceUnit.Valid() {
			inv.PriceUnit = *in.PriceUnit
		} else {
			f["priceUnit"] = "unknown price unit"
		}
	}
	if in.Quantity != nil {
		if *in.Quantity < 0 {
			f["quantity"] = "quantity must not be negative"
		} else {
			inv.Quantity = *in.Quantity
		}
	}
	if in.IsAvailable != nil {
		inv.IsAvailable = *in.IsAvailable
	}
	return apperr.Validation(f)
}
