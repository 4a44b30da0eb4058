package memstore

import (
	"context"
	"sort"
	"strings"

	"github.com/pharmapin/pharmapin/internal/apperr"
	"github.com/pharmapin/pharmapin/internal/model"
	"github.com/pharmapin/pharmapin/internal/service"
)

type Drugs struct{ db *db }

var _ service.DrugStore = (*Drugs)(nil)

func (s *Drugs) Create(_ context.Context, d *model.Drug) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.pharmacies[d.PharmacyID]; !ok {
		return apperr.New(apperr.CodeNotFound, "pharmacy not found")
	}
	now := s.db.now().UTC()
	d.ID = s.db.nextID("drugs")
	d.CreatedAt, d.UpdatedAt = now, now
	s.db.drugs[d.ID] = cloneDrug(*d)
	return nil
}

func (s *Drugs) Save(_ context.Context, d *model.Drug) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.drugs[d.ID]; !ok {
		return apperr.New(apperr.CodeNotFound, "drug not found")
	}
	d.UpdatedAt = s.db.now().UTC()
	s.db.drugs[d.ID] = cloneDrug(*d)
	return nil
}

func (s *Drugs) GetByID(_ context.Context, id uint64) (*model.Drug, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	d, ok := s.db.drugs[id]
	if !ok {
		return nil, apperr.New(apperr.CodeNotFound, "drug not found")
	}
	d = cloneDrug(d)
	return &d, nil
}

func drugMatches(d model.Drug, search string) bool {
	return search == "" || containsFold(d.Name+"\x00"+d.GenericName+"\x00"+d.Brand+"\x00"+d.Description+"\x00"+d.Category, search)
}

func (s *Drugs) List(_ context.Context, q service.DrugQuery) ([]model.Drug, int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	out := []model.Drug{}
	for _, d := range s.db.drugs {
		if q.PharmacyID != 0 && d.PharmacyID != q.PharmacyID {
			continue
		}
		if q.IsActive != nil && d.IsActive != *q.IsActive {
			continue
		}
		if q.PrescriptionRequired != nil && d.PrescriptionRequired != *q.PrescriptionRequired {
			continue
		}
		if q.Category != "" && !strings.EqualFold(d.Category, q.Category) {
			continue
		}
		if !drugMatches(d, q.Search) {
			continue
		}
		out = append(out, cloneDrug(d))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return paginate(out, q.Page), int64(len(out)), nil
}

func (s *Drugs) ListNotInInventory(_ context.Context, pharmacyID uint64) ([]model.Drug, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	stocked := map[uint64]bool{}
	for _, inv := range s.db.inventory {
		if inv.PharmacyID == pharmacyID {
			stocked[inv.DrugID] = true
		}
	}
	out := []model.Drug{}
	for _, d := range s.db.drugs {
		if d.PharmacyID == pharmacyID && d.IsActive && !stocked[d.ID] {
			out = append(out, cloneDrug(d))
		}
	}
	sort.Slice(out, func(i, j int) bool { return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name) })
	return out, nil
}

func (s *Drugs) Deactivate(_ context.Context, id uint64) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	d, ok := s.db.drugs[id]
	if !ok {
		return apperr.New(apperr.CodeNotFound, "drug not found")
	}
	now := s.db.now().UTC()
	d.IsActive = false
	d.UpdatedAt = now
	s.db.drugs[id] = d
	for iid, inv := range s.db.inventory {
		if inv.DrugID == id && inv.IsAvailable {
			inv.IsAvailable = false
			inv.UpdatedAt = now
			s.db.inventory[iid] = inv
		}
	}
	return nil
}

func (s *Drugs) Count(context.Context) (int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return int64(len(s.db.drugs)), nil
}

type Inventory struct{ db *db }

var _ service.InventoryStore = (*Inventory)(nil)

func (s *Inventory) pairTaken(inv *model.Inventory) bool {
	for _, other := range s.db.inventory {
		if other.ID != inv.ID && other.PharmacyID == inv.PharmacyID && other.DrugID == inv.DrugID {
			return true
		}
	}
	return false
}

func (s *Inventory) Create(_ context.Context, inv *model.Inventory) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	inv.ID = 0
	if s.pairTaken(inv) {
		return apperr.New(apperr.CodeDuplicateEntry, "drug already exists in inventory")
	}
	now := s.db.now().UTC()
	inv.ID = s.db.nextID("inventory")
	inv.CreatedAt, inv.UpdatedAt = now, now
	s.db.inventory[inv.ID] = *inv
	return nil
}

func (s *Inventory) Save(_ context.Context, inv *model.Inventory) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.inventory[inv.ID]; !ok {
		return apperr.New(apperr.CodeNotFound, "inventory not found")
	}
	if s.pairTaken(inv) {
		return apperr.New(apperr.CodeDuplicateEntry, "drug already exists in inventory")
	}
	inv.UpdatedAt = s.db.now().UTC()
	s.db.inventory[inv.ID] = *inv
	return nil
}

func (s *Inventory) GetByID(_ context.Context, id uint64) (*model.Inventory, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	inv, ok := s.db.inventory[id]
	if !ok {
		return nil, apperr.New(apperr.CodeNotFound, "inventory not found")
	}
	return &inv, nil
}

func (s *Inventory) FindByPharmacyAndDrug(_ context.Context, pharmacyID, drugID uint64) (*model.Inventory, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, inv := range s.db.inventory {
		if inv.PharmacyID == pharmacyID && inv.DrugID == drugID {
			return &inv, nil
		}
	}
	return nil, apperr.New(apperr.CodeNotFound, "inventory not found")
}

func (s *Inventory) ListByPharmacy(_ context.Context, q service.InventoryQuery) ([]model.InventoryItem, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	out := []model.InventoryItem{}
	for _, inv := range s.db.inventory {
		if inv.PharmacyID != q.PharmacyID {
			continue
		}
		if q.InStockOnly && !inv.IsAvailable {
			continue
		}
		d, ok := s.db.drugs[inv.DrugID]
		if !ok {
			continue
		}
		if q.Category != "" && !strings.EqualFold(d.Category, q.Category) {
			continue
		}
		if !drugMatches(d, q.Search) {
			continue
		}
		out = append(out, model.InventoryItem{Inventory: inv, Drug: cloneDrug(d)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
