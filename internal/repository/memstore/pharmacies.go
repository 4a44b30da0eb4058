package memstore

import (
	"context"
	"sort"
	"strings"

	"github.com/pharmapin/pharmapin/internal/apperr"
	"github.com/pharmapin/pharmapin/internal/geo"
	"github.com/pharmapin/pharmapin/internal/model"
	"github.com/pharmapin/pharmapin/internal/service"
)

type Pharmacies struct{ db *db }

var _ service.PharmacyStore = (*Pharmacies)(nil)

func (s *Pharmacies) conflicts(p *model.Pharmacy) error {
	for _, other := range s.db.pharmacies {
		if other.ID == p.ID {
			continue
		}
		if other.OwnerID == p.OwnerID {
			return apperr.New(apperr.CodeDuplicateEntry, "owner already has a pharmacy")
		}
		if p.LicenseNumber != "" && strings.EqualFold(other.LicenseNumber, p.LicenseNumber) {
			return apperr.New(apperr.CodeDuplicateEntry, "license number already registered")
		}
	}
	return nil
}

func (s *Pharmacies) Create(_ context.Context, p *model.Pharmacy) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	p.ID = 0
	if err := s.conflicts(p); err != nil {
		return err
	}
	now := s.db.now().UTC()
	p.ID = s.db.nextID("pharmacies")
	p.CreatedAt, p.UpdatedAt = now, now
	s.db.pharmacies[p.ID] = clonePharmacy(*p)
	return nil
}

func (s *Pharmacies) Save(_ context.Context, p *model.Pharmacy) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	cur, ok := s.db.pharmacies[p.ID]
	if !ok {
		return apperr.New(apperr.CodeNotFound, "pharmacy not found")
	}
	if err := s.conflicts(p); err != nil {
		return err
	}
	// Certificates are only appended through AddCertificates.
	p.Certificates = cur.Certificates
	p.UpdatedAt = s.db.now().UTC()
	s.db.pharmacies[p.ID] = clonePharmacy(*p)
	return nil
}

func (s *Pharmacies) GetByID(_ context.Context, id uint64) (*model.Pharmacy, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	p, ok := s.db.pharmacies[id]
	if !ok {
		return nil, apperr.New(apperr.CodeNotFound, "pharmacy not found")
	}
	p = clonePharmacy(p)
	return &p, nil
}

func (s *Pharmacies) GetByOwner(_ context.Context, ownerID uint64) (*model.Pharmacy, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, p := range s.db.pharmacies {
		if p.OwnerID == ownerID {
			p = clonePharmacy(p)
			return &p, nil
		}
	}
	return nil, apperr.New(apperr.CodeNotFound, "pharmacy not found")
}

func (s *Pharmacies) List(_ context.Context, q service.PharmacyQuery) ([]model.Pharmacy, int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	out := []model.Pharmacy{}
	for _, p := range s.db.pharmacies {
		if q.Status != "" && p.Status != q.Status {
			continue
		}
		if q.PublicOnly && !p.Searchable() {
			continue
		}
		if q.Search != "" && !containsFold(p.Name+"\x00"+p.Description, q.Search) {
			continue
		}
		if q.City != "" && !containsFold(p.Address.City, q.City) {
			continue
		}
		if q.Origin != nil && (!p.HasLocation() || geo.DistanceKm(*q.Origin, p.Location) > q.RadiusKm) {
			continue
		}
		out = append(out, clonePharmacy(p))
	}
	if q.Origin != nil {
		o := *q.Origin
		sort.SliceStable(out, func(i, j int) bool {
			return geo.DistanceKm(o, out[i].Location) < geo.DistanceKm(o, out[j].Location)
		})
	} else {
		sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	}
	return paginate(out, q.Page), int64(len(out)), nil
}

func (s *Pharmacies) AddCertificates(_ context.Context, pharmacyID uint64, certs []model.Certificate) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	p, ok := s.db.pharmacies[pharmacyID]
	if !ok {
		return apperr.New(apperr.CodeNotFound, "pharmacy not found")
	}
	for i := range certs {
		certs[i].ID = s.db.nextID("certificates")
		p.Certificates = append(p.Certificates, certs[i])
	}
	p.UpdatedAt = s.db.now().UTC()
	s.db.pharmacies[pharmacyID] = p
	return nil
}

func (s *Pharmacies) Deactivate(_ context.Context, id uint64) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	p, ok := s.db.pharmacies[id]
	if !ok {
		return apperr.New(apperr.CodeNotFound, "pharmacy not found")
	}
	now := s.db.now().UTC()
	p.IsActive = false
	p.UpdatedAt = now
	s.db.pharmacies[id] = p
	for did, d := range s.db.drugs {
		if d.PharmacyID == id && d.IsActive {
			d.IsActive = false
			d.UpdatedAt = now
			s.db.drugs[did] = d
		}
	}
	for iid, inv := range s.db.inventory {
		if inv.PharmacyID == id && inv.IsAvailable {
			inv.IsAvailable = false
			inv.UpdatedAt = now
			s.db.inventory[iid] = inv
		}
	}
	return nil
}

func (s *Pharmacies) CountByStatus(context.Context) (map[model.PharmacyStatus]int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	out := map[model.PharmacyStatus]int64{
		model.StatusDraft: 0, model.StatusPendingApproval: 0, model.StatusApproved: 0, model.StatusRejected: 0,
	}
	for _, p := range s.db.pharmacies {
		out[p.Status]++
	}
	return out, nil
}
