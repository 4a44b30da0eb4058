package memstore

import (
	"context"

	"github.com/pharmapin/pharmapin/internal/apperr"
	"github.com/pharmapin/pharmapin/internal/model"
	"github.com/pharmapin/pharmapin/internal/service"
)

type Patients struct{ db *db }

var _ service.PatientStore = (*Patients)(nil)

// load returns the patient row, creating it when missing. Callers hold mu.
func (s *Patients) load(userID uint64) model.Patient {
	p, ok := s.db.patients[userID]
	if !ok {
		p = model.Patient{UserID: userID, Addresses: []model.PatientAddress{}, FavoritePharmacies: []uint64{}, CreatedAt: s.db.now().UTC()}
		s.db.patients[userID] = p
	}
	return clonePatient(p)
}

func (s *Patients) GetOrCreate(_ context.Context, userID uint64) (*model.Patient, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	p := s.load(userID)
	return &p, nil
}

func (s *Patients) AddAddress(_ context.Context, userID uint64, a *model.PatientAddress) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	p := s.load(userID)
	a.ID = s.db.nextID("patient_addresses")
	a.CreatedAt = s.db.now().UTC()
	p.Addresses = append(p.Addresses, *a)
	s.db.patients[userID] = p
	return nil
}

func (s *Patients) UpdateAddress(_ context.Context, userID uint64, a *model.PatientAddress) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	p := s.load(userID)
	for i := range p.Addresses {
		if p.Addresses[i].ID == a.ID {
			a.CreatedAt = p.Addresses[i].CreatedAt
			p.Addresses[i] = *a
			s.db.patients[userID] = p
			return nil
		}
	}
	return apperr.New(apperr.CodeNotFound, "address not found")
}

func (s *Patients) DeleteAddress(_ context.Context, userID, addressID uint64) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	p := s.load(userID)
	for i := range p.Addresses {
		if p.Addresses[i].ID == addressID {
			p.Addresses = append(p.Addresses[:i], p.Addresses[i+1:]...)
			s.db.patients[userID] = p
			return nil
		}
	}
	return apperr.New(apperr.CodeNotFound, "address not found")
}

func (s *Patients) SetDefaultAddress(_ context.Context, userID, addressID uint64) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	p := s.load(userID)
	found := false
	for i := range p.Addresses {
		p.Addresses[i].IsDefault = p.Addresses[i].ID == addressID
		found = found || p.Addresses[i].IsDefault
	}
	if !found {
		return apperr.New(apperr.CodeNotFound, "address not found")
	}
	s.db.patients[userID] = p
	return nil
}

func (s *Patients) ToggleFavorite(_ context.Context, userID, pharmacyID uint64) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	p := s.load(userID)
	for i, id := range p.FavoritePharmacies {
		if id == pharmacyID {
			p.FavoritePharmacies = append(p.FavoritePharmacies[:i], p.FavoritePharmacies[i+1:]...)
			s.db.patients[userID] = p
			return false, nil
		}
	}
	p.FavoritePharmacies = append(p.FavoritePharmacies, pharmacyID)
	s.db.patients[userID] = p
	return true, nil
}
