package service

import (
	"context"
	"errors"
	"strings"

	"github.com/pharmapin/pharmapin/internal/apperr"
	"github.com/pharmapin/pharmapin/internal/geo"
	"github.com/pharmapin/pharmapin/internal/model"
)

type AddressInput struct {
	Label       *model.AddressLabel `json:"label"`
	Address     *string             `json:"address"`
	City        *string             `json:"city"`
	Coordinates *geo.Point          `json:"coordinates"`
	IsDefault   *bool               `json:"isDefault"`
}

// PatientService owns the patient profile, saved addresses and favourite
// pharmacies. The profile row is created on first access.
type PatientService struct {
	Patients   PatientStore
	Pharmacies PharmacyStore
}

func NewPatientService(p PatientStore, ph PharmacyStore) *PatientService {
	if p == nil || ph == nil {
		panic("nil store passed to NewPatientService")
	}
	return &PatientService{Patients: p, Pharmacies: ph}
}

func (s *PatientService) Profile(ctx context.Context, a Actor) (*model.Patient, error) {
	if a.Role != model.RolePatient {
		return nil, apperr.New(apperr.CodeForbidden, "patients only")
	}
	p, err := s.Patients.GetOrCreate(ctx, a.UserID)
	if err != nil {
		return nil, apperr.Unavailable(err)
	}
	return p, nil
}

func (s *PatientService) Addresses(ctx context.Context, a Actor) ([]model.PatientAddress, error) {
	p, err := s.Profile(ctx, a)
	if err != nil {
		return nil, err
	}
	if p.Addresses == nil {
		return []model.PatientAddress{}, nil
	}
	return p.Addresses, nil
}

// AddAddress saves a new address. The first address, or one flagged
// isDefault, becomes the default.
func (s *PatientService) AddAddress(ctx context.Context, a Actor, in AddressInput) (*model.PatientAddress, error) {
	p, err := s.Profile(ctx, a)
	if err != nil {
		return nil, err
	}
	addr := &model.PatientAddress{Label: model.LabelHome}
	if err := applyAddress(addr, in); err != nil {
		return nil, err
	}
	if addr.Address == "" || addr.City == "" {
		f := map[string]string{}
		if addr.Address == "" {
			f["address"] = "address is required"
		}
		if addr.City == "" {
			f["city"] = "city is required"
		}
		return nil, apperr.Validation(f)
	}
	makeDefault := len(p.Addresses) == 0 || addr.IsDefault
	addr.IsDefault = false
	if err := s.Patients.AddAddress(ctx, a.UserID, addr); err != nil {
		return nil, apperr.Unavailable(err)
	}
	if makeDefault {
		if err := s.Patients.SetDefaultAddress(ctx, a.UserID, addr.ID); err != nil {
			return nil, apperr.Unavailable(err)
		}
		addr.IsDefault = true
	}
	return addr, nil
}

func (s *PatientService) UpdateAddress(ctx context.Context, a Actor, id uint64, in AddressInput) (*model.PatientAddress, error) {
	p, err := s.Profile(ctx, a)
	if err != nil {
		return nil, err
	}
	cur := findAddress(p, id)
	if cur == nil {
		return nil, apperr.New(apperr.CodeNotFound, "address not found")
	}
	addr := *cur
	wasDefault := addr.IsDefault
	if err := applyAddress(&addr, in); err != nil {
		return nil, err
	}
	if addr.Address == "" || addr.City == "" {
		return nil, apperr.Validation(map[string]string{"address": "address and city must not be empty"})
	}
	// Default changes go through SetDefaultAddress so the others are cleared.
	wantDefault := addr.IsDefault
	addr.IsDefault = wasDefault
	if err := s.Patients.UpdateAddress(ctx, a.UserID, &addr); err != nil {
		return nil, apperr.Unavailable(err)
	}
	if wantDefault && !wasDefault {
		if err := s.Patients.SetDefaultAddress(ctx, a.UserID, addr.ID); err != nil {
			return nil, apperr.Unavailable(err)
		}
		addr.IsDefault = true
	}
	return &addr, nil
}

// DeleteAddress removes an address. When it was the default, the oldest
// remaining address is promoted.
func (s *PatientService) DeleteAddress(ctx context.Context, a Actor, id uint64) error {
	p, err := s.Profile(ctx, a)
	if err != nil {
		return err
	}
	cur := findAddress(p, id)
	if cur == nil {
		return apperr.New(apperr.CodeNotFound, "address not found")
	}
	wasDefault := cur.IsDefault
	if err := s.Patients.DeleteAddress(ctx, a.UserID, id); err != nil {
		return apperr.Unavailable(err)
	}
	if !wasDefault {
		return nil
	}
	var oldest *model.PatientAddress
	for i := range p.Addresses {
		ad := &p.Addresses[i]
		if ad.ID == id {
			continue
		}
		if oldest == nil || ad.CreatedAt.Before(oldest.CreatedAt) ||
			(ad.CreatedAt.Equal(oldest.CreatedAt) && ad.ID < oldest.ID) {
			oldest = ad
		}
	}
	if oldest == nil {
		return nil
	}
	return apperr.Unavailable(s.Patients.SetDefaultAddress(ctx, a.UserID, oldest.ID))
}

func (s *PatientService) SetDefaultAddress(ctx context.Context, a Actor, id uint64) error {
	p, err := s.Profile(ctx, a)
	if err != nil {
		return err
	}
	if findAddress(p, id) == nil {
		return apperr.New(apperr.CodeNotFound, "address not found")
	}
	return apperr.Unavailable(s.Patients.SetDefaultAddress(ctx, a.UserID, id))
}

// Favorites resolves the favourite list to pharmacies, skipping ones that
// no longer exist.
func (s *PatientService) Favorites(ctx context.Context, a Actor) ([]model.Pharmacy, error) {
	p, err := s.Profile(ctx, a)
	if err != nil {
		return nil, err
	}
	out := make([]model.Pharmacy, 0, len(p.FavoritePharmacies))
	for _, id := range p.FavoritePharmacies {
		ph, err := s.Pharmacies.GetByID(ctx, id)
		if errors.Is(err, apperr.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, apperr.Unavailable(err)
		}
		out = append(out, *ph)
	}
	return out, nil
}

// ToggleFavorite adds or removes a pharmacy and reports whether it is now a
// favourite.
func (s *PatientService) ToggleFavorite(ctx context.Context, a Actor, pharmacyID uint64) (bool, error) {
	if _, err := s.Profile(ctx, a); err != nil {
		return false, err
	}
	if _, err := s.Pharmacies.GetByID(ctx, pharmacyID); err != nil {
		return false, apperr.Unavailable(err)
	}
	fav, err := s.Patients.ToggleFavorite(ctx, a.UserID, pharmacyID)
	return fav, apperr.Unavailable(err)
}

func findAddress(p *model.Patient, id uint64) *model.PatientAddress {
	for i := range p.Addresses {
		if p.Addresses[i].ID == id {
			return &p.Addresses[i]
		}
	}
	return nil
}

func applyAddress(addr *model.PatientAddress, in AddressInput) error {
	f := map[string]string{}
	if in.Label != nil {
		if in.Label.Valid() {
			addr.Label = *in.Label
		} else {
			f["label"] = "label must be home, work or other"
		}
	}
	if in.Address != nil {
		addr.Address = strings.TrimSpace(*in.Address)
	}
	if in.City != nil {
		addr.City = strings.TrimSpace(*in.City)
	}
	if in.Coordinates != nil {
		if err := in.Coordinates.Validate(); err != nil {
			f["coordinates"] = err.Error()
		} else {
			c := *in.Coordinates
			addr.Coordinates = &c
		}
	}
	if in.IsDefault != nil {
		addr.IsDefault = *in.IsDefault
	}
	return apperr.Validation(f)
}
