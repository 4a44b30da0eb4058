package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/pharmapin/pharmapin/internal/apperr"
	"github.com/pharmapin/pharmapin/internal/model"
	"github.com/pharmapin/pharmapin/internal/repository/memstore"
	"github.com/pharmapin/pharmapin/internal/service"
)

func defaults(addrs []model.PatientAddress) []uint64 {
	var out []uint64
	for _, a := range addrs {
		if a.IsDefault {
			out = append(out, a.ID)
		}
	}
	return out
}

func TestAddressDefaults(t *testing.T) {
	st := memstore.New()
	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	st.SetClock(func() time.Time { clock = clock.Add(time.Minute); return clock })
	svc := service.NewPatientService(st.Patients, st.Pharmacies)
	ctx := context.Background()

	home, err := svc.AddAddress(ctx, patient, service.AddressInput{Address: ptr("Ngong Rd 12"), City: ptr("Nairobi")})
	if err != nil {
		t.Fatalf("add home: %v", err)
	}
	if !home.IsDefault {
		t.Fatalf("first address should become default")
	}
	work, err := svc.AddAddress(ctx, patient, service.AddressInput{
		Label: ptr(model.LabelWork), Address: ptr("Upper Hill"), City: ptr("Nairobi"),
	})
	if err != nil {
		t.Fatalf("add work: %v", err)
	}
	other, err := svc.AddAddress(ctx, patient, service.AddressInput{
		Label: ptr(model.LabelOther), Address: ptr("Karen"), City: ptr("Nairobi"), IsDefault: ptr(true),
	})
	if err != nil {
		t.Fatalf("add other: %v", err)
	}
	addrs, _ := svc.Addresses(ctx, patient)
	if d := defaults(addrs); len(d) != 1 || d[0] != other.ID {
		t.Fatalf("want only %d default, got %v", other.ID, d)
	}

	if err := svc.DeleteAddress(ctx, patient, other.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	addrs, _ = svc.Addresses(ctx, patient)
	if d := defaults(addrs); len(d) != 1 || d[0] != home.ID {
		t.Fatalf("oldest address not promoted: %v", d)
	}

	if err := svc.SetDefaultAddress(ctx, patient, work.ID); err != nil {
		t.Fatalf("set default: %v", err)
	}
	addrs, _ = svc.Addresses(ctx, patient)
	if d := defaults(addrs); len(d) != 1 || d[0] != work.ID {
		t.Fatalf("set default: %v", d)
	}

	if _, err := svc.AddAddress(ctx, patient, service.AddressInput{Label: ptr(model.AddressLabel("cabin"))}); apperr.CodeOf(err) != apperr.CodeValidation {
		t.Fatalf("bad label: want VALIDATION_ERROR, got %v", err)
	}
	if err := svc.DeleteAddress(ctx, patient, 999); apperr.CodeOf(err) != apperr.CodeNotFound {
		t.Fatalf("unknown address: want NOT_FOUND, got %v", err)
	}
}

func TestToggleFavorite(t *testing.T) {
	f := newFixture(t)
	svc := service.NewPatientService(f.st.Patients, f.st.Pharmacies)
	ctx := context.Background()

	on, err := svc.ToggleFavorite(ctx, patient, f.pharmacy.ID)
	if err != nil || !on {
		t.Fatalf("first toggle: %v %v", on, err)
	}
	favs, _ := svc.Favorites(ctx, patient)
	if len(favs) != 1 || favs[0].ID != f.pharmacy.ID {
		t.Fatalf("favorites: %+v", favs)
	}
	on, err = svc.ToggleFavorite(ctx, patient, f.pharmacy.ID)
	if err != nil || on {
		t.Fatalf("second toggle: %v %v", on, err)
	}
	if _, err := svc.ToggleFavorite(ctx, patient, 404); apperr.CodeOf(err) != apperr.CodeNotFound {
		t.Fatalf("unknown pharmacy: want NOT_FOUND, got %v", err)
	}
	if _, err := svc.Profile(ctx, pharmacist); apperr.CodeOf(err) != apperr.CodeForbidden {
		t.Fatalf("pharmacist profile: want FORBIDDEN, got %v", err)
	}
}
