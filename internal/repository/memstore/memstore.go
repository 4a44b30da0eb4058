// Package memstore keeps every table in process memory behind one mutex.
// It backs STORE_DRIVER=memory and the service and handler tests. Values are
// copied on the way in and out so callers never share state with the store.
package memstore

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/pharmapin/pharmapin/internal/model"
	"github.com/pharmapin/pharmapin/internal/service"
)

type tokenRow struct {
	userID  uint64
	exp     time.Time
	revoked bool
}

type db struct {
	mu  sync.Mutex
	now func() time.Time
	seq map[string]uint64

	users      map[uint64]model.User
	tokens     map[string]tokenRow
	pharmacies map[uint64]model.Pharmacy
	drugs      map[uint64]model.Drug
	inventory  map[uint64]model.Inventory
	orders     map[uint64]model.Order
	patients   map[uint64]model.Patient
}

func (d *db) nextID(table string) uint64 {
	d.seq[table]++
	return d.seq[table]
}

// Store groups the per-table facets. Each facet satisfies the matching
// interface in package service.
type Store struct {
	Users      *Users
	Tokens     *Tokens
	Pharmacies *Pharmacies
	Drugs      *Drugs
	Inventory  *Inventory
	Orders     *Orders
	Patients   *Patients
	Search     *Search

	db *db
}

func New() *Store {
	d := &db{
		now:        time.Now,
		seq:        map[string]uint64{},
		users:      map[uint64]model.User{},
		tokens:     map[string]tokenRow{},
		pharmacies: map[uint64]model.Pharmacy{},
		drugs:      map[uint64]model.Drug{},
		inventory:  map[uint64]model.Inventory{},
		orders:     map[uint64]model.Order{},
		patients:   map[uint64]model.Patient{},
	}
	return &Store{
		Users:      &Users{d},
		Tokens:     &Tokens{d},
		Pharmacies: &Pharmacies{d},
		Drugs:      &Drugs{d},
		Inventory:  &Inventory{d},
		Orders:     &Orders{d},
		Patients:   &Patients{d},
		Search:     &Search{d},
		db:         d,
	}
}

// SetClock replaces the timestamp source. Tests use it for stable ordering.
func (s *Store) SetClock(now func() time.Time) {
	s.db.mu.Lock()
	s.db.now = now
	s.db.mu.Unlock()
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

func paginate[T any](items []T, p service.Page) []T {
	if p.Limit <= 0 {
		return items
	}
	off := p.Offset()
	if off >= len(items) {
		return []T{}
	}
	end := off + p.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[off:end]
}

func containsFold(hay, needle string) bool {
	return strings.Contains(strings.ToLower(hay), strings.ToLower(needle))
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}

func clonePharmacy(p model.Pharmacy) model.Pharmacy {
	p.Services = cloneStrings(p.Services)
	p.OperatingHours.Days = cloneStrings(p.OperatingHours.Days)
	if p.Certificates != nil {
		p.Certificates = append([]model.Certificate(nil), p.Certificates...)
	}
	if p.ApprovedBy != nil {
		v := *p.ApprovedBy
		p.ApprovedBy = &v
	}
	if p.ApprovedAt != nil {
		v := *p.ApprovedAt
		p.ApprovedAt = &v
	}
	return p
}

func cloneDrug(d model.Drug) model.Drug {
	d.SideEffects = cloneStrings(d.SideEffects)
	return d
}

func cloneOrder(o model.Order) model.Order {
	o.Items = append([]model.OrderItem(nil), o.Items...)
	if o.ActualDelivery != nil {
		v := *o.ActualDelivery
		o.ActualDelivery = &v
	}
	return o
}

func clonePatient(p model.Patient) model.Patient {
	addrs := make([]model.PatientAddress, len(p.Addresses))
	for i, a := range p.Addresses {
		if a.Coordinates != nil {
			c := *a.Coordinates
			a.Coordinates = &c
		}
		addrs[i] = a
	}
	p.Addresses = addrs
	p.FavoritePharmacies = append([]uint64{}, p.FavoritePharmacies...)
	return p
}
