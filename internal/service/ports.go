// Package service holds the application rules for pharmacies, the drug
// catalog, inventory, orders, patients and administration. Services talk to
// storage through the interfaces in this file; MySQL and in-memory
// implementations live under internal/repository.
package service

import (
	"context"
	"time"

	"github.com/pharmapin/pharmapin/internal/geo"
	"github.com/pharmapin/pharmapin/internal/model"
)

// Page is a normalized 1-based page request.
type Page struct {
	Page  int
	Limit int
}

// NewPage clamps page to >= 1 and limit to 1..100 (default 10).
func NewPage(page, limit int) Page {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	return Page{Page: page, Limit: limit}
}

func (p Page) Offset() int { return (p.Page - 1) * p.Limit }

type UserQuery struct {
	Search string
	Role   model.Role
	Page
}

type PharmacyQuery struct {
	Status     model.PharmacyStatus
	PublicOnly bool // active and verified
	Search     string
	City       string
	Origin     *geo.Point
	RadiusKm   float64
	Page
}

type DrugQuery struct {
	PharmacyID           uint64
	Search               string
	Category             string
	IsActive             *bool
	PrescriptionRequired *bool
	Page
}

type InventoryQuery struct {
	PharmacyID  uint64
	Search      string
	Category    string
	InStockOnly bool
}

type OrderQuery struct {
	PatientID  uint64
	PharmacyID uint64
	Status     model.OrderStatus
	Page
}

type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id uint64) (*model.User, error)
	List(ctx context.Context, q UserQuery) ([]model.User, int64, error)
	Save(ctx context.Context, u *model.User) error
	CountByRole(ctx context.Context) (map[model.Role]int64, error)
}

type TokenStore interface {
	StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
	ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error)
	RevokeByHash(ctx context.Context, tokenHash string) error
	RevokeAllForUser(ctx context.Context, userID uint64) error
}

type PharmacyStore interface {
	Create(ctx context.Context, p *model.Pharmacy) error
	Save(ctx context.Context, p *model.Pharmacy) error
	GetByID(ctx context.Context, id uint64) (*model.Pharmacy, error)
	GetByOwner(ctx context.Context, ownerID uint64) (*model.Pharmacy, error)
	List(ctx context.Context, q PharmacyQuery) ([]model.Pharmacy, int64, error)
	AddCertificates(ctx context.Context, pharmacyID uint64, certs []model.Certificate) error
	// Deactivate soft-deletes the pharmacy and propagates: its drugs become
	// inactive and its inventory rows unavailable.
	Deactivate(ctx context.Context, id uint64) error
	CountByStatus(ctx context.Context) (map[model.PharmacyStatus]int64, error)
}

type DrugStore interface {
	Create(ctx context.Context, d *model.Drug) error
	Save(ctx context.Context, d *model.Drug) error
	GetByID(ctx context.Context, id uint64) (*model.Drug, error)
	List(ctx context.Context, q DrugQuery) ([]model.Drug, int64, error)
	ListNotInInventory(ctx context.Context, pharmacyID uint64) ([]model.Drug, error)
	// Deactivate soft-deletes the drug and marks its inventory unavailable.
	Deactivate(ctx context.Context, id uint64) error
	Count(ctx context.Context) (int64, error)
}

type InventoryStore interface {
	// Create fails with DUPLICATE_ENTRY when the (pharmacy, drug) pair exists.
	Create(ctx context.Context, inv *model.Inventory) error
	Save(ctx context.Context, inv *model.Inventory) error
	GetByID(ctx context.Context, id uint64) (*model.Inventory, error)
	FindByPharmacyAndDrug(ctx context.Context, pharmacyID, drugID uint64) (*model.Inventory, error)
	ListByPharmacy(ctx context.Context, q InventoryQuery) ([]model.InventoryItem, error)
}

type OrderStore interface {
	// InTx runs fn in one transaction; any error rolls back every change
	// fn made through tx.
	InTx(ctx context.Context, fn func(tx OrderTx) error) error
	GetByID(ctx context.Context, id uint64) (*model.Order, error)
	List(ctx context.Context, q OrderQuery) ([]model.Order, int64, error)
	UpdateStatus(ctx context.Context, o *model.Order) error
	Count(ctx context.Context) (int64, error)
}

type OrderTx interface {
	GetInventory(ctx context.Context, id uint64) (*model.Inventory, error)
	// DecrementStock subtracts qty only if at least qty is on hand and the
	// row is available, as one indivisible update. Otherwise it fails with
	// INSUFFICIENT_STOCK and changes nothing.
	DecrementStock(ctx context.Context, inventoryID uint64, qty int) error
	// InsertOrder fails with DUPLICATE_ENTRY on an order-number collision.
	InsertOrder(ctx context.Context, o *model.Order) error
}

type PatientStore interface {
	GetOrCreate(ctx context.Context, userID uint64) (*model.Patient, error)
	AddAddress(ctx context.Context, userID uint64, a *model.PatientAddress) error
	UpdateAddress(ctx context.Context, userID uint64, a *model.PatientAddress) error
	DeleteAddress(ctx context.Context, userID, addressID uint64) error
	// SetDefaultAddress marks one address default and clears the rest.
	SetDefaultAddress(ctx context.Context, userID, addressID uint64) error
	// ToggleFavorite reports whether the pharmacy is a favourite afterwards.
	ToggleFavorite(ctx context.Context, userID, pharmacyID uint64) (bool, error)
}

// EventPublisher delivers domain events. Implementations must be safe for
// concurrent use.
type EventPublisher interface {
	Publish(ctx context.Context, queue string, payload any) error
}

// Actor is the authenticated caller.
type Actor struct {
	UserID uint64
	Role   model.Role
}

func (a Actor) IsAdmin() bool { return a.Role == model.RoleAdmin }
