package repository

import (
	"context"
	"database/sql"
)

// Store groups the MySQL repositories behind one connection pool.
type Store struct {
	Users      *UserRepo
	Tokens     *TokenRepo
	Pharmacies *PharmacyRepo
	Drugs      *DrugRepo
	Inventory  *InventoryRepo
	Orders     *OrderRepo
	Patients   *PatientRepo
	Search     *SearchRepo

	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		Users:      NewUserRepo(db),
		Tokens:     NewTokenRepo(db),
		Pharmacies: NewPharmacyRepo(db),
		Drugs:      NewDrugRepo(db),
		Inventory:  NewInventoryRepo(db),
		Orders:     NewOrderRepo(db),
		Patients:   NewPatientRepo(db),
		Search:     NewSearchRepo(db),
		db:         db,
	}
}

// Ping reports whether the database answers.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }
