package repository

import (
	"context"
	"database/sql"

	"github.com/pharmapin/pharmapin/internal/apperr"
	"github.com/pharmapin/pharmapin/internal/geo"
	"github.com/pharmapin/pharmapin/internal/model"
	"github.com/pharmapin/pharmapin/internal/service"
)

type PatientRepo struct{ DB *sql.DB }

func NewPatientRepo(db *sql.DB) *PatientRepo { return &PatientRepo{DB: db} }

var _ service.PatientStore = (*PatientRepo)(nil)

// ensure creates the patients row on first use. Addresses and favourites
// reference it.
func (r *PatientRepo) ensure(ctx context.Context, userID uint64) error {
	_, err := r.DB.ExecContext(ctx, "INSERT IGNORE INTO patients (user_id) VALUES (?)", userID)
	return translate(err, "patient")
}

func (r *PatientRepo) GetOrCreate(ctx context.Context, userID uint64) (*model.Patient, error) {
	if err := r.ensure(ctx, userID); err != nil {
		return nil, err
	}
	p := &model.Patient{UserID: userID, Addresses: []model.PatientAddress{}, FavoritePharmacies: []uint64{}}
	if err := r.DB.QueryRowContext(ctx, "SELECT created_at FROM patients WHERE user_id=?", userID).Scan(&p.CreatedAt); err != nil {
		return nil, translate(err, "patient")
	}

	rows, err := r.DB.QueryContext(ctx, `SELECT id,label,address,city,lat,lng,is_default,created_at
		FROM patient_addresses WHERE user_id=? ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, translate(err, "addresses")
	}
	defer rows.Close()
	for rows.Next() {
		var a model.PatientAddress
		var lat, lng sql.NullFloat64
		if err := rows.Scan(&a.ID, &a.Label, &a.Address, &a.City, &lat, &lng, &a.IsDefault, &a.CreatedAt); err != nil {
			return nil, translate(err, "addresses")
		}
		if lat.Valid && lng.Valid {
			pt := geo.NewPoint(lat.Float64, lng.Float64)
			a.Coordinates = &pt
		}
		p.Addresses = append(p.Addresses, a)
	}
	if err := rows.Err(); err != nil {
		return nil, translate(err, "addresses")
	}

	favs, err := r.DB.QueryContext(ctx,
		"SELECT pharmacy_id FROM patient_favorite_pharmacies WHERE user_id=? ORDER BY created_at, pharmacy_id", userID)
	if err != nil {
		return nil, translate(err, "favorites")
	}
	defer favs.Close()
	for favs.Next() {
		var id uint64
		if err := favs.Scan(&id); err != nil {
			return nil, translate(err, "favorites")
		}
		p.FavoritePharmacies = append(p.FavoritePharmacies, id)
	}
	return p, translate(favs.Err(), "favorites")
}

func coordArgs(a *model.PatientAddress) (lat, lng any) {
	if a.Coordinates == nil {
		return nil, nil
	}
	return a.Coordinates.Lat, a.Coordinates.Lng
}

// AddAddress stores the address as non-default; the service promotes it
// through SetDefaultAddress so the one-default rule lives in one place.
func (r *PatientRepo) AddAddress(ctx context.Context, userID uint64, a *model.PatientAddress) error {
	if err := r.ensure(ctx, userID); err != nil {
		return err
	}
	lat, lng := coordArgs(a)
	res, err := r.DB.ExecContext(ctx, `INSERT INTO patient_addresses (user_id,label,address,city,lat,lng,is_default)
		VALUES (?,?,?,?,?,?,?)`, userID, a.Label, a.Address, a.City, lat, lng, a.IsDefault)
	if err != nil {
		return translate(err, "address")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	a.ID = uint64(id)
	return translate(r.DB.QueryRowContext(ctx,
		"SELECT created_at FROM patient_addresses WHERE id=?", a.ID).Scan(&a.CreatedAt), "address")
}

func (r *PatientRepo) UpdateAddress(ctx context.Context, userID uint64, a *model.PatientAddress) error {
	var one int
	if err := r.DB.QueryRowContext(ctx,
		"SELECT 1 FROM patient_addresses WHERE id=? AND user_id=?", a.ID, userID).Scan(&one); err != nil {
		return translate(err, "address")
	}
	lat, lng := coordArgs(a)
	_, err := r.DB.ExecContext(ctx,
		"UPDATE patient_addresses SET label=?,address=?,city=?,lat=?,lng=?,is_default=? WHERE id=? AND user_id=?",
		a.Label, a.Address, a.City, lat, lng, a.IsDefault, a.ID, userID)
	return translate(err, "address")
}

func (r *PatientRepo) DeleteAddress(ctx context.Context, userID, addressID uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM patient_addresses WHERE id=? AND user_id=?", addressID, userID)
	if err != nil {
		return translate(err, "address")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.New(apperr.CodeNotFound, "address not found")
	}
	return nil
}

func (r *PatientRepo) SetDefaultAddress(ctx context.Context, userID, addressID uint64) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return translate(err, "address")
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	var one int
	if err := tx.QueryRowContext(ctx,
		"SELECT 1 FROM patient_addresses WHERE id=? AND user_id=? FOR UPDATE", addressID, userID).Scan(&one); err != nil {
		return translate(err, "address")
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE patient_addresses SET is_default=(id=?) WHERE user_id=?", addressID, userID); err != nil {
		return translate(err, "address")
	}
	if err := tx.Commit(); err != nil {
		return translate(err, "address")
	}
	committed = true
	return nil
}

func (r *PatientRepo) ToggleFavorite(ctx context.Context, userID, pharmacyID uint64) (bool, error) {
	if err := r.ensure(ctx, userID); err != nil {
		return false, err
	}
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM patient_favorite_pharmacies WHERE user_id=? AND pharmacy_id=?", userID, pharmacyID)
	if err != nil {
		return false, translate(err, "favorite")
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return false, nil
	}
	if _, err := r.DB.ExecContext(ctx,
		"INSERT INTO patient_favorite_pharmacies (user_id,pharmacy_id) VALUES (?,?)", userID, pharmacyID); err != nil {
		return false, translate(err, "favorite")
	}
	return true, nil
}
