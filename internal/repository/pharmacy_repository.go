package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/pharmapin/pharmapin/internal/geo"
	"github.com/pharmapin/pharmapin/internal/model"
	"github.com/pharmapin/pharmapin/internal/service"
)

type PharmacyRepo struct{ DB *sql.DB }

func NewPharmacyRepo(db *sql.DB) *PharmacyRepo { return &PharmacyRepo{DB: db} }

var _ service.PharmacyStore = (*PharmacyRepo)(nil)

const pharmacyColumns = `p.id,p.owner_id,p.name,COALESCE(p.license_number,''),p.street,p.city,p.lat,p.lng,p.location_set,
	p.phone,p.email,p.opens_at,p.closes_at,p.operating_days,p.services,p.description,p.status,
	p.is_verified,p.is_active,p.rejection_reason,p.approved_by,p.approved_at,p.created_at,p.updated_at`

func scanPharmacy(row interface{ Scan(...any) error }) (*model.Pharmacy, error) {
	var (
		p          model.Pharmacy
		lat, lng   float64
		days, svcs string
		approvedBy sql.NullInt64
		approvedAt sql.NullTime
	)
	err := row.Scan(&p.ID, &p.OwnerID, &p.Name, &p.LicenseNumber, &p.Address.Street, &p.Address.City,
		&lat, &lng, &p.LocationSet, &p.Contact.Phone, &p.Contact.Email,
		&p.OperatingHours.Open, &p.OperatingHours.Close, &days, &svcs, &p.Description, &p.Status,
		&p.IsVerified, &p.IsActive, &p.RejectionReason, &approvedBy, &approvedAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.Location = geo.NewPoint(lat, lng)
	p.OperatingHours.Days = splitList(days)
	p.Services = splitList(svcs)
	p.Certificates = []model.Certificate{}
	if approvedBy.Valid {
		id := uint64(approvedBy.Int64)
		p.ApprovedBy = &id
	}
	if approvedAt.Valid {
		t := approvedAt.Time
		p.ApprovedAt = &t
	}
	return &p, nil
}

func pharmacyArgs(p *model.Pharmacy) []any {
	var license any
	if p.LicenseNumber != "" {
		license = p.LicenseNumber
	}
	var approvedAt any
	if p.ApprovedAt != nil {
		approvedAt = p.ApprovedAt.UTC()
	}
	return []any{
		p.Name, license, p.Address.Street, p.Address.City, p.Location.Lat, p.Location.Lng, p.LocationSet,
		p.Contact.Phone, p.Contact.Email, p.OperatingHours.Open, p.OperatingHours.Close,
		joinList(p.OperatingHours.Days), joinList(p.Services), p.Description, p.Status,
		p.IsVerified, p.IsActive, p.RejectionReason, p.ApprovedBy, approvedAt,
	}
}

func (r *PharmacyRepo) Create(ctx context.Context, p *model.Pharmacy) error {
	args := append([]any{p.OwnerID}, pharmacyArgs(p)...)
	res, err := r.DB.ExecContext(ctx, `INSERT INTO pharmacies
		(owner_id,name,license_number,street,city,lat,lng,location_set,phone,email,opens_at,closes_at,
		 operating_days,services,description,status,is_verified,is_active,rejection_reason,approved_by,approved_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`, args...)
	if err != nil {
		return translate(err, "pharmacy")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	if p.Certificates == nil {
		p.Certificates = []model.Certificate{}
	}
	return translate(r.DB.QueryRowContext(ctx,
		"SELECT created_at, updated_at FROM pharmacies WHERE id=?", p.ID).Scan(&p.CreatedAt, &p.UpdatedAt), "pharmacy")
}

func (r *PharmacyRepo) Save(ctx context.Context, p *model.Pharmacy) error {
	args := append(pharmacyArgs(p), p.ID)
	res, err := r.DB.ExecContext(ctx, `UPDATE pharmacies SET
		name=?,license_number=?,street=?,city=?,lat=?,lng=?,location_set=?,phone=?,email=?,opens_at=?,closes_at=?,
		operating_days=?,services=?,description=?,status=?,is_verified=?,is_active=?,rejection_reason=?,
		approved_by=?,approved_at=?
		WHERE id=?`, args...)
	if err != nil {
		return translate(err, "pharmacy")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// MySQL reports 0 for an unchanged row too, so confirm it exists.
		var one int
		if err := r.DB.QueryRowContext(ctx, "SELECT 1 FROM pharmacies WHERE id=?", p.ID).Scan(&one); err != nil {
			return translate(err, "pharmacy")
		}
	}
	p.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *PharmacyRepo) get(ctx context.Context, where string, arg any) (*model.Pharmacy, error) {
	p, err := scanPharmacy(r.DB.QueryRowContext(ctx,
		"SELECT "+pharmacyColumns+" FROM pharmacies p WHERE "+where+" LIMIT 1", arg))
	if err != nil {
		return nil, translate(err, "pharmacy")
	}
	if p.Certificates, err = r.certificates(ctx, p.ID); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *PharmacyRepo) GetByID(ctx context.Context, id uint64) (*model.Pharmacy, error) {
	return r.get(ctx, "p.id=?", id)
}

func (r *PharmacyRepo) GetByOwner(ctx context.Context, ownerID uint64) (*model.Pharmacy, error) {
	return r.get(ctx, "p.owner_id=?", ownerID)
}

func (r *PharmacyRepo) certificates(ctx context.Context, pharmacyID uint64) ([]model.Certificate, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id,name,file_url,uploaded_at FROM pharmacy_certificates WHERE pharmacy_id=? ORDER BY id", pharmacyID)
	if err != nil {
		return nil, translate(err, "certificates")
	}
	defer rows.Close()
	out := []model.Certificate{}
	for rows.Next() {
		var c model.Certificate
		if err := rows.Scan(&c.ID, &c.Name, &c.FileURL, &c.UploadedAt); err != nil {
			return nil, translate(err, "certificates")
		}
		out = append(out, c)
	}
	return out, translate(rows.Err(), "certificates")
}

// List filters in SQL. With an origin the radius is applied with
// ST_Distance_Sphere and rows come back nearest first; only rows with a set
// location take part.
func (r *PharmacyRepo) List(ctx context.Context, q service.PharmacyQuery) ([]model.Pharmacy, int64, error) {
	var conds []string
	var args []any
	if q.Status != "" {
		conds = append(conds, "p.status=?")
		args = append(args, q.Status)
	}
	if q.PublicOnly {
		conds = append(conds, "p.is_active=1 AND p.is_verified=1")
	}
	if q.Search != "" {
		conds = append(conds, "(LOWER(p.name) LIKE ? OR LOWER(p.description) LIKE ?)")
		args = append(args, likeArg(q.Search), likeArg(q.Search))
	}
	if q.City != "" {
		conds = append(conds, "LOWER(p.city) LIKE ?")
		args = append(args, likeArg(q.City))
	}
	order := "p.id DESC"
	var orderArgs []any
	if q.Origin != nil {
		conds = append(conds, "p.location_set=1 AND NOT (p.lat=0 AND p.lng=0)",
			"ST_Distance_Sphere(POINT(p.lng,p.lat), POINT(?,?)) <= ?")
		args = append(args, q.Origin.Lng, q.Origin.Lat, q.RadiusKm*1000)
		order = "ST_Distance_Sphere(POINT(p.lng,p.lat), POINT(?,?)) ASC"
		orderArgs = []any{q.Origin.Lng, q.Origin.Lat}
	}
	cond := whereClause(conds)

	var total int64
	if err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM pharmacies p WHERE "+cond, args...).Scan(&total); err != nil {
		return nil, 0, translate(err, "pharmacies")
	}
	query := "SELECT " + pharmacyColumns + " FROM pharmacies p WHERE " + cond + " ORDER BY " + order
	dataArgs := append(append([]any{}, args...), orderArgs...)
	if q.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		dataArgs = append(dataArgs, q.Limit, q.Offset())
	}
	rows, err := r.DB.QueryContext(ctx, query, dataArgs...)
	if err != nil {
		return nil, 0, translate(err, "pharmacies")
	}
	defer rows.Close()
	out := []model.Pharmacy{}
	for rows.Next() {
		p, err := scanPharmacy(rows)
		if err != nil {
			return nil, 0, translate(err, "pharmacies")
		}
		out = append(out, *p)
	}
	return out, total, translate(rows.Err(), "pharmacies")
}

func (r *PharmacyRepo) AddCertificates(ctx context.Context, pharmacyID uint64, certs []model.Certificate) error {
	if len(certs) == 0 {
		return nil
	}
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return translate(err, "certificates")
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	for i := range certs {
		res, err := tx.ExecContext(ctx,
			"INSERT INTO pharmacy_certificates (pharmacy_id,name,file_url,uploaded_at) VALUES (?,?,?,?)",
			pharmacyID, certs[i].Name, certs[i].FileURL, certs[i].UploadedAt.UTC())
		if err != nil {
			return translate(err, "certificate")
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		certs[i].ID = uint64(id)
	}
	if err := tx.Commit(); err != nil {
		return translate(err, "certificates")
	}
	committed = true
	return nil
}

// Deactivate soft-deletes the pharmacy and everything it sells in one
// transaction.
func (r *PharmacyRepo) Deactivate(ctx context.Context, id uint64) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return translate(err, "pharmacy")
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	var one int
	if err := tx.QueryRowContext(ctx, "SELECT 1 FROM pharmacies WHERE id=? FOR UPDATE", id).Scan(&one); err != nil {
		return translate(err, "pharmacy")
	}
	stmts := []string{
		"UPDATE pharmacies SET is_active=0 WHERE id=?",
		"UPDATE drugs SET is_active=0 WHERE pharmacy_id=?",
		"UPDATE inventory SET is_available=0 WHERE pharmacy_id=?",
	}
	for _, s := range stmts {
		if _, err := tx.ExecContext(ctx, s, id); err != nil {
			return translate(err, "pharmacy")
		}
	}
	if err := tx.Commit(); err != nil {
		return translate(err, "pharmacy")
	}
	committed = true
	return nil
}

func (r *PharmacyRepo) CountByStatus(ctx context.Context) (map[model.PharmacyStatus]int64, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT status, COUNT(*) FROM pharmacies GROUP BY status")
	if err != nil {
		return nil, translate(err, "pharmacies")
	}
	defer rows.Close()
	out := map[model.PharmacyStatus]int64{
		model.StatusDraft: 0, model.StatusPendingApproval: 0, model.StatusApproved: 0, model.StatusRejected: 0,
	}
	for rows.Next() {
		var s model.PharmacyStatus
		var n int64
		if err := rows.Scan(&s, &n); err != nil {
			return nil, translate(err, "pharmacies")
		}
		out[s] = n
	}
	return out, translate(rows.Err(), "pharmacies")
}
