package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/pharmapin/pharmapin/internal/model"
	"github.com/pharmapin/pharmapin/internal/service"
)

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

var _ service.UserStore = (*UserRepo)(nil)

const userColumns = "id,first_name,last_name,username,email,phone,password_hash,role,is_active,created_at,updated_at"

func scanUser(row interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Username, &u.Email, &u.Phone,
		&u.PasswordHash, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Create inserts the user and fills ID and timestamps. The email is
// normalized to lower case.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (first_name,last_name,username,email,phone,password_hash,role,is_active) VALUES (?,?,?,?,?,?,?,?)",
		u.FirstName, u.LastName, u.Username, u.Email, u.Phone, u.PasswordHash, u.Role, u.IsActive)
	if err != nil {
		return translate(err, "user")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	return translate(r.DB.QueryRowContext(ctx,
		"SELECT created_at, updated_at FROM users WHERE id=?", id).Scan(&u.CreatedAt, &u.UpdatedAt), "user")
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email))
	return u, translate(err, "user")
}

func (r *UserRepo) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
	return u, translate(err, "user")
}

func (r *UserRepo) List(ctx context.Context, q service.UserQuery) ([]model.User, int64, error) {
	var conds []string
	var args []any
	if q.Role != "" {
		conds = append(conds, "role=?")
		args = append(args, q.Role)
	}
	if q.Search != "" {
		conds = append(conds, "(LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR LOWER(username) LIKE ? OR email LIKE ?)")
		like := likeArg(q.Search)
		args = append(args, like, like, like, like)
	}
	cond := whereClause(conds)

	var total int64
	if err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM users WHERE "+cond, args...).Scan(&total); err != nil {
		return nil, 0, translate(err, "users")
	}
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE "+cond+" ORDER BY id DESC LIMIT ? OFFSET ?",
		append(args, q.Limit, q.Offset())...)
	if err != nil {
		return nil, 0, translate(err, "users")
	}
	defer rows.Close()
	out := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, translate(err, "users")
		}
		out = append(out, *u)
	}
	return out, total, translate(rows.Err(), "users")
}

func (r *UserRepo) Save(ctx context.Context, u *model.User) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET first_name=?,last_name=?,username=?,email=?,phone=?,password_hash=?,role=?,is_active=? WHERE id=?",
		u.FirstName, u.LastName, u.Username, strings.ToLower(u.Email), u.Phone, u.PasswordHash, u.Role, u.IsActive, u.ID)
	return translate(err, "user")
}

func (r *UserRepo) CountByRole(ctx context.Context) (map[model.Role]int64, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT role, COUNT(*) FROM users GROUP BY role")
	if err != nil {
		return nil, translate(err, "users")
	}
	defer rows.Close()
	out := map[model.Role]int64{model.RolePatient: 0, model.RolePharmacist: 0, model.RoleAdmin: 0}
	for rows.Next() {
		var role model.Role
		var n int64
		if err := rows.Scan(&role, &n); err != nil {
			return nil, translate(err, "users")
		}
		out[role] = n
	}
	return out, translate(rows.Err(), "users")
}
