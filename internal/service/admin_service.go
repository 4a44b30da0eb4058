package service

import (
	"context"
	"errors"

	"github.com/pharmapin/pharmapin/internal/apperr"
	"github.com/pharmapin/pharmapin/internal/model"
)

type Stats struct {
	Users      map[model.Role]int64           `json:"users"`
	TotalUsers int64                          `json:"totalUsers"`
	Pharmacies map[model.PharmacyStatus]int64 `json:"pharmacies"`
	Drugs      int64                          `json:"drugs"`
	Orders     int64                          `json:"orders"`
}

type UserUpdate struct {
	IsActive *bool       `json:"isActive"`
	Role     *model.Role `json:"role"`
}

// AdminService serves the dashboard and user management. Every method
// requires an admin actor.
type AdminService struct {
	Users      UserStore
	Tokens     TokenStore
	Pharmacies PharmacyStore
	Drugs      DrugStore
	Orders     OrderStore
}

func NewAdminService(u UserStore, t TokenStore, p PharmacyStore, d DrugStore, o OrderStore) *AdminService {
	if u == nil || t == nil || p == nil || d == nil || o == nil {
		panic("nil store passed to NewAdminService")
	}
	return &AdminService{Users: u, Tokens: t, Pharmacies: p, Drugs: d, Orders: o}
}

func requireAdmin(a Actor) error {
	if !a.IsAdmin() {
		return apperr.New(apperr.CodeForbidden, "admin only")
	}
	return nil
}

func (s *AdminService) Stats(ctx context.Context, a Actor) (Stats, error) {
	if err := requireAdmin(a); err != nil {
		return Stats{}, err
	}
	var st Stats
	var err error
	if st.Users, err = s.Users.CountByRole(ctx); err != nil {
		return Stats{}, apperr.Unavailable(err)
	}
	for _, n := range st.Users {
		st.TotalUsers += n
	}
	if st.Pharmacies, err = s.Pharmacies.CountByStatus(ctx); err != nil {
		return Stats{}, apperr.Unavailable(err)
	}
	if st.Drugs, err = s.Drugs.Count(ctx); err != nil {
		return Stats{}, apperr.Unavailable(err)
	}
	if st.Orders, err = s.Orders.Count(ctx); err != nil {
		return Stats{}, apperr.Unavailable(err)
	}
	return st, nil
}

func (s *AdminService) ListUsers(ctx context.Context, a Actor, q UserQuery) ([]model.User, int64, error) {
	if err := requireAdmin(a); err != nil {
		return nil, 0, err
	}
	if q.Role != "" && !q.Role.Valid() {
		return nil, 0, apperr.Newf(apperr.CodeInvalidInput, "unknown role %q", q.Role)
	}
	items, total, err := s.Users.List(ctx, q)
	return items, total, apperr.Unavailable(err)
}

func (s *AdminService) GetUser(ctx context.Context, a Actor, id uint64) (*model.User, error) {
	if err := requireAdmin(a); err != nil {
		return nil, err
	}
	u, err := s.Users.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Unavailable(err)
	}
	return u, nil
}

// UpdateUser changes a user's role or active flag. Deactivating a user
// revokes their refresh tokens.
func (s *AdminService) UpdateUser(ctx context.Context, a Actor, id uint64, in UserUpdate) (*model.User, error) {
	if err := requireAdmin(a); err != nil {
		return nil, err
	}
	if id == a.UserID && ((in.IsActive != nil && !*in.IsActive) || (in.Role != nil && *in.Role != model.RoleAdmin)) {
		return nil, apperr.New(apperr.CodeForbidden, "admins cannot demote or deactivate themselves")
	}
	u, err := s.Users.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Unavailable(err)
	}
	if in.Role != nil {
		if !in.Role.Valid() {
			return nil, apperr.Validation(map[string]string{"role": "unknown role"})
		}
		u.Role = *in.Role
	}
	if in.IsActive != nil {
		u.IsActive = *in.IsActive
	}
	if err := s.Users.Save(ctx, u); err != nil {
		return nil, apperr.Unavailable(err)
	}
	if !u.IsActive {
		if err := s.Tokens.RevokeAllForUser(ctx, u.ID); err != nil {
			return nil, apperr.Unavailable(err)
		}
	}
	return u, nil
}

// DeleteUser deactivates a user and revokes their sessions. A pharmacist's
// pharmacy is soft-deleted along with its drugs and inventory.
func (s *AdminService) DeleteUser(ctx context.Context, a Actor, id uint64) error {
	if err := requireAdmin(a); err != nil {
		return err
	}
	if id == a.UserID {
		return apperr.New(apperr.CodeForbidden, "cannot delete your own account")
	}
	u, err := s.Users.GetByID(ctx, id)
	if err != nil {
		return apperr.Unavailable(err)
	}
	if u.Role == model.RolePharmacist {
		p, err := s.Pharmacies.GetByOwner(ctx, u.ID)
		switch {
		case err == nil:
			if err := s.Pharmacies.Deactivate(ctx, p.ID); err != nil {
				return apperr.Unavailable(err)
			}
		case !errors.Is(err, apperr.ErrNotFound):
			return apperr.Unavailable(err)
		}
	}
	u.IsActive = false
	if err := s.Users.Save(ctx, u); err != nil {
		return apperr.Unavailable(err)
	}
	return apperr.Unavailable(s.Tokens.RevokeAllForUser(ctx, u.ID))
}
