package memstore

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/pharmapin/pharmapin/internal/apperr"
	"github.com/pharmapin/pharmapin/internal/model"
	"github.com/pharmapin/pharmapin/internal/service"
)

type Users struct{ db *db }

var _ service.UserStore = (*Users)(nil)

func (s *Users) conflicts(u *model.User) error {
	for _, other := range s.db.users {
		if other.ID == u.ID {
			continue
		}
		if strings.EqualFold(other.Email, u.Email) {
			return apperr.New(apperr.CodeDuplicateEntry, "email already registered")
		}
		if u.Username != "" && strings.EqualFold(other.Username, u.Username) {
			return apperr.New(apperr.CodeDuplicateEntry, "username already taken")
		}
	}
	return nil
}

func (s *Users) Create(_ context.Context, u *model.User) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if err := s.conflicts(u); err != nil {
		return err
	}
	now := s.db.now().UTC()
	u.ID = s.db.nextID("users")
	u.CreatedAt, u.UpdatedAt = now, now
	s.db.users[u.ID] = *u
	return nil
}

func (s *Users) GetByEmail(_ context.Context, email string) (*model.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range s.db.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, apperr.New(apperr.CodeNotFound, "user not found")
}

func (s *Users) GetByID(_ context.Context, id uint64) (*model.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	u, ok := s.db.users[id]
	if !ok {
		return nil, apperr.New(apperr.CodeNotFound, "user not found")
	}
	return &u, nil
}

func (s *Users) List(_ context.Context, q service.UserQuery) ([]model.User, int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	out := []model.User{}
	for _, u := range s.db.users {
		if q.Role != "" && u.Role != q.Role {
			continue
		}
		if q.Search != "" && !containsFold(u.FirstName+" "+u.LastName+" "+u.Username+" "+u.Email, q.Search) {
			continue
		}
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return paginate(out, q.Page), int64(len(out)), nil
}

func (s *Users) Save(_ context.Context, u *model.User) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.users[u.ID]; !ok {
		return apperr.New(apperr.CodeNotFound, "user not found")
	}
	if err := s.conflicts(u); err != nil {
		return err
	}
	u.UpdatedAt = s.db.now().UTC()
	s.db.users[u.ID] = *u
	return nil
}

func (s *Users) CountByRole(context.Context) (map[model.Role]int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	out := map[model.Role]int64{model.RolePatient: 0, model.RolePharmacist: 0, model.RoleAdmin: 0}
	for _, u := range s.db.users {
		out[u.Role]++
	}
	return out, nil
}

type Tokens struct{ db *db }

var _ service.TokenStore = (*Tokens)(nil)

func (s *Tokens) StoreRefresh(_ context.Context, userID uint64, tokenHash string, exp time.Time) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.tokens[tokenHash]; ok {
		return apperr.New(apperr.CodeDuplicateEntry, "token already stored")
	}
	s.db.tokens[tokenHash] = tokenRow{userID: userID, exp: exp}
	return nil
}

func (s *Tokens) ValidateRefresh(_ context.Context, tokenHash string) (uint64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	t, ok := s.db.tokens[tokenHash]
	if !ok || t.revoked || s.db.now().After(t.exp) {
		return 0, apperr.New(apperr.CodeUnauthorized, "invalid or expired refresh token")
	}
	return t.userID, nil
}

func (s *Tokens) RevokeByHash(_ context.Context, tokenHash string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if t, ok := s.db.tokens[tokenHash]; ok {
		t.revoked = true
		s.db.tokens[tokenHash] = t
	}
	return nil
}

func (s *Tokens) RevokeAllForUser(_ context.Context, userID uint64) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for h, t := range s.db.tokens {
		if t.userID == userID {
			t.revoked = true
			s.db.tokens[h] = t
		}
	}
	return nil
}
