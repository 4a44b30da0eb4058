package service

import (
	"context"
	"strings"

	"github.com/pharmapin/pharmapin/internal/apperr"
	"github.com/pharmapin/pharmapin/internal/model"
	"github.com/pharmapin/pharmapin/internal/utils"
)

// AdminSeed describes the bootstrap administrator. An empty Email disables
// seeding.
type AdminSeed struct {
	Email      string
	Username   string
	Password   string
	BcryptCost int
}

// EnsureAdmin creates the bootstrap admin when no user holds seed.Email.
// It is safe to run on every start: an existing admin is left untouched
// (its password is not reset), and an existing non-admin with that email is
// a CONFLICT rather than a silent promotion. created reports whether a user
// was inserted.
func EnsureAdmin(ctx context.Context, users UserStore, seed AdminSeed) (u *model.User, created bool, err error) {
	email := strings.ToLower(strings.TrimSpace(seed.Email))
	if email == "" {
		return nil, false, nil
	}
	existing, err := users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.Role != model.RoleAdmin {
			return nil, false, apperr.Newf(apperr.CodeConflict, "%s is registered as %s, not admin", email, existing.Role)
		}
		return existing, false, nil
	case apperr.CodeOf(err) != apperr.CodeNotFound:
		return nil, false, apperr.Unavailable(err)
	}

	f := map[string]string{}
	if !strings.Contains(email, "@") {
		f["ADMIN_EMAIL"] = "a valid email is required"
	}
	if len(seed.Password) < 6 {
		f["ADMIN_PASSWORD"] = "password must be at least 6 characters"
	}
	username := strings.TrimSpace(seed.Username)
	if username == "" {
		username, _, _ = strings.Cut(email, "@")
	}
	if n := len(username); n < 3 || n > 50 {
		f["ADMIN_USERNAME"] = "username must be 3-50 characters"
	}
	if err := apperr.Validation(f); err != nil {
		return nil, false, err
	}

	hash, err := utils.HashPassword(seed.Password, seed.BcryptCost)
	if err != nil {
		return nil, false, err
	}
	u = &model.User{
		FirstName:    "System",
		LastName:     "Administrator",
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         model.RoleAdmin,
		IsActive:     true,
	}
	if err := users.Create(ctx, u); err != nil {
		return nil, false, apperr.Unavailable(err)
	}
	return u, true, nil
}
