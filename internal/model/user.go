package model

import "time"

// Role is a user's authorization role. Values match the JWT "role" claim.
type Role string

const (
	RolePatient    Role = "patient"
	RolePharmacist Role = "pharmacist"
	RoleAdmin      Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RolePatient, RolePharmacist, RoleAdmin:
		return true
	}
	return false
}

// User mirrors the `users` table. PasswordHash never leaves the server.
type User struct {
	ID           uint64    `json:"id"`           // users.id
	FirstName    string    `json:"firstName"`    // users.first_name
	LastName     string    `json:"lastName"`     // users.last_name
	Username     string    `json:"username"`     // users.username (unique)
	Email        string    `json:"email"`        // users.email (unique, lower-cased)
	Phone        string    `json:"phone"`        // users.phone
	PasswordHash string    `json:"-"`            // users.password_hash (bcrypt)
	Role         Role      `json:"role"`         // users.role
	IsActive     bool      `json:"isActive"`     // users.is_active
	CreatedAt    time.Time `json:"createdAt"`    // users.created_at
	UpdatedAt    time.Time `json:"updatedAt"`    // users.updated_at
}

// RefreshToken models a row of `refresh_tokens`. Only the SHA-256 of the
// raw token is stored.
type RefreshToken struct {
	ID        uint64
	UserID    uint64
	TokenHash string
	ExpiresAt time.Time
	RevokedAt *time.Time
	CreatedAt time.Time
}
