package model

import (
	"time"

	"github.com/pharmapin/pharmapin/internal/geo"
)

// PharmacyStatus is the approval workflow state.
type PharmacyStatus string

const (
	StatusDraft           PharmacyStatus = "draft"
	StatusPendingApproval PharmacyStatus = "pending_approval"
	StatusApproved        PharmacyStatus = "approved"
	StatusRejected        PharmacyStatus = "rejected"
)

func (s PharmacyStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusPendingApproval, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Address is a postal address attached to a pharmacy.
type Address struct {
	Street string `json:"address"`
	City   string `json:"city"`
}

type Contact struct {
	Phone string `json:"phone"`
	Email string `json:"email"`
}

// OperatingHours uses 24h "HH:MM" strings.
type OperatingHours struct {
	Open  string   `json:"open"`
	Close string   `json:"close"`
	Days  []string `json:"days"`
}

type Certificate struct {
	ID         uint64    `json:"id"`
	Name       string    `json:"name"`
	FileURL    string    `json:"fileUrl"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// Pharmacy mirrors the `pharmacies` table plus its certificates.
//
// Location is only meaningful when LocationSet is true; an unset pharmacy
// keeps the [0,0] placeholder and never matches a radius query.
type Pharmacy struct {
	ID              uint64         `json:"id"`
	OwnerID         uint64         `json:"ownerId"`
	Name            string         `json:"name"`
	LicenseNumber   string         `json:"licenseNumber"`
	Address         Address        `json:"address"`
	Location        geo.Point      `json:"location"`
	LocationSet     bool           `json:"locationSet"`
	Contact         Contact        `json:"contact"`
	OperatingHours  OperatingHours `json:"operatingHours"`
	Services        []string       `json:"services"`
	Description     string         `json:"description"`
	Status          PharmacyStatus `json:"status"`
	IsVerified      bool           `json:"isVerified"`
	IsActive        bool           `json:"isActive"`
	RejectionReason string         `json:"rejectionReason,omitempty"`
	ApprovedBy      *uint64        `json:"approvedBy,omitempty"`
	ApprovedAt      *time.Time     `json:"approvedAt,omitempty"`
	Certificates    []Certificate  `json:"certificates"`
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
}

// Searchable reports whether the pharmacy may appear in public results.
func (p *Pharmacy) Searchable() bool { return p.IsActive && p.IsVerified }

// HasLocation reports whether the stored point can be used for distance math.
func (p *Pharmacy) HasLocation() bool { return p.LocationSet && !p.Location.IsZero() }
