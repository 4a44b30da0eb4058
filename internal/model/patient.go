package model

import (
	"time"

	"github.com/pharmapin/pharmapin/internal/geo"
)

type AddressLabel string

const (
	LabelHome  AddressLabel = "home"
	LabelWork  AddressLabel = "work"
	LabelOther AddressLabel = "other"
)

func (l AddressLabel) Valid() bool {
	return l == LabelHome || l == LabelWork || l == LabelOther
}

// PatientAddress is a saved delivery address. At most one per patient has
// IsDefault set.
type PatientAddress struct {
	ID          uint64       `json:"id"`
	Label       AddressLabel `json:"label"`
	Address     string       `json:"address"`
	City        string       `json:"city"`
	Coordinates *geo.Point   `json:"coordinates,omitempty"`
	IsDefault   bool         `json:"isDefault"`
	CreatedAt   time.Time    `json:"createdAt"`
}

// Patient is 1:1 with a patient user.
type Patient struct {
	UserID             uint64           `json:"userId"`
	Addresses          []PatientAddress `json:"addresses"`
	FavoritePharmacies []uint64         `json:"favoritePharmacies"`
	CreatedAt          time.Time        `json:"createdAt"`
}

// DefaultAddress returns the default address, if any.
func (p *Patient) DefaultAddress() *PatientAddress {
	for i := range p.Addresses {
		if p.Addresses[i].IsDefault {
			return &p.Addresses[i]
		}
	}
	return nil
}
