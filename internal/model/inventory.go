package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceUnit is what one unit of Price buys.
type PriceUnit string

const (
	UnitTablet    PriceUnit = "tablet"
	UnitCapsule   PriceUnit = "capsule"
	UnitBottle    PriceUnit = "bottle"
	UnitSyrup     PriceUnit = "syrup"
	UnitInjection PriceUnit = "injection"
	UnitTube      PriceUnit = "tube"
	UnitPack      PriceUnit = "pack"
	UnitDose      PriceUnit = "dose"
	UnitPiece     PriceUnit = "piece"
	UnitOther     PriceUnit = "other"
)

func (u PriceUnit) Valid() bool {
	switch u {
	case UnitTablet, UnitCapsule, UnitBottle, UnitSyrup, UnitInjection,
		UnitTube, UnitPack, UnitDose, UnitPiece, UnitOther:
		return true
	}
	return false
}

// Inventory is the sellable (pharmacy, drug) pair. The pair is unique.
type Inventory struct {
	ID          uint64          `json:"id"`
	PharmacyID  uint64          `json:"pharmacyId"`
	DrugID      uint64          `json:"drugId"`
	Price       decimal.Decimal `json:"price"`
	PriceUnit   PriceUnit       `json:"priceUnit"`
	Quantity    int             `json:"quantity"`
	IsAvailable bool            `json:"isAvailable"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// InventoryItem is an inventory row joined with its drug for listings.
type InventoryItem struct {
	Inventory
	Drug Drug `json:"drug"`
}
