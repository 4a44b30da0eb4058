package model

import "time"

// DrugForm enumerates dosage forms.
type DrugForm string

const (
	FormTablet    DrugForm = "tablet"
	FormCapsule   DrugForm = "capsule"
	FormSyrup     DrugForm = "syrup"
	FormInjection DrugForm = "injection"
	FormOintment  DrugForm = "ointment"
	FormCream     DrugForm = "cream"
	FormDrops     DrugForm = "drops"
	FormInhaler   DrugForm = "inhaler"
	FormOther     DrugForm = "other"
)

func (f DrugForm) Valid() bool {
	switch f {
	case FormTablet, FormCapsule, FormSyrup, FormInjection, FormOintment,
		FormCream, FormDrops, FormInhaler, FormOther:
		return true
	}
	return false
}

type Strength struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

// Drug is a catalog entry owned by the pharmacy that created it.
type Drug struct {
	ID                   uint64    `json:"id"`
	PharmacyID           uint64    `json:"pharmacyId"`
	Name                 string    `json:"name"`
	GenericName          string    `json:"genericName"`
	Brand                string    `json:"brand"`
	Description          string    `json:"description"`
	Category             string    `json:"category"`
	Form                 DrugForm  `json:"form"`
	Strength             Strength  `json:"strength"`
	PrescriptionRequired bool      `json:"prescriptionRequired"`
	Manufacturer         string    `json:"manufacturer"`
	Barcode              string    `json:"barcode,omitempty"`
	DosageInstructions   string    `json:"dosageInstructions,omitempty"`
	SideEffects          []string  `json:"sideEffects"`
	IsActive             bool      `json:"isActive"`
	CreatedAt            time.Time `json:"createdAt"`
	UpdatedAt            time.Time `json:"updatedAt"`
}
