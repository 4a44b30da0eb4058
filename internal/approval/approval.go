// Package approval implements the pharmacy onboarding lifecycle:
//
//	draft -> pending_approval -> approved | rejected
//	rejected -> pending_approval
//
// approved is terminal for this workflow. Deactivation is a separate axis
// (Pharmacy.IsActive) and is not handled here.
package approval

import (
	"regexp"
	"strings"
	"time"

	"github.com/pharmapin/pharmapin/internal/apperr"
	"github.com/pharmapin/pharmapin/internal/model"
)

var allowed = map[model.PharmacyStatus][]model.PharmacyStatus{
	model.StatusDraft:           {model.StatusPendingApproval},
	model.StatusPendingApproval: {model.StatusApproved, model.StatusRejected},
	model.StatusRejected:        {model.StatusPendingApproval},
}

// CanTransition reports whether from -> to is an edge of the workflow.
func CanTransition(from, to model.PharmacyStatus) bool {
	for _, s := range allowed[from] {
		if s == to {
			return true
		}
	}
	return false
}

func checkTransition(from, to model.PharmacyStatus) error {
	if CanTransition(from, to) {
		return nil
	}
	return apperr.Newf(apperr.CodeIllegalTransition, "cannot move pharmacy from %s to %s", from, to)
}

var hhmm = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// ValidateProfile checks the fields required before a pharmacy can be
// submitted for review.
func ValidateProfile(p *model.Pharmacy) error {
	f := map[string]string{}
	if strings.TrimSpace(p.Name) == "" {
		f["name"] = "name is required"
	} else if len(p.Name) > 100 {
		f["name"] = "name must be at most 100 characters"
	}
	if strings.TrimSpace(p.LicenseNumber) == "" {
		f["licenseNumber"] = "license number is required"
	}
	if strings.TrimSpace(p.Address.Street) == "" {
		f["address.address"] = "street address is required"
	}
	if strings.TrimSpace(p.Address.City) == "" {
		f["address.city"] = "city is required"
	}
	if !hhmm.MatchString(p.OperatingHours.Open) {
		f["operatingHours.open"] = "opening time must be HH:MM"
	}
	if !hhmm.MatchString(p.OperatingHours.Close) {
		f["operatingHours.close"] = "closing time must be HH:MM"
	}
	if len(p.OperatingHours.Days) == 0 {
		f["operatingHours.days"] = "at least one operating day is required"
	}
	hasService := false
	for _, s := range p.Services {
		if strings.TrimSpace(s) != "" {
			hasService = true
			break
		}
	}
	if !hasService {
		f["services"] = "at least one service is required"
	}
	return apperr.Validation(f)
}

// Submit moves a draft or rejected pharmacy to pending_approval. An approved
// profile can no longer go through onboarding and yields CONFLICT.
func Submit(p *model.Pharmacy) error {
	if p.Status == model.StatusApproved {
		return apperr.New(apperr.CodeConflict, "pharmacy profile already approved and cannot be modified")
	}
	if err := checkTransition(p.Status, model.StatusPendingApproval); err != nil {
		return err
	}
	if err := ValidateProfile(p); err != nil {
		return err
	}
	p.Status = model.StatusPendingApproval
	p.RejectionReason = ""
	p.IsVerified = false
	return nil
}

// Approve records an admin approval.
func Approve(p *model.Pharmacy, adminID uint64, now time.Time) error {
	if err := checkTransition(p.Status, model.StatusApproved); err != nil {
		return err
	}
	p.Status = model.StatusApproved
	p.IsVerified = true
	p.RejectionReason = ""
	p.ApprovedBy = &adminID
	at := now.UTC()
	p.ApprovedAt = &at
	return nil
}

// Reject records an admin rejection. reason must be non-empty.
func Reject(p *model.Pharmacy, reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return apperr.Validation(map[string]string{"rejectionReason": "rejection reason is required"})
	}
	if err := checkTransition(p.Status, model.StatusRejected); err != nil {
		return err
	}
	p.Status = model.StatusRejected
	p.IsVerified = false
	p.RejectionReason = reason
	p.ApprovedBy = nil
	p.ApprovedAt = nil
	return nil
}

// EditableWhenApproved lists profile fields a pharmacist may still change
// after approval. Name and licence are locked.
func EditableWhenApproved(field string) bool {
	switch field {
	case "name", "licenseNumber":
		return false
	}
	return true
}
