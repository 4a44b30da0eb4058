package approval

import (
	"errors"
	"testing"
	"time"

	"github.com/pharmapin/pharmapin/internal/apperr"
	"github.com/pharmapin/pharmapin/internal/model"
)

func completeDraft() *model.Pharmacy {
	return &model.Pharmacy{
		Name:          "Uhuru Chemists",
		LicenseNumber: "PPB-001",
		Address:       model.Address{Street: "Moi Avenue 12", City: "Nairobi"},
		OperatingHours: model.OperatingHours{
			Open: "08:00", Close: "20:00", Days: []string{"monday", "tuesday"},
		},
		Services: []string{"prescriptions"},
		Status:   model.StatusDraft,
		IsActive: true,
	}
}

func TestTransitionTable(t *testing.T) {
	cases := []struct {
		from, to model.PharmacyStatus
		ok       bool
	}{
		{model.StatusDraft, model.StatusPendingApproval, true},
		{model.StatusPendingApproval, model.StatusApproved, true},
		{model.StatusPendingApproval, model.StatusRejected, true},
		{model.StatusRejected, model.StatusPendingApproval, true},
		{model.StatusRejected, model.StatusApproved, false},
		{model.StatusDraft, model.StatusApproved, false},
		{model.StatusApproved, model.StatusPendingApproval, false},
		{model.StatusApproved, model.StatusRejected, false},
	}
	for _, c := range cases {
		if got := CanTransition(c.from, c.to); got != c.ok {
			t.Fatalf("%s -> %s: got %v want %v", c.from, c.to, got, c.ok)
		}
	}
}

func TestRejectedCannotBeApprovedDirectly(t *testing.T) {
	p := completeDraft()
	p.Status = model.StatusRejected
	p.RejectionReason = "blurry licence"
	err := Approve(p, 1, time.Now())
	if !errors.Is(err, apperr.ErrIllegalTransition) || !apperr.IsConflict(err) {
		t.Fatalf("want illegal transition, got %v", err)
	}
	if p.Status != model.StatusRejected || p.IsVerified {
		t.Fatalf("pharmacy mutated on failed transition: %+v", p)
	}
}

func TestFullLifecycle(t *testing.T) {
	p := completeDraft()
	if err := Submit(p); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := Reject(p, "licence expired"); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if p.IsVerified || p.RejectionReason != "licence expired" {
		t.Fatalf("reject fields: %+v", p)
	}
	if err := Submit(p); err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	if p.RejectionReason != "" || p.Status != model.StatusPendingApproval {
		t.Fatalf("resubmit should clear reason: %+v", p)
	}
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	if err := Approve(p, 42, now); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if !p.IsVerified || p.ApprovedBy == nil || *p.ApprovedBy != 42 || !p.ApprovedAt.Equal(now) {
		t.Fatalf("approve fields: %+v", p)
	}
	if err := Submit(p); apperr.CodeOf(err) != apperr.CodeConflict {
		t.Fatalf("submit after approval: want CONFLICT, got %v", err)
	}
}

func TestSubmitValidatesFields(t *testing.T) {
	p := completeDraft()
	p.Services = []string{" "}
	p.OperatingHours.Open = "8am"
	p.LicenseNumber = ""
	err := Submit(p)
	var e *apperr.Error
	if !errors.As(err, &e) || e.Code != apperr.CodeValidation {
		t.Fatalf("want validation error, got %v", err)
	}
	for _, f := range []string{"services", "operatingHours.open", "licenseNumber"} {
		if e.Fields[f] == "" {
			t.Fatalf("missing field message for %s: %v", f, e.Fields)
		}
	}
	if p.Status != model.StatusDraft {
		t.Fatalf("status changed on invalid submit")
	}
}

func TestRejectRequiresReason(t *testing.T) {
	p := completeDraft()
	p.Status = model.StatusPendingApproval
	if err := Reject(p, "   "); apperr.CodeOf(err) != apperr.CodeValidation {
		t.Fatalf("want validation error, got %v", err)
	}
}
