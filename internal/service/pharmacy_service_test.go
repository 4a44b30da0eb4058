package service_test

import (
	"context"
	"testing"

	"github.com/pharmapin/pharmapin/internal/apperr"
	"github.com/pharmapin/pharmapin/internal/geo"
	"github.com/pharmapin/pharmapin/internal/model"
	"github.com/pharmapin/pharmapin/internal/queue"
	"github.com/pharmapin/pharmapin/internal/repository/memstore"
	"github.com/pharmapin/pharmapin/internal/service"
)

func completeProfile() service.ProfileInput {
	return service.ProfileInput{
		Name:           ptr("Westlands Pharmacy"),
		LicenseNumber:  ptr("PPB-2024-77"),
		Address:        &model.Address{Street: "Waiyaki Way", City: "Nairobi"},
		Contact:        &model.Contact{Phone: "+254700000000", Email: "Shop@Example.com"},
		OperatingHours: &model.OperatingHours{Open: "08:00", Close: "20:00", Days: []string{"Mon", "Tue"}},
		Services:       []string{"prescriptions", " "},
	}
}

func TestOnboardingLifecycle(t *testing.T) {
	st := memstore.New()
	events := &recorder{}
	svc := service.NewPharmacyService(st.Pharmacies, events, 5)
	ctx := context.Background()

	status, err := svc.Status(ctx, pharmacist)
	if err != nil || status.HasPharmacy || status.Status != "no_pharmacy" {
		t.Fatalf("initial status: %+v %v", status, err)
	}

	draft, err := svc.SaveDraft(ctx, pharmacist, service.ProfileInput{Name: ptr("Draft Name")})
	if err != nil {
		t.Fatalf("draft: %v", err)
	}
	if draft.Status != model.StatusDraft {
		t.Fatalf("want draft, got %s", draft.Status)
	}

	p, err := svc.CompleteProfile(ctx, pharmacist, completeProfile())
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if p.ID != draft.ID || p.Status != model.StatusPendingApproval {
		t.Fatalf("submit did not move the draft: %+v", p)
	}
	if p.Contact.Email != "shop@example.com" || len(p.Services) != 1 {
		t.Fatalf("profile not normalized: %+v", p)
	}
	if _, err := svc.SaveDraft(ctx, pharmacist, service.ProfileInput{}); apperr.CodeOf(err) != apperr.CodeConflict {
		t.Fatalf("draft after submit: want CONFLICT, got %v", err)
	}

	if _, err := svc.Approve(ctx, pharmacist, p.ID); apperr.CodeOf(err) != apperr.CodeForbidden {
		t.Fatalf("pharmacist approving: want FORBIDDEN, got %v", err)
	}
	p, err = svc.Approve(ctx, admin, p.ID)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if !p.IsVerified || p.ApprovedBy == nil || *p.ApprovedBy != admin.UserID || p.ApprovedAt == nil {
		t.Fatalf("approval not recorded: %+v", p)
	}
	if _, err := svc.CompleteProfile(ctx, pharmacist, completeProfile()); apperr.CodeOf(err) != apperr.CodeConflict {
		t.Fatalf("editing approved profile: want CONFLICT, got %v", err)
	}
	if _, err := svc.Update(ctx, pharmacist, p.ID, service.ProfileInput{Name: ptr("Renamed")}); apperr.CodeOf(err) != apperr.CodeConflict {
		t.Fatalf("renaming approved pharmacy: want CONFLICT, got %v", err)
	}
	if _, err := svc.Update(ctx, pharmacist, p.ID, service.ProfileInput{Description: ptr("Open late")}); err != nil {
		t.Fatalf("editing description: %v", err)
	}
	if n := events.count(queue.QueuePharmacyStatusChanged); n != 2 {
		t.Fatalf("want 2 status events, got %d", n)
	}
}

func TestRejectThenResubmit(t *testing.T) {
	st := memstore.New()
	svc := service.NewPharmacyService(st.Pharmacies, nil, 5)
	ctx := context.Background()
	p, err := svc.CompleteProfile(ctx, pharmacist, completeProfile())
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if _, err := svc.Reject(ctx, admin, p.ID, "  "); apperr.CodeOf(err) != apperr.CodeValidation {
		t.Fatalf("blank reason: want VALIDATION_ERROR, got %v", err)
	}
	p, err = svc.Reject(ctx, admin, p.ID, "licence scan unreadable")
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if p.Status != model.StatusRejected || p.IsVerified {
		t.Fatalf("reject not applied: %+v", p)
	}
	p, err = svc.CompleteProfile(ctx, pharmacist, completeProfile())
	if err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	if p.Status != model.StatusPendingApproval || p.RejectionReason != "" {
		t.Fatalf("resubmit: %+v", p)
	}
}

func TestCompleteProfileReportsMissingFields(t *testing.T) {
	svc := service.NewPharmacyService(memstore.New().Pharmacies, nil, 5)
	_, err := svc.CompleteProfile(context.Background(), pharmacist, service.ProfileInput{Name: ptr("Only a name")})
	e, ok := err.(*apperr.Error)
	if !ok || e.Code != apperr.CodeValidation {
		t.Fatalf("want validation error, got %v", err)
	}
	if e.Fields["licenseNumber"] == "" || e.Fields["services"] == "" {
		t.Fatalf("missing field messages: %v", e.Fields)
	}
}

func TestSetLocationRejectsPlaceholder(t *testing.T) {
	st := memstore.New()
	svc := service.NewPharmacyService(st.Pharmacies, nil, 5)
	ctx := context.Background()
	if _, err := svc.SaveDraft(ctx, pharmacist, service.ProfileInput{Name: ptr("x")}); err != nil {
		t.Fatalf("draft: %v", err)
	}
	if _, err := svc.SetLocation(ctx, pharmacist, geo.Point{}, ""); apperr.CodeOf(err) != apperr.CodeValidation {
		t.Fatalf("[0,0]: want VALIDATION_ERROR, got %v", err)
	}
	if _, err := svc.SetLocation(ctx, pharmacist, geo.NewPoint(95, 0), ""); apperr.CodeOf(err) != apperr.CodeValidation {
		t.Fatalf("lat 95: want VALIDATION_ERROR, got %v", err)
	}
	p, err := svc.SetLocation(ctx, pharmacist, geo.NewPoint(-1.2676, 36.8108), "Sarit Centre")
	if err != nil {
		t.Fatalf("set location: %v", err)
	}
	if !p.HasLocation() || p.Address.Street != "Sarit Centre" {
		t.Fatalf("location not stored: %+v", p)
	}
}

func TestCertificateLimit(t *testing.T) {
	st := memstore.New()
	svc := service.NewPharmacyService(st.Pharmacies, nil, 2)
	ctx := context.Background()
	if _, err := svc.SaveDraft(ctx, pharmacist, service.ProfileInput{Name: ptr("x")}); err != nil {
		t.Fatalf("draft: %v", err)
	}
	certs := []model.Certificate{{Name: "a.pdf", FileURL: "/uploads/certificates/a.pdf"}, {Name: "b.pdf", FileURL: "/uploads/certificates/b.pdf"}}
	p, err := svc.AddCertificates(ctx, pharmacist, certs)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if len(p.Certificates) != 2 || p.Certificates[0].UploadedAt.IsZero() {
		t.Fatalf("certificates: %+v", p.Certificates)
	}
	_, err = svc.AddCertificates(ctx, pharmacist, []model.Certificate{{Name: "c.pdf", FileURL: "/uploads/certificates/c.pdf"}})
	if apperr.CodeOf(err) != apperr.CodeValidation {
		t.Fatalf("third certificate: want VALIDATION_ERROR, got %v", err)
	}
}

func TestListPublicFiltersAndDistance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	hidden := &model.Pharmacy{OwnerID: 60, Name: "Pending", Status: model.StatusPendingApproval, IsActive: true,
		Location: geo.NewPoint(-1.2864, 36.8172), LocationSet: true}
	unset := &model.Pharmacy{OwnerID: 61, Name: "Unset", Status: model.StatusApproved, IsActive: true, IsVerified: true}
	for _, p := range []*model.Pharmacy{hidden, unset} {
		if err := f.st.Pharmacies.Create(ctx, p); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	svc := service.NewPharmacyService(f.st.Pharmacies, nil, 5)

	all, total, err := svc.ListPublic(ctx, service.PharmacyQuery{Page: service.NewPage(1, 10)})
	if err != nil || total != 2 || len(all) != 2 {
		t.Fatalf("no origin: %v total=%d", err, total)
	}
	origin := geo.NewPoint(-1.2921, 36.8219)
	near, _, err := svc.ListPublic(ctx, service.PharmacyQuery{Origin: &origin, Page: service.NewPage(1, 10)})
	if err != nil {
		t.Fatalf("origin: %v", err)
	}
	if len(near) != 1 || near[0].ID != f.pharmacy.ID || near[0].Distance == nil || near[0].Distance.Km > 1 {
		t.Fatalf("origin query: %+v", near)
	}
}

func TestDeletePharmacyCascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inv := f.stock(t, "Omeprazole", 15, 4)
	svc := service.NewPharmacyService(f.st.Pharmacies, nil, 5)

	stranger := service.Actor{UserID: 40, Role: model.RolePharmacist}
	if err := svc.Delete(ctx, stranger, f.pharmacy.ID); apperr.CodeOf(err) != apperr.CodeForbidden {
		t.Fatalf("stranger delete: want FORBIDDEN, got %v", err)
	}
	if err := svc.Delete(ctx, pharmacist, f.pharmacy.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	p, _ := f.st.Pharmacies.GetByID(ctx, f.pharmacy.ID)
	d, _ := f.st.Drugs.GetByID(ctx, f.drug.ID)
	row, _ := f.st.Inventory.GetByID(ctx, inv.ID)
	if p.IsActive || d.IsActive || row.IsAvailable {
		t.Fatalf("cascade incomplete: pharmacy=%v drug=%v inventory=%v", p.IsActive, d.IsActive, row.IsAvailable)
	}
	if _, err := svc.Get(ctx, patient, p.ID); apperr.CodeOf(err) != apperr.CodeNotFound {
		t.Fatalf("deactivated pharmacy visible publicly: %v", err)
	}
	if _, err := svc.Get(ctx, pharmacist, p.ID); err != nil {
		t.Fatalf("owner lost access: %v", err)
	}
}
