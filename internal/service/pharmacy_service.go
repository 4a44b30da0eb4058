package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/pharmapin/pharmapin/internal/apperr"
	"github.com/pharmapin/pharmapin/internal/approval"
	"github.com/pharmapin/pharmapin/internal/geo"
	"github.com/pharmapin/pharmapin/internal/model"
	"github.com/pharmapin/pharmapin/internal/queue"
	"github.com/pharmapin/pharmapin/internal/search"
)

// ProfileInput is the editable pharmacy profile submitted by a pharmacist.
// Nil pointers leave the stored value untouched.
type ProfileInput struct {
	Name           *string               `json:"name"`
	LicenseNumber  *string               `json:"licenseNumber"`
	Address        *model.Address        `json:"address"`
	Contact        *model.Contact        `json:"contact"`
	OperatingHours *model.OperatingHours `json:"operatingHours"`
	Services       []string              `json:"services"`
	Description    *string               `json:"description"`
	Location       *geo.Point            `json:"location"`
}

// OnboardingStatus summarizes where a pharmacist is in onboarding.
type OnboardingStatus struct {
	HasPharmacy     bool            `json:"hasPharmacy"`
	Status          string          `json:"status"`
	RejectionReason string          `json:"rejectionReason,omitempty"`
	LocationSet     bool            `json:"locationSet"`
	PharmacyID      uint64          `json:"pharmacyId,omitempty"`
	Pharmacy        *model.Pharmacy `json:"pharmacy,omitempty"`
}

// PharmacyListing is a pharmacy with an optional distance from the caller.
type PharmacyListing struct {
	model.Pharmacy
	Distance *search.Distance `json:"distance,omitempty"`
}

type PharmacyService struct {
	Pharmacies      PharmacyStore
	Events          EventPublisher
	MaxCertificates int
	Now             func() time.Time
}

func NewPharmacyService(p PharmacyStore, events EventPublisher, maxCerts int) *PharmacyService {
	if p == nil {
		panic("nil store passed to NewPharmacyService")
	}
	if maxCerts <= 0 {
		maxCerts = 5
	}
	return &PharmacyService{Pharmacies: p, Events: orNop(events), MaxCertificates: maxCerts, Now: time.Now}
}

// mine loads the caller's pharmacy. Only pharmacists own pharmacies.
func (s *PharmacyService) mine(ctx context.Context, a Actor) (*model.Pharmacy, error) {
	if a.Role != model.RolePharmacist {
		return nil, apperr.New(apperr.CodeForbidden, "only pharmacists manage pharmacy profiles")
	}
	p, err := s.Pharmacies.GetByOwner(ctx, a.UserID)
	if err != nil {
		return nil, apperr.Unavailable(err)
	}
	return p, nil
}

func (s *PharmacyService) Status(ctx context.Context, a Actor) (OnboardingStatus, error) {
	p, err := s.mine(ctx, a)
	if errors.Is(err, apperr.ErrNotFound) {
		return OnboardingStatus{Status: "no_pharmacy"}, nil
	}
	if err != nil {
		return OnboardingStatus{}, err
	}
	return OnboardingStatus{
		HasPharmacy:     true,
		Status:          string(p.Status),
		RejectionReason: p.RejectionReason,
		LocationSet:     p.LocationSet,
		PharmacyID:      p.ID,
		Pharmacy:        p,
	}, nil
}

func (s *PharmacyService) Profile(ctx context.Context, a Actor) (*model.Pharmacy, error) {
	return s.mine(ctx, a)
}

// SaveDraft creates the caller's pharmacy in draft, or edits it while it is
// still a draft.
func (s *PharmacyService) SaveDraft(ctx context.Context, a Actor, in ProfileInput) (*model.Pharmacy, error) {
	p, err := s.mine(ctx, a)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		p = &model.Pharmacy{OwnerID: a.UserID, Status: model.StatusDraft, IsActive: true}
		if err := applyProfile(p, in); err != nil {
			return nil, err
		}
		if err := s.Pharmacies.Create(ctx, p); err != nil {
			return nil, apperr.Unavailable(err)
		}
		return p, nil
	case err != nil:
		return nil, err
	}
	if p.Status != model.StatusDraft {
		return nil, apperr.Newf(apperr.CodeConflict, "pharmacy is %s; drafts can no longer be saved", p.Status)
	}
	if err := applyProfile(p, in); err != nil {
		return nil, err
	}
	if err := s.Pharmacies.Save(ctx, p); err != nil {
		return nil, apperr.Unavailable(err)
	}
	return p, nil
}

// CompleteProfile applies the profile and submits it for review, creating
// the pharmacy first when the pharmacist has none.
func (s *PharmacyService) CompleteProfile(ctx context.Context, a Actor, in ProfileInput) (*model.Pharmacy, error) {
	p, err := s.mine(ctx, a)
	created := false
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		p = &model.Pharmacy{OwnerID: a.UserID, Status: model.StatusDraft, IsActive: true}
		created = true
	case err != nil:
		return nil, err
	}
	if p.Status == model.StatusApproved {
		return nil, apperr.New(apperr.CodeConflict, "pharmacy profile already approved and cannot be modified")
	}
	if err := applyProfile(p, in); err != nil {
		return nil, err
	}
	if err := approval.Submit(p); err != nil {
		return nil, err
	}
	if created {
		err = s.Pharmacies.Create(ctx, p)
	} else {
		err = s.Pharmacies.Save(ctx, p)
	}
	if err != nil {
		return nil, apperr.Unavailable(err)
	}
	s.publishStatus(ctx, p, a.UserID)
	return p, nil
}

// AddCertificates attaches uploaded certificate references.
func (s *PharmacyService) AddCertificates(ctx context.Context, a Actor, certs []model.Certificate) (*model.Pharmacy, error) {
	p, err := s.mine(ctx, a)
	if err != nil {
		return nil, err
	}
	if len(certs) == 0 {
		return nil, apperr.Validation(map[string]string{"certificates": "no files uploaded"})
	}
	if len(p.Certificates)+len(certs) > s.MaxCertificates {
		return nil, apperr.Validation(map[string]string{
			"certificates": "at most " + itoa(s.MaxCertificates) + " certificates are allowed",
		})
	}
	now := s.Now().UTC()
	for i := range certs {
		if strings.TrimSpace(certs[i].FileURL) == "" {
			return nil, apperr.Validation(map[string]string{"certificates": "certificate file reference is required"})
		}
		if certs[i].UploadedAt.IsZero() {
			certs[i].UploadedAt = now
		}
	}
	if err := s.Pharmacies.AddCertificates(ctx, p.ID, certs); err != nil {
		return nil, apperr.Unavailable(err)
	}
	p.Certificates = append(p.Certificates, certs...)
	return p, nil
}

// SetLocation stores the pharmacy's point and marks it usable for radius
// search. address, when non-empty, replaces the street address.
func (s *PharmacyService) SetLocation(ctx context.Context, a Actor, pt geo.Point, address string) (*model.Pharmacy, error) {
	if err := pt.Validate(); err != nil {
		return nil, apperr.Validation(map[string]string{"location": err.Error()})
	}
	if pt.IsZero() {
		return nil, apperr.Validation(map[string]string{"location": "coordinates [0,0] are reserved for an unset location"})
	}
	p, err := s.mine(ctx, a)
	if err != nil {
		return nil, err
	}
	p.Location = pt
	p.LocationSet = true
	if addr := strings.TrimSpace(address); addr != "" {
		p.Address.Street = addr
	}
	if err := s.Pharmacies.Save(ctx, p); err != nil {
		return nil, apperr.Unavailable(err)
	}
	return p, nil
}

// Get returns a pharmacy. Inactive or unverified pharmacies are visible only
// to their owner and admins.
func (s *PharmacyService) Get(ctx context.Context, a Actor, id uint64) (*model.Pharmacy, error) {
	p, err := s.Pharmacies.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Unavailable(err)
	}
	if !p.Searchable() && !a.IsAdmin() && p.OwnerID != a.UserID {
		return nil, apperr.New(apperr.CodeNotFound, "pharmacy not found")
	}
	return p, nil
}

// ListPublic lists searchable pharmacies. With an origin, only pharmacies
// with a set location inside the radius are returned and each carries its
// distance.
func (s *PharmacyService) ListPublic(ctx context.Context, q PharmacyQuery) ([]PharmacyListing, int64, error) {
	q.PublicOnly = true
	q.Status = ""
	if q.Origin != nil {
		if err := q.Origin.Validate(); err != nil {
			return nil, 0, apperr.Wrap(apperr.CodeInvalidInput, "invalid origin", err)
		}
		if q.RadiusKm <= 0 {
			q.RadiusKm = 10
		}
	}
	items, total, err := s.Pharmacies.List(ctx, q)
	if err != nil {
		return nil, 0, apperr.Unavailable(err)
	}
	out := make([]PharmacyListing, 0, len(items))
	for _, p := range items {
		l := PharmacyListing{Pharmacy: p}
		if q.Origin != nil {
			if !p.HasLocation() {
				continue
			}
			d := search.Distance{Km: geo.DistanceKm(*q.Origin, p.Location), Known: true}
			l.Distance = &d
		}
		out = append(out, l)
	}
	return out, total, nil
}

// ListByStatus serves the admin review queues. An empty status lists all.
func (s *PharmacyService) ListByStatus(ctx context.Context, a Actor, status model.PharmacyStatus, pg Page) ([]model.Pharmacy, int64, error) {
	if !a.IsAdmin() {
		return nil, 0, apperr.ErrForbidden
	}
	if status != "" && !status.Valid() {
		return nil, 0, apperr.Newf(apperr.CodeInvalidInput, "unknown status %q", status)
	}
	items, total, err := s.Pharmacies.List(ctx, PharmacyQuery{Status: status, Page: pg})
	return items, total, apperr.Unavailable(err)
}

// Update edits a pharmacy as its owner or an admin. Once approved, name and
// licence are locked for owners.
func (s *PharmacyService) Update(ctx context.Context, a Actor, id uint64, in ProfileInput) (*model.Pharmacy, error) {
	p, err := s.Pharmacies.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Unavailable(err)
	}
	if !a.IsAdmin() && p.OwnerID != a.UserID {
		return nil, apperr.New(apperr.CodeForbidden, "not your pharmacy")
	}
	if p.Status == model.StatusApproved && !a.IsAdmin() {
		if in.Name != nil && *in.Name != p.Name && !approval.EditableWhenApproved("name") {
			return nil, apperr.New(apperr.CodeConflict, "name cannot change after approval")
		}
		if in.LicenseNumber != nil && *in.LicenseNumber != p.LicenseNumber && !approval.EditableWhenApproved("licenseNumber") {
			return nil, apperr.New(apperr.CodeConflict, "license number cannot change after approval")
		}
	}
	if err := applyProfile(p, in); err != nil {
		return nil, err
	}
	if err := s.Pharmacies.Save(ctx, p); err != nil {
		return nil, apperr.Unavailable(err)
	}
	return p, nil
}

// Delete soft-deletes a pharmacy with the uniform cascade.
func (s *PharmacyService) Delete(ctx context.Context, a Actor, id uint64) error {
	p, err := s.Pharmacies.GetByID(ctx, id)
	if err != nil {
		return apperr.Unavailable(err)
	}
	if !a.IsAdmin() && p.OwnerID != a.UserID {
		return apperr.New(apperr.CodeForbidden, "not your pharmacy")
	}
	return apperr.Unavailable(s.Pharmacies.Deactivate(ctx, id))
}

func (s *PharmacyService) Approve(ctx context.Context, a Actor, id uint64) (*model.Pharmacy, error) {
	if !a.IsAdmin() {
		return nil, apperr.New(apperr.CodeForbidden, "admin only")
	}
	p, err := s.Pharmacies.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Unavailable(err)
	}
	if err := approval.Approve(p, a.UserID, s.Now()); err != nil {
		return nil, err
	}
	if err := s.Pharmacies.Save(ctx, p); err != nil {
		return nil, apperr.Unavailable(err)
	}
	s.publishStatus(ctx, p, a.UserID)
	return p, nil
}

func (s *PharmacyService) Reject(ctx context.Context, a Actor, id uint64, reason string) (*model.Pharmacy, error) {
	if !a.IsAdmin() {
		return nil, apperr.New(apperr.CodeForbidden, "admin only")
	}
	p, err := s.Pharmacies.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Unavailable(err)
	}
	if err := approval.Reject(p, reason); err != nil {
		return nil, err
	}
	if err := s.Pharmacies.Save(ctx, p); err != nil {
		return nil, apperr.Unavailable(err)
	}
	s.publishStatus(ctx, p, a.UserID)
	return p, nil
}

func (s *PharmacyService) publishStatus(ctx context.Context, p *model.Pharmacy, by uint64) {
	_ = s.Events.Publish(ctx, queue.QueuePharmacyStatusChanged, queue.PharmacyStatusChangedEvent{
		PharmacyID:      p.ID,
		Name:            p.Name,
		Status:          string(p.Status),
		RejectionReason: p.RejectionReason,
		ChangedBy:       by,
		ChangedAt:       s.Now().UTC().Format(time.RFC3339),
	})
}

// applyProfile copies non-nil input fields onto p.
func applyProfile(p *model.Pharmacy, in ProfileInput) error {
	f := map[string]string{}
	if in.Name != nil {
		p.Name = strings.TrimSpace(*in.Name)
		if len(p.Name) > 100 {
			f["name"] = "name must be at most 100 characters"
		}
	}
	if in.LicenseNumber != nil {
		p.LicenseNumber = strings.TrimSpace(*in.LicenseNumber)
	}
	if in.Address != nil {
		p.Address = model.Address{Street: strings.TrimSpace(in.Address.Street), City: strings.TrimSpace(in.Address.City)}
	}
	if in.Contact != nil {
		p.Contact = model.Contact{Phone: strings.TrimSpace(in.Contact.Phone), Email: strings.ToLower(strings.TrimSpace(in.Contact.Email))}
	}
	if in.OperatingHours != nil {
		p.OperatingHours = *in.OperatingHours
	}
	if in.Services != nil {
		p.Services = cleanList(in.Services)
	}
	if in.Description != nil {
		p.Description = strings.TrimSpace(*in.Description)
		if len(p.Description) > 1000 {
			f["description"] = "description must be at most 1000 characters"
		}
	}
	if in.Location != nil {
		if err := in.Location.Validate(); err != nil {
			f["location"] = err.Error()
		} else {
			p.Location = *in.Location
			p.LocationSet = !in.Location.IsZero()
		}
	}
	return apperr.Validation(f)
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
