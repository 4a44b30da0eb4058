package handler

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/pharmapin/pharmapin/internal/apperr"
	"github.com/pharmapin/pharmapin/internal/geo"
	"github.com/pharmapin/pharmapin/internal/model"
	"github.com/pharmapin/pharmapin/internal/service"
)

// maxUploadFiles caps the files accepted in a single certificate upload.
const maxUploadFiles = 5

var certificateExts = map[string]bool{".pdf": true, ".jpg": true, ".jpeg": true, ".png": true}

// OnboardingHandler serves the pharmacist's own pharmacy profile.
type OnboardingHandler struct {
	Pharmacies *service.PharmacyService
	UploadDir  string
}

func NewOnboardingHandler(p *service.PharmacyService, uploadDir string) *OnboardingHandler {
	return &OnboardingHandler{Pharmacies: p, UploadDir: uploadDir}
}

func (h *OnboardingHandler) Status(c echo.Context) error {
	st, err := h.Pharmacies.Status(c.Request().Context(), actor(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, st)
}

func (h *OnboardingHandler) Profile(c echo.Context) error {
	p, err := h.Pharmacies.Profile(c.Request().Context(), actor(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func (h *OnboardingHandler) SaveDraft(c echo.Context) error {
	var in service.ProfileInput
	if err := bind(c, &in); err != nil {
		return err
	}
	p, err := h.Pharmacies.SaveDraft(c.Request().Context(), actor(c), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func (h *OnboardingHandler) CompleteProfile(c echo.Context) error {
	var in service.ProfileInput
	if err := bind(c, &in); err != nil {
		return err
	}
	p, err := h.Pharmacies.CompleteProfile(c.Request().Context(), actor(c), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "profile submitted for approval", "pharmacy": p})
}

// UploadCertificates stores each file as certificates/<uuid><ext> under
// UploadDir. Files already written are removed if the profile update fails.
func (h *OnboardingHandler) UploadCertificates(c echo.Context) error {
	form, err := c.MultipartForm()
	if err != nil {
		return apperr.New(apperr.CodeInvalidInput, "expected multipart form data")
	}
	files := form.File["certificates"]
	switch {
	case len(files) == 0:
		return apperr.Validation(map[string]string{"certificates": "no files uploaded"})
	case len(files) > maxUploadFiles:
		return apperr.Validation(map[string]string{"certificates": "at most 5 files per upload"})
	}
	for _, fh := range files {
		if !certificateExts[strings.ToLower(filepath.Ext(fh.Filename))] {
			return apperr.Validation(map[string]string{"certificates": fh.Filename + ": only pdf, jpg, jpeg and png are accepted"})
		}
	}

	dir := filepath.Join(h.UploadDir, "certificates")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	certs := make([]model.Certificate, 0, len(files))
	var written []string
	cleanup := func() {
		for _, p := range written {
			_ = os.Remove(p)
		}
	}
	for _, fh := range files {
		name := uuid.NewString() + strings.ToLower(filepath.Ext(fh.Filename))
		dst := filepath.Join(dir, name)
		if err := saveUpload(fh, dst); err != nil {
			cleanup()
			return err
		}
		written = append(written, dst)
		certs = append(certs, model.Certificate{Name: fh.Filename, FileURL: "/uploads/certificates/" + name})
	}

	p, err := h.Pharmacies.AddCertificates(c.Request().Context(), actor(c), certs)
	if err != nil {
		cleanup()
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"certificates": p.Certificates})
}

func saveUpload(fh *multipart.FileHeader, dst string) error {
	src, err := fh.Open()
	if err != nil {
		return err
	}
	defer src.Close()
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		return errors.Join(err, os.Remove(dst))
	}
	return out.Close()
}

type locationReq struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Address   string   `json:"address"`
}

func (h *OnboardingHandler) SetLocation(c echo.Context) error {
	var req locationReq
	if err := bind(c, &req); err != nil {
		return err
	}
	if req.Latitude == nil || req.Longitude == nil {
		return apperr.Validation(map[string]string{"location": "latitude and longitude are required"})
	}
	p, err := h.Pharmacies.SetLocation(c.Request().Context(), actor(c), geo.NewPoint(*req.Latitude, *req.Longitude), req.Address)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"locationSet": p.LocationSet, "location": p.Location, "address": p.Address})
}

func (h *OnboardingHandler) GetLocation(c echo.Context) error {
	p, err := h.Pharmacies.Profile(c.Request().Context(), actor(c))
	if err != nil {
		return err
	}
	body := echo.Map{"locationSet": p.HasLocation(), "address": p.Address}
	if p.HasLocation() {
		body["location"] = p.Location
	}
	return c.JSON(http.StatusOK, body)
}
