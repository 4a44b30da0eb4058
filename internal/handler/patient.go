package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/pharmapin/pharmapin/internal/service"
)

type PatientHandler struct{ Patients *service.PatientService }

func NewPatientHandler(p *service.PatientService) *PatientHandler { return &PatientHandler{Patients: p} }

func (h *PatientHandler) Profile(c echo.Context) error {
	p, err := h.Patients.Profile(c.Request().Context(), actor(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func (h *PatientHandler) Addresses(c echo.Context) error {
	items, err := h.Patients.Addresses(c.Request().Context(), actor(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"data": items})
}

func (h *PatientHandler) AddAddress(c echo.Context) error {
	var in service.AddressInput
	if err := bind(c, &in); err != nil {
		return err
	}
	a, err := h.Patients.AddAddress(c.Request().Context(), actor(c), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *PatientHandler) UpdateAddress(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var in service.AddressInput
	if err := bind(c, &in); err != nil {
		return err
	}
	a, err := h.Patients.UpdateAddress(c.Request().Context(), actor(c), id, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}

func (h *PatientHandler) DeleteAddress(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := h.Patients.DeleteAddress(c.Request().Context(), actor(c), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *PatientHandler) SetDefaultAddress(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := h.Patients.SetDefaultAddress(c.Request().Context(), actor(c), id); err != nil {
		return err
	}
	items, err := h.Patients.Addresses(c.Request().Context(), actor(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"data": items})
}

func (h *PatientHandler) Favorites(c echo.Context) error {
	items, err := h.Patients.Favorites(c.Request().Context(), actor(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"data": items})
}

func (h *PatientHandler) ToggleFavorite(c echo.Context) error {
	id, err := paramID(c, "pharmacyId")
	if err != nil {
		return err
	}
	fav, err := h.Patients.ToggleFavorite(c.Request().Context(), actor(c), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"pharmacyId": id, "isFavorite": fav})
}
