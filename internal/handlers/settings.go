package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"example.com/budget-tracker/internal/auth"
	"example.com/budget-tracker/internal/budget"
	"example.com/budget-tracker/internal/repository"
)

type SettingsHandler struct {
	Settings repository.SettingsStore
	Service  *budget.Service
}

func NewSettingsHandler(settings repository.SettingsStore, service *budget.Service) *SettingsHandler {
	return &SettingsHandler{Settings: settings, Service: service}
}

type SettingsRequest struct {
	AverageMonths int `json:"average_months" validate:"required,min=1"`
}

type SettingsResponse struct {
	AverageMonths int `json:"average_months"`
}

// Get returns the stored settings or the defaults when none were saved.
func (h *SettingsHandler) Get(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	settings, err := h.Settings.GetSettings(c.Request().Context(), userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusOK, SettingsResponse{AverageMonths: h.Service.DefaultWindow()})
		}
		return serverError(c)
	}

	return c.JSON(http.StatusOK, SettingsResponse{AverageMonths: settings.AverageMonths})
}

func (h *SettingsHandler) Update(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var req SettingsRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, err.Error())
	}
	if err := h.Service.ValidateWindow(req.AverageMonths); err != nil {
		return badRequest(c, err.Error())
	}

	settings, err := h.Settings.UpsertSettings(c.Request().Context(), userID, req.AverageMonths)
	if err != nil {
		return serverError(c)
	}

	return c.JSON(http.StatusOK, SettingsResponse{AverageMonths: settings.AverageMonths})
}
