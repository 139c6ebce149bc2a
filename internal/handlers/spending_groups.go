package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"example.com/budget-tracker/internal/auth"
	"example.com/budget-tracker/internal/budget"
	"example.com/budget-tracker/internal/repository"
)

type SpendingGroupHandler struct {
	Groups  repository.SpendingGroupStore
	Service *budget.Service
}

func NewSpendingGroupHandler(groups repository.SpendingGroupStore, service *budget.Service) *SpendingGroupHandler {
	return &SpendingGroupHandler{Groups: groups, Service: service}
}

type CreateSpendingGroupRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

// List returns the user's groups, seeding the defaults on first use.
func (h *SpendingGroupHandler) List(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	groups, err := h.Groups.EnsureDefaultSpendingGroups(c.Request().Context(), userID)
	if err != nil {
		return serverError(c)
	}

	return c.JSON(http.StatusOK, groups)
}

func (h *SpendingGroupHandler) Create(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var req CreateSpendingGroupRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid payload")
	}
	req.Name = strings.TrimSpace(req.Name)
	if err := c.Validate(&req); err != nil {
		return badRequest(c, err.Error())
	}

	group, err := h.Groups.CreateSpendingGroup(c.Request().Context(), userID, req.Name)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return conflict(c, "spending group already exists")
		}
		return serverError(c)
	}

	h.Service.InvalidateUser(c.Request().Context(), userID)
	return c.JSON(http.StatusCreated, group)
}

func (h *SpendingGroupHandler) Delete(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	groupID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return badRequest(c, "invalid spending group id")
	}

	if err := h.Groups.DeleteSpendingGroup(c.Request().Context(), userID, groupID); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return notFound(c, "spending group not found")
		case errors.Is(err, repository.ErrProtected):
			return conflict(c, "default spending groups cannot be deleted")
		default:
			return serverError(c)
		}
	}

	h.Service.InvalidateUser(c.Request().Context(), userID)
	return c.NoContent(http.StatusNoContent)
}
