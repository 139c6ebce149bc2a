package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"example.com/budget-tracker/internal/budget"
)

type errorResponse struct {
	Error   string `json:"error"`
	Outcome string `json:"outcome,omitempty"`
}

func badRequest(c echo.Context, message string) error {
	return c.JSON(http.StatusBadRequest, errorResponse{Error: message})
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, errorResponse{Error: "authentication required"})
}

func conflict(c echo.Context, message string) error {
	return c.JSON(http.StatusConflict, errorResponse{Error: message})
}

func notFound(c echo.Context, message string) error {
	return c.JSON(http.StatusNotFound, errorResponse{Error: message})
}

func serverError(c echo.Context) error {
	return c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal server error"})
}

func unavailable(c echo.Context, message string) error {
	return c.JSON(http.StatusServiceUnavailable, errorResponse{Error: message})
}

// budgetError maps the budget error taxonomy to a response.
func budgetError(c echo.Context, err error) error {
	var updateErr *budget.UpdateError
	var readErr *budget.ReadError

	switch {
	case errors.Is(err, budget.ErrNotAuthenticated):
		return unauthorized(c)
	case errors.Is(err, budget.ErrInvalidArgument):
		return badRequest(c, err.Error())
	case errors.Is(err, budget.ErrCategoryNotFound):
		return notFound(c, "category not found")
	case errors.As(err, &updateErr):
		return c.JSON(http.StatusInternalServerError, errorResponse{
			Error:   updateErr.Message(),
			Outcome: string(updateErr.Outcome),
		})
	case errors.As(err, &readErr):
		return unavailable(c, "budget data is temporarily unavailable")
	default:
		return serverError(c)
	}
}

// parseMonthParam reads YYYY-MM; an empty value selects the current month.
func parseMonthParam(value string, now time.Time) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return budget.MonthStart(now), nil
	}
	return budget.ParseMonth(value)
}

// parseWindowParam returns ok=false when the parameter is absent.
func parseWindowParam(value string) (int, bool, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, false, fmt.Errorf("%w: window must be an integer", budget.ErrInvalidArgument)
	}
	return parsed, true, nil
}
