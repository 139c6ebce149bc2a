package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"example.com/budget-tracker/internal/auth"
	"example.com/budget-tracker/internal/budget"
	"example.com/budget-tracker/internal/models"
	"example.com/budget-tracker/internal/repository"
)

type BudgetHandler struct {
	Service  *budget.Service
	Settings repository.SettingsStore
	now      func() time.Time
}

func NewBudgetHandler(service *budget.Service, settings repository.SettingsStore) *BudgetHandler {
	return &BudgetHandler{
		Service:  service,
		Settings: settings,
		now:      time.Now,
	}
}

type UpdateBudgetRequest struct {
	Month         string `json:"month" validate:"required"`
	Amount        string `json:"amount" validate:"required"`
	Scope         string `json:"scope" validate:"omitempty,oneof=current future"`
	SpendingGroup string `json:"spending_group" validate:"omitempty,max=100"`
}

type UpdateBudgetResponse struct {
	Outcome  budget.Outcome        `json:"outcome"`
	Category models.BudgetCategory `json:"category"`
	Created  bool                  `json:"created"`
	Months   []string              `json:"invalidated_months,omitempty"`
	All      bool                  `json:"invalidated_all_months"`
}

// Summary returns the grouped budget of a month.
func (h *BudgetHandler) Summary(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	month, err := parseMonthParam(c.QueryParam("month"), h.now())
	if err != nil {
		return badRequest(c, err.Error())
	}

	window, err := h.resolveWindow(c.Request().Context(), userID, c.QueryParam("window"))
	if err != nil {
		return budgetError(c, err)
	}

	summary, err := h.Service.GetMonthlySummary(c.Request().Context(), userID, month, window)
	if err != nil {
		return budgetError(c, err)
	}

	return c.JSON(http.StatusOK, summary)
}

// UpdateCategory sets a category's budget for the month or for this and
// every following month.
func (h *BudgetHandler) UpdateCategory(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var req UpdateBudgetRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, err.Error())
	}

	amount, err := decimal.NewFromString(strings.TrimSpace(req.Amount))
	if err != nil {
		return badRequest(c, "amount must be a number")
	}

	month, err := budget.ParseMonth(req.Month)
	if err != nil {
		return badRequest(c, err.Error())
	}

	scope := budget.ScopeCurrent
	if req.Scope != "" {
		if scope, err = budget.ParseScope(req.Scope); err != nil {
			return badRequest(c, err.Error())
		}
	}

	result, err := h.Service.UpdateBudget(c.Request().Context(), budget.UpdateRequest{
		UserID:        userID,
		Category:      c.Param("category"),
		SpendingGroup: strings.TrimSpace(req.SpendingGroup),
		Month:         month,
		Amount:        amount,
		Scope:         scope,
	})
	if err != nil {
		return budgetError(c, err)
	}

	return c.JSON(http.StatusOK, UpdateBudgetResponse{
		Outcome:  result.Outcome,
		Category: result.Category,
		Created:  result.Created,
		Months:   result.Invalidation.MonthKeys(),
		All:      result.Invalidation.AllMonths,
	})
}

// CategoryHistory returns the trailing spend of one category.
func (h *BudgetHandler) CategoryHistory(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	month, err := parseMonthParam(c.QueryParam("month"), h.now())
	if err != nil {
		return badRequest(c, err.Error())
	}

	window, err := h.resolveWindow(c.Request().Context(), userID, c.QueryParam("window"))
	if err != nil {
		return budgetError(c, err)
	}

	history, err := h.Service.CategoryHistory(c.Request().Context(), userID, c.QueryParam("name"), month, window)
	if err != nil {
		return budgetError(c, err)
	}

	return c.JSON(http.StatusOK, history)
}

// resolveWindow prefers the query parameter, then the user's setting, then
// the configured default.
func (h *BudgetHandler) resolveWindow(ctx context.Context, userID uuid.UUID, raw string) (int, error) {
	window, ok, err := parseWindowParam(raw)
	if err != nil {
		return 0, err
	}
	if ok {
		return window, nil
	}

	if h.Settings != nil {
		settings, err := h.Settings.GetSettings(ctx, userID)
		switch {
		case err == nil:
			if h.Service.ValidateWindow(settings.AverageMonths) == nil {
				return settings.AverageMonths, nil
			}
		case errors.Is(err, repository.ErrNotFound):
		default:
			return 0, &budget.ReadError{Query: "settings", Err: err}
		}
	}

	return h.Service.DefaultWindow(), nil
}
