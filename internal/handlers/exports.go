package handlers

import (
	"bytes"
	"encoding/csv"
	"net/http"

	"github.com/labstack/echo/v4"

	"example.com/budget-tracker/internal/auth"
	"example.com/budget-tracker/internal/budget"
)

// ExportCSV writes the grouped summary of a month as CSV, one row per category.
func (h *BudgetHandler) ExportCSV(c echo.Context) error {
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

	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	if err := writeSummaryCSV(writer, summary); err != nil {
		return serverError(c)
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return serverError(c)
	}

	filename := "budget-" + budget.MonthKey(month) + ".csv"
	c.Response().Header().Set(echo.HeaderContentDisposition, "attachment; filename=\""+filename+"\"")
	return c.Blob(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

func writeSummaryCSV(writer *csv.Writer, summary budget.GroupedSummary) error {
	header := []string{
		"group",
		"category",
		"kind",
		"budgeted",
		"spent",
		"remaining",
		"average",
		"group_progress_percent",
	}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, group := range summary.Groups {
		for _, category := range group.Categories {
			record := []string{
				group.Name,
				category.Name,
				string(category.Kind),
				category.Budgeted.StringFixed(budget.AmountPlaces),
				category.Spent.StringFixed(budget.AmountPlaces),
				category.Remaining.StringFixed(budget.AmountPlaces),
				category.AverageSpend.StringFixed(budget.AmountPlaces),
				group.Progress.StringFixed(budget.AmountPlaces),
			}
			if err := writer.Write(record); err != nil {
				return err
			}
		}
	}

	return nil
}
