package budget

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"example.com/budget-tracker/internal/models"
)

func TestAverageSpendCountsOnlyActiveMonths(t *testing.T) {
	historical := []models.Transaction{
		tx("Insurance", "Recurring", "100", day(2024, 1, 5)),
		tx("Insurance", "Recurring", "20", day(2024, 1, 20)),
		tx("Insurance", "Recurring", "60", day(2024, 4, 2)),
		tx("Groceries", "Day to Day", "999", day(2024, 2, 2)),
	}

	got := AverageSpend("Insurance", historical, 6)
	if !got.Equal(decimal.NewFromInt(90)) {
		t.Fatalf("expected 90, got %s", got)
	}
}

func TestAverageSpendWithoutTransactions(t *testing.T) {
	if got := AverageSpend("Missing", nil, 3); !got.IsZero() {
		t.Fatalf("expected 0, got %s", got)
	}
	if got := AverageSpend("Insurance", []models.Transaction{tx("Insurance", "", "10", day(2024, 1, 1))}, 0); !got.IsZero() {
		t.Fatalf("non-positive window must yield 0, got %s", got)
	}
}

func TestAverageSpendRounds(t *testing.T) {
	historical := []models.Transaction{
		tx("Coffee", "", "10", day(2024, 1, 1)),
		tx("Coffee", "", "10", day(2024, 2, 1)),
		tx("Coffee", "", "0.01", day(2024, 3, 1)),
	}

	if got := AverageSpend("Coffee", historical, 3); !got.Equal(decimal.RequireFromString("6.67")) {
		t.Fatalf("expected 6.67, got %s", got)
	}
}

func TestMonthlyTotalsZeroFilled(t *testing.T) {
	ref := day(2024, 3, 15)
	totals, err := MonthlyTotals("Fuel", []models.Transaction{
		tx("Fuel", "", "40", day(2024, 1, 3)),
		tx("Fuel", "", "35", day(2024, 3, 9)),
	}, ref, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(totals) != 3 {
		t.Fatalf("expected 3 buckets, got %d", len(totals))
	}
	if totals[0].Month.Month() != time.January || !totals[0].Total.Equal(decimal.NewFromInt(40)) {
		t.Fatalf("unexpected first bucket %+v", totals[0])
	}
	if !totals[1].Total.IsZero() {
		t.Fatalf("february must be zero, got %s", totals[1].Total)
	}
	if totals[2].Month.Month() != time.March {
		t.Fatalf("last bucket must be the reference month")
	}
}
