package budget

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"example.com/budget-tracker/internal/models"
)

func tx(category, group, amount string, date time.Time) models.Transaction {
	return models.Transaction{
		Date:          date,
		Category:      category,
		SpendingGroup: group,
		Amount:        decimal.RequireFromString(amount),
	}
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestSumByCategory(t *testing.T) {
	totals := SumByCategory([]models.Transaction{
		tx("Groceries", "Day to Day", "10.10", day(2024, 3, 1)),
		tx("Groceries", "Day to Day", "20.20", day(2024, 3, 2)),
		tx("groceries", "Day to Day", "5", day(2024, 3, 2)),
		tx("Refunds", "Day to Day", "-7.5", day(2024, 3, 3)),
	})

	if !totals["Groceries"].Equal(decimal.RequireFromString("30.30")) {
		t.Fatalf("expected 30.30, got %s", totals["Groceries"])
	}
	if !totals["groceries"].Equal(decimal.NewFromInt(5)) {
		t.Fatalf("labels must match exactly, got %s", totals["groceries"])
	}
	if !totals["Refunds"].Equal(decimal.RequireFromString("-7.5")) {
		t.Fatalf("signed amounts must be kept, got %s", totals["Refunds"])
	}
}

func TestObserveCategoriesFirstSeenGroup(t *testing.T) {
	observed := ObserveCategories([]models.Transaction{
		tx("Pets", "Day to Day", "1", day(2024, 3, 1)),
		tx("Gym", "Recurring", "1", day(2024, 3, 2)),
		tx("Pets", "Recurring", "1", day(2024, 3, 3)),
	})

	if len(observed) != 2 {
		t.Fatalf("expected 2 names, got %d", len(observed))
	}
	if observed[0].Name != "Pets" || observed[0].SpendingGroup != "Day to Day" {
		t.Fatalf("unexpected first entry %+v", observed[0])
	}
}
