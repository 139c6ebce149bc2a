package budget

import (
	"github.com/shopspring/decimal"

	"example.com/budget-tracker/internal/models"
)

// SumByCategory totals signed amounts per category label. Labels are matched
// exactly; amounts are added as-is with no currency conversion.
func SumByCategory(transactions []models.Transaction) map[string]decimal.Decimal {
	totals := make(map[string]decimal.Decimal)
	for _, tx := range transactions {
		totals[tx.Category] = totals[tx.Category].Add(tx.Amount)
	}
	return totals
}

// ObservedCategory is a category label seen in transactions together with the
// spending group of the first transaction that carried it.
type ObservedCategory struct {
	Name          string
	SpendingGroup string
}

// ObserveCategories lists distinct category labels in first-seen order.
func ObserveCategories(transactions []models.Transaction) []ObservedCategory {
	seen := make(map[string]struct{}, len(transactions))
	out := make([]ObservedCategory, 0)
	for _, tx := range transactions {
		if _, ok := seen[tx.Category]; ok {
			continue
		}
		seen[tx.Category] = struct{}{}
		out = append(out, ObservedCategory{Name: tx.Category, SpendingGroup: tx.SpendingGroup})
	}
	return out
}
