package budget

import (
	"time"

	"github.com/shopspring/decimal"

	"example.com/budget-tracker/internal/models"
)

// AmountPlaces is the precision amounts are stored and reported with.
const AmountPlaces = 2

// AverageSpend is the mean monthly spend of one category over the trailing
// window. The divisor is the number of distinct months that actually contain
// a transaction for the category, not windowMonths, so irregular spend (an
// annual premium, say) is not diluted by empty months. Transactions outside
// the window are expected to have been filtered by the caller's query.
func AverageSpend(categoryName string, historical []models.Transaction, windowMonths int) decimal.Decimal {
	if windowMonths <= 0 {
		return decimal.Zero
	}

	total := decimal.Zero
	months := make(map[string]struct{})
	for _, tx := range historical {
		if tx.Category != categoryName {
			continue
		}
		total = total.Add(tx.Amount)
		months[MonthKey(tx.Date)] = struct{}{}
	}

	if len(months) == 0 {
		return decimal.Zero
	}
	return total.DivRound(decimal.NewFromInt(int64(len(months))), AmountPlaces)
}

// MonthTotal is one bar of a category's spend history.
type MonthTotal struct {
	Month time.Time       `json:"month"`
	Total decimal.Decimal `json:"total"`
}

// MonthlyTotals returns windowMonths buckets ending at ref's month, oldest
// first. Months without transactions are present with a zero total.
func MonthlyTotals(categoryName string, transactions []models.Transaction, ref time.Time, windowMonths int) ([]MonthTotal, error) {
	start, err := TrailingWindowStart(ref, windowMonths)
	if err != nil {
		return nil, err
	}

	totals := make(map[string]decimal.Decimal, windowMonths)
	for _, tx := range transactions {
		if tx.Category != categoryName {
			continue
		}
		key := MonthKey(tx.Date)
		totals[key] = totals[key].Add(tx.Amount)
	}

	out := make([]MonthTotal, 0, windowMonths)
	for i := 0; i < windowMonths; i++ {
		month := start.AddDate(0, i, 0)
		out = append(out, MonthTotal{Month: month, Total: totals[MonthKey(month)]})
	}
	return out, nil
}
