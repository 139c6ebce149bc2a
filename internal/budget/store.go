package budget

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"example.com/budget-tracker/internal/models"
)

// Reader is the read side of the backing store. Transaction ranges are
// inclusive on both ends and compared by calendar date.
type Reader interface {
	ListCategories(ctx context.Context, userID uuid.UUID) ([]models.BudgetCategory, error)
	ListOverrides(ctx context.Context, userID uuid.UUID, monthStart time.Time) ([]models.MonthlyBudgetOverride, error)
	ListTransactions(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]models.Transaction, error)
	ListSpendingGroups(ctx context.Context, userID uuid.UUID) ([]models.SpendingGroup, error)
}

// Writer is the write side used by the update coordinator and group seeding. Each call is a
// single upsert; no cross-call transaction is assumed.
type Writer interface {
	UpsertOverride(ctx context.Context, userID, categoryID uuid.UUID, monthStart time.Time, amount decimal.Decimal) error
	UpsertCategoryDefault(ctx context.Context, categoryID uuid.UUID, amount decimal.Decimal) error
	CreateCategory(ctx context.Context, userID uuid.UUID, name, spendingGroup string, defaultAmount decimal.Decimal) (models.BudgetCategory, error)
	// EnsureDefaultSpendingGroups seeds the default groups for a user that has
	// none and returns the user's groups. Concurrent calls must not duplicate them.
	EnsureDefaultSpendingGroups(ctx context.Context, userID uuid.UUID) ([]models.SpendingGroup, error)
}

type Store interface {
	Reader
	Writer
}
