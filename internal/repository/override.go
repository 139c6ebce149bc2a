package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"example.com/budget-tracker/internal/models"
)

type OverrideRepository struct {
	db *pgxpool.Pool
}

// NewOverrideRepository creates the monthly override repository.
func NewOverrideRepository(db *pgxpool.Pool) *OverrideRepository {
	return &OverrideRepository{db: db}
}

// ListOverrides returns the user's overrides for the month starting at monthStart.
func (r *OverrideRepository) ListOverrides(ctx context.Context, userID uuid.UUID, monthStart time.Time) ([]models.MonthlyBudgetOverride, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, user_id, category_id, month, budgeted_amount
		 FROM monthly_budgets
		 WHERE user_id = $1 AND month = $2`,
		userID, monthStart,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	overrides := make([]models.MonthlyBudgetOverride, 0)
	for rows.Next() {
		var override models.MonthlyBudgetOverride
		if err := rows.Scan(&override.ID, &override.UserID, &override.CategoryID, &override.Month, &override.BudgetedAmount); err != nil {
			return nil, err
		}
		overrides = append(overrides, override)
	}

	return overrides, rows.Err()
}

// UpsertOverride writes or replaces the override keyed by (user, category, month).
func (r *OverrideRepository) UpsertOverride(ctx context.Context, userID, categoryID uuid.UUID, monthStart time.Time, amount decimal.Decimal) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO monthly_budgets (user_id, category_id, month, budgeted_amount)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (user_id, category_id, month)
		 DO UPDATE SET budgeted_amount = EXCLUDED.budgeted_amount, updated_at = now()`,
		userID, categoryID, monthStart, amount,
	)
	return err
}
