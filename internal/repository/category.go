package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"example.com/budget-tracker/internal/models"
)

type CategoryRepository struct {
	db *pgxpool.Pool
}

// NewCategoryRepository creates the budget category catalog repository.
func NewCategoryRepository(db *pgxpool.Pool) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// ListCategories returns the user's catalog ordered by name.
func (r *CategoryRepository) ListCategories(ctx context.Context, userID uuid.UUID) ([]models.BudgetCategory, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, user_id, name, spending_group, budgeted_amount, created_at, updated_at
		 FROM budget_categories
		 WHERE user_id = $1
		 ORDER BY name`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := make([]models.BudgetCategory, 0)
	for rows.Next() {
		var category models.BudgetCategory
		if err := rows.Scan(&category.ID, &category.UserID, &category.Name, &category.SpendingGroup, &category.BudgetedAmount, &category.CreatedAt, &category.UpdatedAt); err != nil {
			return nil, err
		}
		categories = append(categories, category)
	}

	return categories, rows.Err()
}

// CreateCategory inserts a catalog entry; a taken name yields ErrConflict.
func (r *CategoryRepository) CreateCategory(ctx context.Context, userID uuid.UUID, name, spendingGroup string, defaultAmount decimal.Decimal) (models.BudgetCategory, error) {
	var category models.BudgetCategory

	err := r.db.QueryRow(ctx,
		`INSERT INTO budget_categories (user_id, name, spending_group, budgeted_amount)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, user_id, name, spending_group, budgeted_amount, created_at, updated_at`,
		userID, name, spendingGroup, defaultAmount,
	).Scan(&category.ID, &category.UserID, &category.Name, &category.SpendingGroup, &category.BudgetedAmount, &category.CreatedAt, &category.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return category, ErrConflict
		}
		return category, err
	}

	return category, nil
}

// UpsertCategoryDefault sets the default budgeted amount of a catalog entry.
func (r *CategoryRepository) UpsertCategoryDefault(ctx context.Context, categoryID uuid.UUID, amount decimal.Decimal) error {
	var id uuid.UUID
	err := r.db.QueryRow(ctx,
		`UPDATE budget_categories
		 SET budgeted_amount = $2, updated_at = now()
		 WHERE id = $1
		 RETURNING id`,
		categoryID, amount,
	).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}

	return nil
}
