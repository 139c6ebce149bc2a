// Package sqlite stores budget data in a single SQLite file through
// modernc.org/sqlite. Dates are kept as YYYY-MM-DD text so range filters
// compare calendar days; amounts are kept as decimal text.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	moderncsqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"example.com/budget-tracker/internal/models"
	"example.com/budget-tracker/internal/repository"
)

const timestampLayout = time.RFC3339Nano

type Store struct {
	db  *sql.DB
	now func() time.Time
}

// New wraps an open, migrated database.
func New(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) ListCategories(ctx context.Context, userID uuid.UUID) ([]models.BudgetCategory, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, name, spending_group, budgeted_amount, created_at, updated_at
		 FROM budget_categories
		 WHERE user_id = ?
		 ORDER BY name`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	categories := make([]models.BudgetCategory, 0)
	for rows.Next() {
		var category models.BudgetCategory
		var createdAt, updatedAt string
		if err := rows.Scan(&category.ID, &category.UserID, &category.Name, &category.SpendingGroup, &category.BudgetedAmount, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		if category.CreatedAt, err = parseTimestamp(createdAt); err != nil {
			return nil, err
		}
		if category.UpdatedAt, err = parseTimestamp(updatedAt); err != nil {
			return nil, err
		}
		categories = append(categories, category)
	}

	return categories, rows.Err()
}

func (s *Store) CreateCategory(ctx context.Context, userID uuid.UUID, name, spendingGroup string, defaultAmount decimal.Decimal) (models.BudgetCategory, error) {
	now := s.now().UTC()
	category := models.BudgetCategory{
		ID:             uuid.New(),
		UserID:         userID,
		Name:           name,
		SpendingGroup:  spendingGroup,
		BudgetedAmount: defaultAmount,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO budget_categories (id, user_id, name, spending_group, budgeted_amount, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		category.ID, userID, name, spendingGroup, defaultAmount.String(), formatTimestamp(now), formatTimestamp(now),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return models.BudgetCategory{}, repository.ErrConflict
		}
		return models.BudgetCategory{}, fmt.Errorf("create category: %w", err)
	}

	return category, nil
}

func (s *Store) UpsertCategoryDefault(ctx context.Context, categoryID uuid.UUID, amount decimal.Decimal) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE budget_categories SET budgeted_amount = ?, updated_at = ? WHERE id = ?`,
		amount.String(), formatTimestamp(s.now().UTC()), categoryID,
	)
	if err != nil {
		return fmt.Errorf("update category default: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (s *Store) ListOverrides(ctx context.Context, userID uuid.UUID, monthStart time.Time) ([]models.MonthlyBudgetOverride, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, category_id, month, budgeted_amount
		 FROM monthly_budgets
		 WHERE user_id = ? AND month = ?`,
		userID, formatDate(monthStart),
	)
	if err != nil {
		return nil, fmt.Errorf("list overrides: %w", err)
	}
	defer rows.Close()

	overrides := make([]models.MonthlyBudgetOverride, 0)
	for rows.Next() {
		var override models.MonthlyBudgetOverride
		var month string
		if err := rows.Scan(&override.ID, &override.UserID, &override.CategoryID, &month, &override.BudgetedAmount); err != nil {
			return nil, fmt.Errorf("scan override: %w", err)
		}
		if override.Month, err = parseDate(month); err != nil {
			return nil, err
		}
		overrides = append(overrides, override)
	}

	return overrides, rows.Err()
}

func (s *Store) UpsertOverride(ctx context.Context, userID, categoryID uuid.UUID, monthStart time.Time, amount decimal.Decimal) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO monthly_budgets (id, user_id, category_id, month, budgeted_amount, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (user_id, category_id, month)
		 DO UPDATE SET budgeted_amount = excluded.budgeted_amount, updated_at = excluded.updated_at`,
		uuid.New(), userID, categoryID, formatDate(monthStart), amount.String(), formatTimestamp(s.now().UTC()),
	)
	if err != nil {
		return fmt.Errorf("upsert override: %w", err)
	}
	return nil
}

func (s *Store) ListTransactions(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]models.Transaction, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, account_id, date, merchant, description, spending_group, category, amount, notes, seen
		 FROM transactions
		 WHERE user_id = ? AND date BETWEEN ? AND ?
		 ORDER BY date, rowid`,
		userID, formatDate(from), formatDate(to),
	)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	transactions := make([]models.Transaction, 0)
	for rows.Next() {
		var tx models.Transaction
		var date string
		if err := rows.Scan(&tx.ID, &tx.UserID, &tx.AccountID, &date, &tx.Merchant, &tx.Description, &tx.SpendingGroup, &tx.Category, &tx.Amount, &tx.Notes, &tx.Seen); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		if tx.Date, err = parseDate(date); err != nil {
			return nil, err
		}
		transactions = append(transactions, tx)
	}

	return transactions, rows.Err()
}

// InsertTransaction writes a ledger row. Import lives outside this service;
// the method backs local seeding and tests.
func (s *Store) InsertTransaction(ctx context.Context, tx models.Transaction) (models.Transaction, error) {
	if tx.ID == uuid.Nil {
		tx.ID = uuid.New()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO transactions (id, user_id, account_id, date, merchant, description, spending_group, category, amount, notes, seen)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, tx.UserID, tx.AccountID, formatDate(tx.Date), tx.Merchant, tx.Description, tx.SpendingGroup, tx.Category, tx.Amount.String(), tx.Notes, tx.Seen,
	)
	if err != nil {
		return models.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	return tx, nil
}

func (s *Store) ListSpendingGroups(ctx context.Context, userID uuid.UUID) ([]models.SpendingGroup, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, name, is_default, created_at
		 FROM spending_groups
		 WHERE user_id = ?
		 ORDER BY name`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list spending groups: %w", err)
	}
	defer rows.Close()

	groups := make([]models.SpendingGroup, 0)
	for rows.Next() {
		var group models.SpendingGroup
		var createdAt string
		if err := rows.Scan(&group.ID, &group.UserID, &group.Name, &group.IsDefault, &createdAt); err != nil {
			return nil, fmt.Errorf("scan spending group: %w", err)
		}
		if group.CreatedAt, err = parseTimestamp(createdAt); err != nil {
			return nil, err
		}
		groups = append(groups, group)
	}

	return groups, rows.Err()
}

func (s *Store) EnsureDefaultSpendingGroups(ctx context.Context, userID uuid.UUID) ([]models.SpendingGroup, error) {
	groups, err := s.ListSpendingGroups(ctx, userID)
	if err != nil || len(groups) > 0 {
		return groups, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := formatTimestamp(s.now().UTC())
	for _, name := range models.DefaultSpendingGroups {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO spending_groups (id, user_id, name, is_default, created_at)
			 VALUES (?, ?, ?, 1, ?)
			 ON CONFLICT (user_id, name) DO NOTHING`,
			uuid.New(), userID, name, now,
		)
		if err != nil {
			return nil, fmt.Errorf("seed spending group %q: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return s.ListSpendingGroups(ctx, userID)
}

func (s *Store) CreateSpendingGroup(ctx context.Context, userID uuid.UUID, name string) (models.SpendingGroup, error) {
	group := models.SpendingGroup{ID: uuid.New(), UserID: userID, Name: name, CreatedAt: s.now().UTC()}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO spending_groups (id, user_id, name, is_default, created_at) VALUES (?, ?, ?, 0, ?)`,
		group.ID, userID, name, formatTimestamp(group.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return models.SpendingGroup{}, repository.ErrConflict
		}
		return models.SpendingGroup{}, fmt.Errorf("create spending group: %w", err)
	}
	return group, nil
}

func (s *Store) DeleteSpendingGroup(ctx context.Context, userID, groupID uuid.UUID) error {
	var isDefault bool
	err := s.db.QueryRowContext(ctx,
		`SELECT is_default FROM spending_groups WHERE id = ? AND user_id = ?`,
		groupID, userID,
	).Scan(&isDefault)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return repository.ErrNotFound
		}
		return err
	}
	if isDefault {
		return repository.ErrProtected
	}

	_, err = s.db.ExecContext(ctx, `DELETE FROM spending_groups WHERE id = ? AND user_id = ?`, groupID, userID)
	return err
}

func (s *Store) GetSettings(ctx context.Context, userID uuid.UUID) (models.UserSettings, error) {
	var settings models.UserSettings
	var updatedAt string

	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, average_months, updated_at FROM user_settings WHERE user_id = ?`,
		userID,
	).Scan(&settings.UserID, &settings.AverageMonths, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return settings, repository.ErrNotFound
		}
		return settings, err
	}

	settings.UpdatedAt, err = parseTimestamp(updatedAt)
	return settings, err
}

func (s *Store) UpsertSettings(ctx context.Context, userID uuid.UUID, averageMonths int) (models.UserSettings, error) {
	settings := models.UserSettings{UserID: userID, AverageMonths: averageMonths, UpdatedAt: s.now().UTC()}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO user_settings (user_id, average_months, updated_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT (user_id)
		 DO UPDATE SET average_months = excluded.average_months, updated_at = excluded.updated_at`,
		userID, averageMonths, formatTimestamp(settings.UpdatedAt),
	)
	if err != nil {
		return models.UserSettings{}, fmt.Errorf("upsert settings: %w", err)
	}
	return settings, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *moderncsqlite.Error
	return errors.As(err, &sqliteErr) && sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
}

func formatDate(t time.Time) string {
	return t.Format(time.DateOnly)
}

func parseDate(value string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", value, err)
	}
	return t, nil
}

func formatTimestamp(t time.Time) string {
	return t.Format(timestampLayout)
}

func parseTimestamp(value string) (time.Time, error) {
	t, err := time.Parse(timestampLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", value, err)
	}
	return t, nil
}

var _ repository.Store = (*Store)(nil)
