package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"example.com/budget-tracker/internal/database"
)

func TestIsUniqueViolation(t *testing.T) {
	if !isUniqueViolation(&pgconn.PgError{Code: "23505"}) {
		t.Fatal("expected 23505 to be a unique violation")
	}
	if !isUniqueViolation(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})) {
		t.Fatal("expected wrapped 23505 to be a unique violation")
	}
	if isUniqueViolation(&pgconn.PgError{Code: "23503"}) {
		t.Fatal("foreign key violation is not a unique violation")
	}
	if isUniqueViolation(errors.New("boom")) {
		t.Fatal("plain error is not a unique violation")
	}
}

func TestCivilDateKeepsLocation(t *testing.T) {
	est := time.FixedZone("EST", -5*60*60)
	late := time.Date(2024, 3, 31, 23, 30, 0, 0, est)

	if got := civilDate(late); got != "2024-03-31" {
		t.Fatalf("expected 2024-03-31, got %s", got)
	}
}

// newPostgresStore connects to BUDGET_TEST_DATABASE_URL, skipping when unset.
func newPostgresStore(t *testing.T) *PostgresStore {
	t.Helper()

	url := os.Getenv("BUDGET_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("BUDGET_TEST_DATABASE_URL not set")
	}

	pool, err := pgxpool.New(context.Background(), url)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := database.MigratePostgres(pool); err != nil {
		pool.Close()
		t.Fatalf("migrate: %v", err)
	}

	store := NewPostgresStore(pool)
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

func TestPostgresCategoriesAndOverrides(t *testing.T) {
	store := newPostgresStore(t)
	ctx := context.Background()
	userID := uuid.New()
	march := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	rent, err := store.CreateCategory(ctx, userID, "Rent ", "Recurring", decimal.RequireFromString("1500"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if rent.Name != "Rent " {
		t.Fatalf("expected name stored verbatim, got %q", rent.Name)
	}
	if _, err := store.CreateCategory(ctx, userID, "Rent ", "Recurring", decimal.Zero); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if err := store.UpsertCategoryDefault(ctx, uuid.New(), decimal.Zero); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown category, got %v", err)
	}

	for _, amount := range []string{"900", "950.25"} {
		if err := store.UpsertOverride(ctx, userID, rent.ID, march, decimal.RequireFromString(amount)); err != nil {
			t.Fatalf("upsert override: %v", err)
		}
	}

	overrides, err := store.ListOverrides(ctx, userID, march)
	if err != nil {
		t.Fatalf("list overrides: %v", err)
	}
	if len(overrides) != 1 || !overrides[0].BudgetedAmount.Equal(decimal.RequireFromString("950.25")) {
		t.Fatalf("expected a single replaced override, got %+v", overrides)
	}
}

func TestPostgresTransactionRangeIsInclusive(t *testing.T) {
	store := newPostgresStore(t)
	ctx := context.Background()
	userID := uuid.New()

	for _, day := range []string{"2024-02-29", "2024-03-01", "2024-03-31", "2024-04-01"} {
		_, err := store.db.Exec(ctx,
			`INSERT INTO transactions (user_id, account_id, date, category, amount)
			 VALUES ($1, $2, $3::date, 'Fuel', 10)`,
			userID, uuid.New(), day,
		)
		if err != nil {
			t.Fatalf("seed %s: %v", day, err)
		}
	}

	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)
	txns, err := store.ListTransactions(ctx, userID, from, to)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(txns) != 2 {
		t.Fatalf("expected the first and last day of March, got %d rows", len(txns))
	}
}

func TestPostgresSpendingGroupsAndSettings(t *testing.T) {
	store := newPostgresStore(t)
	ctx := context.Background()
	userID := uuid.New()

	groups, err := store.EnsureDefaultSpendingGroups(ctx, userID)
	if err != nil {
		t.Fatalf("ensure defaults: %v", err)
	}
	if len(groups) != 2 || !groups[0].IsDefault {
		t.Fatalf("expected seeded defaults, got %+v", groups)
	}
	if err := store.DeleteSpendingGroup(ctx, userID, groups[0].ID); !errors.Is(err, ErrProtected) {
		t.Fatalf("expected ErrProtected, got %v", err)
	}

	savings, err := store.CreateSpendingGroup(ctx, userID, "Savings")
	if err != nil {
		t.Fatalf("create group: %v", err)
	}
	if _, err := store.CreateSpendingGroup(ctx, userID, "Savings"); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if err := store.DeleteSpendingGroup(ctx, userID, savings.ID); err != nil {
		t.Fatalf("delete group: %v", err)
	}
	if err := store.DeleteSpendingGroup(ctx, userID, savings.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if _, err := store.GetSettings(ctx, userID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound before first write, got %v", err)
	}
	if _, err := store.UpsertSettings(ctx, userID, 6); err != nil {
		t.Fatalf("upsert settings: %v", err)
	}
	settings, err := store.GetSettings(ctx, userID)
	if err != nil || settings.AverageMonths != 6 {
		t.Fatalf("expected 6, got %+v (%v)", settings, err)
	}
}
