package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"example.com/budget-tracker/internal/models"
	"example.com/budget-tracker/internal/repository"
)

func TestListTransactionsFiltersByUserAndDay(t *testing.T) {
	store := New()
	ctx := context.Background()
	userID := uuid.New()

	store.AddTransaction(models.Transaction{UserID: userID, Date: time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC), Category: "Rent", Amount: decimal.NewFromInt(1)})
	store.AddTransaction(models.Transaction{UserID: userID, Date: time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), Category: "Rent", Amount: decimal.NewFromInt(1)})
	store.AddTransaction(models.Transaction{UserID: uuid.New(), Date: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), Category: "Rent", Amount: decimal.NewFromInt(1)})

	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0).Add(-time.Nanosecond)

	txns, err := store.ListTransactions(ctx, userID, from, to)
	if err != nil {
		t.Fatalf("list transactions: %v", err)
	}
	if len(txns) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(txns))
	}
}

func TestCreateCategoryConflict(t *testing.T) {
	store := New()
	ctx := context.Background()
	userID := uuid.New()

	if _, err := store.CreateCategory(ctx, userID, "Rent", "Recurring", decimal.Zero); err != nil {
		t.Fatalf("create category: %v", err)
	}
	if _, err := store.CreateCategory(ctx, userID, "Rent", "Recurring", decimal.Zero); !errors.Is(err, repository.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if _, err := store.CreateCategory(ctx, uuid.New(), "Rent", "Recurring", decimal.Zero); err != nil {
		t.Fatalf("other users may reuse names: %v", err)
	}
}

func TestCancelledContext(t *testing.T) {
	store := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := store.ListCategories(ctx, uuid.New()); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
