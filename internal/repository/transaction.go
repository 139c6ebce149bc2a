package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/budget-tracker/internal/models"
)

type TransactionRepository struct {
	db *pgxpool.Pool
}

// NewTransactionRepository creates the transaction ledger repository.
func NewTransactionRepository(db *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// ListTransactions returns transactions dated within [from, to], both days included.
func (r *TransactionRepository) ListTransactions(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]models.Transaction, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, user_id, account_id, date, merchant, description, spending_group, category, amount, notes, seen
		 FROM transactions
		 WHERE user_id = $1 AND date BETWEEN $2::date AND $3::date
		 ORDER BY date, created_at`,
		userID, civilDate(from), civilDate(to),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	transactions := make([]models.Transaction, 0)
	for rows.Next() {
		var tx models.Transaction
		if err := rows.Scan(&tx.ID, &tx.UserID, &tx.AccountID, &tx.Date, &tx.Merchant, &tx.Description, &tx.SpendingGroup, &tx.Category, &tx.Amount, &tx.Notes, &tx.Seen); err != nil {
			return nil, err
		}
		transactions = append(transactions, tx)
	}

	return transactions, rows.Err()
}

// civilDate renders the calendar day of t without converting its location.
func civilDate(t time.Time) string {
	return t.Format(time.DateOnly)
}
