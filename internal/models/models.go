package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Transaction is a settled ledger entry. Date carries day granularity only.
type Transaction struct {
	ID            uuid.UUID       `json:"id"`
	UserID        uuid.UUID       `json:"user_id"`
	AccountID     uuid.UUID       `json:"account_id"`
	Date          time.Time       `json:"date"`
	Merchant      string          `json:"merchant"`
	Description   string          `json:"description,omitempty"`
	SpendingGroup string          `json:"spending_group"`
	Category      string          `json:"category"`
	Amount        decimal.Decimal `json:"amount"`
	Notes         string          `json:"notes,omitempty"`
	Seen          bool            `json:"seen"`
}

// BudgetCategory is a catalog entry: a durable budget line with a default amount.
type BudgetCategory struct {
	ID             uuid.UUID       `json:"id"`
	UserID         uuid.UUID       `json:"user_id"`
	Name           string          `json:"name"`
	SpendingGroup  string          `json:"spending_group"`
	BudgetedAmount decimal.Decimal `json:"budgeted_amount"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// MonthlyBudgetOverride replaces a category's default for a single month.
// Month is always the first day of the month.
type MonthlyBudgetOverride struct {
	ID             uuid.UUID       `json:"id"`
	UserID         uuid.UUID       `json:"user_id"`
	CategoryID     uuid.UUID       `json:"category_id"`
	Month          time.Time       `json:"month"`
	BudgetedAmount decimal.Decimal `json:"budgeted_amount"`
}

type SpendingGroup struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Name      string    `json:"name"`
	IsDefault bool      `json:"is_default"`
	CreatedAt time.Time `json:"created_at"`
}

type UserSettings struct {
	UserID        uuid.UUID `json:"user_id"`
	AverageMonths int       `json:"average_months"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// DefaultSpendingGroups are seeded for users that have none.
var DefaultSpendingGroups = []string{"Day to Day", "Recurring"}

const DefaultAverageMonths = 3
