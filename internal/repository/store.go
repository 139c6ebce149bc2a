package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/budget-tracker/internal/budget"
	"example.com/budget-tracker/internal/models"
)

type SpendingGroupStore interface {
	ListSpendingGroups(ctx context.Context, userID uuid.UUID) ([]models.SpendingGroup, error)
	EnsureDefaultSpendingGroups(ctx context.Context, userID uuid.UUID) ([]models.SpendingGroup, error)
	CreateSpendingGroup(ctx context.Context, userID uuid.UUID, name string) (models.SpendingGroup, error)
	DeleteSpendingGroup(ctx context.Context, userID, groupID uuid.UUID) error
}

type SettingsStore interface {
	GetSettings(ctx context.Context, userID uuid.UUID) (models.UserSettings, error)
	UpsertSettings(ctx context.Context, userID uuid.UUID, averageMonths int) (models.UserSettings, error)
}

// Store is everything the HTTP layer needs from a backend. Postgres, SQLite
// and the in-memory store all implement it.
type Store interface {
	budget.Store
	SpendingGroupStore
	SettingsStore
	Ping(ctx context.Context) error
	Close() error
}

// PostgresStore bundles the pgx repositories behind Store.
type PostgresStore struct {
	*CategoryRepository
	*OverrideRepository
	*TransactionRepository
	*SpendingGroupRepository
	*SettingsRepository

	db *pgxpool.Pool
}

// NewPostgresStore wires every repository to the same pool.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{
		CategoryRepository:      NewCategoryRepository(db),
		OverrideRepository:      NewOverrideRepository(db),
		TransactionRepository:   NewTransactionRepository(db),
		SpendingGroupRepository: NewSpendingGroupRepository(db),
		SettingsRepository:      NewSettingsRepository(db),
		db:                      db,
	}
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *PostgresStore) Close() error {
	s.db.Close()
	return nil
}
