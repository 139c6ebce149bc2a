package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/budget-tracker/internal/models"
)

type SettingsRepository struct {
	db *pgxpool.Pool
}

// NewSettingsRepository creates the user settings repository.
func NewSettingsRepository(db *pgxpool.Pool) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// GetSettings returns the stored settings or ErrNotFound.
func (r *SettingsRepository) GetSettings(ctx context.Context, userID uuid.UUID) (models.UserSettings, error) {
	var settings models.UserSettings

	err := r.db.QueryRow(ctx,
		`SELECT user_id, average_months, updated_at
		 FROM user_settings
		 WHERE user_id = $1`,
		userID,
	).Scan(&settings.UserID, &settings.AverageMonths, &settings.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return settings, ErrNotFound
		}
		return settings, err
	}

	return settings, nil
}

// UpsertSettings creates or replaces the user's settings row.
func (r *SettingsRepository) UpsertSettings(ctx context.Context, userID uuid.UUID, averageMonths int) (models.UserSettings, error) {
	var settings models.UserSettings

	err := r.db.QueryRow(ctx,
		`INSERT INTO user_settings (user_id, average_months)
		 VALUES ($1, $2)
		 ON CONFLICT (user_id)
		 DO UPDATE SET average_months = EXCLUDED.average_months, updated_at = now()
		 RETURNING user_id, average_months, updated_at`,
		userID, averageMonths,
	).Scan(&settings.UserID, &settings.AverageMonths, &settings.UpdatedAt)
	if err != nil {
		return settings, err
	}

	return settings, nil
}
