package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/budget-tracker/internal/models"
)

type SpendingGroupRepository struct {
	db *pgxpool.Pool
}

// NewSpendingGroupRepository creates the spending group repository.
func NewSpendingGroupRepository(db *pgxpool.Pool) *SpendingGroupRepository {
	return &SpendingGroupRepository{db: db}
}

// ListSpendingGroups returns the user's groups ordered by name.
func (r *SpendingGroupRepository) ListSpendingGroups(ctx context.Context, userID uuid.UUID) ([]models.SpendingGroup, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, user_id, name, is_default, created_at
		 FROM spending_groups
		 WHERE user_id = $1
		 ORDER BY name`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	groups := make([]models.SpendingGroup, 0)
	for rows.Next() {
		var group models.SpendingGroup
		if err := rows.Scan(&group.ID, &group.UserID, &group.Name, &group.IsDefault, &group.CreatedAt); err != nil {
			return nil, err
		}
		groups = append(groups, group)
	}

	return groups, rows.Err()
}

// EnsureDefaultSpendingGroups seeds the default groups for a user that has none
// and returns the resulting list.
func (r *SpendingGroupRepository) EnsureDefaultSpendingGroups(ctx context.Context, userID uuid.UUID) ([]models.SpendingGroup, error) {
	groups, err := r.ListSpendingGroups(ctx, userID)
	if err != nil || len(groups) > 0 {
		return groups, err
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	for _, name := range models.DefaultSpendingGroups {
		_, err = tx.Exec(ctx,
			`INSERT INTO spending_groups (user_id, name, is_default)
			 VALUES ($1, $2, TRUE)
			 ON CONFLICT (user_id, name) DO NOTHING`,
			userID, name,
		)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return r.ListSpendingGroups(ctx, userID)
}

// CreateSpendingGroup adds a user-defined group; a taken name yields ErrConflict.
func (r *SpendingGroupRepository) CreateSpendingGroup(ctx context.Context, userID uuid.UUID, name string) (models.SpendingGroup, error) {
	var group models.SpendingGroup

	err := r.db.QueryRow(ctx,
		`INSERT INTO spending_groups (user_id, name, is_default)
		 VALUES ($1, $2, FALSE)
		 RETURNING id, user_id, name, is_default, created_at`,
		userID, name,
	).Scan(&group.ID, &group.UserID, &group.Name, &group.IsDefault, &group.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return group, ErrConflict
		}
		return group, err
	}

	return group, nil
}

// DeleteSpendingGroup removes a user-defined group. Seeded groups yield ErrProtected.
func (r *SpendingGroupRepository) DeleteSpendingGroup(ctx context.Context, userID, groupID uuid.UUID) error {
	var isDefault bool
	err := r.db.QueryRow(ctx,
		`SELECT is_default FROM spending_groups WHERE id = $1 AND user_id = $2`,
		groupID, userID,
	).Scan(&isDefault)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	if isDefault {
		return ErrProtected
	}

	_, err = r.db.Exec(ctx,
		`DELETE FROM spending_groups WHERE id = $1 AND user_id = $2`,
		groupID, userID,
	)
	return err
}
