// Package memory is an in-process Store used for local runs and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"example.com/budget-tracker/internal/models"
	"example.com/budget-tracker/internal/repository"
)

type overrideKey struct {
	userID     uuid.UUID
	categoryID uuid.UUID
	month      string
}

type Store struct {
	mu sync.RWMutex

	categories   map[uuid.UUID]models.BudgetCategory
	overrides    map[overrideKey]models.MonthlyBudgetOverride
	transactions map[uuid.UUID]models.Transaction
	groups       map[uuid.UUID]models.SpendingGroup
	settings     map[uuid.UUID]models.UserSettings

	now func() time.Time
}

func New() *Store {
	return &Store{
		categories:   make(map[uuid.UUID]models.BudgetCategory),
		overrides:    make(map[overrideKey]models.MonthlyBudgetOverride),
		transactions: make(map[uuid.UUID]models.Transaction),
		groups:       make(map[uuid.UUID]models.SpendingGroup),
		settings:     make(map[uuid.UUID]models.UserSettings),
		now:          time.Now,
	}
}

// Ping only reports a cancelled context; the store itself is always reachable.
func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *Store) Close() error {
	return nil
}

func (s *Store) ListCategories(ctx context.Context, userID uuid.UUID) ([]models.BudgetCategory, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.BudgetCategory, 0)
	for _, c := range s.categories {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name == out[j].Name {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (s *Store) CreateCategory(ctx context.Context, userID uuid.UUID, name, spendingGroup string, defaultAmount decimal.Decimal) (models.BudgetCategory, error) {
	if err := ctx.Err(); err != nil {
		return models.BudgetCategory{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.categories {
		if c.UserID == userID && c.Name == name {
			return models.BudgetCategory{}, repository.ErrConflict
		}
	}

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
	s.categories[category.ID] = category
	return category, nil
}

// PutCategory stores c as-is, bypassing the unique name check. It exists so
// tests can reproduce catalog states the other backends reject.
func (s *Store) PutCategory(c models.BudgetCategory) models.BudgetCategory {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.now().UTC()
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = c.CreatedAt
	}
	s.categories[c.ID] = c
	return c
}

func (s *Store) UpsertCategoryDefault(ctx context.Context, categoryID uuid.UUID, amount decimal.Decimal) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.categories[categoryID]
	if !ok {
		return repository.ErrNotFound
	}
	c.BudgetedAmount = amount
	c.UpdatedAt = s.now().UTC()
	s.categories[categoryID] = c
	return nil
}

func (s *Store) ListOverrides(ctx context.Context, userID uuid.UUID, monthStart time.Time) ([]models.MonthlyBudgetOverride, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	month := monthStart.Format(time.DateOnly)
	out := make([]models.MonthlyBudgetOverride, 0)
	for key, o := range s.overrides {
		if key.userID == userID && key.month == month {
			out = append(out, o)
		}
	}
	return out, nil
}

func (s *Store) UpsertOverride(ctx context.Context, userID, categoryID uuid.UUID, monthStart time.Time, amount decimal.Decimal) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key := overrideKey{userID: userID, categoryID: categoryID, month: monthStart.Format(time.DateOnly)}
	o, ok := s.overrides[key]
	if !ok {
		o = models.MonthlyBudgetOverride{ID: uuid.New(), UserID: userID, CategoryID: categoryID, Month: monthStart}
	}
	o.BudgetedAmount = amount
	s.overrides[key] = o
	return nil
}

func (s *Store) ListTransactions(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]models.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	lo, hi := from.Format(time.DateOnly), to.Format(time.DateOnly)
	out := make([]models.Transaction, 0)
	for _, tx := range s.transactions {
		if tx.UserID != userID {
			continue
		}
		day := tx.Date.Format(time.DateOnly)
		if day < lo || day > hi {
			continue
		}
		out = append(out, tx)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.Format(time.DateOnly) < out[j].Date.Format(time.DateOnly)
	})
	return out, nil
}

// AddTransaction records a ledger entry. Import is handled outside this
// service; the method seeds local runs and tests.
func (s *Store) AddTransaction(tx models.Transaction) models.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()

	if tx.ID == uuid.Nil {
		tx.ID = uuid.New()
	}
	s.transactions[tx.ID] = tx
	return tx
}

func (s *Store) ListSpendingGroups(ctx context.Context, userID uuid.UUID) ([]models.SpendingGroup, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.groupsOf(userID), nil
}

func (s *Store) EnsureDefaultSpendingGroups(ctx context.Context, userID uuid.UUID) ([]models.SpendingGroup, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if groups := s.groupsOf(userID); len(groups) > 0 {
		return groups, nil
	}
	for _, name := range models.DefaultSpendingGroups {
		g := models.SpendingGroup{ID: uuid.New(), UserID: userID, Name: name, IsDefault: true, CreatedAt: s.now().UTC()}
		s.groups[g.ID] = g
	}
	return s.groupsOf(userID), nil
}

func (s *Store) CreateSpendingGroup(ctx context.Context, userID uuid.UUID, name string) (models.SpendingGroup, error) {
	if err := ctx.Err(); err != nil {
		return models.SpendingGroup{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, g := range s.groups {
		if g.UserID == userID && g.Name == name {
			return models.SpendingGroup{}, repository.ErrConflict
		}
	}
	g := models.SpendingGroup{ID: uuid.New(), UserID: userID, Name: name, CreatedAt: s.now().UTC()}
	s.groups[g.ID] = g
	return g, nil
}

func (s *Store) DeleteSpendingGroup(ctx context.Context, userID, groupID uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.groups[groupID]
	if !ok || g.UserID != userID {
		return repository.ErrNotFound
	}
	if g.IsDefault {
		return repository.ErrProtected
	}
	delete(s.groups, groupID)
	return nil
}

func (s *Store) GetSettings(ctx context.Context, userID uuid.UUID) (models.UserSettings, error) {
	if err := ctx.Err(); err != nil {
		return models.UserSettings{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	settings, ok := s.settings[userID]
	if !ok {
		return models.UserSettings{}, repository.ErrNotFound
	}
	return settings, nil
}

func (s *Store) UpsertSettings(ctx context.Context, userID uuid.UUID, averageMonths int) (models.UserSettings, error) {
	if err := ctx.Err(); err != nil {
		return models.UserSettings{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	settings := models.UserSettings{UserID: userID, AverageMonths: averageMonths, UpdatedAt: s.now().UTC()}
	s.settings[userID] = settings
	return settings, nil
}

// groupsOf must be called with mu held.
func (s *Store) groupsOf(userID uuid.UUID) []models.SpendingGroup {
	out := make([]models.SpendingGroup, 0)
	for _, g := range s.groups {
		if g.UserID == userID {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

var _ repository.Store = (*Store)(nil)
