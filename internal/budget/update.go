package budget

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"example.com/budget-tracker/internal/models"
)

// ErrCategoryNotFound is returned when a category id does not belong to the user.
var ErrCategoryNotFound = errors.New("category not found")

type Scope string

const (
	// ScopeCurrent writes a single-month override.
	ScopeCurrent Scope = "current"
	// ScopeFuture writes the catalog default and the current month's override.
	ScopeFuture Scope = "future"
)

func ParseScope(value string) (Scope, error) {
	switch Scope(strings.ToLower(strings.TrimSpace(value))) {
	case ScopeCurrent:
		return ScopeCurrent, nil
	case ScopeFuture:
		return ScopeFuture, nil
	default:
		return "", invalidf("scope must be %q or %q, got %q", ScopeCurrent, ScopeFuture, value)
	}
}

// UpdateRequest is a pending budget change. Category accepts a catalog id, a
// synthetic placeholder id or a plain name. SpendingGroup is only consulted
// when the category has no catalog row yet.
type UpdateRequest struct {
	UserID        uuid.UUID
	Category      string
	SpendingGroup string
	Month         time.Time
	Amount        decimal.Decimal
	Scope         Scope
}

// Validate rejects the request before any store access.
func (r UpdateRequest) Validate() error {
	if r.UserID == uuid.Nil {
		return ErrNotAuthenticated
	}
	if strings.TrimSpace(r.Category) == "" {
		return invalidf("category is required")
	}
	if r.Month.IsZero() {
		return invalidf("month is required")
	}
	if r.Amount.IsNegative() {
		return invalidf("amount must not be negative")
	}
	if r.Scope != ScopeCurrent && r.Scope != ScopeFuture {
		return invalidf("unknown scope %q", r.Scope)
	}
	return nil
}

// Invalidation names the cached summaries an update made stale.
type Invalidation struct {
	UserID    uuid.UUID   `json:"user_id"`
	Months    []time.Time `json:"months,omitempty"`
	AllMonths bool        `json:"all_months"`
}

func (i Invalidation) IsZero() bool {
	return !i.AllMonths && len(i.Months) == 0
}

// MonthKeys renders the affected months as YYYY-MM keys.
func (i Invalidation) MonthKeys() []string {
	keys := make([]string, 0, len(i.Months))
	for _, m := range i.Months {
		keys = append(keys, MonthKey(m))
	}
	return keys
}

type UpdateResult struct {
	Outcome      Outcome               `json:"outcome"`
	Category     models.BudgetCategory `json:"category"`
	Created      bool                  `json:"created"`
	Invalidation Invalidation          `json:"invalidation"`
}

// Coordinator applies budget changes. The future scope is a two-step saga:
// the catalog write goes first and the override is attempted only after it
// succeeds, so a failure leaves either nothing or only the default changed.
type Coordinator struct {
	store  Store
	logger *slog.Logger
}

func NewCoordinator(store Store, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{store: store, logger: logger}
}

// Apply validates and commits req. On failure the returned result still
// carries the outcome and any invalidation the partial write requires.
func (c *Coordinator) Apply(ctx context.Context, req UpdateRequest) (UpdateResult, error) {
	result := UpdateResult{Outcome: OutcomeNothingChanged, Invalidation: Invalidation{UserID: req.UserID}}
	if err := req.Validate(); err != nil {
		return result, err
	}

	monthStart := MonthStart(req.Month)
	amount := req.Amount.Round(AmountPlaces)

	category, found, err := c.resolveCategory(ctx, req.UserID, req.Category)
	if err != nil {
		return result, err
	}

	if !found {
		group, err := c.syntheticGroup(ctx, req, category.Name, monthStart)
		if err != nil {
			return result, err
		}

		defaultAmount := decimal.Zero
		if req.Scope == ScopeFuture {
			defaultAmount = amount
		}

		category, err = c.store.CreateCategory(ctx, req.UserID, category.Name, group, defaultAmount)
		if err != nil {
			return result, &UpdateError{Outcome: OutcomeNothingChanged, Stage: StageCreateCategory, Err: err}
		}
		result.Created = true
		c.logger.Info("category promoted to catalog",
			slog.String("user_id", req.UserID.String()),
			slog.String("category", category.Name),
			slog.String("category_id", category.ID.String()),
		)
	}
	result.Category = category

	if req.Scope == ScopeFuture {
		return c.applyToFuture(ctx, req.UserID, category, monthStart, amount, result)
	}
	return c.applyCurrentMonth(ctx, req.UserID, category, monthStart, amount, result)
}

func (c *Coordinator) applyCurrentMonth(ctx context.Context, userID uuid.UUID, category models.BudgetCategory, monthStart time.Time, amount decimal.Decimal, result UpdateResult) (UpdateResult, error) {
	if result.Created {
		// the category is catalogued in every month now, even if the
		// override fails
		result.Invalidation.AllMonths = true
	}

	if err := c.store.UpsertOverride(ctx, userID, category.ID, monthStart, amount); err != nil {
		return result, &UpdateError{Outcome: OutcomeNothingChanged, Stage: StageOverride, Err: err}
	}

	result.Outcome = OutcomeApplied
	if !result.Invalidation.AllMonths {
		result.Invalidation.Months = []time.Time{monthStart}
	}
	return result, nil
}

func (c *Coordinator) applyToFuture(ctx context.Context, userID uuid.UUID, category models.BudgetCategory, monthStart time.Time, amount decimal.Decimal, result UpdateResult) (UpdateResult, error) {
	if !result.Created {
		if err := c.store.UpsertCategoryDefault(ctx, category.ID, amount); err != nil {
			return result, &UpdateError{Outcome: OutcomeNothingChanged, Stage: StageCatalogDefault, Err: err}
		}
		category.BudgetedAmount = amount
		result.Category = category
	}

	result.Outcome = OutcomeCatalogOnly
	result.Invalidation.AllMonths = true

	if err := c.store.UpsertOverride(ctx, userID, category.ID, monthStart, amount); err != nil {
		c.logger.Error("override write failed after catalog update",
			slog.String("user_id", userID.String()),
			slog.String("category_id", category.ID.String()),
			slog.String("month", MonthKey(monthStart)),
			slog.String("error", err.Error()),
		)
		return result, &UpdateError{Outcome: OutcomeCatalogOnly, Stage: StageOverride, Err: err}
	}

	result.Outcome = OutcomeApplied
	return result, nil
}

// resolveCategory looks ref up in the user's catalog. When found is false the
// returned category only carries the name to create.
func (c *Coordinator) resolveCategory(ctx context.Context, userID uuid.UUID, ref string) (models.BudgetCategory, bool, error) {
	catalog, err := c.store.ListCategories(ctx, userID)
	if err != nil {
		return models.BudgetCategory{}, false, &ReadError{Query: "categories", Err: err}
	}

	id, name := ParseCategoryRef(ref)
	if id != uuid.Nil {
		for _, category := range catalog {
			if category.ID == id {
				return category, true, nil
			}
		}
		return models.BudgetCategory{}, false, ErrCategoryNotFound
	}

	// a catalog name that itself starts with the placeholder prefix wins
	// over the placeholder reading of ref
	if match, ok := latestByName(catalog, ref); ok {
		return match, true, nil
	}

	if strings.TrimSpace(name) == "" {
		return models.BudgetCategory{}, false, invalidf("category is required")
	}
	if match, ok := latestByName(catalog, name); ok {
		return match, true, nil
	}
	return models.BudgetCategory{Name: name}, false, nil
}

// latestByName returns the most recently updated catalog entry labelled
// exactly name.
func latestByName(catalog []models.BudgetCategory, name string) (models.BudgetCategory, bool) {
	var match models.BudgetCategory
	found := false
	for _, category := range catalog {
		if category.Name != name {
			continue
		}
		if !found || category.UpdatedAt.After(match.UpdatedAt) {
			match = category
		}
		found = true
	}
	return match, found
}

func (c *Coordinator) syntheticGroup(ctx context.Context, req UpdateRequest, name string, monthStart time.Time) (string, error) {
	if group := strings.TrimSpace(req.SpendingGroup); group != "" {
		return group, nil
	}

	_, monthEnd := MonthRange(monthStart)
	transactions, err := c.store.ListTransactions(ctx, req.UserID, monthStart, monthEnd)
	if err != nil {
		return "", &ReadError{Query: "transactions", Err: err}
	}

	for _, observed := range ObserveCategories(transactions) {
		if observed.Name == name {
			return observed.SpendingGroup, nil
		}
	}
	return "", invalidf("spending_group is required for new category %q", name)
}
