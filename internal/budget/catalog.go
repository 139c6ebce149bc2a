package budget

import (
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"example.com/budget-tracker/internal/models"
)

// SyntheticIDPrefix marks placeholder ids of categories that exist only in
// transactions. A UUID string can never start with it.
const SyntheticIDPrefix = "temp-"

type IdentityKind string

const (
	KindCatalogued IdentityKind = "catalogued"
	KindSynthetic  IdentityKind = "synthetic"
)

// CategoryIdentity is either Catalogued (backed by a catalog row) or
// Synthetic (inferred from transaction data, never persisted here).
type CategoryIdentity struct {
	kind          IdentityKind
	categoryID    uuid.UUID
	Name          string
	SpendingGroup string
	DefaultAmount decimal.Decimal
}

// Catalogued builds the identity of a catalog row.
func Catalogued(category models.BudgetCategory) CategoryIdentity {
	return CategoryIdentity{
		kind:          KindCatalogued,
		categoryID:    category.ID,
		Name:          category.Name,
		SpendingGroup: category.SpendingGroup,
		DefaultAmount: category.BudgetedAmount,
	}
}

// Synthetic builds the identity of a category seen only in transactions.
func Synthetic(name, spendingGroup string) CategoryIdentity {
	return CategoryIdentity{
		kind:          KindSynthetic,
		Name:          name,
		SpendingGroup: spendingGroup,
		DefaultAmount: decimal.Zero,
	}
}

func (i CategoryIdentity) Kind() IdentityKind {
	return i.kind
}

// CategoryID returns the catalog id; ok is false for synthetic identities.
func (i CategoryIdentity) CategoryID() (uuid.UUID, bool) {
	return i.categoryID, i.kind == KindCatalogued
}

// ID is the stable display identity: the catalog UUID or a name-derived placeholder.
func (i CategoryIdentity) ID() string {
	if i.kind == KindCatalogued {
		return i.categoryID.String()
	}
	return SyntheticIDPrefix + i.Name
}

// ParseCategoryRef interprets a category reference coming from a client:
// a catalog UUID, a synthetic placeholder id or a bare category name. The
// name is returned verbatim, without whitespace normalization. A ref that
// starts with the placeholder prefix yields the name after it; callers that
// hold the catalog should try ref itself as a name first.
func ParseCategoryRef(ref string) (uuid.UUID, string) {
	if id, err := uuid.Parse(ref); err == nil {
		return id, ""
	}
	return uuid.Nil, strings.TrimPrefix(ref, SyntheticIDPrefix)
}

// MergeCatalog unions the catalog with category names observed in
// transactions. Catalog entries come first in catalog order, then synthetic
// identities in first-seen order. When the catalog holds the same name twice
// the most recently updated row wins and the anomaly is logged.
func MergeCatalog(logger *slog.Logger, catalog []models.BudgetCategory, observed []ObservedCategory) []CategoryIdentity {
	if logger == nil {
		logger = slog.Default()
	}

	byName := make(map[string]int, len(catalog))
	identities := make([]CategoryIdentity, 0, len(catalog)+len(observed))
	kept := make([]models.BudgetCategory, 0, len(catalog))

	for _, category := range catalog {
		idx, dup := byName[category.Name]
		if !dup {
			byName[category.Name] = len(kept)
			kept = append(kept, category)
			continue
		}

		current := kept[idx]
		winner := current
		if category.UpdatedAt.After(current.UpdatedAt) {
			winner = category
		}
		logger.Warn("duplicate catalog entry",
			slog.String("category", category.Name),
			slog.String("kept_id", winner.ID.String()),
			slog.String("first_id", current.ID.String()),
			slog.String("second_id", category.ID.String()),
		)
		kept[idx] = winner
	}

	for _, category := range kept {
		identities = append(identities, Catalogued(category))
	}

	for _, obs := range observed {
		if _, ok := byName[obs.Name]; ok {
			continue
		}
		byName[obs.Name] = -1
		identities = append(identities, Synthetic(obs.Name, obs.SpendingGroup))
	}

	return identities
}
