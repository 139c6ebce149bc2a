package budget

import (
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"example.com/budget-tracker/internal/models"
)

var hundred = decimal.NewFromInt(100)

type CategorySummary struct {
	Identity      CategoryIdentity `json:"-"`
	ID            string           `json:"id"`
	Kind          IdentityKind     `json:"kind"`
	Name          string           `json:"name"`
	SpendingGroup string           `json:"spending_group"`
	Budgeted      decimal.Decimal  `json:"budgeted_amount"`
	Spent         decimal.Decimal  `json:"spent_amount"`
	Remaining     decimal.Decimal  `json:"remaining"`
	AverageSpend  decimal.Decimal  `json:"average_spend"`
}

type GroupSummary struct {
	Name       string            `json:"name"`
	IsDefault  bool              `json:"is_default"`
	Categories []CategorySummary `json:"categories"`
	Budgeted   decimal.Decimal   `json:"budgeted_amount"`
	Spent      decimal.Decimal   `json:"spent_amount"`
	Progress   decimal.Decimal   `json:"progress_percent"`
}

// ProgressPercent is spent/budgeted as a percentage, 0 when nothing is budgeted.
func (g GroupSummary) ProgressPercent() decimal.Decimal {
	if g.Budgeted.IsZero() {
		return decimal.Zero
	}
	return g.Spent.Mul(hundred).DivRound(g.Budgeted, AmountPlaces)
}

type GroupedSummary struct {
	Month        time.Time       `json:"month"`
	WindowMonths int             `json:"window_months"`
	Groups       []GroupSummary  `json:"groups"`
	Budgeted     decimal.Decimal `json:"budgeted_amount"`
	Spent        decimal.Decimal `json:"spent_amount"`
}

// Category finds a category summary by display name.
func (s GroupedSummary) Category(name string) (CategorySummary, bool) {
	for _, group := range s.Groups {
		for _, category := range group.Categories {
			if category.Name == name {
				return category, true
			}
		}
	}
	return CategorySummary{}, false
}

// Group finds a group by name.
func (s GroupedSummary) Group(name string) (GroupSummary, bool) {
	for _, group := range s.Groups {
		if group.Name == name {
			return group, true
		}
	}
	return GroupSummary{}, false
}

// SummaryInput holds everything the builder reduces. Historical must cover the
// trailing window ending at Month; CurrentMonth must cover Month only.
type SummaryInput struct {
	Month          time.Time
	WindowMonths   int
	Catalog        []models.BudgetCategory
	CurrentMonth   []models.Transaction
	Historical     []models.Transaction
	Overrides      []models.MonthlyBudgetOverride
	SpendingGroups []models.SpendingGroup
}

// BuildSummary composes aggregator, merger and average calculator into one
// grouped summary for the month.
func BuildSummary(logger *slog.Logger, in SummaryInput) (GroupedSummary, error) {
	if in.WindowMonths <= 0 {
		return GroupedSummary{}, invalidf("window must be at least one month, got %d", in.WindowMonths)
	}

	monthStart := MonthStart(in.Month)
	spent := SumByCategory(in.CurrentMonth)
	identities := MergeCatalog(logger, in.Catalog, ObserveCategories(in.CurrentMonth))

	overrides := make(map[uuid.UUID]decimal.Decimal, len(in.Overrides))
	for _, o := range in.Overrides {
		if MonthStart(o.Month).Equal(monthStart) {
			overrides[o.CategoryID] = o.BudgetedAmount
		}
	}

	groups := make(map[string]*GroupSummary, len(in.SpendingGroups))
	for _, g := range in.SpendingGroups {
		if existing, ok := groups[g.Name]; ok {
			existing.IsDefault = existing.IsDefault || g.IsDefault
			continue
		}
		groups[g.Name] = &GroupSummary{Name: g.Name, IsDefault: g.IsDefault, Categories: []CategorySummary{}}
	}

	for _, identity := range identities {
		budgeted := identity.DefaultAmount
		if id, ok := identity.CategoryID(); ok {
			if amount, found := overrides[id]; found {
				budgeted = amount
			}
		}

		categorySpent := spent[identity.Name]
		summary := CategorySummary{
			Identity:      identity,
			ID:            identity.ID(),
			Kind:          identity.Kind(),
			Name:          identity.Name,
			SpendingGroup: identity.SpendingGroup,
			Budgeted:      budgeted,
			Spent:         categorySpent,
			Remaining:     budgeted.Sub(categorySpent),
			AverageSpend:  AverageSpend(identity.Name, in.Historical, in.WindowMonths),
		}

		group, ok := groups[identity.SpendingGroup]
		if !ok {
			group = &GroupSummary{Name: identity.SpendingGroup, Categories: []CategorySummary{}}
			groups[identity.SpendingGroup] = group
		}
		group.Categories = append(group.Categories, summary)
		group.Budgeted = group.Budgeted.Add(budgeted)
		group.Spent = group.Spent.Add(categorySpent)
	}

	out := GroupedSummary{
		Month:        monthStart,
		WindowMonths: in.WindowMonths,
		Groups:       make([]GroupSummary, 0, len(groups)),
	}
	for _, group := range groups {
		sort.SliceStable(group.Categories, func(i, j int) bool {
			return group.Categories[i].Name < group.Categories[j].Name
		})
		group.Progress = group.ProgressPercent()
		out.Budgeted = out.Budgeted.Add(group.Budgeted)
		out.Spent = out.Spent.Add(group.Spent)
		out.Groups = append(out.Groups, *group)
	}
	sort.Slice(out.Groups, func(i, j int) bool {
		return out.Groups[i].Name < out.Groups[j].Name
	})

	return out, nil
}
