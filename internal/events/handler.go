package events

import (
	"context"
	"log/slog"

	"example.com/budget-tracker/internal/budget"
)

// Applier is the part of the budget service that consumes remote invalidations.
type Applier interface {
	ApplyRemote(ctx context.Context, inv budget.Invalidation)
}

// NewHandler routes consumed events to the budget service. Unknown types are
// acknowledged and dropped.
func NewHandler(applier Applier, logger *slog.Logger) HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}

	return func(ctx context.Context, event Event) error {
		switch event.Type {
		case TypeBudgetInvalidated, TypeTransactionsChanged:
			inv, err := event.Invalidation()
			if err != nil {
				logger.Warn("malformed months in budget event, evicting all",
					slog.String("type", event.Type),
					slog.String("error", err.Error()),
				)
				inv = budget.Invalidation{UserID: event.UserID, AllMonths: true}
			}
			applier.ApplyRemote(ctx, inv)
			return nil
		default:
			logger.Warn("unknown budget event", slog.String("type", event.Type))
			return nil
		}
	}
}
