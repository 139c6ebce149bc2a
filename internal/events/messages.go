package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"example.com/budget-tracker/internal/budget"
)

const (
	// TypeBudgetInvalidated is published after budget data changed.
	TypeBudgetInvalidated = "budget_invalidated"
	// TypeTransactionsChanged is published by the importer after new ledger rows land.
	TypeTransactionsChanged = "transactions_changed"
)

// Event is the wire format on the budget exchange. Months are YYYY-MM keys.
type Event struct {
	Type      string    `json:"type"`
	Origin    string    `json:"origin,omitempty"`
	UserID    uuid.UUID `json:"user_id"`
	Months    []string  `json:"months,omitempty"`
	AllMonths bool      `json:"all_months"`
	Timestamp time.Time `json:"timestamp"`
}

// NewInvalidatedEvent describes inv as an event published by origin.
func NewInvalidatedEvent(origin string, inv budget.Invalidation) Event {
	return Event{
		Type:      TypeBudgetInvalidated,
		Origin:    origin,
		UserID:    inv.UserID,
		Months:    inv.MonthKeys(),
		AllMonths: inv.AllMonths,
		Timestamp: time.Now().UTC(),
	}
}

func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func EventFromJSON(data []byte) (Event, error) {
	var event Event
	if err := json.Unmarshal(data, &event); err != nil {
		return Event{}, err
	}
	if event.UserID == uuid.Nil {
		return Event{}, fmt.Errorf("event %q without user_id", event.Type)
	}
	return event, nil
}

// Invalidation converts the event back into the cache scope it names. An
// event without months invalidates every month of the user.
func (e Event) Invalidation() (budget.Invalidation, error) {
	inv := budget.Invalidation{UserID: e.UserID, AllMonths: e.AllMonths || len(e.Months) == 0}
	if inv.AllMonths {
		return inv, nil
	}

	for _, key := range e.Months {
		month, err := budget.ParseMonth(key)
		if err != nil {
			return budget.Invalidation{}, err
		}
		inv.Months = append(inv.Months, month)
	}
	return inv, nil
}
