package events

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"example.com/budget-tracker/internal/budget"
)

func TestExponentialBackoff(t *testing.T) {
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second},
		{12, 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("attempt_%d", tt.attempt), func(t *testing.T) {
			if got := exponentialBackoff(tt.attempt); got != tt.expected {
				t.Fatalf("exponentialBackoff(%d) = %v, want %v", tt.attempt, got, tt.expected)
			}
		})
	}
}

func TestEventRoundTripsInvalidation(t *testing.T) {
	userID := uuid.New()
	inv := budget.Invalidation{
		UserID: userID,
		Months: []time.Time{time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
	}

	body, err := NewInvalidatedEvent("node-a", inv).ToJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	event, err := EventFromJSON(body)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	got, err := event.Invalidation()
	if err != nil {
		t.Fatalf("invalidation: %v", err)
	}

	if got.UserID != userID || got.AllMonths || len(got.Months) != 1 || !got.Months[0].Equal(inv.Months[0]) {
		t.Fatalf("unexpected invalidation %+v", got)
	}
}

func TestEventFromJSONRequiresUser(t *testing.T) {
	if _, err := EventFromJSON([]byte(`{"type":"budget_invalidated"}`)); err == nil {
		t.Fatalf("expected error for missing user_id")
	}
}

type recordingApplier struct {
	got []budget.Invalidation
}

func (r *recordingApplier) ApplyRemote(_ context.Context, inv budget.Invalidation) {
	r.got = append(r.got, inv)
}

func TestHandlerRoutesEvents(t *testing.T) {
	applier := &recordingApplier{}
	handle := NewHandler(applier, nil)
	userID := uuid.New()
	ctx := context.Background()

	events := []Event{
		{Type: TypeTransactionsChanged, UserID: userID},
		{Type: TypeBudgetInvalidated, UserID: userID, Months: []string{"2024-03"}},
		{Type: TypeBudgetInvalidated, UserID: userID, Months: []string{"March"}},
		{Type: "something_else", UserID: userID},
	}
	for _, event := range events {
		if err := handle(ctx, event); err != nil {
			t.Fatalf("handle %s: %v", event.Type, err)
		}
	}

	if len(applier.got) != 3 {
		t.Fatalf("expected 3 applied invalidations, got %d", len(applier.got))
	}
	if !applier.got[0].AllMonths {
		t.Fatalf("transactions_changed without months must evict all months")
	}
	if applier.got[1].AllMonths || len(applier.got[1].Months) != 1 {
		t.Fatalf("expected a single month, got %+v", applier.got[1])
	}
	if !applier.got[2].AllMonths {
		t.Fatalf("malformed months must fall back to all months")
	}
}
