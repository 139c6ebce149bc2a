package notifications

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"example.com/budget-tracker/internal/budget"
)

const (
	TypeConnected         = "connected"
	TypeBudgetInvalidated = "budget_invalidated"
)

type Event struct {
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
}

// InvalidatedData tells a client which months to refetch.
type InvalidatedData struct {
	Months    []string `json:"months,omitempty"`
	AllMonths bool     `json:"all_months"`
}

// Hub fans events out to the SSE streams of each user.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[uuid.UUID]map[chan Event]struct{}
}

func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[uuid.UUID]map[chan Event]struct{}),
	}
}

// Subscribe registers a stream for the user and returns its channel and the
// function that closes it.
func (h *Hub) Subscribe(userID uuid.UUID) (<-chan Event, func()) {
	ch := make(chan Event, 10)

	h.mu.Lock()
	defer h.mu.Unlock()

	userSubs, ok := h.subscribers[userID]
	if !ok {
		userSubs = make(map[chan Event]struct{})
		h.subscribers[userID] = userSubs
	}
	userSubs[ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()

			if subs, exists := h.subscribers[userID]; exists {
				delete(subs, ch)
				if len(subs) == 0 {
					delete(h.subscribers, userID)
				}
			}
			close(ch)
		})
	}
}

// Publish delivers event to every stream of the user. Slow streams drop it.
func (h *Hub) Publish(userID uuid.UUID, event Event) {
	event.Timestamp = time.Now().UTC()

	h.mu.RLock()
	defer h.mu.RUnlock()

	subs, ok := h.subscribers[userID]
	if !ok {
		return
	}

	for ch := range subs {
		select {
		case ch <- event:
		default:
		}
	}
}

// Subscribers reports how many streams the user has open.
func (h *Hub) Subscribers(userID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[userID])
}

// Notify turns a cache invalidation into a budget_invalidated event.
func (h *Hub) Notify(_ context.Context, inv budget.Invalidation) error {
	h.Publish(inv.UserID, Event{
		Type: TypeBudgetInvalidated,
		Data: InvalidatedData{
			Months:    inv.MonthKeys(),
			AllMonths: inv.AllMonths,
		},
	})
	return nil
}

var _ budget.Sink = (*Hub)(nil)
