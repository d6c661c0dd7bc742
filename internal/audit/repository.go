package audit

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for audit event storage.
type Repository interface {
	// Record persists one event. The sink assigns ID and CreatedAt before
	// calling.
	Record(ctx context.Context, event *Event) error

	// QueryByPrincipal retrieves events for a principal, newest first.
	// Limit specifies the maximum number of entries to return (0 = no limit).
	QueryByPrincipal(ctx context.Context, principalID string, limit int) ([]*Event, error)
}

// InMemoryRepository is an in-memory implementation of Repository.
// Used for testing and development. Thread-safe via RWMutex.
type InMemoryRepository struct {
	mu     sync.RWMutex
	events map[string]*Event
	// Maintain insertion order for queries
	order []string
}

// NewInMemoryRepository creates a new in-memory audit repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		events: make(map[string]*Event),
		order:  make([]string, 0),
	}
}

// Record persists one event.
func (r *InMemoryRepository) Record(_ context.Context, event *Event) error {
	stored := *event
	if stored.ID == "" {
		stored.ID = uuid.New().String()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}

	r.mu.Lock()
	r.events[stored.ID] = &stored
	r.order = append(r.order, stored.ID)
	r.mu.Unlock()

	return nil
}

// QueryByPrincipal retrieves events for a principal, newest first.
func (r *InMemoryRepository) QueryByPrincipal(_ context.Context, principalID string, limit int) ([]*Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var results []*Event
	for i := len(r.order) - 1; i >= 0; i-- {
		event := r.events[r.order[i]]
		if event.PrincipalID != principalID {
			continue
		}
		// Return copies to prevent external modification
		eventCopy := *event
		results = append(results, &eventCopy)
		if limit > 0 && len(results) >= limit {
			break
		}
	}

	return results, nil
}

// Len returns the number of recorded events.
func (r *InMemoryRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
