// Package identity resolves bearer credentials to authenticated principals.
// Identities are created and destroyed by the external auth provider; this
// package only reads them per request.
package identity

import (
	"context"
	"errors"
	"sync"
)

// Resolution errors.
var (
	// ErrMalformedCredential is returned for empty or structurally invalid credentials.
	ErrMalformedCredential = errors.New("malformed credential")
	// ErrUnauthenticated is returned when a credential does not map to a known identity.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrIdentityNotFound is returned by stores when no identity exists for an ID.
	ErrIdentityNotFound = errors.New("identity not found")
)

// Identity is a principal record in the authorization store.
type Identity struct {
	ID        string
	HomeOrgID string // empty for platform-wide elevated identities
	Elevated  bool
}

// Principal is the resolved authentication context for a single request.
type Principal struct {
	ID        string
	HomeOrgID string
	Elevated  bool
}

// Store defines the identity lookup interface.
type Store interface {
	// GetByID returns the identity for the given ID.
	// Returns ErrIdentityNotFound if no such identity exists.
	GetByID(ctx context.Context, id string) (*Identity, error)
}

// InMemoryStore is an in-memory implementation of Store.
// Used for testing and development. Thread-safe via RWMutex.
type InMemoryStore struct {
	mu         sync.RWMutex
	identities map[string]*Identity
}

// NewInMemoryStore creates a new in-memory identity store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		identities: make(map[string]*Identity),
	}
}

// Put inserts or replaces an identity.
func (s *InMemoryStore) Put(id *Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *id
	s.identities[id.ID] = &stored
}

// GetByID returns the identity for the given ID.
func (s *InMemoryStore) GetByID(_ context.Context, id string) (*Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, ok := s.identities[id]
	if !ok {
		return nil, ErrIdentityNotFound
	}
	// Return a copy to prevent external modification
	identity := *stored
	return &identity, nil
}
