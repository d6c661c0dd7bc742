package tenant

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// ErrOrganizationNotFound is returned when no organization exists for an ID.
var ErrOrganizationNotFound = errors.New("organization not found")

// Store defines the read interface the scope expander consumes.
type Store interface {
	// GetOrganization returns the organization for the given ID.
	// Returns ErrOrganizationNotFound if no such organization exists.
	GetOrganization(ctx context.Context, orgID string) (*Organization, error)

	// ListActiveClientLinks returns the client org IDs the given agency
	// currently has active links to. Returns an empty slice for
	// organizations with no links (including non-agencies).
	ListActiveClientLinks(ctx context.Context, agencyOrgID string) ([]string, error)

	// ListLiveGrants returns the app IDs with a live (non-detached) grant to
	// any of the given organizations, deduplicated and sorted.
	ListLiveGrants(ctx context.Context, orgIDs []string) ([]string, error)
}

// InMemoryStore is an in-memory implementation of Store.
// Used for testing and development. Thread-safe via RWMutex.
type InMemoryStore struct {
	mu     sync.RWMutex
	orgs   map[string]*Organization
	links  []*AgencyClientLink
	grants []*AppAccessGrant
}

// NewInMemoryStore creates a new in-memory tenant store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		orgs: make(map[string]*Organization),
	}
}

// PutOrganization inserts or replaces an organization.
func (s *InMemoryStore) PutOrganization(org *Organization) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *org
	s.orgs[org.ID] = &stored
}

// LinkAgency creates an active agency-client link.
func (s *InMemoryStore) LinkAgency(agencyOrgID, clientOrgID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.links = append(s.links, &AgencyClientLink{
		AgencyOrgID: agencyOrgID,
		ClientOrgID: clientOrgID,
		Active:      true,
		CreatedAt:   time.Now().UTC(),
	})
}

// SetLinkActive flips the active flag on an existing link.
// The change is visible to the very next ListActiveClientLinks call.
func (s *InMemoryStore) SetLinkActive(agencyOrgID, clientOrgID string, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, link := range s.links {
		if link.AgencyOrgID == agencyOrgID && link.ClientOrgID == clientOrgID {
			link.Active = active
		}
	}
}

// AttachApp creates a live grant for the app to the organization.
func (s *InMemoryStore) AttachApp(appID, orgID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.grants = append(s.grants, &AppAccessGrant{
		AppID:      appID,
		OrgID:      orgID,
		AttachedAt: time.Now().UTC(),
	})
}

// DetachApp marks all live grants for the app/org pair as detached.
// The grant rows are retained for audit.
func (s *InMemoryStore) DetachApp(appID, orgID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	for _, grant := range s.grants {
		if grant.AppID == appID && grant.OrgID == orgID && grant.DetachedAt == nil {
			detached := now
			grant.DetachedAt = &detached
		}
	}
}

// GetOrganization returns the organization for the given ID.
func (s *InMemoryStore) GetOrganization(_ context.Context, orgID string) (*Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, ok := s.orgs[orgID]
	if !ok {
		return nil, ErrOrganizationNotFound
	}
	org := *stored
	return &org, nil
}

// ListActiveClientLinks returns the client org IDs with active links from the agency.
func (s *InMemoryStore) ListActiveClientLinks(_ context.Context, agencyOrgID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	clients := make([]string, 0)
	for _, link := range s.links {
		if link.AgencyOrgID == agencyOrgID && link.Active {
			clients = append(clients, link.ClientOrgID)
		}
	}
	sort.Strings(clients)
	return clients, nil
}

// ListLiveGrants returns the app IDs with a live grant to any of the given organizations.
func (s *InMemoryStore) ListLiveGrants(_ context.Context, orgIDs []string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inScope := make(map[string]bool, len(orgIDs))
	for _, id := range orgIDs {
		inScope[id] = true
	}

	seen := make(map[string]bool)
	apps := make([]string, 0)
	for _, grant := range s.grants {
		if grant.DetachedAt != nil {
			continue
		}
		if !inScope[grant.OrgID] || seen[grant.AppID] {
			continue
		}
		seen[grant.AppID] = true
		apps = append(apps, grant.AppID)
	}
	sort.Strings(apps)
	return apps, nil
}
