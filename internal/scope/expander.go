package scope

import (
	"context"
	"errors"
	"fmt"

	"github.com/apexaso/insights/internal/config"
	"github.com/apexaso/insights/internal/identity"
	"github.com/apexaso/insights/internal/tenant"
)

// Expander computes the authorized QueryScope for a principal and a set of
// requested application IDs.
type Expander struct {
	store  tenant.Store
	policy string
}

// NewExpander creates an Expander over the given tenant store.
// policy is one of config.ScopePolicyNarrow or config.ScopePolicyStrict.
func NewExpander(store tenant.Store, policy string) *Expander {
	if policy == "" {
		policy = config.DefaultScopePolicy
	}
	return &Expander{store: store, policy: policy}
}

// Expand resolves the effective scope for the request.
//
// Elevated principals get an unrestricted scope covering the requested set
// unfiltered. Otherwise the scope starts at the principal's home organization,
// adds active agency-client delegations, and resolves the app IDs with live
// grants to any organization in scope. When the caller requested specific
// apps, the effective set is the intersection; unauthorized requests are
// silently dropped (recorded on the scope for audit) under the narrow policy,
// or rejected with ErrAccessDenied under the strict policy.
func (e *Expander) Expand(ctx context.Context, principal *identity.Principal, requestedAppIDs []string) (*QueryScope, error) {
	if principal.Elevated {
		return newUnrestricted(requestedAppIDs), nil
	}

	if principal.HomeOrgID == "" {
		return nil, ErrNoAccessibleOrganization
	}

	orgIDs := []string{principal.HomeOrgID}

	org, err := e.store.GetOrganization(ctx, principal.HomeOrgID)
	if err != nil && !errors.Is(err, tenant.ErrOrganizationNotFound) {
		return nil, fmt.Errorf("failed to load home organization: %w", err)
	}
	if org != nil && org.IsAgency {
		clients, err := e.store.ListActiveClientLinks(ctx, principal.HomeOrgID)
		if err != nil {
			return nil, fmt.Errorf("failed to expand agency links: %w", err)
		}
		orgIDs = append(orgIDs, clients...)
	}

	authorized, err := e.store.ListLiveGrants(ctx, orgIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve app grants: %w", err)
	}

	if len(requestedAppIDs) == 0 {
		return newRestricted(orgIDs, authorized, authorized, nil), nil
	}

	authorizedSet := make(map[string]bool, len(authorized))
	for _, id := range authorized {
		authorizedSet[id] = true
	}

	var effective, dropped []string
	for _, id := range sortedUnique(requestedAppIDs) {
		if authorizedSet[id] {
			effective = append(effective, id)
		} else {
			dropped = append(dropped, id)
		}
	}

	if len(dropped) > 0 && e.policy == config.ScopePolicyStrict {
		return nil, ErrAccessDenied
	}

	return newRestricted(orgIDs, authorized, effective, dropped), nil
}
