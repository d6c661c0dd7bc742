// Package scope computes the per-request authorization scope: the set of
// organizations and application IDs a principal may query. The expander in
// this package is the only place scope is computed; downstream components
// consume the resulting QueryScope opaquely and never widen it.
package scope

import (
	"errors"
	"sort"
)

// Expansion errors.
var (
	// ErrNoAccessibleOrganization is returned for non-elevated principals
	// with no home organization (orphaned identities).
	ErrNoAccessibleOrganization = errors.New("no accessible organization")
	// ErrAccessDenied is returned under the strict policy when the caller
	// requests app IDs outside its authorized set.
	ErrAccessDenied = errors.New("access denied")
)

// QueryScope is the resolved authorization scope for a single request.
// Ephemeral: computed fresh per request, never persisted.
//
// The unrestricted variant represents a platform-wide elevated principal.
// Only the Expander constructs it; consumers must go through AppFilter and
// Allows rather than re-inspecting elevation.
type QueryScope struct {
	// OrgIDs is the sorted set of organization IDs in scope
	// (home org plus active agency clients). Empty for unrestricted scopes.
	OrgIDs []string

	// AppIDs is the sorted effective set of application IDs the request may
	// query. For unrestricted scopes this is the requested set verbatim.
	AppIDs []string

	// AuthorizedAppIDs is the full sorted set of application IDs with live
	// grants to the organizations in scope, independent of any requested
	// filter. Surfaced in response metadata so clients can populate app
	// pickers, and recorded on audit events; AppIDs is what the query may
	// actually touch.
	AuthorizedAppIDs []string

	// DroppedAppIDs is the sorted set of requested-but-unauthorized app IDs
	// removed by narrowing. Recorded for audit; empty under strict policy
	// (over-asking fails instead).
	DroppedAppIDs []string

	unrestricted bool
}

// Unrestricted reports whether this scope bypasses app-level filtering.
// Exposed for cache keying and audit attribution only; access decisions must
// use Allows and AppFilter.
func (s *QueryScope) Unrestricted() bool {
	return s.unrestricted
}

// AppFilter returns the application-ID filter the warehouse query must apply.
// filtered=false means no filter (unrestricted scope with no explicit app
// request); the warehouse query then has no app restriction.
func (s *QueryScope) AppFilter() (appIDs []string, filtered bool) {
	if s.unrestricted && len(s.AppIDs) == 0 {
		return nil, false
	}
	return s.AppIDs, true
}

// Allows reports whether the given application ID is inside the scope.
func (s *QueryScope) Allows(appID string) bool {
	if s.unrestricted && len(s.AppIDs) == 0 {
		return true
	}
	for _, id := range s.AppIDs {
		if id == appID {
			return true
		}
	}
	return false
}

// newRestricted builds a restricted scope with sorted, deduplicated sets.
// authorized is the full granted set; appIDs is the effective subset after
// any requested filter was applied.
func newRestricted(orgIDs, authorized, appIDs, dropped []string) *QueryScope {
	return &QueryScope{
		OrgIDs:           sortedUnique(orgIDs),
		AppIDs:           sortedUnique(appIDs),
		AuthorizedAppIDs: sortedUnique(authorized),
		DroppedAppIDs:    sortedUnique(dropped),
	}
}

// newUnrestricted builds the elevated-principal scope covering the requested
// set unfiltered. There is no grant set to report, so the requested set
// doubles as the authorized one.
func newUnrestricted(requestedAppIDs []string) *QueryScope {
	appIDs := sortedUnique(requestedAppIDs)
	return &QueryScope{
		AppIDs:           appIDs,
		AuthorizedAppIDs: appIDs,
		unrestricted:     true,
	}
}

// sortedUnique returns a sorted copy of the input with duplicates removed.
// Always returns a non-nil slice so scopes marshal and compare predictably.
func sortedUnique(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, v := range in {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
