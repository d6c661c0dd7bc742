// Package tenant models the multi-tenant authorization data the analytics
// core reads: organizations, agency-client delegation links, and app access
// grants. All records are administered outside this service; the core only
// performs per-request lookups.
package tenant

import "time"

// Organization is a tenant boundary.
type Organization struct {
	ID       string
	Name     string
	IsAgency bool
}

// AgencyClientLink is a directed relation granting an agency organization
// read access to a client organization's applications while active.
// Deactivation takes effect on the next request; there is no grace window.
type AgencyClientLink struct {
	AgencyOrgID string
	ClientOrgID string
	Active      bool
	CreatedAt   time.Time
}

// AppAccessGrant attaches an application to an organization. A grant is live
// while DetachedAt is nil. Detached grants are retained for audit, never
// hard-deleted.
type AppAccessGrant struct {
	AppID      string
	OrgID      string
	AttachedAt time.Time
	DetachedAt *time.Time
}
