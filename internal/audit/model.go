// Package audit records per-request access events for the analytics pipeline:
// who queried, what scope they resolved to, what they asked for versus what
// they were authorized for, and how the request ended. Recording is
// best-effort observability; it never blocks or fails the response path.
package audit

import (
	"net"
	"net/http"
	"strings"
	"time"
)

// Request outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeDenied  = "denied"
	OutcomeError   = "error"
)

// Event is a single recorded analytics request.
type Event struct {
	ID          string
	PrincipalID string

	// OrgIDs is the effective organization scope the request resolved to.
	OrgIDs []string

	// RequestedAppIDs and AuthorizedAppIDs are kept separately so over-asking
	// is detectable after the fact; DroppedAppIDs is the difference the
	// narrowing removed.
	RequestedAppIDs  []string
	AuthorizedAppIDs []string
	DroppedAppIDs    []string

	StartDate  string
	EndDate    string
	Comparison bool

	RowCount  int
	LatencyMS int64
	FromCache bool

	Outcome   string
	ErrorCode string

	RequestID string
	IPAddress string
	UserAgent string
	CreatedAt time.Time
}

// ClientIP extracts the client address from a request, preferring
// X-Forwarded-For, then X-Real-IP, then RemoteAddr, with ports stripped.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first := xff
		if idx := strings.Index(xff, ","); idx != -1 {
			first = xff[:idx]
		}
		if first = strings.TrimSpace(first); first != "" {
			return stripPort(first)
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return stripPort(xri)
	}
	return stripPort(r.RemoteAddr)
}

func stripPort(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
