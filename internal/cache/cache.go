// Package cache provides the short-lived result cache for aggregation
// responses. Keys are deterministic digests of the normalized query (see Key);
// values are opaque serialized payloads owned by the caller.
//
// The cache is best-effort: Get returning a miss and Put silently dropping a
// value are both acceptable outcomes, and failures are never surfaced to
// request handlers. Misses are never cached.
package cache

import (
	"context"
	"time"
)

// ResultCache is the read-through cache consumed by the analytics service.
//
// The default deployment uses the process-local MemoryCache; staleness up to
// the TTL window and the lack of cross-instance coherency are accepted
// tradeoffs. RedisCache is available behind the same interface for
// deployments that opt into a shared cache.
type ResultCache interface {
	// Get returns the cached payload for key, or ok=false on a miss.
	Get(ctx context.Context, key string) (payload []byte, ok bool)

	// Put stores payload under key for ttl. Best-effort; never blocks the
	// request path on failure.
	Put(ctx context.Context, key string, payload []byte, ttl time.Duration)
}
