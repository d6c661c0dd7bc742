package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"
)

// keyVersion is bumped whenever the serialized result shape changes, so stale
// entries from a previous build are never decoded.
const keyVersion = "v1"

// KeyInputs is the normalized query identity a cache key is derived from.
// Set-valued fields are sorted and deduplicated before hashing, so input
// ordering never changes the key.
type KeyInputs struct {
	OrgIDs        []string
	AppIDs        []string
	Unrestricted  bool
	StartDate     string
	EndDate       string
	TrafficSource string
	Comparison    bool
	IncludeRaw    bool
	IncludeLegacy bool
}

// Key computes the deterministic cache key for the given inputs: a SHA-256
// digest over the canonical encoding, hex encoded with a version prefix.
func Key(in KeyInputs) string {
	var b strings.Builder
	b.WriteString(keyVersion)
	b.WriteByte('|')
	writeSet(&b, in.OrgIDs)
	b.WriteByte('|')
	writeSet(&b, in.AppIDs)
	b.WriteByte('|')
	b.WriteString(strconv.FormatBool(in.Unrestricted))
	b.WriteByte('|')
	b.WriteString(in.StartDate)
	b.WriteByte('|')
	b.WriteString(in.EndDate)
	b.WriteByte('|')
	b.WriteString(in.TrafficSource)
	b.WriteByte('|')
	b.WriteString(strconv.FormatBool(in.Comparison))
	b.WriteByte('|')
	b.WriteString(strconv.FormatBool(in.IncludeRaw))
	b.WriteByte('|')
	b.WriteString(strconv.FormatBool(in.IncludeLegacy))

	sum := sha256.Sum256([]byte(b.String()))
	return keyVersion + ":" + hex.EncodeToString(sum[:])
}

func writeSet(b *strings.Builder, values []string) {
	if len(values) == 0 {
		return
	}
	sorted := make([]string, 0, len(values))
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		sorted = append(sorted, v)
	}
	sort.Strings(sorted)
	b.WriteString(strings.Join(sorted, ","))
}
