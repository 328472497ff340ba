// Package keycodec derives the deterministic store keys used to address a
// single memoized result: the cache key itself plus its three auxiliary
// keys (index, updated, refresh). Derivation is pure and side-effect-free;
// identical inputs always produce identical keys across processes.
package keycodec

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"
)

// Prefixes bundles the four configurable key prefixes (KEY_PREFIX,
// INDEX_PREFIX, UPDATED_PREFIX, REFRESH_PREFIX) needed to derive keys.
type Prefixes struct {
	Key     string
	Index   string
	Updated string
	Refresh string
}

// CacheKey derives the SHA-1 hex digest that addresses one memoized result.
// args must already be in declared order with the timestamp/timezone
// argument values excluded; bucketLabel is appended as the final segment
// when the computation is bucketed, and omitted (not even an empty
// segment) otherwise.
func CacheKey(prefixes Prefixes, module, name string, args []string, bucketLabel string) string {
	var b strings.Builder
	b.WriteString(prefixes.Key)
	b.WriteByte(':')
	b.WriteString(module)
	b.WriteByte(':')
	b.WriteString(name)
	b.WriteByte(':')
	b.WriteString(strings.Join(args, ":"))
	if bucketLabel != "" {
		b.WriteByte(':')
		b.WriteString(bucketLabel)
	}

	sum := sha1.Sum([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// IndexKey derives the sorted-set key tracking every cache key ever written
// by a given computation, independent of bucket. One per (module, name).
func IndexKey(prefixes Prefixes, module, name string) string {
	return prefixes.Index + ":" + module + ":" + name
}

// UpdatedKey derives the scalar key storing the last-write timestamp for a
// given cache key.
func UpdatedKey(prefixes Prefixes, cacheKey string) string {
	return prefixes.Updated + ":" + cacheKey
}

// RefreshKey derives the scalar key storing the unix-second at which a
// background refresh becomes eligible for a given cache key.
func RefreshKey(prefixes Prefixes, cacheKey string) string {
	return prefixes.Refresh + ":" + cacheKey
}
