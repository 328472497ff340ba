// Package remotecache provides the narrow store façade (C4) that sits
// between the memoization engine and an external key/value store: typed
// get/set/delete, bulk MGET/MSET, sorted-set index maintenance, and
// self-describing payload serialization.
package remotecache

import "context"

// Client is the minimum external store contract (spec §6). All operations
// are expected to multiplex over a shared connection; implementations must
// be safe for concurrent use.
type Client interface {
	// Get returns the raw value for key, or (nil, false) if absent.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores value for key. ttl of zero means no expiry.
	Set(ctx context.Context, key string, value []byte, ttl int64) error
	// Delete removes the given keys. Missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error
	// MGet returns a mapping containing only the keys that are present.
	MGet(ctx context.Context, keys []string) (map[string][]byte, error)
	// MSet stores every key in values with a uniform ttl (zero = no expiry).
	MSet(ctx context.Context, values map[string][]byte, ttl int64) error
	// ZAdd upserts members with the given scores in the sorted set key.
	ZAdd(ctx context.Context, key string, members map[string]float64) error
	// ZRangeByScore returns members of the sorted set key scored in [min, max].
	ZRangeByScore(ctx context.Context, key string, min, max float64) ([]string, error)
	// ZRemRangeByScore removes members of the sorted set key scored in [min, max].
	ZRemRangeByScore(ctx context.Context, key string, min, max float64) error
}
