package keycodec

import (
	"crypto/sha1"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
)

var testPrefixes = Prefixes{
	Key:     "cache_updater",
	Index:   "cache_index",
	Updated: "cache_updated_time",
	Refresh: "cache_refresh_time",
}

func TestCacheKeyIsDeterministic(t *testing.T) {
	k1 := CacheKey(testPrefixes, "billing", "monthly_total", []string{"acct-1", "usd"}, "2024-06")
	k2 := CacheKey(testPrefixes, "billing", "monthly_total", []string{"acct-1", "usd"}, "2024-06")
	assert.Equal(t, k1, k2)
	assert.Len(t, k1, 40) // SHA-1 hex digest length
}

func TestCacheKeyDiffersOnBucketLabel(t *testing.T) {
	k1 := CacheKey(testPrefixes, "billing", "monthly_total", []string{"acct-1"}, "2024-06")
	k2 := CacheKey(testPrefixes, "billing", "monthly_total", []string{"acct-1"}, "2024-07")
	assert.NotEqual(t, k1, k2)
}

func TestCacheKeyWithoutBucketOmitsTrailingSegment(t *testing.T) {
	withBucket := CacheKey(testPrefixes, "m", "n", []string{"a"}, "x")
	withoutBucket := CacheKey(testPrefixes, "m", "n", []string{"a"}, "")
	assert.NotEqual(t, withBucket, withoutBucket)

	// Confirm the unbucketed digest matches hashing the string with no
	// trailing ":" segment at all (not an empty segment).
	sum := sha1.Sum([]byte("cache_updater:m:n:a"))
	expected := hex.EncodeToString(sum[:])
	assert.Equal(t, expected, withoutBucket)
}

func TestCacheKeyArgOrderMatters(t *testing.T) {
	k1 := CacheKey(testPrefixes, "m", "n", []string{"a", "b"}, "")
	k2 := CacheKey(testPrefixes, "m", "n", []string{"b", "a"}, "")
	assert.NotEqual(t, k1, k2)
}

func TestAuxiliaryKeyDerivation(t *testing.T) {
	cacheKey := CacheKey(testPrefixes, "m", "n", []string{"a"}, "")

	assert.Equal(t, "cache_index:m:n", IndexKey(testPrefixes, "m", "n"))
	assert.Equal(t, "cache_updated_time:"+cacheKey, UpdatedKey(testPrefixes, cacheKey))
	assert.Equal(t, "cache_refresh_time:"+cacheKey, RefreshKey(testPrefixes, cacheKey))
}
