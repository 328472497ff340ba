package remotecache

import (
	"context"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Adapter wraps a Client with typed get/set/delete, bulk retrieval, index
// maintenance, and the read/write error split spec.md §7 requires: store
// errors during writes are caught and logged without failing the caller,
// while read errors propagate. Modeled directly on
// RemoteIndexCache.set/get/FetchMultiPostings from the retrieval pack.
type Adapter struct {
	client Client
	logger log.Logger

	requests   *prometheus.CounterVec
	hits       *prometheus.CounterVec
	writeFails *prometheus.CounterVec
}

// NewAdapter constructs an Adapter around client, registering its metrics
// against reg (which may be nil to skip registration).
func NewAdapter(client Client, logger log.Logger, reg prometheus.Registerer) *Adapter {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Adapter{
		client: client,
		logger: logger,
		requests: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "cache_updater_store_requests_total",
			Help: "Total number of requests issued to the remote store.",
		}, []string{"op"}),
		hits: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "cache_updater_store_hits_total",
			Help: "Total number of GET/MGET requests that found a value.",
		}, []string{"op"}),
		writeFails: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "cache_updater_store_write_errors_total",
			Help: "Total number of write operations that failed and were swallowed.",
		}, []string{"op"}),
	}
}

// Get fetches and decodes the value for key into T. The bool result
// reports presence, matching RemoteIndexCache.get's (data, ok) shape.
func Get[T any](ctx context.Context, a *Adapter, key string) (T, bool, error) {
	var zero T
	a.requests.WithLabelValues("get").Inc()
	raw, ok, err := a.client.Get(ctx, key)
	if err != nil {
		return zero, false, err
	}
	if !ok {
		return zero, false, nil
	}
	a.hits.WithLabelValues("get").Inc()
	var v T
	if err := Decode(raw, &v); err != nil {
		return zero, false, err
	}
	return v, true, nil
}

// Set encodes and stores value for key. Write failures are logged and
// swallowed, never returned, per spec.md §7.
func (a *Adapter) Set(ctx context.Context, key string, value any, ttl int64) {
	a.requests.WithLabelValues("set").Inc()
	raw, err := Encode(value)
	if err != nil {
		a.writeFails.WithLabelValues("set").Inc()
		level.Error(a.logger).Log("msg", "failed to encode value for cache", "key", key, "err", err)
		return
	}
	if err := a.client.Set(ctx, key, raw, ttl); err != nil {
		a.writeFails.WithLabelValues("set").Inc()
		level.Error(a.logger).Log("msg", "failed to set item in remote cache", "key", key, "err", err)
	}
}

// Delete removes keys, logging (and swallowing) any failure.
func (a *Adapter) Delete(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	a.requests.WithLabelValues("delete").Inc()
	if err := a.client.Delete(ctx, keys...); err != nil {
		a.writeFails.WithLabelValues("delete").Inc()
		level.Error(a.logger).Log("msg", "failed to delete items from remote cache", "count", len(keys), "err", err)
	}
}

// GetMany fetches raw payloads for keys and returns only those present,
// matching get_many's "mapping containing only present keys" contract.
func (a *Adapter) GetMany(ctx context.Context, keys []string) (map[string][]byte, error) {
	if len(keys) == 0 {
		return map[string][]byte{}, nil
	}
	a.requests.WithLabelValues("mget").Add(float64(len(keys)))
	results, err := a.client.MGet(ctx, keys)
	if err != nil {
		return nil, err
	}
	a.hits.WithLabelValues("mget").Add(float64(len(results)))
	return results, nil
}

// SetMany encodes and stores every key in values with a uniform ttl. Write
// failures are logged and swallowed.
func (a *Adapter) SetMany(ctx context.Context, values map[string]any, ttl int64) {
	if len(values) == 0 {
		return
	}
	a.requests.WithLabelValues("mset").Add(float64(len(values)))
	encoded := make(map[string][]byte, len(values))
	for k, v := range values {
		raw, err := Encode(v)
		if err != nil {
			a.writeFails.WithLabelValues("mset").Inc()
			level.Error(a.logger).Log("msg", "failed to encode value for cache", "key", k, "err", err)
			continue
		}
		encoded[k] = raw
	}
	if err := a.client.MSet(ctx, encoded, ttl); err != nil {
		a.writeFails.WithLabelValues("mset").Inc()
		level.Error(a.logger).Log("msg", "failed to mset items in remote cache", "count", len(encoded), "err", err)
	}
}

// UpdateIndex prunes index members older than now-ttl (when ttl > 0) then
// upserts cacheKey with score = now, mirroring update_index in cache.py.
func (a *Adapter) UpdateIndex(ctx context.Context, cacheKey, indexKey string, ttl int64, now float64) {
	a.requests.WithLabelValues("zadd").Inc()
	if ttl > 0 {
		if err := a.client.ZRemRangeByScore(ctx, indexKey, negInf, now-float64(ttl)); err != nil {
			a.writeFails.WithLabelValues("zremrangebyscore").Inc()
			level.Error(a.logger).Log("msg", "failed to prune cache index", "index_key", indexKey, "err", err)
		}
	}
	if err := a.client.ZAdd(ctx, indexKey, map[string]float64{cacheKey: now}); err != nil {
		a.writeFails.WithLabelValues("zadd").Inc()
		level.Error(a.logger).Log("msg", "failed to update cache index", "index_key", indexKey, "err", err)
	}
}

// ClearIndex fetches the cache keys scored in [after, before], deletes
// them, then removes the index entries in that range, mirroring
// clear_index in cache.py.
func (a *Adapter) ClearIndex(ctx context.Context, indexKey string, before, after float64) error {
	a.requests.WithLabelValues("zrangebyscore").Inc()
	cacheKeys, err := a.client.ZRangeByScore(ctx, indexKey, after, before)
	if err != nil {
		return err
	}
	a.Delete(ctx, cacheKeys...)
	if err := a.client.ZRemRangeByScore(ctx, indexKey, after, before); err != nil {
		a.writeFails.WithLabelValues("zremrangebyscore").Inc()
		level.Error(a.logger).Log("msg", "failed to prune cache index after clear", "index_key", indexKey, "err", err)
	}
	return nil
}

const (
	negInf = -1 << 62
	posInf = 1 << 62
)
