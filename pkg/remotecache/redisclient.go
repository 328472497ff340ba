package remotecache

import (
	"context"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// RedisClient is the production Client implementation backed by
// redis.UniversalClient, the concrete analogue of the source's aioredis.Redis
// dependency. It exercises GET/SET/DEL/MGET/MSET and the sorted-set
// operations the store contract requires.
type RedisClient struct {
	rdb redis.UniversalClient
}

// NewRedisClient wraps an existing redis.UniversalClient (a *redis.Client,
// *redis.ClusterClient, or *redis.Ring) as a remotecache.Client.
func NewRedisClient(rdb redis.UniversalClient) *RedisClient {
	return &RedisClient{rdb: rdb}
}

func (c *RedisClient) Get(ctx context.Context, key string) ([]byte, bool, error) {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrapf(err, "GET %s", key)
	}
	return raw, true, nil
}

func (c *RedisClient) Set(ctx context.Context, key string, value []byte, ttl int64) error {
	return errors.Wrapf(c.rdb.Set(ctx, key, value, ttlDuration(ttl)).Err(), "SET %s", key)
}

func (c *RedisClient) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return errors.Wrap(c.rdb.Del(ctx, keys...).Err(), "DEL")
}

func (c *RedisClient) MGet(ctx context.Context, keys []string) (map[string][]byte, error) {
	if len(keys) == 0 {
		return map[string][]byte{}, nil
	}
	raw, err := c.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, errors.Wrap(err, "MGET")
	}
	out := make(map[string][]byte, len(raw))
	for i, v := range raw {
		if v == nil {
			continue
		}
		s, ok := v.(string)
		if !ok {
			continue
		}
		out[keys[i]] = []byte(s)
	}
	return out, nil
}

func (c *RedisClient) MSet(ctx context.Context, values map[string][]byte, ttl int64) error {
	if len(values) == 0 {
		return nil
	}
	pipe := c.rdb.Pipeline()
	d := ttlDuration(ttl)
	for k, v := range values {
		pipe.Set(ctx, k, v, d)
	}
	_, err := pipe.Exec(ctx)
	return errors.Wrap(err, "MSET (pipelined SETs)")
}

func (c *RedisClient) ZAdd(ctx context.Context, key string, members map[string]float64) error {
	if len(members) == 0 {
		return nil
	}
	zs := make([]redis.Z, 0, len(members))
	for member, score := range members {
		zs = append(zs, redis.Z{Score: score, Member: member})
	}
	return errors.Wrapf(c.rdb.ZAdd(ctx, key, zs...).Err(), "ZADD %s", key)
}

func (c *RedisClient) ZRangeByScore(ctx context.Context, key string, min, max float64) ([]string, error) {
	members, err := c.rdb.ZRangeByScore(ctx, key, &redis.ZRangeBy{
		Min: formatScore(min),
		Max: formatScore(max),
	}).Result()
	return members, errors.Wrapf(err, "ZRANGEBYSCORE %s", key)
}

func (c *RedisClient) ZRemRangeByScore(ctx context.Context, key string, min, max float64) error {
	return errors.Wrapf(c.rdb.ZRemRangeByScore(ctx, key, formatScore(min), formatScore(max)).Err(), "ZREMRANGEBYSCORE %s", key)
}

func ttlDuration(ttl int64) time.Duration {
	if ttl <= 0 {
		return 0
	}
	return time.Duration(ttl) * time.Second
}

func formatScore(v float64) string {
	if v <= negInf {
		return "-inf"
	}
	if v >= posInf {
		return "+inf"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
