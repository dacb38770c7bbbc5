package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a Cache shared by every portal instance. Tag membership lives in a redis set.
type Redis struct {
	rdb    redis.Cmdable
	prefix string
}

func NewRedis(rdb redis.Cmdable, prefix string) *Redis {
	if prefix = strings.TrimSpace(prefix); prefix == "" {
		prefix = "medibook:cache"
	}
	return &Redis{rdb: rdb, prefix: prefix}
}

func (r *Redis) key(k string) string { return r.prefix + ":k:" + k }
func (r *Redis) tagKey(t string) string { return r.prefix + ":t:" + t }

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := r.rdb.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get: %w", err)
	}
	return b, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration, tags ...string) error {
	if ttl <= 0 {
		return nil
	}
	_, err := r.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, r.key(key), value, ttl)
		for _, tag := range tags {
			p.SAdd(ctx, r.tagKey(tag), key)
			// The tag set outlives its newest member so invalidation still finds it.
			p.Expire(ctx, r.tagKey(tag), 2*ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

func (r *Redis) InvalidateTag(ctx context.Context, tag string) error {
	members, err := r.rdb.SMembers(ctx, r.tagKey(tag)).Result()
	if err != nil {
		return fmt.Errorf("cache tag members: %w", err)
	}
	keys := make([]string, 0, len(members)+1)
	for _, m := range members {
		keys = append(keys, r.key(m))
	}
	keys = append(keys, r.tagKey(tag))
	if err := r.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("cache invalidate: %w", err)
	}
	return nil
}
