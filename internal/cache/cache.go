package cache

import (
	"context"
	"errors"
	"log"
	"time"

	rediscache "github.com/go-redis/cache/v9"
	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss is returned by Get when the key is absent.
var ErrCacheMiss = rediscache.ErrCacheMiss

type Cache interface {
	Get(ctx context.Context, key string, target any) error
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// UseCache returns the cached value for key, or calls callback and stores its
// result for ttl. A nil Cache or an unreachable backend falls through to callback.
func UseCache[T any](ctx context.Context, c Cache, key string, ttl time.Duration, callback func() (T, error)) (T, error) {
	if c == nil {
		return callback()
	}

	var v T
	err := c.Get(ctx, key, &v)
	if err == nil {
		return v, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		log.Printf("[cache] get %s: %v", key, err)
	}

	v, err = callback()
	if err != nil {
		return v, err
	}

	if err := c.Set(ctx, key, v, ttl); err != nil {
		log.Printf("[cache] set %s: %v", key, err)
	}
	return v, nil
}

const localCacheSize = 1000

type RedisCache struct {
	instance *rediscache.Cache
}

// NewRedisCache layers an in-process TinyLFU over Redis when localTTL is
// positive. Local entries never outlive localTTL, so it should not exceed the
// shortest item TTL callers use. A nil client gives a local-only cache.
func NewRedisCache(client redis.UniversalClient, localTTL time.Duration) *RedisCache {
	var local rediscache.LocalCache
	if localTTL > 0 {
		// TinyLFU adds up to ttl/10 of jitter on every Set.
		local = rediscache.NewTinyLFU(localCacheSize, localTTL*10/11)
	}
	return &RedisCache{rediscache.New(&rediscache.Options{
		Redis:      client,
		LocalCache: local,
	})}
}

func (c *RedisCache) Get(ctx context.Context, key string, target any) error {
	return c.instance.Get(ctx, key, target)
}

func (c *RedisCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	return c.instance.Set(&rediscache.Item{
		Ctx:   ctx,
		Key:   key,
		Value: value,
		TTL:   ttl,
	})
}

func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.instance.Delete(ctx, key)
}

// NewRedisClient parses a redis:// URL. An empty URL yields a nil client.
func NewRedisClient(url string) (redis.UniversalClient, error) {
	if url == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return redis.NewClient(opts), nil
}
