// Package cache provides Redis caching utilities for the application.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"til/internal/observability"

	"github.com/redis/go-redis/v9"
)

// PostsGenKey counts committed post writes. The post list is cached under a
// key carrying the generation it was read at, so a list loaded before a write
// is never served after it.
const PostsGenKey = "posts:gen"

// PostsKey is the post list key for generation gen.
func PostsKey(gen int64) string {
	return "posts:all:" + strconv.FormatInt(gen, 10)
}

// Cache wraps a Redis client. A nil *Cache is a valid, always-missing cache.
type Cache struct {
	client *redis.Client
	log    *slog.Logger
}

type metricsHook struct{}

func (h metricsHook) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (h metricsHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		err := next(ctx, cmd)
		if err != nil && !errors.Is(err, redis.Nil) {
			observability.RedisErrors.WithLabelValues(cmd.Name()).Inc()
		}
		return err
	}
}

func (h metricsHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		err := next(ctx, cmds)
		if err != nil && !errors.Is(err, redis.Nil) {
			observability.RedisErrors.WithLabelValues("pipeline").Inc()
		}
		return err
	}
}

// Init connects to the Redis server at addr, which may be a redis:// URL or a
// bare host:port. An empty addr, a bad URL or a failed ping all yield a nil
// cache and the application runs uncached.
func Init(addr string, log *slog.Logger) *Cache {
	if log == nil {
		log = slog.Default()
	}
	if strings.TrimSpace(addr) == "" {
		return nil
	}

	var opts *redis.Options
	if strings.Contains(addr, "://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			log.Warn("invalid REDIS_URL, continuing without cache", slog.String("error", err.Error()))
			return nil
		}
		opts = parsed
	} else {
		opts = &redis.Options{Addr: addr}
	}

	c := New(redis.NewClient(opts), log)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.Ping(ctx); err != nil {
		log.Warn("redis unavailable, continuing without cache", slog.String("error", err.Error()))
		_ = c.client.Close()
		return nil
	}
	log.Info("redis connected")
	return c
}

// New wraps an existing client.
func New(client *redis.Client, log *slog.Logger) *Cache {
	if client == nil {
		return nil
	}
	if log == nil {
		log = slog.Default()
	}
	client.AddHook(metricsHook{})
	return &Cache{client: client, log: log}
}

// Client returns the underlying client, or nil.
func (c *Cache) Client() *redis.Client {
	if c == nil {
		return nil
	}
	return c.client
}

func (c *Cache) Ping(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.client.Ping(ctx).Err()
}

// GetJSON decodes the value at key into dest. It reports false on a miss.
func (c *Cache) GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	if c == nil {
		return false, nil
	}
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, err
	}
	return true, nil
}

func (c *Cache) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	if c == nil {
		return nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, raw, ttl).Err()
}

// Aside serves key from the cache when present, otherwise calls load and stores
// its result. Cache failures are logged and fall through to load.
func Aside[T any](ctx context.Context, c *Cache, key string, ttl time.Duration, load func(context.Context) (T, error)) (T, error) {
	var cached T
	if c != nil {
		hit, err := c.GetJSON(ctx, key, &cached)
		switch {
		case err != nil:
			observability.CacheResults.WithLabelValues("error").Inc()
			c.log.WarnContext(ctx, "cache read failed", slog.String("key", key), slog.String("error", err.Error()))
		case hit:
			observability.CacheResults.WithLabelValues("hit").Inc()
			return cached, nil
		default:
			observability.CacheResults.WithLabelValues("miss").Inc()
		}
	}

	value, err := load(ctx)
	if err != nil {
		return value, err
	}
	if c != nil {
		if err := c.SetJSON(ctx, key, value, ttl); err != nil {
			c.log.WarnContext(ctx, "cache write failed", slog.String("key", key), slog.String("error", err.Error()))
		}
	}
	return value, nil
}

// Invalidate deletes key. Errors are logged, never returned.
func (c *Cache) Invalidate(ctx context.Context, key string) {
	if c == nil {
		return
	}
	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.log.WarnContext(ctx, "cache invalidate failed", slog.String("key", key), slog.String("error", err.Error()))
	}
}

// Generation returns the counter stored at key, or 0 when it was never set.
func (c *Cache) Generation(ctx context.Context, key string) (int64, error) {
	if c == nil {
		return 0, nil
	}
	gen, err := c.client.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// Bump increments the counter at genKey and drops the entry cached under the
// previous generation. Errors are logged, never returned.
func (c *Cache) Bump(ctx context.Context, genKey string, keyFor func(int64) string) {
	if c == nil {
		return
	}
	gen, err := c.client.Incr(ctx, genKey).Result()
	if err != nil {
		c.log.WarnContext(ctx, "cache generation bump failed", slog.String("key", genKey), slog.String("error", err.Error()))
		return
	}
	c.Invalidate(ctx, keyFor(gen-1))
}

func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}
