package store

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/manav03panchal/nodiverse/internal/app"
)

// Cache is a read-through redis cache in front of Postgres for the user and
// event lookups done on every websocket connect. Users and events are never
// updated in place, so entries only expire by TTL. Misses are not cached.
type Cache struct {
	*Postgres
	rdb *redis.Client
	ttl time.Duration
	log *slog.Logger
}

// NewCache connects to redis and verifies connectivity
func NewCache(ctx context.Context, pg *Postgres, cfg app.Config, log *slog.Logger) (*Cache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
		DB:   cfg.RedisDB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return &Cache{Postgres: pg, rdb: rdb, ttl: cfg.CacheTTL, log: log}, nil
}

// GetUser serves from redis, falling back to Postgres on a miss
func (c *Cache) GetUser(ctx context.Context, id string) (User, error) {
	return readThrough(ctx, c, userKey(id), func() (User, error) {
		return c.Postgres.GetUser(ctx, id)
	})
}

// GetEvent serves from redis, falling back to Postgres on a miss
func (c *Cache) GetEvent(ctx context.Context, id string) (Event, error) {
	return readThrough(ctx, c, eventKey(id), func() (Event, error) {
		return c.Postgres.GetEvent(ctx, id)
	})
}

// Close shuts down the redis connection. The wrapped Postgres is closed by its owner.
func (c *Cache) Close() { _ = c.rdb.Close() }

func readThrough[T any](ctx context.Context, c *Cache, key string, load func() (T, error)) (T, error) {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err == nil {
		var v T
		if err := json.Unmarshal(raw, &v); err == nil {
			return v, nil
		}
		c.log.Warn("cache.decode", "key", key)
	} else if !errors.Is(err, redis.Nil) {
		c.log.Warn("cache.get", "key", key, "err", err)
	}

	v, err := load()
	if err != nil {
		return v, err
	}
	if b, err := json.Marshal(v); err == nil {
		if err := c.rdb.Set(ctx, key, b, c.ttl).Err(); err != nil {
			c.log.Warn("cache.set", "key", key, "err", err)
		}
	}
	return v, nil
}

// key namespacing for cached records
func userKey(id string) string  { return "nodiverse:user:" + id }
func eventKey(id string) string { return "nodiverse:event:" + id }
