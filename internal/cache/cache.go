// Package cache stores rendered snapshots in redis.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/root4loot/fotogopher/internal/logging"
)

const (
	keyPrefix  = "snapshot:"
	opTimeout  = time.Second
	defaultTTL = time.Minute
)

// Cache is a redis-backed byte cache. A nil *Cache is a valid cache that
// never hits.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

// New connects to redis at addr.
func New(addr string, db int, ttl time.Duration) *Cache {
	return NewWithClient(redis.NewClient(&redis.Options{Addr: addr, DB: db}), ttl)
}

// NewWithClient wraps an existing client. A ttl <= 0 defaults to one minute.
func NewWithClient(rdb *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Cache{rdb: rdb, ttl: ttl}
}

// Key derives the cache key of a snapshot request.
func Key(url string, width, height int) string {
	h := sha256.New()
	h.Write([]byte(url))
	h.Write([]byte{0})
	h.Write([]byte(strconv.Itoa(width)))
	h.Write([]byte{'x'})
	h.Write([]byte(strconv.Itoa(height)))
	return keyPrefix + hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached bytes for key. Redis errors are logged and count as
// a miss.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool) {
	if c == nil {
		return nil, false
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	data, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		logging.Warn("Redis read failed", "error", err)
		return nil, false
	}
	logging.Debug("Snapshot cache hit", "key", key)
	return data, true
}

// Set stores data under key for the cache TTL. Failures are logged only.
func (c *Cache) Set(ctx context.Context, key string, data []byte) {
	if c == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
		logging.Warn("Redis write failed", "error", err)
	}
}

// Close closes the redis client.
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.rdb.Close()
}
