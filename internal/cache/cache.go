// Package cache memoizes successful resolutions. Backends share the Cache
// interface; which one is used is a deployment choice.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/vparse/vparse/internal/config"
)

// Cache stores string values under string keys with a TTL
type Cache interface {
	// Get returns the value and true on a hit. Backend errors count as misses.
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	// Purge removes every entry written by this service
	Purge(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// Key derives the cache key of a resolution request
func Key(pageURL string, candidateIndex int) string {
	sum := sha256.Sum256([]byte(pageURL + "\x00" + strconv.Itoa(candidateIndex)))
	return hex.EncodeToString(sum[:])
}

// New creates the backend selected in cfg. The "none" backend returns a nil
// Cache and no error.
func New(ctx context.Context, cfg config.CacheConfig) (Cache, error) {
	switch cfg.Backend {
	case config.CacheNone, "":
		return nil, nil
	case config.CacheMemory:
		return NewMemory(cfg.Size, cfg.TTL.Duration), nil
	case config.CacheRedis:
		c, err := NewRedis(ctx, cfg.RedisAddr)
		if err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		return c, nil
	case config.CacheSQLite:
		c, err := NewSQLite(ctx, cfg.SQLitePath, cfg.Size)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}
