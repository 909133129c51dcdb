package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vparse/vparse/internal/logger"
)

// keyPrefix namespaces every key this service writes
const keyPrefix = "vparse:"

// Redis is a cache backed by a Redis server
type Redis struct {
	client *redis.Client
	log    *logger.Logger
}

// NewRedis connects to addr and verifies the connection
func NewRedis(ctx context.Context, addr string) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}

	log := logger.Default().WithComponent("cache")
	log.Info(ctx, "connected to redis", map[string]interface{}{"addr": addr})
	return &Redis{client: client, log: log}, nil
}

func (c *Redis) Close() error {
	return c.client.Close()
}

func (c *Redis) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *Redis) Get(ctx context.Context, key string) (string, bool) {
	val, err := c.client.Get(ctx, keyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		c.log.Debug(ctx, "cache miss", map[string]interface{}{"key": key})
		return "", false
	}
	if err != nil {
		c.log.Warn(ctx, "cache get failed", map[string]interface{}{"key": key, "error": err.Error()})
		return "", false
	}
	c.log.Debug(ctx, "cache hit", map[string]interface{}{"key": key})
	return val, true
}

func (c *Redis) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	if err := c.client.Set(ctx, keyPrefix+key, value, ttl).Err(); err != nil {
		c.log.Warn(ctx, "cache set failed", map[string]interface{}{"key": key, "error": err.Error()})
		return err
	}
	c.log.Debug(ctx, "cache set", map[string]interface{}{"key": key, "ttl": ttl.String()})
	return nil
}

// Purge deletes every key under the service prefix
func (c *Redis) Purge(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == 100 {
			if err := c.client.Del(ctx, batch...).Err(); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(batch) > 0 {
		return c.client.Del(ctx, batch...).Err()
	}
	return nil
}
