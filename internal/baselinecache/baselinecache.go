// Package baselinecache keeps computed historical baselines in Redis so
// repeated dashboard loads do not re-aggregate an owner's history.
package baselinecache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"insights/internal/history"
	"insights/internal/timeframe"
)

const (
	keyPrefix     = "baseline:"
	scanBatchSize = 100
	defaultTTL    = time.Minute
)

// Config selects the backend.
type Config struct {
	Enabled  bool
	RedisURL string
	TTL      time.Duration
}

type Cache interface {
	Get(ctx context.Context, ownerID string, period *timeframe.Period) (*history.Metrics, bool, error)
	Set(ctx context.Context, ownerID string, period *timeframe.Period, baseline *history.Metrics) error
	InvalidateOwner(ctx context.Context, ownerID string) error
	Ping(ctx context.Context) error
	Close() error
}

type redisCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopCache struct{}

// New returns a Redis-backed cache when enabled and reachable, otherwise
// a cache that never hits.
func New(cfg Config) (Cache, error) {
	if !cfg.Enabled {
		return NewNoop(), nil
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("redis url is required when the cache is enabled")
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return NewRedis(client, cfg.TTL), nil
}

// NewRedis wraps an existing client.
func NewRedis(client *redis.Client, ttl time.Duration) Cache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &redisCache{client: client, ttl: ttl}
}

func NewNoop() Cache {
	return &noopCache{}
}

func (c *redisCache) Get(ctx context.Context, ownerID string, period *timeframe.Period) (*history.Metrics, bool, error) {
	payload, err := c.client.Get(ctx, Key(ownerID, period)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var baseline history.Metrics
	if err := json.Unmarshal(payload, &baseline); err != nil {
		return nil, false, fmt.Errorf("decode baseline cache: %w", err)
	}
	return &baseline, true, nil
}

func (c *redisCache) Set(ctx context.Context, ownerID string, period *timeframe.Period, baseline *history.Metrics) error {
	if baseline == nil {
		return nil
	}
	payload, err := json.Marshal(baseline)
	if err != nil {
		return fmt.Errorf("encode baseline cache: %w", err)
	}
	if err := c.client.Set(ctx, Key(ownerID, period), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *redisCache) InvalidateOwner(ctx context.Context, ownerID string) error {
	var cursor uint64
	pattern := ownerPrefix(ownerID) + "*"
	for {
		keys, next, err := c.client.Scan(ctx, cursor, pattern, scanBatchSize).Result()
		if err != nil {
			return fmt.Errorf("redis scan failed: %w", err)
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("redis delete failed: %w", err)
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

func (c *redisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *redisCache) Close() error {
	return c.client.Close()
}

func (n *noopCache) Get(ctx context.Context, ownerID string, period *timeframe.Period) (*history.Metrics, bool, error) {
	return nil, false, nil
}

func (n *noopCache) Set(ctx context.Context, ownerID string, period *timeframe.Period, baseline *history.Metrics) error {
	return nil
}

func (n *noopCache) InvalidateOwner(ctx context.Context, ownerID string) error {
	return nil
}

func (n *noopCache) Ping(ctx context.Context) error {
	return nil
}

func (n *noopCache) Close() error {
	return nil
}

// Key identifies one owner's baseline for one period. Owner ids are hashed
// to keep glob characters out of SCAN patterns.
func Key(ownerID string, period *timeframe.Period) string {
	start, end := "open", "open"
	if period != nil {
		if period.Start != nil {
			start = timeframe.FormatDate(*period.Start)
		}
		if period.End != nil {
			end = timeframe.FormatDate(*period.End)
		}
	}
	return ownerPrefix(ownerID) + start + "|" + end
}

func ownerPrefix(ownerID string) string {
	sum := sha1.Sum([]byte(ownerID))
	return keyPrefix + hex.EncodeToString(sum[:]) + ":"
}
