package leaderboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/forestclash/go-server/internal/models"
)

// SnapshotKey holds the JSON encoded top entries.
const SnapshotKey = "forestclash:leaderboard:top"

// RedisCache keeps the snapshot in Redis with a TTL.
type RedisCache struct {
	rdb *redis.Client
	key string
	ttl time.Duration
}

// RedisOptions configures DialRedis.
type RedisOptions struct {
	Address  string
	Password string
	DB       int
	TTL      time.Duration
}

// DialRedis connects and pings the server.
func DialRedis(ctx context.Context, o RedisOptions) (*RedisCache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     o.Address,
		Password: o.Password,
		DB:       o.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", o.Address, err)
	}
	return NewRedisCache(rdb, o.TTL), nil
}

// NewRedisCache wraps an existing client.
func NewRedisCache(rdb *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &RedisCache{rdb: rdb, key: SnapshotKey, ttl: ttl}
}

func (c *RedisCache) Load(ctx context.Context) ([]models.LeaderboardEntry, bool, error) {
	b, err := c.rdb.Get(ctx, c.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var entries []models.LeaderboardEntry
	if err := json.Unmarshal(b, &entries); err != nil {
		return nil, false, fmt.Errorf("decode snapshot: %w", err)
	}
	return entries, true, nil
}

func (c *RedisCache) Store(ctx context.Context, entries []models.LeaderboardEntry) error {
	if entries == nil {
		entries = []models.LeaderboardEntry{}
	}
	b, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, c.key, b, c.ttl).Err()
}

func (c *RedisCache) Invalidate(ctx context.Context) error {
	return c.rdb.Del(ctx, c.key).Err()
}

func (c *RedisCache) Ping(ctx context.Context) error { return c.rdb.Ping(ctx).Err() }

func (c *RedisCache) Close() error { return c.rdb.Close() }
