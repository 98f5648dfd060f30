// Package cache keeps short-lived departure availability snapshots in Redis.
// A nil client turns every operation into a miss or a no-op.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/helsingbuss/service-booking/internal/config"
)

const keyPrefix = "helsingbuss:availability:"

// Snapshot is the cached availability of one departure.
type Snapshot struct {
	DepartureID   uuid.UUID `json:"departure_id"`
	SeatsTotal    int       `json:"seats_total"`
	SeatsReserved int       `json:"seats_reserved"`
	SeatsLeft     int       `json:"seats_left"`
	Status        string    `json:"status"`
	SoldOut       bool      `json:"sold_out"`
}

// AvailabilityCache reads and writes snapshots with a fixed TTL.
type AvailabilityCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewAvailabilityCache wraps client. client may be nil.
func NewAvailabilityCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *AvailabilityCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &AvailabilityCache{client: client, ttl: ttl, logger: logger}
}

// NewRedisClient connects to cfg.Addr. It returns nil when no address is
// configured or the server does not answer, and callers run without a cache.
func NewRedisClient(cfg config.RedisConfig, logger *zap.Logger) *redis.Client {
	if cfg.Addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unavailable, availability cache disabled", zap.String("addr", cfg.Addr), zap.Error(err))
		_ = client.Close()
		return nil
	}
	return client
}

// Enabled reports whether a Redis client is attached.
func (c *AvailabilityCache) Enabled() bool {
	return c != nil && c.client != nil
}

// Get returns the cached snapshot for id.
func (c *AvailabilityCache) Get(ctx context.Context, id uuid.UUID) (Snapshot, bool) {
	if !c.Enabled() {
		return Snapshot{}, false
	}
	raw, err := c.client.Get(ctx, key(id)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("availability cache read failed", zap.String("departure_id", id.String()), zap.Error(err))
		}
		return Snapshot{}, false
	}
	var s Snapshot
	if err := json.Unmarshal(raw, &s); err != nil {
		c.logger.Warn("discarding corrupt availability entry", zap.String("departure_id", id.String()), zap.Error(err))
		return Snapshot{}, false
	}
	return s, true
}

// Set stores s until the TTL passes.
func (c *AvailabilityCache) Set(ctx context.Context, s Snapshot) {
	if !c.Enabled() {
		return
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key(s.DepartureID), raw, c.ttl).Err(); err != nil {
		c.logger.Warn("availability cache write failed", zap.String("departure_id", s.DepartureID.String()), zap.Error(err))
	}
}

// Invalidate drops the snapshot for id after a seat or status change.
func (c *AvailabilityCache) Invalidate(ctx context.Context, id uuid.UUID) {
	if !c.Enabled() {
		return
	}
	if err := c.client.Del(ctx, key(id)).Err(); err != nil {
		c.logger.Warn("availability cache invalidate failed", zap.String("departure_id", id.String()), zap.Error(err))
	}
}

func key(id uuid.UUID) string {
	return keyPrefix + id.String()
}
