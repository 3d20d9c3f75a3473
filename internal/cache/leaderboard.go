// Package cache provides a Redis-backed cache for daily leaderboards.
// Cached boards expire at the reset boundary and are dropped whenever a
// riff for the day changes; Postgres stays the source of truth.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"riffd/internal/model"
)

// LeaderboardCache stores serialized standings keyed by day.
type LeaderboardCache struct {
	client *redis.Client
}

// New connects a leaderboard cache to Redis.
func New(addr, password string, db int) *LeaderboardCache {
	return &LeaderboardCache{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
	}
}

// Ping verifies the Redis connection.
func (c *LeaderboardCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close releases the Redis client.
func (c *LeaderboardCache) Close() error {
	return c.client.Close()
}

func key(day string) string {
	return "leaderboard:" + day
}

// Get returns the cached standings for a day, or nil on a miss.
func (c *LeaderboardCache) Get(ctx context.Context, day string) ([]model.LeaderboardEntry, error) {
	raw, err := c.client.Get(ctx, key(day)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("leaderboard cache get: %w", err)
	}

	var entries []model.LeaderboardEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("leaderboard cache decode: %w", err)
	}
	if entries == nil {
		entries = []model.LeaderboardEntry{}
	}
	return entries, nil
}

// Set stores standings for a day. ttl should reach to the next reset.
func (c *LeaderboardCache) Set(ctx context.Context, day string, entries []model.LeaderboardEntry, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if entries == nil {
		entries = []model.LeaderboardEntry{}
	}

	raw, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("leaderboard cache encode: %w", err)
	}
	if err := c.client.Set(ctx, key(day), raw, ttl).Err(); err != nil {
		return fmt.Errorf("leaderboard cache set: %w", err)
	}
	return nil
}

// Invalidate drops the cached standings for a day.
func (c *LeaderboardCache) Invalidate(ctx context.Context, day string) error {
	if err := c.client.Del(ctx, key(day)).Err(); err != nil {
		return fmt.Errorf("leaderboard cache invalidate: %w", err)
	}
	return nil
}
