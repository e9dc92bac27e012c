// Package cache keeps per-user unread notification counters in Redis.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Options configures the Redis connection
type Options struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// UnreadCounter caches unread notification counts. A nil *UnreadCounter is a
// valid no-op cache.
type UnreadCounter struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewUnreadCounter connects to Redis and verifies the connection
func NewUnreadCounter(ctx context.Context, opts Options, logger zerolog.Logger) (*UnreadCounter, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        opts.Addr,
		Password:    opts.Password,
		DB:          opts.DB,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	ttl := opts.TTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return NewUnreadCounterWithClient(rdb, ttl, logger), nil
}

// NewUnreadCounterWithClient wraps an existing client
func NewUnreadCounterWithClient(rdb *redis.Client, ttl time.Duration, logger zerolog.Logger) *UnreadCounter {
	return &UnreadCounter{rdb: rdb, ttl: ttl, logger: logger}
}

func unreadKey(communityID, userID int64) string {
	return "unread:" + strconv.FormatInt(communityID, 10) + ":" + strconv.FormatInt(userID, 10)
}

// Get returns the cached count. ok is false on a miss or when the cache is disabled.
func (c *UnreadCounter) Get(ctx context.Context, communityID, userID int64) (count int, ok bool) {
	if c == nil {
		return 0, false
	}
	n, err := c.rdb.Get(ctx, unreadKey(communityID, userID)).Int()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn().Err(err).Int64("userID", userID).Msg("Unread counter read failed")
		}
		return 0, false
	}
	return n, true
}

// Set stores a freshly computed count
func (c *UnreadCounter) Set(ctx context.Context, communityID, userID int64, count int) {
	if c == nil {
		return
	}
	if err := c.rdb.Set(ctx, unreadKey(communityID, userID), count, c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Int64("userID", userID).Msg("Unread counter write failed")
	}
}

// Invalidate drops the cached counts of the given users in one round trip
func (c *UnreadCounter) Invalidate(ctx context.Context, communityID int64, userIDs ...int64) error {
	if c == nil || len(userIDs) == 0 {
		return nil
	}
	keys := make([]string, len(userIDs))
	for i, id := range userIDs {
		keys[i] = unreadKey(communityID, id)
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("error invalidating unread counters: %w", err)
	}
	return nil
}

// Close releases the connection pool
func (c *UnreadCounter) Close() error {
	if c == nil {
		return nil
	}
	return c.rdb.Close()
}
