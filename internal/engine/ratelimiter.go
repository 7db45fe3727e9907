package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrRateLimited = errors.New("rate limited")

// RateLimiter caps notifications per subscriber per second with a sliding
// window kept in a Redis sorted set.
type RateLimiter struct {
	redisClient *redis.Client
	logger      *slog.Logger
	script      *redis.Script
	limit       int
	seq         atomic.Uint64
}

// Trims the window, then admits the request (1) if the count is under the limit.
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local member = ARGV[4]

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)

if redis.call('ZCARD', key) < limit then
    redis.call('ZADD', key, now, member)
    redis.call('EXPIRE', key, window / 1000 + 1)
    return 1
end
return 0
`)

// NewRateLimiter creates a limiter admitting up to limit notifications per
// subscriber per second. A limit of zero or less disables limiting.
func NewRateLimiter(redisClient *redis.Client, limit int, logger *slog.Logger) *RateLimiter {
	return &RateLimiter{
		redisClient: redisClient,
		logger:      logger,
		script:      slidingWindowScript,
		limit:       limit,
	}
}

func rlKey(subscriberID int64) string {
	return fmt.Sprintf("rl:%d", subscriberID)
}

// Allow returns ErrRateLimited when subscriberID has used up its window.
// Redis failures fail open.
func (rl *RateLimiter) Allow(ctx context.Context, subscriberID int64) error {
	if rl.limit <= 0 {
		return nil
	}

	now := time.Now()
	member := fmt.Sprintf("%d:%d", now.UnixNano(), rl.seq.Add(1))

	result, err := rl.script.Run(ctx, rl.redisClient, []string{rlKey(subscriberID)},
		now.UnixMilli(), int64(1000), rl.limit, member,
	).Int64()
	if err != nil {
		rl.logger.Error("rate limiter script failed", "error", err, "subscriber_id", subscriberID)
		return nil
	}

	if result == 0 {
		rl.logger.Debug("rate limited", "subscriber_id", subscriberID, "limit", rl.limit)
		return ErrRateLimited
	}
	return nil
}
