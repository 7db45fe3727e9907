package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Circuit breaker states
const (
	StateClosed   = "closed"
	StateOpen     = "open"
	StateHalfOpen = "half-open"
)

var ErrCircuitOpen = errors.New("circuit open")

// CircuitBreaker tracks consecutive delivery failures per subscriber in a Redis hash.
//
// - Closed: deliveries proceed, failures are counted.
// - Open: deliveries are rejected until the cooldown has elapsed.
// - Half-Open: one probe delivery decides between closed and open.
type CircuitBreaker struct {
	redisClient      *redis.Client
	logger           *slog.Logger
	failureThreshold int
	cooldownPeriod   time.Duration
	now              func() time.Time
}

// CircuitBreakerState is the externally visible state of one subscriber's circuit.
type CircuitBreakerState struct {
	State        string `json:"state"`
	Failures     int    `json:"failures"`
	LastFailedAt string `json:"last_failed_at,omitempty"`
}

func NewCircuitBreaker(redisClient *redis.Client, threshold int, cooldown time.Duration, logger *slog.Logger) *CircuitBreaker {
	if threshold <= 0 {
		threshold = 5
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &CircuitBreaker{
		redisClient:      redisClient,
		logger:           logger,
		failureThreshold: threshold,
		cooldownPeriod:   cooldown,
		now:              time.Now,
	}
}

func cbKey(subscriberID int64) string {
	return fmt.Sprintf("cb:%d", subscriberID)
}

// cooledDown reports whether the cooldown has passed since lastFailedAt (unix millis).
func (cb *CircuitBreaker) cooledDown(lastFailedAt int64) bool {
	return cb.now().Sub(time.UnixMilli(lastFailedAt)) >= cb.cooldownPeriod
}

// Allow reports whether a delivery to subscriberID may proceed. It returns
// ErrCircuitOpen while the circuit is open. Redis errors fail open.
func (cb *CircuitBreaker) Allow(ctx context.Context, subscriberID int64) (string, error) {
	key := cbKey(subscriberID)

	data, err := cb.redisClient.HGetAll(ctx, key).Result()
	if err != nil {
		cb.logger.Error("circuit breaker lookup failed", "error", err, "subscriber_id", subscriberID)
		return StateClosed, nil
	}

	switch data["state"] {
	case StateOpen:
		lastFailedAt, _ := strconv.ParseInt(data["last_failed_at"], 10, 64)
		if !cb.cooledDown(lastFailedAt) {
			return StateOpen, ErrCircuitOpen
		}
		if err := cb.redisClient.HSet(ctx, key, "state", StateHalfOpen).Err(); err != nil {
			cb.logger.Error("failed to half-open circuit", "error", err, "subscriber_id", subscriberID)
		}
		cb.logger.Info("circuit breaker half-open", "subscriber_id", subscriberID)
		return StateHalfOpen, nil
	case StateHalfOpen:
		return StateHalfOpen, nil
	default:
		return StateClosed, nil
	}
}

// RecordSuccess closes the circuit and clears the failure count.
func (cb *CircuitBreaker) RecordSuccess(ctx context.Context, subscriberID int64) {
	key := cbKey(subscriberID)

	prev, _ := cb.redisClient.HGet(ctx, key, "state").Result()
	if err := cb.redisClient.HSet(ctx, key, "state", StateClosed, "failures", 0).Err(); err != nil {
		cb.logger.Error("failed to record circuit breaker success", "error", err, "subscriber_id", subscriberID)
		return
	}

	if prev == StateHalfOpen {
		cb.logger.Info("circuit breaker closed (recovered)", "subscriber_id", subscriberID)
	}
}

// RecordFailure counts a failed delivery and opens the circuit once the
// threshold is reached, or immediately when the half-open probe fails.
func (cb *CircuitBreaker) RecordFailure(ctx context.Context, subscriberID int64) {
	key := cbKey(subscriberID)

	failures, err := cb.redisClient.HIncrBy(ctx, key, "failures", 1).Result()
	if err != nil {
		cb.logger.Error("failed to record circuit breaker failure", "error", err, "subscriber_id", subscriberID)
		return
	}
	cb.redisClient.HSet(ctx, key, "last_failed_at", cb.now().UnixMilli())

	state, _ := cb.redisClient.HGet(ctx, key, "state").Result()
	switch {
	case state == StateHalfOpen:
		cb.redisClient.HSet(ctx, key, "state", StateOpen)
		cb.logger.Warn("circuit breaker re-opened (half-open probe failed)", "subscriber_id", subscriberID)
	case failures >= int64(cb.failureThreshold) && state != StateOpen:
		cb.redisClient.HSet(ctx, key, "state", StateOpen)
		cb.logger.Warn("circuit breaker opened",
			"subscriber_id", subscriberID,
			"failures", failures,
			"threshold", cb.failureThreshold,
		)
	case state == "":
		cb.redisClient.HSet(ctx, key, "state", StateClosed)
	}
}

// State returns the circuit state for a subscriber without changing it.
func (cb *CircuitBreaker) State(ctx context.Context, subscriberID int64) CircuitBreakerState {
	data, err := cb.redisClient.HGetAll(ctx, cbKey(subscriberID)).Result()
	if err != nil || len(data) == 0 {
		return CircuitBreakerState{State: StateClosed}
	}

	failures, _ := strconv.Atoi(data["failures"])
	lastFailedAt, _ := strconv.ParseInt(data["last_failed_at"], 10, 64)

	state := data["state"]
	if state == "" {
		state = StateClosed
	}
	if state == StateOpen && cb.cooledDown(lastFailedAt) {
		state = StateHalfOpen
	}

	result := CircuitBreakerState{State: state, Failures: failures}
	if lastFailedAt > 0 {
		result.LastFailedAt = time.UnixMilli(lastFailedAt).UTC().Format(time.RFC3339)
	}
	return result
}
