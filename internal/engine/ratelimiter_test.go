package engine

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func setupTestRL(t *testing.T, limit int) *RateLimiter {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewRateLimiter(client, limit, logger)
}

func TestRateLimiter_AllowsWithinLimit(t *testing.T) {
	rl := setupTestRL(t, 5)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := rl.Allow(ctx, 1); err != nil {
			t.Errorf("request %d should be allowed (limit=5), got %v", i+1, err)
		}
	}
}

func TestRateLimiter_BlocksOverLimit(t *testing.T) {
	rl := setupTestRL(t, 3)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		rl.Allow(ctx, 1)
	}

	if err := rl.Allow(ctx, 1); !errors.Is(err, ErrRateLimited) {
		t.Errorf("expected ErrRateLimited over limit, got %v", err)
	}
}

func TestRateLimiter_ZeroLimit_AllowsAll(t *testing.T) {
	rl := setupTestRL(t, 0)
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		if err := rl.Allow(ctx, 1); err != nil {
			t.Errorf("request %d should be allowed with limit=0, got %v", i+1, err)
		}
	}
}

func TestRateLimiter_IsolationBetweenSubscribers(t *testing.T) {
	rl := setupTestRL(t, 2)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		rl.Allow(ctx, 1)
	}

	if err := rl.Allow(ctx, 1); err == nil {
		t.Error("subscriber 1 should be limited")
	}
	if err := rl.Allow(ctx, 2); err != nil {
		t.Errorf("subscriber 2 should be allowed, got %v", err)
	}
}
