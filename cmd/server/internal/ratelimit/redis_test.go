package ratelimit_test

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/classgrade/autograder/cmd/server/internal/ratelimit"
)

func TestRedisLimiterStore(t *testing.T) {
	if testing.Short() {
		t.Skip("requires docker")
	}
	ctx := context.Background()

	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	require.NoError(t, err, "failed to start redis container")
	defer func() {
		require.NoError(t, testcontainers.TerminateContainer(redisContainer))
	}()

	endpoint, err := redisContainer.Endpoint(ctx, "")
	require.NoError(t, err, "failed to get redis endpoint")

	client := redis.NewClient(&redis.Options{Addr: endpoint})
	defer client.Close()

	t.Run("LimitsPerIdentifier", func(t *testing.T) {
		store := ratelimit.NewRedisLimitStore(ratelimit.RedisLimiterConfig{
			RedisClient: client,
			LimiterKey:  "grade",
			PerMinute:   2,
		})

		for i := range 2 {
			allowed, err := store.Allow("key-a")
			require.NoError(t, err)
			assert.True(t, allowed, "request %d should be allowed", i)
		}

		allowed, err := store.Allow("key-a")
		require.NoError(t, err)
		assert.False(t, allowed, "third request should be denied")

		allowed, err = store.Allow("key-b")
		require.NoError(t, err)
		assert.True(t, allowed, "other identifiers have their own window")
	})

	t.Run("WindowExpires", func(t *testing.T) {
		store := ratelimit.NewRedisLimitStore(ratelimit.RedisLimiterConfig{
			RedisClient: client,
			LimiterKey:  "ttl",
			PerMinute:   1,
		})

		_, err := store.Allow("key")
		require.NoError(t, err)

		ttl, err := client.TTL(ctx, "autograder-ratelimit-ttl-key").Result()
		require.NoError(t, err)
		assert.Positive(t, ttl, "window key must expire")
	})
}

func TestFailOpen(t *testing.T) {
	// nothing listens here
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	defer client.Close()

	t.Run("Open", func(t *testing.T) {
		store := ratelimit.NewRedisLimitStore(ratelimit.RedisLimiterConfig{
			RedisClient: client,
			LimiterKey:  "grade",
			PerMinute:   1,
			FailOpen:    true,
		})

		allowed, err := store.Allow("key")
		require.Error(t, err, "redis error should be reported")
		assert.True(t, allowed, "fail open lets requests through")
	})

	t.Run("Closed", func(t *testing.T) {
		store := ratelimit.NewRedisLimitStore(ratelimit.RedisLimiterConfig{
			RedisClient: client,
			LimiterKey:  "grade",
			PerMinute:   1,
		})

		allowed, err := store.Allow("key")
		require.Error(t, err, "redis error should be reported")
		assert.False(t, allowed, "fail closed denies requests")
	})
}
