package ratelimit

import (
	"context"
	"time"

	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
)

// Ensure RedisLimiterStore implements RateLimiterStore interface.
var _ middleware.RateLimiterStore = (*RedisLimiterStore)(nil)

const (
	keyPrefix    = "autograder-ratelimit-"
	window       = time.Minute
	redisTimeout = 2 * time.Second
)

// Fixed window limiter shared by every server instance pointed at the same redis
type RedisLimiterStore struct {
	db         *redis.Client
	limiterKey string
	perMinute  int64
	failOpen   bool
}

type RedisLimiterConfig struct {
	RedisClient *redis.Client
	LimiterKey  string
	PerMinute   int64
	// Let requests through while redis is unreachable
	FailOpen bool
}

func NewRedisLimitStore(config RedisLimiterConfig) *RedisLimiterStore {
	return &RedisLimiterStore{
		db:         config.RedisClient,
		limiterKey: config.LimiterKey,
		perMinute:  config.PerMinute,
		failOpen:   config.FailOpen,
	}
}

func (store *RedisLimiterStore) Allow(identifier string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()

	key := keyPrefix + store.limiterKey + "-" + identifier

	// the counter and its expiry are set together so a crash can't leave a key without a ttl
	var count *redis.IntCmd
	_, err := store.db.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		count = pipe.Incr(ctx, key)
		pipe.ExpireNX(ctx, key, window)
		return nil
	})
	if err != nil {
		return store.failOpen, err
	}

	return count.Val() <= store.perMinute, nil
}
