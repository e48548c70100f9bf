package redis

import (
	"context"
	"time"

	"bookshop-access/internal/config"

	"github.com/go-redis/redis/v8"
)

// RedisClient is the slice of the Redis command surface this service uses:
// Get/Set/Del back the verdict and listing caches, Incr/Expire back the
// fixed-window rate limiter. Decorators and tests fake this interface
// rather than a real connection.
type RedisClient interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Del(ctx context.Context, keys ...string) error
	Incr(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, expiration time.Duration) error
	Close() error
}

var _ RedisClient = (*client)(nil)

type client struct {
	cli *redis.Client
}

// NewClient connects and pings once so an unreachable Redis fails startup.
func NewClient(ctx context.Context, cfg *config.RedisConfig) (*client, error) {
	c := redis.NewClient(&redis.Options{
		Addr:     cfg.URL,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := c.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &client{cli: c}, nil
}

func (c *client) Get(ctx context.Context, key string) (string, error) {
	return c.cli.Get(ctx, key).Result()
}

func (c *client) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return c.cli.Set(ctx, key, value, expiration).Err()
}

func (c *client) Del(ctx context.Context, keys ...string) error {
	return c.cli.Del(ctx, keys...).Err()
}

func (c *client) Incr(ctx context.Context, key string) (int64, error) {
	return c.cli.Incr(ctx, key).Result()
}

func (c *client) Expire(ctx context.Context, key string, expiration time.Duration) error {
	return c.cli.Expire(ctx, key, expiration).Err()
}

func (c *client) Close() error { return c.cli.Close() }
