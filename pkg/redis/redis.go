package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultDialTimeout = 5 * time.Second
	defaultPoolSize    = 10
)

type Option func(*redis.Options)

func WithPassword(password string) Option {
	return func(o *redis.Options) {
		o.Password = password
	}
}

func WithDB(db int) Option {
	return func(o *redis.Options) {
		o.DB = db
	}
}

func WithPoolSize(n int) Option {
	return func(o *redis.Options) {
		o.PoolSize = n
	}
}

// New connects to the Redis server at addr and checks it responds to PING.
func New(ctx context.Context, addr string, opts ...Option) (*redis.Client, error) {
	const op = "redis.New"

	o := &redis.Options{
		Addr:        addr,
		DialTimeout: defaultDialTimeout,
		PoolSize:    defaultPoolSize,
	}

	for _, opt := range opts {
		opt(o)
	}

	client := redis.NewClient(o)

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("%s: failed to connect to redis: %w", op, err)
	}

	return client, nil
}
