// Package redisclient opens the Redis connection behind the shared session
// store.
package redisclient

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultTimeout = 2 * time.Second

type Config struct {
	Addr     string
	Password string
	DB       int
	// Timeout bounds dialing, reads and writes. Zero means two seconds.
	Timeout time.Duration
}

func (cfg Config) options() *redis.Options {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  timeout,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	}
}

type Client struct {
	rdb *redis.Client
}

func New(cfg Config) *Client {
	return &Client{rdb: redis.NewClient(cfg.options())}
}

func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

// Sessions is the command client the session store runs on.
func (c *Client) Sessions() *redis.Client {
	return c.rdb
}
