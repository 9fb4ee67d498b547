package redisclient

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client is the single shared redis connection. Its only consumer is
// the login rate limiter, so timeouts are tight: a slow redis must not
// stall logins.
type Client struct {
	rdb *redis.Client
}

type Config struct {
	Addr     string
	Password string
	DB       int
}

func New(cfg Config) *Client {
	return &Client{
		rdb: redis.NewClient(&redis.Options{
			Addr:         cfg.Addr,
			Password:     cfg.Password,
			DB:           cfg.DB,
			DialTimeout:  2 * time.Second,
			ReadTimeout:  2 * time.Second,
			WriteTimeout: 2 * time.Second,
		}),
	}
}

func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

// Raw exposes the underlying client for the limiter.
func (c *Client) Raw() *redis.Client {
	return c.rdb
}
