package redis

import (
	"context"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Client wraps go-redis for the few calls this service makes: rate-limit
// counters and readiness pings.
type Client struct {
	rdb *goredis.Client
}

// New never dials; the first command (usually Ping at boot) connects.
// Timeouts are short because every caller fails open.
func New(addr, password string, db int) *Client {
	return &Client{
		rdb: goredis.NewClient(&goredis.Options{
			Addr:         addr,
			Password:     password,
			DB:           db,
			DialTimeout:  2 * time.Second,
			ReadTimeout:  500 * time.Millisecond,
			WriteTimeout: 500 * time.Millisecond,
			PoolSize:     10,
			MaxRetries:   1,
		}),
	}
}

// Ping bounds itself to 2s so readiness probes never hang on a dead redis.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return c.rdb.Ping(ctx).Err()
}

func (c *Client) Close() error {
	return c.rdb.Close()
}
