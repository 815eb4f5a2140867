package redis

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/zeptools/gw-invoice/db/kvdb"

	lowimpl "github.com/redis/go-redis/v9"
)

const DBType = "redis"

func Register() {
	kvdb.RegisterFactory(DBType, func(conf *kvdb.Conf) (kvdb.Client, error) {
		return &Client{Conf: conf}, nil
	})
}

type Client struct {
	Conf *kvdb.Conf

	// implementation details, not exported
	internal *lowimpl.Client
}

// Ensure redis.Client implements kvdb.Client interface
var _ kvdb.Client = (*Client)(nil)

func (c *Client) Init() error {
	addr := c.Conf.Address()
	c.internal = lowimpl.NewClient(&lowimpl.Options{
		Addr:     addr,
		Password: c.Conf.PW,
		DB:       c.Conf.DB,
	})
	log.Printf("[INFO] redis client initialized (%s db=%d)", addr, c.Conf.DB)
	return nil
}

func (c *Client) Close() error {
	if c.internal == nil {
		return nil
	}
	return c.internal.Close()
}

func (c *Client) GetConf() *kvdb.Conf {
	return c.Conf
}

func (c *Client) Ping(ctx context.Context) error {
	return c.internal.Ping(ctx).Err()
}

//--- Key Ops ----

func (c *Client) Exists(ctx context.Context, key string) (bool, error) {
	n, err := c.internal.Exists(ctx, key).Result()
	return n > 0, err
}

func (c *Client) Delete(ctx context.Context, keys ...string) (int64, error) {
	return c.internal.Del(ctx, keys...).Result()
}

//---- Single-value Ops ----

func (c *Client) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := c.internal.Get(ctx, key).Result()
	if errors.Is(err, lowimpl.Nil) {
		return "", false, nil // redis.Nil -> found: false, err: nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (c *Client) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	return c.internal.Set(ctx, key, value, expiration).Err()
}

func (c *Client) Incr(ctx context.Context, key string) (int64, error) {
	return c.internal.Incr(ctx, key).Result()
}
