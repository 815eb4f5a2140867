package kvdb

import (
	"context"
	"errors"
	"time"
)

// Client is the key-value surface the service needs: a counter and
// plain string reads/writes.
type Client interface {
	Init() error
	Close() error
	GetConf() *Conf
	Ping(ctx context.Context) error

	//---- Key Ops ----

	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, keys ...string) (int64, error)

	//---- Single-value Ops ----

	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Get(ctx context.Context, key string) (string, bool, error) // val, found, err

	// Incr atomically adds 1 to the integer at key and returns the new value.
	// A missing key counts as 0.
	Incr(ctx context.Context, key string) (int64, error)
}

var ErrNotSupported = errors.New("kvdb: operation not supported")

type Factory func(conf *Conf) (Client, error)

var factories = map[string]Factory{}

func RegisterFactory(dbType string, f Factory) {
	factories[dbType] = f
}

func New(dbType string, conf *Conf) (Client, error) {
	f, ok := factories[dbType]
	if !ok {
		return nil, errors.New("kvdb: unsupported type " + dbType)
	}
	return f(conf)
}
