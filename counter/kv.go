package counter

import (
	"context"
	"strconv"

	"github.com/zeptools/gw-invoice/db/kvdb"
)

// KVCounter relies on the store's atomic increment (redis INCR),
// so several service processes can share one sequence.
type KVCounter struct {
	client kvdb.Client
	key    string
}

var (
	_ Counter = (*KVCounter)(nil)
	_ Peeker  = (*KVCounter)(nil)
)

func NewKVCounter(client kvdb.Client, key string) *KVCounter {
	return &KVCounter{client: client, key: key}
}

func (c *KVCounter) Name() string {
	return TypeKV + ":" + c.key
}

func (c *KVCounter) Next(ctx context.Context) (int64, error) {
	v, err := c.client.Incr(ctx, c.key)
	if err != nil {
		return 0, &StorageError{Driver: TypeKV, Op: "incr", Err: err}
	}
	return v, nil
}

func (c *KVCounter) Current(ctx context.Context) (int64, error) {
	s, found, err := c.client.Get(ctx, c.key)
	if err != nil {
		return 0, &StorageError{Driver: TypeKV, Op: "get", Err: err}
	}
	if !found {
		return 0, nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, &StorageError{Driver: TypeKV, Op: "parse", Err: err}
	}
	return v, nil
}
