package counter

import (
	"context"
	"sync"
)

// MemoryCounter is not durable. For tests and throwaway runs.
type MemoryCounter struct {
	mu   sync.Mutex
	last int64
}

var (
	_ Counter = (*MemoryCounter)(nil)
	_ Peeker  = (*MemoryCounter)(nil)
)

// NewMemoryCounter starts after last. 0 = the first Next returns 1.
func NewMemoryCounter(last int64) *MemoryCounter {
	return &MemoryCounter{last: last}
}

func (c *MemoryCounter) Name() string {
	return TypeMemory
}

func (c *MemoryCounter) Next(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.last++
	return c.last, nil
}

func (c *MemoryCounter) Current(_ context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last, nil
}
