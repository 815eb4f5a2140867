package counter

import (
	"context"
	"fmt"
	"strings"
)

// Counter issues invoice sequence numbers: 1, 2, 3, ... with no gaps and no duplicates
// as long as the backing store stays intact.
type Counter interface {
	Next(ctx context.Context) (int64, error)
	Name() string // driver name for logs and health
}

// Peeker is implemented by counters that can report the last issued value
// without consuming one. 0 = nothing issued yet.
type Peeker interface {
	Current(ctx context.Context) (int64, error)
}

// StorageError means the backing store could not be read or written.
// The request that asked for a number fails.
type StorageError struct {
	Driver string
	Op     string
	Err    error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("counter %s %s: %v", e.Driver, e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

const (
	TypeFile   = "file"
	TypeMemory = "memory"
	TypeKV     = "kv"
	TypeSQL    = "sql"
)

// Conf is the "counter" section of .core.json
type Conf struct {
	Type  string `json:"type"`   // "file" (default) | "memory" | "kv" | "sql"
	Path  string `json:"path"`   // file: holds the last issued number (5 -> next is 6). relative to appRoot
	Key   string `json:"key"`    // kv: key, sql: row name. default "invoice"
	SQLDB string `json:"sql_db"` // sql: name in .sql-databases.json
	KVDB  string `json:"kv_db"`  // kv: name in .kv-databases.json
}

const DefaultKey = "invoice"

func (c *Conf) KeyOrDefault() string {
	if c.Key == "" {
		return DefaultKey
	}
	return c.Key
}

func (c *Conf) TypeOrDefault() string {
	if c.Type == "" {
		return TypeFile
	}
	return strings.ToLower(c.Type)
}
