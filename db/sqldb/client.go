package sqldb

import (
	"context"
	"errors"
)

// ErrNoRows is returned by Row.Scan when the query selected nothing, whatever the driver
var ErrNoRows = errors.New("sqldb: no rows in result set")

type Client interface {
	Init() error
	Close() error
	GetConf() *Conf
	Dialect() string // "pgsql", "mysql", "sqlite"
	Ping(ctx context.Context) error
	BeginTx(ctx context.Context) (Tx, error)
	RawStore() *RawStore
	Handle // Methods required for Handle are also required, so, promote it
}

// Handle is what both a Client and a Tx can run statements on
type Handle interface {
	// Exec executes SQL statement like INSERT, UPDATE, DELETE.
	Exec(ctx context.Context, query string, args ...any) (Result, error)
	QueryRow(ctx context.Context, query string, args ...any) Row // Lazy. only fails at Scan()
}

// Tx Transaction
type Tx interface {
	Handle
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

type Row interface {
	Scan(dest ...any) error
}

type Result interface {
	RowsAffected() (int64, error)
}
