package counter

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"sync"

	"github.com/zeptools/gw-invoice/db/sqldb"
)

//go:embed sql/*
var sqlFS embed.FS

const sqlGroup = "counter"

var (
	stmtCreate  = sqldb.GroupedStmtKey{Group: sqlGroup, StmtName: "create"}.String()
	stmtUpsert  = sqldb.GroupedStmtKey{Group: sqlGroup, StmtName: "upsert"}.String()
	stmtCurrent = sqldb.GroupedStmtKey{Group: sqlGroup, StmtName: "current"}.String()
)

// SQLCounter keeps one row per counter name in invoice_counters.
// The increment and the read-back run in one transaction, so the row lock
// taken by the upsert serializes concurrent processes on the same database.
type SQLCounter struct {
	client sqldb.Client
	name   string
	mu     sync.Mutex
}

var (
	_ Counter = (*SQLCounter)(nil)
	_ Peeker  = (*SQLCounter)(nil)
)

// NewSQLCounter loads the counter statements for the client's dialect and
// creates the table if needed.
func NewSQLCounter(ctx context.Context, client sqldb.Client, name string) (*SQLCounter, error) {
	store := client.RawStore()
	if err := store.LoadGroup(sqlFS, "sql", sqlGroup, client.Dialect()); err != nil {
		return nil, &StorageError{Driver: driverName(client), Op: "load", Err: err}
	}
	if _, err := client.Exec(ctx, store.MustGet(stmtCreate)); err != nil {
		return nil, &StorageError{Driver: driverName(client), Op: "create", Err: err}
	}
	return &SQLCounter{client: client, name: name}, nil
}

func driverName(client sqldb.Client) string {
	return TypeSQL + "/" + client.Dialect()
}

func (c *SQLCounter) Name() string {
	return fmt.Sprintf("%s:%s", driverName(c.client), c.name)
}

func (c *SQLCounter) Next(ctx context.Context) (v int64, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	driver := driverName(c.client)
	store := c.client.RawStore()

	tx, err := c.client.BeginTx(ctx)
	if err != nil {
		return 0, &StorageError{Driver: driver, Op: "begin", Err: err}
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()
	if _, err = tx.Exec(ctx, store.MustGet(stmtUpsert), c.name); err != nil {
		return 0, &StorageError{Driver: driver, Op: "upsert", Err: err}
	}
	if err = tx.QueryRow(ctx, store.MustGet(stmtCurrent), c.name).Scan(&v); err != nil {
		return 0, &StorageError{Driver: driver, Op: "select", Err: err}
	}
	if err = tx.Commit(ctx); err != nil {
		return 0, &StorageError{Driver: driver, Op: "commit", Err: err}
	}
	return v, nil
}

func (c *SQLCounter) Current(ctx context.Context) (int64, error) {
	var v int64
	err := c.client.QueryRow(ctx, c.client.RawStore().MustGet(stmtCurrent), c.name).Scan(&v)
	if errors.Is(err, sqldb.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, &StorageError{Driver: driverName(c.client), Op: "select", Err: err}
	}
	return v, nil
}
