package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/zeptools/gw-invoice/db/sqldb"
	"github.com/zeptools/gw-invoice/db/sqldb/impls/stdsql"
	_ "modernc.org/sqlite" // pure go sqlite driver
)

const DBType = "sqlite"

func Register() {
	sqldb.RegisterFactory(DBType, func(conf *sqldb.Conf) (sqldb.Client, error) {
		return &Client{Conf: conf}, nil
	})
}

// Client opens a single-file database. Conf.DB is the file path.
// One connection only: sqlite serializes writers anyway, and a single
// connection turns SQLITE_BUSY into plain waiting on the pool.
type Client struct {
	stdsql.Handle // [Embedded] for Promoted Methods
	Conf          *sqldb.Conf
	rawStore      *sqldb.RawStore
	dsn           string
}

// Ensure sqlite.Client implements sqldb.Client interface
var _ sqldb.Client = (*Client)(nil)

func (c *Client) Init() error {
	var err error
	if c.Conf.DSN != "" {
		c.dsn = c.Conf.DSN
	} else {
		path := c.Conf.DB
		if path == "" {
			path = "gw-invoice.db"
		}
		if err = os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return fmt.Errorf("create dirs: %w", err)
		}
		c.dsn = "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}
	if c.DB, err = sql.Open("sqlite", c.dsn); err != nil {
		return fmt.Errorf("open sqlite: %w", err)
	}
	c.DB.SetMaxOpenConns(1)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err = c.Ping(ctx); err != nil {
		return fmt.Errorf("sqlite ping failed: %w", err)
	}
	c.rawStore = sqldb.NewRawStore()
	log.Printf("[INFO] sqlite client initialized (%s)", c.dsn)
	return nil
}

func (c *Client) Close() error {
	if c.DB == nil {
		return nil
	}
	return c.DB.Close()
}

func (c *Client) GetConf() *sqldb.Conf {
	return c.Conf
}

func (c *Client) Dialect() string {
	return DBType
}

func (c *Client) RawStore() *sqldb.RawStore {
	return c.rawStore
}

func (c *Client) Ping(ctx context.Context) error {
	return c.DB.PingContext(ctx)
}
