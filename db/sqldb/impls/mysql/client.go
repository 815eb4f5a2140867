package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/go-sql-driver/mysql" // side-effect
	"github.com/zeptools/gw-invoice/db/sqldb"
	"github.com/zeptools/gw-invoice/db/sqldb/impls/stdsql"
)

const DBType = "mysql"

func Register() {
	sqldb.RegisterFactory(DBType, func(conf *sqldb.Conf) (sqldb.Client, error) {
		return &Client{Conf: conf}, nil
	})
}

type Client struct {
	stdsql.Handle // [Embedded] for Promoted Methods
	Conf          *sqldb.Conf
	rawStore      *sqldb.RawStore
	dsn           string
}

// Ensure mysql.Client implements sqldb.Client interface
var _ sqldb.Client = (*Client)(nil)

func (c *Client) Init() error {
	var err error
	if c.Conf.DSN != "" {
		c.dsn = c.Conf.DSN
	} else {
		tz := c.Conf.TZ
		if tz == "" {
			tz = "UTC"
		}
		c.dsn = fmt.Sprintf(
			"%s:%s@tcp(%s:%d)/%s?parseTime=true&loc=%s&sql_mode=ANSI_QUOTES",
			c.Conf.User,
			c.Conf.PW,
			c.Conf.Host,
			c.Conf.Port,
			c.Conf.DB,
			tz,
		)
	}
	if c.DB, err = sql.Open("mysql", c.dsn); err != nil {
		return err
	}
	maxConns := c.Conf.MaxConns
	if maxConns <= 0 {
		maxConns = 10
	}
	c.DB.SetConnMaxLifetime(time.Minute * 3)
	c.DB.SetMaxOpenConns(maxConns)
	c.DB.SetMaxIdleConns(maxConns)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err = c.Ping(ctx); err != nil {
		return fmt.Errorf("mysql ping failed: %w", err)
	}
	c.rawStore = sqldb.NewRawStore()
	log.Println("[INFO] mysql client initialized")
	return nil
}

func (c *Client) Close() error {
	if c.DB == nil {
		return nil
	}
	log.Println("[INFO] closing mysql client")
	if err := c.DB.Close(); err != nil {
		return err
	}
	log.Println("[INFO] mysql client closed")
	return nil
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
