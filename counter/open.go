package counter

import (
	"context"
	"fmt"
	"log"
	"path/filepath"

	"github.com/zeptools/gw-invoice/db/kvdb"
	"github.com/zeptools/gw-invoice/db/sqldb"
)

const DefaultFilePath = "data/invoice_counter.txt"

// Backends are the already initialized DB clients a counter may be built on,
// keyed by their names in the database config files.
type Backends struct {
	AppRoot string
	KV      map[string]kvdb.Client
	SQL     map[string]sqldb.Client
}

// Open builds the counter described by conf
func Open(ctx context.Context, conf *Conf, b Backends) (Counter, error) {
	var (
		c   Counter
		err error
	)
	switch conf.TypeOrDefault() {
	case TypeFile:
		path := conf.Path
		if path == "" {
			path = DefaultFilePath
		}
		if !filepath.IsAbs(path) {
			path = filepath.Join(b.AppRoot, path)
		}
		c, err = NewFileCounter(path)
	case TypeMemory:
		c = NewMemoryCounter(0)
	case TypeKV:
		client, ok := b.KV[conf.KVDB]
		if !ok {
			return nil, fmt.Errorf("counter: kv database %q not configured", conf.KVDB)
		}
		c = NewKVCounter(client, conf.KeyOrDefault())
	case TypeSQL:
		client, ok := b.SQL[conf.SQLDB]
		if !ok {
			return nil, fmt.Errorf("counter: sql database %q not configured", conf.SQLDB)
		}
		c, err = NewSQLCounter(ctx, client, conf.KeyOrDefault())
	default:
		return nil, fmt.Errorf("counter: unknown type %q", conf.Type)
	}
	if err != nil {
		return nil, err
	}
	log.Printf("[INFO] counter: %s", c.Name())
	return c, nil
}
