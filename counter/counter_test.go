package counter

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/zeptools/gw-invoice/db/kvdb"
	"github.com/zeptools/gw-invoice/db/kvdb/impls/redis"
	"github.com/zeptools/gw-invoice/db/sqldb"
	"github.com/zeptools/gw-invoice/db/sqldb/impls/mysql"
	"github.com/zeptools/gw-invoice/db/sqldb/impls/pgsql"
	"github.com/zeptools/gw-invoice/db/sqldb/impls/sqlite"
)

// assertSequence calls Next n times from n goroutines and expects exactly {1..n}
func assertSequence(t *testing.T, c Counter, n int) {
	t.Helper()
	ctx := context.Background()
	got := make([]int64, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got[i], errs[i] = c.Next(ctx)
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
	}
	sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })
	for i, v := range got {
		if v != int64(i+1) {
			t.Fatalf("sequence = %v, want 1..%d without gaps or duplicates", got, n)
		}
	}
}

func assertCurrent(t *testing.T, c Counter, want int64) {
	t.Helper()
	p, ok := c.(Peeker)
	if !ok {
		t.Fatalf("%T does not implement Peeker", c)
	}
	v, err := p.Current(context.Background())
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if v != want {
		t.Errorf("Current = %d, want %d", v, want)
	}
}

func TestMemoryCounter(t *testing.T) {
	c := NewMemoryCounter(0)
	assertCurrent(t, c, 0)
	assertSequence(t, c, 100)
	assertCurrent(t, c, 100)
}

func TestFileCounterFirstCallIsOne(t *testing.T) {
	path := filepath.Join(t.TempDir(), "counter.txt")
	c, err := NewFileCounter(path)
	if err != nil {
		t.Fatal(err)
	}
	for want := int64(1); want <= 3; want++ {
		v, err := c.Next(context.Background())
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if v != want {
			t.Fatalf("Next = %d, want %d", v, want)
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "3" {
		t.Errorf("file holds %q, want %q", data, "3")
	}
}

func TestFileCounterConcurrent(t *testing.T) {
	c, err := NewFileCounter(filepath.Join(t.TempDir(), "counter.txt"))
	if err != nil {
		t.Fatal(err)
	}
	assertSequence(t, c, 50)
	assertCurrent(t, c, 50)
}

func TestFileCounterSharedPathAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "counter.txt")
	a, err := NewFileCounter(path)
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewFileCounter(path)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	var (
		mu   sync.Mutex
		seen = map[int64]bool{}
		wg   sync.WaitGroup
	)
	for i := 0; i < 40; i++ {
		c := a
		if i%2 == 1 {
			c = b
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := c.Next(ctx)
			if err != nil {
				t.Errorf("Next: %v", err)
				return
			}
			mu.Lock()
			defer mu.Unlock()
			if seen[v] {
				t.Errorf("duplicate %d", v)
			}
			seen[v] = true
		}()
	}
	wg.Wait()
	if len(seen) != 40 {
		t.Errorf("got %d distinct values, want 40", len(seen))
	}
}

func TestFileCounterSurvivesRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "counter.txt")
	if err := os.WriteFile(path, []byte("41\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := NewFileCounter(path)
	if err != nil {
		t.Fatal(err)
	}
	v, err := c.Next(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if v != 42 {
		t.Errorf("Next = %d, want 42", v)
	}
	assertCurrent(t, c, 42)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "42" {
		t.Errorf("file holds %q, want the last issued number %q", data, "42")
	}
}

func TestFileCounterCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "counter.txt")
	if err := os.WriteFile(path, []byte("forty-two"), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := NewFileCounter(path)
	if err != nil {
		t.Fatal(err)
	}
	_, err = c.Next(context.Background())
	var se *StorageError
	if !errors.As(err, &se) {
		t.Fatalf("expected *StorageError, got %v", err)
	}
	if se.Op != "parse" {
		t.Errorf("Op = %q, want parse", se.Op)
	}
}

func TestFileCounterUnwritableDir(t *testing.T) {
	dir := t.TempDir()
	// a regular file where the parent dir should be
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := NewFileCounter(filepath.Join(blocker, "counter.txt"))
	var se *StorageError
	if !errors.As(err, &se) {
		t.Fatalf("expected *StorageError, got %v", err)
	}
}

func TestKVCounter(t *testing.T) {
	mr := miniredis.RunT(t)
	client := &redis.Client{Conf: &kvdb.Conf{Type: redis.DBType, Addr: mr.Addr()}}
	if err := client.Init(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = client.Close() })

	c := NewKVCounter(client, "invoice")
	assertCurrent(t, c, 0)
	assertSequence(t, c, 50)
	assertCurrent(t, c, 50)
}

func TestKVCounterStoreDown(t *testing.T) {
	mr := miniredis.RunT(t)
	client := &redis.Client{Conf: &kvdb.Conf{Type: redis.DBType, Addr: mr.Addr()}}
	if err := client.Init(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	_, err := NewKVCounter(client, "invoice").Next(context.Background())
	var se *StorageError
	if !errors.As(err, &se) {
		t.Fatalf("expected *StorageError, got %v", err)
	}
}

func openSQL(t *testing.T, register func(), dbType string, conf *sqldb.Conf) sqldb.Client {
	t.Helper()
	register()
	client, err := sqldb.New(dbType, conf)
	if err != nil {
		t.Fatal(err)
	}
	if err = client.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func testSQLCounter(t *testing.T, client sqldb.Client) {
	t.Helper()
	ctx := context.Background()
	name := "test_" + t.Name()
	if len(name) > 64 {
		name = name[:64]
	}
	_, _ = client.Exec(ctx, "DELETE FROM invoice_counters WHERE name = "+placeholder(client.Dialect()), name)
	c, err := NewSQLCounter(ctx, client, name)
	if err != nil {
		t.Fatalf("NewSQLCounter: %v", err)
	}
	assertCurrent(t, c, 0)
	assertSequence(t, c, 30)
	assertCurrent(t, c, 30)
}

func placeholder(dialect string) string {
	if dialect == pgsql.DBType {
		return "$1"
	}
	return "?"
}

func TestSQLCounterSQLite(t *testing.T) {
	client := openSQL(t, sqlite.Register, sqlite.DBType, &sqldb.Conf{
		Type: sqlite.DBType,
		DB:   filepath.Join(t.TempDir(), "counter.db"),
	})
	testSQLCounter(t, client)
}

func TestSQLCounterPgSQL(t *testing.T) {
	dsn := os.Getenv("INVOICE_TEST_PGSQL_DSN")
	if dsn == "" {
		t.Skip("INVOICE_TEST_PGSQL_DSN not set")
	}
	client := openSQL(t, pgsql.Register, pgsql.DBType, &sqldb.Conf{Type: pgsql.DBType, DSN: dsn})
	testSQLCounter(t, client)
}

func TestSQLCounterMySQL(t *testing.T) {
	dsn := os.Getenv("INVOICE_TEST_MYSQL_DSN")
	if dsn == "" {
		t.Skip("INVOICE_TEST_MYSQL_DSN not set")
	}
	client := openSQL(t, mysql.Register, mysql.DBType, &sqldb.Conf{Type: mysql.DBType, DSN: dsn})
	testSQLCounter(t, client)
}

func TestOpen(t *testing.T) {
	root := t.TempDir()
	c, err := Open(context.Background(), &Conf{}, Backends{AppRoot: root})
	if err != nil {
		t.Fatal(err)
	}
	fc, ok := c.(*FileCounter)
	if !ok {
		t.Fatalf("default counter is %T, want *FileCounter", c)
	}
	if want := filepath.Join(root, DefaultFilePath); fc.Path() != want {
		t.Errorf("path = %q, want %q", fc.Path(), want)
	}
	if _, err = Open(context.Background(), &Conf{Type: TypeKV, KVDB: "main"}, Backends{}); err == nil {
		t.Error("expected error for unconfigured kv database")
	}
	if _, err = Open(context.Background(), &Conf{Type: "etcd"}, Backends{}); err == nil {
		t.Error("expected error for unknown type")
	}
}
