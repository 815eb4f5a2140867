package counter

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

// pathLocks holds one mutex per counter file so that every FileCounter
// in the process pointing at the same path serializes on it.
var pathLocks sync.Map // abs path -> *sync.Mutex

func lockFor(path string) *sync.Mutex {
	mu, _ := pathLocks.LoadOrStore(path, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// FileCounter keeps the last issued number as decimal text in a single file.
// Read-modify-write runs under the per-path lock; the write goes to a temp
// file renamed over the original, so a crash leaves either the old or the new value.
// A crash after the read and before the rename can still hand out a number twice.
type FileCounter struct {
	path string
	mu   *sync.Mutex
}

// Ensure FileCounter implements Counter and Peeker
var (
	_ Counter = (*FileCounter)(nil)
	_ Peeker  = (*FileCounter)(nil)
)

func NewFileCounter(path string) (*FileCounter, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, &StorageError{Driver: TypeFile, Op: "path", Err: err}
	}
	if err = os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return nil, &StorageError{Driver: TypeFile, Op: "mkdir", Err: err}
	}
	return &FileCounter{path: abs, mu: lockFor(abs)}, nil
}

func (c *FileCounter) Name() string {
	return TypeFile + ":" + c.path
}

func (c *FileCounter) Path() string {
	return c.path
}

func (c *FileCounter) Next(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	last, err := c.read()
	if err != nil {
		return 0, err
	}
	next := last + 1
	if err = c.write(next); err != nil {
		return 0, err
	}
	return next, nil
}

func (c *FileCounter) Current(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.read()
}

// read returns 0 when the file does not exist yet
func (c *FileCounter) read() (int64, error) {
	data, err := os.ReadFile(c.path)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, &StorageError{Driver: TypeFile, Op: "read", Err: err}
	}
	s := strings.TrimSpace(string(data))
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, &StorageError{Driver: TypeFile, Op: "parse", Err: fmt.Errorf("%q: %w", s, err)}
	}
	if v < 0 {
		return 0, &StorageError{Driver: TypeFile, Op: "parse", Err: fmt.Errorf("negative value %d", v)}
	}
	return v, nil
}

func (c *FileCounter) write(v int64) error {
	tmp, err := os.CreateTemp(filepath.Dir(c.path), filepath.Base(c.path)+".*.tmp")
	if err != nil {
		return &StorageError{Driver: TypeFile, Op: "write", Err: err}
	}
	tmpName := tmp.Name()
	_, err = tmp.WriteString(strconv.FormatInt(v, 10))
	if err == nil {
		err = tmp.Sync()
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Rename(tmpName, c.path)
	}
	if err != nil {
		_ = os.Remove(tmpName)
		return &StorageError{Driver: TypeFile, Op: "write", Err: err}
	}
	return nil
}
