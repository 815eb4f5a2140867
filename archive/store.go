package archive

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned by Get for a missing key, whatever the driver
var ErrNotFound = errors.New("archive: object not found")

// Object is one stored blob
type Object struct {
	Key         string
	Data        []byte
	ContentType string
	Metadata    map[string]string
}

// Store is a flat key -> blob store
type Store interface {
	Put(ctx context.Context, obj Object) error
	Get(ctx context.Context, key string) (Object, error)
	Driver() string
}

const (
	DriverFS     = "fs"
	DriverS3     = "s3"
	DriverMemory = "memory"
)

// Conf is the "archive" section of .core.json. Empty Driver = archiving off.
type Conf struct {
	Driver  string `json:"driver"`   // "fs" | "s3" | "memory"
	Dir     string `json:"dir"`      // fs: root dir. relative to appRoot
	Prefix  string `json:"prefix"`   // key prefix. default "invoices/"
	SealKey string `json:"seal_key"` // optional 32-byte hex key. seals every object with XChaCha20-Poly1305
	S3      S3Conf `json:"s3"`
}

func (c *Conf) Enabled() bool {
	return c.Driver != ""
}

func (c *Conf) PrefixOrDefault() string {
	if c.Prefix == "" {
		return "invoices/"
	}
	if !strings.HasSuffix(c.Prefix, "/") {
		return c.Prefix + "/"
	}
	return c.Prefix
}

// validKey rejects keys that could escape a directory root
func validKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "..") || strings.Contains(key, "\\") {
		return fmt.Errorf("archive: invalid key %q", key)
	}
	return nil
}
