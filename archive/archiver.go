package archive

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/zeptools/gw-invoice/sec"
)

// Archiver stores each issued invoice document under `<prefix>invoice_<N>.pdf`
type Archiver struct {
	Store   Store
	Prefix  string
	Timeout time.Duration // per Put. 0 = no extra deadline
}

func (a *Archiver) Key(filename string) string {
	return a.Prefix + filename
}

// Save stores data with its sha256 checksum as metadata
func (a *Archiver) Save(ctx context.Context, seq int64, filename string, contentType string, data []byte) error {
	if a.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.Timeout)
		defer cancel()
	}
	return a.Store.Put(ctx, Object{
		Key:         a.Key(filename),
		Data:        data,
		ContentType: contentType,
		Metadata: map[string]string{
			"invoice-seq": strconv.FormatInt(seq, 10),
			"sha256":      sec.HashHexSHA256(data),
		},
	})
}

// Open builds the archiver for conf. nil, nil when archiving is off.
func Open(ctx context.Context, conf *Conf, appRoot string, httpClient *http.Client) (*Archiver, error) {
	if !conf.Enabled() {
		return nil, nil
	}
	var (
		store Store
		err   error
	)
	switch conf.Driver {
	case DriverFS:
		dir := conf.Dir
		if dir == "" {
			dir = "data/archive"
		}
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(appRoot, dir)
		}
		store, err = NewFSStore(dir)
	case DriverS3:
		store, err = NewS3Store(ctx, conf.S3, httpClient)
	case DriverMemory:
		store = NewMemoryStore()
	default:
		return nil, fmt.Errorf("archive: unknown driver %q", conf.Driver)
	}
	if err != nil {
		return nil, err
	}
	if conf.SealKey != "" {
		cipher, err := sec.NewXChaCha20Poly1305CipherHex(conf.SealKey)
		if err != nil {
			return nil, fmt.Errorf("archive seal key: %w", err)
		}
		store = &SealedStore{Inner: store, Cipher: cipher}
	}
	log.Printf("[INFO] archive: %s prefix=%q", store.Driver(), conf.PrefixOrDefault())
	return &Archiver{Store: store, Prefix: conf.PrefixOrDefault(), Timeout: 10 * time.Second}, nil
}
