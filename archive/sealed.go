package archive

import (
	"context"
	"maps"

	"github.com/zeptools/gw-invoice/sec"
)

const sealedContentType = "application/octet-stream"

// SealedStore encrypts objects before they reach the inner store.
// The key is bound as additional data, so a blob copied to another key fails to open.
type SealedStore struct {
	Inner  Store
	Cipher *sec.XChaCha20Poly1305Cipher
}

var _ Store = (*SealedStore)(nil)

func (s *SealedStore) Driver() string { return s.Inner.Driver() + "+sealed" }

func (s *SealedStore) Put(ctx context.Context, obj Object) error {
	sealed, err := s.Cipher.Seal(obj.Data, []byte(obj.Key))
	if err != nil {
		return err
	}
	md := maps.Clone(obj.Metadata)
	if md == nil {
		md = map[string]string{}
	}
	md["sealed-content-type"] = obj.ContentType
	return s.Inner.Put(ctx, Object{Key: obj.Key, Data: sealed, ContentType: sealedContentType, Metadata: md})
}

func (s *SealedStore) Get(ctx context.Context, key string) (Object, error) {
	obj, err := s.Inner.Get(ctx, key)
	if err != nil {
		return Object{}, err
	}
	plain, err := s.Cipher.Open(obj.Data, []byte(key))
	if err != nil {
		return Object{}, err
	}
	obj.Data = plain
	if ct, ok := obj.Metadata["sealed-content-type"]; ok {
		obj.ContentType = ct
	}
	return obj, nil
}
