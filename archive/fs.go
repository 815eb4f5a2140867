package archive

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// FSStore writes each object as a file under Root. Metadata is not kept.
type FSStore struct {
	Root string
}

var _ Store = (*FSStore)(nil)

func NewFSStore(root string) (*FSStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &FSStore{Root: root}, nil
}

func (s *FSStore) Driver() string { return DriverFS }

func (s *FSStore) Put(_ context.Context, obj Object) error {
	if err := validKey(obj.Key); err != nil {
		return err
	}
	path := filepath.Join(s.Root, filepath.FromSlash(obj.Key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".put-*")
	if err != nil {
		return err
	}
	_, err = tmp.Write(obj.Data)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Rename(tmp.Name(), path)
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
	}
	return err
}

func (s *FSStore) Get(_ context.Context, key string) (Object, error) {
	if err := validKey(key); err != nil {
		return Object{}, err
	}
	data, err := os.ReadFile(filepath.Join(s.Root, filepath.FromSlash(key)))
	if errors.Is(err, fs.ErrNotExist) {
		return Object{}, ErrNotFound
	}
	if err != nil {
		return Object{}, err
	}
	return Object{Key: key, Data: data}, nil
}
