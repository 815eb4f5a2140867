package archive

import (
	"context"
	"maps"
	"sort"
	"sync"
)

// MemoryStore keeps objects in process memory
type MemoryStore struct {
	mu   sync.RWMutex
	objs map[string]Object
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objs: make(map[string]Object)}
}

func (s *MemoryStore) Driver() string { return DriverMemory }

func (s *MemoryStore) Put(_ context.Context, obj Object) error {
	if err := validKey(obj.Key); err != nil {
		return err
	}
	obj.Data = append([]byte(nil), obj.Data...)
	obj.Metadata = maps.Clone(obj.Metadata)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objs[obj.Key] = obj
	return nil
}

func (s *MemoryStore) Get(_ context.Context, key string) (Object, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objs[key]
	if !ok {
		return Object{}, ErrNotFound
	}
	obj.Data = append([]byte(nil), obj.Data...)
	return obj, nil
}

// Keys lists stored keys sorted
func (s *MemoryStore) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.objs))
	for k := range s.objs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
