// Package keyonlylocks is a non-blocking try-lock set keyed by string.
package keyonlylocks

import "sync"

// Set holds the currently locked keys. The zero value is ready to use.
type Set struct {
	held sync.Map // key -> struct{}
}

// TryAcquire locks every key or none. On success, call release exactly once,
// deferred so a panic still frees the keys.
func (s *Set) TryAcquire(keys ...string) (release func(), ok bool) {
	acquired := make([]string, 0, len(keys))
	for _, key := range keys {
		if _, loaded := s.held.LoadOrStore(key, struct{}{}); loaded {
			s.release(acquired)
			return nil, false
		}
		acquired = append(acquired, key)
	}
	return func() { s.release(acquired) }, true
}

// Held reports whether key is currently locked
func (s *Set) Held(key string) bool {
	_, ok := s.held.Load(key)
	return ok
}

func (s *Set) release(keys []string) {
	for _, key := range keys {
		s.held.Delete(key)
	}
}
