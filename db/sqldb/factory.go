package sqldb

import (
	"fmt"
	"slices"
	"sync"
)

// ClientFactory builds a Client from Conf.
// Driver packages register one per DBType from their init.
type ClientFactory func(conf *Conf) (Client, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]ClientFactory{}
)

// RegisterFactory replaces any factory already registered for dbType
func RegisterFactory(dbType string, factory ClientFactory) {
	registryMu.Lock()
	registry[dbType] = factory
	registryMu.Unlock()
}

// Registered lists the known database types, sorted
func Registered() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	types := make([]string, 0, len(registry))
	for t := range registry {
		types = append(types, t)
	}
	slices.Sort(types)
	return types
}

func New(dbType string, conf *Conf) (Client, error) {
	registryMu.RLock()
	factory, ok := registry[dbType]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported database type %q (registered: %v)", dbType, Registered())
	}
	return factory(conf)
}
