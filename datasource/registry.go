package datasource

import (
	"fmt"
	"sort"
	"sync"
)

var (
	registry = make(map[string]func() (Source, error))
	mu       sync.RWMutex
)

// Register adds a source factory under the given name. Connector packages
// call this from init(), so importing a connector package for side effects
// is enough to make it available. Registering the same name twice replaces
// the earlier factory.
func Register(name string, factory func() (Source, error)) {
	mu.Lock()
	defer mu.Unlock()
	registry[name] = factory
}

// Get constructs the source registered under name.
func Get(name string) (Source, error) {
	mu.RLock()
	factory, ok := registry[name]
	mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown data source: %q (available: %v)", name, Available())
	}

	return factory()
}

// Available returns the names of all registered sources, sorted.
func Available() []string {
	mu.RLock()
	defer mu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsRegistered reports whether a source is registered under name.
func IsRegistered(name string) bool {
	mu.RLock()
	defer mu.RUnlock()
	_, ok := registry[name]
	return ok
}
