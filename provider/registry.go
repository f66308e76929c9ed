package provider

import (
	"fmt"
	"sort"
	"sync"
)

var (
	registry = make(map[string]func() (Provider, error))
	mu       sync.RWMutex
)

// Register adds a provider factory under the given name. Provider packages
// call this from init(), so importing a provider package for side effects is
// enough to make it available. Registering the same name twice replaces the
// earlier factory.
func Register(name string, factory func() (Provider, error)) {
	mu.Lock()
	defer mu.Unlock()
	registry[name] = factory
}

// Get constructs the provider registered under name.
func Get(name string) (Provider, error) {
	mu.RLock()
	factory, ok := registry[name]
	mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown provider: %q (available: %v)", name, Available())
	}

	return factory()
}

// Available returns the names of all registered providers, sorted.
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

// IsRegistered reports whether a provider is registered under name.
func IsRegistered(name string) bool {
	mu.RLock()
	defer mu.RUnlock()
	_, ok := registry[name]
	return ok
}
