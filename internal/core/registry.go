package core

import (
	"fmt"
	"sort"
	"sync"
)

var (
	registry   = make(map[string]TableSchema)
	registryMu sync.RWMutex
)

// Register adds a table schema to the registry.
// Panics if the key is taken or a positional column is declared twice.
func Register(schema TableSchema) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[schema.Key]; exists {
		panic(fmt.Sprintf("table schema already registered: %s", schema.Key))
	}

	seen := make(map[int]bool)
	for _, c := range schema.Columns {
		if c.Position == AnyPosition {
			continue
		}
		if seen[c.Position] {
			panic(fmt.Sprintf("table schema %s: position %d declared twice", schema.Key, c.Position))
		}
		seen[c.Position] = true
	}

	registry[schema.Key] = schema
}

// Get returns a table schema by key.
func Get(key string) (TableSchema, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	s, ok := registry[key]
	return s, ok
}

// MustGet returns a table schema or a *ConfigurationError when the key was
// never registered.
func MustGet(key string) (TableSchema, error) {
	s, ok := Get(key)
	if !ok {
		return TableSchema{}, &ConfigurationError{Table: key, Detail: "no schema registered"}
	}
	return s, nil
}

// All returns all registered schemas sorted by key.
func All() []TableSchema {
	registryMu.RLock()
	defer registryMu.RUnlock()

	out := make([]TableSchema, 0, len(registry))
	for _, s := range registry {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Clear removes all registered schemas.
// Primarily useful for testing.
func Clear() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = make(map[string]TableSchema)
}
