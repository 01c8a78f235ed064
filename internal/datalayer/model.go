package datalayer

import (
	"maps"
	"sync"
)

// Model is the context object handed to every handler invocation.
// It accumulates the running configuration of the queue that owns it.
type Model struct {
	mu     sync.RWMutex
	values map[string]any
}

// NewModel creates an empty model.
func NewModel() *Model {
	return &Model{values: make(map[string]any)}
}

// Get returns the value stored under key.
func (m *Model) Get(key string) (any, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok
}

// Set stores value under key.
func (m *Model) Set(key string, value any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
}

// Merge copies every entry of values into the model, overwriting existing keys.
func (m *Model) Merge(values map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	maps.Copy(m.values, values)
}

// Snapshot returns a shallow copy of the model's values.
func (m *Model) Snapshot() map[string]any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return maps.Clone(m.values)
}
