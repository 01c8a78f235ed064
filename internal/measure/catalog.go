package measure

import (
	"slices"
	"sync"
)

// Catalog maps names to factories, so command sources that cannot carry Go
// values (JSON lines, YAML scenarios, config files) can name them instead.
//
// A nil *Catalog is valid and resolves nothing.
type Catalog struct {
	mu         sync.RWMutex
	processors map[string]ProcessorFactory
	storages   map[string]StorageFactory
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		processors: make(map[string]ProcessorFactory),
		storages:   make(map[string]StorageFactory),
	}
}

// RegisterProcessor registers a processor factory under name.
func (c *Catalog) RegisterProcessor(name string, f ProcessorFactory) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.processors[name] = f
}

// RegisterStorage registers a storage factory under name.
func (c *Catalog) RegisterStorage(name string, f StorageFactory) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.storages[name] = f
}

// Processor looks up a processor factory.
func (c *Catalog) Processor(name string) (ProcessorFactory, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	f, ok := c.processors[name]
	return f, ok
}

// Storage looks up a storage factory.
func (c *Catalog) Storage(name string) (StorageFactory, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	f, ok := c.storages[name]
	return f, ok
}

// ProcessorNames returns the registered processor names, sorted.
func (c *Catalog) ProcessorNames() []string {
	if c == nil {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return sortedKeys(c.processors)
}

// StorageNames returns the registered storage names, sorted.
func (c *Catalog) StorageNames() []string {
	if c == nil {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return sortedKeys(c.storages)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
