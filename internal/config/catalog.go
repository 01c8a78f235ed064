package config

import (
	"github.com/roach88/measure/internal/measure"
	"github.com/roach88/measure/internal/processor"
	"github.com/roach88/measure/internal/storage/memory"
	"github.com/roach88/measure/internal/storage/pebble"
	"github.com/roach88/measure/internal/storage/redis"
	"github.com/roach88/measure/internal/storage/sqlite"
)

// DefaultCatalog returns a catalog with every built-in factory registered:
// processor "recorder" and storages "memory", "sqlite", "pebble", "redis".
func DefaultCatalog() *measure.Catalog {
	c := measure.NewCatalog()
	c.RegisterProcessor(processor.Name, processor.Factory)
	c.RegisterStorage(memory.Name, memory.Factory)
	c.RegisterStorage(sqlite.Name, sqlite.Factory)
	c.RegisterStorage(pebble.Name, pebble.Factory)
	c.RegisterStorage(redis.Name, redis.Factory)
	return c
}
