// Package memory is an in-process Storage adapter.
//
// Values are held as given, without encoding, so Load returns the same Go
// value that was saved. Expired entries are dropped lazily on Load and in
// bulk by Purge.
package memory

import (
	"sync"
	"time"

	"github.com/roach88/measure/internal/measure"
	"github.com/roach88/measure/internal/persist"
	"github.com/roach88/measure/internal/storage"
)

// Name is the catalog name of this adapter.
const Name = "memory"

type entry struct {
	value     any
	expiresAt time.Time
}

// Store is a map-backed Storage.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type Store struct {
	mu       sync.Mutex
	entries  map[string]entry
	settings storage.Settings
}

// New creates an empty store.
func New(opts ...storage.Option) *Store {
	return &Store{
		entries:  make(map[string]entry),
		settings: storage.NewSettings(opts...),
	}
}

// Factory builds a Store from config options (default_ttl).
func Factory(o measure.Options) (measure.Storage, error) {
	opts, err := storage.OptionsFrom(o)
	if err != nil {
		return nil, err
	}
	return New(opts...), nil
}

// Save stores value under key.
func (s *Store) Save(key string, value any, ttl ...persist.TTL) error {
	expiresAt, err := s.settings.Expiry(ttl...)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = entry{value: value, expiresAt: expiresAt}
	return nil
}

// Load returns the value stored under key.
func (s *Store) Load(key string) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return nil, storage.NotFound(key)
	}
	if storage.Expired(e.expiresAt, s.settings.Now()) {
		delete(s.entries, key)
		return nil, storage.NotFound(key)
	}
	return e.value, nil
}

// ExpiresAt returns the expiry of key; the zero time means never.
func (s *Store) ExpiresAt(key string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	return e.expiresAt, ok
}

// Purge removes expired entries and returns how many were removed.
func (s *Store) Purge() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.settings.Now()
	removed := 0
	for k, e := range s.entries {
		if storage.Expired(e.expiresAt, now) {
			delete(s.entries, k)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored entries, expired or not.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
