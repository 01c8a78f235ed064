// Package pebble is a Storage adapter backed by a Pebble LSM directory.
//
// Each value is stored under "kv/<key>" as a fixed record: an 8-byte
// big-endian expiry (unix microseconds, 0 for never) followed by the
// canonical JSON encoding of the value.
package pebble

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/cockroachdb/pebble"

	"github.com/roach88/measure/internal/codec"
	"github.com/roach88/measure/internal/measure"
	"github.com/roach88/measure/internal/persist"
	"github.com/roach88/measure/internal/storage"
)

// Name is the catalog name of this adapter.
const Name = "pebble"

// DirOption is the factory option naming the data directory.
const DirOption = "dir"

var keyPrefix = []byte("kv/")

// Store is a Pebble-backed Storage.
type Store struct {
	db       *pebble.DB
	settings storage.Settings
}

// Open creates or opens a Pebble database in dir.
func Open(dir string, opts ...storage.Option) (*Store, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open pebble %s: %w", dir, err)
	}
	return &Store{db: db, settings: storage.NewSettings(opts...)}, nil
}

// Factory builds a Store from config options (dir, default_ttl).
func Factory(o measure.Options) (measure.Storage, error) {
	dir, err := o.String(DirOption, "measure.pebble")
	if err != nil {
		return nil, err
	}
	opts, err := storage.OptionsFrom(o)
	if err != nil {
		return nil, err
	}
	return Open(dir, opts...)
}

// Close flushes and closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save stores value under key.
func (s *Store) Save(key string, value any, ttl ...persist.TTL) error {
	expiresAt, err := s.settings.Expiry(ttl...)
	if err != nil {
		return err
	}
	data, err := codec.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %q: %w", key, err)
	}
	if err := s.db.Set(keyFor(key), encodeRecord(expiresAt, data), pebble.Sync); err != nil {
		return fmt.Errorf("save %q: %w", key, err)
	}
	return nil
}

// Load returns the value stored under key.
func (s *Store) Load(key string) (any, error) {
	raw, closer, err := s.db.Get(keyFor(key))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, storage.NotFound(key)
	}
	if err != nil {
		return nil, fmt.Errorf("load %q: %w", key, err)
	}
	expiresAt, data, err := decodeRecord(raw)
	if err != nil {
		closer.Close()
		return nil, fmt.Errorf("load %q: %w", key, err)
	}
	// data aliases pebble's buffer; decode before releasing it.
	v, decodeErr := codec.Unmarshal(data)
	closer.Close()

	if storage.Expired(expiresAt, s.settings.Now()) {
		if err := s.db.Delete(keyFor(key), pebble.Sync); err != nil {
			return nil, fmt.Errorf("delete expired %q: %w", key, err)
		}
		return nil, storage.NotFound(key)
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("load %q: %w", key, decodeErr)
	}
	return v, nil
}

// Scan calls fn for every unexpired entry in key order.
func (s *Store) Scan(fn func(key string, value any) error) error {
	now := s.settings.Now()
	return s.iterate(func(key []byte, expiresAt time.Time, data []byte) error {
		if storage.Expired(expiresAt, now) {
			return nil
		}
		v, err := codec.Unmarshal(data)
		if err != nil {
			return fmt.Errorf("scan %q: %w", key, err)
		}
		return fn(string(key), v)
	})
}

// Purge deletes expired entries in one batch and returns how many.
func (s *Store) Purge() (int, error) {
	now := s.settings.Now()
	batch := s.db.NewBatch()
	defer batch.Close()

	removed := 0
	err := s.iterate(func(key []byte, expiresAt time.Time, _ []byte) error {
		if !storage.Expired(expiresAt, now) {
			return nil
		}
		removed++
		return batch.Delete(keyFor(string(key)), nil)
	})
	if err != nil {
		return 0, err
	}
	if removed == 0 {
		return 0, nil
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return 0, fmt.Errorf("purge: %w", err)
	}
	return removed, nil
}

func (s *Store) iterate(fn func(key []byte, expiresAt time.Time, data []byte) error) error {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: keyPrefix,
		UpperBound: []byte("kv0"), // '0' follows '/'
	})
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		expiresAt, data, err := decodeRecord(iter.Value())
		if err != nil {
			return fmt.Errorf("scan %q: %w", iter.Key(), err)
		}
		key := bytes.TrimPrefix(iter.Key(), keyPrefix)
		if err := fn(key, expiresAt, data); err != nil {
			return err
		}
	}
	return iter.Error()
}

func keyFor(key string) []byte {
	return append(append([]byte(nil), keyPrefix...), key...)
}

// Expiries are unix microseconds, which span every year time.Time can
// reach through a TTL (unix nanoseconds stop at 2262).
func encodeRecord(expiresAt time.Time, data []byte) []byte {
	b := make([]byte, 8+len(data))
	if !expiresAt.IsZero() {
		binary.BigEndian.PutUint64(b[:8], uint64(expiresAt.UnixMicro()))
	}
	copy(b[8:], data)
	return b
}

func decodeRecord(b []byte) (time.Time, []byte, error) {
	if len(b) < 8 {
		return time.Time{}, nil, fmt.Errorf("corrupt record: %d bytes", len(b))
	}
	var expiresAt time.Time
	if n := binary.BigEndian.Uint64(b[:8]); n != 0 {
		expiresAt = time.UnixMicro(int64(n))
	}
	return expiresAt, b[8:], nil
}
