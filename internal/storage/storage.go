// Package storage holds what the key/value adapters share: the not-found
// sentinel, default-TTL options and expiry resolution.
//
// Adapters live in subpackages (memory, sqlite, pebble, redis). Each one
// implements measure.Storage and exposes a measure.Factory so it can be named
// in a config command.
//
// TTL handling is identical across adapters:
//   - Save without a ttl uses the adapter default (option default_ttl)
//   - An explicit persist.AdapterDefault also uses the adapter default
//   - persist.Forever never expires
//   - A positive ttl expires that many seconds after the save
//   - Zero, negative and NaN ttls are rejected with ErrInvalidTTL
//
// An expired key loads as ErrNotFound.
package storage

import (
	"errors"
	"fmt"
	"time"

	"github.com/roach88/measure/internal/measure"
	"github.com/roach88/measure/internal/persist"
)

// ErrNotFound is returned (wrapped) by Load for missing or expired keys.
var ErrNotFound = errors.New("key not found")

// ErrInvalidTTL is returned by Save for a ttl that cannot be stored.
var ErrInvalidTTL = errors.New("invalid ttl")

// DefaultTTLOption is the factory option naming the adapter default TTL.
const DefaultTTLOption = "default_ttl"

// Settings is the adapter-independent configuration.
type Settings struct {
	// DefaultTTL applies when Save gets no ttl. AdapterDefault and Forever
	// both mean no expiry.
	DefaultTTL persist.TTL

	// Now is the wall clock used to compute expiry.
	Now func() time.Time
}

// Option configures Settings.
type Option func(*Settings)

// WithDefaultTTL sets the TTL used when Save gets none.
func WithDefaultTTL(ttl persist.TTL) Option {
	return func(s *Settings) {
		s.DefaultTTL = ttl
	}
}

// WithClock sets the wall clock used for expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Settings) {
		s.Now = now
	}
}

// NewSettings applies opts over the defaults: no expiry, time.Now.
func NewSettings(opts ...Option) Settings {
	s := Settings{
		DefaultTTL: persist.Forever,
		Now:        time.Now,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// OptionsFrom reads the shared factory options (default_ttl) from o.
func OptionsFrom(o measure.Options) ([]Option, error) {
	ttl, err := o.TTL(DefaultTTLOption, persist.Forever)
	if err != nil {
		return nil, err
	}
	if ttl != persist.AdapterDefault && !ttl.Unbounded() {
		if _, ok := ttl.Duration(); !ok {
			return nil, fmt.Errorf("option %q: %w: %v", DefaultTTLOption, ErrInvalidTTL, ttl)
		}
	}
	return []Option{WithDefaultTTL(ttl)}, nil
}

// Expiry resolves the optional ttl of a Save call into an absolute expiry.
// The zero time means the entry never expires.
func (s Settings) Expiry(ttl ...persist.TTL) (time.Time, error) {
	if len(ttl) > 1 {
		return time.Time{}, fmt.Errorf("%w: at most one ttl, got %d", ErrInvalidTTL, len(ttl))
	}
	return Resolve(s.Now(), s.DefaultTTL, ttl...)
}

// Resolve converts ttl (or def when ttl is omitted or AdapterDefault) into an
// absolute expiry relative to now. TTLs beyond the range of time.Duration
// never expire, like Forever.
func Resolve(now time.Time, def persist.TTL, ttl ...persist.TTL) (time.Time, error) {
	effective := def
	if len(ttl) > 0 && ttl[0] != persist.AdapterDefault {
		effective = ttl[0]
	}
	if effective == persist.AdapterDefault || effective.Unbounded() {
		return time.Time{}, nil
	}
	d, ok := effective.Duration()
	if !ok {
		return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidTTL, effective)
	}
	return now.Add(d), nil
}

// Expired reports whether an entry expiring at expiresAt is gone at now.
func Expired(expiresAt, now time.Time) bool {
	return !expiresAt.IsZero() && !now.Before(expiresAt)
}

// NotFound wraps ErrNotFound with the key.
func NotFound(key string) error {
	return fmt.Errorf("load %q: %w", key, ErrNotFound)
}
