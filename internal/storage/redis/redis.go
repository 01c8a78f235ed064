// Package redis is a Storage adapter backed by a Redis server.
//
// Values are stored as canonical JSON strings under prefix+key, and expiry is
// delegated to Redis via SET ... PX.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/roach88/measure/internal/codec"
	"github.com/roach88/measure/internal/measure"
	"github.com/roach88/measure/internal/persist"
	"github.com/roach88/measure/internal/storage"
)

// Name is the catalog name of this adapter.
const Name = "redis"

// Factory option names.
const (
	URLOption     = "url"
	PrefixOption  = "prefix"
	TimeoutOption = "timeout"
)

const (
	defaultPrefix  = "measure:"
	defaultTimeout = 2 * time.Second
)

// Store is a Redis-backed Storage.
type Store struct {
	client   *redis.Client
	prefix   string
	timeout  time.Duration
	settings storage.Settings
}

// Connect initializes a Redis client from URL or host:port input.
func Connect(_ context.Context, redisURL string) (*redis.Client, error) {
	if strings.HasPrefix(redisURL, "redis://") || strings.HasPrefix(redisURL, "rediss://") {
		opt, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		return redis.NewClient(opt), nil
	}
	return redis.NewClient(&redis.Options{Addr: redisURL}), nil
}

// New wraps an existing client. An empty prefix uses "measure:"; a zero
// timeout uses two seconds per command.
func New(client *redis.Client, prefix string, timeout time.Duration, opts ...storage.Option) *Store {
	if prefix == "" {
		prefix = defaultPrefix
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Store{
		client:   client,
		prefix:   prefix,
		timeout:  timeout,
		settings: storage.NewSettings(opts...),
	}
}

// Factory builds a Store from config options (url, prefix, timeout,
// default_ttl) and pings the server.
func Factory(o measure.Options) (measure.Storage, error) {
	url, err := o.String(URLOption, "localhost:6379")
	if err != nil {
		return nil, err
	}
	prefix, err := o.String(PrefixOption, defaultPrefix)
	if err != nil {
		return nil, err
	}
	timeout, err := o.Duration(TimeoutOption, defaultTimeout)
	if err != nil {
		return nil, err
	}
	opts, err := storage.OptionsFrom(o)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	client, err := Connect(ctx, url)
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return New(client, prefix, timeout, opts...), nil
}

// Close closes the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

// Save stores value under key.
func (s *Store) Save(key string, value any, ttl ...persist.TTL) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	return s.SaveContext(ctx, key, value, ttl...)
}

// SaveContext is Save with a caller-supplied context.
func (s *Store) SaveContext(ctx context.Context, key string, value any, ttl ...persist.TTL) error {
	expiresAt, err := s.settings.Expiry(ttl...)
	if err != nil {
		return err
	}
	data, err := codec.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %q: %w", key, err)
	}
	if err := s.client.Set(ctx, s.prefix+key, data, expiration(expiresAt, s.settings.Now())).Err(); err != nil {
		return fmt.Errorf("save %q: %w", key, err)
	}
	return nil
}

// Load returns the value stored under key.
func (s *Store) Load(key string) (any, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	return s.LoadContext(ctx, key)
}

// LoadContext is Load with a caller-supplied context.
func (s *Store) LoadContext(ctx context.Context, key string) (any, error) {
	data, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, storage.NotFound(key)
	}
	if err != nil {
		return nil, fmt.Errorf("load %q: %w", key, err)
	}
	v, err := codec.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("load %q: %w", key, err)
	}
	return v, nil
}

// expiration converts an absolute expiry into the relative expiration SET
// expects. Zero means no expiry; an expiry already in the past still gets
// the smallest positive expiration so the key disappears.
func expiration(expiresAt, now time.Time) time.Duration {
	if expiresAt.IsZero() {
		return 0
	}
	d := expiresAt.Sub(now)
	if d < time.Millisecond {
		return time.Millisecond
	}
	return d
}
