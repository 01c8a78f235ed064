package measure

import (
	"fmt"
	"time"

	"github.com/roach88/measure/internal/datalayer"
	"github.com/roach88/measure/internal/persist"
)

// Storage is the key/value persistence capability supplied by the embedder.
//
// Save stores value under key. At most one ttl is passed; when it is omitted
// the adapter's own default expiry applies. Load returns an error wrapping
// storage.ErrNotFound for missing or expired keys.
type Storage interface {
	Save(key string, value any, ttl ...persist.TTL) error
	Load(key string) (any, error)
}

// Processor decides event semantics and persistence time hints.
type Processor interface {
	// PersistTime returns the TTL for a set of key to value.
	// 0 skips persistence, -1 persists with the storage default, +Inf forever.
	PersistTime(key string, value any) persist.TTL

	// ProcessEvent handles one named event.
	ProcessEvent(storage Storage, model *datalayer.Model, name string, options Options) error
}

// Options is the option bag passed to factories and events.
type Options map[string]any

// Factory constructs a capability from its options.
type Factory[T any] func(Options) (T, error)

// ProcessorFactory constructs a Processor.
type ProcessorFactory = Factory[Processor]

// StorageFactory constructs a Storage.
type StorageFactory = Factory[Storage]

// toOptions converts a command argument into Options.
// nil yields an empty bag.
func toOptions(v any) (Options, error) {
	switch o := v.(type) {
	case nil:
		return Options{}, nil
	case Options:
		if o == nil {
			return Options{}, nil
		}
		return o, nil
	case map[string]any:
		if o == nil {
			return Options{}, nil
		}
		return Options(o), nil
	default:
		return nil, fmt.Errorf("options must be a map, got %T", v)
	}
}

// String returns the string option key, or def when absent.
func (o Options) String(key, def string) (string, error) {
	v, ok := o[key]
	if !ok || v == nil {
		return def, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("option %q: want string, got %T", key, v)
	}
	return s, nil
}

// TTL returns the TTL option key, or def when absent.
func (o Options) TTL(key string, def persist.TTL) (persist.TTL, error) {
	v, ok := o[key]
	if !ok || v == nil {
		return def, nil
	}
	ttl, err := persist.ParseTTL(v)
	if err != nil {
		return 0, fmt.Errorf("option %q: %w", key, err)
	}
	return ttl, nil
}

// Duration returns the duration option key, or def when absent.
// Accepts Go duration strings ("250ms") or a number of seconds.
func (o Options) Duration(key string, def time.Duration) (time.Duration, error) {
	v, ok := o[key]
	if !ok || v == nil {
		return def, nil
	}
	if s, ok := v.(string); ok {
		d, err := time.ParseDuration(s)
		if err != nil {
			return 0, fmt.Errorf("option %q: %w", key, err)
		}
		return d, nil
	}
	ttl, err := persist.ParseTTL(v)
	if err != nil {
		return 0, fmt.Errorf("option %q: %w", key, err)
	}
	d, ok := ttl.Duration()
	if !ok {
		return 0, fmt.Errorf("option %q: %v is not a positive finite duration", key, v)
	}
	return d, nil
}

// Map returns the nested option bag key, or an empty bag when absent.
func (o Options) Map(key string) (Options, error) {
	opts, err := toOptions(o[key])
	if err != nil {
		return nil, fmt.Errorf("option %q: %w", key, err)
	}
	return opts, nil
}
