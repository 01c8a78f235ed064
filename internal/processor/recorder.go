// Package processor provides Recorder, the reference measure.Processor.
//
// Recorder understands three kinds of events:
//   - "set": persists options["key"] = options["value"] through the TTL policy,
//     with options["ttl"] as an optional explicit TTL
//   - "get": loads options["key"] from storage into the model
//   - anything else: recorded in order as an Event
//
// Persist times come from a per-key table with a fallback default.
package processor

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sync"

	"github.com/roach88/measure/internal/datalayer"
	"github.com/roach88/measure/internal/measure"
	"github.com/roach88/measure/internal/persist"
	"github.com/roach88/measure/internal/storage"
)

// Name is the catalog name of Recorder.
const Name = "recorder"

// Event names with built-in meaning.
const (
	SetEvent = "set"
	GetEvent = "get"
)

// Factory option names.
const (
	PersistTimeOption        = "persist_time"
	DefaultPersistTimeOption = "default_persist_time"
)

// Event is one recorded event.
type Event struct {
	ID     string         `json:"id"`
	Seq    int64          `json:"seq"`
	Name   string         `json:"name"`
	Params map[string]any `json:"params"`
}

// Recorder is a Processor that records events and persists set events.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type Recorder struct {
	mu          sync.Mutex
	persistTime map[string]persist.TTL
	defaultTTL  persist.TTL
	ids         IDGenerator
	clock       *datalayer.Clock
	events      []Event
	logger      *slog.Logger
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithIDGenerator sets the event ID source.
// Default: UUIDv7Generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(r *Recorder) {
		if g != nil {
			r.ids = g
		}
	}
}

// WithLogger sets the logger.
// Default: slog.Default()
func WithLogger(logger *slog.Logger) Option {
	return func(r *Recorder) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithPersistTime sets the TTL for key.
func WithPersistTime(key string, ttl persist.TTL) Option {
	return func(r *Recorder) {
		r.persistTime[key] = ttl
	}
}

// WithDefaultPersistTime sets the TTL for keys missing from the table.
// Default: persist.Skip.
func WithDefaultPersistTime(ttl persist.TTL) Option {
	return func(r *Recorder) {
		r.defaultTTL = ttl
	}
}

// New creates a Recorder.
func New(opts ...Option) *Recorder {
	r := &Recorder{
		persistTime: make(map[string]persist.TTL),
		defaultTTL:  persist.Skip,
		ids:         UUIDv7Generator{},
		clock:       datalayer.NewClock(),
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// FromOptions creates a Recorder configured by factory options, applying
// opts afterwards.
func FromOptions(o measure.Options, opts ...Option) (*Recorder, error) {
	var fromOpts []Option

	table, err := o.Map(PersistTimeOption)
	if err != nil {
		return nil, err
	}
	for key, raw := range table {
		ttl, err := persist.ParseTTL(raw)
		if err != nil {
			return nil, fmt.Errorf("option %q[%q]: %w", PersistTimeOption, key, err)
		}
		fromOpts = append(fromOpts, WithPersistTime(key, ttl))
	}

	def, err := o.TTL(DefaultPersistTimeOption, persist.Skip)
	if err != nil {
		return nil, err
	}
	fromOpts = append(fromOpts, WithDefaultPersistTime(def))

	return New(append(fromOpts, opts...)...), nil
}

// Factory builds a Recorder from config options
// (persist_time, default_persist_time).
func Factory(o measure.Options) (measure.Processor, error) {
	return FromOptions(o)
}

// PersistTime returns the table TTL for key, or the default.
func (r *Recorder) PersistTime(key string, _ any) persist.TTL {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ttl, ok := r.persistTime[key]; ok {
		return ttl
	}
	return r.defaultTTL
}

// ProcessEvent handles one event.
func (r *Recorder) ProcessEvent(st measure.Storage, model *datalayer.Model, name string, options measure.Options) error {
	switch name {
	case SetEvent:
		return r.processSet(st, model, options)
	case GetEvent:
		return r.processGet(st, model, options)
	default:
		r.record(name, options)
		return nil
	}
}

func (r *Recorder) processSet(st measure.Storage, model *datalayer.Model, options measure.Options) error {
	key, err := requireKey(options)
	if err != nil {
		return fmt.Errorf("%s event: %w", SetEvent, err)
	}
	value := options["value"]

	var explicit *persist.TTL
	if raw, ok := options["ttl"]; ok && raw != nil {
		ttl, err := persist.ParseTTL(raw)
		if err != nil {
			return fmt.Errorf("%s event: ttl: %w", SetEvent, err)
		}
		explicit = &ttl
	}

	model.Set(key, value)

	decision, err := persist.Apply(st, r, key, value, explicit)
	if err != nil {
		return err
	}
	r.logger.Debug("set event",
		"key", key,
		"decision", decision.Kind.String(),
		"ttl", decision.TTL.String(),
	)
	return nil
}

func (r *Recorder) processGet(st measure.Storage, model *datalayer.Model, options measure.Options) error {
	key, err := requireKey(options)
	if err != nil {
		return fmt.Errorf("%s event: %w", GetEvent, err)
	}

	v, err := st.Load(key)
	if errors.Is(err, storage.ErrNotFound) {
		r.logger.Debug("get event: key not stored", "key", key)
		return nil
	}
	if err != nil {
		return fmt.Errorf("%s event: %w", GetEvent, err)
	}
	model.Set(key, v)
	return nil
}

func (r *Recorder) record(name string, options measure.Options) {
	r.mu.Lock()
	ev := Event{
		ID:     r.ids.Generate(),
		Seq:    r.clock.Next(),
		Name:   name,
		Params: maps.Clone(map[string]any(options)),
	}
	if ev.Params == nil {
		ev.Params = map[string]any{}
	}
	r.events = append(r.events, ev)
	r.mu.Unlock()

	r.logger.Info("event recorded",
		"id", ev.ID,
		"seq", ev.Seq,
		"name", ev.Name,
	)
}

// Events returns a copy of the recorded events in order.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

func requireKey(options measure.Options) (string, error) {
	raw, ok := options["key"]
	if !ok {
		return "", errors.New("missing key")
	}
	key, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("key must be a string, got %T", raw)
	}
	return key, nil
}
