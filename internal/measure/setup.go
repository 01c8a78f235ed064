package measure

import (
	"io"
	"log/slog"
	"sync"

	"github.com/roach88/measure/internal/datalayer"
)

// Command names recognised by the runtime.
const (
	ConfigCommand = "config"
	EventCommand  = "event"
	SetCommand    = "set"
)

// Pair is the processor/storage pair built by one config command.
type Pair struct {
	Processor Processor
	Storage   Storage
}

// Runtime is the measure runtime attached to one command log.
//
// Thread-safety model:
//   - Handlers run only inside log dispatch (single-threaded)
//   - Active(), Model(), Close(): safe from any goroutine
type Runtime struct {
	log     *datalayer.Log
	helper  *datalayer.Helper
	catalog *Catalog
	logger  *slog.Logger

	mu     sync.RWMutex
	active *Pair
}

// Option configures Setup.
type Option func(*Runtime)

// WithCatalog lets config commands name factories by string.
func WithCatalog(c *Catalog) Option {
	return func(r *Runtime) {
		r.catalog = c
	}
}

// WithLogger sets the logger for the runtime and its dispatcher.
// Default: slog.Default()
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runtime) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// Setup attaches the measure runtime to log.
//
// Commands already in log are processed before Setup returns; every later
// push is processed in line. Calling Setup again on an attached log processes
// nothing twice: the returned Runtime is simply never wired to the log.
//
// The returned error joins the dispatch failures of the backlog. The Runtime
// is usable even when an error is returned.
func Setup(log *datalayer.Log, opts ...Option) (*Runtime, error) {
	r := &Runtime{
		log:    log,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}

	r.helper = datalayer.NewHelper(datalayer.WithLogger(r.logger))
	r.helper.RegisterProcessor(ConfigCommand, r.configure)

	r.logger.Debug("measure setup", "backlog", log.Pending())
	err := r.helper.Attach(log)
	return r, err
}

// Log returns the command log this runtime was set up on.
func (r *Runtime) Log() *datalayer.Log {
	return r.log
}

// Model returns the model handed to every handler.
func (r *Runtime) Model() *datalayer.Model {
	return r.helper.Model()
}

// Active returns the current processor/storage pair.
// Returns false before the first successful config command.
func (r *Runtime) Active() (Pair, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.active == nil {
		return Pair{}, false
	}
	return *r.active, true
}

// Close releases the active storage if it implements io.Closer.
// The event and set handlers are removed first, so later event and set
// commands are dropped as before any config. A later config starts over.
func (r *Runtime) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active == nil {
		return nil
	}
	r.helper.UnregisterProcessor(EventCommand)
	r.helper.UnregisterProcessor(SetCommand)
	err := closeStorage(r.active.Storage)
	r.active = nil
	return err
}

// swapActive installs p and returns the pair it replaced.
func (r *Runtime) swapActive(p *Pair) *Pair {
	r.mu.Lock()
	defer r.mu.Unlock()
	old := r.active
	r.active = p
	return old
}

func closeStorage(s Storage) error {
	if c, ok := s.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
