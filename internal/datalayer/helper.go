package datalayer

import (
	"fmt"
	"log/slog"
	"sync"
)

// Handler processes the arguments of one command.
// model is the owning Helper's Model.
type Handler func(model *Model, args []any) error

// Helper owns the processor registry and dispatches commands from the Log it
// is attached to.
//
// Thread-safety model:
//   - RegisterProcessor(): safe from any goroutine, including from a handler
//   - Attach(): safe from any goroutine; only the first attach of a log wins
type Helper struct {
	mu         sync.RWMutex
	processors map[string]Handler
	model      *Model
	logger     *slog.Logger
}

// HelperOption configures a Helper.
type HelperOption func(*Helper)

// WithLogger sets the logger used for dispatch tracing.
// Default: slog.Default()
func WithLogger(logger *slog.Logger) HelperOption {
	return func(h *Helper) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithModel sets the model handed to handlers.
// Default: an empty model.
func WithModel(m *Model) HelperOption {
	return func(h *Helper) {
		if m != nil {
			h.model = m
		}
	}
}

// NewHelper creates a Helper with no registered processors.
func NewHelper(opts ...HelperOption) *Helper {
	h := &Helper{
		processors: make(map[string]Handler),
		model:      NewModel(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterProcessor registers fn as the handler for commands named name,
// replacing any previous registration.
// The new handler applies to every command dispatched after this call.
func (h *Helper) RegisterProcessor(name string, fn Handler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.processors[name] = fn
}

// UnregisterProcessor removes the handler for name. Later commands with that
// name are ignored like any unknown command.
func (h *Helper) UnregisterProcessor(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.processors, name)
}

// Registered reports whether a handler exists for name.
func (h *Helper) Registered(name string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.processors[name]
	return ok
}

// Model returns the model handed to handlers.
func (h *Helper) Model() *Model {
	return h.model
}

// Attach installs this Helper as the dispatcher of l and drains the backlog.
//
// Attaching a log that is already attached (by this or any other Helper) is a
// no-op: nothing is re-dispatched and nil is returned.
//
// Returns the joined dispatch errors of the backlog.
func (h *Helper) Attach(l *Log) error {
	attached, err := l.attach(h.dispatch)
	if !attached {
		h.logger.Debug("log already attached, ignoring")
		return nil
	}
	h.logger.Debug("log attached")
	return err
}

// dispatch routes c to its handler.
// Unknown names are ignored. Panics are converted to a DispatchError so one
// broken handler cannot stall the log.
func (h *Helper) dispatch(c Command) (err error) {
	h.mu.RLock()
	fn, ok := h.processors[c.Name]
	h.mu.RUnlock()

	if !ok {
		h.logger.Debug("no processor registered, command ignored",
			"command", c.Name,
			"seq", c.Seq,
		)
		return nil
	}

	h.logger.Debug("dispatching command",
		"command", c.Name,
		"seq", c.Seq,
		"args", len(c.Args),
	)

	defer func() {
		if r := recover(); r != nil {
			err = &DispatchError{Command: c, Err: fmt.Errorf("handler panic: %v", r)}
			h.logCommandError(c, err)
		}
	}()

	if hErr := fn(h.model, c.Args); hErr != nil {
		err = &DispatchError{Command: c, Err: hErr}
		h.logCommandError(c, err)
		return err
	}
	return nil
}

// logCommandError logs a dispatch failure with full command context.
func (h *Helper) logCommandError(c Command, err error) {
	h.logger.Error("command processing failed",
		"error", err,
		"command", c.Name,
		"seq", c.Seq,
		"args", len(c.Args),
	)
}
