package datalayer

import (
	"errors"
	"slices"
	"sync"
)

// dispatchFunc handles one command. It must not panic.
type dispatchFunc func(Command) error

// Log is the shared, append-only command log.
//
// Before attach, Push only records. Once a Helper attaches, Push also
// dispatches: the pushing goroutine drains every undispatched entry in order,
// unless a dispatch is already in progress, in which case the in-progress
// dispatcher picks the new entry up before it returns.
//
// Thread-safety: all methods may be called from any goroutine.
type Log struct {
	mu       sync.Mutex
	entries  []Command
	clock    *Clock
	dispatch dispatchFunc // nil until attached
	next     int          // index of the next entry to dispatch
	draining bool         // a goroutine is running drain
}

// NewLog creates an empty, unattached log.
func NewLog() *Log {
	return &Log{
		entries: make([]Command, 0, 16),
		clock:   NewClock(),
	}
}

// Push appends a command built from name and args.
//
// Returns the joined dispatch errors of the commands this call dispatched.
// Always nil before attach.
func (l *Log) Push(name string, args ...any) error {
	return l.PushCommand(Command{Name: name, Args: args})
}

// PushCommand appends c, restamping its Seq.
// See Push for the dispatch and error semantics.
func (l *Log) PushCommand(c Command) error {
	l.mu.Lock()
	c.Seq = l.clock.Next()
	c.Args = slices.Clone(c.Args)
	l.entries = append(l.entries, c)

	if l.dispatch == nil || l.draining {
		l.mu.Unlock()
		return nil
	}
	l.draining = true
	l.mu.Unlock()

	return l.drain()
}

// Len returns the number of commands ever appended.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Entries returns a copy of every command ever appended, in order.
func (l *Log) Entries() []Command {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.entries)
}

// Attached reports whether a dispatcher has been installed.
func (l *Log) Attached() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.dispatch != nil
}

// Pending returns the number of appended commands not yet dispatched.
// Always equal to Len before attach.
func (l *Log) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries) - l.next
}

// attach installs fn as the dispatcher and drains the backlog.
// Interception is installed before the drain starts.
// Returns false, and dispatches nothing, if the log was already attached.
func (l *Log) attach(fn dispatchFunc) (bool, error) {
	l.mu.Lock()
	if l.dispatch != nil {
		l.mu.Unlock()
		return false, nil
	}
	l.dispatch = fn
	l.draining = true
	l.mu.Unlock()

	return true, l.drain()
}

// drain dispatches entries from the cursor until it catches up with the log.
// Only one goroutine runs drain at a time (guarded by draining).
func (l *Log) drain() error {
	var errs []error

	for {
		l.mu.Lock()
		if l.next >= len(l.entries) {
			l.draining = false
			l.mu.Unlock()
			return errors.Join(errs...)
		}
		c := l.entries[l.next]
		l.next++
		fn := l.dispatch
		l.mu.Unlock()

		if err := fn(c); err != nil {
			errs = append(errs, err)
		}
	}
}
