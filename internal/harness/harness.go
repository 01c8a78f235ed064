package harness

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/roach88/measure/internal/codec"
	"github.com/roach88/measure/internal/config"
	"github.com/roach88/measure/internal/datalayer"
	"github.com/roach88/measure/internal/measure"
	"github.com/roach88/measure/internal/persist"
)

// Order is the relative load order of the command snippet and Setup.
type Order int

const (
	// SnippetFirst pushes every command, then calls Setup.
	SnippetFirst Order = iota
	// SetupFirst calls Setup, then pushes every command.
	SetupFirst
)

func (o Order) String() string {
	if o == SetupFirst {
		return "setup ran first"
	}
	return "snippet ran first"
}

// run is the observable outcome of one order.
type run struct {
	trace  []Call
	failed []string
	logLen int
}

// Run executes a scenario in both orders and returns the result.
//
// Each run gets a fresh log, a fresh recording mock pair and the built-in
// catalog. The returned trace is the snippet-first one; a divergence between
// the two orders fails the result.
func Run(scenario *Scenario) (*Result, error) {
	ttl, err := scenario.TTL()
	if err != nil {
		return nil, fmt.Errorf("persist_time: %w", err)
	}

	first, err := runOrder(scenario, ttl, SnippetFirst)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", SnippetFirst, err)
	}
	second, err := runOrder(scenario, ttl, SetupFirst)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", SetupFirst, err)
	}

	result := NewResult()
	result.Trace = first.trace
	result.FailedCommands = first.failed
	result.LogLen = first.logLen

	for _, msg := range compareRuns(first, second) {
		result.AddError(msg)
	}
	for _, msg := range scenario.Expect.evaluate(first) {
		result.AddError(msg)
	}

	return result, nil
}

func runOrder(scenario *Scenario, ttl persist.TTL, order Order) (*run, error) {
	rec := &recording{ttl: ttl}

	catalog := config.DefaultCatalog()
	catalog.RegisterProcessor(MockName, func(measure.Options) (measure.Processor, error) {
		return &mockProcessor{rec: rec}, nil
	})
	catalog.RegisterStorage(MockName, func(measure.Options) (measure.Storage, error) {
		return &mockStorage{rec: rec}, nil
	})

	log := datalayer.NewLog()
	out := &run{failed: []string{}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // Suppress logs in tests

	var rt *measure.Runtime
	setup := func() error {
		var err error
		rt, err = measure.Setup(log, measure.WithCatalog(catalog), measure.WithLogger(logger))
		return out.collect(err)
	}

	if order == SetupFirst {
		if err := setup(); err != nil {
			return nil, err
		}
	}
	for _, cmd := range scenario.Commands {
		name := cmd[0].(string)
		if err := out.collect(log.Push(name, cmd[1:]...)); err != nil {
			return nil, err
		}
	}
	if order == SnippetFirst {
		if err := setup(); err != nil {
			return nil, err
		}
	}

	if rt != nil {
		if err := rt.Close(); err != nil {
			return nil, fmt.Errorf("close runtime: %w", err)
		}
	}

	out.trace = rec.trace()
	out.logLen = log.Len()
	return out, nil
}

// collect records the failed commands carried by err. Errors that are not
// command failures are returned.
func (r *run) collect(err error) error {
	if err == nil {
		return nil
	}
	failed := datalayer.FailedCommands(err)
	if len(failed) == 0 {
		return err
	}
	for _, c := range failed {
		r.failed = append(r.failed, c.Name)
	}
	return nil
}

// compareRuns reports every difference between the two orders.
func compareRuns(a, b *run) []string {
	var msgs []string
	if a.logLen != b.logLen {
		msgs = append(msgs, fmt.Sprintf("log length differs between orders: %s=%d, %s=%d",
			SnippetFirst, a.logLen, SetupFirst, b.logLen))
	}
	if !slices.Equal(a.failed, b.failed) {
		msgs = append(msgs, fmt.Sprintf("failed commands differ between orders: %s=%v, %s=%v",
			SnippetFirst, a.failed, SetupFirst, b.failed))
	}

	ta, tb := traceValue(a.trace), traceValue(b.trace)
	if fa, fb := codec.Format(ta), codec.Format(tb); fa != fb {
		msgs = append(msgs, fmt.Sprintf("trace differs between orders:\n  %s: %s\n  %s: %s",
			SnippetFirst, fa, SetupFirst, fb))
	}
	return msgs
}

// traceValue converts a trace into the generic value model.
func traceValue(trace []Call) []any {
	out := make([]any, len(trace))
	for i, c := range trace {
		out[i] = map[string]any{
			"op":   c.Op,
			"args": c.Args,
		}
	}
	return out
}
