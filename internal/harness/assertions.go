package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/measure/internal/codec"
)

// AssertionError is returned when an expectation fails.
// It includes the full trace to help debug the failure.
type AssertionError struct {
	Field    string // expect field that failed
	Expected string
	Actual   string
	Trace    []Call
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Expectation failed: %s\n", e.Field)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for i, c := range e.Trace {
		fmt.Fprintf(&buf, "  [%d] %s %s\n", i+1, c.Op, codec.Format(c.Args))
	}

	return buf.String()
}

// evaluate checks every non-nil expectation against r and returns one
// message per failure.
func (e Expect) evaluate(r *run) []string {
	var errs []string
	add := func(err error) {
		if err != nil {
			errs = append(errs, err.Error())
		}
	}

	add(assertCalls("persist_time_calls", e.PersistTimeCalls, r.trace, OpPersistTime))
	add(assertCalls("saves", e.Saves, r.trace, OpSave))
	add(assertCalls("loads", e.Loads, r.trace, OpLoad))
	add(assertCalls("process_event_calls", e.ProcessEventCalls, r.trace, OpProcessEvent))

	if e.FailedCommands != nil && !slices.Equal(*e.FailedCommands, r.failed) {
		add(&AssertionError{
			Field:    "failed_commands",
			Expected: fmt.Sprintf("%v", *e.FailedCommands),
			Actual:   fmt.Sprintf("%v", r.failed),
			Trace:    r.trace,
		})
	}

	if e.LogLen != nil && *e.LogLen != r.logLen {
		add(&AssertionError{
			Field:    "log_len",
			Expected: fmt.Sprintf("%d", *e.LogLen),
			Actual:   fmt.Sprintf("%d", r.logLen),
			Trace:    r.trace,
		})
	}

	return errs
}

// assertCalls compares the args of every op call with want, in order.
// Values are compared by canonical encoding, so 3 and 3.0 are equal.
func assertCalls(field string, want *[][]any, trace []Call, op string) error {
	if want == nil {
		return nil
	}
	expected := codec.Format(asList(*want))
	actual := codec.Format(asList(filter(trace, op)))
	if expected == actual {
		return nil
	}
	return &AssertionError{
		Field:    field,
		Expected: expected,
		Actual:   actual,
		Trace:    trace,
	}
}

func asList(calls [][]any) []any {
	out := make([]any, len(calls))
	for i, c := range calls {
		out[i] = c
	}
	return out
}
