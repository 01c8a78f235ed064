// Package datalayer implements the shared command log and the attach-and-drain
// dispatcher of the measure runtime.
//
// Embedding code appends commands to a Log at any time. A Helper attaches to
// the Log exactly once; from then on every command, those already in the log
// and every later one, is dispatched to the handler registered under its name.
//
// ATTACH PROTOCOL:
//
// Attach first installs interception on the log (atomically, under the log's
// lock) and only then drains the backlog that was present. Because the log
// tracks a single dispatch cursor, a push racing with the drain is neither lost
// nor processed twice; it is picked up by the drain after everything appended
// before it.
//
// Dispatch Model:
//   - Dispatch is synchronous and single-threaded. No two commands are ever
//     handled concurrently.
//   - A push made while a dispatch is in progress (from inside a handler, or
//     from another goroutine) is appended and handled by the in-progress
//     dispatcher before it returns.
//   - Commands with no registered handler are ignored.
//   - A failing or panicking handler affects only its own command. The error
//     is logged and returned to whichever Attach/Push call ran the dispatch.
//
// INVARIANTS:
//   - Processing order == append order
//   - Every command is dispatched exactly once after attach
//   - A second Attach is a no-op
package datalayer
