// Package measure wires the command log to embedder-supplied processor and
// storage capabilities.
//
// Setup is the single entry point an embedding process calls:
//
//	log := datalayer.NewLog()
//	log.Push("config", processor.Factory, opts, memory.Factory, nil) // any time
//	rt, err := measure.Setup(log)
//	log.Push("set", "client_id", "abc", 3600)
//
// The config command constructs one processor and one storage through the
// supplied factories and registers the event and set handlers bound to that
// pair. A later config command replaces the pair wholesale. event and set
// commands received before any config are dropped.
//
// The set command runs the persistence policy (package persist) with the
// active processor's PersistTime as the computed TTL source. event commands
// are forwarded to the processor's ProcessEvent untouched.
package measure
