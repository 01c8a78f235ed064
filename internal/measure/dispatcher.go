package measure

import (
	"fmt"

	"github.com/roach88/measure/internal/datalayer"
	"github.com/roach88/measure/internal/persist"
)

// eventHandler returns the handler for event commands bound to pair.
//
// Arguments: (name string, options Options?). The handler does not interpret
// the event; it forwards name and options, defaulting to an empty bag, along
// with the bound storage and the model.
func (r *Runtime) eventHandler(pair *Pair) datalayer.Handler {
	return func(model *datalayer.Model, args []any) error {
		if len(args) == 0 {
			return &EventError{Command: EventCommand, Message: "missing event name"}
		}
		name, ok := args[0].(string)
		if !ok {
			return &EventError{Command: EventCommand, Message: fmt.Sprintf("event name must be a string, got %T", args[0])}
		}

		var options Options
		if len(args) > 1 {
			var err error
			if options, err = toOptions(args[1]); err != nil {
				return &EventError{Command: EventCommand, Message: "invalid options for " + name, Err: err}
			}
		} else {
			options = Options{}
		}

		r.logger.Debug("processing event", "event", name, "options", len(options))
		return pair.Processor.ProcessEvent(pair.Storage, model, name, options)
	}
}

// setHandler returns the handler for set commands bound to pair.
//
// Arguments: (key string, value any, ttl?). A missing or nil ttl means no
// explicit TTL was given; the processor's PersistTime is consulted instead.
func (r *Runtime) setHandler(pair *Pair) datalayer.Handler {
	return func(_ *datalayer.Model, args []any) error {
		if len(args) == 0 {
			return &EventError{Command: SetCommand, Message: "missing key"}
		}
		key, ok := args[0].(string)
		if !ok {
			return &EventError{Command: SetCommand, Message: fmt.Sprintf("key must be a string, got %T", args[0])}
		}

		var value any
		if len(args) > 1 {
			value = args[1]
		}

		explicit, err := ExplicitTTL(args, 2)
		if err != nil {
			return &EventError{Command: SetCommand, Message: "invalid ttl for " + key, Err: err}
		}

		d, err := persist.Apply(pair.Storage, pair.Processor, key, value, explicit)
		if err != nil {
			return err
		}

		r.logger.Debug("set processed",
			"key", key,
			"decision", d.Kind.String(),
			"ttl", d.TTL.String(),
			"explicit", explicit != nil,
		)
		return nil
	}
}

// ExplicitTTL reads an optional TTL argument at index i.
// Returns nil when the argument is absent or nil.
func ExplicitTTL(args []any, i int) (*persist.TTL, error) {
	if i >= len(args) || args[i] == nil {
		return nil, nil
	}
	ttl, err := persist.ParseTTL(args[i])
	if err != nil {
		return nil, err
	}
	return &ttl, nil
}
