package measure

import (
	"fmt"

	"github.com/roach88/measure/internal/datalayer"
)

// configArity is the argument count of the config command:
// (processorFactory, processorOptions, storageFactory, storageOptions).
const configArity = 4

// configure handles the config command.
//
// It builds one processor and one storage, then registers the event and set
// handlers bound to that pair. The previous pair, if any, is discarded and
// its storage closed. Malformed arguments fail fast with a *ConfigError and
// leave the previous pair active.
func (r *Runtime) configure(_ *datalayer.Model, args []any) error {
	if len(args) != configArity {
		return &ConfigError{Message: fmt.Sprintf("expected %d arguments, got %d", configArity, len(args))}
	}

	procFactory, err := resolveFactory(args[0], r.catalog.Processor)
	if err != nil {
		return &ConfigError{Arg: "processor", Message: "invalid factory", Err: err}
	}
	procOpts, err := toOptions(args[1])
	if err != nil {
		return &ConfigError{Arg: "processor options", Message: "invalid options", Err: err}
	}
	storeFactory, err := resolveFactory(args[2], r.catalog.Storage)
	if err != nil {
		return &ConfigError{Arg: "storage", Message: "invalid factory", Err: err}
	}
	storeOpts, err := toOptions(args[3])
	if err != nil {
		return &ConfigError{Arg: "storage options", Message: "invalid options", Err: err}
	}

	proc, err := procFactory(procOpts)
	if err != nil {
		return &ConfigError{Arg: "processor", Message: "construct", Err: err}
	}
	if proc == nil {
		return &ConfigError{Arg: "processor", Message: "factory returned nil"}
	}

	store, err := storeFactory(storeOpts)
	if err != nil {
		return &ConfigError{Arg: "storage", Message: "construct", Err: err}
	}
	if store == nil {
		return &ConfigError{Arg: "storage", Message: "factory returned nil"}
	}

	pair := &Pair{Processor: proc, Storage: store}
	if old := r.swapActive(pair); old != nil {
		if err := closeStorage(old.Storage); err != nil {
			r.logger.Warn("closing replaced storage failed", "error", err)
		}
	}

	r.helper.RegisterProcessor(EventCommand, r.eventHandler(pair))
	r.helper.RegisterProcessor(SetCommand, r.setHandler(pair))

	r.logger.Info("measure configured",
		"processor", fmt.Sprintf("%T", proc),
		"storage", fmt.Sprintf("%T", store),
	)
	return nil
}

// resolveFactory accepts a Factory[T], a plain func(Options) (T, error), or a
// name looked up in the catalog.
func resolveFactory[T any](v any, lookup func(string) (Factory[T], bool)) (Factory[T], error) {
	switch f := v.(type) {
	case Factory[T]:
		if f == nil {
			return nil, fmt.Errorf("factory is nil")
		}
		return f, nil
	case func(Options) (T, error):
		if f == nil {
			return nil, fmt.Errorf("factory is nil")
		}
		return Factory[T](f), nil
	case string:
		factory, ok := lookup(f)
		if !ok {
			return nil, fmt.Errorf("no factory registered as %q", f)
		}
		return factory, nil
	case nil:
		return nil, fmt.Errorf("factory is missing")
	default:
		return nil, fmt.Errorf("unsupported factory type %T", v)
	}
}
