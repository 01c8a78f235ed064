package config

import (
	_ "embed"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/roach88/measure/internal/datalayer"
	"github.com/roach88/measure/internal/measure"
)

//go:embed schema.cue
var schemaCUE string

// File is a runtime config file: which processor and storage to build, and
// their options.
//
// YAML example:
//
//	processor:
//	  name: recorder
//	  options:
//	    persist_time:
//	      cart: 3600
//	storage:
//	  name: sqlite
//	  options:
//	    path: measure.db
type File struct {
	Processor Component `yaml:"processor" json:"processor"`
	Storage   Component `yaml:"storage" json:"storage"`
}

// Component names a catalog factory and the options passed to it.
type Component struct {
	Name    string         `yaml:"name" json:"name"`
	Options map[string]any `yaml:"options,omitempty" json:"options,omitempty"`
}

// ValidationError describes one problem found by Validate.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Load reads a config file. Files ending in .cue are checked against the
// built-in CUE schema; anything else is parsed as YAML.
func Load(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("read config: %w", err)
	}
	if filepath.Ext(path) == ".cue" {
		return parseCUE(path, data)
	}
	return parseYAML(path, data)
}

func parseYAML(path string, data []byte) (File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return File{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return f, nil
}

func parseCUE(path string, data []byte) (File, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return File{}, fmt.Errorf("compile config schema: %w", err)
	}

	value := ctx.CompileBytes(data, cue.Filename(path))
	if err := value.Err(); err != nil {
		return File{}, fmt.Errorf("parse config %s: %w", path, err)
	}

	unified := schema.LookupPath(cue.ParsePath("#Config")).Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return File{}, fmt.Errorf("validate config %s: %w", path, err)
	}

	var f File
	if err := unified.Decode(&f); err != nil {
		return File{}, fmt.Errorf("decode config %s: %w", path, err)
	}
	return f, nil
}

// WithEnv fills what the file leaves out from e: the processor and storage
// names, and the storage location options.
func (f File) WithEnv(e Env) File {
	out := File{
		Processor: Component{Name: f.Processor.Name, Options: maps.Clone(f.Processor.Options)},
		Storage:   Component{Name: f.Storage.Name, Options: maps.Clone(f.Storage.Options)},
	}
	if out.Processor.Name == "" {
		out.Processor.Name = e.Processor
	}
	if out.Storage.Name == "" {
		out.Storage.Name = e.Storage
	}
	for k, v := range e.StorageOptions(out.Storage.Name) {
		if _, ok := out.Storage.Options[k]; ok {
			continue
		}
		if out.Storage.Options == nil {
			out.Storage.Options = map[string]any{}
		}
		out.Storage.Options[k] = v
	}
	return out
}

// Validate checks that both components are named and, when c is non-nil,
// that the names are registered in c.
func (f File) Validate(c *measure.Catalog) error {
	var errs []error

	if f.Processor.Name == "" {
		errs = append(errs, &ValidationError{Field: "processor.name", Message: "required"})
	} else if c != nil {
		if _, ok := c.Processor(f.Processor.Name); !ok {
			errs = append(errs, &ValidationError{
				Field:   "processor.name",
				Message: fmt.Sprintf("unknown processor %q (known: %v)", f.Processor.Name, c.ProcessorNames()),
			})
		}
	}

	if f.Storage.Name == "" {
		errs = append(errs, &ValidationError{Field: "storage.name", Message: "required"})
	} else if c != nil {
		if _, ok := c.Storage(f.Storage.Name); !ok {
			errs = append(errs, &ValidationError{
				Field:   "storage.name",
				Message: fmt.Sprintf("unknown storage %q (known: %v)", f.Storage.Name, c.StorageNames()),
			})
		}
	}

	return errors.Join(errs...)
}

// Command returns the config command this file describes, with factories
// named for catalog lookup.
func (f File) Command() datalayer.Command {
	return datalayer.Command{
		Name: measure.ConfigCommand,
		Args: []any{
			f.Processor.Name, options(f.Processor.Options),
			f.Storage.Name, options(f.Storage.Options),
		},
	}
}

func options(m map[string]any) measure.Options {
	if m == nil {
		return measure.Options{}
	}
	return measure.Options(maps.Clone(m))
}
