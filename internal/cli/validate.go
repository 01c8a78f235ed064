package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/measure/internal/config"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid     bool                     `json:"valid"`
	Processor string                   `json:"processor,omitempty"`
	Storage   string                   `json:"storage,omitempty"`
	Errors    []config.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <config>",
		Short: "Validate a config file",
		Long: `Validate a YAML or CUE config file without building anything.

CUE files are checked against the built-in schema. Component names left out
of the file are filled from MEASURE_PROCESSOR and MEASURE_STORAGE, then
checked against the built-in processors and storages.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	env, err := config.LoadEnv()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read environment", err)
	}

	f, err := config.Load(path)
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeConfig, err.Error(), nil)
	}
	f = f.WithEnv(env)
	formatter.VerboseLog("processor=%s storage=%s", f.Processor.Name, f.Storage.Name)

	result := ValidationResult{
		Valid:     true,
		Processor: f.Processor.Name,
		Storage:   f.Storage.Name,
	}
	if err := f.Validate(config.DefaultCatalog()); err != nil {
		result.Valid = false
		result.Errors = validationErrors(err)
	}

	if !result.Valid {
		details := make([]string, len(result.Errors))
		for i, e := range result.Errors {
			details[i] = e.Error()
		}
		return formatter.Fail(ExitFailure, ErrCodeConfig,
			fmt.Sprintf("%s: %s", path, strings.Join(details, "; ")), result.Errors)
	}

	return formatter.Success(result,
		fmt.Sprintf("✓ %s is valid (processor %s, storage %s)", path, f.Processor.Name, f.Storage.Name))
}

// validationErrors flattens the errors joined by File.Validate.
func validationErrors(err error) []config.ValidationError {
	errs := []error{err}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		errs = joined.Unwrap()
	}
	var out []config.ValidationError
	for _, e := range errs {
		var ve *config.ValidationError
		if errors.As(e, &ve) {
			out = append(out, *ve)
			continue
		}
		out = append(out, config.ValidationError{Field: "config", Message: e.Error()})
	}
	return out
}
