// Package cli implements the measure command line.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/measure/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the measure CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "measure",
		Short: "measure - queued commands for a pluggable measurement runtime",
		Long: `Drive the measure runtime from the command line.

Commands are pushed to a log, then the runtime attaches and drains it in
order. Processor and storage are chosen by a config command, built from a
YAML or CUE config file and the MEASURE_* environment.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewGetCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

// newLogger builds the command logger. The level comes from
// MEASURE_LOG_LEVEL unless --verbose forces debug.
func newLogger(opts *RootOptions, env config.Env, w io.Writer) (*slog.Logger, error) {
	level, err := env.Level()
	if err != nil {
		return nil, err
	}
	if opts.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), nil
}

// loadConfig resolves the effective config file: path when set, the
// environment alone otherwise.
func loadConfig(path string, env config.Env) (config.File, error) {
	if path == "" {
		return env.File(), nil
	}
	f, err := config.Load(path)
	if err != nil {
		return config.File{}, err
	}
	return f.WithEnv(env), nil
}
