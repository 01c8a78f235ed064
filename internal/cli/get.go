package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/measure/internal/codec"
	"github.com/roach88/measure/internal/config"
	"github.com/roach88/measure/internal/measure"
	"github.com/roach88/measure/internal/storage"
)

// GetOptions holds flags for the get command.
type GetOptions struct {
	*RootOptions
	Config string
}

// GetResult is the value stored under a key.
type GetResult struct {
	Key     string `json:"key"`
	Storage string `json:"storage"`
	Value   any    `json:"value"`
}

// NewGetCommand creates the get command.
func NewGetCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GetOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "get <key>",
		Short: "Load a key from the configured storage",
		Long: `Load one key from the storage named by --config and the MEASURE_*
environment. Missing and expired keys exit with code 1.

Examples:
  measure get cart --config measure.yaml
  MEASURE_STORAGE=sqlite MEASURE_DB=./measure.db measure get cart`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGet(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Config, "config", "c", "", "config file naming the storage (YAML or CUE)")

	return cmd
}

func runGet(opts *GetOptions, key string, cmd *cobra.Command) error {
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
	f, err := loadConfig(opts.Config, env)
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeConfig, err.Error(), nil)
	}

	catalog := config.DefaultCatalog()
	factory, ok := catalog.Storage(f.Storage.Name)
	if !ok {
		return formatter.Fail(ExitFailure, ErrCodeConfig,
			fmt.Sprintf("unknown storage %q (known: %v)", f.Storage.Name, catalog.StorageNames()), nil)
	}
	formatter.VerboseLog("opening storage %s", f.Storage.Name)

	st, err := factory(measure.Options(f.Storage.Options))
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStorage, fmt.Sprintf("open storage %s: %v", f.Storage.Name, err), nil)
	}
	if c, ok := st.(io.Closer); ok {
		defer c.Close()
	}

	v, err := st.Load(key)
	if errors.Is(err, storage.ErrNotFound) {
		return formatter.Fail(ExitFailure, ErrCodeNotFound, fmt.Sprintf("key %q not found", key), f.Storage.Name)
	}
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStorage, err.Error(), f.Storage.Name)
	}

	return formatter.Success(GetResult{Key: key, Storage: f.Storage.Name, Value: v}, codec.Format(v))
}
