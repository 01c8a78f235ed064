package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/measure/internal/codec"
	"github.com/roach88/measure/internal/config"
	"github.com/roach88/measure/internal/datalayer"
	"github.com/roach88/measure/internal/measure"
	"github.com/roach88/measure/internal/processor"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Config string

	// IDGenerator overrides the recorder's event ids (for testing).
	// If nil, the catalog default (UUIDv7) is used.
	IDGenerator processor.IDGenerator
}

// FailedCommand is one command whose handler failed.
type FailedCommand struct {
	Seq   int64  `json:"seq"`
	Name  string `json:"name"`
	Error string `json:"error"`
}

// RunResult is the outcome of a run.
type RunResult struct {
	Commands int               `json:"commands"`
	Failed   []FailedCommand   `json:"failed"`
	Events   []processor.Event `json:"events"`
	Model    map[string]any    `json:"model"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommandWith(&RunOptions{RootOptions: rootOpts})
}

func newRunCommandWith(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [commands-file]",
		Short: "Push commands to a log and drain them",
		Long: `Push commands to a fresh log, then attach the runtime and drain it.

Each non-blank input line is a JSON array whose first element is the
command name, e.g.

  ["config", "recorder", {}, "memory", {}]
  ["set", "cart", {"items": 2}, 3600]
  ["event", "page_view", {"path": "/"}]

Lines starting with # are ignored. With no file, or "-", commands are read
from stdin. --config pushes the config command built from a config file
(and the MEASURE_* environment) ahead of the input.

Examples:
  measure run commands.jsonl
  measure run --config measure.yaml commands.jsonl
  cat commands.jsonl | measure run --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "-"
			if len(args) == 1 {
				path = args[0]
			}
			return runCommands(opts, path, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Config, "config", "c", "", "config file pushed before the commands (YAML or CUE)")

	return cmd
}

func runCommands(opts *RunOptions, path string, cmd *cobra.Command) error {
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
	logger, err := newLogger(opts.RootOptions, env, cmd.ErrOrStderr())
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid log level", err)
	}
	slog.SetDefault(logger)

	commands, err := readCommands(path, cmd.InOrStdin())
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeInput, err.Error(), nil)
	}

	log := datalayer.NewLog()
	if opts.Config != "" {
		f, err := loadConfig(opts.Config, env)
		if err != nil {
			return formatter.Fail(ExitFailure, ErrCodeConfig, err.Error(), nil)
		}
		if err := log.PushCommand(f.Command()); err != nil {
			return WrapExitError(ExitCommandError, "push config", err)
		}
		formatter.VerboseLog("pushed config: processor=%s storage=%s", f.Processor.Name, f.Storage.Name)
	}
	for _, c := range commands {
		if err := log.PushCommand(c); err != nil {
			return WrapExitError(ExitCommandError, "push command", err)
		}
	}
	formatter.VerboseLog("pushed %d command(s)", log.Len())

	catalog := config.DefaultCatalog()
	if opts.IDGenerator != nil {
		catalog.RegisterProcessor(processor.Name, func(o measure.Options) (measure.Processor, error) {
			return processor.FromOptions(o, processor.WithIDGenerator(opts.IDGenerator))
		})
	}

	rt, setupErr := measure.Setup(log, measure.WithCatalog(catalog), measure.WithLogger(logger))
	defer func() {
		if err := rt.Close(); err != nil {
			logger.Error("error closing storage", "error", err)
		}
	}()

	result := RunResult{
		Commands: log.Len(),
		Failed:   failedCommands(setupErr),
		Events:   []processor.Event{},
		Model:    rt.Model().Snapshot(),
	}
	if result.Model == nil {
		result.Model = map[string]any{}
	}
	if pair, ok := rt.Active(); ok {
		if rec, ok := pair.Processor.(*processor.Recorder); ok {
			result.Events = rec.Events()
		}
	}

	if setupErr != nil && len(result.Failed) == 0 {
		return WrapExitError(ExitCommandError, "setup failed", setupErr)
	}

	if err := formatter.Success(result, runText(result)...); err != nil {
		return err
	}
	if len(result.Failed) > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d command(s) failed", len(result.Failed)))
	}
	return nil
}

// readCommands parses one JSON-array command per non-blank line.
func readCommands(path string, stdin io.Reader) ([]datalayer.Command, error) {
	r := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open commands: %w", err)
		}
		defer f.Close()
		r = f
	}

	var commands []datalayer.Command
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		c, err := parseCommand([]byte(line))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		commands = append(commands, c)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read commands: %w", err)
	}
	return commands, nil
}

func parseCommand(line []byte) (datalayer.Command, error) {
	v, err := codec.Unmarshal(line)
	if err != nil {
		return datalayer.Command{}, err
	}
	arr, ok := v.([]any)
	if !ok || len(arr) == 0 {
		return datalayer.Command{}, errors.New("command must be a non-empty JSON array")
	}
	name, ok := arr[0].(string)
	if !ok || name == "" {
		return datalayer.Command{}, fmt.Errorf("command name must be a non-empty string, got %s", codec.Format(arr[0]))
	}
	return datalayer.Command{Name: name, Args: arr[1:]}, nil
}

// failedCommands lists every dispatch failure carried by err, in order.
func failedCommands(err error) []FailedCommand {
	out := []FailedCommand{}
	for _, de := range datalayer.DispatchErrors(err) {
		out = append(out, FailedCommand{
			Seq:   de.Command.Seq,
			Name:  de.Command.Name,
			Error: de.Err.Error(),
		})
	}
	return out
}

func runText(r RunResult) []string {
	var lines []string
	for _, ev := range r.Events {
		lines = append(lines, fmt.Sprintf("event %s seq=%d params=%s", ev.Name, ev.Seq, codec.Format(ev.Params)))
	}
	for _, f := range r.Failed {
		lines = append(lines, fmt.Sprintf("✗ %s (seq=%d): %s", f.Name, f.Seq, f.Error))
	}
	lines = append(lines,
		"model: "+codec.Format(r.Model),
		fmt.Sprintf("Processed %d command(s), %d failed", r.Commands, len(r.Failed)),
	)
	return lines
}
