package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

// isolateEnv pins every MEASURE_* variable so the host environment cannot
// leak into a command under test.
func isolateEnv(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("MEASURE_STORAGE", "memory")
	t.Setenv("MEASURE_PROCESSOR", "recorder")
	t.Setenv("MEASURE_DB", filepath.Join(dir, "env.db"))
	t.Setenv("MEASURE_PEBBLE_DIR", filepath.Join(dir, "env.pebble"))
	t.Setenv("MEASURE_REDIS_URL", "localhost:6379")
	t.Setenv("MEASURE_LOG_LEVEL", "error")
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// execute runs cmd with args and returns stdout and stderr.
func execute(cmd *cobra.Command, args ...string) (string, string, error) {
	out := &bytes.Buffer{}
	errBuf := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errBuf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errBuf.String(), err
}
