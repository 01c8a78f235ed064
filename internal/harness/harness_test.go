package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/measure/internal/persist"
)

func TestScenarios_Golden(t *testing.T) {
	scenarios, err := LoadDir("testdata/scenarios")
	require.NoError(t, err)
	require.Len(t, scenarios, 12)

	for _, s := range scenarios {
		t.Run(s.Name, func(t *testing.T) {
			result, err := RunWithGolden(t, s)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestRun_DetectsFailedExpectation(t *testing.T) {
	wrong := [][]any{{"a key", 3, 1}}
	s := &Scenario{
		Name:        "wrong_ttl",
		Description: "expects the wrong ttl",
		PersistTime: 1337,
		Commands: [][]any{
			{"config", "mock", map[string]any{}, "mock", map[string]any{}},
			{"set", "a key", 3},
		},
		Expect: Expect{Saves: &wrong},
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "Expectation failed: saves")
	assert.Contains(t, result.Errors[0], `[["a key",3,1337]]`)
}

func TestRun_LogLenMismatch(t *testing.T) {
	n := 5
	s := &Scenario{
		Name:        "log_len",
		Description: "wrong log length",
		Commands:    [][]any{{"event", "x"}},
		Expect:      Expect{LogLen: &n},
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Equal(t, 1, result.LogLen)
}

func TestRun_TracesMatchExactlyForOrderedCalls(t *testing.T) {
	s := &Scenario{
		Name:        "ordered",
		Description: "calls are traced in dispatch order",
		PersistTime: persist.AdapterDefault,
		Commands: [][]any{
			{"config", "mock", nil, "mock", nil},
			{"set", "k1", "v1"},
			{"event", "e1"},
			{"set", "k2", "v2", "inf"},
		},
	}

	result, err := Run(s)
	require.NoError(t, err)
	require.True(t, result.Pass, "errors: %v", result.Errors)

	assert.Equal(t, []Call{
		{Op: OpPersistTime, Args: []any{"k1", "v1"}},
		{Op: OpSave, Args: []any{"k1", "v1"}},
		{Op: OpProcessEvent, Args: []any{"e1", map[string]any{}}},
		{Op: OpSave, Args: []any{"k2", "v2", "inf"}},
	}, result.Trace)
}

func TestLoadScenario_Validation(t *testing.T) {
	tests := map[string]string{
		"missing name":        "description: d\ncommands: [[event, x]]\n",
		"missing description": "name: n\ncommands: [[event, x]]\n",
		"no commands":         "name: n\ndescription: d\ncommands: []\n",
		"empty command":       "name: n\ndescription: d\ncommands: [[]]\n",
		"non-string name":     "name: n\ndescription: d\ncommands: [[5, x]]\n",
		"bad persist_time":    "name: n\ndescription: d\npersist_time: soon\ncommands: [[event, x]]\n",
		"unknown field":       "name: n\ndescription: d\ncommands: [[event, x]]\nflow: []\n",
		"negative log_len":    "name: n\ndescription: d\ncommands: [[event, x]]\nexpect:\n  log_len: -1\n",
	}

	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "s.yaml")
			require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
			_, err := LoadScenario(path)
			assert.Error(t, err)
		})
	}
}

func TestLoadScenario_Missing(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadDir_Empty(t *testing.T) {
	_, err := LoadDir(t.TempDir())
	assert.Error(t, err)
}

func TestAssertionError_IncludesTrace(t *testing.T) {
	err := &AssertionError{
		Field:    "saves",
		Expected: "[]",
		Actual:   `[["k","v"]]`,
		Trace:    []Call{{Op: OpSave, Args: []any{"k", "v"}}},
	}
	msg := err.Error()
	assert.Contains(t, msg, "Expectation failed: saves")
	assert.Contains(t, msg, `[1] save ["k","v"]`)
}

func TestOrder_String(t *testing.T) {
	assert.Equal(t, "snippet ran first", SnippetFirst.String())
	assert.Equal(t, "setup ran first", SetupFirst.String())
}
