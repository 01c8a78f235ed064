package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/measure/internal/codec"
)

// TraceSnapshot captures what a golden file records for a scenario.
type TraceSnapshot struct {
	ScenarioName   string   `json:"scenario_name"`
	Trace          []Call   `json:"trace"`
	FailedCommands []string `json:"failed_commands"`
	LogLen         int      `json:"log_len"`
}

// toCanonicalMap converts a TraceSnapshot to the generic value model for
// canonical JSON serialization.
func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	failed := make([]any, len(s.FailedCommands))
	for i, name := range s.FailedCommands {
		failed[i] = name
	}
	return map[string]any{
		"scenario_name":   s.ScenarioName,
		"trace":           traceValue(s.Trace),
		"failed_commands": failed,
		"log_len":         s.LogLen,
	}
}

// Snapshot runs scenario and returns the canonical golden encoding of the
// result alongside it.
func Snapshot(scenario *Scenario) ([]byte, *Result, error) {
	result, err := Run(scenario)
	if err != nil {
		return nil, nil, err
	}

	snapshot := TraceSnapshot{
		ScenarioName:   scenario.Name,
		Trace:          result.Trace,
		FailedCommands: result.FailedCommands,
		LogLen:         result.LogLen,
	}
	data, err := codec.Marshal(snapshot.toCanonicalMap())
	if err != nil {
		return nil, nil, err
	}
	return data, result, nil
}

// RunWithGolden executes a scenario and compares the trace against a golden
// file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns the scenario result; a golden mismatch fails t via goldie.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	data, result, err := Snapshot(scenario)
	if err != nil {
		return nil, err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, data)

	return result, nil
}
