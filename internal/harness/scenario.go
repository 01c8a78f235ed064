package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/roach88/measure/internal/persist"
)

// Scenario is one command script with expectations.
type Scenario struct {
	// Name uniquely identifies this scenario; it also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// PersistTime is what the mock processor's PersistTime returns.
	// A number of seconds or "inf"; omitted means 0.
	PersistTime any `yaml:"persist_time,omitempty"`

	// Commands are pushed in order; each is [name, args...].
	Commands [][]any `yaml:"commands"`

	// Expect holds the checks run against the trace.
	Expect Expect `yaml:"expect"`
}

// Expect lists optional expectations. A nil field is not checked.
type Expect struct {
	PersistTimeCalls  *[][]any  `yaml:"persist_time_calls,omitempty"`
	Saves             *[][]any  `yaml:"saves,omitempty"`
	Loads             *[][]any  `yaml:"loads,omitempty"`
	ProcessEventCalls *[][]any  `yaml:"process_event_calls,omitempty"`
	FailedCommands    *[]string `yaml:"failed_commands,omitempty"`
	LogLen            *int      `yaml:"log_len,omitempty"`
}

// TTL returns the parsed persist_time.
func (s *Scenario) TTL() (persist.TTL, error) {
	if s.PersistTime == nil {
		return persist.Skip, nil
	}
	return persist.ParseTTL(s.PersistTime)
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Reject unknown fields to catch typos
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// LoadDir loads every *.yaml and *.yml scenario in dir, sorted by file name.
func LoadDir(dir string) ([]*Scenario, error) {
	var paths []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		paths = append(paths, matches...)
	}
	sort.Strings(paths)

	if len(paths) == 0 {
		return nil, fmt.Errorf("no scenario files found in %s", dir)
	}

	scenarios := make([]*Scenario, 0, len(paths))
	for _, p := range paths {
		s, err := LoadScenario(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(p), err)
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if _, err := s.TTL(); err != nil {
		return fmt.Errorf("persist_time: %w", err)
	}

	if len(s.Commands) == 0 {
		return fmt.Errorf("commands list is required and must be non-empty")
	}

	for i, cmd := range s.Commands {
		if len(cmd) == 0 {
			return fmt.Errorf("commands[%d]: command name is required", i)
		}
		if _, ok := cmd[0].(string); !ok {
			return fmt.Errorf("commands[%d]: command name must be a string, got %T", i, cmd[0])
		}
	}

	if s.Expect.LogLen != nil && *s.Expect.LogLen < 0 {
		return fmt.Errorf("expect.log_len must be non-negative")
	}

	return nil
}
