package harness

// Call operations recorded in a trace.
const (
	OpPersistTime  = "persist_time"
	OpProcessEvent = "process_event"
	OpSave         = "save"
	OpLoad         = "load"
)

// Call is one observed capability call.
type Call struct {
	Op   string `json:"op"`
	Args []any  `json:"args"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when both orders agree and every expectation matched.
	Pass bool `json:"pass"`

	// Trace is the call sequence of the snippet-first run.
	Trace []Call `json:"trace"`

	// FailedCommands names the commands whose handler failed, in order.
	FailedCommands []string `json:"failed_commands"`

	// LogLen is the number of commands in the log after the run.
	LogLen int `json:"log_len"`

	// Errors holds failure messages; empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:           true,
		Trace:          []Call{},
		FailedCommands: []string{},
		Errors:         []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
	r.Pass = false
}

// filter returns the args of every call with op.
func filter(trace []Call, op string) [][]any {
	out := [][]any{}
	for _, c := range trace {
		if c.Op == op {
			out = append(out, c.Args)
		}
	}
	return out
}
