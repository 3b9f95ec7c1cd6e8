package state

import "time"

// Run phases
const (
	PhasePreRequest = "pre_request"
	PhaseTest       = "test"
)

// ConsoleEntry is one captured log line
type ConsoleEntry struct {
	Level   string    `json:"level"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

// RunResult is the immutable snapshot of one completed run. Every field
// is an independent deep copy; nothing here aliases live run state.
type RunResult struct {
	RunID          string            `json:"run_id"`
	Environment    *Environment      `json:"environment"`
	Cookies        []Cookie          `json:"cookies"`
	Tests          []*TestDescriptor `json:"tests"`
	Console        []ConsoleEntry    `json:"console"`
	MutatedRequest *MutatedRequest   `json:"mutated_request,omitempty"`
	Duration       time.Duration     `json:"duration"`
}

// MutatedRequest captures request fields a pre-request script changed
type MutatedRequest struct {
	Method  string   `json:"method"`
	URL     string   `json:"url"`
	Headers []Header `json:"headers"`
	Body    string   `json:"body,omitempty"`
}

// Header is one ordered header pair
type Header struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// ScriptFailure kinds
const (
	FailureScriptError        = "script_error"
	FailureTimeout            = "timeout"
	FailureUnsupportedFeature = "unsupported_feature"
)

// ScriptFailure describes a run that did not produce a RunResult
type ScriptFailure struct {
	Kind         string            `json:"kind"`
	Message      string            `json:"message"`
	PartialTests []*TestDescriptor `json:"partial_tests,omitempty"`
}

// Error implements the error interface
func (f *ScriptFailure) Error() string {
	return f.Kind + ": " + f.Message
}
