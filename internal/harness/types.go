package harness

import (
	"github.com/roach88/mudsync/internal/codec"
	"github.com/roach88/mudsync/internal/dispatch"
	"github.com/roach88/mudsync/internal/handler"
)

// ErrorCodes maps expect_error names to the sentinel the event must match.
var ErrorCodes = map[string]error{
	"invalid_table_id":     dispatch.ErrInvalidTableID,
	"invalid_data":         handler.ErrInvalidData,
	"invalid_native_type":  handler.ErrInvalidNativeType,
	"invalid_native_value": handler.ErrInvalidNativeValue,
	"unknown_event":        codec.ErrUnknownEvent,
	"malformed_log":        codec.ErrMalformedLog,
}

// EventOutcome records what happened to one scenario event.
type EventOutcome struct {
	Kind  string `json:"kind"`
	Table string `json:"table"`
	Block uint64 `json:"block"`

	// Outcome is "applied" or the matching ErrorCodes name.
	Outcome string `json:"outcome"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	Pass bool `json:"pass"`

	// Events holds one outcome per scenario event, in order.
	Events []EventOutcome `json:"events"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Snapshot is the final store converted for canonical JSON.
	Snapshot map[string]any `json:"snapshot,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Events: []EventOutcome{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
