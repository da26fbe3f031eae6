// Package tools defines the calendar tools available to the agent.
//
// This file defines sentinel error types for tool execution. They let the
// agent loop distinguish local validation failures (fix the call and try
// again) from calendar-service failures (apply retry/swap policy).
package tools

import "fmt"

// UnknownToolError is returned when a tool call targets a tool that is
// not present in the registry. This indicates a capability mismatch, not
// a transient execution failure.
type UnknownToolError struct {
	ToolName string
}

// Error implements the error interface.
func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("tool %q is not available", e.ToolName)
}

// UnresolvedIDError is returned when a mutation references an event ID
// that no read in the current cycle produced. The call is rejected
// locally and never reaches the calendar service: the agent must resolve
// IDs through get_all_schedules or get_id_of_schedules first, never
// guess them.
type UnresolvedIDError struct {
	ToolName string
	EventID  string
}

// Error implements the error interface.
func (e *UnresolvedIDError) Error() string {
	return fmt.Sprintf("%s: event id %q was not resolved by a lookup in this conversation turn", e.ToolName, e.EventID)
}

// ArgumentError is returned for missing or malformed tool arguments,
// before any request is sent to the calendar service.
type ArgumentError struct {
	ToolName string
	Reason   string
}

// Error implements the error interface.
func (e *ArgumentError) Error() string {
	return fmt.Sprintf("%s: %s", e.ToolName, e.Reason)
}

// IsValidation reports whether err is a local pre-dispatch rejection
// rather than a calendar-service failure.
func IsValidation(err error) bool {
	switch err.(type) {
	case *UnknownToolError, *UnresolvedIDError, *ArgumentError:
		return true
	}
	return false
}
