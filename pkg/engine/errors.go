// Package engine implements the strategy resolution engine: it composes
// inherited strategy definitions into ordered step sequences, resolves
// disk and partition selection under size constraints, and executes the
// resulting plan against a storage backend.
package engine

import (
	"errors"
	"fmt"
)

// ErrorClass separates definition-time problems, which are detected before
// any disk is touched, from execution-time failures, which abort the
// remaining steps of the running strategy.
type ErrorClass string

const (
	// ErrorClassDefinition covers strategy registration and inheritance
	// problems. Always fatal to the affected strategy.
	ErrorClassDefinition ErrorClass = "definition"

	// ErrorClassExecution covers failures while interpreting a composed
	// step sequence against the storage backend.
	ErrorClassExecution ErrorClass = "execution"
)

// Error codes for programmatic handling.
const (
	ErrCodeDefinition           = "DEFINITION_ERROR"
	ErrCodeCyclicInheritance    = "CYCLIC_INHERITANCE"
	ErrCodeUnboundReference     = "UNBOUND_REFERENCE"
	ErrCodeNoMatchingDisk       = "NO_MATCHING_DISK"
	ErrCodeInsufficientSpace    = "INSUFFICIENT_SPACE"
	ErrCodeUnsupportedTableType = "UNSUPPORTED_TABLE_TYPE"
	ErrCodeDiskNotEmpty         = "DISK_NOT_EMPTY"
	ErrCodePartitionNotFound    = "PARTITION_NOT_FOUND"
	ErrCodeBackend              = "BACKEND_ERROR"
)

// EngineError is a classified error with strategy and step context.
type EngineError struct {
	// Class is the error classification.
	Class ErrorClass `json:"class"`

	// Code identifies the failure for programmatic handling.
	Code string `json:"code"`

	// Message is the human-readable error message.
	Message string `json:"message"`

	// Strategy is the name of the strategy being registered or executed.
	Strategy string `json:"strategy,omitempty"`

	// StepIndex is the index into the composed step sequence at which
	// execution failed. -1 when not applicable.
	StepIndex int `json:"step_index,omitempty"`

	// Err is the underlying error, if any.
	Err error `json:"-"`
}

// Error implements the error interface.
func (e *EngineError) Error() string {
	var context string
	switch {
	case e.Strategy != "" && e.StepIndex >= 0:
		context = fmt.Sprintf(" (strategy=%s, step=%d)", e.Strategy, e.StepIndex)
	case e.Strategy != "":
		context = fmt.Sprintf(" (strategy=%s)", e.Strategy)
	}
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s%s: %v", e.Code, e.Message, context, e.Err)
	}
	return fmt.Sprintf("[%s] %s%s", e.Code, e.Message, context)
}

// Unwrap returns the underlying error for error chain inspection.
func (e *EngineError) Unwrap() error {
	return e.Err
}

// Is implements error equality for errors.Is: two engine errors match when
// their codes match.
func (e *EngineError) Is(target error) bool {
	t, ok := target.(*EngineError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDefinitionError creates a definition-class error.
func NewDefinitionError(code, message string, err error) *EngineError {
	return &EngineError{
		Class:     ErrorClassDefinition,
		Code:      code,
		Message:   message,
		StepIndex: -1,
		Err:       err,
	}
}

// NewExecutionError creates an execution-class error.
func NewExecutionError(code, message string, err error) *EngineError {
	return &EngineError{
		Class:     ErrorClassExecution,
		Code:      code,
		Message:   message,
		StepIndex: -1,
		Err:       err,
	}
}

// WithStrategy attaches the strategy name to the error.
func (e *EngineError) WithStrategy(name string) *EngineError {
	e.Strategy = name
	return e
}

// WithStep attaches the failing step index to the error.
func (e *EngineError) WithStep(index int) *EngineError {
	e.StepIndex = index
	return e
}

// IsDefinition reports whether err is a definition-class engine error.
func IsDefinition(err error) bool {
	var e *EngineError
	if errors.As(err, &e) {
		return e.Class == ErrorClassDefinition
	}
	return false
}

// HasCode reports whether err is an engine error carrying the given code.
func HasCode(err error, code string) bool {
	var e *EngineError
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// CodeOf returns the engine error code carried by err, or the empty string.
func CodeOf(err error) string {
	var e *EngineError
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
