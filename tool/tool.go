// Package tool implements the tool calling subsystem that lets agents invoke
// structured capabilities (computations, lookups, side-effects) mid-reasoning.
// Arguments produced by the model are decoded and schema validated before a
// tool runs, and every failure is normalized into a typed error the reasoning
// loop can hand back to the model.
package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Definition is the schema a remote model uses to decide whether and how to
// request a tool. It is immutable once published to the model.
type Definition struct {
	Name        string         `json:"name"`        // Unique within one agent's registry
	Description string         `json:"description"` // Shown to the model
	Parameters  map[string]any `json:"parameters"`  // JSON Schema object (type/properties/required)
}

// Tool is a named, schema-described unit of computation an agent may invoke.
//
// Decode turns the raw argument payload from a model turn into the tool's
// typed argument value, validating it against Definition().Parameters. Call
// is the only side-effecting operation and only ever receives values produced
// by Decode.
//
// Implementations must tolerate concurrent Call invocations: the model may
// request several calls in one turn and they are dispatched in parallel.
type Tool interface {
	Definition() Definition
	Decode(raw json.RawMessage) (any, error)
	Call(ctx context.Context, args any) (any, error)
}

// Error codes attached to tool failures. They are rendered into the tool
// result message so the model can tell failure kinds apart.
const (
	CodeNotFound        = "NOT_FOUND"
	CodeValidationError = "VALIDATION_ERROR"
	CodeExecutionError  = "EXECUTION_ERROR"
)

// ErrDuplicateTool is returned when a registry already holds a tool with the same name.
var ErrDuplicateTool = errors.New("duplicate tool name")

// NotFoundError reports a model request for an unregistered tool name.
type NotFoundError struct {
	Tool string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("tool error [%s] in %s: tool is not registered", CodeNotFound, e.Tool)
}

// Code returns CodeNotFound.
func (e *NotFoundError) Code() string { return CodeNotFound }

// ArgumentDecodeError reports arguments that do not match the declared schema.
// The tool's Call is never invoked when this error is produced.
type ArgumentDecodeError struct {
	Tool string
	Err  error
}

func (e *ArgumentDecodeError) Error() string {
	return fmt.Sprintf("tool error [%s] in %s: %v", CodeValidationError, e.Tool, e.Err)
}

// Unwrap returns the underlying decode failure.
func (e *ArgumentDecodeError) Unwrap() error { return e.Err }

// Code returns CodeValidationError.
func (e *ArgumentDecodeError) Code() string { return CodeValidationError }

// CallError wraps a failure raised by the tool's own computation.
type CallError struct {
	Tool string
	Err  error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("tool error [%s] in %s: %v", CodeExecutionError, e.Tool, e.Err)
}

// Unwrap returns the opaque underlying cause.
func (e *CallError) Unwrap() error { return e.Err }

// Code returns CodeExecutionError.
func (e *CallError) Code() string { return CodeExecutionError }
