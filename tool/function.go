package tool

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/hupe1980/agentchain/internal/schema"
)

// Func adapts a typed Go function into a Tool.
//
// The parameter schema is derived from the argument struct A (json tags name
// the properties, `description` tags document them, non-pointer fields without
// omitempty are required). Decode validates the raw payload against that
// schema and then unmarshals it into A, so fn only ever sees well-formed input.
//
// A Func has no mutable state after construction and is safe for concurrent use.
type Func[A, O any] struct {
	def       Definition
	validator *schema.Validator
	schemaErr error
	fn        func(ctx context.Context, args A) (O, error)
}

// New constructs a typed tool.
//
// Example:
//
//	type SumArgs struct {
//	  A float64 `json:"a" description:"First addend"`
//	  B float64 `json:"b" description:"Second addend"`
//	}
//
//	sum := tool.New("calculate_sum", "Calculate the sum of two numbers",
//	  func(_ context.Context, args SumArgs) (float64, error) {
//	    return args.A + args.B, nil
//	  },
//	)
func New[A, O any](name, description string, fn func(ctx context.Context, args A) (O, error)) *Func[A, O] {
	var zero A
	params := schema.FromStruct(zero)
	v, err := schema.Compile(params)
	return &Func[A, O]{
		def:       Definition{Name: name, Description: description, Parameters: params},
		validator: v,
		schemaErr: err,
		fn:        fn,
	}
}

// Definition returns the published tool schema.
func (t *Func[A, O]) Definition() Definition { return t.def }

// Decode validates raw against the schema and unmarshals it into A.
func (t *Func[A, O]) Decode(raw json.RawMessage) (any, error) {
	if t.schemaErr != nil {
		return nil, fmt.Errorf("invalid parameter schema: %w", t.schemaErr)
	}
	if _, err := t.validator.DecodeObject(raw); err != nil {
		return nil, err
	}

	var args A
	if err := json.Unmarshal(normalize(raw), &args); err != nil {
		return nil, fmt.Errorf("decode arguments: %w", err)
	}
	return args, nil
}

// Call invokes the wrapped function with arguments produced by Decode.
func (t *Func[A, O]) Call(ctx context.Context, args any) (any, error) {
	typed, ok := args.(A)
	if !ok {
		return nil, fmt.Errorf("unexpected argument type %T, want %s", args, reflect.TypeOf((*A)(nil)).Elem())
	}
	return t.fn(ctx, typed)
}

// FunctionTool exposes a plain function taking a generic argument map as a Tool.
// It suits tools whose schema is written by hand rather than derived from a struct.
//
// Parameter Schema Expectations:
//
//	The parameters map follows JSON Schema (type, properties, required, enum, ...).
//	Decode validates the decoded object against it before fn ever runs.
type FunctionTool struct {
	def       Definition
	validator *schema.Validator
	schemaErr error
	fn        func(ctx context.Context, args map[string]any) (any, error)
}

// NewFunctionTool constructs a FunctionTool from an explicit schema and function.
//
// Example:
//
//	sumTool := NewFunctionTool(
//	  "calculate_sum",
//	  "Calculate the sum of two numbers",
//	  map[string]any{
//	    "type": "object",
//	    "properties": map[string]any{
//	      "a": map[string]any{"type": "number"},
//	      "b": map[string]any{"type": "number"},
//	    },
//	    "required": []string{"a", "b"},
//	  },
//	  func(_ context.Context, args map[string]any) (any, error) {
//	    return args["a"].(float64) + args["b"].(float64), nil
//	  },
//	)
func NewFunctionTool(
	name, description string,
	parameters map[string]any,
	fn func(ctx context.Context, args map[string]any) (any, error),
) *FunctionTool {
	v, err := schema.Compile(parameters)
	return &FunctionTool{
		def:       Definition{Name: name, Description: description, Parameters: parameters},
		validator: v,
		schemaErr: err,
		fn:        fn,
	}
}

// NewFunctionToolFromStruct derives the parameter schema from a struct using reflection.
func NewFunctionToolFromStruct(
	name, description string,
	structType any,
	fn func(ctx context.Context, args map[string]any) (any, error),
) *FunctionTool {
	return NewFunctionTool(name, description, schema.FromStruct(structType), fn)
}

// Definition returns the published tool schema.
func (t *FunctionTool) Definition() Definition { return t.def }

// Decode parses and validates raw into a map[string]any.
func (t *FunctionTool) Decode(raw json.RawMessage) (any, error) {
	if t.schemaErr != nil {
		return nil, fmt.Errorf("invalid parameter schema: %w", t.schemaErr)
	}
	return t.validator.DecodeObject(raw)
}

// Call invokes the wrapped function.
func (t *FunctionTool) Call(ctx context.Context, args any) (any, error) {
	m, ok := args.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("unexpected argument type %T, want map[string]any", args)
	}
	return t.fn(ctx, m)
}

func normalize(raw json.RawMessage) json.RawMessage {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return json.RawMessage("{}")
	}
	return raw
}
