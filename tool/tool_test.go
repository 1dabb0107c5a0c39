package tool

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/hupe1980/agentchain/core"
)

type sumArgs struct {
	A float64 `json:"a" description:"First addend"`
	B float64 `json:"b" description:"Second addend"`
}

type sumResult struct {
	Sum float64 `json:"sum"`
}

func newSumTool(calls *int32) *Func[sumArgs, sumResult] {
	return New("sum", "Add numbers", func(_ context.Context, args sumArgs) (sumResult, error) {
		atomic.AddInt32(calls, 1)
		return sumResult{Sum: args.A + args.B}, nil
	})
}

func call(name, args string) core.ToolCall {
	return core.ToolCall{ID: core.NewID(), Name: name, Arguments: json.RawMessage(args)}
}

func TestFunc_Definition(t *testing.T) {
	var n int32
	def := newSumTool(&n).Definition()
	assert.Equal(t, "sum", def.Name)
	assert.Equal(t, "Add numbers", def.Description)
	assert.Equal(t, "object", def.Parameters["type"])
	assert.ElementsMatch(t, []string{"a", "b"}, def.Parameters["required"])
}

func TestDispatch_Success(t *testing.T) {
	var n int32
	r := NewRegistry()
	require.NoError(t, r.Register(newSumTool(&n)))

	res := r.Dispatch(context.Background(), call("sum", `{"a": 2, "b": 3}`))
	require.NoError(t, res.Err)
	assert.Equal(t, sumResult{Sum: 5}, res.Output)
	assert.JSONEq(t, `{"sum":5}`, res.Content)
	assert.Equal(t, int32(1), n)

	msg := res.Message()
	assert.Equal(t, core.RoleTool, msg.Role)
	assert.Equal(t, res.Call.ID, msg.ToolCallID)
	assert.False(t, msg.Error)
}

func TestDispatch_MalformedArgumentsNeverInvokeTool(t *testing.T) {
	var n int32
	r := NewRegistry()
	require.NoError(t, r.Register(newSumTool(&n)))

	for _, raw := range []string{`{"a": 1}`, `{"a": "x", "b": 2}`, `not json`, `[1, 2]`, ``} {
		res := r.Dispatch(context.Background(), call("sum", raw))

		var decodeErr *ArgumentDecodeError
		require.True(t, errors.As(res.Err, &decodeErr), "payload %q: %v", raw, res.Err)
		assert.Equal(t, "sum", decodeErr.Tool)
		assert.Equal(t, CodeValidationError, decodeErr.Code())
		assert.Nil(t, res.Output)
		assert.Contains(t, res.Content, CodeValidationError)
		assert.True(t, res.Message().Error)
	}
	assert.Equal(t, int32(0), n)
}

func TestDispatch_NotFound(t *testing.T) {
	r := NewRegistry()
	res := r.Dispatch(context.Background(), call("missing", `{}`))

	var nf *NotFoundError
	require.True(t, errors.As(res.Err, &nf))
	assert.Equal(t, "missing", nf.Tool)
	assert.Contains(t, res.Content, CodeNotFound)
}

func TestDispatch_CallErrorWrapsCause(t *testing.T) {
	cause := errors.New("boom")
	failing := NewFunctionTool("fail", "Fails", nil, func(context.Context, map[string]any) (any, error) {
		return nil, cause
	})
	r := NewRegistry()
	require.NoError(t, r.Register(failing))

	res := r.Dispatch(context.Background(), call("fail", `{}`))

	var callErr *CallError
	require.True(t, errors.As(res.Err, &callErr))
	assert.ErrorIs(t, res.Err, cause)
	assert.Equal(t, CodeExecutionError, callErr.Code())
	assert.Contains(t, res.Content, "boom")
}

func TestDispatch_PanicRecovery(t *testing.T) {
	p := NewFunctionTool("panic", "Panics", nil, func(context.Context, map[string]any) (any, error) {
		panic("kaboom")
	})
	r := NewRegistry()
	require.NoError(t, r.Register(p))

	res := r.Dispatch(context.Background(), call("panic", `{}`))

	var callErr *CallError
	require.True(t, errors.As(res.Err, &callErr))
	assert.Contains(t, res.Content, "kaboom")
}

func TestDispatch_CancelledBeforeCall(t *testing.T) {
	var n int32
	r := NewRegistry()
	require.NoError(t, r.Register(newSumTool(&n)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := r.Dispatch(ctx, call("sum", `{"a": 1, "b": 2}`))
	assert.ErrorIs(t, res.Err, context.Canceled)
	assert.Equal(t, int32(0), n)
}

func TestFunctionTool_MapArguments(t *testing.T) {
	params := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"city": map[string]any{"type": "string"},
		},
		"required": []string{"city"},
	}
	weather := NewFunctionTool("weather", "Weather lookup", params, func(_ context.Context, args map[string]any) (any, error) {
		return "sunny in " + args["city"].(string), nil
	})
	r := NewRegistry()
	require.NoError(t, r.Register(weather))

	res := r.Dispatch(context.Background(), call("weather", `{"city":"Berlin"}`))
	require.NoError(t, res.Err)
	assert.Equal(t, "sunny in Berlin", res.Output)
	assert.Equal(t, "sunny in Berlin", res.Content)

	res = r.Dispatch(context.Background(), call("weather", `{"city":7}`))
	var decodeErr *ArgumentDecodeError
	assert.True(t, errors.As(res.Err, &decodeErr))
}

func TestNewFunctionToolFromStruct(t *testing.T) {
	ft := NewFunctionToolFromStruct("sum", "Add", sumArgs{}, func(_ context.Context, args map[string]any) (any, error) {
		return args["a"].(float64) + args["b"].(float64), nil
	})
	args, err := ft.Decode(json.RawMessage(`{"a":1.5,"b":2}`))
	require.NoError(t, err)

	out, err := ft.Call(context.Background(), args)
	require.NoError(t, err)
	assert.Equal(t, 3.5, out)

	_, err = ft.Call(context.Background(), "wrong")
	assert.Error(t, err)
}

func TestRegistry_DuplicateNameFails(t *testing.T) {
	var n int32
	r := NewRegistry()
	require.NoError(t, r.Register(newSumTool(&n)))

	err := r.Register(newSumTool(&n))
	assert.ErrorIs(t, err, ErrDuplicateTool)
	assert.Equal(t, 1, r.Len())
	assert.Equal(t, []string{"sum"}, r.Names())
}

func TestRegistry_NilToolFails(t *testing.T) {
	r := NewRegistry()

	var err error
	assert.NotPanics(t, func() { err = r.Register(nil) })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nil tool")
	assert.Equal(t, 0, r.Len())
}

func TestRegistry_DefinitionsInRegistrationOrder(t *testing.T) {
	mk := func(name string) Tool {
		return NewFunctionTool(name, name, nil, func(context.Context, map[string]any) (any, error) { return nil, nil })
	}
	r := NewRegistry()
	require.NoError(t, r.Register(mk("zeta"), mk("alpha"), mk("mid")))

	defs := r.Definitions()
	require.Len(t, defs, 3)
	assert.Equal(t, "zeta", defs[0].Name)
	assert.Equal(t, "alpha", defs[1].Name)
	assert.Equal(t, "mid", defs[2].Name)

	assert.Error(t, r.Register(mk("")))
}

func sleeper(name string, d time.Duration, inFlight, peak *int32) Tool {
	return NewFunctionTool(name, "sleeps", nil, func(ctx context.Context, _ map[string]any) (any, error) {
		cur := atomic.AddInt32(inFlight, 1)
		defer atomic.AddInt32(inFlight, -1)
		for {
			old := atomic.LoadInt32(peak)
			if cur <= old || atomic.CompareAndSwapInt32(peak, old, cur) {
				break
			}
		}
		select {
		case <-time.After(d):
			return name, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})
}

func TestDispatchAll_PreservesRequestOrder(t *testing.T) {
	var inFlight, peak int32
	r := NewRegistry()
	require.NoError(t, r.Register(
		sleeper("slow", 60*time.Millisecond, &inFlight, &peak),
		sleeper("fast", 5*time.Millisecond, &inFlight, &peak),
	))

	start := time.Now()
	results := r.DispatchAll(context.Background(), []core.ToolCall{call("slow", `{}`), call("fast", `{}`)})
	elapsed := time.Since(start)

	require.Len(t, results, 2)
	assert.Equal(t, "slow", results[0].Output)
	assert.Equal(t, "fast", results[1].Output)
	assert.GreaterOrEqual(t, elapsed, 60*time.Millisecond)
	assert.Less(t, elapsed, 150*time.Millisecond, "calls should run in parallel")
	assert.Equal(t, int32(2), atomic.LoadInt32(&peak))
}

func TestDispatchAll_MaxParallel(t *testing.T) {
	var inFlight, peak int32
	r := NewRegistry(func(o *RegistryOptions) { o.MaxParallel = 1 })
	require.NoError(t, r.Register(
		sleeper("a", 10*time.Millisecond, &inFlight, &peak),
		sleeper("b", 10*time.Millisecond, &inFlight, &peak),
		sleeper("c", 10*time.Millisecond, &inFlight, &peak),
	))

	results := r.DispatchAll(context.Background(), []core.ToolCall{call("a", `{}`), call("b", `{}`), call("c", `{}`)})
	require.Len(t, results, 3)
	assert.Equal(t, int32(1), atomic.LoadInt32(&peak))
}

func TestDispatchAll_ErrorIsolation(t *testing.T) {
	var n int32
	r := NewRegistry()
	require.NoError(t, r.Register(newSumTool(&n)))

	results := r.DispatchAll(context.Background(), []core.ToolCall{
		call("sum", `{"a":1,"b":1}`),
		call("nope", `{}`),
		call("sum", `{"a":"bad"}`),
	})
	require.Len(t, results, 3)
	assert.NoError(t, results[0].Err)
	assert.IsType(t, &NotFoundError{}, results[1].Err)
	assert.IsType(t, &ArgumentDecodeError{}, results[2].Err)
}

func TestDispatchAll_Empty(t *testing.T) {
	assert.Nil(t, NewRegistry().DispatchAll(context.Background(), nil))
}

func TestDispatch_RecordsSpan(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))

	r := NewRegistry(func(o *RegistryOptions) { o.TracerProvider = tp })
	r.Dispatch(context.Background(), call("missing", `{}`))

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "tool.call", spans[0].Name())
	assert.NotEmpty(t, spans[0].Events(), "error should be recorded as span event")
}
