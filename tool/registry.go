package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/agentchain/core"
	"github.com/hupe1980/agentchain/logging"
)

const tracerName = "github.com/hupe1980/agentchain/tool"

// RegistryOptions configures a Registry.
type RegistryOptions struct {
	// MaxParallel bounds concurrently executing calls within one DispatchAll.
	// 0 or less means no limit (one goroutine per call).
	MaxParallel int
	// Logger receives dispatch diagnostics (defaults to NoOpLogger).
	Logger logging.Logger
	// TracerProvider creates tool.call spans (defaults to the global provider).
	TracerProvider trace.TracerProvider
}

// Registry maps tool names to Tools and dispatches model tool-call requests.
//
// Names are unique: registering a second tool with an existing name fails
// with ErrDuplicateTool and leaves the registry unchanged. Lookup is purely
// by name; the concrete tool type is never inspected.
type Registry struct {
	mu     sync.RWMutex
	tools  map[string]Tool
	order  []string
	opts   RegistryOptions
	tracer trace.Tracer
}

// NewRegistry creates an empty registry.
func NewRegistry(optFns ...func(o *RegistryOptions)) *Registry {
	opts := RegistryOptions{
		Logger: logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	tp := opts.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &Registry{
		tools:  make(map[string]Tool),
		opts:   opts,
		tracer: tp.Tracer(tracerName),
	}
}

// Register adds tools in order. It fails on the first empty or duplicate name;
// tools preceding the failing one remain registered.
func (r *Registry) Register(tools ...Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, t := range tools {
		if t == nil {
			return fmt.Errorf("register tool %d: nil tool", i)
		}
		name := t.Definition().Name
		if name == "" {
			return fmt.Errorf("register tool: empty name")
		}
		if _, exists := r.tools[name]; exists {
			return fmt.Errorf("register tool %q: %w", name, ErrDuplicateTool)
		}
		r.tools[name] = t
		r.order = append(r.order, name)
	}
	return nil
}

// Get retrieves a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Names returns tool names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Definitions returns tool definitions in registration order.
func (r *Registry) Definitions() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]Definition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.tools[name].Definition())
	}
	return defs
}

// Result is the normalized outcome of one dispatched tool call.
type Result struct {
	Call     core.ToolCall
	Output   any    // value returned by the tool, unchanged; nil on failure
	Content  string // textual rendering handed back to the model
	Err      error  // *NotFoundError, *ArgumentDecodeError or *CallError
	Duration time.Duration
}

// Message converts the result into the tool-result transcript message.
func (res Result) Message() core.Message {
	return core.NewToolMessage(res.Call, res.Content, res.Err != nil)
}

// Dispatch resolves call.Name, decodes call.Arguments and invokes the tool.
// It never panics and never returns an error directly: every failure is
// recorded in Result.Err and rendered into Result.Content.
func (r *Registry) Dispatch(ctx context.Context, call core.ToolCall) Result {
	ctx, span := r.tracer.Start(ctx, "tool.call", trace.WithAttributes(
		attribute.String("tool.name", call.Name),
		attribute.String("tool.call_id", call.ID),
	))
	defer span.End()

	start := time.Now()
	logger := r.opts.Logger
	logger.Debug("tool.call.start", "tool", call.Name, "call_id", call.ID)

	res := Result{Call: call}
	res.Output, res.Err = r.invoke(ctx, call)
	res.Duration = time.Since(start)

	if res.Err != nil {
		res.Content = res.Err.Error()
		span.RecordError(res.Err)
		span.SetStatus(codes.Error, res.Err.Error())
		logger.Warn("tool.call.error", "tool", call.Name, "call_id", call.ID, "error", res.Err.Error())
		return res
	}

	res.Content = render(res.Output)
	logger.Info("tool.call.success", "tool", call.Name, "call_id", call.ID, "duration_ms", res.Duration.Milliseconds())
	return res
}

func (r *Registry) invoke(ctx context.Context, call core.ToolCall) (out any, err error) {
	t, ok := r.Get(call.Name)
	if !ok {
		return nil, &NotFoundError{Tool: call.Name}
	}

	args, err := t.Decode(call.Arguments)
	if err != nil {
		return nil, &ArgumentDecodeError{Tool: call.Name, Err: err}
	}

	if err := ctx.Err(); err != nil {
		return nil, &CallError{Tool: call.Name, Err: err}
	}

	defer func() { // panic safety
		if rec := recover(); rec != nil {
			out = nil
			err = &CallError{Tool: call.Name, Err: panicError(rec)}
		}
	}()

	out, err = t.Call(ctx, args)
	if err != nil {
		return nil, &CallError{Tool: call.Name, Err: err}
	}
	return out, nil
}

// DispatchAll executes all calls of one model turn concurrently and returns
// their results in request order, regardless of completion order. It returns
// only after every call has finished.
func (r *Registry) DispatchAll(ctx context.Context, calls []core.ToolCall) []Result {
	n := len(calls)
	if n == 0 {
		return nil
	}
	results := make([]Result, n)

	// Fast path: single call, execute inline.
	if n == 1 {
		results[0] = r.Dispatch(ctx, calls[0])
		return results
	}

	g, gctx := errgroup.WithContext(ctx)
	if r.opts.MaxParallel > 0 {
		g.SetLimit(r.opts.MaxParallel)
	}

	batchStart := time.Now()
	for i, call := range calls {
		g.Go(func() error {
			results[i] = r.Dispatch(gctx, call)
			return nil
		})
	}
	_ = g.Wait()

	r.opts.Logger.Debug(
		"tool.batch.complete",
		"count", n,
		"parallelism", r.opts.MaxParallel,
		"duration_ms", time.Since(batchStart).Milliseconds(),
	)
	return results
}

// render produces the model-facing text for a successful tool output.
func render(v any) string {
	switch o := v.(type) {
	case nil:
		return ""
	case string:
		return o
	case []byte:
		return string(o)
	case fmt.Stringer:
		return o.String()
	}
	if b, err := json.Marshal(v); err == nil {
		return string(b)
	}
	return fmt.Sprintf("%v", v)
}

// panicError converts a recovered panic value to an error.
func panicError(r any) error { return &panicErr{val: r, stack: debug.Stack()} }

type panicErr struct {
	val   any
	stack []byte
}

func (p *panicErr) Error() string { return fmt.Sprintf("panic recovered: %v", p.val) }
