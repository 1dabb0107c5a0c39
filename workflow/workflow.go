package workflow

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/hupe1980/agentchain/agent"
	"github.com/hupe1980/agentchain/logging"
)

const tracerName = "github.com/hupe1980/agentchain/workflow"

// Runner is a single pipeline stage.
type Runner interface {
	Name() string
	Run(ctx context.Context, input string) (string, error)
}

var _ Runner = (*agent.Agent)(nil)

// Step records one completed agent invocation.
type Step struct {
	Agent  string `json:"agent"`
	Output string `json:"output"`
}

// Result is the outcome of a successful workflow run.
type Result struct {
	Output string `json:"output"`
	Trace  []Step `json:"trace"`
}

// Options configures a Workflow.
type Options struct {
	// Logger receives step diagnostics (defaults to NoOpLogger).
	Logger logging.Logger
	// TracerProvider creates workflow.run / workflow.step spans
	// (defaults to the global provider).
	TracerProvider trace.TracerProvider
}

// Workflow is an ordered sequence of agents. An empty sequence is valid and
// returns the task unchanged.
type Workflow struct {
	name   string
	agents []Runner
	opts   Options
	tracer trace.Tracer

	// mu serializes runs so each agent is owned by at most one run at a time.
	mu sync.Mutex
}

// New creates a workflow running agents in the given order.
func New(name string, agents []Runner, optFns ...func(o *Options)) *Workflow {
	opts := Options{
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
	return &Workflow{
		name:   name,
		agents: append([]Runner(nil), agents...),
		opts:   opts,
		tracer: tp.Tracer(tracerName),
	}
}

// Name returns the workflow name.
func (w *Workflow) Name() string { return w.name }

// Agents returns the agent names in execution order.
func (w *Workflow) Agents() []string {
	names := make([]string, len(w.agents))
	for i, a := range w.agents {
		names[i] = a.Name()
	}
	return names
}

// Len returns the number of agents.
func (w *Workflow) Len() int { return len(w.agents) }

// Run executes the pipeline and returns the last agent's output.
func (w *Workflow) Run(ctx context.Context, task string) (string, error) {
	res, err := w.RunWithTrace(ctx, task)
	if err != nil {
		return "", err
	}
	return res.Output, nil
}

// RunWithTrace executes the pipeline and returns the final output together
// with every agent's output in execution order. On failure the returned
// *Error carries the trace up to, but excluding, the failing agent.
func (w *Workflow) RunWithTrace(ctx context.Context, task string) (*Result, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	ctx, span := w.tracer.Start(ctx, "workflow.run", trace.WithAttributes(
		attribute.String("workflow.name", w.name),
		attribute.Int("workflow.agents", len(w.agents)),
	))
	defer span.End()

	logger := w.opts.Logger
	start := time.Now()
	logger.Info("workflow.run.start", "workflow", w.name, "agents", len(w.agents))

	input := task
	trail := make([]Step, 0, len(w.agents))
	for i, a := range w.agents {
		out, err := w.step(ctx, i, a, input)
		if err != nil {
			werr := &Error{Index: i, Agent: a.Name(), Trace: trail, Err: err}
			span.RecordError(werr)
			span.SetStatus(codes.Error, werr.Error())
			logger.Error("workflow.run.error", "workflow", w.name, "index", i, "agent", a.Name(),
				"cancelled", werr.Cancelled(), "error", err.Error())
			return nil, werr
		}
		trail = append(trail, Step{Agent: a.Name(), Output: out})
		input = out
	}

	logger.Info("workflow.run.complete", "workflow", w.name, "steps", len(trail),
		"duration_ms", time.Since(start).Milliseconds())
	return &Result{Output: input, Trace: trail}, nil
}

func (w *Workflow) step(ctx context.Context, i int, a Runner, input string) (string, error) {
	ctx, span := w.tracer.Start(ctx, "workflow.step", trace.WithAttributes(
		attribute.String("workflow.name", w.name),
		attribute.Int("workflow.step", i),
		attribute.String("agent.name", a.Name()),
	))
	defer span.End()

	if err := ctx.Err(); err != nil {
		return "", err
	}

	w.opts.Logger.Debug("workflow.step.start", "workflow", w.name, "index", i, "agent", a.Name())
	out, err := a.Run(ctx, input)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	w.opts.Logger.Debug("workflow.step.complete", "workflow", w.name, "index", i, "agent", a.Name(),
		"output_len", len(out))
	return out, nil
}
