package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/hupe1980/agentchain/core"
	"github.com/hupe1980/agentchain/logging"
	"github.com/hupe1980/agentchain/model"
	"github.com/hupe1980/agentchain/tool"
)

const tracerName = "github.com/hupe1980/agentchain/agent"

// Agent is a model-backed reasoning agent. It is safe to reuse across runs;
// runs on the same agent do not share transcript state.
type Agent struct {
	cfg      Config
	llm      model.Model
	registry *tool.Registry
	tools    []model.ToolDefinition
	opts     Options
	tracer   trace.Tracer

	mu         sync.RWMutex
	transcript []core.Message
}

// New validates cfg and creates an agent bound to llm.
func New(cfg Config, llm model.Model, optFns ...func(o *Options)) (*Agent, error) {
	if llm == nil {
		return nil, fmt.Errorf("agent %q: model is required", cfg.Name)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

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

	registry := tool.NewRegistry(func(o *tool.RegistryOptions) {
		o.MaxParallel = opts.MaxParallelTools
		o.Logger = opts.Logger
		o.TracerProvider = tp
	})
	if err := registry.Register(cfg.Tools...); err != nil {
		return nil, fmt.Errorf("agent %q: %w", cfg.Name, err)
	}

	defs := registry.Definitions()
	tools := make([]model.ToolDefinition, 0, len(defs))
	for _, d := range defs {
		tools = append(tools, model.ToolDefinition{
			Name:        d.Name,
			Description: d.Description,
			Parameters:  d.Parameters,
		})
	}

	return &Agent{
		cfg:      cfg,
		llm:      llm,
		registry: registry,
		tools:    tools,
		opts:     opts,
		tracer:   tp.Tracer(tracerName),
	}, nil
}

// Name returns the agent's display name.
func (a *Agent) Name() string { return a.cfg.Name }

// Config returns a copy of the agent's configuration with defaults applied.
func (a *Agent) Config() Config {
	c := a.cfg
	c.StopWords = append([]string(nil), a.cfg.StopWords...)
	c.Tools = append([]tool.Tool(nil), a.cfg.Tools...)
	return c
}

// Transcript returns the messages of the most recent run that completed
// successfully, or nil if none has.
func (a *Agent) Transcript() []core.Message {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.transcript == nil {
		return nil
	}
	out := make([]core.Message, len(a.transcript))
	for i, m := range a.transcript {
		out[i] = m.Clone()
	}
	return out
}

// run carries the mutable state of one Run.
type run struct {
	transcript *core.Transcript
	turns      int
	tokens     int64
	lastText   string
}

// Run executes the reasoning loop for task and returns the final text.
//
// Errors: a *model.TransportError in the chain for provider failures, an
// error matching ErrCancelled (and ctx.Err()) on cancellation, and
// *BudgetExhaustedError when the budget runs out under BudgetFail.
func (a *Agent) Run(ctx context.Context, task string) (output string, err error) {
	ctx, span := a.tracer.Start(ctx, "agent.run", trace.WithAttributes(
		attribute.String("agent.name", a.cfg.Name),
		attribute.Int("agent.max_turns", a.cfg.MaxTurns),
		attribute.Int("agent.tools", len(a.tools)),
	))
	defer span.End()

	logger := a.opts.Logger
	start := time.Now()
	logger.Info("agent.run.start", "agent", a.cfg.Name, "task_len", len(task))

	user := core.NewUserMessage(task)
	user.Name = a.cfg.UserName

	var seed []core.Message
	if a.cfg.SystemPrompt != "" {
		seed = append(seed, core.NewSystemMessage(a.cfg.SystemPrompt))
	}
	seed = append(seed, user)

	r := &run{transcript: core.NewTranscript(seed...)}

	defer func() {
		span.SetAttributes(
			attribute.Int("agent.turns", r.turns),
			attribute.Int64("agent.tokens", r.tokens),
		)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			logger.Warn("agent.run.error", "agent", a.cfg.Name, "turns", r.turns, "error", err.Error())
			return
		}
		a.mu.Lock()
		a.transcript = r.transcript.Messages()
		a.mu.Unlock()
		logger.Info("agent.run.complete", "agent", a.cfg.Name, "turns", r.turns,
			"tokens", r.tokens, "duration_ms", time.Since(start).Milliseconds())
	}()

	for r.turns < a.cfg.MaxTurns {
		if cerr := ctx.Err(); cerr != nil {
			return "", cancelled(a.cfg.Name, cerr)
		}
		r.turns++

		text, done, terr := a.turn(ctx, r)
		if terr != nil {
			return "", terr
		}
		if done {
			return text, nil
		}
		if a.cfg.TokenBudget > 0 && r.tokens >= a.cfg.TokenBudget {
			return a.exhausted(r, "token budget")
		}
	}
	return a.exhausted(r, "max turns")
}

// turn performs one model round trip. It reports done when the run completes
// with text.
func (a *Agent) turn(ctx context.Context, r *run) (string, bool, error) {
	ctx, span := a.tracer.Start(ctx, "agent.turn", trace.WithAttributes(
		attribute.String("agent.name", a.cfg.Name),
		attribute.Int("agent.turn", r.turns),
	))
	defer span.End()

	req := model.Request{
		Messages:    r.transcript.Messages(),
		Tools:       a.tools,
		Temperature: a.cfg.Temperature,
		MaxTokens:   a.cfg.MaxTokens,
	}

	resp, err := a.llm.Generate(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if cerr := ctx.Err(); cerr != nil {
			return "", false, cancelled(a.cfg.Name, cerr)
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", false, cancelled(a.cfg.Name, err)
		}
		var te *model.TransportError
		if !errors.As(err, &te) {
			err = model.NewTransportError(a.llm.Info().Provider, err)
		}
		return "", false, fmt.Errorf("agent %q turn %d: %w", a.cfg.Name, r.turns, err)
	}
	if resp == nil {
		resp = &model.Response{}
	}

	if resp.Usage != nil {
		used := resp.Usage.TotalTokens
		if used == 0 {
			used = resp.Usage.PromptTokens + resp.Usage.CompletionTokens
		}
		r.tokens += used
		span.SetAttributes(attribute.Int64("agent.turn.tokens", used))
	}
	if strings.TrimSpace(resp.Text) != "" {
		r.lastText = resp.Text
	}

	if resp.HasToolCalls() {
		return "", false, a.dispatch(ctx, r, resp)
	}

	if len(a.cfg.StopWords) == 0 {
		r.transcript.Append(core.NewAssistantMessage(resp.Text))
		return resp.Text, true, nil
	}

	if out, ok := truncateAtStop(resp.Text, a.cfg.StopWords); ok {
		r.transcript.Append(core.NewAssistantMessage(out))
		a.opts.Logger.Debug("agent.stop_word", "agent", a.cfg.Name, "turn", r.turns)
		return out, true, nil
	}

	r.transcript.Append(core.NewAssistantMessage(resp.Text))
	return "", false, nil
}

// dispatch records the assistant's tool requests, runs them concurrently and
// appends one tool-result message per request in request order.
func (a *Agent) dispatch(ctx context.Context, r *run, resp *model.Response) error {
	calls := make([]core.ToolCall, len(resp.ToolCalls))
	for i, c := range resp.ToolCalls {
		if c.ID == "" {
			c.ID = core.NewID()
		}
		calls[i] = c
	}
	r.transcript.Append(core.NewAssistantMessage(resp.Text, calls...))

	a.opts.Logger.Debug("agent.tools.dispatch", "agent", a.cfg.Name, "turn", r.turns, "count", len(calls))
	results := a.registry.DispatchAll(ctx, calls)

	if cerr := ctx.Err(); cerr != nil {
		return cancelled(a.cfg.Name, cerr)
	}

	msgs := make([]core.Message, len(results))
	for i, res := range results {
		msgs[i] = res.Message()
	}
	r.transcript.Append(msgs...)
	return nil
}

func (a *Agent) exhausted(r *run, reason string) (string, error) {
	a.opts.Logger.Info("agent.budget.exhausted", "agent", a.cfg.Name, "reason", reason,
		"turns", r.turns, "tokens", r.tokens, "policy", a.cfg.OnBudgetExhausted.String())
	if a.cfg.OnBudgetExhausted == BudgetFail {
		return "", &BudgetExhaustedError{
			Agent:      a.cfg.Name,
			Turns:      r.turns,
			TokensUsed: r.tokens,
			Reason:     reason,
			LastText:   r.lastText,
		}
	}
	return r.lastText, nil
}
