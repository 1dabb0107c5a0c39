// Package agentchain provides a high-level façade over config, model and
// workflow construction. Most applications interact with this package by:
//  1. Loading a config.Config (or using config.Default())
//  2. Creating a Chain via New(), which resolves the provider credential,
//     constructs the transport and builds the agents
//  3. Calling Run or RunWithTrace with a task
//
// Transport and credential lookup are injectable so hosts and tests can swap
// in their own model.Model.
package agentchain

import (
	"context"

	"go.opentelemetry.io/otel/trace"

	"github.com/hupe1980/agentchain/config"
	"github.com/hupe1980/agentchain/logging"
	"github.com/hupe1980/agentchain/model"
	"github.com/hupe1980/agentchain/tool"
	"github.com/hupe1980/agentchain/workflow"
)

// Options configures a Chain.
type Options struct {
	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
	// TracerProvider for agent, tool and workflow spans (defaults to the global provider).
	TracerProvider trace.TracerProvider
	// Tools overrides the catalog agents reference by name.
	Tools map[string]tool.Tool

	// ResolveAPIKey defaults to config.ResolveAPIKey.
	ResolveAPIKey func(p config.ProviderConfig) (string, error)
	// NewModel defaults to config.NewModel.
	NewModel func(p config.ProviderConfig, apiKey string) (model.Model, error)
}

// Chain is a configured, ready-to-run workflow.
type Chain struct {
	cfg      config.Config
	llm      model.Model
	workflow *workflow.Workflow
}

// New resolves the credential, creates the transport and builds the workflow
// described by cfg. A missing credential is reported here, before any agent runs.
func New(cfg config.Config, optFns ...func(o *Options)) (*Chain, error) {
	opts := Options{
		Logger:        logging.NoOpLogger{},
		ResolveAPIKey: config.ResolveAPIKey,
		NewModel:      config.NewModel,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	config.Normalize(&cfg)
	if err := config.Validate(&cfg, opts.Tools); err != nil {
		return nil, err
	}

	apiKey, err := opts.ResolveAPIKey(cfg.Provider)
	if err != nil {
		return nil, err
	}
	llm, err := opts.NewModel(cfg.Provider, apiKey)
	if err != nil {
		return nil, err
	}

	wf, err := config.Build(cfg, llm, func(o *config.BuildOptions) {
		o.Tools = opts.Tools
		o.Logger = opts.Logger
		o.TracerProvider = opts.TracerProvider
	})
	if err != nil {
		return nil, err
	}

	return &Chain{cfg: cfg, llm: llm, workflow: wf}, nil
}

// Workflow returns the underlying workflow.
func (c *Chain) Workflow() *workflow.Workflow { return c.workflow }

// Model returns the transport shared by all agents.
func (c *Chain) Model() model.Model { return c.llm }

// Task resolves the task to run: the explicit task, else the configured task,
// else config.DefaultTask.
func (c *Chain) Task(task string) string {
	if task != "" {
		return task
	}
	if c.cfg.Task != "" {
		return c.cfg.Task
	}
	return config.DefaultTask
}

// Run executes the workflow and returns the final output.
func (c *Chain) Run(ctx context.Context, task string) (string, error) {
	return c.workflow.Run(ctx, c.Task(task))
}

// RunWithTrace executes the workflow and returns output and per-agent trace.
func (c *Chain) RunWithTrace(ctx context.Context, task string) (*workflow.Result, error) {
	return c.workflow.RunWithTrace(ctx, c.Task(task))
}
