package config

import (
	"fmt"
	"os"
	"strings"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"go.opentelemetry.io/otel/trace"

	"github.com/hupe1980/agentchain/agent"
	"github.com/hupe1980/agentchain/logging"
	"github.com/hupe1980/agentchain/model"
	"github.com/hupe1980/agentchain/model/anthropic"
	"github.com/hupe1980/agentchain/model/openai"
	"github.com/hupe1980/agentchain/tool"
	"github.com/hupe1980/agentchain/workflow"
)

// BuildOptions configures Build.
type BuildOptions struct {
	// Tools is the catalog agents reference by name (defaults to BuiltinTools).
	Tools map[string]tool.Tool
	// Logger is handed to every agent and the workflow.
	Logger logging.Logger
	// TracerProvider is handed to every agent and the workflow.
	TracerProvider trace.TracerProvider
}

// Build validates cfg and constructs its workflow with every agent bound to llm.
func Build(cfg Config, llm model.Model, optFns ...func(o *BuildOptions)) (*workflow.Workflow, error) {
	opts := BuildOptions{
		Logger: logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Tools == nil {
		opts.Tools = BuiltinTools()
	}

	if err := Validate(&cfg, opts.Tools); err != nil {
		return nil, err
	}

	runners := make([]workflow.Runner, 0, len(cfg.Agents))
	for _, ac := range cfg.Agents {
		policy, err := agent.ParseBudgetPolicy(ac.OnBudgetExhausted)
		if err != nil {
			return nil, fmt.Errorf("agent %q: %w", ac.Name, err)
		}
		tools := make([]tool.Tool, 0, len(ac.Tools))
		for _, name := range ac.Tools {
			tools = append(tools, opts.Tools[name])
		}

		a, err := agent.New(agent.Config{
			Name:              ac.Name,
			UserName:          ac.UserName,
			SystemPrompt:      ac.SystemPrompt,
			Temperature:       ac.Temperature,
			MaxTokens:         ac.MaxTokens,
			StopWords:         ac.StopWords,
			Tools:             tools,
			MaxTurns:          ac.MaxTurns,
			TokenBudget:       ac.TokenBudget,
			OnBudgetExhausted: policy,
		}, llm, func(o *agent.Options) {
			o.Logger = opts.Logger
			o.TracerProvider = opts.TracerProvider
			o.MaxParallelTools = cfg.MaxParallelTools
		})
		if err != nil {
			return nil, err
		}
		runners = append(runners, a)
	}

	return workflow.New(cfg.Name, runners, func(o *workflow.Options) {
		o.Logger = opts.Logger
		o.TracerProvider = opts.TracerProvider
	}), nil
}

// ResolveAPIKey reads the provider credential from the environment variable
// named by APIKeyEnv.
func ResolveAPIKey(p ProviderConfig) (string, error) {
	if p.APIKeyEnv == "" {
		return "", fmt.Errorf("provider %q: api_key_env is not set", p.Kind)
	}
	key := strings.TrimSpace(os.Getenv(p.APIKeyEnv))
	if key == "" {
		return "", fmt.Errorf("%s must be set", p.APIKeyEnv)
	}
	return key, nil
}

// NewModel constructs the transport for p using the resolved apiKey.
func NewModel(p ProviderConfig, apiKey string) (model.Model, error) {
	switch p.Kind {
	case ProviderOpenAI:
		return openai.NewModel(func(o *openai.Options) {
			o.APIKey = apiKey
			o.BaseURL = p.BaseURL
			if p.Model != "" {
				o.Model = p.Model
			}
		}), nil
	case ProviderAnthropic:
		return anthropic.NewModel(func(o *anthropic.Options) {
			o.APIKey = apiKey
			o.BaseURL = p.BaseURL
			if p.Model != "" {
				o.Model = anthropicsdk.Model(p.Model)
			}
		}), nil
	default:
		return nil, fmt.Errorf("unsupported provider %q", p.Kind)
	}
}
