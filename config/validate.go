package config

import (
	"fmt"
	"strings"

	"github.com/hupe1980/agentchain/agent"
	"github.com/hupe1980/agentchain/logging"
	"github.com/hupe1980/agentchain/tool"
)

// Issue captures a validation problem with a config field.
type Issue struct {
	Field   string
	Message string
}

// ValidationError aggregates config validation issues.
type ValidationError struct {
	Issues []Issue
}

// Error renders validation errors as a multi-line string.
func (err *ValidationError) Error() string {
	if err == nil || len(err.Issues) == 0 {
		return "config validation failed"
	}
	lines := make([]string, 0, len(err.Issues))
	for _, issue := range err.Issues {
		lines = append(lines, fmt.Sprintf("%s: %s", issue.Field, issue.Message))
	}
	return strings.Join(lines, "\n")
}

// Validate checks a normalized config. Tool names are resolved against
// catalog; a nil catalog means the built-in tools.
func Validate(cfg *Config, catalog map[string]tool.Tool) error {
	if catalog == nil {
		catalog = BuiltinTools()
	}

	var issues []Issue
	add := func(field, message string) {
		issues = append(issues, Issue{Field: field, Message: message})
	}

	if cfg.Name == "" {
		add("name", "is required")
	}
	if _, err := logging.ParseLevel(cfg.LogLevel); err != nil {
		add("log_level", err.Error())
	}
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		add("log_format", fmt.Sprintf("unsupported format %q (want text or json)", cfg.LogFormat))
	}
	if cfg.MaxParallelTools < 0 {
		add("max_parallel_tools", "must not be negative")
	}

	switch cfg.Provider.Kind {
	case ProviderOpenAI, ProviderAnthropic:
	default:
		add("provider.kind", fmt.Sprintf("unsupported provider %q", cfg.Provider.Kind))
	}
	if cfg.Provider.APIKeyEnv == "" {
		add("provider.api_key_env", "is required")
	}

	if len(cfg.Agents) == 0 {
		add("agents", "at least one agent is required")
	}
	names := map[string]struct{}{}
	for i, a := range cfg.Agents {
		prefix := fmt.Sprintf("agents[%d]", i)
		if a.Name == "" {
			add(prefix+".name", "is required")
		} else if _, dup := names[a.Name]; dup {
			add(prefix+".name", fmt.Sprintf("duplicate agent name %q", a.Name))
		} else {
			names[a.Name] = struct{}{}
		}
		if a.Temperature < 0 || a.Temperature > 2 {
			add(prefix+".temperature", "must be between 0 and 2")
		}
		if a.MaxTokens < 0 {
			add(prefix+".max_tokens", "must not be negative")
		}
		if a.MaxTurns < 0 {
			add(prefix+".max_turns", "must not be negative")
		}
		if a.TokenBudget < 0 {
			add(prefix+".token_budget", "must not be negative")
		}
		for j, w := range a.StopWords {
			if w == "" {
				add(fmt.Sprintf("%s.stop_words[%d]", prefix, j), "must not be empty")
			}
		}
		if _, err := agent.ParseBudgetPolicy(a.OnBudgetExhausted); err != nil {
			add(prefix+".on_budget_exhausted", err.Error())
		}
		seen := map[string]struct{}{}
		for j, name := range a.Tools {
			field := fmt.Sprintf("%s.tools[%d]", prefix, j)
			if _, ok := catalog[name]; !ok {
				add(field, fmt.Sprintf("unknown tool %q", name))
				continue
			}
			if _, dup := seen[name]; dup {
				add(field, fmt.Sprintf("duplicate tool %q", name))
			}
			seen[name] = struct{}{}
		}
	}

	if len(issues) > 0 {
		return &ValidationError{Issues: issues}
	}
	return nil
}
