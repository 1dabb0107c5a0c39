package agent

import (
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/trace"

	"github.com/hupe1980/agentchain/logging"
	"github.com/hupe1980/agentchain/tool"
)

const (
	// DefaultMaxTurns bounds model round trips per run when Config.MaxTurns is unset.
	DefaultMaxTurns = 10
	// DefaultMaxTokens is the per-request completion budget when Config.MaxTokens is unset.
	DefaultMaxTokens int64 = 4096
)

// BudgetPolicy decides how a run ends when its turn or token budget runs out
// before any stop word was produced.
type BudgetPolicy int

const (
	// BudgetComplete completes the run with the last non-empty text the model produced.
	BudgetComplete BudgetPolicy = iota
	// BudgetFail fails the run with a *BudgetExhaustedError.
	BudgetFail
)

// String returns the policy name.
func (p BudgetPolicy) String() string {
	switch p {
	case BudgetComplete:
		return "complete"
	case BudgetFail:
		return "fail"
	default:
		return fmt.Sprintf("BudgetPolicy(%d)", int(p))
	}
}

// ParseBudgetPolicy maps "complete" (or "") and "fail" to a BudgetPolicy.
func ParseBudgetPolicy(s string) (BudgetPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "complete":
		return BudgetComplete, nil
	case "fail":
		return BudgetFail, nil
	default:
		return BudgetComplete, fmt.Errorf("unknown budget policy %q", s)
	}
}

// Config describes an agent. It is copied by New and never changes afterwards.
type Config struct {
	// Name is the agent's display name; it identifies the agent in traces and errors.
	Name string
	// UserName labels the user side of the conversation (the persona the task comes from).
	UserName string
	// SystemPrompt seeds every run.
	SystemPrompt string
	// Temperature is the sampling temperature sent with every request.
	Temperature float64
	// MaxTokens is the completion token budget sent with every request.
	MaxTokens int64
	// StopWords end the run when any of them appears in model text. Agents
	// without stop words complete on the first text-only response.
	StopWords []string
	// Tools are registered in order; names must be unique.
	Tools []tool.Tool
	// MaxTurns caps model round trips per run (tool-dispatch turns included).
	MaxTurns int
	// TokenBudget caps cumulative reported token usage per run; 0 disables it.
	TokenBudget int64
	// OnBudgetExhausted selects the completion policy when a budget runs out.
	OnBudgetExhausted BudgetPolicy
}

func (c Config) withDefaults() Config {
	if c.MaxTurns <= 0 {
		c.MaxTurns = DefaultMaxTurns
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = DefaultMaxTokens
	}
	c.StopWords = append([]string(nil), c.StopWords...)
	c.Tools = append([]tool.Tool(nil), c.Tools...)
	return c
}

func (c Config) validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("agent name is required")
	}
	if c.Temperature < 0 {
		return fmt.Errorf("agent %q: temperature must not be negative", c.Name)
	}
	if c.TokenBudget < 0 {
		return fmt.Errorf("agent %q: token budget must not be negative", c.Name)
	}
	for i, w := range c.StopWords {
		if w == "" {
			return fmt.Errorf("agent %q: stop word %d is empty", c.Name, i)
		}
	}
	if c.OnBudgetExhausted != BudgetComplete && c.OnBudgetExhausted != BudgetFail {
		return fmt.Errorf("agent %q: invalid budget policy %d", c.Name, c.OnBudgetExhausted)
	}
	return nil
}

// Options configures runtime collaborators that are not part of the agent's identity.
type Options struct {
	// Logger receives run diagnostics (defaults to NoOpLogger).
	Logger logging.Logger
	// TracerProvider creates agent.run / agent.turn / tool.call spans
	// (defaults to the global provider).
	TracerProvider trace.TracerProvider
	// MaxParallelTools bounds concurrent tool calls within one turn; 0 means unbounded.
	MaxParallelTools int
}
