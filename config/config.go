// Package config loads YAML workflow definitions and builds them into
// runnable workflows.
package config

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Config is a workflow definition.
type Config struct {
	Name             string         `yaml:"name"`
	Task             string         `yaml:"task,omitempty"`
	LogLevel         string         `yaml:"log_level,omitempty"`
	LogFormat        string         `yaml:"log_format,omitempty"`
	MaxParallelTools int            `yaml:"max_parallel_tools,omitempty"`
	Provider         ProviderConfig `yaml:"provider"`
	Agents           []AgentConfig  `yaml:"agents"`
}

// ProviderConfig selects the model transport shared by all agents.
type ProviderConfig struct {
	Kind      string `yaml:"kind"`
	Model     string `yaml:"model,omitempty"`
	APIKeyEnv string `yaml:"api_key_env,omitempty"`
	BaseURL   string `yaml:"base_url,omitempty"`
}

// AgentConfig describes one pipeline stage.
type AgentConfig struct {
	Name              string   `yaml:"name"`
	UserName          string   `yaml:"user_name,omitempty"`
	SystemPrompt      string   `yaml:"system_prompt,omitempty"`
	Temperature       float64  `yaml:"temperature,omitempty"`
	MaxTokens         int64    `yaml:"max_tokens,omitempty"`
	MaxTurns          int      `yaml:"max_turns,omitempty"`
	TokenBudget       int64    `yaml:"token_budget,omitempty"`
	StopWords         []string `yaml:"stop_words,omitempty"`
	Tools             []string `yaml:"tools,omitempty"`
	OnBudgetExhausted string   `yaml:"on_budget_exhausted,omitempty"`
}
