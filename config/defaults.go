package config

import (
	"github.com/hupe1980/agentchain/tool"
	"github.com/hupe1980/agentchain/tool/calculator"
)

// DefaultTask is the task used when neither the command line nor the config
// supplies one.
const DefaultTask = "A stock price increases by 40% on Monday, then decreases by 40% on Tuesday. " +
	"If it started at $100, what is the final price?"

// BuiltinTools returns the tools a config may reference by name.
func BuiltinTools() map[string]tool.Tool {
	return map[string]tool.Tool{
		calculator.Name: calculator.New(),
	}
}

// Default returns the built-in calculation workflow: a worker that solves the
// task with the calculator followed by a verifier that checks the answer.
func Default() Config {
	cfg := Config{
		Name: "Calculation Workflow",
		Task: DefaultTask,
		Provider: ProviderConfig{
			Kind:  ProviderOpenAI,
			Model: "gpt-4-turbo",
		},
		Agents: []AgentConfig{
			{
				Name:         "The Working Agent",
				UserName:     "Worker",
				SystemPrompt: "You solve math problems. Show your reasoning and use the Calculate Tool <DONE>.",
				Temperature:  0.1,
				MaxTokens:    4096,
				StopWords:    []string{"<DONE>"},
				Tools:        []string{calculator.Name},
			},
			{
				Name:     "The Verifier Agent",
				UserName: "Verifier",
				SystemPrompt: "You solve math problems. Solve independently, compare to provided answer. " +
					"Report AGREE or DISAGREE with explanation <DONE>.",
				Temperature: 0.1,
				MaxTokens:   4096,
				StopWords:   []string{"<DONE>"},
			},
		},
	}
	Normalize(&cfg)
	return cfg
}
