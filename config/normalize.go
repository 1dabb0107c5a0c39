package config

import "strings"

// Normalize trims identifiers and fills provider and logging defaults.
func Normalize(cfg *Config) {
	cfg.Name = strings.TrimSpace(cfg.Name)
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	cfg.LogFormat = strings.ToLower(strings.TrimSpace(cfg.LogFormat))
	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
	}

	p := &cfg.Provider
	p.Kind = strings.ToLower(strings.TrimSpace(p.Kind))
	if p.Kind == "" {
		p.Kind = ProviderOpenAI
	}
	p.Model = strings.TrimSpace(p.Model)
	p.APIKeyEnv = strings.TrimSpace(p.APIKeyEnv)
	switch p.Kind {
	case ProviderOpenAI:
		if p.Model == "" {
			p.Model = "gpt-4-turbo"
		}
		if p.APIKeyEnv == "" {
			p.APIKeyEnv = "OPENAI_API_KEY"
		}
	case ProviderAnthropic:
		if p.Model == "" {
			p.Model = "claude-3-5-sonnet-latest"
		}
		if p.APIKeyEnv == "" {
			p.APIKeyEnv = "ANTHROPIC_API_KEY"
		}
	}

	for i := range cfg.Agents {
		a := &cfg.Agents[i]
		a.Name = strings.TrimSpace(a.Name)
		a.UserName = strings.TrimSpace(a.UserName)
		a.OnBudgetExhausted = strings.ToLower(strings.TrimSpace(a.OnBudgetExhausted))
		for j := range a.Tools {
			a.Tools[j] = strings.TrimSpace(a.Tools[j])
		}
	}
}
