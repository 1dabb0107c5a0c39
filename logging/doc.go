// Package logging provides a minimal logging interface and adapters for agentchain.
//
// The Logger interface defines the standard logging methods (Debug, Info, Warn, Error)
// that agents, the tool dispatcher and workflows use for observability. This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "json", os.Stderr)
//	a, err := agent.New(cfg, llm, func(o *agent.Options) { o.Logger = logger })
//
// The interface is kept minimal so callers can plug any structured logger.
package logging
