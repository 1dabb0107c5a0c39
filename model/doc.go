// Package model defines the provider-agnostic transport contract agents use to
// talk to language models, plus a scripted in-memory implementation for tests.
//
// Core goals:
//   - One synchronous Generate call per reasoning turn
//   - Normalized tool definitions and tool-call requests (ToolDefinition, core.ToolCall)
//   - A single TransportError type for every provider failure
//   - Lightweight scripting for tests & examples (ScriptedModel)
//
// Providers (see model/openai and model/anthropic) implement Model so agents
// remain decoupled from vendor SDKs.
package model
