// Package core provides the foundational conversation types shared by agents,
// tools and model transports:
//
//   - Roles and role-tagged Messages (system, user, assistant, tool)
//   - ToolCall requests surfaced by a model turn
//   - Transcript, the append-only message history of a single agent run
//   - ID generation for runs and tool calls
//
// The package intentionally keeps implementation concerns (transports, tool
// execution, orchestration) out of scope so every other package can depend on
// it without cycles.
package core
