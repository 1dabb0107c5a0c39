// Package agent implements the model-backed reasoning agent.
//
// An Agent owns an immutable Config (persona, sampling parameters, stop words,
// tools and budgets) and runs a turn-taking loop against a model.Model:
//
//	Start -> AwaitingModel -> (ToolDispatch)* -> Completed | Failed | Cancelled
//
// Each Run starts from a fresh transcript seeded with the system prompt and the
// task. A model turn that requests tools dispatches them concurrently through
// the agent's tool.Registry and appends one tool-result message per request in
// request order. A turn whose text contains a stop word completes the run with
// the text truncated before the marker. The loop always terminates: MaxTurns
// (and optionally TokenBudget) bound it, and BudgetPolicy decides whether an
// exhausted budget completes with the last text or fails.
//
// Transport failures end the run with a *model.TransportError in the chain;
// context cancellation ends it with an error matching ErrCancelled. Tool
// failures never end a run: they are reported to the model as tool results.
package agent
