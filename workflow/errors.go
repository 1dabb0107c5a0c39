package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/agentchain/agent"
)

// Error reports the failing step of a workflow run. It is the only error type
// a Workflow returns.
type Error struct {
	Index int    // position of the failing agent
	Agent string // name of the failing agent
	Trace []Step // steps completed before the failure
	Err   error  // the agent's error
}

func (e *Error) Error() string {
	return fmt.Sprintf("workflow failed at step %d (%s): %v", e.Index, e.Agent, e.Err)
}

// Unwrap returns the agent's error.
func (e *Error) Unwrap() error { return e.Err }

// Cancelled reports whether the failing step was aborted by cancellation.
func (e *Error) Cancelled() bool {
	return errors.Is(e.Err, agent.ErrCancelled) ||
		errors.Is(e.Err, context.Canceled) ||
		errors.Is(e.Err, context.DeadlineExceeded)
}
