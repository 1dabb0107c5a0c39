package agent

import (
	"errors"
	"fmt"
)

// ErrCancelled marks a run aborted by context cancellation or deadline. The
// returned error also matches the context's own error (context.Canceled or
// context.DeadlineExceeded).
var ErrCancelled = errors.New("agent run cancelled")

// IsCancelled reports whether err stems from a cancelled run.
func IsCancelled(err error) bool { return errors.Is(err, ErrCancelled) }

func cancelled(agent string, cause error) error {
	return fmt.Errorf("agent %q: %w: %w", agent, ErrCancelled, cause)
}

// BudgetExhaustedError is returned under BudgetFail when a run hits its turn
// limit or token budget without producing a stop word.
type BudgetExhaustedError struct {
	Agent      string
	Turns      int
	TokensUsed int64
	Reason     string // "max turns" or "token budget"
	LastText   string
}

func (e *BudgetExhaustedError) Error() string {
	return fmt.Sprintf("agent %q exhausted its %s after %d turns (%d tokens)", e.Agent, e.Reason, e.Turns, e.TokensUsed)
}
