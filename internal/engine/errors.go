package engine

import (
	"fmt"
	"strings"
)

// RecursionError reports a macro file that appears twice on the active
// expansion branch. It aborts the entire reconciliation: a recursive macro is
// a structural authoring error, not a recoverable condition.
type RecursionError struct {
	// FilePath is the macro file that closed the cycle.
	FilePath string
	// Chain is the expansion branch that was active when the cycle closed.
	Chain []string
}

func (e *RecursionError) Error() string {
	if len(e.Chain) == 0 {
		return fmt.Sprintf("recursive macro reference: %s", e.FilePath)
	}
	return fmt.Sprintf("recursive macro reference: %s (expansion chain: %s)",
		e.FilePath, strings.Join(e.Chain, " -> "))
}
