package reasoner

import (
	"errors"
	"fmt"
)

// Error marks a reasoner failure: the backing call failed, or a stage could
// not parse the reply into its assessment type. Either way the invoking
// stage is dead; the workflow engine aborts the run rather than synthesize
// from half an evaluation.
type Error struct {
	Provider string // anthropic, openai, gemini; "" when unknown
	Op       string // "call" or "parse"
	Err      error
}

func (e *Error) Error() string {
	if e.Provider == "" {
		return fmt.Sprintf("reasoner %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("reasoner %s (%s): %v", e.Op, e.Provider, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsReasonerError reports whether err carries a reasoner Error anywhere in
// its chain.
func IsReasonerError(err error) bool {
	var re *Error
	return errors.As(err, &re)
}
