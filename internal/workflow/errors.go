package workflow

import (
	"errors"
	"fmt"
	"time"
)

// WorkflowError is the single error a failed run returns. It tags the
// stage that broke; the cause stays reachable through errors.Is/As so
// the transport edge can branch on kind without knowing stage internals.
type WorkflowError struct {
	Stage StateName
	Err   error
}

func (e *WorkflowError) Error() string {
	return fmt.Sprintf("workflow failed at %s: %v", e.Stage, e.Err)
}

func (e *WorkflowError) Unwrap() error {
	return e.Err
}

// JoinTimeoutError marks a parallel branch that never finished within
// the configured join window. Both branches are cancelled when it fires.
type JoinTimeoutError struct {
	Timeout time.Duration
}

func (e *JoinTimeoutError) Error() string {
	return fmt.Sprintf("evaluator join timed out after %s", e.Timeout)
}

// IsWorkflowError reports whether err carries a WorkflowError anywhere
// in its chain.
func IsWorkflowError(err error) bool {
	var we *WorkflowError
	return errors.As(err, &we)
}

// IsJoinTimeout reports whether err carries a JoinTimeoutError.
func IsJoinTimeout(err error) bool {
	var jt *JoinTimeoutError
	return errors.As(err, &jt)
}
