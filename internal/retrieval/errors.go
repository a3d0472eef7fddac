package retrieval

import (
	"errors"
	"fmt"
)

// Error marks a retrieval-path failure: the store is unreachable or the
// query-side embedding failed. The heuristic evaluator treats it as a
// degrade signal, not a run-fatal condition.
type Error struct {
	Op  string // "embed", "query", "verify"
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("retrieval %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsRetrievalError reports whether err is a retrieval failure anywhere in
// its chain.
func IsRetrievalError(err error) bool {
	var e *Error
	return errors.As(err, &e)
}
