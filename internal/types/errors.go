package types

import (
	"errors"
	"fmt"
)

// Error kinds that cross package boundaries. Stage-local failures wrap
// these so callers can branch with errors.As without knowing which stage
// produced them.

// ValidationError rejects malformed quiz or purchase input before any
// pipeline stage runs.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation: %s", e.Reason)
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

// ConfigurationError marks a startup-fatal misconfiguration, most
// importantly an embedding-function mismatch between the ingest and
// retrieve paths. It is never produced mid-run.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s", e.Reason)
}

// IsValidation reports whether err carries a ValidationError anywhere in
// its chain.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsConfiguration reports whether err carries a ConfigurationError.
func IsConfiguration(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}
