package harvest

import (
	"errors"
	"fmt"
)

// ErrRetriesExhausted is returned when a batch keeps failing after the configured number of retries.
var ErrRetriesExhausted = errors.New("max retries reached")

// ErrCallCeiling is returned when the provider was called the maximum number of times
// without reaching the requested count or signaling exhaustion.
var ErrCallCeiling = errors.New("provider call ceiling reached")

// BatchError reports the batch a run stopped at. Kind is one of the sentinels
// above, or nil when the provider error was not retryable.
type BatchError struct {
	Offset   int
	Attempts int
	Kind     error
	Cause    error
}

func (e *BatchError) Error() string {
	if e.Kind != nil {
		return fmt.Sprintf("batch at offset %d failed after %d attempt(s): %v: %v", e.Offset, e.Attempts, e.Kind, e.Cause)
	}
	return fmt.Sprintf("batch at offset %d failed: %v", e.Offset, e.Cause)
}

func (e *BatchError) Unwrap() []error {
	if e.Kind == nil {
		return []error{e.Cause}
	}
	return []error{e.Kind, e.Cause}
}
