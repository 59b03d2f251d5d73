package plugin

import "fmt"

// ExtractError is raised by an Extractor. Transient marks it eligible for
// the Task Runner's retry policy; a permanent error (malformed data, schema
// mismatch, auth failure) fails the task immediately.
type ExtractError struct {
	Op        string
	Transient bool
	Cause     error
}

func (e *ExtractError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.Op, e.Cause)
}

func (e *ExtractError) Unwrap() error {
	return e.Cause
}

// NewExtractError wraps cause as an ExtractError with the given
// retryability.
func NewExtractError(op string, transient bool, cause error) error {
	return &ExtractError{Op: op, Transient: transient, Cause: cause}
}

// LoadError is raised by a Loader, with the same transient/permanent split
// as ExtractError.
type LoadError struct {
	Op        string
	Transient bool
	Cause     error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Op, e.Cause)
}

func (e *LoadError) Unwrap() error {
	return e.Cause
}

// NewLoadError wraps cause as a LoadError with the given retryability.
func NewLoadError(op string, transient bool, cause error) error {
	return &LoadError{Op: op, Transient: transient, Cause: cause}
}

// CancelledError is emitted when shutdown interrupts a task in flight. The
// run is left running and is later marked orphaned by the Scheduler on the
// next startup.
type CancelledError struct {
	Op string
}

func (e *CancelledError) Error() string {
	return fmt.Sprintf("%s: cancelled", e.Op)
}

// IsTransient reports whether err is a retryable ExtractError or LoadError.
// Any other error (including ValidationError and CancelledError) is
// non-retryable.
func IsTransient(err error) bool {
	switch e := err.(type) {
	case *ExtractError:
		return e.Transient
	case *LoadError:
		return e.Transient
	default:
		return false
	}
}
