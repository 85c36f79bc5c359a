package errors

import "errors"

// DefaultStopReason is used when the picker is closed without a selection.
const DefaultStopReason = "selection cancelled"

// StopProcessingError signals that the user left an interactive flow
// (the result picker) without choosing anything.
type StopProcessingError struct {
	Reason string
}

func (e *StopProcessingError) Error() string {
	if e.Reason == "" {
		return DefaultStopReason
	}
	return e.Reason
}

// NewStopProcessingError creates a StopProcessingError with the provided reason.
func NewStopProcessingError(reason string) *StopProcessingError {
	return &StopProcessingError{Reason: reason}
}

// IsStopProcessingError reports whether err is a StopProcessingError (even when wrapped).
func IsStopProcessingError(err error) bool {
	var stopErr *StopProcessingError
	return errors.As(err, &stopErr)
}
