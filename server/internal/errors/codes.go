package errors

import (
	"context"
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a specific error type for calendar operations.
type ErrorCode string

const (
	// ErrCodeInvalidInterval indicates an interval whose start is after its end.
	ErrCodeInvalidInterval ErrorCode = "INVALID_INTERVAL"
	// ErrCodeInvalidRange indicates a date range spanning zero days.
	ErrCodeInvalidRange ErrorCode = "INVALID_RANGE"
	// ErrCodeInvalidArgument indicates invalid input parameters.
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
	// ErrCodeEventNotFound indicates the event is absent from the queried window.
	ErrCodeEventNotFound ErrorCode = "EVENT_NOT_FOUND"
	// ErrCodeScheduleConflict indicates a proposed time overlaps existing events.
	ErrCodeScheduleConflict ErrorCode = "SCHEDULE_CONFLICT"
	// ErrCodeRepositoryFailure indicates the event fetch failed.
	ErrCodeRepositoryFailure ErrorCode = "REPOSITORY_FAILURE"
	// ErrCodeContextCanceled indicates the operation was canceled.
	ErrCodeContextCanceled ErrorCode = "CONTEXT_CANCELED"
	// ErrCodeTimeout indicates the operation timed out.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
)

// Sentinels for errors.Is matching. Any CalendarError matches the sentinel of its code.
var (
	ErrInvalidInterval   = &CalendarError{Code: ErrCodeInvalidInterval}
	ErrInvalidRange      = &CalendarError{Code: ErrCodeInvalidRange}
	ErrInvalidArgument   = &CalendarError{Code: ErrCodeInvalidArgument}
	ErrEventNotFound     = &CalendarError{Code: ErrCodeEventNotFound}
	ErrScheduleConflict  = &CalendarError{Code: ErrCodeScheduleConflict}
	ErrRepositoryFailure = &CalendarError{Code: ErrCodeRepositoryFailure}
)

// CalendarError represents a structured error for calendar operations.
type CalendarError struct {
	Code    ErrorCode
	Message string
	Cause   error
	Context map[string]any
}

// Error implements the error interface.
func (e *CalendarError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *CalendarError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a CalendarError with the same code.
func (e *CalendarError) Is(target error) bool {
	t, ok := target.(*CalendarError)
	return ok && t.Code == e.Code
}

// WithContext adds context to the error.
func (e *CalendarError) WithContext(key string, value any) *CalendarError {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// GetCode returns the error code.
func (e *CalendarError) GetCode() ErrorCode {
	return e.Code
}

// InvalidInterval creates an invalid interval error.
func InvalidInterval(msg string) *CalendarError {
	return &CalendarError{Code: ErrCodeInvalidInterval, Message: msg}
}

// InvalidRange creates an invalid range error.
func InvalidRange(msg string) *CalendarError {
	return &CalendarError{Code: ErrCodeInvalidRange, Message: msg}
}

// InvalidArgument creates an invalid argument error.
func InvalidArgument(msg string) *CalendarError {
	return &CalendarError{Code: ErrCodeInvalidArgument, Message: msg}
}

// EventNotFound creates an event not found error.
func EventNotFound(eventID string) *CalendarError {
	return &CalendarError{
		Code:    ErrCodeEventNotFound,
		Message: fmt.Sprintf("event not found: %s", eventID),
	}
}

// ScheduleConflict creates a conflict error carrying the number of overlapping events.
func ScheduleConflict(conflictCount int) *CalendarError {
	e := &CalendarError{
		Code:    ErrCodeScheduleConflict,
		Message: fmt.Sprintf("proposed time conflicts with %d event(s)", conflictCount),
	}
	return e.WithContext("conflict_count", conflictCount)
}

// RepositoryFailure wraps a failed event fetch. Context cancellation and deadline
// expiry are kept distinguishable through the cause chain.
func RepositoryFailure(msg string, cause error) *CalendarError {
	return &CalendarError{Code: ErrCodeRepositoryFailure, Message: msg, Cause: cause}
}

// ContextCanceled creates a context canceled error.
func ContextCanceled(cause error) *CalendarError {
	return &CalendarError{Code: ErrCodeContextCanceled, Message: "operation canceled", Cause: cause}
}

// Timeout creates a timeout error.
func Timeout(msg string, cause error) *CalendarError {
	return &CalendarError{Code: ErrCodeTimeout, Message: msg, Cause: cause}
}

// Wrap wraps an existing error with additional context.
func Wrap(cause error, code ErrorCode, msg string) *CalendarError {
	return &CalendarError{Code: code, Message: msg, Cause: cause}
}

// FromContext converts a context error into the matching CalendarError, or nil.
func FromContext(err error) *CalendarError {
	switch {
	case stderrors.Is(err, context.DeadlineExceeded):
		return Timeout("operation deadline exceeded", err)
	case stderrors.Is(err, context.Canceled):
		return ContextCanceled(err)
	}
	return nil
}

// IsCode checks if an error, or anything it wraps, is of a specific code.
func IsCode(err error, code ErrorCode) bool {
	var calErr *CalendarError
	if stderrors.As(err, &calErr) {
		return calErr.Code == code
	}
	return false
}

// GetCodeFromError extracts the error code from any error.
// Returns the provided default code if the error is not a CalendarError.
func GetCodeFromError(err error, defaultCode ErrorCode) ErrorCode {
	var calErr *CalendarError
	if stderrors.As(err, &calErr) {
		return calErr.Code
	}
	return defaultCode
}
