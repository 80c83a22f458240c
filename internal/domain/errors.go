package domain

import (
	"context"
	"errors"
	"fmt"
)

// ErrorType classifies failures across all layers of the pipeline.
type ErrorType string

const (
	ErrNetwork    ErrorType = "network_error"
	ErrTimeout    ErrorType = "timeout_error"
	ErrValidation ErrorType = "validation_error"
	ErrProcessing ErrorType = "processing_error"
	ErrMemory     ErrorType = "memory_error"
	ErrFormat     ErrorType = "format_error"
	ErrAPI        ErrorType = "api_error"
	ErrUnknown    ErrorType = "unknown_error"
)

// Error is the normalized error carried across layer boundaries. Message is
// user-facing; Detail preserves the raw technical cause for diagnostics and
// is never shown to end users. Recoverable and Retryable are independent:
// the first says the system keeps operating, the second says the same
// operation is worth repeating.
type Error struct {
	Type        ErrorType `json:"type"`
	Message     string    `json:"message"`
	Detail      string    `json:"-"`
	Suggestions []string  `json:"suggestions,omitempty"`
	Recoverable bool      `json:"recoverable"`
	Retryable   bool      `json:"retryable"`

	cause error
}

// Error implements the error interface.
// Parameters: none.
// Returns:
//   - string: type-prefixed message with technical detail when present.
func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Type, e.Message, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the wrapped cause, if any.
func (e *Error) Unwrap() error {
	return e.cause
}

// NewNetworkError builds a retryable network failure.
func NewNetworkError(detail string, cause error) *Error {
	return &Error{
		Type:        ErrNetwork,
		Message:     "A network request failed.",
		Detail:      detail,
		Suggestions: []string{"Check your connection.", "Try again in a moment."},
		Recoverable: true,
		Retryable:   true,
		cause:       cause,
	}
}

// NewTimeoutError builds a retryable timeout failure.
func NewTimeoutError(detail string, cause error) *Error {
	return &Error{
		Type:        ErrTimeout,
		Message:     "The operation took too long and was stopped.",
		Detail:      detail,
		Suggestions: []string{"Try a smaller GIF.", "Try again in a moment."},
		Recoverable: true,
		Retryable:   true,
		cause:       cause,
	}
}

// NewValidationError builds a non-retryable input validation failure.
func NewValidationError(message string, suggestions ...string) *Error {
	if len(suggestions) == 0 {
		suggestions = []string{"Review the text overlays and try again."}
	}
	return &Error{
		Type:        ErrValidation,
		Message:     message,
		Suggestions: suggestions,
		Recoverable: true,
		Retryable:   false,
	}
}

// NewProcessingError builds a retryable encoder failure.
func NewProcessingError(detail string, cause error) *Error {
	return &Error{
		Type:        ErrProcessing,
		Message:     "Rendering the GIF failed.",
		Detail:      detail,
		Suggestions: []string{"Try again.", "Try a smaller GIF or fewer overlays."},
		Recoverable: true,
		Retryable:   true,
		cause:       cause,
	}
}

// NewBusyError builds the non-retryable single-flight conflict error. The
// service itself remains usable; only this call is rejected.
func NewBusyError() *Error {
	return &Error{
		Type:        ErrProcessing,
		Message:     "Another GIF is already being processed.",
		Suggestions: []string{"Wait for the current job to finish.", "Cancel the current job first."},
		Recoverable: true,
		Retryable:   false,
	}
}

// NewFormatError builds a non-retryable unsupported-input failure.
// Retrying an unsupported format wastes time.
func NewFormatError(detail string) *Error {
	return &Error{
		Type:        ErrFormat,
		Message:     "The input file is not a supported GIF.",
		Detail:      detail,
		Suggestions: []string{"Pick a different GIF.", "Try a smaller file."},
		Recoverable: true,
		Retryable:   false,
	}
}

// NewMemoryError builds a non-retryable memory pressure failure.
func NewMemoryError(detail string) *Error {
	return &Error{
		Type:        ErrMemory,
		Message:     "Not enough memory to process this GIF.",
		Detail:      detail,
		Suggestions: []string{"Try a smaller file.", "Close other work and try again."},
		Recoverable: true,
		Retryable:   false,
	}
}

// NewAPIError builds a retryable upstream provider failure.
func NewAPIError(detail string, cause error) *Error {
	return &Error{
		Type:        ErrAPI,
		Message:     "A GIF provider request failed.",
		Detail:      detail,
		Suggestions: []string{"Try again in a moment.", "Try a different search term."},
		Recoverable: true,
		Retryable:   true,
		cause:       cause,
	}
}

// Classify normalizes an arbitrary error into the shared taxonomy. Errors
// already carrying a type pass through unchanged; context deadline errors
// become timeouts; everything else becomes unknown_error.
// Parameters:
//   - err: error to normalize.
//
// Returns:
//   - *Error: normalized error, or nil when err is nil.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NewTimeoutError(err.Error(), err)
	}
	return &Error{
		Type:        ErrUnknown,
		Message:     "Something went wrong.",
		Detail:      err.Error(),
		Suggestions: []string{"Try again.", "Reload and retry if the problem persists."},
		Recoverable: true,
		Retryable:   false,
		cause:       err,
	}
}

// IsRetryable reports whether the same operation is worth repeating.
// Parameters:
//   - err: error to inspect.
//
// Returns:
//   - bool: true for errors flagged retryable after classification.
func IsRetryable(err error) bool {
	e := Classify(err)
	return e != nil && e.Retryable
}

// IsType reports whether err classifies to the given error type.
func IsType(err error, t ErrorType) bool {
	e := Classify(err)
	return e != nil && e.Type == t
}
