package errors

import (
	stderrors "errors"
	"fmt"
)

// AppError is the unified application error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetails merges the provided details into the error and returns the receiver.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError.
func New(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// --- Configuration errors ---

// Configuration creates a generic configuration error.
func Configuration(reason string) *AppError {
	return &AppError{Code: ErrCodeConfiguration, Message: reason}
}

// MosaicNotFound reports a missing orthophoto.
func MosaicNotFound(path string) *AppError {
	return &AppError{
		Code: ErrCodeConfiguration, Message: fmt.Sprintf("orthophoto not found at path: %s", path),
		Details: map[string]any{"path": path},
	}
}

// StatsNotFound reports a missing reconstruction statistics file.
func StatsNotFound(path string) *AppError {
	return &AppError{
		Code: ErrCodeConfiguration, Message: fmt.Sprintf("stats not found at path: %s", path),
		Details: map[string]any{"path": path},
	}
}

// GSDUnreadable reports a statistics file without a usable average GSD.
func GSDUnreadable(path string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeConfiguration, Message: "cannot get GSD value",
		Details: map[string]any{"path": path}, Cause: cause,
	}
}

// CRSMismatch reports a mosaic that is not in the configured reference system.
func CRSMismatch(path string, want int) *AppError {
	return &AppError{
		Code: ErrCodeConfiguration, Message: fmt.Sprintf("orthophoto crs doesn't match EPSG:%d", want),
		Details: map[string]any{"path": path, "epsg": want},
	}
}

// --- Pipeline errors ---

// Capability wraps a failure of the classification capability.
func Capability(name string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeCapability, Message: fmt.Sprintf("classifier %s failed", name),
		Details: map[string]any{"classifier": name}, Cause: cause,
	}
}

// Storage wraps a sink failure.
func Storage(op string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeStorage, Message: fmt.Sprintf("storage %s failed", op),
		Details: map[string]any{"operation": op}, Cause: cause,
	}
}

// PostProcess wraps a failure after the pipeline drained.
func PostProcess(step string, cause error) *AppError {
	return &AppError{
		Code: ErrCodePostProcess, Message: fmt.Sprintf("post-processing %s failed", step),
		Details: map[string]any{"step": step}, Cause: cause,
	}
}

// Canceled reports an operator interrupt.
func Canceled(cause error) *AppError {
	return &AppError{Code: ErrCodeCanceled, Message: "run interrupted", Cause: cause}
}

// --- Input errors ---

// InvalidInput creates a new AppError for invalid input.
func InvalidInput(field, reason string) *AppError {
	details := make(map[string]any)
	if field != "" {
		details["field"] = field
	}
	return &AppError{
		Code: ErrCodeInvalidInput, Message: fmt.Sprintf("Invalid input: %s", reason),
		Details: details,
	}
}

// Validation creates a new AppError for validation errors.
func Validation(message string) *AppError {
	return &AppError{Code: ErrCodeInvalidInput, Message: message}
}

// NotFound creates a new AppError for a resource that was not found.
func NotFound(resource, id string) *AppError {
	details := map[string]any{"resource": resource}
	if id != "" {
		details["id"] = id
	}
	return &AppError{
		Code: ErrCodeNotFound, Message: fmt.Sprintf("The requested %s was not found.", resource),
		Details: details,
	}
}

// Internal creates a new AppError for an unexpected failure.
func Internal(cause error) *AppError {
	return &AppError{Code: ErrCodeInternal, Message: "An unexpected error occurred.", Cause: cause}
}

// --- Inspection ---

// IsAppError checks if an error is an AppError.
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// AsAppError converts an error to an AppError if possible.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// CodeOf returns the code of the outermost AppError in err's chain, or
// ErrCodeInternal for foreign errors. A nil error has no code.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code
	}
	return ErrCodeInternal
}

// HasCode reports whether any AppError in err's tree carries code.
func HasCode(err error, code ErrorCode) bool {
	if err == nil {
		return false
	}
	if appErr, ok := err.(*AppError); ok && appErr.Code == code {
		return true
	}
	switch u := err.(type) {
	case interface{ Unwrap() []error }:
		for _, e := range u.Unwrap() {
			if HasCode(e, code) {
				return true
			}
		}
		return false
	case interface{ Unwrap() error }:
		return HasCode(u.Unwrap(), code)
	}
	return false
}
