package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Session-scoped failures.
const (
	// ErrCodeConfiguration indicates a session cannot be set up: missing
	// mosaic, unreadable statistics, reference-system mismatch.
	ErrCodeConfiguration ErrorCode = "CONFIGURATION_ERROR"
	// ErrCodeCapability indicates the classification capability failed for a batch.
	ErrCodeCapability ErrorCode = "CAPABILITY_ERROR"
	// ErrCodePostProcess indicates a failure after the pipeline drained
	// (raster reconstruction).
	ErrCodePostProcess ErrorCode = "POSTPROCESS_ERROR"
	// ErrCodeStorage indicates a sink could not be opened, written or closed.
	ErrCodeStorage ErrorCode = "STORAGE_ERROR"
)

// Run-scoped outcomes.
const (
	// ErrCodeCanceled indicates the run was interrupted by the operator.
	ErrCodeCanceled ErrorCode = "CANCELED"
)

// Input errors
const (
	// ErrCodeInvalidInput indicates the input is invalid.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrCodeNotFound indicates the requested resource was not found.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
)

// Internal errors
const (
	// ErrCodeInternal indicates an unexpected internal error.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

var sessionScoped = map[ErrorCode]bool{
	ErrCodeConfiguration: true,
	ErrCodeCapability:    true,
	ErrCodePostProcess:   true,
	ErrCodeStorage:       true,
	ErrCodeInternal:      true,
	ErrCodeCanceled:      false,
}

// IsSessionScoped reports whether a failure with this code only affects the
// session it occurred in. Unknown codes are treated as session-scoped.
func IsSessionScoped(code ErrorCode) bool {
	scoped, known := sessionScoped[code]
	if !known {
		return true
	}
	return scoped
}
