package validation

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/kbukum/orthotile/errors"
)

// Validator collects validation errors.
type Validator struct {
	errors []FieldError
}

// FieldError represents a validation error for a specific field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// New creates a new Validator.
func New() *Validator {
	return &Validator{errors: make([]FieldError, 0)}
}

// AddError adds a field error.
func (v *Validator) AddError(field, message string) {
	v.errors = append(v.errors, FieldError{Field: field, Message: message})
}

// HasErrors returns true if there are validation errors.
func (v *Validator) HasErrors() bool {
	return len(v.errors) > 0
}

// Errors returns all validation errors.
func (v *Validator) Errors() []FieldError {
	return v.errors
}

// Merge appends the field errors carried by err, or a single entry for
// field when err is not a validation error. A nil err is ignored.
func (v *Validator) Merge(field string, err error) *Validator {
	if err == nil {
		return v
	}
	if appErr, ok := errors.AsAppError(err); ok {
		if fields, ok := appErr.Details["fields"].([]FieldError); ok {
			v.errors = append(v.errors, fields...)
			return v
		}
	}
	v.AddError(field, err.Error())
	return v
}

// Validate returns an AppError if there are validation errors, nil otherwise.
func (v *Validator) Validate() error {
	if !v.HasErrors() {
		return nil
	}

	messages := make([]string, len(v.errors))
	for i, e := range v.errors {
		messages[i] = fmt.Sprintf("%s: %s", e.Field, e.Message)
	}

	return errors.Validation(strings.Join(messages, "; ")).
		WithDetail("fields", v.errors)
}

// Required checks if a string is non-empty.
func (v *Validator) Required(field, value string) *Validator {
	if strings.TrimSpace(value) == "" {
		v.AddError(field, "is required")
	}
	return v
}

// OneOf checks if a non-empty value is one of the allowed values.
func (v *Validator) OneOf(field, value string, allowed []string) *Validator {
	if value == "" || slices.Contains(allowed, value) {
		return v
	}
	v.AddError(field, fmt.Sprintf("must be one of: %s", strings.Join(allowed, ", ")))
	return v
}

// FileExists checks that a non-empty path names a regular file.
func (v *Validator) FileExists(field, path string) *Validator {
	if path == "" {
		return v
	}
	info, err := os.Stat(path)
	switch {
	case err != nil:
		v.AddError(field, fmt.Sprintf("file %s does not exist", path))
	case info.IsDir():
		v.AddError(field, fmt.Sprintf("%s is a directory", path))
	}
	return v
}

// DirExists checks that a non-empty path names a directory.
func (v *Validator) DirExists(field, path string) *Validator {
	if path == "" {
		return v
	}
	info, err := os.Stat(path)
	switch {
	case err != nil:
		v.AddError(field, fmt.Sprintf("directory %s does not exist", path))
	case !info.IsDir():
		v.AddError(field, fmt.Sprintf("%s is not a directory", path))
	}
	return v
}

// Custom applies a custom validation condition.
func (v *Validator) Custom(condition bool, field, message string) *Validator {
	if !condition {
		v.AddError(field, message)
	}
	return v
}
