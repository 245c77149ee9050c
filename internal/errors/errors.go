// Package errors provides structured error handling for the relsync CLI.
// It includes categorized errors with actionable remediation guidance and
// the error types the release pipeline returns.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCategory represents the type of error that occurred.
type ErrorCategory int

const (
	// Argument errors are caused by invalid or missing command arguments.
	Argument ErrorCategory = iota
	// Configuration errors are caused by invalid or missing configuration.
	Configuration
	// Conflict errors occur when a release already exists and the
	// configuration allows neither overwriting nor updating it.
	Conflict
	// Remote errors are failures talking to the hosting service.
	Remote
	// Repository errors are local version-control failures.
	Repository
	// Runtime errors occur during command execution.
	Runtime
)

// String returns a human-readable name for the error category.
func (c ErrorCategory) String() string {
	switch c {
	case Argument:
		return "Argument Error"
	case Configuration:
		return "Configuration Error"
	case Conflict:
		return "Release Conflict"
	case Remote:
		return "Remote Error"
	case Repository:
		return "Repository Error"
	case Runtime:
		return "Runtime Error"
	default:
		return "Error"
	}
}

// CLIError is a structured error with category and remediation guidance.
type CLIError struct {
	// Category is the type of error (Argument, Configuration, etc.)
	Category ErrorCategory
	// Message is a human-readable description of what went wrong.
	Message string
	// Remediation is a list of actionable steps to resolve the error.
	Remediation []string
	// Usage shows the correct command syntax (optional, for argument errors).
	Usage string
	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *CLIError) Error() string {
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *CLIError) Unwrap() error {
	return e.Err
}

func newError(category ErrorCategory, message string, remediation []string) *CLIError {
	return &CLIError{
		Category:    category,
		Message:     message,
		Remediation: remediation,
	}
}

// NewArgumentError creates a new argument error with the given message and remediation steps.
func NewArgumentError(message string, remediation ...string) *CLIError {
	return newError(Argument, message, remediation)
}

// NewArgumentErrorWithUsage creates a new argument error that includes correct usage syntax.
func NewArgumentErrorWithUsage(message, usage string, remediation ...string) *CLIError {
	e := newError(Argument, message, remediation)
	e.Usage = usage
	return e
}

// NewConfigError creates a new configuration error.
func NewConfigError(message string, remediation ...string) *CLIError {
	return newError(Configuration, message, remediation)
}

// NewRuntimeError creates a new runtime error.
func NewRuntimeError(message string, remediation ...string) *CLIError {
	return newError(Runtime, message, remediation)
}

// Wrap wraps an existing error with a CLIError, preserving the original message.
func Wrap(err error, category ErrorCategory, remediation ...string) *CLIError {
	if err == nil {
		return nil
	}
	return &CLIError{
		Category:    category,
		Message:     err.Error(),
		Remediation: remediation,
		Err:         err,
	}
}

// WrapWithMessage wraps an error with a custom message and category.
func WrapWithMessage(err error, category ErrorCategory, message string, remediation ...string) *CLIError {
	if err == nil {
		return nil
	}
	return &CLIError{
		Category:    category,
		Message:     fmt.Sprintf("%s: %v", message, err),
		Remediation: remediation,
		Err:         err,
	}
}

// AsCLIError returns the first CLIError in err's chain, or nil.
func AsCLIError(err error) *CLIError {
	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		return cliErr
	}
	return nil
}

// ReleaseError is a failed remote operation of the release pipeline.
type ReleaseError struct {
	// Op names the operation, e.g. "create release" or "upload asset".
	Op string
	// Target is the tag, asset or issue the operation was about.
	Target string
	Err    error
}

func (e *ReleaseError) Error() string {
	if e.Target == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Target, e.Err)
}

func (e *ReleaseError) Unwrap() error {
	return e.Err
}

// NewReleaseError wraps err, or returns nil when err is nil.
func NewReleaseError(op, target string, err error) error {
	if err == nil {
		return nil
	}
	return &ReleaseError{Op: op, Target: target, Err: err}
}

// ConflictError reports an existing release that may not be touched.
type ConflictError struct {
	Tag   string
	Draft bool
}

func (e *ConflictError) Error() string {
	kind := "published"
	if e.Draft {
		kind = "draft"
	}
	return fmt.Sprintf("a %s release for tag %s already exists", kind, e.Tag)
}

// Classify maps an error from the release pipeline to a category.
func Classify(err error) ErrorCategory {
	if cliErr := AsCLIError(err); cliErr != nil {
		return cliErr.Category
	}
	var conflict *ConflictError
	if errors.As(err, &conflict) {
		return Conflict
	}
	var release *ReleaseError
	if errors.As(err, &release) {
		return Remote
	}
	return Runtime
}
