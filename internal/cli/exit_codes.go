package cli

import (
	"errors"
	"fmt"

	"github.com/ariel-frischer/relsync/internal/config"
	clierrors "github.com/ariel-frischer/relsync/internal/errors"
)

// Exit codes for the relsync CLI.
// These codes let CI pipelines tell a conflict apart from a broken setup.
const (
	// ExitSuccess indicates successful command execution
	ExitSuccess = 0

	// ExitReleaseFailed indicates a remote or runtime failure
	ExitReleaseFailed = 1

	// ExitConflict indicates the release exists and may not be changed
	ExitConflict = 2

	// ExitInvalidArguments indicates invalid command arguments
	ExitInvalidArguments = 3

	// ExitConfiguration indicates invalid or incomplete configuration
	ExitConfiguration = 4

	// ExitRepository indicates the local repository could not be read
	ExitRepository = 5
)

// ExitError carries an explicit exit code.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit code %d", e.Code)
}

// NewExitError returns an error that makes the process exit with code.
func NewExitError(code int) error {
	return &ExitError{Code: code}
}

// ExitCode maps an error to the process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	var validation *config.ValidationError
	if errors.As(err, &validation) {
		return ExitConfiguration
	}

	switch clierrors.Classify(err) {
	case clierrors.Argument:
		return ExitInvalidArguments
	case clierrors.Configuration:
		return ExitConfiguration
	case clierrors.Conflict:
		return ExitConflict
	case clierrors.Repository:
		return ExitRepository
	default:
		return ExitReleaseFailed
	}
}
