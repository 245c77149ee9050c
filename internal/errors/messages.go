package errors

import (
	"fmt"
	"strings"
)

// Common error messages for the relsync CLI.
// These templates ensure consistent, actionable error messages.

// ReleaseConflict converts a ConflictError into a CLI error.
func ReleaseConflict(err *ConflictError) *CLIError {
	return &CLIError{
		Category: Conflict,
		Message:  err.Error(),
		Remediation: []string{
			"Set release.overwrite: true to delete and recreate it",
			"Or set release.update.enabled: true to patch it in place",
			"Preview the run with: relsync release --dry-run",
		},
		Err: err,
	}
}

// RepositoryNotFound creates an error when the working directory is not a
// git repository.
func RepositoryNotFound(path string, err error) *CLIError {
	return WrapWithMessage(err, Repository,
		fmt.Sprintf("not a git repository: %s", path),
		"Run relsync from inside a clone of the project",
		"Or pass the repository path with --dir",
	)
}

// MissingToken creates an error when the hosting service needs a token.
func MissingToken(service string) *CLIError {
	env := strings.ToUpper(service) + "_TOKEN"
	return NewConfigError(
		fmt.Sprintf("no API token configured for %s", service),
		"Set release.token in .relsync.yml",
		fmt.Sprintf("Or export RELSYNC_RELEASE__TOKEN or %s", env),
	)
}

// UnknownService creates an error for an unsupported hosting service name.
func UnknownService(name string, supported []string) *CLIError {
	return NewConfigError(
		fmt.Sprintf("unknown hosting service: %s", name),
		"Supported services: "+strings.Join(supported, ", "),
	)
}

// ConfigFileNotFound creates an error for missing config file.
func ConfigFileNotFound(path string) *CLIError {
	return NewConfigError(
		fmt.Sprintf("config file not found: %s", path),
		"Create .relsync.yml in the repository root",
		"Or pass an existing file with --config",
	)
}

// ConfigParseError creates an error for invalid config file format.
func ConfigParseError(path string, err error) *CLIError {
	return WrapWithMessage(err, Configuration,
		fmt.Sprintf("failed to parse config file: %s", path),
		"Check the file for YAML syntax errors",
		"Environment overrides use the RELSYNC_ prefix with __ between levels",
	)
}

// InvalidFlagCombination creates an error for incompatible flag combinations.
func InvalidFlagCombination(flags string, reason string) *CLIError {
	return NewArgumentError(
		fmt.Sprintf("invalid flag combination: %s", flags),
		reason,
		"Use 'relsync <command> --help' to see valid options",
	)
}

// ShallowClone creates the warning text shown for shallow clones.
func ShallowClone() *CLIError {
	return NewRuntimeError(
		"the repository is a shallow clone; tags and commits may be missing",
		"Fetch full history with: git fetch --unshallow --tags",
		"In CI, set fetch-depth: 0 on the checkout step",
	)
}

// RemoteTagMissingLocally creates the warning text for a tag that exists on
// the remote but not in the local clone.
func RemoteTagMissingLocally(tag string) *CLIError {
	return NewRuntimeError(
		fmt.Sprintf("tag %s exists on the remote but not locally", tag),
		"Fetch tags with: git fetch --tags",
		"Or rerun with --fetch-tags",
	)
}
