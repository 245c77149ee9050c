package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/ariel-frischer/relsync/internal/reconcile"
	"github.com/ariel-frischer/relsync/internal/version"
)

// ValidationError represents a configuration validation error with context
type ValidationError struct {
	FilePath string
	Line     int
	Column   int
	Message  string
	Field    string
}

func (e *ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s", e.FilePath, e.Line, e.Column, e.Message)
	}
	if e.Field != "" {
		return fmt.Sprintf("%s: field '%s': %s", e.FilePath, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.FilePath, e.Message)
}

// ValidateYAMLSyntax reports a *ValidationError with the position of the
// first syntax error in filePath. Missing and blank files are valid: the
// defaults apply.
func ValidateYAMLSyntax(filePath string) error {
	data, err := os.ReadFile(filePath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil
	case errors.Is(err, fs.ErrPermission):
		return &ValidationError{FilePath: filePath, Message: "permission denied"}
	case err != nil:
		return &ValidationError{FilePath: filePath, Message: err.Error()}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	var node yaml.Node
	err = yaml.Unmarshal(data, &node)
	if err == nil {
		return nil
	}
	var typeErr *yaml.TypeError
	if errors.As(err, &typeErr) {
		return &ValidationError{FilePath: filePath, Message: strings.Join(typeErr.Errors, "; ")}
	}
	line, column := extractLineColumn(err.Error())
	return &ValidationError{
		FilePath: filePath,
		Line:     line,
		Column:   column,
		Message:  cleanYAMLError(err.Error()),
	}
}

// ValidateConfigValues validates configuration values against expected types and constraints.
// Returns nil if valid, or a ValidationError with field information if invalid.
func ValidateConfigValues(cfg *Configuration, filePath string) error {
	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			for _, fieldErr := range validationErrors {
				return &ValidationError{
					FilePath: filePath,
					Field:    fieldPath(fieldErr),
					Message:  formatValidationError(fieldErr),
				}
			}
		}
		return &ValidationError{
			FilePath: filePath,
			Message:  err.Error(),
		}
	}

	return validateCrossFields(cfg, filePath)
}

// versionPlaceholder matches {{projectVersion}} and {{ .projectVersion }}.
var versionPlaceholder = regexp.MustCompile(`\{\{-?\s*\.?projectVersion\s*-?\}\}`)

// validateCrossFields checks constraints the struct tags cannot express.
func validateCrossFields(cfg *Configuration, filePath string) error {
	fail := func(field, msg string, args ...any) error {
		return &ValidationError{FilePath: filePath, Field: field, Message: fmt.Sprintf(msg, args...)}
	}

	if n := len(versionPlaceholder.FindAllString(cfg.Release.TagName, -1)); n > 1 {
		return fail("release.tag_name", "may reference {{projectVersion}} at most once, found %d", n)
	}
	if cfg.Project.Versioning.Scheme == string(version.CalVer) && cfg.Project.Versioning.Format == "" {
		return fail("project.versioning.format", "is required for CALVER")
	}
	if _, err := version.New(version.Kind(cfg.Project.Versioning.Scheme), version.Options{Format: cfg.Project.Versioning.Format}); err != nil {
		return fail("project.versioning", "%v", err)
	}

	for _, s := range cfg.Release.Update.Sections {
		if !slices.Contains(reconcile.Sections(), reconcile.Section(s)) {
			return fail("release.update.sections", "unknown section %q (valid options: TITLE, BODY, ASSETS)", s)
		}
	}
	if _, err := reconcile.ParseApplyMilestone(cfg.Release.Issues.ApplyMilestone); err != nil {
		return fail("release.issues.apply_milestone", "%v", err)
	}

	if _, err := regexp.Compile(cfg.Project.Snapshot.Pattern); err != nil {
		return fail("project.snapshot.pattern", "invalid regular expression: %v", err)
	}
	if _, err := regexp.Compile(cfg.Release.Prerelease.Pattern); err != nil {
		return fail("release.prerelease.pattern", "invalid regular expression: %v", err)
	}

	if cfg.Release.Service == "generic" && len(cfg.Release.Assets) > 0 {
		return fail("release.assets", "the generic service cannot host assets")
	}
	if cfg.Release.Service == "gitea" && cfg.Release.Host == "" {
		return fail("release.host", "is required for gitea")
	}
	return nil
}

// yamlPosition matches the "yaml: line 5: column 3: " prefix of yaml.v3
// errors; the column part is optional.
var yamlPosition = regexp.MustCompile(`^yaml: line (\d+):(?: column (\d+):)? `)

// extractLineColumn returns 0, 0 when errMsg carries no position. A message
// with a line but no column points at column 1.
func extractLineColumn(errMsg string) (line, column int) {
	m := yamlPosition.FindStringSubmatch(errMsg)
	if m == nil {
		return 0, 0
	}
	line, _ = strconv.Atoi(m[1])
	column = 1
	if m[2] != "" {
		column, _ = strconv.Atoi(m[2])
	}
	return line, column
}

// cleanYAMLError drops the position prefix, which ValidationError prints
// on its own.
func cleanYAMLError(errMsg string) string {
	if loc := yamlPosition.FindStringIndex(errMsg); loc != nil {
		return errMsg[loc[1]:]
	}
	return strings.TrimPrefix(errMsg, "yaml: ")
}

// formatValidationError formats a validation error for a specific field.
func formatValidationError(fieldErr validator.FieldError) string {
	switch fieldErr.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", fieldErr.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fieldErr.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", strings.ReplaceAll(fieldErr.Param(), " ", ", "))
	default:
		return fmt.Sprintf("failed validation: %s", fieldErr.Tag())
	}
}

// fieldPath turns "Configuration.Release.TagName" into "release.tag_name".
func fieldPath(fieldErr validator.FieldError) string {
	parts := strings.Split(fieldErr.StructNamespace(), ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	for i, p := range parts {
		parts[i] = toSnakeCase(p)
	}
	return strings.Join(parts, ".")
}

// toSnakeCase converts a CamelCase field name to snake_case.
func toSnakeCase(s string) string {
	var result strings.Builder
	for i, r := range s {
		if i > 0 && r >= 'A' && r <= 'Z' {
			result.WriteRune('_')
		}
		result.WriteRune(r)
	}
	return strings.ToLower(result.String())
}
