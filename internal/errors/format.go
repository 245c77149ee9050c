package errors

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// palette holds the sprint functions for one output mode.
type palette struct {
	label, message, fix, usage, usageText, bullet, category func(a ...any) string
}

var (
	colored = palette{
		label:     color.New(color.FgRed, color.Bold).SprintFunc(),
		message:   color.New(color.FgRed).SprintFunc(),
		fix:       color.New(color.FgGreen, color.Bold).SprintFunc(),
		usage:     color.New(color.FgCyan, color.Bold).SprintFunc(),
		usageText: color.New(color.FgCyan).SprintFunc(),
		bullet:    color.New(color.FgGreen).SprintFunc(),
		category:  color.New(color.FgYellow).SprintFunc(),
	}
	plain = palette{
		label: fmt.Sprint, message: fmt.Sprint, fix: fmt.Sprint, usage: fmt.Sprint,
		usageText: fmt.Sprint, bullet: fmt.Sprint, category: fmt.Sprint,
	}
	warnLabel = color.New(color.FgYellow, color.Bold).SprintFunc()
)

// FormatError formats a CLIError for display in the terminal.
// fatih/color drops the escapes itself when stderr is not a terminal.
func FormatError(err *CLIError) string {
	if err == nil {
		return ""
	}
	return formatError(err, "Error", colored)
}

// FormatErrorPlain formats a CLIError without colors.
func FormatErrorPlain(err *CLIError) string {
	if err == nil {
		return ""
	}
	return formatError(err, "Error", plain)
}

// FormatWarning formats a CLIError used as a non-fatal notice.
func FormatWarning(err *CLIError) string {
	if err == nil {
		return ""
	}
	p := colored
	p.label = warnLabel
	p.message = fmt.Sprint
	return formatError(err, "Warning", p)
}

func formatError(err *CLIError, heading string, p palette) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "%s [%s]: %s\n", p.label(heading), p.category(err.Category.String()), p.message(err.Message))

	if err.Usage != "" {
		fmt.Fprintf(&sb, "\n%s%s\n", p.usage("Usage: "), p.usageText(err.Usage))
	}

	if len(err.Remediation) > 0 {
		fmt.Fprintf(&sb, "\n%s\n", p.fix("To fix this:"))
		for _, step := range err.Remediation {
			fmt.Fprintf(&sb, "  %s %s\n", p.bullet("•"), step)
		}
	}

	return sb.String()
}

// FprintError prints any error to w. Errors that are not CLIErrors are
// classified first.
func FprintError(w io.Writer, err error) {
	if err == nil {
		return
	}
	cliErr := AsCLIError(err)
	if cliErr == nil {
		var conflict *ConflictError
		if errors.As(err, &conflict) {
			cliErr = ReleaseConflict(conflict)
		} else {
			cliErr = &CLIError{Category: Classify(err), Message: err.Error(), Err: err}
		}
	}
	fmt.Fprint(w, FormatError(cliErr))
}
