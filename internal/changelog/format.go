package changelog

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"

	"github.com/ariel-frischer/relsync/internal/output"
)

// lineStyle defines the color and icon for a class of changelog line.
type lineStyle struct {
	Color *color.Color
	Icon  string
}

var (
	headingStyle     = lineStyle{Color: color.New(color.FgCyan, color.Bold), Icon: "▸"}
	scopeStyle       = lineStyle{Color: color.New(color.FgBlue), Icon: "•"}
	entryStyle       = lineStyle{Color: color.New(color.Reset), Icon: "-"}
	breakingStyle    = lineStyle{Color: color.New(color.FgRed), Icon: "!"}
	separatorStyle   = lineStyle{Color: color.New(color.Faint), Icon: "─"}
	contributorStyle = lineStyle{Color: color.New(color.FgMagenta), Icon: "♥"}
)

// FormatOptions controls the terminal output formatting.
type FormatOptions struct {
	Plain    bool // Disable colors and icons
	MaxWidth int  // Maximum line width (0 = auto-detect)
}

// FormatTerminal writes a rendered changelog body with terminal styling.
// Plain mode writes the markdown unchanged.
func FormatTerminal(body string, w io.Writer, opts FormatOptions) error {
	if opts.Plain {
		_, err := io.WriteString(w, body)
		return err
	}

	width := resolveWidth(opts.MaxWidth)
	inContributors := false
	for _, line := range strings.Split(strings.TrimRight(body, "\n"), "\n") {
		if strings.HasPrefix(line, "## ") {
			inContributors = strings.HasPrefix(line, "## Contributors")
		}
		if err := writeLine(line, w, width, inContributors); err != nil {
			return fmt.Errorf("writing changelog line: %w", err)
		}
	}
	return nil
}

func writeLine(line string, w io.Writer, width int, inContributors bool) error {
	var err error
	switch {
	case strings.HasPrefix(line, "#"):
		text := strings.TrimSpace(strings.TrimLeft(line, "#"))
		_, err = fmt.Fprintf(w, "\n%s %s\n", headingStyle.Color.Sprint(headingStyle.Icon), headingStyle.Color.Sprint(text))
	case line == "---":
		n := width
		if n > 40 {
			n = 40
		}
		_, err = fmt.Fprintln(w, separatorStyle.Color.Sprint(strings.Repeat(separatorStyle.Icon, n)))
	case strings.HasPrefix(line, "**") && strings.HasSuffix(line, "**"):
		_, err = fmt.Fprintf(w, "  %s %s\n", scopeStyle.Icon, scopeStyle.Color.Sprint(strings.Trim(line, "*")))
	case strings.HasPrefix(line, "- "):
		style := entryStyle
		if strings.Contains(line, "🚨") {
			style = breakingStyle
		}
		prefix := "  " + style.Icon + " "
		wrapped := wrapText(strings.TrimPrefix(line, "- "), width-len(prefix), "    ")
		_, err = fmt.Fprintf(w, "%s%s\n", prefix, style.Color.Sprint(wrapped))
	case inContributors && line != "":
		_, err = fmt.Fprintf(w, "  %s %s\n", contributorStyle.Color.Sprint(contributorStyle.Icon), wrapText(line, width-4, "    "))
	default:
		_, err = fmt.Fprintln(w, line)
	}
	return err
}

func resolveWidth(maxWidth int) int {
	if maxWidth > 0 {
		return maxWidth
	}
	return output.GetTerminalWidth()
}

// wrapText breaks text between words so no line exceeds maxWidth runes, and
// indents continuation lines. A single word longer than maxWidth keeps its
// own line.
func wrapText(text string, maxWidth int, indent string) string {
	if maxWidth <= 0 || utf8.RuneCountInString(text) <= maxWidth {
		return text
	}

	var b strings.Builder
	lineLen := 0
	for i, word := range strings.Fields(text) {
		n := utf8.RuneCountInString(word)
		switch {
		case i == 0:
		case lineLen+1+n > maxWidth:
			b.WriteString("\n" + indent)
			lineLen = 0
		default:
			b.WriteByte(' ')
			lineLen++
		}
		b.WriteString(word)
		lineLen += n
	}
	return b.String()
}
