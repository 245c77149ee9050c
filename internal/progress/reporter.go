package progress

import (
	"fmt"
	"io"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
)

// Reporter prints one line per reconciliation step. On a TTY a spinner runs
// while the step is in flight; otherwise only the final line is written.
type Reporter struct {
	out     io.Writer
	caps    TerminalCapabilities
	symbols ProgressSymbols
	green   *color.Color
	red     *color.Color
}

// NewReporter returns a reporter writing to out.
func NewReporter(out io.Writer, caps TerminalCapabilities) *Reporter {
	r := &Reporter{
		out:     out,
		caps:    caps,
		symbols: SelectSymbols(caps),
		green:   color.New(color.FgGreen),
		red:     color.New(color.FgRed),
	}
	if !caps.SupportsColor {
		r.green.DisableColor()
		r.red.DisableColor()
	}
	return r
}

// Step runs fn and reports its outcome under name.
func (r *Reporter) Step(name string, fn func() error) error {
	var s *spinner.Spinner
	if r.caps.IsTTY {
		s = spinner.New(spinner.CharSets[r.symbols.SpinnerSet], 100*time.Millisecond, spinner.WithWriter(r.out))
		s.Suffix = " " + name
		s.Start()
	}

	err := fn()

	if s != nil {
		s.Stop()
	}
	if err != nil {
		fmt.Fprintf(r.out, "%s %s\n", r.red.Sprint(r.symbols.Failure), name)
		return err
	}
	fmt.Fprintf(r.out, "%s %s\n", r.green.Sprint(r.symbols.Checkmark), name)
	return nil
}
