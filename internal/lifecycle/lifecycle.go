// Package lifecycle times command execution and reports completion to a
// handler. It is intentionally minimal: no event bus, no goroutines.
package lifecycle

import "time"

// CompletionHandler receives the result of a finished command.
type CompletionHandler interface {
	// OnCommandComplete is called once per Run, after fn returns.
	OnCommandComplete(name string, err error, duration time.Duration)
}

// Run executes fn and reports its error and duration to h. A nil handler
// only runs fn.
func Run(h CompletionHandler, name string, fn func() error) error {
	start := time.Now()
	err := fn()
	if h != nil {
		h.OnCommandComplete(name, err, time.Since(start))
	}
	return err
}
