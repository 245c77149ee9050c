// Package commitrange selects the commits a release changelog covers.
package commitrange

import (
	"github.com/ariel-frischer/relsync/internal/git"
)

// Log walks history between two revisions, newest first. An empty
// fromExclusive means the whole history; an empty toInclusive means HEAD.
type Log interface {
	CommitLog(fromExclusive, toInclusive string) ([]git.Commit, error)
}

// Range names the endpoints a selection used, for reporting.
type Range struct {
	From string
	To   string
}

// String renders the range the way git does ("a..b").
func (r Range) String() string {
	to := r.To
	if to == "" {
		to = "HEAD"
	}
	if r.From == "" {
		return to
	}
	return r.From + ".." + to
}

// Bounds maps resolved tags onto commit-log endpoints:
//   - previous and current: previous..current
//   - previous only: previous..HEAD
//   - current only: full history up to current
//   - neither: full history up to HEAD
func Bounds(previous, current *git.Tag) Range {
	var r Range
	if previous != nil {
		r.From = previous.Commit
	}
	if current != nil {
		r.To = current.Commit
	}
	return r
}

// Select returns the commits between the boundary tags, newest first. Tags
// are compared through their peeled commit ids. No filtering is applied.
func Select(log Log, previous, current *git.Tag) ([]git.Commit, Range, error) {
	r := Bounds(previous, current)
	commits, err := log.CommitLog(r.From, r.To)
	if err != nil {
		return nil, r, err
	}
	return commits, r, nil
}
