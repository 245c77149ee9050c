// Package reconcile converges a remote release to a locally computed
// descriptor. The existing remote release puts the reconciler in one of
// three states; the configured mode picks the action from a fixed
// transition table. Remote calls are issued in a fixed order: deletes
// before the create, then the create or update, assets, milestone, and
// finally issue back-annotation.
package reconcile

import (
	"fmt"

	"github.com/ariel-frischer/relsync/internal/hosting"
)

// State is the observed state of the remote release.
type State int

const (
	Absent State = iota
	ExistingDraft
	ExistingPublished
)

func (s State) String() string {
	switch s {
	case Absent:
		return "absent"
	case ExistingDraft:
		return "existing-draft"
	case ExistingPublished:
		return "existing-published"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// StateOf classifies a release returned by FindReleaseByTag.
func StateOf(r *hosting.Release) State {
	switch {
	case r == nil:
		return Absent
	case r.Draft:
		return ExistingDraft
	default:
		return ExistingPublished
	}
}

// Mode is what the configuration allows doing with an existing release.
type Mode int

const (
	// ModeNone allows nothing; an existing release is a conflict.
	ModeNone Mode = iota
	ModeDryRun
	ModeUpdate
	ModeOverwrite
)

func (m Mode) String() string {
	switch m {
	case ModeNone:
		return "none"
	case ModeDryRun:
		return "dry-run"
	case ModeUpdate:
		return "update"
	case ModeOverwrite:
		return "overwrite"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ModeOf picks the mode from the options. Overwrite wins over update, and
// both win over a plain dry run.
func ModeOf(opts Options) Mode {
	switch {
	case opts.Overwrite:
		return ModeOverwrite
	case opts.Update:
		return ModeUpdate
	case opts.DryRun:
		return ModeDryRun
	default:
		return ModeNone
	}
}

// Action is the step sequence the reconciler runs.
type Action int

const (
	Create Action = iota
	Overwrite
	Update
	Reject
	SimulateCreate
)

func (a Action) String() string {
	switch a {
	case Create:
		return "create"
	case Overwrite:
		return "overwrite"
	case Update:
		return "update"
	case Reject:
		return "reject"
	case SimulateCreate:
		return "simulate-create"
	default:
		return fmt.Sprintf("Action(%d)", int(a))
	}
}

var existing = map[Mode]Action{
	ModeOverwrite: Overwrite,
	ModeUpdate:    Update,
	ModeDryRun:    SimulateCreate,
	ModeNone:      Reject,
}

var transitions = map[State]map[Mode]Action{
	Absent: {
		ModeOverwrite: Create,
		ModeUpdate:    Create,
		ModeDryRun:    Create,
		ModeNone:      Create,
	},
	ExistingDraft:     existing,
	ExistingPublished: existing,
}

// Decide looks up the action for a state and mode. Pairs outside the table
// are rejected.
func Decide(s State, m Mode) Action {
	if a, ok := transitions[s][m]; ok {
		return a
	}
	return Reject
}
