package reconcile

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	clierrors "github.com/ariel-frischer/relsync/internal/errors"
	"github.com/ariel-frischer/relsync/internal/hosting"
)

// ApplyMilestone decides what happens to the milestone of an annotated issue.
type ApplyMilestone string

const (
	// ApplyAlways sets the release milestone on issues that have none.
	ApplyAlways ApplyMilestone = "ALWAYS"
	// ApplyWarn behaves like ApplyAlways and warns about issues that carry a
	// different milestone.
	ApplyWarn ApplyMilestone = "WARN"
	// ApplyForce sets the release milestone even over a different one.
	ApplyForce ApplyMilestone = "FORCE"
)

// ParseApplyMilestone accepts the policy names case-insensitively. The empty
// string means no milestone handling.
func ParseApplyMilestone(s string) (ApplyMilestone, error) {
	switch p := ApplyMilestone(strings.ToUpper(strings.TrimSpace(s))); p {
	case "", ApplyAlways, ApplyWarn, ApplyForce:
		return p, nil
	default:
		return "", fmt.Errorf("unknown milestone policy %q (want ALWAYS, WARN or FORCE)", s)
	}
}

// IssueOptions configure back-annotation of the issues a release fixes.
type IssueOptions struct {
	Enabled bool
	// Label marks an issue as released. An issue already carrying it is
	// skipped entirely, which makes re-runs idempotent.
	Label string
	// Comment is posted on each annotated issue; empty posts nothing.
	Comment        string
	ApplyMilestone ApplyMilestone
}

// annotateIssues labels, comments on and assigns the milestone to every
// closed issue referenced by the changelog.
func (x *run) annotateIssues(ctx context.Context) error {
	cfg := x.opts.Issues
	if !cfg.Enabled || len(x.desc.Issues) == 0 {
		return nil
	}
	return x.reporter.Step(fmt.Sprintf("Annotating %d issues", len(x.desc.Issues)), func() error {
		milestone, err := x.releaseMilestone(ctx)
		if err != nil {
			return err
		}
		for _, n := range x.desc.Issues {
			done, err := x.annotate(ctx, n, milestone)
			if err != nil {
				return err
			}
			if done {
				x.out.Annotated = append(x.out.Annotated, n)
			}
		}
		return nil
	})
}

func (x *run) releaseMilestone(ctx context.Context) (*hosting.Milestone, error) {
	name := x.desc.Milestone
	if x.opts.Issues.ApplyMilestone == "" || name == "" {
		return nil, nil
	}
	m, err := x.api.FindMilestoneByTitle(ctx, name)
	if err != nil {
		return nil, clierrors.NewReleaseError("find milestone", name, err)
	}
	if m == nil {
		x.log.Warn().Str("milestone", name).Msg("milestone not found, issues keep their milestone")
	}
	return m, nil
}

func (x *run) annotate(ctx context.Context, number int, milestone *hosting.Milestone) (bool, error) {
	target := "#" + strconv.Itoa(number)
	cfg := x.opts.Issues

	issue, err := x.api.FindIssue(ctx, number)
	if err != nil {
		return false, clierrors.NewReleaseError("find issue", target, err)
	}
	switch {
	case issue == nil:
		x.log.Debug().Int("issue", number).Msg("issue not found")
		return false, nil
	case !issue.Closed:
		x.log.Debug().Int("issue", number).Msg("issue still open, not annotated")
		return false, nil
	case cfg.Label != "" && issue.HasLabel(cfg.Label):
		x.log.Debug().Int("issue", number).Str("label", cfg.Label).Msg("issue already annotated")
		return false, nil
	}

	if cfg.Label != "" {
		if err := x.api.LabelIssue(ctx, number, cfg.Label); err != nil {
			return false, clierrors.NewReleaseError("label issue", target, err)
		}
	}
	if cfg.Comment != "" {
		if err := x.api.CommentIssue(ctx, number, cfg.Comment); err != nil {
			return false, clierrors.NewReleaseError("comment on issue", target, err)
		}
	}
	if milestone != nil && x.shouldSetMilestone(issue, milestone) {
		if err := x.api.SetIssueMilestone(ctx, number, *milestone); err != nil {
			return false, clierrors.NewReleaseError("set milestone on issue", target, err)
		}
	}
	return true, nil
}

func (x *run) shouldSetMilestone(issue *hosting.Issue, m *hosting.Milestone) bool {
	switch {
	case issue.Milestone == nil:
		return true
	case issue.Milestone.Title == m.Title:
		return false
	}
	switch x.opts.Issues.ApplyMilestone {
	case ApplyForce:
		return true
	case ApplyWarn:
		x.log.Warn().
			Int("issue", issue.Number).
			Str("milestone", issue.Milestone.Title).
			Str("release_milestone", m.Title).
			Msg("issue belongs to a different milestone")
	}
	return false
}
