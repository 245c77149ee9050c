// Package release runs the release pipeline: it resolves the tags bounding
// the release, selects the commits between them, renders the changelog and
// hands the resulting descriptor to the reconciler.
package release

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"slices"

	"github.com/rs/zerolog"

	"github.com/ariel-frischer/relsync/internal/changelog"
	"github.com/ariel-frischer/relsync/internal/commitrange"
	"github.com/ariel-frischer/relsync/internal/config"
	clierrors "github.com/ariel-frischer/relsync/internal/errors"
	"github.com/ariel-frischer/relsync/internal/git"
	"github.com/ariel-frischer/relsync/internal/hosting"
	"github.com/ariel-frischer/relsync/internal/reconcile"
	"github.com/ariel-frischer/relsync/internal/tags"
	"github.com/ariel-frischer/relsync/internal/template"
	"github.com/ariel-frischer/relsync/internal/version"
)

// Repository is the version-control access the pipeline needs.
type Repository interface {
	commitrange.Log
	reconcile.Tagger
	Root() string
	ListTags() ([]git.Tag, error)
	Head() (string, error)
	CurrentBranch() (string, error)
	IsShallow() (bool, error)
	FetchTags(ctx context.Context) (bool, error)
}

// Plan is everything computed locally before the hosting service is touched.
type Plan struct {
	Snapshot   bool
	Prerelease bool
	Resolution tags.Resolution
	Range      commitrange.Range
	Commits    []git.Commit
	// Changelog is nil when changelog generation is disabled.
	Changelog     *changelog.Result
	ReleaseName   string
	MilestoneName string
	Props         template.Props
}

// Body is the release notes text.
func (p *Plan) Body() string {
	if p.Changelog == nil {
		return ""
	}
	return p.Changelog.Body
}

// Issues are the issue numbers the changelog references.
func (p *Plan) Issues() []int {
	if p.Changelog == nil {
		return nil
	}
	return p.Changelog.Issues
}

// Result describes a finished run.
type Result struct {
	Plan          *Plan
	Outcome       *reconcile.Outcome
	ChangelogPath string
	IssuesPath    string
}

// Engine runs one release.
type Engine struct {
	cfg       *config.Configuration
	repo      Repository
	api       hosting.API
	coords    Coordinates
	log       zerolog.Logger
	warnings  io.Writer
	reporter  reconcile.Reporter
	templates *template.Engine
}

// Option configures an Engine.
type Option func(*Engine)

// WithWarnings receives formatted warnings (shallow clone, missing tags).
func WithWarnings(w io.Writer) Option {
	return func(e *Engine) { e.warnings = w }
}

// WithReporter wraps reconciliation steps, e.g. with a spinner.
func WithReporter(r reconcile.Reporter) Option {
	return func(e *Engine) { e.reporter = r }
}

// New returns an engine. api may be nil when only Prepare is used.
func New(cfg *config.Configuration, repo Repository, api hosting.API, coords Coordinates, log zerolog.Logger, opts ...Option) *Engine {
	e := &Engine{
		cfg:       cfg,
		repo:      repo,
		api:       api,
		coords:    coords,
		log:       log,
		warnings:  io.Discard,
		templates: template.New(),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Prepare resolves tags, selects commits and renders the changelog. Identity
// lookups hit the hosting service only when resolveUsers is set.
func (e *Engine) Prepare(ctx context.Context, resolveUsers bool) (*Plan, error) {
	project := e.cfg.Project
	rel := e.cfg.Release

	if rel.FetchTags {
		if _, err := e.repo.FetchTags(ctx); err != nil {
			e.log.Warn().Err(err).Msg("fetching tags failed, using local tags")
		}
	}
	if shallow, err := e.repo.IsShallow(); err == nil && shallow {
		e.warn(clierrors.ShallowClone())
	}

	scheme, err := version.New(version.Kind(project.Versioning.Scheme), version.Options{Format: project.Versioning.Format})
	if err != nil {
		return nil, clierrors.WrapWithMessage(err, clierrors.Configuration, "invalid versioning configuration")
	}

	snapshot, err := matches(project.Snapshot.Pattern, project.Version)
	if err != nil {
		return nil, clierrors.WrapWithMessage(err, clierrors.Configuration, "invalid project.snapshot.pattern")
	}
	effectiveVersion := project.Version
	if snapshot {
		effectiveVersion = project.Snapshot.Label
	}

	props := projectProps(project, e.coords, effectiveVersion)
	pattern, err := tags.CompilePattern(rel.TagName, e.templates, props)
	if err != nil {
		return nil, clierrors.WrapWithMessage(err, clierrors.Configuration, "invalid release.tag_name")
	}

	localTags, err := e.repo.ListTags()
	if err != nil {
		return nil, clierrors.WrapWithMessage(err, clierrors.Repository, "cannot list tags")
	}
	req := tags.Request{
		Pattern:        pattern,
		Scheme:         scheme,
		CurrentVersion: project.Version,
		PreviousTag:    rel.PreviousTagName,
		Snapshot:       snapshot,
		SnapshotLabel:  project.Snapshot.Label,
		FullChangelog:  project.Snapshot.FullChangelog,
	}
	res := tags.NewResolver(e.log).Resolve(localTags, req)

	plan := &Plan{Snapshot: snapshot, Resolution: res, Props: props}
	props[PropTagName] = res.EffectiveTag
	props[PropPreviousTagName] = ""
	if res.Previous != nil {
		props[PropPreviousTagName] = res.Previous.Name
	}
	props[PropReleaseNotesURL] = e.coords.ReleaseNotesURL(res.EffectiveTag)

	if snapshot {
		plan.ReleaseName = project.Snapshot.Label
	} else if plan.ReleaseName, err = e.templates.Render(rel.ReleaseName, props); err != nil {
		return nil, clierrors.WrapWithMessage(err, clierrors.Configuration, "invalid release.release_name")
	}
	props[PropReleaseName] = plan.ReleaseName

	if !snapshot && rel.Milestone.Name != "" {
		if plan.MilestoneName, err = e.templates.Render(rel.Milestone.Name, props); err != nil {
			return nil, clierrors.WrapWithMessage(err, clierrors.Configuration, "invalid release.milestone.name")
		}
	}
	props[PropMilestoneName] = plan.MilestoneName

	plan.Prerelease = snapshot || rel.Prerelease.Enabled
	if !plan.Prerelease && rel.Prerelease.Pattern != "" {
		if plan.Prerelease, err = matches(rel.Prerelease.Pattern, project.Version); err != nil {
			return nil, clierrors.WrapWithMessage(err, clierrors.Configuration, "invalid release.prerelease.pattern")
		}
	}

	plan.Commits, plan.Range, err = commitrange.Select(e.repo, res.Previous, res.Current)
	if err != nil {
		return nil, clierrors.WrapWithMessage(err, clierrors.Repository, "cannot read commit history")
	}
	e.log.Info().
		Str("tag", res.EffectiveTag).
		Str("previous", props[PropPreviousTagName].(string)).
		Stringer("range", plan.Range).
		Int("commits", len(plan.Commits)).
		Bool("snapshot", snapshot).
		Msg("resolved release boundaries")

	if e.cfg.Changelog.Enabled {
		if plan.Changelog, err = e.formatChangelog(ctx, plan, resolveUsers); err != nil {
			return nil, err
		}
	}
	return plan, nil
}

func (e *Engine) formatChangelog(ctx context.Context, plan *Plan, resolveUsers bool) (*changelog.Result, error) {
	fopts := []changelog.FormatterOption{
		changelog.WithLogger(e.log),
		changelog.WithRepository(changelog.Repository{
			Owner:           e.coords.Owner,
			Name:            e.coords.Name,
			URL:             e.coords.WebURL,
			IssueTrackerURL: e.coords.IssueTrackerURL(),
		}),
	}
	if resolveUsers && e.api != nil {
		fopts = append(fopts, changelog.WithUserLookup(userLookup{api: e.api}))
	}

	f, err := changelog.NewFormatter(e.cfg.Changelog.Options(), e.templates, fopts...)
	if err != nil {
		return nil, clierrors.WrapWithMessage(err, clierrors.Configuration, "invalid changelog configuration")
	}
	result, err := f.Format(ctx, plan.Commits, plan.Props)
	if err != nil {
		return nil, clierrors.WrapWithMessage(err, clierrors.Configuration, "cannot render the changelog")
	}
	plan.Props["changelogChanges"] = result.Body
	return result, nil
}

// Run prepares the release, writes the output files and reconciles the
// remote release.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	if e.api == nil {
		return nil, fmt.Errorf("release: no hosting service configured")
	}
	rel := e.cfg.Release

	plan, err := e.Prepare(ctx, !e.cfg.DryRun)
	if err != nil {
		return nil, err
	}
	result := &Result{Plan: plan}

	if result.ChangelogPath, result.IssuesPath, err = writeOutputs(e.outputDir(), plan); err != nil {
		return result, clierrors.WrapWithMessage(err, clierrors.Runtime, "cannot write release files")
	}

	e.checkRemoteTag(ctx, plan)

	target, err := e.targetCommitish(ctx)
	if err != nil {
		return result, err
	}
	commit, err := e.tagCommit(plan)
	if err != nil {
		return result, err
	}
	assets, err := collectAssets(e.repo.Root(), rel.Assets, e.log)
	if err != nil {
		return result, err
	}

	opts, err := e.reconcileOptions(plan)
	if err != nil {
		return result, err
	}
	desc := reconcile.Descriptor{
		TagName:            plan.Resolution.EffectiveTag,
		Commit:             commit,
		TargetCommitish:    target,
		Name:               plan.ReleaseName,
		Body:               plan.Body(),
		Draft:              rel.Draft,
		Prerelease:         plan.Prerelease,
		Assets:             assets,
		DiscussionCategory: rel.DiscussionCategory,
		Milestone:          plan.MilestoneName,
		Issues:             plan.Issues(),
	}

	rc := reconcile.New(e.api, e.repo, e.log, reconcile.WithReporter(e.reporter))
	result.Outcome, err = rc.Run(ctx, desc, opts)
	return result, err
}

func (e *Engine) reconcileOptions(plan *Plan) (reconcile.Options, error) {
	rel := e.cfg.Release
	policy, err := reconcile.ParseApplyMilestone(rel.Issues.ApplyMilestone)
	if err != nil {
		return reconcile.Options{}, clierrors.WrapWithMessage(err, clierrors.Configuration, "invalid release.issues.apply_milestone")
	}
	comment := ""
	if rel.Issues.Enabled && rel.Issues.Comment != "" {
		if comment, err = e.templates.Render(rel.Issues.Comment, plan.Props); err != nil {
			return reconcile.Options{}, clierrors.WrapWithMessage(err, clierrors.Configuration, "invalid release.issues.comment")
		}
	}
	sections := make([]reconcile.Section, 0, len(rel.Update.Sections))
	for _, s := range rel.Update.Sections {
		sections = append(sections, reconcile.Section(s))
	}

	opts := reconcile.Options{
		// A snapshot tag moves with every build, so its release is replaced.
		Overwrite:      rel.Overwrite || plan.Snapshot,
		Update:         rel.Update.Enabled,
		UpdateSections: sections,
		DryRun:         e.cfg.DryRun,
		SkipTag:        rel.SkipTag,
		MovingTag:      plan.Snapshot,
		Sign:           rel.Sign,
		CloseMilestone: rel.Milestone.Close,
		Issues: reconcile.IssueOptions{
			Enabled:        rel.Issues.Enabled,
			Label:          rel.Issues.Label,
			Comment:        comment,
			ApplyMilestone: policy,
		},
	}
	if rel.Sign {
		opts.TagMessage = plan.ReleaseName
	}
	return opts, nil
}

// checkRemoteTag warns when the hosting service already has the tag while
// the local clone does not, which usually means tags were not fetched.
func (e *Engine) checkRemoteTag(ctx context.Context, plan *Plan) {
	if plan.Snapshot || plan.Resolution.Current != nil {
		return
	}
	remote, err := e.api.ListTags(ctx)
	if err != nil {
		e.log.Debug().Err(err).Msg("listing remote tags failed, skipping presence check")
		return
	}
	if slices.Contains(remote, plan.Resolution.EffectiveTag) {
		e.warn(clierrors.RemoteTagMissingLocally(plan.Resolution.EffectiveTag))
	}
}

// targetCommitish picks the configured or current branch when the remote
// has it, and the HEAD commit otherwise.
func (e *Engine) targetCommitish(ctx context.Context) (string, error) {
	branch := e.cfg.Release.Branch
	if branch == "" {
		branch, _ = e.repo.CurrentBranch()
	}
	if branch != "" {
		remote, err := e.api.ListBranches(ctx)
		if err != nil {
			return "", clierrors.NewReleaseError("list branches", branch, err)
		}
		if slices.Contains(remote, branch) {
			return branch, nil
		}
	}

	head, err := e.repo.Head()
	if err != nil {
		return "", clierrors.WrapWithMessage(err, clierrors.Repository, "cannot resolve HEAD")
	}
	e.log.Warn().Str("branch", branch).Str("commit", head).Msg("branch not found on the remote, targeting the HEAD commit")
	return head, nil
}

// tagCommit is the commit the tag points at: the existing local tag's
// commit, or HEAD for a new tag.
func (e *Engine) tagCommit(plan *Plan) (string, error) {
	if c := plan.Resolution.Current; c != nil && !plan.Snapshot {
		return c.Commit, nil
	}
	head, err := e.repo.Head()
	if err != nil {
		return "", clierrors.WrapWithMessage(err, clierrors.Repository, "cannot resolve HEAD")
	}
	return head, nil
}

func (e *Engine) warn(w *clierrors.CLIError) {
	e.log.Warn().Msg(w.Message)
	fmt.Fprint(e.warnings, clierrors.FormatWarning(w))
}

// matches reports whether pattern matches all of s.
func matches(pattern, s string) (bool, error) {
	if pattern == "" {
		return false, nil
	}
	return regexp.MatchString("^(?:"+pattern+")$", s)
}
