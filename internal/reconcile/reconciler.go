package reconcile

import (
	"context"
	"slices"

	"github.com/rs/zerolog"

	clierrors "github.com/ariel-frischer/relsync/internal/errors"
	"github.com/ariel-frischer/relsync/internal/git"
	"github.com/ariel-frischer/relsync/internal/hosting"
)

// Section is a part of an existing release that update mode may patch.
type Section string

const (
	SectionTitle  Section = "TITLE"
	SectionBody   Section = "BODY"
	SectionAssets Section = "ASSETS"
)

// Sections lists every update section.
func Sections() []Section {
	return []Section{SectionTitle, SectionBody, SectionAssets}
}

// Asset is a local file to attach to the release.
type Asset struct {
	Name string
	Path string
}

// Descriptor is the desired remote state, computed fresh on every run.
type Descriptor struct {
	TagName string
	// Commit is the object the local tag points at.
	Commit string
	// TargetCommitish is what the hosting service tags if the tag is missing
	// remotely; a branch name or commit id.
	TargetCommitish    string
	Name               string
	Body               string
	Draft              bool
	Prerelease         bool
	Assets             []Asset
	DiscussionCategory string
	Milestone          string
	Issues             []int
}

// Options carry the release switches relevant to reconciliation.
type Options struct {
	Overwrite      bool
	Update         bool
	UpdateSections []Section
	DryRun         bool
	SkipTag        bool
	// MovingTag marks a label that is re-pointed on every build, such as a
	// snapshot tag. A stale copy is removed before the tag is created again.
	MovingTag      bool
	Sign           bool
	TagMessage     string
	CloseMilestone bool
	Issues         IssueOptions
}

func (o Options) patches(s Section) bool {
	return slices.Contains(o.UpdateSections, s)
}

// Tagger creates and removes local tags.
type Tagger interface {
	CreateTag(ctx context.Context, name, target string, opts git.TagOptions) error
	DeleteTag(name string) error
}

// Reporter wraps each externally visible step, e.g. with a spinner.
type Reporter interface {
	Step(name string, fn func() error) error
}

type silent struct{}

func (silent) Step(_ string, fn func() error) error { return fn() }

// Outcome describes what a run did.
type Outcome struct {
	State   State
	Mode    Mode
	Action  Action
	Release *hosting.Release
	// Uploaded holds assets that were new; Replaced holds assets deleted
	// and uploaded again.
	Uploaded  []string
	Replaced  []string
	Annotated []int
}

// Reconciler owns one release run.
type Reconciler struct {
	api      hosting.API
	tagger   Tagger
	log      zerolog.Logger
	reporter Reporter
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithReporter sets the step reporter.
func WithReporter(r Reporter) Option {
	return func(rc *Reconciler) {
		if r != nil {
			rc.reporter = r
		}
	}
}

// New returns a reconciler. tagger may be nil when tags are never created
// locally.
func New(api hosting.API, tagger Tagger, log zerolog.Logger, opts ...Option) *Reconciler {
	r := &Reconciler{api: api, tagger: tagger, log: log, reporter: silent{}}
	for _, o := range opts {
		o(r)
	}
	return r
}

// run is the state of one Run call.
type run struct {
	*Reconciler
	api  hosting.API
	desc Descriptor
	opts Options
	out  *Outcome
}

// Run reconciles the remote release for d.TagName. A dry run reads the
// remote but every write goes through hosting.DryRun and no local tag is
// touched.
func (r *Reconciler) Run(ctx context.Context, d Descriptor, opts Options) (*Outcome, error) {
	x := &run{Reconciler: r, api: r.api, desc: d, opts: opts, out: &Outcome{}}
	if opts.DryRun {
		x.api = hosting.DryRun(r.api, r.log)
	}

	var current *hosting.Release
	err := r.reporter.Step("Looking up release "+d.TagName, func() error {
		var err error
		current, err = x.api.FindReleaseByTag(ctx, d.TagName)
		return clierrors.NewReleaseError("find release", d.TagName, err)
	})
	if err != nil {
		return x.out, err
	}

	x.out.State = StateOf(current)
	x.out.Mode = ModeOf(opts)
	x.out.Action = Decide(x.out.State, x.out.Mode)
	r.log.Info().
		Str("tag", d.TagName).
		Stringer("state", x.out.State).
		Stringer("mode", x.out.Mode).
		Stringer("action", x.out.Action).
		Msg("reconciling release")

	switch x.out.Action {
	case Reject:
		return x.out, &clierrors.ConflictError{Tag: d.TagName, Draft: current.Draft}
	case SimulateCreate:
		r.log.Warn().Str("tag", d.TagName).Msg("release exists and may not be changed; simulating a full create")
		err = x.create(ctx)
	case Overwrite:
		err = x.overwrite(ctx, current)
	case Update:
		err = x.update(ctx, current)
	default:
		if opts.MovingTag {
			if err := x.dropTag(ctx); err != nil {
				return x.out, err
			}
		}
		err = x.create(ctx)
	}
	return x.out, err
}

func (x *run) overwrite(ctx context.Context, current *hosting.Release) error {
	tag := x.desc.TagName
	err := x.reporter.Step("Deleting release "+tag, func() error {
		return clierrors.NewReleaseError("delete release", tag, x.api.DeleteRelease(ctx, current.ID))
	})
	if err != nil {
		return err
	}
	if err := x.dropTag(ctx); err != nil {
		return err
	}
	return x.create(ctx)
}

// dropTag deletes the remote and the local tag. Either may already be gone.
func (x *run) dropTag(ctx context.Context) error {
	tag := x.desc.TagName
	err := x.reporter.Step("Deleting tag "+tag, func() error {
		return clierrors.NewReleaseError("delete remote tag", tag, x.api.DeleteTag(ctx, tag))
	})
	if err != nil {
		return err
	}
	if x.opts.SkipTag || x.opts.DryRun || x.tagger == nil {
		return nil
	}
	return x.tagger.DeleteTag(tag)
}

func (x *run) create(ctx context.Context) error {
	if err := x.tagLocally(ctx); err != nil {
		return err
	}

	d := x.desc
	err := x.reporter.Step("Creating release "+d.TagName, func() error {
		rel, err := x.api.CreateRelease(ctx, hosting.ReleaseRequest{
			TagName:            d.TagName,
			TargetCommitish:    d.TargetCommitish,
			Name:               d.Name,
			Body:               d.Body,
			Draft:              d.Draft,
			Prerelease:         d.Prerelease,
			DiscussionCategory: d.DiscussionCategory,
		})
		if err != nil {
			return clierrors.NewReleaseError("create release", d.TagName, err)
		}
		x.out.Release = rel
		return x.promoteDraft(ctx)
	})
	if err != nil {
		return err
	}

	if err := x.uploadAssets(ctx, x.desc.Assets, nil); err != nil {
		return err
	}
	if err := x.closeMilestone(ctx); err != nil {
		return err
	}
	return x.annotateIssues(ctx)
}

func (x *run) tagLocally(ctx context.Context) error {
	d := x.desc
	switch {
	case x.opts.SkipTag || x.tagger == nil:
		return nil
	case x.opts.DryRun:
		x.log.Info().Str("tag", d.TagName).Str("commit", d.Commit).Bool("dry_run", true).Msg("skipped local tag")
		return nil
	}
	return x.reporter.Step("Tagging "+d.TagName, func() error {
		return x.tagger.CreateTag(ctx, d.TagName, d.Commit, git.TagOptions{Message: x.opts.TagMessage, Sign: x.opts.Sign})
	})
}

// promoteDraft re-reads a freshly created release: some services mark a new
// release as draft even though the request asked for a published one.
func (x *run) promoteDraft(ctx context.Context) error {
	if x.desc.Draft {
		return nil
	}
	rel := x.out.Release
	fetched, err := x.api.GetRelease(ctx, rel.ID)
	if err != nil {
		return clierrors.NewReleaseError("get release", x.desc.TagName, err)
	}
	if fetched == nil || !fetched.Draft {
		return nil
	}

	x.log.Warn().Str("tag", x.desc.TagName).Int64("release", rel.ID).Msg("release was created as draft, publishing it")
	published := false
	updated, err := x.api.UpdateRelease(ctx, rel.ID, hosting.ReleasePatch{Draft: &published})
	if err != nil {
		return clierrors.NewReleaseError("publish release", x.desc.TagName, err)
	}
	x.out.Release = updated
	return nil
}

func (x *run) update(ctx context.Context, current *hosting.Release) error {
	d := x.desc
	var patch hosting.ReleasePatch
	if x.opts.patches(SectionTitle) && current.Name != d.Name {
		patch.Name = &d.Name
	}
	if x.opts.patches(SectionBody) && current.Body != d.Body {
		patch.Body = &d.Body
	}
	if d.DiscussionCategory != "" {
		patch.DiscussionCategory = &d.DiscussionCategory
	}

	x.out.Release = current
	if !patch.IsEmpty() {
		err := x.reporter.Step("Updating release "+d.TagName, func() error {
			rel, err := x.api.UpdateRelease(ctx, current.ID, patch)
			if err != nil {
				return clierrors.NewReleaseError("update release", d.TagName, err)
			}
			x.out.Release = rel
			return nil
		})
		if err != nil {
			return err
		}
	} else {
		x.log.Debug().Str("tag", d.TagName).Msg("release title and body already up to date")
	}

	if x.opts.patches(SectionAssets) {
		var remote []hosting.Asset
		err := x.reporter.Step("Listing assets", func() error {
			var err error
			remote, err = x.api.ListAssets(ctx, current.ID)
			return clierrors.NewReleaseError("list assets", d.TagName, err)
		})
		if err != nil {
			return err
		}
		if err := x.uploadAssets(ctx, d.Assets, hosting.AssetsByName(remote)); err != nil {
			return err
		}
	}
	return x.annotateIssues(ctx)
}

func (x *run) closeMilestone(ctx context.Context) error {
	name := x.desc.Milestone
	if !x.opts.CloseMilestone || name == "" {
		return nil
	}
	return x.reporter.Step("Closing milestone "+name, func() error {
		m, err := x.api.FindMilestoneByTitle(ctx, name)
		if err != nil {
			return clierrors.NewReleaseError("find milestone", name, err)
		}
		if m == nil {
			x.log.Debug().Str("milestone", name).Msg("milestone not found, nothing to close")
			return nil
		}
		if !m.Open {
			return nil
		}
		return clierrors.NewReleaseError("close milestone", name, x.api.CloseMilestone(ctx, *m))
	})
}
