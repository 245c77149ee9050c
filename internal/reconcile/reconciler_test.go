package reconcile

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	clierrors "github.com/ariel-frischer/relsync/internal/errors"
	"github.com/ariel-frischer/relsync/internal/git"
	"github.com/ariel-frischer/relsync/internal/hosting"
	"github.com/ariel-frischer/relsync/internal/hosting/hostingtest"
)

type fakeTagger struct {
	calls []string
	err   error
}

func (f *fakeTagger) CreateTag(_ context.Context, name, target string, _ git.TagOptions) error {
	f.calls = append(f.calls, "create "+name+"@"+target)
	return f.err
}

func (f *fakeTagger) DeleteTag(name string) error {
	f.calls = append(f.calls, "delete "+name)
	return nil
}

type recordingReporter struct{ steps []string }

func (r *recordingReporter) Step(name string, fn func() error) error {
	r.steps = append(r.steps, name)
	return fn()
}

func descriptor() Descriptor {
	return Descriptor{
		TagName:         "v1.0.0",
		Commit:          "abc123",
		TargetCommitish: "main",
		Name:            "Release 1.0.0",
		Body:            "## Changelog\n",
	}
}

func TestDecide(t *testing.T) {
	tests := map[string]struct {
		state State
		mode  Mode
		want  Action
	}{
		"absent none":             {Absent, ModeNone, Create},
		"absent dry run":          {Absent, ModeDryRun, Create},
		"absent overwrite":        {Absent, ModeOverwrite, Create},
		"absent update":           {Absent, ModeUpdate, Create},
		"published none":          {ExistingPublished, ModeNone, Reject},
		"published dry run":       {ExistingPublished, ModeDryRun, SimulateCreate},
		"published overwrite":     {ExistingPublished, ModeOverwrite, Overwrite},
		"published update":        {ExistingPublished, ModeUpdate, Update},
		"draft none":              {ExistingDraft, ModeNone, Reject},
		"draft dry run":           {ExistingDraft, ModeDryRun, SimulateCreate},
		"draft overwrite":         {ExistingDraft, ModeOverwrite, Overwrite},
		"draft update":            {ExistingDraft, ModeUpdate, Update},
		"unknown state is reject": {State(9), ModeUpdate, Reject},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.want, Decide(tt.state, tt.mode))
		})
	}
}

func TestModeOf(t *testing.T) {
	assert.Equal(t, ModeNone, ModeOf(Options{}))
	assert.Equal(t, ModeDryRun, ModeOf(Options{DryRun: true}))
	assert.Equal(t, ModeUpdate, ModeOf(Options{Update: true, DryRun: true}))
	assert.Equal(t, ModeOverwrite, ModeOf(Options{Overwrite: true, Update: true}))
}

func TestRun_CreateFromAbsent(t *testing.T) {
	fake := hostingtest.New()
	fake.Milestones["1.0.0"] = &hosting.Milestone{ID: 1, Title: "1.0.0", Open: true}
	fake.Issues[42] = &hosting.Issue{Number: 42, Closed: true}
	fake.Issues[43] = &hosting.Issue{Number: 43}
	tagger := &fakeTagger{}
	reporter := &recordingReporter{}

	d := descriptor()
	d.Assets = []Asset{{Name: "a.zip", Path: "/dist/a.zip"}, {Name: "b.zip", Path: "/dist/b.zip"}}
	d.Milestone = "1.0.0"
	d.Issues = []int{42, 43}
	opts := Options{
		CloseMilestone: true,
		Issues: IssueOptions{
			Enabled:        true,
			Label:          "released",
			Comment:        "Released in v1.0.0",
			ApplyMilestone: ApplyAlways,
		},
	}

	out, err := New(fake, tagger, zerolog.Nop(), WithReporter(reporter)).Run(context.Background(), d, opts)
	require.NoError(t, err)

	assert.Equal(t, Absent, out.State)
	assert.Equal(t, Create, out.Action)
	assert.Equal(t, []string{"create v1.0.0@abc123"}, tagger.calls)
	assert.Equal(t, []string{
		"FindReleaseByTag",
		"CreateRelease",
		"GetRelease",
		"UploadAsset",
		"UploadAsset",
		"FindMilestoneByTitle",
		"CloseMilestone",
		"FindMilestoneByTitle",
		"FindIssue",
		"LabelIssue",
		"CommentIssue",
		"SetIssueMilestone",
		"FindIssue",
	}, fake.Methods())
	assert.Equal(t, []string{"a.zip", "b.zip"}, out.Uploaded)
	assert.Equal(t, []int{42}, out.Annotated)
	assert.False(t, fake.Milestones["1.0.0"].Open)
	assert.Equal(t, []string{"released"}, fake.Issues[42].Labels)
	assert.Equal(t, []string{"Released in v1.0.0"}, fake.Comments[42])
	assert.Equal(t, "Release 1.0.0", fake.ReleaseByTag("v1.0.0").Name)
	assert.Equal(t, "Tagging v1.0.0", reporter.steps[1])
}

func TestRun_ConflictPerformsNoMutation(t *testing.T) {
	fake := hostingtest.New()
	fake.AddRelease(hosting.Release{TagName: "v2.0.0", Body: "old"})
	tagger := &fakeTagger{}

	d := descriptor()
	d.TagName = "v2.0.0"
	out, err := New(fake, tagger, zerolog.Nop()).Run(context.Background(), d, Options{})

	var conflict *clierrors.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "v2.0.0", conflict.Tag)
	assert.Equal(t, Reject, out.Action)
	assert.Equal(t, clierrors.Conflict, clierrors.Classify(err))
	assert.Empty(t, fake.Mutations())
	assert.Equal(t, []string{"FindReleaseByTag"}, fake.Methods())
	assert.Empty(t, tagger.calls)
}

func TestRun_DryRunSimulatesCreate(t *testing.T) {
	tests := map[string]struct {
		existing   bool
		wantAction Action
	}{
		"existing release": {existing: true, wantAction: SimulateCreate},
		"absent release":   {wantAction: Create},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			fake := hostingtest.New()
			if tt.existing {
				fake.AddRelease(hosting.Release{TagName: "v1.0.0"})
			}
			fake.Issues[42] = &hosting.Issue{Number: 42, Closed: true}
			tagger := &fakeTagger{}

			d := descriptor()
			d.Assets = []Asset{{Name: "a.zip", Path: "/dist/a.zip"}}
			d.Issues = []int{42}
			opts := Options{DryRun: true, Issues: IssueOptions{Enabled: true, Label: "released"}}

			out, err := New(fake, tagger, zerolog.Nop()).Run(context.Background(), d, opts)
			require.NoError(t, err)
			assert.Equal(t, tt.wantAction, out.Action)
			assert.Equal(t, int64(-1), out.Release.ID)
			assert.Empty(t, fake.Mutations())
			assert.Empty(t, tagger.calls)
			assert.Empty(t, fake.Issues[42].Labels)
		})
	}
}

func TestRun_Overwrite(t *testing.T) {
	fake := hostingtest.New()
	old := fake.AddRelease(hosting.Release{TagName: "early-access", Prerelease: true}, hosting.Asset{ID: 1, Name: "a.zip"})
	tagger := &fakeTagger{}

	d := descriptor()
	d.TagName = "early-access"
	d.Prerelease = true
	d.Assets = []Asset{{Name: "a.zip", Path: "/dist/a.zip"}}

	out, err := New(fake, tagger, zerolog.Nop()).Run(context.Background(), d, Options{Overwrite: true})
	require.NoError(t, err)

	assert.Equal(t, Overwrite, out.Action)
	assert.Equal(t, []string{
		"FindReleaseByTag", "DeleteRelease", "DeleteTag", "CreateRelease", "GetRelease", "UploadAsset",
	}, fake.Methods())
	assert.Equal(t, []string{"delete early-access", "create early-access@abc123"}, tagger.calls)
	assert.NotEqual(t, old.ID, out.Release.ID)
	assert.Equal(t, []string{"a.zip"}, fake.AssetNames(out.Release.ID))
}

func TestRun_MovingTagIsDroppedBeforeCreate(t *testing.T) {
	fake := hostingtest.New()
	tagger := &fakeTagger{}
	reporter := &recordingReporter{}

	d := descriptor()
	d.TagName = "early-access"
	d.Prerelease = true

	out, err := New(fake, tagger, zerolog.Nop(), WithReporter(reporter)).Run(context.Background(), d, Options{Overwrite: true, MovingTag: true})
	require.NoError(t, err)

	assert.Equal(t, Absent, out.State)
	assert.Equal(t, Create, out.Action)
	assert.Equal(t, []string{"FindReleaseByTag", "DeleteTag", "CreateRelease", "GetRelease"}, fake.Methods())
	assert.Equal(t, []string{"delete early-access", "create early-access@abc123"}, tagger.calls)
	assert.Equal(t, "Deleting tag early-access", reporter.steps[1])
}

func TestRun_UpdateIsIdempotent(t *testing.T) {
	fake := hostingtest.New()
	fake.AddRelease(hosting.Release{TagName: "v1.0.0", Name: "Release 1.0.0", Body: "stale"})
	fake.Issues[42] = &hosting.Issue{Number: 42, Closed: true}

	d := descriptor()
	d.Issues = []int{42}
	opts := Options{
		Update:         true,
		UpdateSections: []Section{SectionTitle, SectionBody},
		Issues:         IssueOptions{Enabled: true, Label: "released", Comment: "shipped"},
	}
	rc := New(fake, nil, zerolog.Nop())

	out, err := rc.Run(context.Background(), d, opts)
	require.NoError(t, err)
	assert.Equal(t, Update, out.Action)
	assert.Equal(t, d.Body, fake.ReleaseByTag("v1.0.0").Body)
	require.Len(t, fake.Mutations(), 3)
	assert.Equal(t, "UpdateRelease", fake.Mutations()[0].Method)

	fake.Reset()
	out, err = rc.Run(context.Background(), d, opts)
	require.NoError(t, err)
	assert.Equal(t, Update, out.Action)
	assert.Empty(t, fake.Mutations())
	assert.Equal(t, d.Body, fake.ReleaseByTag("v1.0.0").Body)
	assert.Empty(t, out.Annotated)
}

func TestRun_UpdateAssetsDiff(t *testing.T) {
	fake := hostingtest.New()
	rel := fake.AddRelease(hosting.Release{TagName: "v1.0.0", Name: "Release 1.0.0", Body: "## Changelog\n"},
		hosting.Asset{ID: 1, Name: "a.zip"}, hosting.Asset{ID: 2, Name: "old.zip"})

	d := descriptor()
	d.Assets = []Asset{{Name: "a.zip", Path: "/dist/a.zip"}, {Name: "b.zip", Path: "/dist/b.zip"}}
	opts := Options{Update: true, UpdateSections: Sections()}

	out, err := New(fake, nil, zerolog.Nop()).Run(context.Background(), d, opts)
	require.NoError(t, err)

	assert.Equal(t, []string{"a.zip"}, out.Replaced)
	assert.Equal(t, []string{"b.zip"}, out.Uploaded)
	assert.Equal(t, []string{"FindReleaseByTag", "ListAssets", "DeleteAsset", "UploadAsset", "UploadAsset"}, fake.Methods())
	assert.Equal(t, []string{"a.zip", "b.zip", "old.zip"}, fake.AssetNames(rel.ID))
}

func TestRun_DraftPromotion(t *testing.T) {
	tests := map[string]struct {
		quirk      bool
		draft      bool
		wantUpdate bool
		wantStored bool
	}{
		"quirk clears draft":      {quirk: true, wantUpdate: true},
		"requested draft is kept": {quirk: true, draft: true, wantStored: true},
		"well behaved service":    {},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			fake := hostingtest.New()
			fake.DraftQuirk = tt.quirk

			d := descriptor()
			d.Draft = tt.draft
			out, err := New(fake, nil, zerolog.Nop()).Run(context.Background(), d, Options{})
			require.NoError(t, err)

			assert.Equal(t, tt.wantUpdate, contains(fake.Methods(), "UpdateRelease"))
			assert.Equal(t, tt.wantStored, fake.ReleaseByTag("v1.0.0").Draft)
			assert.Equal(t, tt.wantStored, out.Release.Draft)
		})
	}
}

func TestRun_PartialAssetFailure(t *testing.T) {
	fake := hostingtest.New()
	boom := errors.New("502 bad gateway")
	fake.UploadErrors["a.zip"] = boom
	fake.Milestones["1.0.0"] = &hosting.Milestone{ID: 1, Title: "1.0.0", Open: true}

	d := descriptor()
	d.Milestone = "1.0.0"
	d.Assets = []Asset{{Name: "a.zip", Path: "/a"}, {Name: "b.zip", Path: "/b"}, {Name: "c.zip", Path: "/c"}}

	out, err := New(fake, nil, zerolog.Nop()).Run(context.Background(), d, Options{CloseMilestone: true})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, clierrors.Remote, clierrors.Classify(err))
	assert.Contains(t, err.Error(), "1 of 3 assets failed")

	assert.Equal(t, []string{"b.zip", "c.zip"}, out.Uploaded)
	assert.Equal(t, []string{"b.zip", "c.zip"}, fake.AssetNames(out.Release.ID))
	assert.False(t, contains(fake.Methods(), "CloseMilestone"))
}

func TestRun_FindFailureIsReleaseError(t *testing.T) {
	fake := hostingtest.New()
	fake.Errors["FindReleaseByTag"] = errors.New("timeout")

	_, err := New(fake, &fakeTagger{}, zerolog.Nop()).Run(context.Background(), descriptor(), Options{})
	var releaseErr *clierrors.ReleaseError
	require.ErrorAs(t, err, &releaseErr)
	assert.Equal(t, "find release", releaseErr.Op)
	assert.Empty(t, fake.Mutations())
}

func TestRun_MilestonePolicy(t *testing.T) {
	release := &hosting.Milestone{ID: 1, Title: "1.0.0", Open: true}
	other := &hosting.Milestone{ID: 2, Title: "0.9.0"}

	tests := map[string]struct {
		policy  ApplyMilestone
		current *hosting.Milestone
		wantSet bool
	}{
		"always sets missing":    {policy: ApplyAlways, wantSet: true},
		"always keeps other":     {policy: ApplyAlways, current: other},
		"warn keeps other":       {policy: ApplyWarn, current: other},
		"force replaces other":   {policy: ApplyForce, current: other, wantSet: true},
		"same milestone is kept": {policy: ApplyForce, current: release},
		"no policy sets nothing": {},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			fake := hostingtest.New()
			fake.Milestones["1.0.0"] = release
			fake.Issues[7] = &hosting.Issue{Number: 7, Closed: true, Milestone: tt.current}

			d := descriptor()
			d.Milestone = "1.0.0"
			d.Issues = []int{7}
			opts := Options{Issues: IssueOptions{Enabled: true, Label: "released", ApplyMilestone: tt.policy}}

			_, err := New(fake, nil, zerolog.Nop()).Run(context.Background(), d, opts)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSet, contains(fake.Methods(), "SetIssueMilestone"))
		})
	}
}

func TestParseApplyMilestone(t *testing.T) {
	p, err := ParseApplyMilestone(" warn ")
	require.NoError(t, err)
	assert.Equal(t, ApplyWarn, p)

	p, err = ParseApplyMilestone("")
	require.NoError(t, err)
	assert.Equal(t, ApplyMilestone(""), p)

	_, err = ParseApplyMilestone("sometimes")
	assert.Error(t, err)
}

func TestStateOf(t *testing.T) {
	assert.Equal(t, Absent, StateOf(nil))
	assert.Equal(t, ExistingDraft, StateOf(&hosting.Release{Draft: true}))
	assert.Equal(t, ExistingPublished, StateOf(&hosting.Release{}))
	assert.Equal(t, "existing-draft", ExistingDraft.String())
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
