package release

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariel-frischer/relsync/internal/config"
	clierrors "github.com/ariel-frischer/relsync/internal/errors"
	"github.com/ariel-frischer/relsync/internal/git"
	"github.com/ariel-frischer/relsync/internal/hosting"
	"github.com/ariel-frischer/relsync/internal/hosting/hostingtest"
	"github.com/ariel-frischer/relsync/internal/reconcile"
	"github.com/ariel-frischer/relsync/internal/testutil"
)

var coords = Coordinates{Owner: "acme", Name: "widget", WebURL: "https://github.com/acme/widget"}

func testConfig(version string) *config.Configuration {
	return &config.Configuration{
		Project: config.ProjectConfig{
			Name:       "widget",
			Version:    version,
			Versioning: config.VersioningConfig{Scheme: "SEMVER"},
			Snapshot:   config.SnapshotConfig{Pattern: ".*-SNAPSHOT", Label: "early-access"},
		},
		Release: config.ReleaseConfig{
			Service:     "github",
			Remote:      "origin",
			TagName:     "v{{projectVersion}}",
			ReleaseName: "Release {{tagName}}",
			Milestone:   config.MilestoneConfig{Close: true, Name: "{{tagName}}"},
			Update:      config.UpdateConfig{Sections: []string{"TITLE", "BODY"}},
			Issues: config.IssuesConfig{
				Enabled:        true,
				Label:          "released",
				Comment:        "Released in {{tagName}}",
				ApplyMilestone: "ALWAYS",
			},
		},
		Changelog: config.ChangelogConfig{
			Enabled:      true,
			Preset:       "conventional-commits",
			Sort:         "DESC",
			Contributors: config.ContributorsConfig{Enabled: true},
		},
		OutputDir: "out",
	}
}

// history tags v1.0.0 and adds three commits after it.
func history(t *testing.T) (*testutil.GitRepo, *git.Repository) {
	t.Helper()
	g := testutil.NewGitRepo(t)
	first := g.Commit("feat: initial import")
	g.Tag("v1.0.0", first)
	g.Commit("fix: handle empty input (#12)")
	g.Commit("feat(api): add export endpoint")
	g.Commit("chore: bump deps")

	repo, err := git.Open(g.Dir)
	require.NoError(t, err)
	return g, repo
}

func TestRun_CreatesRelease(t *testing.T) {
	g, repo := history(t)
	head, err := repo.Head()
	require.NoError(t, err)

	fake := hostingtest.New()
	fake.Branches = []string{"master"}
	fake.Milestones["v1.1.0"] = &hosting.Milestone{ID: 3, Title: "v1.1.0", Open: true}
	fake.Issues[12] = &hosting.Issue{Number: 12, Closed: true}

	res, err := New(testConfig("1.1.0"), repo, fake, coords, zerolog.Nop()).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, reconcile.Create, res.Outcome.Action)
	require.NotNil(t, res.Plan.Resolution.Previous)
	assert.Equal(t, "v1.0.0", res.Plan.Resolution.Previous.Name)
	assert.Len(t, res.Plan.Commits, 3)

	rel := fake.ReleaseByTag("v1.1.0")
	require.NotNil(t, rel)
	assert.Equal(t, "Release v1.1.0", rel.Name)
	assert.Equal(t, "master", rel.TargetCommitish)
	assert.False(t, rel.Prerelease)
	assert.Contains(t, rel.Body, "handle empty input")
	assert.Contains(t, rel.Body, "**api**: add export endpoint")
	assert.NotContains(t, rel.Body, "initial import")

	tagged, err := repo.Peel("v1.1.0")
	require.NoError(t, err)
	assert.Equal(t, head, tagged)

	assert.False(t, fake.Milestones["v1.1.0"].Open)
	assert.Equal(t, []string{"Released in v1.1.0"}, fake.Comments[12])
	assert.Equal(t, []string{"released"}, fake.Issues[12].Labels)

	assert.Equal(t, filepath.Join(g.Dir, "out", "release", "CHANGELOG.md"), res.ChangelogPath)
	body, err := os.ReadFile(res.ChangelogPath)
	require.NoError(t, err)
	assert.Equal(t, rel.Body, string(body))
	issues, err := os.ReadFile(res.IssuesPath)
	require.NoError(t, err)
	assert.Equal(t, "12\n", string(issues))
}

func TestRun_ConflictLeavesRemoteUntouched(t *testing.T) {
	_, repo := history(t)
	fake := hostingtest.New()
	fake.Branches = []string{"master"}
	fake.AddRelease(hosting.Release{TagName: "v1.1.0", Body: "published"})

	res, err := New(testConfig("1.1.0"), repo, fake, coords, zerolog.Nop()).Run(context.Background())

	var conflict *clierrors.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, reconcile.Reject, res.Outcome.Action)
	assert.Empty(t, fake.Mutations())
	assert.Equal(t, "published", fake.ReleaseByTag("v1.1.0").Body)

	_, err = repo.Peel("v1.1.0")
	assert.Error(t, err, "no local tag on conflict")
	assert.FileExists(t, res.ChangelogPath)
}

func TestRun_DryRun(t *testing.T) {
	_, repo := history(t)
	fake := hostingtest.New()
	fake.Branches = []string{"master"}
	fake.Tags = []string{"v1.1.0"}
	fake.Issues[12] = &hosting.Issue{Number: 12, Closed: true}

	var warnings bytes.Buffer
	cfg := testConfig("1.1.0")
	cfg.DryRun = true

	res, err := New(cfg, repo, fake, coords, zerolog.Nop(), WithWarnings(&warnings)).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, reconcile.Create, res.Outcome.Action)
	assert.Empty(t, fake.Mutations())
	assert.NotContains(t, fake.Methods(), "FindUserByEmail")
	assert.Empty(t, fake.Issues[12].Labels)
	assert.Contains(t, warnings.String(), "tag v1.1.0 exists on the remote but not locally")

	_, err = repo.Peel("v1.1.0")
	assert.Error(t, err, "dry run creates no local tag")
}

func TestRun_SnapshotOverwritesEarlyAccess(t *testing.T) {
	g, repo := history(t)
	head, err := repo.Head()
	require.NoError(t, err)
	previous, err := repo.Resolve("HEAD~1")
	require.NoError(t, err)
	g.Tag("early-access", previous)

	fake := hostingtest.New()
	fake.Branches = []string{"master"}
	old := fake.AddRelease(hosting.Release{TagName: "early-access", Prerelease: true})

	res, err := New(testConfig("1.1.0-SNAPSHOT"), repo, fake, coords, zerolog.Nop()).Run(context.Background())
	require.NoError(t, err)

	assert.True(t, res.Plan.Snapshot)
	assert.Equal(t, reconcile.Overwrite, res.Outcome.Action)
	require.NotNil(t, res.Plan.Resolution.Previous)
	assert.Equal(t, "early-access", res.Plan.Resolution.Previous.Name)
	assert.Len(t, res.Plan.Commits, 1)

	rel := fake.ReleaseByTag("early-access")
	require.NotNil(t, rel)
	assert.NotEqual(t, old.ID, rel.ID)
	assert.Equal(t, "early-access", rel.Name)
	assert.True(t, rel.Prerelease)

	moved, err := repo.Peel("early-access")
	require.NoError(t, err)
	assert.Equal(t, head, moved)
	assert.NotContains(t, fake.Methods(), "CloseMilestone")
}

func TestRun_SnapshotMovesStaleTagWithoutRelease(t *testing.T) {
	g, repo := history(t)
	head, err := repo.Head()
	require.NoError(t, err)
	previous, err := repo.Resolve("HEAD~1")
	require.NoError(t, err)
	g.Tag("early-access", previous)

	fake := hostingtest.New()
	fake.Branches = []string{"master"}
	fake.Tags = []string{"v1.0.0", "early-access"}

	res, err := New(testConfig("1.1.0-SNAPSHOT"), repo, fake, coords, zerolog.Nop()).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, reconcile.Create, res.Outcome.Action)
	methods := fake.Methods()
	require.Contains(t, methods, "DeleteTag")
	assert.Less(t, slices.Index(methods, "DeleteTag"), slices.Index(methods, "CreateRelease"))
	require.NotNil(t, fake.ReleaseByTag("early-access"))

	moved, err := repo.Peel("early-access")
	require.NoError(t, err)
	assert.Equal(t, head, moved)
}

func TestRun_TargetsHeadWhenBranchIsNotRemote(t *testing.T) {
	_, repo := history(t)
	head, err := repo.Head()
	require.NoError(t, err)

	fake := hostingtest.New()
	fake.Branches = []string{"main"}
	cfg := testConfig("1.1.0")
	cfg.Release.Issues.Enabled = false

	_, err = New(cfg, repo, fake, coords, zerolog.Nop()).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, head, fake.ReleaseByTag("v1.1.0").TargetCommitish)
}

func TestRun_UploadsAssets(t *testing.T) {
	g, repo := history(t)
	dist := filepath.Join(g.Dir, "dist")
	require.NoError(t, os.MkdirAll(dist, 0o755))
	for _, name := range []string{"widget-linux.tar.gz", "widget-darwin.tar.gz", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dist, name), []byte(name), 0o644))
	}

	fake := hostingtest.New()
	fake.Branches = []string{"master"}
	cfg := testConfig("1.1.0")
	cfg.Release.Assets = []string{"dist/*.tar.gz", "missing/*.zip"}

	res, err := New(cfg, repo, fake, coords, zerolog.Nop()).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"widget-darwin.tar.gz", "widget-linux.tar.gz"}, res.Outcome.Uploaded)
	assert.Equal(t, []string{"widget-darwin.tar.gz", "widget-linux.tar.gz"}, fake.AssetNames(res.Outcome.Release.ID))
}

func TestPrepare_ChangelogDisabled(t *testing.T) {
	_, repo := history(t)
	cfg := testConfig("1.1.0")
	cfg.Changelog.Enabled = false

	plan, err := New(cfg, repo, nil, coords, zerolog.Nop()).Prepare(context.Background(), false)
	require.NoError(t, err)
	assert.Nil(t, plan.Changelog)
	assert.Empty(t, plan.Body())
	assert.Nil(t, plan.Issues())
	assert.Equal(t, "Release v1.1.0", plan.ReleaseName)
	assert.Equal(t, "v1.1.0", plan.MilestoneName)
}

func TestPrepare_Prerelease(t *testing.T) {
	tests := map[string]struct {
		version string
		enabled bool
		pattern string
		want    bool
	}{
		"plain release":       {version: "1.1.0"},
		"explicit prerelease": {version: "1.1.0", enabled: true, want: true},
		"pattern match":       {version: "1.1.0-rc.1", pattern: `.*-rc\.\d+`, want: true},
		"pattern is anchored": {version: "1.1.0", pattern: `1\.1`},
		"snapshot":            {version: "1.1.0-SNAPSHOT", want: true},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			_, repo := history(t)
			cfg := testConfig(tt.version)
			cfg.Release.Prerelease = config.PrereleaseConfig{Enabled: tt.enabled, Pattern: tt.pattern}

			plan, err := New(cfg, repo, nil, coords, zerolog.Nop()).Prepare(context.Background(), false)
			require.NoError(t, err)
			assert.Equal(t, tt.want, plan.Prerelease)
		})
	}
}

func TestPrepare_PinnedPreviousTag(t *testing.T) {
	g, repo := history(t)
	head, err := repo.Head()
	require.NoError(t, err)
	g.Tag("v1.0.5", head)

	cfg := testConfig("1.1.0")
	cfg.Release.PreviousTagName = "v1.0.0"

	plan, err := New(cfg, repo, nil, coords, zerolog.Nop()).Prepare(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, "v1.0.0", plan.Props[PropPreviousTagName])
	assert.Len(t, plan.Commits, 3)
}

func TestRun_RequiresAPI(t *testing.T) {
	_, repo := history(t)
	_, err := New(testConfig("1.1.0"), repo, nil, coords, zerolog.Nop()).Run(context.Background())
	assert.Error(t, err)
}
