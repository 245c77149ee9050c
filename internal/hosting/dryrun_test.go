package hosting_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariel-frischer/relsync/internal/hosting"
	"github.com/ariel-frischer/relsync/internal/hosting/hostingtest"
)

func TestDryRun_WritesAreSkipped(t *testing.T) {
	ctx := context.Background()
	fake := hostingtest.New()
	existing := fake.AddRelease(hosting.Release{TagName: "v1.0.0", Body: "old"}, hosting.Asset{ID: 1, Name: "a.zip"})
	fake.Issues[42] = &hosting.Issue{Number: 42, Closed: true}

	var buf bytes.Buffer
	api := hosting.DryRun(fake, zerolog.New(&buf))

	body := "new"
	updated, err := api.UpdateRelease(ctx, existing.ID, hosting.ReleasePatch{Body: &body})
	require.NoError(t, err)
	assert.Equal(t, "new", updated.Body)

	require.NoError(t, api.DeleteRelease(ctx, existing.ID))
	require.NoError(t, api.DeleteTag(ctx, "v1.0.0"))
	require.NoError(t, api.DeleteAsset(ctx, existing.ID, hosting.Asset{ID: 1, Name: "a.zip"}))
	_, err = api.UploadAsset(ctx, existing.ID, "b.zip", "/dist/b.zip")
	require.NoError(t, err)
	require.NoError(t, api.LabelIssue(ctx, 42, "released"))
	require.NoError(t, api.CommentIssue(ctx, 42, "shipped"))
	require.NoError(t, api.SetIssueMilestone(ctx, 42, hosting.Milestone{ID: 1, Title: "1.0.0"}))
	require.NoError(t, api.CloseMilestone(ctx, hosting.Milestone{ID: 1, Title: "1.0.0"}))

	assert.Empty(t, fake.Mutations())
	assert.Equal(t, "old", fake.ReleaseByTag("v1.0.0").Body)
	assert.Contains(t, buf.String(), `"dry_run":true`)
	assert.Contains(t, buf.String(), `"op":"upload asset"`)
}

func TestDryRun_SimulatedCreate(t *testing.T) {
	ctx := context.Background()
	fake := hostingtest.New()
	api := hosting.DryRun(fake, zerolog.Nop())

	created, err := api.CreateRelease(ctx, hosting.ReleaseRequest{TagName: "v2.0.0", Name: "2.0.0", Body: "notes"})
	require.NoError(t, err)
	assert.Equal(t, int64(-1), created.ID)

	fetched, err := api.GetRelease(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, fetched)

	assets, err := api.ListAssets(ctx, created.ID)
	require.NoError(t, err)
	assert.Empty(t, assets)

	assert.Nil(t, fake.ReleaseByTag("v2.0.0"))
	assert.Empty(t, fake.Mutations())
}

func TestDryRun_ReadsPassThrough(t *testing.T) {
	ctx := context.Background()
	fake := hostingtest.New()
	fake.AddRelease(hosting.Release{TagName: "v1.0.0"})
	fake.Branches = []string{"main"}
	api := hosting.DryRun(fake, zerolog.Nop())

	r, err := api.FindReleaseByTag(ctx, "v1.0.0")
	require.NoError(t, err)
	require.NotNil(t, r)
	branches, err := api.ListBranches(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"main"}, branches)
	assert.Equal(t, []string{"FindReleaseByTag", "ListBranches"}, fake.Methods())
}

func TestReleasePatch_IsEmpty(t *testing.T) {
	name := "x"
	assert.True(t, hosting.ReleasePatch{}.IsEmpty())
	assert.False(t, hosting.ReleasePatch{Name: &name}.IsEmpty())
}
