package generic

import (
	"context"
	"slices"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariel-frischer/relsync/internal/git"
	"github.com/ariel-frischer/relsync/internal/hosting"
)

type fakeRemote struct {
	refs    git.RemoteRefs
	lists   int
	pushed  []string
	deleted []string
}

func (f *fakeRemote) ListRemote(context.Context, string) (git.RemoteRefs, error) {
	f.lists++
	return f.refs, nil
}

func (f *fakeRemote) PushTag(_ context.Context, _ string, tag string) error {
	f.pushed = append(f.pushed, tag)
	f.refs.Tags = append(f.refs.Tags, tag)
	return nil
}

func (f *fakeRemote) DeleteRemoteTag(_ context.Context, _ string, tag string) error {
	f.deleted = append(f.deleted, tag)
	f.refs.Tags = slices.DeleteFunc(f.refs.Tags, func(t string) bool { return t == tag })
	return nil
}

func TestClient_ReleaseIsTag(t *testing.T) {
	ctx := context.Background()
	remote := &fakeRemote{refs: git.RemoteRefs{Tags: []string{"v1.0.0"}, Branches: []string{"main"}}}
	c := New(remote, "", zerolog.Nop())

	existing, err := c.FindReleaseByTag(ctx, "v1.0.0")
	require.NoError(t, err)
	require.NotNil(t, existing)
	assert.Equal(t, "v1.0.0", existing.TagName)

	missing, err := c.FindReleaseByTag(ctx, "v1.1.0")
	require.NoError(t, err)
	assert.Nil(t, missing)
	assert.Equal(t, 1, remote.lists, "listing is cached between lookups")

	created, err := c.CreateRelease(ctx, hosting.ReleaseRequest{TagName: "v1.1.0", Body: "notes"})
	require.NoError(t, err)
	assert.Equal(t, []string{"v1.1.0"}, remote.pushed)

	fetched, err := c.GetRelease(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, fetched)
	assert.Equal(t, "v1.1.0", fetched.TagName)
	assert.Equal(t, 2, remote.lists)
}

func TestClient_OverwriteDeletesRemoteTag(t *testing.T) {
	ctx := context.Background()
	remote := &fakeRemote{refs: git.RemoteRefs{Tags: []string{"early-access"}}}
	c := New(remote, "origin", zerolog.Nop())

	r, err := c.FindReleaseByTag(ctx, "early-access")
	require.NoError(t, err)
	require.NoError(t, c.DeleteRelease(ctx, r.ID))
	require.NoError(t, c.DeleteTag(ctx, "early-access"))

	gone, err := c.FindReleaseByTag(ctx, "early-access")
	require.NoError(t, err)
	assert.Nil(t, gone)
	assert.Equal(t, []string{"early-access"}, remote.deleted)
}

func TestClient_Unsupported(t *testing.T) {
	ctx := context.Background()
	c := New(&fakeRemote{}, "origin", zerolog.Nop())

	_, err := c.UploadAsset(ctx, 1, "a.zip", "/dist/a.zip")
	assert.ErrorIs(t, err, hosting.ErrUnsupported)
	assert.ErrorIs(t, c.LabelIssue(ctx, 1, "released"), hosting.ErrUnsupported)

	issue, err := c.FindIssue(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, issue)
	m, err := c.FindMilestoneByTitle(ctx, "1.0.0")
	require.NoError(t, err)
	assert.Nil(t, m)
}
