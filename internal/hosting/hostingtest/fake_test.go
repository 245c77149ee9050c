package hostingtest

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariel-frischer/relsync/internal/hosting"
)

func TestFake_DraftQuirk(t *testing.T) {
	ctx := context.Background()
	f := New()
	f.DraftQuirk = true

	created, err := f.CreateRelease(ctx, hosting.ReleaseRequest{TagName: "v1.0.0"})
	require.NoError(t, err)
	assert.False(t, created.Draft)

	fetched, err := f.GetRelease(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, fetched.Draft)
}

func TestFake_Mutations(t *testing.T) {
	ctx := context.Background()
	f := New()
	r := f.AddRelease(hosting.Release{TagName: "v1.0.0"}, hosting.Asset{ID: 7, Name: "a.zip"})

	_, err := f.FindReleaseByTag(ctx, "v1.0.0")
	require.NoError(t, err)
	_, err = f.ListAssets(ctx, r.ID)
	require.NoError(t, err)
	require.NoError(t, f.DeleteAsset(ctx, r.ID, hosting.Asset{ID: 7, Name: "a.zip"}))

	assert.Equal(t, []string{"FindReleaseByTag", "ListAssets", "DeleteAsset"}, f.Methods())
	require.Len(t, f.Mutations(), 1)
	assert.Equal(t, "DeleteAsset", f.Mutations()[0].Method)
	assert.Empty(t, f.AssetNames(r.ID))
}

func TestFake_ErrorInjection(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")

	tests := map[string]struct {
		setup func(f *Fake)
		call  func(f *Fake) error
	}{
		"method error": {
			setup: func(f *Fake) { f.Errors["ListTags"] = boom },
			call: func(f *Fake) error {
				_, err := f.ListTags(ctx)
				return err
			},
		},
		"upload error by asset name": {
			setup: func(f *Fake) { f.UploadErrors["b.zip"] = boom },
			call: func(f *Fake) error {
				_, err := f.UploadAsset(ctx, 1, "b.zip", "/tmp/b.zip")
				return err
			},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			f := New()
			tt.setup(f)
			assert.ErrorIs(t, tt.call(f), boom)
			calls := f.Calls()
			require.Len(t, calls, 1)
			assert.ErrorIs(t, calls[0].Error, boom)
		})
	}
}

func TestWriteAndReadCallLog(t *testing.T) {
	ctx := context.Background()
	f := New()
	f.Errors["CloseMilestone"] = errors.New("milestone locked")

	_, err := f.FindMilestoneByTitle(ctx, "1.0.0")
	require.NoError(t, err)
	require.Error(t, f.CloseMilestone(ctx, hosting.Milestone{Title: "1.0.0"}))

	path := filepath.Join(t.TempDir(), "calls.yaml")
	require.NoError(t, f.WriteCallLog(path))

	log, err := ReadCallLog(path)
	require.NoError(t, err)
	require.Len(t, log.Entries, 2)
	assert.Equal(t, []string{"FindMilestoneByTitle", "CloseMilestone"}, log.Methods())
	assert.Equal(t, []string{"1.0.0"}, log.Entries[0].Args)
	assert.False(t, log.Entries[0].HasError())
	assert.True(t, log.Entries[1].HasError())
	assert.Equal(t, "milestone locked", log.Entries[1].Error)
}

func TestReadCallLog_Missing(t *testing.T) {
	_, err := ReadCallLog(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
