package tags

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/ariel-frischer/relsync/internal/git"
	"github.com/ariel-frischer/relsync/internal/template"
	"github.com/ariel-frischer/relsync/internal/version"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func tag(name string, day int) git.Tag {
	return git.Tag{Name: name, Commit: "c-" + name, Time: t0.AddDate(0, 0, day)}
}

func semverRequest(t *testing.T, current string) Request {
	t.Helper()
	p, err := CompilePattern("v{{projectVersion}}", template.New(), template.Props{})
	require.NoError(t, err)
	s, err := version.New(version.SemVer, version.Options{})
	require.NoError(t, err)
	return Request{Pattern: p, Scheme: s, CurrentVersion: current, SnapshotLabel: "early-access"}
}

func name(tg *git.Tag) string {
	if tg == nil {
		return ""
	}
	return tg.Name
}

func TestResolve(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		tags         []git.Tag
		version      string
		previous     string
		snapshot     bool
		full         bool
		wantEff      string
		wantCurrent  string
		wantPrevious string
	}{
		"existing release mid history": {
			tags:         []git.Tag{tag("v1.0.0", 1), tag("v1.1.0", 5)},
			version:      "1.1.0",
			wantEff:      "v1.1.0",
			wantCurrent:  "v1.1.0",
			wantPrevious: "v1.0.0",
		},
		"in progress release": {
			tags:         []git.Tag{tag("v1.0.0", 1)},
			version:      "1.1.0",
			wantEff:      "v1.1.0",
			wantPrevious: "v1.0.0",
		},
		"first release": {
			version: "0.1.0",
			wantEff: "v0.1.0",
		},
		"skips newer tags": {
			tags:         []git.Tag{tag("v0.9.0", 1), tag("v1.0.0", 2), tag("v2.0.0", 3)},
			version:      "1.5.0",
			wantEff:      "v1.5.0",
			wantPrevious: "v1.0.0",
		},
		"same release under build metadata": {
			tags:         []git.Tag{tag("v1.0.0", 1), tag("v1.1.0+rc", 4)},
			version:      "1.1.0",
			wantEff:      "v1.1.0",
			wantPrevious: "v1.1.0+rc",
		},
		"ignores tags outside the pattern": {
			tags:         []git.Tag{tag("v1.0.0", 1), tag("docs-2.0.0", 3)},
			version:      "1.1.0",
			wantEff:      "v1.1.0",
			wantPrevious: "v1.0.0",
		},
		"declared previous wins": {
			tags:         []git.Tag{tag("v0.9.0", 1), tag("v1.0.0", 2)},
			version:      "1.1.0",
			previous:     "v0.9.0",
			wantEff:      "v1.1.0",
			wantPrevious: "v0.9.0",
		},
		"declared previous missing falls back": {
			tags:         []git.Tag{tag("v1.0.0", 2)},
			version:      "1.1.0",
			previous:     "v0.0.1",
			wantEff:      "v1.1.0",
			wantPrevious: "v1.0.0",
		},
		"snapshot without prior snapshot": {
			tags:         []git.Tag{tag("v1.0.0", 1)},
			version:      "1.1.0-SNAPSHOT",
			snapshot:     true,
			wantEff:      "early-access",
			wantPrevious: "v1.0.0",
		},
		"snapshot after prior snapshot": {
			tags:         []git.Tag{tag("v1.0.0", 1), tag("early-access", 4)},
			version:      "1.1.0-SNAPSHOT",
			snapshot:     true,
			wantEff:      "early-access",
			wantPrevious: "early-access",
		},
		"snapshot full changelog picks older boundary": {
			tags:         []git.Tag{tag("v1.0.0", 1), tag("early-access", 4)},
			version:      "1.1.0-SNAPSHOT",
			snapshot:     true,
			full:         true,
			wantEff:      "early-access",
			wantPrevious: "v1.0.0",
		},
		"snapshot full changelog without releases": {
			tags:         []git.Tag{tag("early-access", 4)},
			version:      "1.1.0-SNAPSHOT",
			snapshot:     true,
			full:         true,
			wantEff:      "early-access",
			wantPrevious: "early-access",
		},
	}

	for n, tt := range tests {
		t.Run(n, func(t *testing.T) {
			t.Parallel()
			req := semverRequest(t, tt.version)
			req.PreviousTag = tt.previous
			req.Snapshot = tt.snapshot
			req.FullChangelog = tt.full

			res := NewResolver(zerolog.Nop()).Resolve(tt.tags, req)
			assert.Equal(t, tt.wantEff, res.EffectiveTag)
			assert.Equal(t, tt.wantCurrent, name(res.Current), "current")
			assert.Equal(t, tt.wantPrevious, name(res.Previous), "previous")
		})
	}
}

func TestResolve_UnparsableTagWarnsOncePerRun(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	r := NewResolver(zerolog.New(&buf))

	tags := []git.Tag{tag("v1.0.0", 1), tag("vNEXT", 2), tag("v1.0.1", 3)}
	req := semverRequest(t, "1.1.0")

	res := r.Resolve(tags, req)
	require.NotNil(t, res.Previous)
	assert.Equal(t, "v1.0.1", res.Previous.Name)
	assert.Equal(t, 1, strings.Count(buf.String(), `"tag":"vNEXT"`))

	buf.Reset()
	r.Resolve(tags, req)
	assert.Equal(t, 1, strings.Count(buf.String(), `"tag":"vNEXT"`), "warned set resets per resolution")
}

func TestResolve_SameReleasePicksEarliestCommit(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		tags []git.Tag
		want string
	}{
		"two spellings": {
			tags: []git.Tag{tag("v1.0.0", 1), tag("v1.0", 2)},
			want: "v1.0.0",
		},
		"build metadata on the newer commit": {
			tags: []git.Tag{tag("v1.0.0", 1), tag("v1.0.0+build.7", 2)},
			want: "v1.0.0",
		},
		"build metadata on the older commit": {
			tags: []git.Tag{tag("v1.0.0+build.7", 1), tag("v1.0.0", 2)},
			want: "v1.0.0+build.7",
		},
		"equal commit times fall back to name": {
			tags: []git.Tag{tag("v1.0.0+b", 1), tag("v1.0.0+a", 1)},
			want: "v1.0.0+a",
		},
	}

	for n, tt := range tests {
		t.Run(n, func(t *testing.T) {
			t.Parallel()
			req := semverRequest(t, "1.1.0")
			for i := 0; i < 5; i++ {
				res := NewResolver(zerolog.Nop()).Resolve(tt.tags, req)
				assert.Equal(t, tt.want, name(res.Previous))
			}
		})
	}
}

func TestResolve_CalVer(t *testing.T) {
	t.Parallel()
	p, err := CompilePattern("{{projectVersion}}", template.New(), template.Props{})
	require.NoError(t, err)
	s, err := version.New(version.CalVer, version.Options{Format: "YYYY.0M.MICRO"})
	require.NoError(t, err)

	tags := []git.Tag{tag("2024.01.0", 1), tag("2024.02.0", 2), tag("2024.02.1", 3)}
	res := NewResolver(zerolog.Nop()).Resolve(tags, Request{Pattern: p, Scheme: s, CurrentVersion: "2024.03.0"})
	assert.Equal(t, "2024.02.1", name(res.Previous))
	assert.Nil(t, res.Current)
}
