package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariel-frischer/relsync/internal/testutil"
)

// execute runs the global root command with fresh flag values.
func execute(t *testing.T, args ...string) (stdout, stderr string, code int) {
	t.Helper()
	resetFlags(rootCmd)

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	code = Execute()
	return out.String(), errOut.String(), code
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.PersistentFlags().VisitAll(reset)
	cmd.Flags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// isolate keeps user config and tokens from the host out of the test.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv("GITHUB_TOKEN", "")
	t.Setenv("GITEA_TOKEN", "")
	t.Setenv("RELSYNC_RELEASE__TOKEN", "")
}

// projectRepo is a repository with a GitHub remote, v1.0.0 and three
// commits after it.
func projectRepo(t *testing.T) *testutil.GitRepo {
	t.Helper()
	isolate(t)
	g := testutil.NewGitRepo(t)
	first := g.Commit("feat: initial import")
	g.Tag("v1.0.0", first)
	g.Commit("fix: handle empty input (#12)")
	g.Commit("feat(api): add export endpoint")
	g.Commit("chore: bump deps")

	_, err := g.Repo.CreateRemote(&gitconfig.RemoteConfig{
		Name: "origin",
		URLs: []string{"https://github.com/acme/widget.git"},
	})
	require.NoError(t, err)
	return g
}

func projectArgs(g *testutil.GitRepo, args ...string) []string {
	return append(args, "--dir", g.Dir, "--set", "project.name=widget", "--set", "project.version=1.1.0")
}

func TestRootCmd_Structure(t *testing.T) {
	assert.Equal(t, "relsync", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
	assert.NotEmpty(t, rootCmd.Example)

	var names []string
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
		if c.Name() == "help" || c.Name() == "completion" {
			continue
		}
		assert.NotEmpty(t, c.GroupID, "command %s has no group", c.Name())
	}
	for _, want := range []string{"release", "changelog", "tags", "init", "version"} {
		assert.Contains(t, names, want)
	}
}

func TestRootCmd_PersistentFlags(t *testing.T) {
	tests := map[string]struct {
		flagName  string
		shorthand string
	}{
		"config":     {flagName: "config", shorthand: "c"},
		"dir":        {flagName: "dir", shorthand: "C"},
		"debug":      {flagName: "debug", shorthand: "d"},
		"log-json":   {flagName: "log-json"},
		"dry-run":    {flagName: "dry-run"},
		"fetch-tags": {flagName: "fetch-tags"},
		"set":        {flagName: "set"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			flag := rootCmd.PersistentFlags().Lookup(tt.flagName)
			require.NotNil(t, flag, "Flag %s should exist", tt.flagName)
			assert.Equal(t, tt.shorthand, flag.Shorthand)
		})
	}
}

func TestParseOverrides(t *testing.T) {
	tests := map[string]struct {
		pairs   []string
		want    map[string]string
		wantErr bool
	}{
		"none":             {},
		"single":           {pairs: []string{"release.draft=true"}, want: map[string]string{"release.draft": "true"}},
		"value with equal": {pairs: []string{"release.release_name=a=b"}, want: map[string]string{"release.release_name": "a=b"}},
		"empty value":      {pairs: []string{"release.branch="}, want: map[string]string{"release.branch": ""}},
		"last wins":        {pairs: []string{"release.draft=true", "release.draft=false"}, want: map[string]string{"release.draft": "false"}},
		"missing equal":    {pairs: []string{"release.draft"}, wantErr: true},
		"missing key":      {pairs: []string{"=true"}, wantErr: true},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := parseOverrides(tt.pairs)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, ExitInvalidArguments, ExitCode(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestChangelogCmd(t *testing.T) {
	g := projectRepo(t)

	stdout, stderr, code := execute(t, projectArgs(g, "changelog", "--plain")...)
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Contains(t, stdout, "**api**: add export endpoint")
	assert.Contains(t, stdout, "handle empty input")
	assert.NotContains(t, stdout, "initial import")
}

func TestChangelogCmd_Output(t *testing.T) {
	g := projectRepo(t)
	path := filepath.Join(t.TempDir(), "NOTES.md")

	stdout, stderr, code := execute(t, projectArgs(g, "changelog", "--output", path)...)
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Contains(t, stdout, "Wrote "+path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "add export endpoint")
}

func TestChangelogCmd_PlainAndPreview(t *testing.T) {
	g := projectRepo(t)

	_, stderr, code := execute(t, projectArgs(g, "changelog", "--plain", "--preview")...)
	assert.Equal(t, ExitInvalidArguments, code)
	assert.Contains(t, stderr, "invalid flag combination")
}

func TestTagsCmd(t *testing.T) {
	g := projectRepo(t)

	stdout, stderr, code := execute(t, projectArgs(g, "tags")...)
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Contains(t, stdout, "v1.1.0")
	assert.Contains(t, stdout, "(new)")
	assert.Contains(t, stdout, "v1.0.0")
	assert.Contains(t, stdout, "3 commits")
}

func TestReleaseCmd_Errors(t *testing.T) {
	tests := map[string]struct {
		args       func(g *testutil.GitRepo) []string
		configYAML string
		wantCode   int
		wantStderr string
	}{
		"missing token": {
			args:       func(g *testutil.GitRepo) []string { return projectArgs(g, "release") },
			wantCode:   ExitConfiguration,
			wantStderr: "no API token configured for github",
		},
		"unknown service": {
			args: func(g *testutil.GitRepo) []string {
				return projectArgs(g, "release", "--set", "release.service=svn")
			},
			wantCode: ExitConfiguration,
		},
		"missing config file": {
			args: func(g *testutil.GitRepo) []string {
				return projectArgs(g, "release", "--config", filepath.Join(g.Dir, "missing.yml"))
			},
			wantCode:   ExitConfiguration,
			wantStderr: "config file not found",
		},
		"malformed config file": {
			args:       func(g *testutil.GitRepo) []string { return projectArgs(g, "release") },
			configYAML: "release:\n  draft: [\n",
			wantCode:   ExitConfiguration,
			wantStderr: ".relsync.yml",
		},
		"malformed set": {
			args:       func(g *testutil.GitRepo) []string { return projectArgs(g, "release", "--set", "release.draft") },
			wantCode:   ExitInvalidArguments,
			wantStderr: "invalid --set value",
		},
		"unknown flag": {
			args:     func(g *testutil.GitRepo) []string { return projectArgs(g, "release", "--no-such-flag") },
			wantCode: ExitInvalidArguments,
		},
		"not a repository": {
			args:       func(*testutil.GitRepo) []string { return []string{"release", "--dir", t.TempDir()} },
			wantCode:   ExitRepository,
			wantStderr: "not a git repository",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			g := projectRepo(t)
			if tt.configYAML != "" {
				require.NoError(t, os.WriteFile(filepath.Join(g.Dir, ".relsync.yml"), []byte(tt.configYAML), 0o644))
			}
			_, stderr, code := execute(t, tt.args(g)...)
			assert.Equal(t, tt.wantCode, code, stderr)
			if tt.wantStderr != "" {
				assert.Contains(t, stderr, tt.wantStderr)
			}
		})
	}
}

func TestInitCmd(t *testing.T) {
	g := projectRepo(t)
	path := filepath.Join(g.Dir, ".relsync.yml")

	stdout, stderr, code := execute(t, "init", "--dir", g.Dir)
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Contains(t, stdout, "Wrote "+path)
	require.FileExists(t, path)

	require.NoError(t, os.WriteFile(path, []byte("project:\n  name: kept\n"), 0o644))
	stdout, _, code = execute(t, "init", "--dir", g.Dir)
	assert.Equal(t, ExitSuccess, code)
	assert.Contains(t, stdout, "already exists")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "project:\n  name: kept\n", string(data))

	stdout, _, code = execute(t, "init", "--print")
	assert.Equal(t, ExitSuccess, code)
	assert.Contains(t, stdout, "release:")
}

func TestVersionCmd_Plain(t *testing.T) {
	stdout, _, code := execute(t, "version", "--plain")
	assert.Equal(t, ExitSuccess, code)
	assert.Contains(t, stdout, "relsync dev\n")
	assert.Contains(t, stdout, "platform: ")
}
