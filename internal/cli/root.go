// Package cli implements the relsync command line.
package cli

import (
	"github.com/spf13/cobra"

	clierrors "github.com/ariel-frischer/relsync/internal/errors"
)

// Command groups shown in help output.
const (
	GroupRelease       = "release"
	GroupInspect       = "inspect"
	GroupConfiguration = "configuration"
)

var (
	configPath string
	repoDir    string
	debug      bool
	jsonLog    bool
	dryRun     bool
	fetchTags  bool
	setFlags   []string
)

var rootCmd = &cobra.Command{
	Use:   "relsync",
	Short: "Publish releases from git tags and commit history",
	Long: `relsync resolves the tag of the release being cut and the tag before it,
renders a changelog from the commits in between and makes the release on the
hosting service match: it creates, updates or replaces the release, uploads
assets, closes the milestone and annotates the issues the release fixes.

Supported services: github, gitea and generic (a plain git remote).

Configuration precedence (highest to lowest):
  1. --set key=value overrides
  2. Environment variables (RELSYNC_*, nested keys joined with __)
  3. .env in the repository root
  4. Project config (.relsync.yml)
  5. User config (~/.config/relsync/config.yml)
  6. Built-in defaults`,
	Example: `  # Preview what a release would do
  relsync release --dry-run

  # Show the changelog of the next release
  relsync changelog --preview

  # Release a version without editing the config file
  relsync release --set project.version=1.4.0`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: GroupRelease, Title: "Release Commands:"},
		&cobra.Group{ID: GroupInspect, Title: "Inspection Commands:"},
		&cobra.Group{ID: GroupConfiguration, Title: "Configuration Commands:"},
	)

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configPath, "config", "c", "", "Project config file (default: .relsync.yml in the repository root)")
	pf.StringVarP(&repoDir, "dir", "C", "", "Repository directory (default: current directory)")
	pf.BoolVarP(&debug, "debug", "d", false, "Enable debug logging")
	pf.BoolVar(&jsonLog, "log-json", false, "Write logs as JSON lines")
	pf.BoolVar(&dryRun, "dry-run", false, "Read the remote but change nothing")
	pf.BoolVar(&fetchTags, "fetch-tags", false, "Fetch tags from the remotes before resolving")
	pf.StringArrayVar(&setFlags, "set", nil, "Override a config key (repeatable), e.g. --set release.draft=true")

	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return clierrors.NewArgumentErrorWithUsage(err.Error(), cmd.UseLine())
	})
}

// Execute runs the command line and returns the process exit code.
func Execute() int {
	err := rootCmd.Execute()
	if err != nil {
		clierrors.FprintError(rootCmd.ErrOrStderr(), err)
	}
	return ExitCode(err)
}
