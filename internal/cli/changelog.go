package cli

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ariel-frischer/relsync/internal/changelog"
	clierrors "github.com/ariel-frischer/relsync/internal/errors"
	"github.com/ariel-frischer/relsync/internal/output"
	"github.com/ariel-frischer/relsync/internal/progress"
	"github.com/ariel-frischer/relsync/internal/release"
)

var (
	changelogPlainFlag   bool
	changelogPreviewFlag bool
	changelogOutputFlag  string
)

var changelogCmd = &cobra.Command{
	Use:   "changelog",
	Short: "Render the changelog of the next release",
	Long: `Render the changelog for the commits between the previous tag and the
release tag without touching the hosting service.

Contributor names are not resolved to accounts, so the output may differ from
the published release body in the contributors section.`,
	Example: `  relsync changelog                    # Styled terminal output
  relsync changelog --plain            # Raw markdown
  relsync changelog --preview          # Tag summary plus styled output
  relsync changelog --output NOTES.md  # Write the markdown to a file`,
	Args: cobra.NoArgs,
	RunE: runChangelog,
}

func init() {
	changelogCmd.GroupID = GroupInspect
	rootCmd.AddCommand(changelogCmd)

	changelogCmd.Flags().BoolVar(&changelogPlainFlag, "plain", false, "Plain markdown output (no colors/icons)")
	changelogCmd.Flags().BoolVar(&changelogPreviewFlag, "preview", false, "Show the resolved tags before the changelog")
	changelogCmd.Flags().StringVarP(&changelogOutputFlag, "output", "o", "", "Write the markdown to a file instead of stdout")
}

func runChangelog(cmd *cobra.Command, _ []string) error {
	if changelogPlainFlag && changelogPreviewFlag {
		return clierrors.InvalidFlagCombination("--plain --preview", "--preview always styles its output")
	}

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	engine := release.New(s.cfg, s.repo, nil, s.coords, s.log, release.WithWarnings(cmd.ErrOrStderr()))
	plan, err := engine.Prepare(cmd.Context(), false)
	if err != nil {
		return err
	}
	if plan.Changelog == nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "Changelog generation is disabled (changelog.enabled: false)")
		return nil
	}

	if changelogOutputFlag != "" {
		if err := os.WriteFile(changelogOutputFlag, []byte(plan.Body()), 0o644); err != nil {
			return clierrors.WrapWithMessage(err, clierrors.Runtime, "cannot write changelog")
		}
		output.PrintSuccess(cmd.OutOrStdout(), "Wrote "+changelogOutputFlag)
		return nil
	}

	out := cmd.OutOrStdout()
	if changelogPreviewFlag {
		output.PrintReleaseHeader(out, s.cfg.Release.Service, s.repoName(), plan.Resolution.EffectiveTag, false)
		output.PrintDetail(out, "range", plan.Range.String())
		output.PrintDetail(out, "commits", strconv.Itoa(len(plan.Commits)))
		output.PrintDetail(out, "rendered", strconv.Itoa(plan.Changelog.Commits))
		output.PrintSeparator(out, "changelog")
	}

	caps := progress.DetectTerminalCapabilities(os.Stdout)
	return changelog.FormatTerminal(plan.Body(), out, changelog.FormatOptions{
		Plain:    changelogPlainFlag,
		MaxWidth: caps.Width,
	})
}
