package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ariel-frischer/relsync/internal/history"
	"github.com/ariel-frischer/relsync/internal/lifecycle"
	"github.com/ariel-frischer/relsync/internal/output"
	"github.com/ariel-frischer/relsync/internal/progress"
	"github.com/ariel-frischer/relsync/internal/reconcile"
	"github.com/ariel-frischer/relsync/internal/release"
)

var releaseCmd = &cobra.Command{
	Use:   "release",
	Short: "Create or update the release on the hosting service",
	Long: `Resolve the release tag, render the changelog and make the remote release
match it.

An existing release is a conflict unless release.overwrite or
release.update.enabled is set. With --dry-run the remote is read but every
write is skipped and logged; the changelog files are still written to
<output_dir>/release/.`,
	Example: `  # Full release
  relsync release

  # See what would happen
  relsync release --dry-run

  # Replace an existing release
  relsync release --set release.overwrite=true`,
	Args: cobra.NoArgs,
	RunE: runRelease,
}

func init() {
	releaseCmd.GroupID = GroupRelease
	rootCmd.AddCommand(releaseCmd)
}

func runRelease(cmd *cobra.Command, _ []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}

	api, err := release.NewAPI(s.cfg.Release, s.coords, s.repo, s.log)
	if err != nil {
		return err
	}

	caps := progress.DetectTerminalCapabilities(os.Stderr)
	engine := release.New(s.cfg, s.repo, api, s.coords, s.log,
		release.WithWarnings(cmd.ErrOrStderr()),
		release.WithReporter(progress.NewReporter(cmd.ErrOrStderr(), caps)),
	)

	journal := &runJournal{
		writer: history.NewWriter(release.OutputDir(s.cfg, s.repo.Root()), history.DefaultMaxEntries),
		s:      s,
	}
	err = lifecycle.Run(journal, "release", func() error {
		var err error
		journal.res, err = engine.Run(cmd.Context())
		return err
	})
	if err != nil {
		return err
	}
	printOutcome(cmd, s, journal.res)
	return nil
}

// runJournal appends every release run, failed ones included, to the
// history file in the output directory.
type runJournal struct {
	writer *history.Writer
	s      *session
	res    *release.Result
}

func (j *runJournal) OnCommandComplete(name string, err error, duration time.Duration) {
	entry := history.HistoryEntry{
		Timestamp: time.Now().UTC(),
		RunID:     j.s.runID,
		Command:   name,
		DryRun:    j.s.cfg.DryRun,
		ExitCode:  ExitCode(err),
		Duration:  duration.Round(time.Millisecond).String(),
	}
	if err != nil {
		entry.Error = err.Error()
	}
	if j.res != nil {
		entry.Tag = j.res.Plan.Resolution.EffectiveTag
		if j.res.Outcome != nil {
			entry.Action = j.res.Outcome.Action.String()
		}
	}
	if err := j.writer.LogEntry(entry); err != nil {
		j.s.log.Warn().Err(err).Msg("cannot record the run in the history file")
	}
}

func printOutcome(cmd *cobra.Command, s *session, res *release.Result) {
	out := cmd.OutOrStdout()
	o := res.Outcome
	tag := res.Plan.Resolution.EffectiveTag

	output.PrintReleaseHeader(out, s.cfg.Release.Service, s.repoName(), tag, s.cfg.DryRun)
	output.PrintSuccess(out, fmt.Sprintf("%s release %s", actionVerb(o.Action), tag))
	if o.Release != nil && o.Release.URL != "" {
		output.PrintDetail(out, "url", o.Release.URL)
	}
	output.PrintDetail(out, "commits", strconv.Itoa(len(res.Plan.Commits)))
	if len(o.Uploaded) > 0 {
		output.PrintDetail(out, "uploaded", strings.Join(o.Uploaded, ", "))
	}
	if len(o.Replaced) > 0 {
		output.PrintDetail(out, "replaced", strings.Join(o.Replaced, ", "))
	}
	if len(o.Annotated) > 0 {
		nums := make([]string, len(o.Annotated))
		for i, n := range o.Annotated {
			nums[i] = "#" + strconv.Itoa(n)
		}
		output.PrintDetail(out, "issues", strings.Join(nums, " "))
	}
	output.PrintDetail(out, "changelog", res.ChangelogPath)
	output.PrintDetail(out, "run", s.runID)
}

func actionVerb(a reconcile.Action) string {
	switch a {
	case reconcile.Update:
		return "Updated"
	case reconcile.Overwrite:
		return "Replaced"
	case reconcile.SimulateCreate:
		return "Simulated"
	default:
		return "Created"
	}
}
