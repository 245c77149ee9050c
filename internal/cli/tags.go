package cli

import (
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/ariel-frischer/relsync/internal/git"
	"github.com/ariel-frischer/relsync/internal/release"
)

var tagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "Show which tags bound the next release",
	Long: `Resolve the release tag and the previous tag the way 'relsync release'
does and print them with the commit range between them.`,
	Example: `  relsync tags
  relsync tags --set release.previous_tag_name=v1.0.0`,
	Args: cobra.NoArgs,
	RunE: runTags,
}

func init() {
	tagsCmd.GroupID = GroupInspect
	rootCmd.AddCommand(tagsCmd)
}

func runTags(cmd *cobra.Command, _ []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	engine := release.New(s.cfg, s.repo, nil, s.coords, s.log, release.WithWarnings(cmd.ErrOrStderr()))
	plan, err := engine.Prepare(cmd.Context(), false)
	if err != nil {
		return err
	}

	res := plan.Resolution
	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleLight)
	t.Style().Format.Header = text.FormatDefault
	t.Style().Format.Footer = text.FormatDefault
	t.AppendHeader(table.Row{"", "Tag", "Commit"})
	t.AppendRow(table.Row{"release", res.EffectiveTag, tagCommit(res.Current, "(new)")})
	if res.Previous != nil {
		t.AppendRow(table.Row{"previous", res.Previous.Name, tagCommit(res.Previous, "")})
	} else {
		t.AppendRow(table.Row{"previous", "(none)", ""})
	}
	t.AppendFooter(table.Row{"range", plan.Range.String(), strconv.Itoa(len(plan.Commits)) + " commits"})
	t.Render()
	return nil
}

func tagCommit(t *git.Tag, missing string) string {
	if t == nil {
		return missing
	}
	if len(t.Commit) > 7 {
		return t.Commit[:7]
	}
	return t.Commit
}
