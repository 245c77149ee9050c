package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ariel-frischer/relsync/internal/config"
	clierrors "github.com/ariel-frischer/relsync/internal/errors"
	"github.com/ariel-frischer/relsync/internal/git"
	"github.com/ariel-frischer/relsync/internal/output"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a commented .relsync.yml",
	Long: `Write the default configuration, with every key documented, to
.relsync.yml in the repository root.

An existing file is left unchanged unless --force is given. Use --user to
write ~/.config/relsync/config.yml instead, which applies to every project.`,
	Example: `  relsync init
  relsync init --user
  relsync init --print > .relsync.yml`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	initCmd.GroupID = GroupConfiguration
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().BoolP("force", "f", false, "Overwrite an existing config file")
	initCmd.Flags().Bool("user", false, "Write the user-level config instead")
	initCmd.Flags().Bool("print", false, "Print the template to stdout")
}

func runInit(cmd *cobra.Command, _ []string) error {
	force, _ := cmd.Flags().GetBool("force")
	user, _ := cmd.Flags().GetBool("user")
	printOnly, _ := cmd.Flags().GetBool("print")

	tmpl := config.GetDefaultConfigTemplate()
	if printOnly {
		_, err := fmt.Fprint(cmd.OutOrStdout(), tmpl)
		return err
	}

	path, err := initTarget(user)
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil && !force {
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s already exists (use --force to overwrite)\n",
			color.New(color.FgYellow).Sprint("!"), path)
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return clierrors.WrapWithMessage(err, clierrors.Runtime, "cannot create config directory")
	}
	if err := os.WriteFile(path, []byte(tmpl), 0o644); err != nil {
		return clierrors.WrapWithMessage(err, clierrors.Runtime, "cannot write config")
	}
	output.PrintSuccess(cmd.OutOrStdout(), "Wrote "+path)
	return nil
}

// initTarget is the user config path, or .relsync.yml in the repository
// root (falling back to --dir or the current directory outside a repository).
func initTarget(user bool) (string, error) {
	if user {
		path, err := config.UserConfigPath()
		if err != nil {
			return "", clierrors.WrapWithMessage(err, clierrors.Configuration, "cannot locate the user config directory")
		}
		return path, nil
	}
	if repo, err := git.Open(repoDir); err == nil {
		return filepath.Join(repo.Root(), config.ProjectConfigPath()), nil
	}
	return filepath.Join(repoDir, config.ProjectConfigPath()), nil
}
