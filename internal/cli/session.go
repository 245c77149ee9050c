package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ariel-frischer/relsync/internal/config"
	clierrors "github.com/ariel-frischer/relsync/internal/errors"
	"github.com/ariel-frischer/relsync/internal/git"
	"github.com/ariel-frischer/relsync/internal/logging"
	"github.com/ariel-frischer/relsync/internal/release"
)

// session is what every repository command starts from.
type session struct {
	cfg    *config.Configuration
	repo   *git.Repository
	coords release.Coordinates
	log    zerolog.Logger
	runID  string
}

func openSession(cmd *cobra.Command) (*session, error) {
	log := logging.New(logging.Options{
		Out:     cmd.ErrOrStderr(),
		Debug:   debug,
		JSON:    jsonLog,
		NoColor: os.Getenv("NO_COLOR") != "",
	})
	log, runID := logging.WithRun(log)
	if debug {
		git.SetDebugLogger(logging.Printf(log))
	}

	repo, err := git.Open(repoDir)
	if err != nil {
		dir := repoDir
		if dir == "" {
			dir = "."
		}
		return nil, clierrors.RepositoryNotFound(dir, err)
	}

	overrides, err := parseOverrides(setFlags)
	if err != nil {
		return nil, err
	}
	cfg, err := config.LoadWithOptions(config.LoadOptions{
		ProjectConfigPath: projectConfigPath(repo.Root()),
		EnvFile:           filepath.Join(repo.Root(), config.EnvFilePath()),
		Overrides:         overrides,
	})
	if err != nil {
		return nil, configError(err)
	}
	cfg.DryRun = cfg.DryRun || dryRun
	cfg.Release.FetchTags = cfg.Release.FetchTags || fetchTags

	remoteURL, err := repo.RemoteURL(cfg.Release.Remote)
	if err != nil {
		log.Warn().Err(err).Str("remote", cfg.Release.Remote).Msg("cannot read remote url")
	}
	coords, err := release.ResolveCoordinates(cfg.Release, remoteURL)
	if err != nil {
		return nil, clierrors.Wrap(err, clierrors.Configuration,
			"Set release.owner and release.name in .relsync.yml",
			"Or add a remote that points at the hosting service")
	}

	log.Debug().
		Str("root", repo.Root()).
		Str("service", cfg.Release.Service).
		Str("repo", coords.Owner+"/"+coords.Name).
		Bool("dry_run", cfg.DryRun).
		Msg("session opened")

	return &session{cfg: cfg, repo: repo, coords: coords, log: log, runID: runID}, nil
}

// projectConfigPath is --config, or .relsync.yml in the repository root when
// that file exists.
func projectConfigPath(root string) string {
	if configPath != "" {
		return configPath
	}
	path := filepath.Join(root, config.ProjectConfigPath())
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

// parseOverrides turns repeated key=value flags into a map.
func parseOverrides(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, clierrors.NewArgumentErrorWithUsage(
				fmt.Sprintf("invalid --set value %q", pair),
				"relsync <command> --set key=value",
				"Keys are dotted config paths, e.g. release.draft",
			)
		}
		out[key] = value
	}
	return out, nil
}

func configError(err error) error {
	var v *config.ValidationError
	if errors.As(err, &v) && v.Message == "config file not found" {
		return clierrors.ConfigFileNotFound(v.FilePath)
	}
	if errors.As(err, &v) && v.Line > 0 {
		return clierrors.ConfigParseError(v.FilePath, err)
	}
	return clierrors.Wrap(err, clierrors.Configuration,
		"Check .relsync.yml against 'relsync init --print'",
		"Environment overrides use the RELSYNC_ prefix with __ between levels",
	)
}

func (s *session) repoName() string {
	if s.coords.Owner == "" {
		return s.coords.Name
	}
	return s.coords.Owner + "/" + s.coords.Name
}
