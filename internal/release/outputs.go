package release

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ariel-frischer/relsync/internal/config"
	clierrors "github.com/ariel-frischer/relsync/internal/errors"
	"github.com/ariel-frischer/relsync/internal/reconcile"
)

const (
	changelogFile = "CHANGELOG.md"
	issuesFile    = "issues.txt"
)

// OutputDir resolves the configured output directory against the
// repository root.
func OutputDir(cfg *config.Configuration, root string) string {
	if filepath.IsAbs(cfg.OutputDir) {
		return cfg.OutputDir
	}
	return filepath.Join(root, cfg.OutputDir)
}

func (e *Engine) outputDir() string {
	return filepath.Join(OutputDir(e.cfg, e.repo.Root()), "release")
}

// writeOutputs writes the changelog and the referenced issue numbers, one
// per line. Both files are rewritten on every run.
func writeOutputs(dir string, plan *Plan) (changelogPath, issuesPath string, err error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", fmt.Errorf("creating %s: %w", dir, err)
	}

	changelogPath = filepath.Join(dir, changelogFile)
	if err := os.WriteFile(changelogPath, []byte(plan.Body()), 0o644); err != nil {
		return "", "", fmt.Errorf("writing %s: %w", changelogPath, err)
	}

	var b strings.Builder
	for _, n := range plan.Issues() {
		b.WriteString(strconv.Itoa(n))
		b.WriteByte('\n')
	}
	issuesPath = filepath.Join(dir, issuesFile)
	if err := os.WriteFile(issuesPath, []byte(b.String()), 0o644); err != nil {
		return "", "", fmt.Errorf("writing %s: %w", issuesPath, err)
	}
	return changelogPath, issuesPath, nil
}

// collectAssets expands the glob patterns relative to root. Patterns that
// match nothing are logged and skipped; two files with the same base name
// are an error because release assets are keyed by name.
func collectAssets(root string, patterns []string, log zerolog.Logger) ([]reconcile.Asset, error) {
	byName := make(map[string]string)
	for _, pattern := range patterns {
		full := pattern
		if !filepath.IsAbs(full) {
			full = filepath.Join(root, pattern)
		}
		matches, err := filepath.Glob(full)
		if err != nil {
			return nil, clierrors.WrapWithMessage(err, clierrors.Configuration, fmt.Sprintf("invalid asset pattern %q", pattern))
		}
		if len(matches) == 0 {
			log.Warn().Str("pattern", pattern).Msg("asset pattern matched no files")
			continue
		}
		for _, path := range matches {
			info, err := os.Stat(path)
			if err != nil || info.IsDir() {
				continue
			}
			name := filepath.Base(path)
			if prev, ok := byName[name]; ok && prev != path {
				return nil, clierrors.NewConfigError(
					fmt.Sprintf("two assets are named %s: %s and %s", name, prev, path),
					"Narrow the patterns in release.assets so each file name is unique",
				)
			}
			byName[name] = path
		}
	}

	assets := make([]reconcile.Asset, 0, len(byName))
	for name, path := range byName {
		assets = append(assets, reconcile.Asset{Name: name, Path: path})
	}
	sort.Slice(assets, func(i, j int) bool { return assets[i].Name < assets[j].Name })
	return assets, nil
}
