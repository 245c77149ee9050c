// Package config provides hierarchical configuration management for relsync using koanf.
// Configuration is loaded with priority: --set overrides > environment variables (RELSYNC_)
// > .env file > project config (.relsync.yml) > user config (~/.config/relsync/config.yml)
// > defaults.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/ariel-frischer/relsync/internal/changelog"
)

// ConfigSource tracks where a configuration value came from
type ConfigSource string

const (
	SourceDefault  ConfigSource = "default"
	SourceUser     ConfigSource = "user"
	SourceProject  ConfigSource = "project"
	SourceEnv      ConfigSource = "env"
	SourceOverride ConfigSource = "override"
)

// EnvPrefix starts every environment variable relsync reads. A double
// underscore separates nesting levels: RELSYNC_RELEASE__TOKEN sets
// release.token.
const EnvPrefix = "RELSYNC_"

// Configuration represents the relsync configuration
type Configuration struct {
	Project   ProjectConfig   `koanf:"project"`
	Release   ReleaseConfig   `koanf:"release"`
	Changelog ChangelogConfig `koanf:"changelog"`

	// OutputDir receives release/CHANGELOG.md and release/issues.txt.
	OutputDir string `koanf:"output_dir" validate:"required"`
	DryRun    bool   `koanf:"dry_run"`
}

// ProjectConfig describes the project being released.
type ProjectConfig struct {
	Name       string           `koanf:"name" validate:"required"`
	Version    string           `koanf:"version" validate:"required"`
	Versioning VersioningConfig `koanf:"versioning"`
	Snapshot   SnapshotConfig   `koanf:"snapshot"`
}

// VersioningConfig selects the version scheme tags are ordered by.
type VersioningConfig struct {
	Scheme string `koanf:"scheme" validate:"required,oneof=SEMVER CALVER JAVA_RUNTIME JAVA_MODULE CUSTOM"`
	// Format is the CALVER layout, e.g. YYYY.0M.MICRO.
	Format string `koanf:"format"`
}

// SnapshotConfig controls publishing of in-progress versions.
type SnapshotConfig struct {
	// Pattern is a regular expression matched against project.version.
	Pattern string `koanf:"pattern"`
	// Label is the tag and release name a snapshot is published under.
	Label         string `koanf:"label"`
	FullChangelog bool   `koanf:"full_changelog"`
}

// ReleaseConfig configures the hosting-service release.
type ReleaseConfig struct {
	Service     string `koanf:"service" validate:"required,oneof=github gitea generic"`
	Owner       string `koanf:"owner"`
	Name        string `koanf:"name"`
	Host        string `koanf:"host"`
	APIEndpoint string `koanf:"api_endpoint"`
	Token       string `koanf:"token"`
	// Remote is the git remote used for the generic service, tag presence
	// checks and owner/name detection.
	Remote string `koanf:"remote"`

	TagName         string `koanf:"tag_name" validate:"required"`
	PreviousTagName string `koanf:"previous_tag_name"`
	ReleaseName     string `koanf:"release_name" validate:"required"`
	// Branch is the target commitish; empty means the current branch.
	Branch string `koanf:"branch"`

	Draft              bool             `koanf:"draft"`
	Prerelease         PrereleaseConfig `koanf:"prerelease"`
	Overwrite          bool             `koanf:"overwrite"`
	Update             UpdateConfig     `koanf:"update"`
	SkipTag            bool             `koanf:"skip_tag"`
	Sign               bool             `koanf:"sign"`
	FetchTags          bool             `koanf:"fetch_tags"`
	Milestone          MilestoneConfig  `koanf:"milestone"`
	DiscussionCategory string           `koanf:"discussion_category"`
	Issues             IssuesConfig     `koanf:"issues"`
	// Assets are glob patterns relative to the repository root.
	Assets []string `koanf:"assets"`

	ConnectTimeout time.Duration `koanf:"connect_timeout" validate:"min=0"`
	ReadTimeout    time.Duration `koanf:"read_timeout" validate:"min=0"`
}

// PrereleaseConfig marks releases as prereleases.
type PrereleaseConfig struct {
	Enabled bool `koanf:"enabled"`
	// Pattern is a regular expression; a matching version is a prerelease.
	Pattern string `koanf:"pattern"`
}

// UpdateConfig allows patching an existing release in place.
type UpdateConfig struct {
	Enabled  bool     `koanf:"enabled"`
	Sections []string `koanf:"sections"`
}

// MilestoneConfig names the milestone and whether to close it.
type MilestoneConfig struct {
	Close bool   `koanf:"close"`
	Name  string `koanf:"name"`
}

// IssuesConfig configures back-annotation of the issues a release fixes.
type IssuesConfig struct {
	Enabled        bool   `koanf:"enabled"`
	Label          string `koanf:"label"`
	Comment        string `koanf:"comment"`
	ApplyMilestone string `koanf:"apply_milestone"`
}

// ChangelogConfig configures changelog generation.
type ChangelogConfig struct {
	Enabled             bool               `koanf:"enabled"`
	Preset              string             `koanf:"preset"`
	Sort                string             `koanf:"sort" validate:"omitempty,oneof=ASC DESC asc desc"`
	Links               bool               `koanf:"links"`
	SkipMergeCommits    bool               `koanf:"skip_merge_commits"`
	Format              string             `koanf:"format"`
	Content             string             `koanf:"content"`
	CategoryTitleFormat string             `koanf:"category_title_format"`
	Contributors        ContributorsConfig `koanf:"contributors"`
	Hide                HideConfig         `koanf:"hide"`
	IncludeLabels       []string           `koanf:"include_labels"`
	ExcludeLabels       []string           `koanf:"exclude_labels"`
	GroupByScope        bool               `koanf:"group_by_scope"`

	Categories []changelog.Category `koanf:"categories"`
	Labelers   []changelog.Labeler  `koanf:"labelers"`
	Replacers  []changelog.Replacer `koanf:"replacers"`
}

// ContributorsConfig controls the contributors section.
type ContributorsConfig struct {
	Enabled bool   `koanf:"enabled"`
	Format  string `koanf:"format"`
}

// HideConfig suppresses parts of the changelog.
type HideConfig struct {
	Uncategorized bool     `koanf:"uncategorized"`
	Categories    []string `koanf:"categories"`
	Contributors  []string `koanf:"contributors"`
}

// Options converts the section into formatter options.
func (c ChangelogConfig) Options() changelog.Options {
	return changelog.Options{
		Preset:              c.Preset,
		Sort:                changelog.Sort(strings.ToUpper(c.Sort)),
		Links:               c.Links,
		SkipMergeCommits:    c.SkipMergeCommits,
		GroupByScope:        c.GroupByScope,
		Format:              c.Format,
		Content:             c.Content,
		CategoryTitleFormat: c.CategoryTitleFormat,
		Contributors: changelog.ContributorsOptions{
			Enabled: c.Contributors.Enabled,
			Format:  c.Contributors.Format,
		},
		Hide: changelog.Hide{
			Uncategorized: c.Hide.Uncategorized,
			Categories:    c.Hide.Categories,
			Contributors:  c.Hide.Contributors,
		},
		IncludeLabels: c.IncludeLabels,
		ExcludeLabels: c.ExcludeLabels,
		Categories:    c.Categories,
		Labelers:      c.Labelers,
		Replacers:     c.Replacers,
	}
}

// LoadOptions configures how configuration is loaded
type LoadOptions struct {
	// ProjectConfigPath overrides the project config path (default: .relsync.yml).
	// An explicit path that does not exist is an error.
	ProjectConfigPath string
	// EnvFile overrides the .env path; missing files are ignored.
	EnvFile string
	// SkipUserConfig ignores ~/.config/relsync/config.yml (for tests).
	SkipUserConfig bool
	// Overrides are dotted key=value pairs applied last, e.g. from --set.
	Overrides map[string]string
}

// LoadWithOptions loads configuration with custom options
func LoadWithOptions(opts LoadOptions) (*Configuration, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(GetDefaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	if !opts.SkipUserConfig {
		if err := loadUserConfig(k); err != nil {
			return nil, err
		}
	}

	projectPath, err := loadProjectConfig(k, opts.ProjectConfigPath)
	if err != nil {
		return nil, err
	}

	if err := loadEnvFile(opts.EnvFile); err != nil {
		return nil, err
	}

	if err := loadEnvironmentConfig(k); err != nil {
		return nil, err
	}

	if err := applyOverrides(k, opts.Overrides); err != nil {
		return nil, err
	}

	return finalizeConfig(k, projectPath)
}

// loadUserConfig loads ~/.config/relsync/config.yml when present.
func loadUserConfig(k *koanf.Koanf) error {
	path, err := UserConfigPath()
	if err != nil || !fileExists(path) {
		return nil
	}
	if err := loadYAMLConfig(k, path, SourceUser); err != nil {
		return fmt.Errorf("loading user config: %w", err)
	}
	return nil
}

// loadProjectConfig loads the project file. The default path is optional;
// an explicit one must exist.
func loadProjectConfig(k *koanf.Koanf, customPath string) (string, error) {
	path := ProjectConfigPath()
	if customPath != "" {
		path = customPath
		if !fileExists(path) {
			return path, &ValidationError{FilePath: path, Message: "config file not found"}
		}
	}
	if !fileExists(path) {
		return path, nil
	}
	if err := loadYAMLConfig(k, path, SourceProject); err != nil {
		return path, fmt.Errorf("loading project config: %w", err)
	}
	return path, nil
}

// loadYAMLConfig validates and loads a YAML config file
func loadYAMLConfig(k *koanf.Koanf, path string, source ConfigSource) error {
	if err := ValidateYAMLSyntax(path); err != nil {
		return err
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return fmt.Errorf("failed to load %s config %s: %w", source, path, err)
	}
	return nil
}

// loadEnvFile exports .env values into the process environment. Variables
// already set win.
func loadEnvFile(path string) error {
	if path == "" {
		path = EnvFilePath()
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// loadEnvironmentConfig loads environment variable overrides
func loadEnvironmentConfig(k *koanf.Koanf) error {
	if err := k.Load(env.Provider(EnvPrefix, ".", envTransform), nil); err != nil {
		return fmt.Errorf("failed to load environment config: %w", err)
	}
	return nil
}

// envTransform converts environment variable names to config keys
// Example: RELSYNC_RELEASE__SKIP_TAG -> release.skip_tag
func envTransform(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
}

// applyOverrides validates each key=value against the key registry before
// setting it.
func applyOverrides(k *koanf.Koanf, overrides map[string]string) error {
	for key, raw := range overrides {
		parsed, err := ValidateValue(key, raw)
		if err != nil {
			return &ValidationError{FilePath: "--set", Field: key, Message: err.Error()}
		}
		if err := k.Set(key, parsed.Parsed); err != nil {
			return fmt.Errorf("setting %s: %w", key, err)
		}
	}
	return nil
}

// finalizeConfig unmarshals, validates, and applies final transformations
func finalizeConfig(k *koanf.Koanf, path string) (*Configuration, error) {
	var cfg Configuration
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.OutputDir = expandHomePath(cfg.OutputDir)
	cfg.Project.Versioning.Scheme = strings.ToUpper(cfg.Project.Versioning.Scheme)
	cfg.Release.Service = strings.ToLower(cfg.Release.Service)
	for i, s := range cfg.Release.Update.Sections {
		cfg.Release.Update.Sections[i] = strings.ToUpper(s)
	}
	if cfg.Release.Token == "" {
		cfg.Release.Token = tokenFromEnv(cfg.Release.Service)
	}

	if err := ValidateConfigValues(&cfg, path); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// tokenFromEnv reads the service's conventional token variable.
func tokenFromEnv(service string) string {
	switch service {
	case "github":
		return os.Getenv("GITHUB_TOKEN")
	case "gitea":
		return os.Getenv("GITEA_TOKEN")
	default:
		return ""
	}
}

// fileExists returns true if the file exists and is readable
func fileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

// expandHomePath expands ~ to the user's home directory
func expandHomePath(path string) string {
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(homeDir, path[2:])
		}
	}
	return path
}
