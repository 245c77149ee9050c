package config

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// ConfigValueType is the kind of value a --set override must hold.
type ConfigValueType int

const (
	TypeString ConfigValueType = iota
	TypeBool
	TypeDuration
	TypeEnum
)

var typeNames = [...]string{"string", "bool", "duration", "enum"}

func (t ConfigValueType) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "unknown"
}

// ConfigKeySchema defines a known configuration key with its expected type and validation rules.
type ConfigKeySchema struct {
	Path          string          // Dotted key path (e.g., "release.draft")
	Type          ConfigValueType // Expected value type for validation
	AllowedValues []string        // Valid values for enum types (empty for non-enums)
	Description   string          // Human-readable description for help text
}

// KnownKeys is the registry of configuration keys that can be overridden from
// the command line with --set key=value.
var KnownKeys = map[string]ConfigKeySchema{
	"project.name": {
		Path:        "project.name",
		Type:        TypeString,
		Description: "Project name",
	},
	"project.version": {
		Path:        "project.version",
		Type:        TypeString,
		Description: "Version being released",
	},
	"project.versioning.scheme": {
		Path:          "project.versioning.scheme",
		Type:          TypeEnum,
		AllowedValues: []string{"SEMVER", "CALVER", "JAVA_RUNTIME", "JAVA_MODULE", "CUSTOM"},
		Description:   "Version scheme tags are ordered by",
	},
	"project.versioning.format": {
		Path:        "project.versioning.format",
		Type:        TypeString,
		Description: "CALVER layout",
	},
	"project.snapshot.label": {
		Path:        "project.snapshot.label",
		Type:        TypeString,
		Description: "Tag and release name used for snapshots",
	},
	"project.snapshot.full_changelog": {
		Path:        "project.snapshot.full_changelog",
		Type:        TypeBool,
		Description: "Start snapshot changelogs at the last release",
	},
	"release.service": {
		Path:          "release.service",
		Type:          TypeEnum,
		AllowedValues: []string{"github", "gitea", "generic"},
		Description:   "Hosting service",
	},
	"release.owner": {
		Path:        "release.owner",
		Type:        TypeString,
		Description: "Repository owner",
	},
	"release.name": {
		Path:        "release.name",
		Type:        TypeString,
		Description: "Repository name",
	},
	"release.host": {
		Path:        "release.host",
		Type:        TypeString,
		Description: "Gitea base URL or GitHub Enterprise host",
	},
	"release.tag_name": {
		Path:        "release.tag_name",
		Type:        TypeString,
		Description: "Tag name template",
	},
	"release.previous_tag_name": {
		Path:        "release.previous_tag_name",
		Type:        TypeString,
		Description: "Pinned previous tag",
	},
	"release.release_name": {
		Path:        "release.release_name",
		Type:        TypeString,
		Description: "Release name template",
	},
	"release.branch": {
		Path:        "release.branch",
		Type:        TypeString,
		Description: "Target branch",
	},
	"release.draft": {
		Path:        "release.draft",
		Type:        TypeBool,
		Description: "Create the release as a draft",
	},
	"release.prerelease.enabled": {
		Path:        "release.prerelease.enabled",
		Type:        TypeBool,
		Description: "Mark the release as a prerelease",
	},
	"release.overwrite": {
		Path:        "release.overwrite",
		Type:        TypeBool,
		Description: "Delete and recreate an existing release",
	},
	"release.update.enabled": {
		Path:        "release.update.enabled",
		Type:        TypeBool,
		Description: "Patch an existing release in place",
	},
	"release.skip_tag": {
		Path:        "release.skip_tag",
		Type:        TypeBool,
		Description: "Do not create the local tag",
	},
	"release.sign": {
		Path:        "release.sign",
		Type:        TypeBool,
		Description: "Create a signed tag",
	},
	"release.fetch_tags": {
		Path:        "release.fetch_tags",
		Type:        TypeBool,
		Description: "Fetch remote tags before resolving",
	},
	"release.milestone.close": {
		Path:        "release.milestone.close",
		Type:        TypeBool,
		Description: "Close the release milestone",
	},
	"release.milestone.name": {
		Path:        "release.milestone.name",
		Type:        TypeString,
		Description: "Milestone name template",
	},
	"release.discussion_category": {
		Path:        "release.discussion_category",
		Type:        TypeString,
		Description: "Discussion category to link",
	},
	"release.issues.enabled": {
		Path:        "release.issues.enabled",
		Type:        TypeBool,
		Description: "Annotate resolved issues",
	},
	"release.issues.label": {
		Path:        "release.issues.label",
		Type:        TypeString,
		Description: "Label added to resolved issues",
	},
	"release.issues.apply_milestone": {
		Path:          "release.issues.apply_milestone",
		Type:          TypeEnum,
		AllowedValues: []string{"ALWAYS", "WARN", "FORCE"},
		Description:   "Milestone policy for resolved issues",
	},
	"release.connect_timeout": {
		Path:        "release.connect_timeout",
		Type:        TypeDuration,
		Description: "HTTP connect timeout",
	},
	"release.read_timeout": {
		Path:        "release.read_timeout",
		Type:        TypeDuration,
		Description: "HTTP read timeout",
	},
	"changelog.enabled": {
		Path:        "changelog.enabled",
		Type:        TypeBool,
		Description: "Generate a changelog",
	},
	"changelog.preset": {
		Path:          "changelog.preset",
		Type:          TypeEnum,
		AllowedValues: []string{"", "conventional-commits"},
		Description:   "Changelog preset",
	},
	"changelog.sort": {
		Path:          "changelog.sort",
		Type:          TypeEnum,
		AllowedValues: []string{"ASC", "DESC"},
		Description:   "Commit order within categories",
	},
	"changelog.links": {
		Path:        "changelog.links",
		Type:        TypeBool,
		Description: "Link commits and issues",
	},
	"changelog.skip_merge_commits": {
		Path:        "changelog.skip_merge_commits",
		Type:        TypeBool,
		Description: "Drop merge commits",
	},
	"changelog.group_by_scope": {
		Path:        "changelog.group_by_scope",
		Type:        TypeBool,
		Description: "Group entries by conventional scope",
	},
	"changelog.contributors.enabled": {
		Path:        "changelog.contributors.enabled",
		Type:        TypeBool,
		Description: "Render the contributors section",
	},
	"output_dir": {
		Path:        "output_dir",
		Type:        TypeString,
		Description: "Directory for generated files",
	},
	"dry_run": {
		Path:        "dry_run",
		Type:        TypeBool,
		Description: "Simulate every remote mutation",
	},
}

// ErrUnknownKey is returned when trying to access an unknown configuration key.
type ErrUnknownKey struct {
	Key string
}

func (e ErrUnknownKey) Error() string {
	return "unknown configuration key: " + e.Key
}

// GetKeySchema returns the schema for a known configuration key.
// Returns ErrUnknownKey if the key is not in the registry.
func GetKeySchema(path string) (ConfigKeySchema, error) {
	schema, ok := KnownKeys[path]
	if !ok {
		return ConfigKeySchema{}, ErrUnknownKey{Key: path}
	}
	return schema, nil
}

// ParsedValue is an override after type checking. Parsed is what koanf
// stores: a bool, or a normalized string for every other type.
type ParsedValue struct {
	Raw    string
	Parsed any
	Type   ConfigValueType
}

// ValidateValue checks value against the schema registered for key.
func ValidateValue(key, value string) (ParsedValue, error) {
	schema, err := GetKeySchema(key)
	if err != nil {
		return ParsedValue{}, err
	}

	parsed := ParsedValue{Raw: value, Parsed: value, Type: schema.Type}
	switch schema.Type {
	case TypeBool:
		switch strings.ToLower(value) {
		case "true":
			parsed.Parsed = true
		case "false":
			parsed.Parsed = false
		default:
			return ParsedValue{}, fmt.Errorf("invalid boolean: %q (expected true or false)", value)
		}
	case TypeDuration:
		d, err := time.ParseDuration(value)
		if err != nil {
			return ParsedValue{}, fmt.Errorf("invalid duration: %q (examples: 5s, 1m30s)", value)
		}
		parsed.Parsed = d.String()
	case TypeEnum:
		if !slices.Contains(schema.AllowedValues, value) {
			return ParsedValue{}, fmt.Errorf("invalid value: %q (valid options: %s)",
				value, strings.Join(schema.AllowedValues, ", "))
		}
	}
	return parsed, nil
}
