package config

import "time"

// DefaultIssueComment is posted on every issue a release resolves.
const DefaultIssueComment = "🎉 This issue has been resolved in `{{tagName}}` ([Release Notes]({{releaseNotesUrl}}))"

// GetDefaultConfigTemplate returns a fully commented config template
// that helps users understand all available options
func GetDefaultConfigTemplate() string {
	return `# relsync configuration
# Environment overrides use RELSYNC_ with __ between levels, e.g. RELSYNC_RELEASE__TOKEN

project:
  name: ""                            # Project name ({{projectName}})
  version: ""                         # Version being released ({{projectVersion}})
  versioning:
    scheme: SEMVER                    # SEMVER | CALVER | JAVA_RUNTIME | JAVA_MODULE | CUSTOM
    format: ""                        # CALVER layout, e.g. YYYY.0M.MICRO
  snapshot:
    pattern: .*-SNAPSHOT              # Versions matching this are snapshots
    label: early-access               # Tag and release name for snapshots
    full_changelog: false             # Snapshot changelog starts at the last release

release:
  service: github                     # github | gitea | generic
  owner: ""                           # Defaults to the remote URL owner
  name: ""                            # Defaults to the remote URL repository
  host: ""                            # Gitea base URL, or GitHub Enterprise host
  token: ""                           # Falls back to GITHUB_TOKEN / GITEA_TOKEN
  remote: origin
  tag_name: v{{projectVersion}}
  previous_tag_name: ""               # Pin the previous tag instead of resolving it
  release_name: Release {{tagName}}
  branch: ""                          # Target branch (default: current branch)
  draft: false
  prerelease:
    enabled: false
    pattern: ""                       # Versions matching this are prereleases
  overwrite: false                    # Delete and recreate an existing release
  update:
    enabled: false                    # Patch an existing release in place
    sections: [TITLE, BODY]           # TITLE | BODY | ASSETS
  skip_tag: false                     # Do not create the local tag
  sign: false                         # Create a signed tag with git tag -s
  fetch_tags: false                   # Fetch remote tags before resolving
  milestone:
    close: true
    name: "{{tagName}}"
  discussion_category: ""
  issues:
    enabled: false
    label: released
    # comment: ""                     # Unset uses the built-in comment; empty posts none
    apply_milestone: ALWAYS           # ALWAYS | WARN | FORCE
  assets: []                          # Glob patterns, e.g. dist/*.tar.gz
  connect_timeout: 20s
  read_timeout: 60s

changelog:
  enabled: true
  preset: conventional-commits        # Empty disables the preset
  sort: DESC                          # ASC | DESC
  links: true
  skip_merge_commits: false
  group_by_scope: false
  contributors:
    enabled: true
    format: "{{contributorName}}"
  hide:
    uncategorized: false
    categories: []
    contributors: []

output_dir: out/relsync
dry_run: false
`
}

// GetDefaults returns the default configuration values
func GetDefaults() map[string]interface{} {
	return map[string]interface{}{
		"project": map[string]interface{}{
			"versioning": map[string]interface{}{
				"scheme": "SEMVER",
				"format": "",
			},
			"snapshot": map[string]interface{}{
				"pattern":        ".*-SNAPSHOT",
				"label":          "early-access",
				"full_changelog": false,
			},
		},
		"release": map[string]interface{}{
			"service":      "github",
			"remote":       "origin",
			"tag_name":     "v{{projectVersion}}",
			"release_name": "Release {{tagName}}",
			"update": map[string]interface{}{
				"enabled":  false,
				"sections": []string{"TITLE", "BODY"},
			},
			"milestone": map[string]interface{}{
				"close": true,
				"name":  "{{tagName}}",
			},
			"issues": map[string]interface{}{
				"enabled":         false,
				"label":           "released",
				"comment":         DefaultIssueComment,
				"apply_milestone": "ALWAYS",
			},
			"connect_timeout": (20 * time.Second).String(),
			"read_timeout":    (60 * time.Second).String(),
		},
		"changelog": map[string]interface{}{
			"enabled": true,
			"preset":  "conventional-commits",
			"sort":    "DESC",
			"links":   true,
			"contributors": map[string]interface{}{
				"enabled": true,
				"format":  "{{contributorName}}",
			},
		},
		"output_dir": "out/relsync",
		"dry_run":    false,
	}
}
