package changelog

import (
	"time"
)

// Person is a name and email pair from a commit header or trailer.
type Person struct {
	Name  string
	Email string
}

// Trailer is a "Key: value" line from the end of a commit message.
type Trailer struct {
	Key   string
	Value string
}

// Commit is a git commit enriched by the pipeline.
type Commit struct {
	Hash      string
	ShortHash string
	// Title is the first line of the message, Body the rest.
	Title     string
	Body      string
	Author    Person
	Committer Person
	CoAuthors []Person
	Time      time.Time
	Merge     bool
	// Conventional is nil for commits that do not follow the grammar or when
	// the conventional-commits preset is off.
	Conventional *ConventionalCommit
	Labels       []string
	Issues       []int
}

// HasLabel reports whether label was attached by a labeler.
func (c *Commit) HasLabel(label string) bool {
	for _, l := range c.Labels {
		if l == label {
			return true
		}
	}
	return false
}

func (c *Commit) addLabel(label string) {
	if !c.HasLabel(label) {
		c.Labels = append(c.Labels, label)
	}
}

// Contributor is a display name with every email it committed under.
type Contributor struct {
	Name   string
	Emails []string
	// Username and URL are filled by identity resolution.
	Username string
	URL      string
}

// Result is the rendered changelog and what it references.
type Result struct {
	Body         string
	Contributors []Contributor
	// Issues are the distinct issue numbers referenced by rendered commits,
	// ascending.
	Issues []int
	// Commits counts the commits that made it into the body.
	Commits int
}

// Sort orders commits within each category.
type Sort string

const (
	SortDesc Sort = "DESC"
	SortAsc  Sort = "ASC"
)

// Category groups labelled commits under a title.
type Category struct {
	Key    string   `yaml:"key"`
	Title  string   `yaml:"title"`
	Labels []string `yaml:"labels"`
	// Format overrides the commit line format for this category.
	Format string `yaml:"format,omitempty"`
}

// Labeler attaches Label to commits whose title, body or contributor match.
// Matchers are literal substrings where "*" matches any run of characters,
// or regular expressions when prefixed with "regex:".
type Labeler struct {
	Label       string `yaml:"label"`
	Title       string `yaml:"title,omitempty"`
	Body        string `yaml:"body,omitempty"`
	Contributor string `yaml:"contributor,omitempty"`
}

// Replacer rewrites the final changelog text. Search is a regular expression;
// both fields may reference release properties.
type Replacer struct {
	Search  string `yaml:"search"`
	Replace string `yaml:"replace"`
}

// Hide suppresses parts of the output.
type Hide struct {
	Uncategorized bool
	Categories    []string
	// Contributors match a contributor name or email, case-insensitively.
	Contributors []string
}

// ContributorsOptions controls the contributors section.
type ContributorsOptions struct {
	Enabled bool
	Format  string
}

// Options configures a Formatter.
type Options struct {
	Preset           string
	Sort             Sort
	Links            bool
	SkipMergeCommits bool
	GroupByScope     bool

	// Format is the per-commit line template.
	Format string
	// Content is the whole-document template; it sees changelogChanges and
	// changelogContributors plus the release properties.
	Content             string
	CategoryTitleFormat string
	Contributors        ContributorsOptions
	Hide                Hide

	IncludeLabels []string
	ExcludeLabels []string
	Categories    []Category
	Labelers      []Labeler
	Replacers     []Replacer
}

// Default templates used when Options leave them empty.
const (
	DefaultFormat              = "- {{commitShortHash}} {{commitTitle}} ({{commitAuthor}})"
	DefaultContent             = "## Changelog\n\n{{changelogChanges}}\n{{changelogContributors}}"
	DefaultCategoryTitleFormat = "## {{categoryTitle}}"
	DefaultContributorFormat   = "{{contributorName}}"

	// UncategorizedKey collects commits no category claimed.
	UncategorizedKey = "UNCATEGORIZED"
)
