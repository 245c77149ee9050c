package changelog

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/ariel-frischer/relsync/internal/git"
	"github.com/ariel-frischer/relsync/internal/template"
	"github.com/rs/zerolog"
)

// Repository identifies where commits and issues live for link rendering and
// issue extraction. Every field is optional.
type Repository struct {
	Owner string
	Name  string
	// URL is the web URL of the repository, used for commit links.
	URL string
	// IssueTrackerURL is the base URL issue numbers are appended to.
	IssueTrackerURL string
}

// Formatter renders a changelog from commits.
type Formatter struct {
	opts     Options
	engine   *template.Engine
	labelers []labeler
	parser   *ConventionalParser
	issues   *IssueExtractor
	repo     Repository
	users    UserLookup
	log      zerolog.Logger
}

// FormatterOption customizes a Formatter.
type FormatterOption func(*Formatter)

// WithRepository enables qualified issue references and links.
func WithRepository(r Repository) FormatterOption {
	return func(f *Formatter) { f.repo = r }
}

// WithUserLookup enables contributor identity resolution. Leave it unset for
// dry runs.
func WithUserLookup(u UserLookup) FormatterOption {
	return func(f *Formatter) { f.users = u }
}

// WithLogger sets the logger for non-fatal problems.
func WithLogger(l zerolog.Logger) FormatterOption {
	return func(f *Formatter) { f.log = l }
}

// NewFormatter validates opts, merges the preset and compiles labelers.
func NewFormatter(opts Options, engine *template.Engine, fopts ...FormatterOption) (*Formatter, error) {
	f := &Formatter{engine: engine, log: zerolog.Nop()}
	for _, o := range fopts {
		o(f)
	}

	if opts.Preset != "" {
		p, err := LoadPreset(opts.Preset)
		if err != nil {
			return nil, err
		}
		opts = p.Apply(opts)
		if opts.Preset == PresetConventionalCommits {
			f.parser = NewConventionalParser()
		}
	}
	setDefaults(&opts)

	if opts.Sort != SortAsc && opts.Sort != SortDesc {
		return nil, &ValidationError{Field: "sort", Message: fmt.Sprintf("must be ASC or DESC, got %q", opts.Sort)}
	}
	if err := validateCategories(opts.Categories); err != nil {
		return nil, err
	}
	labelers, err := compileLabelers(opts.Labelers)
	if err != nil {
		return nil, err
	}

	f.opts = opts
	f.labelers = labelers
	f.issues = NewIssueExtractor(f.repo.Owner, f.repo.Name, f.repo.IssueTrackerURL)
	return f, nil
}

func setDefaults(o *Options) {
	if o.Sort == "" {
		o.Sort = SortDesc
	}
	o.Sort = Sort(strings.ToUpper(string(o.Sort)))
	if o.Format == "" {
		o.Format = DefaultFormat
	}
	if o.Content == "" {
		o.Content = DefaultContent
	}
	if o.CategoryTitleFormat == "" {
		o.CategoryTitleFormat = DefaultCategoryTitleFormat
	}
	if o.Contributors.Format == "" {
		o.Contributors.Format = DefaultContributorFormat
	}
}

// Options returns the effective options after preset merge and defaults.
func (f *Formatter) Options() Options {
	return f.opts
}

// Format runs the pipeline over commits, which arrive newest first. props
// are the release properties templates are resolved against.
func (f *Formatter) Format(ctx context.Context, commits []git.Commit, props template.Props) (*Result, error) {
	parsed := make([]*Commit, 0, len(commits))
	for _, gc := range commits {
		if f.opts.SkipMergeCommits && gc.IsMerge() {
			continue
		}
		parsed = append(parsed, f.enrich(gc))
	}

	contributors := collectContributors(parsed, f.opts.Hide.Contributors)
	kept := f.filter(parsed)
	if f.opts.Sort == SortAsc {
		for i, j := 0, len(kept)-1; i < j; i, j = i+1, j-1 {
			kept[i], kept[j] = kept[j], kept[i]
		}
	}

	shown := f.visible(kept)
	issues := make(map[int]bool)
	for _, c := range shown {
		for _, n := range c.Issues {
			issues[n] = true
		}
	}

	changes, err := f.renderChanges(kept, props)
	if err != nil {
		return nil, err
	}
	thanks, err := f.renderContributors(ctx, contributors, props)
	if err != nil {
		return nil, err
	}

	p := props.Clone()
	p["changelogChanges"] = changes
	p["changelogContributors"] = thanks
	body, err := f.engine.Render(f.opts.Content, p)
	if err != nil {
		return nil, fmt.Errorf("rendering changelog content: %w", err)
	}
	body, err = applyReplacers(f.engine, f.opts.Replacers, body, props)
	if err != nil {
		return nil, err
	}

	return &Result{
		Body:         body,
		Contributors: contributors,
		Issues:       sortedInts(issues),
		Commits:      len(shown),
	}, nil
}

func (f *Formatter) enrich(gc git.Commit) *Commit {
	title, body, _ := strings.Cut(gc.Message, "\n")
	c := &Commit{
		Hash:      gc.Hash,
		ShortHash: gc.ShortHash(),
		Title:     strings.TrimSpace(title),
		Body:      strings.TrimSpace(body),
		Author:    Person{Name: gc.Author.Name, Email: gc.Author.Email},
		Committer: Person{Name: gc.Committer.Name, Email: gc.Committer.Email},
		Time:      gc.Time(),
		Merge:     gc.IsMerge(),
	}
	_, trailers := splitTrailers(strings.Split(c.Body, "\n"))
	c.CoAuthors = parseCoAuthors(trailers)
	if c.Committer.Name != "" && c.Committer.Name != c.Author.Name {
		c.CoAuthors = append(c.CoAuthors, c.Committer)
	}
	if f.parser != nil {
		c.Conventional = f.parser.Parse(gc.Message)
	}
	c.Issues = f.issues.Extract(gc.Message)
	for _, l := range f.labelers {
		l.apply(c)
	}
	return c
}

// filter keeps commits carrying an included label. Exclusions apply only
// when no include labels are configured.
func (f *Formatter) filter(commits []*Commit) []*Commit {
	out := make([]*Commit, 0, len(commits))
	for _, c := range commits {
		switch {
		case len(f.opts.IncludeLabels) > 0:
			if !hasAny(c, f.opts.IncludeLabels) {
				continue
			}
		case hasAny(c, f.opts.ExcludeLabels):
			continue
		}
		out = append(out, c)
	}
	return out
}

func hasAny(c *Commit, labels []string) bool {
	for _, l := range labels {
		if c.HasLabel(l) {
			return true
		}
	}
	return false
}

// categoryOf is the key of the first category sharing a label with c.
func (f *Formatter) categoryOf(c *Commit) string {
	for _, cat := range f.opts.Categories {
		if hasAny(c, cat.Labels) {
			return cat.Key
		}
	}
	return UncategorizedKey
}

func (f *Formatter) categorize(commits []*Commit) map[string][]*Commit {
	out := make(map[string][]*Commit)
	for _, c := range commits {
		key := f.categoryOf(c)
		out[key] = append(out[key], c)
	}
	return out
}

// visible drops commits whose category is hidden; they never reach the body.
func (f *Formatter) visible(commits []*Commit) []*Commit {
	out := make([]*Commit, 0, len(commits))
	for _, c := range commits {
		key := f.categoryOf(c)
		if slices.Contains(f.opts.Hide.Categories, key) ||
			(key == UncategorizedKey && f.opts.Hide.Uncategorized) {
			continue
		}
		out = append(out, c)
	}
	return out
}

func (f *Formatter) renderChanges(commits []*Commit, props template.Props) (string, error) {
	buckets := f.categorize(commits)
	hidden := make(map[string]bool, len(f.opts.Hide.Categories))
	for _, k := range f.opts.Hide.Categories {
		hidden[k] = true
	}

	var sections []string
	for _, cat := range f.opts.Categories {
		entries := buckets[cat.Key]
		if hidden[cat.Key] || len(entries) == 0 {
			continue
		}
		p := props.Clone()
		p["categoryTitle"] = cat.Title
		p["categoryKey"] = cat.Key
		title, err := f.engine.Render(f.opts.CategoryTitleFormat, p)
		if err != nil {
			return "", fmt.Errorf("rendering category %s title: %w", cat.Key, err)
		}
		format := cat.Format
		if format == "" {
			format = f.opts.Format
		}
		lines, err := f.renderEntries(entries, format, props)
		if err != nil {
			return "", err
		}
		sections = append(sections, title+"\n"+lines)
	}

	if entries := buckets[UncategorizedKey]; len(entries) > 0 && !f.opts.Hide.Uncategorized && !hidden[UncategorizedKey] {
		lines, err := f.renderEntries(entries, f.opts.Format, props)
		if err != nil {
			return "", err
		}
		sections = append(sections, "---\n"+lines)
	}
	return strings.Join(sections, "\n"), nil
}

type scopeGroup struct {
	scope   string
	commits []*Commit
}

// renderEntries renders commit lines, grouped under bold scope headers when
// scope grouping is on. Unscoped commits come last and get a header only
// when there is more than one group.
func (f *Formatter) renderEntries(commits []*Commit, format string, props template.Props) (string, error) {
	if !f.opts.GroupByScope {
		return f.renderLines(commits, format, props)
	}

	byScope := make(map[string][]*Commit)
	for _, c := range commits {
		scope := ""
		if c.Conventional != nil {
			scope = c.Conventional.Scope
		}
		byScope[scope] = append(byScope[scope], c)
	}
	groups := make([]scopeGroup, 0, len(byScope))
	for scope, cs := range byScope {
		if scope != "" {
			groups = append(groups, scopeGroup{scope: scope, commits: cs})
		}
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].scope < groups[j].scope })
	if cs, ok := byScope[""]; ok {
		groups = append(groups, scopeGroup{commits: cs})
	}

	var b strings.Builder
	for _, g := range groups {
		switch {
		case g.scope != "":
			b.WriteString("**" + g.scope + "**\n")
		case len(groups) > 1:
			b.WriteString("**unscoped**\n")
		}
		lines, err := f.renderLines(g.commits, format, props)
		if err != nil {
			return "", err
		}
		b.WriteString(lines)
	}
	return b.String(), nil
}

func (f *Formatter) renderLines(commits []*Commit, format string, props template.Props) (string, error) {
	var b strings.Builder
	for _, c := range commits {
		line, err := f.engine.Render(format, f.commitProps(c, props))
		if err != nil {
			return "", fmt.Errorf("rendering commit %s: %w", c.ShortHash, err)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String(), nil
}

func (f *Formatter) commitProps(c *Commit, props template.Props) template.Props {
	p := props.Clone()
	shortHash, title := c.ShortHash, c.Title
	if f.opts.Links {
		if f.repo.URL != "" {
			shortHash = fmt.Sprintf("[%s](%s/commit/%s)", c.ShortHash, strings.TrimSuffix(f.repo.URL, "/"), c.Hash)
		}
		title = f.issues.Link(title)
	}
	labels := append([]string(nil), c.Labels...)
	sort.Strings(labels)

	p["commitShortHash"] = shortHash
	p["commitFullHash"] = c.Hash
	p["commitTitle"] = title
	p["commitBody"] = c.Body
	p["commitAuthor"] = c.Author.Name
	p["commitAuthorEmail"] = c.Author.Email
	p["commitCommitter"] = c.Committer.Name
	p["commitTime"] = c.Time.UTC().Format(time.RFC3339)
	p["commitLabels"] = strings.Join(labels, ",")

	conv := c.Conventional
	if conv == nil {
		conv = &ConventionalCommit{Description: c.Title, Body: c.Body}
	}
	description := conv.Description
	if f.opts.Links {
		description = f.issues.Link(description)
	}
	scope := conv.Scope
	if f.opts.GroupByScope {
		scope = ""
	}
	p["conventionalCommitType"] = conv.Type
	p["conventionalCommitScope"] = scope
	p["conventionalCommitDescription"] = description
	p["conventionalCommitIsBreakingChange"] = conv.Breaking
	p["conventionalCommitBreakingChangeContent"] = conv.BreakingChange
	p["conventionalCommitBody"] = conv.Body
	return p
}

func (f *Formatter) renderContributors(ctx context.Context, contributors []Contributor, props template.Props) (string, error) {
	if !f.opts.Contributors.Enabled || len(contributors) == 0 {
		return "", nil
	}
	format := f.opts.Contributors.Format

	var ids *identityCache
	if f.users != nil && strings.Contains(format, "contributorUsername") {
		ids = newIdentityCache(f.users, f.log)
	}

	names := make([]string, 0, len(contributors))
	for i := range contributors {
		c := &contributors[i]
		if ids != nil {
			ids.resolve(ctx, c)
		}
		p := props.Clone()
		p["contributorName"] = c.Name
		p["contributorEmail"] = ""
		if len(c.Emails) > 0 {
			p["contributorEmail"] = c.Emails[0]
		}
		p["contributorUsername"] = c.Username
		p["contributorUrl"] = c.URL
		p["contributorUsernameAsLink"] = usernameLink(c)
		out, err := f.engine.Render(format, p)
		if err != nil {
			return "", fmt.Errorf("rendering contributor %s: %w", c.Name, err)
		}
		names = append(names, out)
	}

	return "## Contributors\nWe'd like to thank the following people for their contributions:\n" +
		strings.Join(names, ", ") + "\n", nil
}

func usernameLink(c *Contributor) string {
	switch {
	case c.Username == "":
		return ""
	case c.URL == "":
		return "@" + c.Username
	default:
		return fmt.Sprintf("[@%s](%s)", c.Username, c.URL)
	}
}
