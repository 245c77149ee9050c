package changelog

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// bareIssue matches "#123" preceded by start of text, whitespace or an
// opening bracket and not followed by a word character.
var bareIssue = regexp.MustCompile(`(^|[\s(\[{,;:])#(\d+)\b`)

// IssueExtractor finds issue references of one repository.
type IssueExtractor struct {
	qualified  *regexp.Regexp
	url        *regexp.Regexp
	trackerURL string
}

// NewIssueExtractor recognizes "owner/repo#N", bare "#N" and full issue URLs
// under trackerURL. Any of owner, repo or trackerURL may be empty.
func NewIssueExtractor(owner, repo, trackerURL string) *IssueExtractor {
	e := &IssueExtractor{trackerURL: strings.TrimSuffix(trackerURL, "/")}
	if owner != "" && repo != "" {
		e.qualified = regexp.MustCompile(`(?:^|[^\w/.-])` + regexp.QuoteMeta(owner+"/"+repo) + `#(\d+)\b`)
	}
	if e.trackerURL != "" {
		e.url = regexp.MustCompile(regexp.QuoteMeta(e.trackerURL) + `/(\d+)\b`)
	}
	return e
}

// Extract returns distinct issue numbers in ascending order.
func (e *IssueExtractor) Extract(text string) []int {
	seen := make(map[int]bool)
	add := func(s string) {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			seen[n] = true
		}
	}

	for _, m := range bareIssue.FindAllStringSubmatch(text, -1) {
		add(m[2])
	}
	if e.qualified != nil {
		for _, m := range e.qualified.FindAllStringSubmatch(text, -1) {
			add(m[1])
		}
	}
	if e.url != nil {
		for _, m := range e.url.FindAllStringSubmatch(text, -1) {
			add(m[1])
		}
	}
	return sortedInts(seen)
}

// Link rewrites bare "#N" references into markdown links to the tracker.
func (e *IssueExtractor) Link(text string) string {
	if e.trackerURL == "" {
		return text
	}
	return bareIssue.ReplaceAllStringFunc(text, func(match string) string {
		m := bareIssue.FindStringSubmatch(match)
		return fmt.Sprintf("%s[#%s](%s/%s)", m[1], m[2], e.trackerURL, m[2])
	})
}

func sortedInts(set map[int]bool) []int {
	out := make([]int, 0, len(set))
	for n := range set {
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}
