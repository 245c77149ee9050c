package changelog

import (
	"fmt"
	"regexp"
	"strings"
)

const regexPrefix = "regex:"

// matcher tests a literal substring. In a plain pattern every character is
// literal except "*", which matches any run of characters. A "regex:" prefix
// switches to a regular expression.
type matcher struct {
	literal string
	re      *regexp.Regexp
}

func compileMatcher(pattern string) (*matcher, error) {
	if pattern == "" {
		return nil, nil
	}
	if expr, ok := strings.CutPrefix(pattern, regexPrefix); ok {
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("compiling %q: %w", pattern, err)
		}
		return &matcher{re: re}, nil
	}
	if !strings.Contains(pattern, "*") {
		return &matcher{literal: pattern}, nil
	}
	parts := strings.Split(pattern, "*")
	for i, part := range parts {
		parts[i] = regexp.QuoteMeta(part)
	}
	return &matcher{re: regexp.MustCompile(strings.Join(parts, ".*"))}, nil
}

func (m *matcher) match(s string) bool {
	switch {
	case m == nil:
		return false
	case m.re != nil:
		return m.re.MatchString(s)
	default:
		return strings.Contains(s, m.literal)
	}
}

type labeler struct {
	label       string
	title       *matcher
	body        *matcher
	contributor *matcher
}

func compileLabelers(in []Labeler) ([]labeler, error) {
	out := make([]labeler, 0, len(in))
	for i, l := range in {
		if l.Label == "" {
			return nil, &ValidationError{Field: fmt.Sprintf("labelers[%d].label", i), Message: "required field is empty"}
		}
		c := labeler{label: l.Label}
		var err error
		if c.title, err = compileMatcher(l.Title); err != nil {
			return nil, &ValidationError{Field: fmt.Sprintf("labelers[%d].title", i), Message: err.Error()}
		}
		if c.body, err = compileMatcher(l.Body); err != nil {
			return nil, &ValidationError{Field: fmt.Sprintf("labelers[%d].body", i), Message: err.Error()}
		}
		if c.contributor, err = compileMatcher(l.Contributor); err != nil {
			return nil, &ValidationError{Field: fmt.Sprintf("labelers[%d].contributor", i), Message: err.Error()}
		}
		out = append(out, c)
	}
	return out, nil
}

// apply labels c when any configured matcher hits.
func (l labeler) apply(c *Commit) {
	if l.title.match(c.Title) || l.body.match(c.Body) || l.matchContributor(c) {
		c.addLabel(l.label)
	}
}

func (l labeler) matchContributor(c *Commit) bool {
	if l.contributor == nil {
		return false
	}
	people := append([]Person{c.Author}, c.CoAuthors...)
	for _, p := range people {
		if l.contributor.match(p.Name) || l.contributor.match(p.Email) {
			return true
		}
	}
	return false
}
