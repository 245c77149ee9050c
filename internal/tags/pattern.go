// Package tags resolves which existing tags bound a release: the tag of the
// release being made (if it already exists) and the tag of the release
// before it.
package tags

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ariel-frischer/relsync/internal/template"
)

// VersionPlaceholder is the template variable standing for the version.
const VersionPlaceholder = "projectVersion"

var versionPlaceholder = regexp.MustCompile(`\{\{-?\s*\.?` + VersionPlaceholder + `\s*-?\}\}`)

const versionMarker = "\x00version\x00"

// Pattern is a compiled tag-name template such as "v{{projectVersion}}".
type Pattern struct {
	template   string
	prefix     string
	suffix     string
	hasVersion bool
	regex      *regexp.Regexp
}

// CompilePattern resolves every placeholder except the version against props
// and compiles what remains. At most one version placeholder is allowed.
func CompilePattern(tmpl string, engine *template.Engine, props template.Props) (*Pattern, error) {
	if strings.TrimSpace(tmpl) == "" {
		return nil, fmt.Errorf("tag name template is empty")
	}
	if n := len(versionPlaceholder.FindAllStringIndex(tmpl, -1)); n > 1 {
		return nil, fmt.Errorf("tag name template %q has %d version placeholders, at most one is allowed", tmpl, n)
	}

	marked := versionPlaceholder.ReplaceAllString(tmpl, versionMarker)
	resolved, err := engine.Render(marked, props)
	if err != nil {
		return nil, fmt.Errorf("resolving tag name template: %w", err)
	}

	p := &Pattern{template: tmpl}
	prefix, suffix, found := strings.Cut(resolved, versionMarker)
	if !found {
		p.prefix = resolved
		p.regex = regexp.MustCompile("^" + regexp.QuoteMeta(resolved) + "$")
		return p, nil
	}

	p.prefix, p.suffix, p.hasVersion = prefix, suffix, true
	p.regex = regexp.MustCompile("^" + regexp.QuoteMeta(prefix) + "(.+)" + regexp.QuoteMeta(suffix) + "$")
	return p, nil
}

// Template returns the source template.
func (p *Pattern) Template() string { return p.template }

// HasVersion reports whether the template contains a version placeholder.
func (p *Pattern) HasVersion() bool { return p.hasVersion }

// Glob returns a shell-style glob matching candidate tags ("v*").
func (p *Pattern) Glob() string {
	if !p.hasVersion {
		return p.prefix
	}
	return p.prefix + "*" + p.suffix
}

// Regexp returns the recognition expression; group 1 captures the version.
func (p *Pattern) Regexp() *regexp.Regexp { return p.regex }

// Matches reports whether tag was produced by this template. Without a
// version placeholder every tag is its own version literal and matches.
func (p *Pattern) Matches(tag string) bool {
	if !p.hasVersion {
		return true
	}
	return p.regex.MatchString(tag)
}

// Extract returns the version text embedded in tag.
func (p *Pattern) Extract(tag string) (string, bool) {
	if !p.hasVersion {
		return tag, true
	}
	m := p.regex.FindStringSubmatch(tag)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// Format builds the tag name for version.
func (p *Pattern) Format(version string) string {
	if !p.hasVersion {
		return p.prefix
	}
	return p.prefix + version + p.suffix
}
