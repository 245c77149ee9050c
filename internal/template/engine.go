// Package template resolves "{{name}}" placeholders in user supplied
// templates (tag names, release names, changelog formats, comments) against a
// property map. Bare placeholders are rewritten to Go template field lookups,
// so full text/template syntax and the sprig function library stay available.
package template

import (
	"bytes"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

// Props is the property map a template is resolved against.
type Props map[string]any

// Clone returns a shallow copy so callers can add keys without mutating the
// original.
func (p Props) Clone() Props {
	out := make(Props, len(p)+4)
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Engine renders templates.
type Engine struct {
	// Pattern to match template variables like {{ variableName }}
	templatePattern *regexp.Regexp
	funcs           template.FuncMap
}

// New creates a new template engine
func New() *Engine {
	return &Engine{
		templatePattern: regexp.MustCompile(`\{\{(-?)\s*\.?([a-zA-Z_][a-zA-Z0-9_]*)\s*(-?)\}\}`),
		funcs:           sprig.TxtFuncMap(),
	}
}

// Render resolves text against props. Placeholders that name neither a
// property nor a template keyword or function are reported as an error.
func (e *Engine) Render(text string, props Props) (string, error) {
	if !strings.Contains(text, "{{") {
		return text, nil
	}

	normalized, missing := e.normalize(text, props)
	if len(missing) > 0 {
		return "", fmt.Errorf("missing template variables: %s", strings.Join(missing, ", "))
	}

	tmpl, err := template.New("relsync").Funcs(e.funcs).Option("missingkey=error").Parse(normalized)
	if err != nil {
		return "", fmt.Errorf("parsing template %q: %w", text, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, map[string]any(props)); err != nil {
		return "", fmt.Errorf("rendering template %q: %w", text, err)
	}
	return buf.String(), nil
}

// References reports whether text mentions the named variable.
func (e *Engine) References(text, name string) bool {
	for _, v := range e.Variables(text) {
		if v == name {
			return true
		}
	}
	return false
}

// Variables extracts all simple template variable names from text, sorted.
func (e *Engine) Variables(text string) []string {
	seen := make(map[string]bool)
	for _, m := range e.templatePattern.FindAllStringSubmatch(text, -1) {
		seen[m[2]] = true
	}
	out := make([]string, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

var keywords = map[string]bool{
	"end": true, "else": true, "nil": true, "true": true, "false": true,
	"break": true, "continue": true,
}

// normalize rewrites "{{name}}" and "{{ .name }}" for known properties to
// "{{.name}}" and collects bare names that resolve to nothing.
func (e *Engine) normalize(text string, props Props) (string, []string) {
	var missing []string
	seen := make(map[string]bool)

	out := e.templatePattern.ReplaceAllStringFunc(text, func(match string) string {
		m := e.templatePattern.FindStringSubmatch(match)
		name := m[2]
		if _, ok := props[name]; ok {
			return "{{" + m[1] + " ." + name + " " + m[3] + "}}"
		}
		if keywords[name] || e.funcs[name] != nil {
			return match
		}
		if !seen[name] {
			seen[name] = true
			missing = append(missing, name)
		}
		return match
	})
	return out, missing
}
