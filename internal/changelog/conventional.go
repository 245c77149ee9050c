package changelog

import (
	"regexp"
	"strings"

	cc "github.com/leodido/go-conventionalcommits"
	"github.com/leodido/go-conventionalcommits/parser"
)

// ConventionalCommit is a commit message following
// "type(scope)!: description", optionally with a body and trailers.
type ConventionalCommit struct {
	Type        string
	Scope       string
	Description string
	Breaking    bool
	// BreakingChange is the content of a "BREAKING CHANGE:" trailer.
	BreakingChange string
	Body           string
	Trailers       []Trailer
}

var trailerLine = regexp.MustCompile(`^(BREAKING[ -]CHANGE|[A-Za-z][A-Za-z0-9-]*)(?:: | #)(.*)$`)

// ConventionalParser parses commit messages. It is not safe for concurrent
// use.
type ConventionalParser struct {
	machine cc.Machine
}

// NewConventionalParser accepts any commit type.
func NewConventionalParser() *ConventionalParser {
	return &ConventionalParser{
		machine: parser.NewMachine(cc.WithTypes(cc.TypesFreeForm)),
	}
}

// Parse returns nil when the header does not follow the grammar.
func (p *ConventionalParser) Parse(message string) *ConventionalCommit {
	lines := strings.Split(strings.ReplaceAll(message, "\r\n", "\n"), "\n")
	header := strings.TrimSpace(lines[0])
	if header == "" {
		return nil
	}

	msg, err := p.machine.Parse([]byte(header))
	if err != nil || msg == nil {
		return nil
	}
	parsed, ok := msg.(*cc.ConventionalCommit)
	if !ok || parsed.Type == "" || strings.TrimSpace(parsed.Description) == "" {
		return nil
	}

	out := &ConventionalCommit{
		Type:        parsed.Type,
		Description: strings.TrimSpace(parsed.Description),
		Breaking:    parsed.Exclamation,
	}
	if parsed.Scope != nil {
		out.Scope = *parsed.Scope
	}

	body, trailers := splitTrailers(lines[1:])
	out.Body = body
	for _, t := range trailers {
		if isBreakingKey(t.Key) {
			out.Breaking = true
			out.BreakingChange = t.Value
			continue
		}
		out.Trailers = append(out.Trailers, t)
	}
	return out
}

// splitTrailers consumes trailer lines from the end of the message backwards
// until the first line that is not a trailer.
func splitTrailers(lines []string) (string, []Trailer) {
	end := len(lines)
	for end > 0 && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}
	start := end
	for start > 0 && trailerLine.MatchString(lines[start-1]) {
		start--
	}

	trailers := make([]Trailer, 0, end-start)
	for _, line := range lines[start:end] {
		m := trailerLine.FindStringSubmatch(line)
		trailers = append(trailers, Trailer{Key: m[1], Value: strings.TrimSpace(m[2])})
	}
	return strings.TrimSpace(strings.Join(lines[:start], "\n")), trailers
}

func isBreakingKey(key string) bool {
	return key == "BREAKING CHANGE" || key == "BREAKING-CHANGE"
}

// Header renders the first line of the message.
func (c *ConventionalCommit) Header() string {
	var b strings.Builder
	b.WriteString(c.Type)
	if c.Scope != "" {
		b.WriteString("(" + c.Scope + ")")
	}
	if c.Breaking && c.BreakingChange == "" {
		b.WriteString("!")
	}
	b.WriteString(": ")
	b.WriteString(c.Description)
	return b.String()
}

// String serializes the commit back into a message that parses to the same
// type, scope, description, breaking flag and trailers.
func (c *ConventionalCommit) String() string {
	parts := []string{c.Header()}
	if c.Body != "" {
		parts = append(parts, c.Body)
	}
	var footer []string
	for _, t := range c.Trailers {
		footer = append(footer, t.Key+": "+t.Value)
	}
	if c.BreakingChange != "" {
		footer = append(footer, "BREAKING CHANGE: "+c.BreakingChange)
	}
	if len(footer) > 0 {
		parts = append(parts, strings.Join(footer, "\n"))
	}
	return strings.Join(parts, "\n\n")
}

// Trailer returns the values of every trailer with the given key,
// case-insensitively.
func (c *ConventionalCommit) Trailer(key string) []string {
	var out []string
	for _, t := range c.Trailers {
		if strings.EqualFold(t.Key, key) {
			out = append(out, t.Value)
		}
	}
	return out
}
