package version

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// calver component slots, in comparison order.
const (
	calYear = iota
	calMonth
	calWeek
	calDay
	calMinor
	calMicro
	calSlots
)

type calverToken struct {
	name    string
	slot    int
	pattern string
}

// Longest tokens first so "YYYY" wins over "YY".
var calverTokens = []calverToken{
	{"YYYY", calYear, `\d{4}`},
	{"MODIFIER", -1, `[A-Za-z0-9][A-Za-z0-9.]*`},
	{"MINOR", calMinor, `0|[1-9]\d*`},
	{"MICRO", calMicro, `0|[1-9]\d*`},
	{"YY", calYear, `[1-9]\d{0,2}|0`},
	{"0Y", calYear, `\d{2,3}`},
	{"MM", calMonth, `1[0-2]|[1-9]`},
	{"0M", calMonth, `0[1-9]|1[0-2]`},
	{"WW", calWeek, `[1-4]\d|5[0-3]|[1-9]`},
	{"0W", calWeek, `0[1-9]|[1-4]\d|5[0-3]`},
	{"DD", calDay, `3[01]|[12]\d|[1-9]`},
	{"0D", calDay, `0[1-9]|[12]\d|3[01]`},
}

type calverVersion struct {
	raw      string
	parts    [calSlots]int
	modifier string
}

func (c calverVersion) String() string { return c.raw }

// CalVerScheme parses calendar versions against a format such as
// "YYYY.0M.MICRO" or "YY.MM.DD-MODIFIER".
type CalVerScheme struct {
	format  string
	pattern *regexp.Regexp
	slots   []int // capture group index -> slot (-1 for modifier)
}

// NewCalVer compiles format into a CALVER scheme.
func NewCalVer(format string) (*CalVerScheme, error) {
	if strings.TrimSpace(format) == "" {
		return nil, fmt.Errorf("calver format is required")
	}

	var expr strings.Builder
	var slots []int
	seen := make(map[int]bool)
	hasModifier := false

	expr.WriteString("^")
	rest := format
	for len(rest) > 0 {
		tok, ok := matchCalverToken(rest)
		if !ok {
			expr.WriteString(regexp.QuoteMeta(rest[:1]))
			rest = rest[1:]
			continue
		}
		if tok.slot >= 0 {
			if seen[tok.slot] {
				return nil, fmt.Errorf("calver format %q repeats %s", format, tok.name)
			}
			seen[tok.slot] = true
		} else {
			hasModifier = true
		}
		expr.WriteString("(" + tok.pattern + ")")
		slots = append(slots, tok.slot)
		rest = rest[len(tok.name):]
	}
	if !seen[calYear] {
		return nil, fmt.Errorf("calver format %q has no year token", format)
	}
	if !hasModifier {
		expr.WriteString(`(?:[-.]([A-Za-z0-9][A-Za-z0-9.]*))?`)
		slots = append(slots, -1)
	}
	expr.WriteString("$")

	return &CalVerScheme{
		format:  format,
		pattern: regexp.MustCompile(expr.String()),
		slots:   slots,
	}, nil
}

func matchCalverToken(s string) (calverToken, bool) {
	for _, tok := range calverTokens {
		if strings.HasPrefix(s, tok.name) {
			return tok, true
		}
	}
	return calverToken{}, false
}

func (*CalVerScheme) Kind() Kind { return CalVer }

// Format returns the layout the scheme was built from.
func (c *CalVerScheme) Format() string { return c.format }

func (c *CalVerScheme) Parse(raw string) (Version, error) {
	m := c.pattern.FindStringSubmatch(raw)
	if m == nil {
		return nil, &ParseError{Kind: CalVer, Raw: raw, Reason: "does not match format " + c.format}
	}

	v := calverVersion{raw: raw}
	for i, slot := range c.slots {
		val := m[i+1]
		if slot < 0 {
			v.modifier = val
			continue
		}
		n, err := strconv.Atoi(val)
		if err != nil {
			return nil, &ParseError{Kind: CalVer, Raw: raw, Reason: err.Error()}
		}
		v.parts[slot] = n
	}
	return v, nil
}

// Compare orders by year, month, week, day, minor, micro; a version without
// modifier sorts after the same version with one.
func (*CalVerScheme) Compare(a, b Version) int {
	x, y := asCalver(a), asCalver(b)
	for i := 0; i < calSlots; i++ {
		if c := compareInts(x.parts[i], y.parts[i]); c != 0 {
			return c
		}
	}
	switch {
	case x.modifier == y.modifier:
		return 0
	case x.modifier == "":
		return 1
	case y.modifier == "":
		return -1
	default:
		return compareQualifiers(x.modifier, y.modifier)
	}
}

func (c *CalVerScheme) EqualsSpec(a, b Version) bool {
	return c.Compare(a, b) == 0
}

func (*CalVerScheme) Default() Version {
	return calverVersion{raw: "0"}
}

func asCalver(v Version) calverVersion {
	c, ok := v.(calverVersion)
	if !ok {
		mismatch(CalVer, v)
	}
	return c
}
