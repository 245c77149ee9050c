package version

import (
	"strconv"
	"strings"
	"unicode"
)

type customVersion struct {
	raw    string
	tokens []string
}

func (c customVersion) String() string { return c.raw }

// customScheme accepts any non-empty text. Runs of digits compare
// numerically, other runs compare case-insensitively.
type customScheme struct{}

func (customScheme) Kind() Kind { return Custom }

func (customScheme) Parse(raw string) (Version, error) {
	tokens := tokenize(raw)
	if len(tokens) == 0 {
		return nil, &ParseError{Kind: Custom, Raw: raw, Reason: "empty version"}
	}
	return customVersion{raw: raw, tokens: tokens}, nil
}

func (customScheme) Compare(a, b Version) int {
	return compareTokens(asCustom(a).tokens, asCustom(b).tokens)
}

func (s customScheme) EqualsSpec(a, b Version) bool {
	return s.Compare(a, b) == 0
}

func (customScheme) Default() Version {
	return customVersion{raw: "0", tokens: []string{"0"}}
}

func asCustom(v Version) customVersion {
	c, ok := v.(customVersion)
	if !ok {
		mismatch(Custom, v)
	}
	return c
}

// tokenize splits s into digit and letter runs, dropping separators.
func tokenize(s string) []string {
	var tokens []string
	var cur strings.Builder
	curDigit := false

	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}

	for _, r := range s {
		switch {
		case unicode.IsDigit(r):
			if !curDigit {
				flush()
			}
			curDigit = true
			cur.WriteRune(r)
		case unicode.IsLetter(r):
			if curDigit {
				flush()
			}
			curDigit = false
			cur.WriteRune(r)
		default:
			flush()
		}
	}
	flush()
	return tokens
}

// compareTokens orders numeric tokens above text tokens at the same position;
// when one list is a prefix of the other the longer one is greater.
func compareTokens(a, b []string) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		an, aErr := strconv.Atoi(a[i])
		bn, bErr := strconv.Atoi(b[i])
		switch {
		case aErr == nil && bErr == nil:
			if c := compareInts(an, bn); c != 0 {
				return c
			}
		case aErr == nil:
			return 1
		case bErr == nil:
			return -1
		default:
			if c := strings.Compare(strings.ToLower(a[i]), strings.ToLower(b[i])); c != 0 {
				return c
			}
		}
	}
	return compareInts(len(a), len(b))
}

// compareQualifiers orders pre-release style qualifiers ("beta.2" < "beta.10").
func compareQualifiers(a, b string) int {
	return compareTokens(tokenize(a), tokenize(b))
}
