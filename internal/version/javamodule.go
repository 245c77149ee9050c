package version

import (
	"regexp"
	"strconv"
	"strings"
)

var javaModulePattern = regexp.MustCompile(`^(\d+(?:\.\d+)*)(?:[-.]?([A-Za-z0-9][^+]*?))?(?:\+(.+))?$`)

type javaModuleVersion struct {
	raw       string
	sequence  []int
	qualifier string
	build     string
}

func (j javaModuleVersion) String() string { return j.raw }

// javaModuleScheme handles dotted numeric versions followed by a free-form
// qualifier ("1.2.3-beta.1", "2.0.Final") and optional "+build".
type javaModuleScheme struct{}

func (javaModuleScheme) Kind() Kind { return JavaModule }

func (javaModuleScheme) Parse(raw string) (Version, error) {
	m := javaModulePattern.FindStringSubmatch(raw)
	if m == nil {
		return nil, &ParseError{Kind: JavaModule, Raw: raw}
	}
	v := javaModuleVersion{raw: raw, qualifier: m[2], build: m[3]}
	for _, part := range strings.Split(m[1], ".") {
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, &ParseError{Kind: JavaModule, Raw: raw, Reason: err.Error()}
		}
		v.sequence = append(v.sequence, n)
	}
	return v, nil
}

func (s javaModuleScheme) Compare(a, b Version) int {
	x, y := asJavaModule(a), asJavaModule(b)
	if c := s.compareRelease(x, y); c != 0 {
		return c
	}
	switch {
	case x.build == y.build:
		return 0
	case x.build == "":
		return -1
	case y.build == "":
		return 1
	default:
		return compareQualifiers(x.build, y.build)
	}
}

func (javaModuleScheme) compareRelease(x, y javaModuleVersion) int {
	if c := compareSequences(trimZeros(x.sequence), trimZeros(y.sequence)); c != 0 {
		return c
	}
	switch {
	case x.qualifier == y.qualifier:
		return 0
	case x.qualifier == "":
		return 1
	case y.qualifier == "":
		return -1
	default:
		return compareQualifiers(x.qualifier, y.qualifier)
	}
}

// EqualsSpec ignores the build suffix.
func (s javaModuleScheme) EqualsSpec(a, b Version) bool {
	return s.compareRelease(asJavaModule(a), asJavaModule(b)) == 0
}

func (javaModuleScheme) Default() Version {
	return javaModuleVersion{raw: "0", sequence: []int{0}}
}

// trimZeros drops trailing zero components so "1.0" and "1.0.0" compare equal.
func trimZeros(seq []int) []int {
	n := len(seq)
	for n > 1 && seq[n-1] == 0 {
		n--
	}
	return seq[:n]
}

func asJavaModule(v Version) javaModuleVersion {
	j, ok := v.(javaModuleVersion)
	if !ok {
		mismatch(JavaModule, v)
	}
	return j
}
