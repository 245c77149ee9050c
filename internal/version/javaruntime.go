package version

import (
	"regexp"
	"strconv"
	"strings"
)

// feature[.interim[.update[.patch...]]][-pre][+build][-optional]
var javaRuntimePattern = regexp.MustCompile(
	`^([1-9]\d*(?:\.(?:0|[1-9]\d*))*)` +
		`(?:-([a-zA-Z0-9]+))?` +
		`(?:(\+)(0|[1-9]\d*)?)?` +
		`(?:-([-a-zA-Z0-9.]+))?$`)

type javaRuntimeVersion struct {
	raw      string
	sequence []int
	pre      string
	build    int
	hasBuild bool
	optional string
}

func (j javaRuntimeVersion) String() string { return j.raw }

type javaRuntimeScheme struct{}

func (javaRuntimeScheme) Kind() Kind { return JavaRuntime }

func (javaRuntimeScheme) Parse(raw string) (Version, error) {
	m := javaRuntimePattern.FindStringSubmatch(raw)
	if m == nil {
		return nil, &ParseError{Kind: JavaRuntime, Raw: raw}
	}
	// An optional suffix is only legal after a '+' separator.
	if m[5] != "" && m[3] == "" {
		return nil, &ParseError{Kind: JavaRuntime, Raw: raw, Reason: "optional information requires '+'"}
	}

	v := javaRuntimeVersion{raw: raw, pre: m[2], optional: m[5]}
	for _, part := range strings.Split(m[1], ".") {
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, &ParseError{Kind: JavaRuntime, Raw: raw, Reason: err.Error()}
		}
		v.sequence = append(v.sequence, n)
	}
	if m[4] != "" {
		build, err := strconv.Atoi(m[4])
		if err != nil {
			return nil, &ParseError{Kind: JavaRuntime, Raw: raw, Reason: err.Error()}
		}
		v.build, v.hasBuild = build, true
	}
	return v, nil
}

func (s javaRuntimeScheme) Compare(a, b Version) int {
	x, y := asJavaRuntime(a), asJavaRuntime(b)
	if c := s.compareRelease(x, y); c != 0 {
		return c
	}
	switch {
	case x.hasBuild != y.hasBuild:
		if x.hasBuild {
			return 1
		}
		return -1
	case x.build != y.build:
		return compareInts(x.build, y.build)
	}
	switch {
	case x.optional == y.optional:
		return 0
	case x.optional == "":
		return -1
	case y.optional == "":
		return 1
	default:
		return strings.Compare(x.optional, y.optional)
	}
}

// compareRelease compares the version sequence and pre-release only.
func (javaRuntimeScheme) compareRelease(x, y javaRuntimeVersion) int {
	if c := compareSequences(x.sequence, y.sequence); c != 0 {
		return c
	}
	switch {
	case x.pre == y.pre:
		return 0
	case x.pre == "":
		return 1
	case y.pre == "":
		return -1
	default:
		return compareQualifiers(x.pre, y.pre)
	}
}

// EqualsSpec ignores build number and optional information.
func (s javaRuntimeScheme) EqualsSpec(a, b Version) bool {
	return s.compareRelease(asJavaRuntime(a), asJavaRuntime(b)) == 0
}

func (javaRuntimeScheme) Default() Version {
	return javaRuntimeVersion{raw: "0", sequence: []int{0}}
}

// compareSequences compares element-wise; when one is a prefix of the other
// the longer sequence is greater.
func compareSequences(a, b []int) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if c := compareInts(a[i], b[i]); c != 0 {
			return c
		}
	}
	return compareInts(len(a), len(b))
}

func asJavaRuntime(v Version) javaRuntimeVersion {
	j, ok := v.(javaRuntimeVersion)
	if !ok {
		mismatch(JavaRuntime, v)
	}
	return j
}
