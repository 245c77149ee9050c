// Package version implements the versioning schemes a project can declare:
// semantic, calendar, Java runtime, Java module and custom versions.
//
// Every scheme parses raw version text into a comparable Version, decides
// whether two versions denote the same release (EqualsSpec), and provides a
// default sentinel used when a tag cannot be parsed.
package version

import (
	"fmt"
	"strings"
)

// Kind names a versioning scheme.
type Kind string

const (
	SemVer      Kind = "SEMVER"
	CalVer      Kind = "CALVER"
	JavaRuntime Kind = "JAVA_RUNTIME"
	JavaModule  Kind = "JAVA_MODULE"
	Custom      Kind = "CUSTOM"
)

// Kinds lists every supported scheme in declaration order.
func Kinds() []Kind {
	return []Kind{SemVer, CalVer, JavaRuntime, JavaModule, Custom}
}

// Version is a parsed version value. Versions are only comparable through the
// Scheme that produced them.
type Version interface {
	String() string
}

// Scheme parses and orders versions of one kind.
type Scheme interface {
	Kind() Kind
	// Parse fails with a *ParseError when raw does not follow the scheme.
	Parse(raw string) (Version, error)
	// Compare returns -1, 0 or +1.
	Compare(a, b Version) int
	// EqualsSpec reports whether a and b denote the same release, ignoring
	// build metadata.
	EqualsSpec(a, b Version) bool
	// Default is the sentinel substituted for unparsable input.
	Default() Version
}

// ParseError reports version text the scheme does not understand.
type ParseError struct {
	Kind   Kind
	Raw    string
	Reason string
}

func (e *ParseError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("invalid %s version %q", e.Kind, e.Raw)
	}
	return fmt.Sprintf("invalid %s version %q: %s", e.Kind, e.Raw, e.Reason)
}

// Options configures scheme construction.
type Options struct {
	// Format is the CALVER layout (e.g. "YYYY.0M.MICRO"). Required for CALVER.
	Format string
}

// New returns the scheme registered for kind.
func New(kind Kind, opts Options) (Scheme, error) {
	switch Kind(strings.ToUpper(string(kind))) {
	case SemVer, "":
		return semverScheme{}, nil
	case CalVer:
		s, err := NewCalVer(opts.Format)
		if err != nil {
			return nil, err
		}
		return s, nil
	case JavaRuntime:
		return javaRuntimeScheme{}, nil
	case JavaModule:
		return javaModuleScheme{}, nil
	case Custom:
		return customScheme{}, nil
	default:
		return nil, fmt.Errorf("unknown versioning scheme %q", kind)
	}
}

// IsDefault reports whether v orders equal to the scheme's sentinel.
func IsDefault(s Scheme, v Version) bool {
	return v != nil && s.Compare(v, s.Default()) == 0
}

// compareInts orders two integers.
func compareInts(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// mismatch panics when a Version from another scheme reaches Compare.
// Mixing schemes is a programming error, not input-driven.
func mismatch(kind Kind, v Version) {
	panic(fmt.Sprintf("version: %s scheme cannot compare %T", kind, v))
}
