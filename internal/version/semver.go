package version

import (
	"github.com/Masterminds/semver/v3"
)

type semverVersion struct {
	v *semver.Version
}

func (s semverVersion) String() string {
	return s.v.Original()
}

// semverScheme orders major.minor.patch[-pre][+build] versions. Partial
// versions ("1.2") and a leading "v" are accepted.
type semverScheme struct{}

var defaultSemver = semverVersion{v: semver.New(0, 0, 0, "", "")}

func (semverScheme) Kind() Kind { return SemVer }

func (semverScheme) Parse(raw string) (Version, error) {
	v, err := semver.NewVersion(raw)
	if err != nil {
		return nil, &ParseError{Kind: SemVer, Raw: raw, Reason: err.Error()}
	}
	return semverVersion{v: v}, nil
}

func (semverScheme) Compare(a, b Version) int {
	return asSemver(a).v.Compare(asSemver(b).v)
}

// EqualsSpec ignores build metadata, which semver precedence already does.
func (s semverScheme) EqualsSpec(a, b Version) bool {
	return s.Compare(a, b) == 0
}

func (semverScheme) Default() Version { return defaultSemver }

func asSemver(v Version) semverVersion {
	s, ok := v.(semverVersion)
	if !ok {
		mismatch(SemVer, v)
	}
	return s
}
