package tags

import (
	"sort"

	"github.com/ariel-frischer/relsync/internal/git"
	"github.com/ariel-frischer/relsync/internal/version"
	"github.com/rs/zerolog"
)

// Request describes the release whose boundaries are being resolved.
type Request struct {
	Pattern *Pattern
	Scheme  version.Scheme
	// CurrentVersion is the raw project version.
	CurrentVersion string
	// PreviousTag pins the previous boundary by name when set.
	PreviousTag string
	// Snapshot marks a pre-release build published under SnapshotLabel.
	Snapshot      bool
	SnapshotLabel string
	// FullChangelog widens a snapshot changelog back to the last release
	// instead of the last snapshot.
	FullChangelog bool
}

// EffectiveTag is the tag name the release will be published under.
func (r Request) EffectiveTag() string {
	if r.Snapshot && r.SnapshotLabel != "" {
		return r.SnapshotLabel
	}
	return r.Pattern.Format(r.CurrentVersion)
}

// Resolution holds the boundary tags. Either may be nil; absence is a valid
// outcome (first release, in-progress release).
type Resolution struct {
	EffectiveTag string
	Current      *git.Tag
	Previous     *git.Tag
}

// Resolver picks the current and previous tags. A Resolver remembers which
// unparsable tags it already warned about; use one per release run.
type Resolver struct {
	log    zerolog.Logger
	warned map[string]bool
}

// NewResolver returns a resolver that reports unparsable tags to log.
func NewResolver(log zerolog.Logger) *Resolver {
	return &Resolver{log: log}
}

type candidate struct {
	tag     git.Tag
	version version.Version
	matches bool
	// defaulted is set when the tag's version fell back to the sentinel.
	defaulted bool
}

// Resolve never fails: ambiguity yields nil boundaries.
func (r *Resolver) Resolve(tags []git.Tag, req Request) Resolution {
	r.warned = make(map[string]bool)

	effective := req.EffectiveTag()
	res := Resolution{EffectiveTag: effective}
	sorted := r.sortDescending(tags, req)
	current := r.parseVersion(req.Scheme, req.CurrentVersion, "")

	res.Current = findByName(sorted, effective)

	if req.PreviousTag != "" {
		if prev := findByName(sorted, req.PreviousTag); prev != nil {
			res.Previous = prev
			if req.Snapshot && effective == req.SnapshotLabel {
				res.Current = nil
			}
			return res
		}
		r.log.Warn().Str("tag", req.PreviousTag).Msg("declared previous tag not found, resolving automatically")
	}

	if req.Snapshot && effective == req.SnapshotLabel {
		res.Previous = r.snapshotPrevious(sorted, req, current, res.Current)
		// The snapshot tag moves on every run; the range always ends at HEAD.
		res.Current = nil
		return res
	}

	if res.Current == nil {
		if prev := earliestOf(sorted, req.Scheme, func(c candidate) bool {
			return r.isRelease(c, effective) && req.Scheme.EqualsSpec(c.version, current)
		}); prev != nil {
			res.Previous = prev
			return res
		}
	}

	res.Previous = r.newestBelow(sorted, req.Scheme, effective, current)
	return res
}

// snapshotPrevious implements the snapshot boundary rules. Without a full
// changelog the previous snapshot tag wins; otherwise the last release with
// the same version (or below it), whichever of that and the previous
// snapshot tag is older.
func (r *Resolver) snapshotPrevious(sorted []candidate, req Request, current version.Version, snapshotTag *git.Tag) *git.Tag {
	effective := req.EffectiveTag()

	if !req.FullChangelog {
		if snapshotTag != nil {
			return snapshotTag
		}
		return r.newestBelow(sorted, req.Scheme, effective, current)
	}

	release := earliestOf(sorted, req.Scheme, func(c candidate) bool {
		return r.isRelease(c, effective) && req.Scheme.EqualsSpec(c.version, current)
	})
	if release == nil {
		release = r.newestBelow(sorted, req.Scheme, effective, current)
	}

	switch {
	case release != nil && snapshotTag != nil:
		if snapshotTag.Time.Before(release.Time) {
			return snapshotTag
		}
		return release
	case release != nil:
		return release
	default:
		return snapshotTag
	}
}

// newestBelow returns the first release tag in descending order whose
// version is strictly lower than current. When current itself is the
// sentinel every release tag qualifies.
func (r *Resolver) newestBelow(sorted []candidate, scheme version.Scheme, effective string, current version.Version) *git.Tag {
	currentDefaulted := version.IsDefault(scheme, current)
	return earliestOf(sorted, scheme, func(c candidate) bool {
		return r.isRelease(c, effective) && (currentDefaulted || scheme.Compare(c.version, current) < 0)
	})
}

// isRelease filters tags eligible as a previous boundary.
func (r *Resolver) isRelease(c candidate, effective string) bool {
	return c.matches && !c.defaulted && c.tag.Name != effective
}

// sortDescending parses every tag and orders by version (newest first), then
// commit time (oldest first), then name.
func (r *Resolver) sortDescending(tags []git.Tag, req Request) []candidate {
	out := make([]candidate, 0, len(tags))
	for _, t := range tags {
		c := candidate{tag: t}
		if raw, ok := req.Pattern.Extract(t.Name); ok && req.Pattern.Matches(t.Name) {
			c.matches = true
			c.version = r.parseVersion(req.Scheme, raw, t.Name)
			c.defaulted = c.version == nil || version.IsDefault(req.Scheme, c.version)
		} else {
			c.defaulted = true
		}
		if c.version == nil {
			c.version = req.Scheme.Default()
		}
		out = append(out, c)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if cmp := req.Scheme.Compare(out[i].version, out[j].version); cmp != 0 {
			return cmp > 0
		}
		if !out[i].tag.Time.Equal(out[j].tag.Time) {
			return out[i].tag.Time.Before(out[j].tag.Time)
		}
		return out[i].tag.Name < out[j].tag.Name
	})
	return out
}

// parseVersion returns nil for unparsable tag versions after warning once
// per tag. For the project version (tag == "") it substitutes the default.
func (r *Resolver) parseVersion(scheme version.Scheme, raw, tag string) version.Version {
	v, err := scheme.Parse(raw)
	if err == nil {
		return v
	}

	key := tag
	if key == "" {
		key = "version " + raw
	}
	if !r.warned[key] {
		r.warned[key] = true
		ev := r.log.Warn().Err(err).Str("scheme", string(scheme.Kind()))
		if tag != "" {
			ev = ev.Str("tag", tag)
		}
		ev.Msg("unparsable version, using default")
	}

	if tag == "" {
		return scheme.Default()
	}
	return nil
}

func findByName(sorted []candidate, name string) *git.Tag {
	return firstWhere(sorted, func(c candidate) bool { return c.tag.Name == name })
}

// earliestOf returns the first candidate matching pred, preferring among the
// matching candidates of the same release (EqualsSpec) the one whose commit
// is oldest.
func earliestOf(sorted []candidate, scheme version.Scheme, pred func(candidate) bool) *git.Tag {
	best := -1
	for i := range sorted {
		switch {
		case !pred(sorted[i]):
		case best < 0:
			best = i
		case scheme.EqualsSpec(sorted[i].version, sorted[best].version) &&
			sorted[i].tag.Time.Before(sorted[best].tag.Time):
			best = i
		}
	}
	if best < 0 {
		return nil
	}
	t := sorted[best].tag
	return &t
}

func firstWhere(sorted []candidate, pred func(candidate) bool) *git.Tag {
	for i := range sorted {
		if pred(sorted[i]) {
			t := sorted[i].tag
			return &t
		}
	}
	return nil
}
