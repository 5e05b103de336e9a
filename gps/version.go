package gps

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Version is a parsed, totally ordered semver-style version:
// major.minor.patch[-prerelease][+build]. Prereleases of a given
// major.minor.patch sort below the release of that same triple.
type Version struct {
	sv   *semver.Version
	orig string
}

// ParseVersion parses a tag string as a Version, accepting an optional
// leading "v" prefix (as git tags commonly carry). It returns an error if
// the tag is not semver-shaped at all.
func ParseVersion(tag string) (Version, error) {
	sv, err := semver.NewVersion(strings.TrimSpace(tag))
	if err != nil {
		return Version{}, errWrap(err, "not a semver tag: %q", tag)
	}
	return Version{sv: sv, orig: tag}, nil
}

// Canonical returns the version in normalized major.minor.patch[-pre][+build]
// form, independent of whatever prefix or sparse form the source tag used.
func (v Version) Canonical() string {
	if v.sv == nil {
		return ""
	}
	return v.sv.String()
}

// String returns the canonical form. Equivalent tags (e.g. "v1.1", "1.1.0")
// are always rendered identically so callers can deduplicate by string form.
func (v Version) String() string { return v.Canonical() }

// IsPrerelease reports whether this version carries a prerelease component.
func (v Version) IsPrerelease() bool {
	return v.sv != nil && v.sv.Prerelease() != ""
}

// Compare returns -1, 0, or 1 if v is less than, equal to, or greater than o,
// under total semver order with prereleases sorting below the release of the
// same major.minor.patch.
func (v Version) Compare(o Version) int {
	return v.sv.Compare(o.sv)
}

// Equal reports whether v and o denote the same canonical version, even if
// their original tag spellings differed (e.g. "1.1" and "1.1.0").
func (v Version) Equal(o Version) bool {
	return v.sv != nil && o.sv != nil && v.sv.Equal(o.sv)
}

// SortDescending sorts versions from highest to lowest, using total semver
// order (prereleases below the release of the same triple).
func SortDescending(vs []Version) {
	sort.Slice(vs, func(i, j int) bool { return vs[i].Compare(vs[j]) > 0 })
}

// ToolsVersion is a {major, minor, patch} triple declaring which
// language/toolchain features a manifest's syntax relies on.
type ToolsVersion struct {
	Major, Minor, Patch int
}

// Compare returns -1, 0, or 1 comparing t to o lexicographically by
// (major, minor, patch).
func (t ToolsVersion) Compare(o ToolsVersion) int {
	if t.Major != o.Major {
		return cmpInt(t.Major, o.Major)
	}
	if t.Minor != o.Minor {
		return cmpInt(t.Minor, o.Minor)
	}
	return cmpInt(t.Patch, o.Patch)
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func (t ToolsVersion) String() string {
	return fmt.Sprintf("%d.%d.%d", t.Major, t.Minor, t.Patch)
}

// MinimumSupportedToolsVersion is the lowest tools-version this workspace
// will read a manifest under.
var MinimumSupportedToolsVersion = ToolsVersion{Major: 3, Minor: 0, Patch: 0}

// CurrentToolsVersion is the tools-version of the toolchain driving this
// workspace. It is the default ceiling used by a ContainerProvider unless
// overridden (see ContainerProviderOptions).
var CurrentToolsVersion = ToolsVersion{Major: 5, Minor: 9, Patch: 0}

// ToolsVersionAdmitted reports whether a manifest declaring tools-version t
// is readable given a ceiling current. Admission is monotonic: if t is
// admitted under some ceiling, it is admitted under every higher ceiling.
func ToolsVersionAdmitted(t, current ToolsVersion) bool {
	return t.Compare(current) <= 0 && t.Compare(MinimumSupportedToolsVersion) >= 0
}
