// Package semver implements version parsing and range arithmetic for
// orbitpkg's resolver. Version comparison and strict parsing delegate
// to github.com/Masterminds/semver/v3 (the library golang-dep's
// constraints.go already builds on); range construction, union
// semantics, and the pre-1.0 compatibility exception are orbitpkg's
// own, because the domain spec's comma-as-union behavior is the
// opposite of that library's comma-as-intersection constraint syntax.
package semver

import (
	"fmt"

	mmsemver "github.com/Masterminds/semver/v3"
	"github.com/pkg/errors"
)

// Version is a parsed (major, minor, patch, prerelease, build) tuple
// with standard semver precedence.
type Version struct {
	sv *mmsemver.Version
}

// Parse performs strict semver parsing: no leading zeros, no missing
// components, malformed pre-release/build metadata rejected.
func Parse(s string) (Version, error) {
	sv, err := mmsemver.StrictNewVersion(s)
	if err != nil {
		return Version{}, errors.Wrapf(err, "invalid version %q", s)
	}
	return Version{sv: sv}, nil
}

// MustParse is Parse, panicking on error. For tests and constants.
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

func (v Version) String() string {
	if v.sv == nil {
		return ""
	}
	return v.sv.String()
}

func (v Version) Major() uint64 { return v.sv.Major() }
func (v Version) Minor() uint64 { return v.sv.Minor() }
func (v Version) Patch() uint64 { return v.sv.Patch() }
func (v Version) Prerelease() string { return v.sv.Prerelease() }

// IsZero reports whether v is the unparsed zero value.
func (v Version) IsZero() bool { return v.sv == nil }

// Cmp returns -1, 0, or 1 per standard semver precedence rules
// (numeric comparison of major.minor.patch, then pre-release
// precedence, ignoring build metadata).
func (v Version) Cmp(other Version) int {
	return v.sv.Compare(other.sv)
}

func (v Version) Less(other Version) bool    { return v.Cmp(other) < 0 }
func (v Version) Equal(other Version) bool   { return v.Cmp(other) == 0 }
func (v Version) Greater(other Version) bool { return v.Cmp(other) > 0 }

// bump returns a new Version with the component at position pos
// (0=major,1=minor,2=patch) incremented and all components to its
// right zeroed, pre-release and build metadata dropped. It is used to
// compute the exclusive upper bound of caret/tilde/hyphen intervals.
func (v Version) bump(pos int) Version {
	maj, min, pat := v.Major(), v.Minor(), v.Patch()
	switch pos {
	case 0:
		maj, min, pat = maj+1, 0, 0
	case 1:
		min, pat = min+1, 0
	case 2:
		pat = pat + 1
	}
	return fromParts(maj, min, pat)
}

// zeroedThrough returns a Version with any component at or beyond pos
// (0-indexed, 0=major) set to zero, used to fill in the implicit
// lower bound of a partial version like "1.2" -> "1.2.0".
func (v Version) zeroedThrough(pos int) Version {
	maj, min, pat := v.Major(), v.Minor(), v.Patch()
	if pos <= 1 {
		min = 0
	}
	if pos <= 2 {
		pat = 0
	}
	return fromParts(maj, min, pat)
}

// fromParts builds a plain (no pre-release, no build metadata)
// Version from its numeric components.
func fromParts(maj, min, pat uint64) Version {
	sv, err := mmsemver.StrictNewVersion(fmt.Sprintf("%d.%d.%d", maj, min, pat))
	if err != nil {
		// maj.min.pat is always a well-formed strict version string.
		panic(err)
	}
	return Version{sv: sv}
}
