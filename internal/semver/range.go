package semver

import (
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// interval is a half-open-or-closed version interval. lo == nil means
// unbounded below; hi == nil means unbounded above. loIncl/hiIncl
// control whether the respective bound is part of the interval; for
// an unbounded side the Incl flag is meaningless.
type interval struct {
	lo, hi         *Version
	loIncl, hiIncl bool
}

func (iv interval) containsVersion(v Version) bool {
	if iv.lo != nil {
		if iv.loIncl {
			if v.Less(*iv.lo) {
				return false
			}
		} else if !v.Greater(*iv.lo) {
			return false
		}
	}
	if iv.hi != nil {
		if iv.hiIncl {
			if v.Greater(*iv.hi) {
				return false
			}
		} else if !v.Less(*iv.hi) {
			return false
		}
	}
	return true
}

func (iv interval) isEmpty() bool {
	if iv.lo == nil || iv.hi == nil {
		return false
	}
	if iv.lo.Greater(*iv.hi) {
		return true
	}
	if iv.lo.Equal(*iv.hi) {
		return !(iv.loIncl && iv.hiIncl)
	}
	return false
}

// intersect returns the intersection of two intervals; the second
// return value is false if the intersection is empty.
func intersectIntervals(a, b interval) (interval, bool) {
	var out interval

	switch {
	case a.lo == nil:
		out.lo, out.loIncl = b.lo, b.loIncl
	case b.lo == nil:
		out.lo, out.loIncl = a.lo, a.loIncl
	case a.lo.Greater(*b.lo):
		out.lo, out.loIncl = a.lo, a.loIncl
	case b.lo.Greater(*a.lo):
		out.lo, out.loIncl = b.lo, b.loIncl
	default: // equal
		out.lo, out.loIncl = a.lo, a.loIncl && b.loIncl
	}

	switch {
	case a.hi == nil:
		out.hi, out.hiIncl = b.hi, b.hiIncl
	case b.hi == nil:
		out.hi, out.hiIncl = a.hi, a.hiIncl
	case a.hi.Less(*b.hi):
		out.hi, out.hiIncl = a.hi, a.hiIncl
	case b.hi.Less(*a.hi):
		out.hi, out.hiIncl = b.hi, b.hiIncl
	default:
		out.hi, out.hiIncl = a.hi, a.hiIncl && b.hiIncl
	}

	if out.isEmpty() {
		return interval{}, false
	}
	return out, true
}

// touchesOrOverlaps reports whether two sorted-adjacent intervals
// should be coalesced into one when building a union: they overlap,
// or they are contiguous with no integer version between them (we
// conservatively only coalesce true overlaps/shared-boundary cases,
// since versions are not a discrete enough domain to detect "no gap"
// in the general pre-release case).
func touchesOrOverlaps(a, b interval) bool {
	if a.hi == nil || b.lo == nil {
		return true
	}
	if a.hi.Less(*b.lo) {
		return false
	}
	if a.hi.Equal(*b.lo) {
		return a.hiIncl || b.loIncl
	}
	return true
}

// Range is a union of disjoint, sorted version intervals.
type Range struct {
	ivs []interval
	raw string
}

// Contains reports whether v falls within any interval of the range.
func (r Range) Contains(v Version) bool {
	for _, iv := range r.ivs {
		if iv.containsVersion(v) {
			return true
		}
	}
	return false
}

// IsEmpty reports whether the range admits no versions at all.
func (r Range) IsEmpty() bool {
	return len(r.ivs) == 0
}

// String returns the original specifier string the range was parsed
// from, if any; constructed ranges (Intersect/Union results) render a
// normalized disjunctive form instead.
func (r Range) String() string {
	if r.raw != "" {
		return r.raw
	}
	if len(r.ivs) == 0 {
		return "<empty>"
	}
	parts := make([]string, len(r.ivs))
	for i, iv := range r.ivs {
		parts[i] = intervalString(iv)
	}
	return strings.Join(parts, " || ")
}

func intervalString(iv interval) string {
	switch {
	case iv.lo == nil && iv.hi == nil:
		return "*"
	case iv.lo != nil && iv.hi != nil && iv.lo.Equal(*iv.hi) && iv.loIncl && iv.hiIncl:
		return "=" + iv.lo.String()
	}
	var b strings.Builder
	if iv.lo != nil {
		if iv.loIncl {
			b.WriteString(">=" + iv.lo.String())
		} else {
			b.WriteString(">" + iv.lo.String())
		}
	}
	if iv.hi != nil {
		if b.Len() > 0 {
			b.WriteString(", ")
		}
		if iv.hiIncl {
			b.WriteString("<=" + iv.hi.String())
		} else {
			b.WriteString("<" + iv.hi.String())
		}
	}
	return b.String()
}

// Any is the unbounded range, matching every version.
func Any() Range {
	return Range{ivs: []interval{{}}, raw: "*"}
}

// Empty is the range matching no version.
func Empty() Range {
	return Range{}
}

// ParseRange parses a comma-separated union of version specifiers.
// Per the domain spec this is a deliberate deviation from common
// semver libraries: a comma joins specifiers into a UNION, not an
// intersection. Each specifier may be a caret (^X.Y.Z), tilde
// (~X.Y.Z), hyphen range (A - B, whitespace required around the
// dash), equality (=V), or inequality (>=V, >V, <=V, <V). A bare
// version V is treated as caret (^V).
func ParseRange(s string) (Range, error) {
	raw := s
	s = strings.TrimSpace(s)
	if s == "" || s == "*" {
		return Any(), nil
	}

	specs := splitUnion(s)
	var all []interval
	for _, spec := range specs {
		iv, err := parseSpec(strings.TrimSpace(spec))
		if err != nil {
			return Range{}, errors.Wrapf(err, "invalid version range %q", raw)
		}
		if !iv.isEmpty() {
			all = append(all, iv)
		}
	}

	return Range{ivs: normalize(all), raw: raw}, nil
}

// MustParseRange is ParseRange, panicking on error.
func MustParseRange(s string) Range {
	r, err := ParseRange(s)
	if err != nil {
		panic(err)
	}
	return r
}

// splitUnion splits on top-level commas, taking care not to split
// inside a hyphen range's internal whitespace (hyphen ranges never
// contain a comma themselves, so a simple comma split is safe).
func splitUnion(s string) []string {
	return strings.Split(s, ",")
}

func parseSpec(spec string) (interval, error) {
	if spec == "" || spec == "*" {
		return interval{}, nil
	}

	if idx := strings.Index(spec, " - "); idx >= 0 {
		return parseHyphen(spec[:idx], spec[idx+3:])
	}

	switch {
	case strings.HasPrefix(spec, "^"):
		return parseCaret(spec[1:])
	case strings.HasPrefix(spec, "~"):
		return parseTilde(spec[1:])
	case strings.HasPrefix(spec, ">="):
		v, _, err := parsePartial(spec[2:])
		if err != nil {
			return interval{}, err
		}
		return interval{lo: &v, loIncl: true}, nil
	case strings.HasPrefix(spec, "<="):
		v, _, err := parsePartial(spec[2:])
		if err != nil {
			return interval{}, err
		}
		return interval{hi: &v, hiIncl: true}, nil
	case strings.HasPrefix(spec, ">"):
		v, _, err := parsePartial(spec[1:])
		if err != nil {
			return interval{}, err
		}
		return interval{lo: &v, loIncl: false}, nil
	case strings.HasPrefix(spec, "<"):
		v, _, err := parsePartial(spec[1:])
		if err != nil {
			return interval{}, err
		}
		return interval{hi: &v, hiIncl: false}, nil
	case strings.HasPrefix(spec, "="):
		v, _, err := parsePartial(spec[1:])
		if err != nil {
			return interval{}, err
		}
		return interval{lo: &v, loIncl: true, hi: &v, hiIncl: true}, nil
	default:
		// Bare version: defaults to caret compatibility, matching the
		// host language's own Project.toml compat semantics.
		return parseCaret(spec)
	}
}

// partial tracks how many version components were explicitly given,
// since caret/tilde/hyphen upper-bound placement depends on it.
type partialInfo struct {
	v        Version
	segments int // 1=major only, 2=major.minor, 3=full
}

func parsePartial(s string) (Version, int, error) {
	parts := strings.Split(s, ".")
	if len(parts) > 3 {
		return Version{}, 0, errors.Errorf("too many version components in %q", s)
	}
	nums := make([]string, 3)
	for i := range nums {
		nums[i] = "0"
	}
	for i, p := range parts {
		if _, err := strconv.ParseUint(p, 10, 64); err != nil {
			// Might carry a pre-release/build suffix on the last
			// component; let strict parsing handle validation.
			if i == len(parts)-1 {
				nums[i] = p
				continue
			}
			return Version{}, 0, errors.Wrapf(err, "invalid version component %q", p)
		}
		nums[i] = p
	}
	v, err := Parse(strings.Join(nums, "."))
	if err != nil {
		return Version{}, 0, err
	}
	return v, len(parts), nil
}

func parseCaret(s string) (interval, error) {
	v, segs, err := parsePartial(s)
	if err != nil {
		return interval{}, err
	}
	lo := v.zeroedThrough(segs)

	var bumpPos int
	switch {
	case v.Major() != 0:
		bumpPos = 0
	case v.Minor() != 0:
		bumpPos = 1
	default:
		// 0.0.x: caret admits only this exact patch (the pre-1.0
		// exception's strictest case).
		bumpPos = 2
	}
	hi := lo.bump(bumpPos)
	return interval{lo: &lo, loIncl: true, hi: &hi, hiIncl: false}, nil
}

func parseTilde(s string) (interval, error) {
	v, segs, err := parsePartial(s)
	if err != nil {
		return interval{}, err
	}
	lo := v.zeroedThrough(segs)

	if segs >= 3 {
		hi := lo.bump(1) // only patch may change -> bump minor
		return interval{lo: &lo, loIncl: true, hi: &hi, hiIncl: false}, nil
	}
	// major-only or major.minor given: equivalent to caret.
	return parseCaret(s)
}

func parseHyphen(lowS, highS string) (interval, error) {
	lowS = strings.TrimSpace(lowS)
	highS = strings.TrimSpace(highS)

	lo, _, err := parsePartial(lowS)
	if err != nil {
		return interval{}, err
	}

	hi, hsegs, err := parsePartial(highS)
	if err != nil {
		return interval{}, err
	}

	if hsegs >= 3 {
		return interval{lo: &lo, loIncl: true, hi: &hi, hiIncl: true}, nil
	}
	// Upper end's missing trailing components are wildcard: bump the
	// last explicitly-given component, exclusive. With 1 segment
	// (major only) the wildcard covers the whole major release, so we
	// bump the major (position 0); with 2 segments (major.minor) it
	// covers the minor release, so we bump the minor (position 1).
	hiBound := hi.bump(hsegs - 1)
	return interval{lo: &lo, loIncl: true, hi: &hiBound, hiIncl: false}, nil
}

// normalize sorts intervals by lower bound and merges any that
// overlap or touch, producing the disjoint canonical form.
func normalize(ivs []interval) []interval {
	if len(ivs) == 0 {
		return nil
	}
	sort.Slice(ivs, func(i, j int) bool {
		a, b := ivs[i], ivs[j]
		switch {
		case a.lo == nil && b.lo == nil:
			return false
		case a.lo == nil:
			return true
		case b.lo == nil:
			return false
		case a.lo.Equal(*b.lo):
			return a.loIncl && !b.loIncl
		default:
			return a.lo.Less(*b.lo)
		}
	})

	out := []interval{ivs[0]}
	for _, cur := range ivs[1:] {
		last := &out[len(out)-1]
		if touchesOrOverlaps(*last, cur) {
			merged, ok := unionPair(*last, cur)
			if ok {
				out[len(out)-1] = merged
				continue
			}
		}
		out = append(out, cur)
	}
	return out
}

func unionPair(a, b interval) (interval, bool) {
	if !touchesOrOverlaps(a, b) && !touchesOrOverlaps(b, a) {
		return interval{}, false
	}
	out := interval{lo: a.lo, loIncl: a.loIncl}
	if a.lo == nil || (b.lo != nil && b.lo.Less(*a.lo)) {
		out.lo, out.loIncl = b.lo, b.loIncl
	} else if a.lo != nil && b.lo != nil && a.lo.Equal(*b.lo) {
		out.loIncl = a.loIncl || b.loIncl
	}

	out.hi, out.hiIncl = a.hi, a.hiIncl
	if a.hi == nil || (b.hi != nil && b.hi.Greater(*a.hi)) {
		out.hi, out.hiIncl = b.hi, b.hiIncl
	} else if a.hi != nil && b.hi != nil && a.hi.Equal(*b.hi) {
		out.hiIncl = a.hiIncl || b.hiIncl
	}
	return out, true
}

// Intersect computes the intersection of two ranges. Emptiness is a
// valid result (represented as the zero-interval Range).
func Intersect(a, b Range) Range {
	var out []interval
	for _, ia := range a.ivs {
		for _, ib := range b.ivs {
			if iv, ok := intersectIntervals(ia, ib); ok {
				out = append(out, iv)
			}
		}
	}
	return Range{ivs: normalize(out)}
}

// Union computes the union of any number of ranges.
func Union(ranges ...Range) Range {
	var all []interval
	for _, r := range ranges {
		all = append(all, r.ivs...)
	}
	return Range{ivs: normalize(all)}
}
