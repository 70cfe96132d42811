// Package resolve implements orbitpkg's dependency resolution core: a
// backtracking SAT-style solver over package/version choices, with a
// MaxSum heuristic fallback for instances too large to search
// exhaustively in budget. It has no knowledge of registries, depots,
// or TOML; callers supply a Universe that answers "what versions of
// this package exist" and "what does this version require".
package resolve

import (
	"github.com/orbit-lang/orbitpkg/internal/pkgid"
	"github.com/orbit-lang/orbitpkg/internal/semver"
)

// Universe is everything the solver needs to know about the package
// graph. Implementations typically wrap one or more registry.Store
// lookups plus the depot's installed-package cache.
type Universe interface {
	// Name returns a display name for id, used only in diagnostics.
	Name(id pkgid.ID) string

	// Versions lists every known version of id, in no particular
	// order; the solver sorts them itself.
	Versions(id pkgid.ID) ([]semver.Version, error)

	// Requirements returns the dependency set a given version of id
	// declares: dependency id -> the compat range id imposes on it.
	Requirements(id pkgid.ID, v semver.Version) (map[pkgid.ID]semver.Range, error)
}

// PreserveTier controls how much of a previous resolution's locked
// versions the solver tries to keep, from strictest to loosest. A
// Resolve call walks this ladder from TierAll down to TierNone,
// stopping at the first tier that yields a solution.
type PreserveTier int

const (
	// TierAll tries every locked package's recorded version first.
	TierAll PreserveTier = iota
	// TierDirect tries only direct dependencies' locked versions
	// first; transitive dependencies resolve fresh.
	TierDirect
	// TierSemver treats direct dependencies like TierDirect, and
	// passes transitive dependencies' locked versions only as the
	// preferred version; a preferred version is still tried first,
	// ahead of the rest of the catalog.
	TierSemver
	// TierNone ignores every locked version; every package resolves
	// to the newest (or, in downgrade mode, oldest) candidate that
	// satisfies its constraints.
	TierNone
)

func (t PreserveTier) String() string {
	switch t {
	case TierAll:
		return "all"
	case TierDirect:
		return "direct"
	case TierSemver:
		return "semver"
	case TierNone:
		return "none"
	default:
		return "unknown"
	}
}

// Algorithm selects which solving strategy Resolve uses.
type Algorithm int

const (
	// AlgoBacktrackSAT is the complete, exhaustive solver: it always
	// finds a solution if one exists, or proves none does.
	AlgoBacktrackSAT Algorithm = iota
	// AlgoMaxSum is an incomplete greedy fallback: fast, but gives up
	// (ResolverUnknown) rather than backtracking on the first
	// conflict it cannot route around.
	AlgoMaxSum
)

// Request describes one resolution: the project's direct
// requirements, and whatever was previously locked.
type Request struct {
	// Direct maps each direct dependency's id to the range the root
	// project's compat section imposes on it.
	Direct map[pkgid.ID]semver.Range
	// Locked carries the versions recorded in an existing manifest,
	// consulted according to the active PreserveTier.
	Locked map[pkgid.ID]semver.Version
	// Downgrade, if true, makes every unlocked choice prefer the
	// oldest satisfying version instead of the newest.
	Downgrade bool
}

// Solution is a complete, consistent version assignment.
type Solution struct {
	Versions map[pkgid.ID]semver.Version
	Attempts int
	Tier     PreserveTier
	Algo     Algorithm
}

// Option configures a Resolve call.
type Option func(*options)

type options struct {
	maxAttempts int
	algo        Algorithm
	fixedTier   *PreserveTier
}

func defaultOptions() options {
	return options{maxAttempts: 50000, algo: AlgoBacktrackSAT}
}

// WithMaxAttempts bounds the number of selection attempts before the
// solver gives up with ResolverUnknown, rather than running forever
// on a pathological graph.
func WithMaxAttempts(n int) Option {
	return func(o *options) { o.maxAttempts = n }
}

// WithAlgorithm selects the solving strategy.
func WithAlgorithm(a Algorithm) Option {
	return func(o *options) { o.algo = a }
}

// WithFixedTier pins resolution to a single preserve tier instead of
// walking the full all/direct/semver/none ladder. ops.Resolve uses
// this with TierAll whenever the lock holds a pinned package, to avoid
// silently falling back to a looser tier.
func WithFixedTier(t PreserveTier) Option {
	return func(o *options) { o.fixedTier = &t }
}
