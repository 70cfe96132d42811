package resolve

import (
	"github.com/orbit-lang/orbitpkg/internal/pkgerrors"
	"github.com/orbit-lang/orbitpkg/internal/pkgid"
	"github.com/orbit-lang/orbitpkg/internal/semver"
)

var tierLadder = []PreserveTier{TierAll, TierDirect, TierSemver, TierNone}

// Resolve finds a consistent version assignment satisfying req
// against u. By default it walks the preserve-tier ladder from
// TierAll down to TierNone, returning the first tier that succeeds;
// WithFixedTier pins it to exactly one tier instead. ResolverUnsat
// from the loosest tier tried is what's returned if every tier fails;
// a ResolverUnknown (budget exceeded) short-circuits the ladder
// immediately, since looser tiers would only repeat the same timeout.
func Resolve(u Universe, req Request, opts ...Option) (*Solution, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	tiers := tierLadder
	if o.fixedTier != nil {
		tiers = []PreserveTier{*o.fixedTier}
	}

	var lastErr error
	for _, tier := range tiers {
		versions, attempts, err := solveWithAlgorithm(u, req, tier, o)
		if err == nil {
			return &Solution{Versions: versions, Attempts: attempts, Tier: tier, Algo: o.algo}, nil
		}
		lastErr = err
		if _, unknown := err.(*pkgerrors.ResolverUnknown); unknown {
			return nil, err
		}
	}
	return nil, lastErr
}

func solveWithAlgorithm(u Universe, req Request, tier PreserveTier, o options) (map[pkgid.ID]semver.Version, int, error) {
	if o.algo == AlgoMaxSum {
		return maxSumSolve(u, req, tier, o)
	}
	s := newSolver(u, req, tier, o)
	return s.run()
}
