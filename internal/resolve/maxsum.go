package resolve

import (
	"github.com/orbit-lang/orbitpkg/internal/pkgerrors"
	"github.com/orbit-lang/orbitpkg/internal/pkgid"
	"github.com/orbit-lang/orbitpkg/internal/semver"
)

// maxSumSolve is the incomplete fallback algorithm: one pass over the
// dependency frontier, greedily taking the highest (or, in downgrade
// mode, lowest) version of each package that satisfies every
// constraint known at the time it is visited. Unlike the backtracking
// solver it never reconsiders an earlier choice, so a conflict that a
// different earlier pick would have avoided surfaces as
// ResolverUnknown rather than triggering a search. It trades
// completeness for a single linear pass over the frontier, intended
// for graphs too large to search exhaustively within budget.
func maxSumSolve(u Universe, req Request, tier PreserveTier, opts options) (map[pkgid.ID]semver.Version, int, error) {
	sel := newSelectionState()
	queue := newPendingQueue()
	direct := make(map[pkgid.ID]bool, len(req.Direct))
	for id := range req.Direct {
		direct[id] = true
	}

	for id, r := range req.Direct {
		sel.addEdge(id, dependerEdge{From: pkgid.Nil, FromName: "project", Range: r, Origin: pkgerrors.OriginExplicit})
		queue.push(id, 0)
	}

	attempts := 0
	for {
		id, ok := queue.next()
		if !ok {
			break
		}
		attempts++
		if opts.maxAttempts > 0 && attempts > opts.maxAttempts {
			return nil, attempts, &pkgerrors.ResolverUnknown{Reason: "resolution step budget exceeded"}
		}
		if _, already := sel.versions[id]; already {
			continue
		}

		merged := sel.mergedConstraint(id)
		candidates, err := u.Versions(id)
		if err != nil {
			return nil, attempts, err
		}
		best, ok := pickBest(candidates, merged, lockedFor(req, tier, direct, id), req.Downgrade)
		if !ok {
			return nil, attempts, &pkgerrors.ResolverUnknown{
				Reason: "no single-pass candidate satisfies " + u.Name(id) + "; retry with the full solver",
			}
		}

		deps, err := u.Requirements(id, best)
		if err != nil {
			return nil, attempts, err
		}
		var imposed []pkgid.ID
		for dep, r := range deps {
			if v, already := sel.versions[dep]; already && !r.Contains(v) {
				return nil, attempts, &pkgerrors.ResolverUnknown{
					Reason: "single-pass choice of " + u.Name(id) + " conflicts with already-selected " + u.Name(dep),
				}
			}
			sel.addEdge(dep, dependerEdge{From: id, FromName: u.Name(id), Range: r, Origin: pkgerrors.OriginTransitive})
			imposed = append(imposed, dep)
			if _, already := sel.versions[dep]; !already {
				queue.push(dep, -len(sel.edges[dep]))
			}
		}
		sel.commit(id, u.Name(id), best, nil, imposed)
	}

	return sel.versions, attempts, nil
}

// pickBest scores each candidate: satisfying the merged constraint is
// required, matching the lock is worth the most, and otherwise
// candidates are ranked by recency (or, downgrading, its inverse).
// This is the "MaxSum": the winner is whichever candidate's score sum
// is highest, not merely the first one found.
func pickBest(candidates []semver.Version, merged semver.Range, lockv semver.Version, downgrade bool) (semver.Version, bool) {
	var best semver.Version
	bestScore := -1
	found := false

	for _, v := range candidates {
		if !merged.Contains(v) {
			continue
		}
		score := 1
		if !lockv.IsZero() && v.Equal(lockv) {
			score += 1000
		}
		if !found || score > bestScore || (score == bestScore && isMoreRecent(v, best, downgrade)) {
			best, bestScore, found = v, score, true
		}
	}
	return best, found
}

func isMoreRecent(a, b semver.Version, downgrade bool) bool {
	if downgrade {
		return a.Less(b)
	}
	return a.Greater(b)
}

func lockedFor(req Request, tier PreserveTier, direct map[pkgid.ID]bool, id pkgid.ID) semver.Version {
	v, ok := req.Locked[id]
	if !ok || tier == TierNone {
		return semver.Version{}
	}
	if tier == TierDirect && !direct[id] {
		return semver.Version{}
	}
	return v
}
