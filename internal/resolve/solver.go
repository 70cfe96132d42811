package resolve

import (
	"github.com/orbit-lang/orbitpkg/internal/pkgerrors"
	"github.com/orbit-lang/orbitpkg/internal/pkgid"
	"github.com/orbit-lang/orbitpkg/internal/semver"
)

// solver is a backtracking SAT-style solver: packages are boolean
// choice points (pick exactly one version among those satisfying
// every currently known constraint), clauses are the dependency
// edges dependerEdge encodes, and backtracking over the selection
// stack plays the role of conflict-driven clause search.
type solver struct {
	u    Universe
	req  Request
	tier PreserveTier
	opts options

	sel      *selectionState
	queue    *pendingQueue
	direct   map[pkgid.ID]bool
	attempts int

	// resumeVQ holds the version queue a backtrack just advanced past
	// a known-bad candidate, keyed by package id, so the next visit
	// to that id continues the same queue instead of rebuilding one
	// from scratch (which would just retry the same candidate first).
	resumeVQ map[pkgid.ID]*versionQueue
}

func newSolver(u Universe, req Request, tier PreserveTier, opts options) *solver {
	s := &solver{
		u:        u,
		req:      req,
		tier:     tier,
		opts:     opts,
		sel:      newSelectionState(),
		queue:    newPendingQueue(),
		direct:   make(map[pkgid.ID]bool, len(req.Direct)),
		resumeVQ: make(map[pkgid.ID]*versionQueue),
	}
	for id := range req.Direct {
		s.direct[id] = true
	}
	return s
}

func (s *solver) run() (map[pkgid.ID]semver.Version, int, error) {
	for id, r := range s.req.Direct {
		s.sel.addEdge(id, dependerEdge{From: pkgid.Nil, FromName: "project", Range: r, Origin: pkgerrors.OriginExplicit})
		s.queue.push(id, 0)
	}

	for {
		id, ok := s.queue.next()
		if !ok {
			break
		}

		s.attempts++
		if s.opts.maxAttempts > 0 && s.attempts > s.opts.maxAttempts {
			return nil, s.attempts, &pkgerrors.ResolverUnknown{Reason: "resolution step budget exceeded"}
		}

		if _, already := s.sel.versions[id]; already {
			continue
		}

		vq, v, deps, err := s.findValidVersion(id)
		if err != nil {
			if s.backtrack() {
				// id still needs a version once the backtrack target
				// has moved on; re-queue it so the solution includes it.
				if len(s.sel.edges[id]) > 0 {
					s.queue.push(id, priorityFor(s, id))
				}
				continue
			}
			return nil, s.attempts, s.unsatError(id)
		}

		var imposed []pkgid.ID
		for dep, r := range deps {
			origin := pkgerrors.OriginTransitive
			s.sel.addEdge(dep, dependerEdge{From: id, FromName: s.u.Name(id), Range: r, Origin: origin})
			imposed = append(imposed, dep)
			if _, already := s.sel.versions[dep]; !already {
				s.queue.push(dep, priorityFor(s, dep))
			}
		}
		s.sel.commit(id, s.u.Name(id), v, vq, imposed)
	}

	return s.sel.versions, s.attempts, nil
}

// priorityFor gives already-constrained packages a lower (earlier)
// priority, since trying the most-constrained choices first tends to
// surface conflicts sooner and with shallower backtracking.
func priorityFor(s *solver, id pkgid.ID) int {
	return -len(s.sel.edges[id])
}

// findValidVersion walks id's version queue (creating it on first
// visit) until it finds a candidate that satisfies every edge
// currently imposed on id and does not conflict with any dependency
// that is already selected.
func (s *solver) findValidVersion(id pkgid.ID) (*versionQueue, semver.Version, map[pkgid.ID]semver.Range, error) {
	vq, err := s.versionQueueFor(id)
	if err != nil {
		return nil, semver.Version{}, nil, err
	}

	merged := s.sel.mergedConstraint(id)

	for {
		cur, has := vq.current()
		if !has {
			return nil, semver.Version{}, nil, &pkgerrors.ResolverUnsat{
				Package: s.u.Name(id),
				Core:    s.conflictCore(id, merged),
			}
		}

		if !merged.Contains(cur) {
			if advErr := vq.advance(errOutOfRange); advErr != nil {
				return nil, semver.Version{}, nil, advErr
			}
			continue
		}

		deps, err := s.u.Requirements(id, cur)
		if err != nil {
			if advErr := vq.advance(err); advErr != nil {
				return nil, semver.Version{}, nil, advErr
			}
			continue
		}

		if conflictDep, ok := s.conflictsWithSelected(deps); ok {
			if advErr := vq.advance(&pkgerrors.ResolverUnsat{
				Package: s.u.Name(conflictDep),
				Core:    s.conflictCore(conflictDep, deps[conflictDep]),
			}); advErr != nil {
				return nil, semver.Version{}, nil, advErr
			}
			continue
		}

		return vq, cur, deps, nil
	}
}

func (s *solver) conflictsWithSelected(deps map[pkgid.ID]semver.Range) (pkgid.ID, bool) {
	for dep, r := range deps {
		if v, ok := s.sel.versions[dep]; ok && !r.Contains(v) {
			return dep, true
		}
	}
	return pkgid.Nil, false
}

func (s *solver) versionQueueFor(id pkgid.ID) (*versionQueue, error) {
	if vq, ok := s.resumeVQ[id]; ok {
		delete(s.resumeVQ, id)
		return vq, nil
	}
	lockv, prefv := s.lockHint(id)
	return newVersionQueue(id, lockv, prefv, s.req.Downgrade, s.u)
}

func (s *solver) lockHint(id pkgid.ID) (lockv, prefv semver.Version) {
	locked, ok := s.req.Locked[id]
	if !ok {
		return semver.Version{}, semver.Version{}
	}
	switch s.tier {
	case TierNone:
		return semver.Version{}, semver.Version{}
	case TierDirect:
		if s.direct[id] {
			return locked, locked
		}
		return semver.Version{}, semver.Version{}
	case TierSemver:
		if s.direct[id] {
			return locked, locked
		}
		return semver.Version{}, locked
	default: // TierAll
		return locked, locked
	}
}

// backtrack undoes the most recently committed selection (and,
// transitively, everything it enabled, already popped before it was
// reached) and advances its version queue past the version that led
// to the current conflict. If that queue is now exhausted it keeps
// walking further back in the stack.
func (s *solver) backtrack() bool {
	for {
		top, ok := s.sel.popLast()
		if !ok {
			return false
		}

		if advErr := top.vq.advance(nil); advErr == nil && !top.vq.isExhausted() {
			// This is the actual backtrack target: resume its queue
			// right where it left off, past the version that failed.
			s.resumeVQ[top.id] = top.vq
			s.queue.pushFront(top.id)
			return true
		}

		// top's own queue is exhausted; it was only collateral damage
		// from unwinding the stack to reach the real culprit further
		// back. If something still requires it, it needs a completely
		// fresh queue once the constraints around it have changed.
		if len(s.sel.edges[top.id]) > 0 {
			s.queue.push(top.id, priorityFor(s, top.id))
		}
	}
}

func (s *solver) unsatError(id pkgid.ID) error {
	merged := s.sel.mergedConstraint(id)
	return &pkgerrors.ResolverUnsat{
		Package: s.u.Name(id),
		Core:    s.conflictCore(id, merged),
	}
}

func (s *solver) conflictCore(id pkgid.ID, _ semver.Range) []pkgerrors.ConflictEdge {
	edges := s.sel.edges[id]
	core := make([]pkgerrors.ConflictEdge, 0, len(edges))
	for _, e := range edges {
		from := e.FromName
		if from == "" {
			from = "project"
		}
		core = append(core, pkgerrors.ConflictEdge{From: from, Range: e.Range.String(), Origin: e.Origin})
	}
	if len(core) == 0 {
		core = append(core, pkgerrors.ConflictEdge{From: "project", Range: "*", Origin: pkgerrors.OriginExplicit})
	}
	return core
}

type sentinelErr string

func (e sentinelErr) Error() string { return string(e) }

const errOutOfRange = sentinelErr("candidate version is outside the merged constraint range")
