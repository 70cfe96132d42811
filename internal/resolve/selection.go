package resolve

import (
	"github.com/orbit-lang/orbitpkg/internal/pkgerrors"
	"github.com/orbit-lang/orbitpkg/internal/pkgid"
	"github.com/orbit-lang/orbitpkg/internal/semver"
)

// dependerEdge is one constraint imposed on a package by whatever
// depends on it: either the root project's own compat section, or
// another package's declared requirement.
type dependerEdge struct {
	From     pkgid.ID // pkgid.Nil for the root project itself
	FromName string
	Range    semver.Range
	Origin   pkgerrors.ConstraintOrigin
}

// stackEntry is one finalized selection, in the order the solver
// committed to it. Popping entries off the end of the stack (during
// backtracking) undoes selections in exactly the reverse order they
// were made, which is what keeps the edges map consistent.
type stackEntry struct {
	id        pkgid.ID
	v         semver.Version
	vq        *versionQueue
	imposedOn []pkgid.ID // deps this selection added an edge to
}

// selectionState is the solver's mutable working state: which
// packages are committed to which version, what constrains each
// pending package, and the stack that makes backtracking possible.
type selectionState struct {
	versions map[pkgid.ID]semver.Version
	edges    map[pkgid.ID][]dependerEdge
	names    map[pkgid.ID]string
	stack    []stackEntry
}

func newSelectionState() *selectionState {
	return &selectionState{
		versions: make(map[pkgid.ID]semver.Version),
		edges:    make(map[pkgid.ID][]dependerEdge),
		names:    make(map[pkgid.ID]string),
	}
}

// mergedConstraint intersects every edge currently imposed on id. A
// package with no recorded edges (reached only speculatively, or not
// yet discovered by anything) is unconstrained.
func (s *selectionState) mergedConstraint(id pkgid.ID) semver.Range {
	r := semver.Any()
	for _, e := range s.edges[id] {
		r = semver.Intersect(r, e.Range)
	}
	return r
}

func (s *selectionState) addEdge(to pkgid.ID, e dependerEdge) {
	s.edges[to] = append(s.edges[to], e)
}

// commit finalizes id at version v, having already discovered its
// dependency set (imposedOn, already added as edges by the caller).
func (s *selectionState) commit(id pkgid.ID, name string, v semver.Version, vq *versionQueue, imposedOn []pkgid.ID) {
	s.versions[id] = v
	s.names[id] = name
	s.stack = append(s.stack, stackEntry{id: id, v: v, vq: vq, imposedOn: imposedOn})
}

// popLast removes and returns the most recently committed selection,
// rolling back the edges it imposed on its dependencies.
func (s *selectionState) popLast() (stackEntry, bool) {
	if len(s.stack) == 0 {
		return stackEntry{}, false
	}
	top := s.stack[len(s.stack)-1]
	s.stack = s.stack[:len(s.stack)-1]

	delete(s.versions, top.id)
	for _, dep := range top.imposedOn {
		s.edges[dep] = removeEdgesFrom(s.edges[dep], top.id)
	}
	return top, true
}

func removeEdgesFrom(edges []dependerEdge, from pkgid.ID) []dependerEdge {
	out := edges[:0]
	for _, e := range edges {
		if e.From != from {
			out = append(out, e)
		}
	}
	return out
}
