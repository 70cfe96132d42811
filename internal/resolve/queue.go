package resolve

import (
	"fmt"
	"sort"

	"github.com/orbit-lang/orbitpkg/internal/pkgid"
	"github.com/orbit-lang/orbitpkg/internal/semver"
)

// failedVersion records one candidate this queue already tried and
// rejected, and why, for conflict diagnostics.
type failedVersion struct {
	v semver.Version
	f error
}

// versionQueue is the ordered list of candidate versions the solver
// tries for one package, front to back. A locked version (from an
// existing manifest) and a preferred version (a soft tie-break hint)
// are tried ahead of the rest of the catalog, which is otherwise
// sorted newest-first (or oldest-first, in downgrade mode).
type versionQueue struct {
	id   pkgid.ID
	pi   []semver.Version
	lockv, prefv semver.Version
	fails []failedVersion
	u     Universe
	downgrade bool
	failed    bool
	allLoaded bool
}

func newVersionQueue(id pkgid.ID, lockv, prefv semver.Version, downgrade bool, u Universe) (*versionQueue, error) {
	vq := &versionQueue{id: id, lockv: lockv, prefv: prefv, u: u, downgrade: downgrade}

	if !lockv.IsZero() {
		vq.pi = []semver.Version{lockv}
		return vq, nil
	}
	if !prefv.IsZero() {
		vq.pi = []semver.Version{prefv}
		return vq, nil
	}
	if err := vq.loadAll(); err != nil {
		return nil, err
	}
	return vq, nil
}

func (vq *versionQueue) loadAll() error {
	all, err := vq.u.Versions(vq.id)
	if err != nil {
		return err
	}
	sorted := make([]semver.Version, len(all))
	copy(sorted, all)
	sort.Slice(sorted, func(i, j int) bool {
		if vq.downgrade {
			return sorted[i].Less(sorted[j])
		}
		return sorted[i].Greater(sorted[j])
	})
	vq.pi = sorted
	vq.allLoaded = true
	return nil
}

// current returns the candidate version at the front of the queue.
func (vq *versionQueue) current() (semver.Version, bool) {
	if len(vq.pi) == 0 {
		return semver.Version{}, false
	}
	return vq.pi[0], true
}

// advance records why the current candidate was rejected and moves
// to the next one, lazily loading the full catalog the first time the
// locked/preferred fast path is exhausted.
func (vq *versionQueue) advance(fail error) error {
	if len(vq.pi) == 0 {
		return fmt.Errorf("advance called on empty version queue for %s", vq.id)
	}

	if fail != nil {
		vq.fails = append(vq.fails, failedVersion{v: vq.pi[0], f: fail})
	}
	vq.failed = true
	vq.pi = vq.pi[1:]

	if len(vq.pi) == 0 && !vq.allLoaded {
		if err := vq.loadAll(); err != nil {
			return err
		}
		vq.pi = removeVersion(vq.pi, vq.lockv)
		vq.pi = removeVersion(vq.pi, vq.prefv)
	}
	return nil
}

func removeVersion(vs []semver.Version, target semver.Version) []semver.Version {
	if target.IsZero() {
		return vs
	}
	out := vs[:0]
	for _, v := range vs {
		if !v.Equal(target) {
			out = append(out, v)
		}
	}
	return out
}

func (vq *versionQueue) isExhausted() bool {
	return len(vq.pi) == 0
}

func (vq *versionQueue) String() string {
	return fmt.Sprintf("versionQueue(%s, %d remaining, %d failed)", vq.id, len(vq.pi), len(vq.fails))
}
