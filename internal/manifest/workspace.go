package manifest

import (
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/orbit-lang/orbitpkg/internal/pkgid"
	"github.com/orbit-lang/orbitpkg/internal/semver"
)

// MergedCompat is the result of merging a workspace root's compat
// entries with its sub-projects': each dependency UUID's effective
// range is the intersection of every project's declared range for it.
type MergedCompat struct {
	Ranges map[pkgid.ID]semver.Range
	// Sources records which project names contributed to each
	// dependency's merged range, for conflict diagnostics.
	Sources map[pkgid.ID][]string
}

// MergeWorkspace loads rootDir's Project.toml and every sub-project
// named in its workspace.projects list, transitively (a sub-project's
// own workspace.projects are merged too), intersecting their compat
// ranges per dependency UUID (not overriding), per the workspace/compat
// interplay Open Question resolution.
func MergeWorkspace(rootDir string) (*Project, MergedCompat, error) {
	root, err := ReadProject(rootDir)
	if err != nil {
		return nil, MergedCompat{}, err
	}

	merged := MergedCompat{
		Ranges:  make(map[pkgid.ID]semver.Range),
		Sources: make(map[pkgid.ID][]string),
	}
	addCompat(&merged, root)

	seen := make(map[string]bool)
	pending := append([]string(nil), root.WorkspaceProjects...)
	for len(pending) > 0 {
		rel := filepath.Clean(pending[0])
		pending = pending[1:]
		if seen[rel] {
			continue
		}
		seen[rel] = true
		sub, err := ReadProject(filepath.Join(rootDir, rel))
		if err != nil {
			return nil, MergedCompat{}, errors.Wrapf(err, "reading workspace sub-project %s", rel)
		}
		addCompat(&merged, sub)
		for _, nested := range sub.WorkspaceProjects {
			pending = append(pending, filepath.Join(rel, nested))
		}
	}

	for id, r := range merged.Ranges {
		if r.IsEmpty() {
			return nil, MergedCompat{}, errors.Errorf(
				"workspace compat conflict for %s: %v jointly require an empty range",
				id, merged.Sources[id])
		}
	}

	return root, merged, nil
}

// addCompat intersects p's compat ranges (resolved from name to UUID
// via p's own Deps map) into merged.
func addCompat(merged *MergedCompat, p *Project) {
	for name, r := range p.Compat {
		id, ok := p.Deps[name]
		if !ok {
			continue // not a dependency-name compat entry (e.g. the host-language range)
		}
		if existing, ok := merged.Ranges[id]; ok {
			merged.Ranges[id] = semver.Intersect(existing, r)
		} else {
			merged.Ranges[id] = r
		}
		merged.Sources[id] = append(merged.Sources[id], p.Name)
	}
}
