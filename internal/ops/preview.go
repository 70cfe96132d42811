package ops

import (
	"github.com/orbit-lang/orbitpkg/internal/pkgid"
	"github.com/orbit-lang/orbitpkg/internal/semver"
)

// VersionChange describes one package's version movement between the
// manifest currently on disk and a computed Solution.
type VersionChange struct {
	ID   pkgid.ID
	Name string
	From semver.Version // IsZero if the package is newly added
	To   semver.Version // IsZero if the package is being removed
}

// Preview computes what Resolve would change without writing
// anything, the backing call for the `orbitpkg preview` command.
func (o *Operations) Preview(dir string) ([]VersionChange, error) {
	env, err := o.loadEnvironment(dir)
	if err != nil {
		return nil, err
	}

	result, err := o.Resolve(dir, ResolveOptions{Force: true, DryRun: true})
	if err != nil {
		return nil, err
	}

	universe := o.universeFor(env)
	nameByID := make(map[string]string, len(env.project.Deps))
	for name, id := range env.project.Deps {
		nameByID[id.String()] = name
	}

	seen := make(map[pkgid.ID]bool)
	var changes []VersionChange
	for id, to := range result.Solution.Versions {
		seen[id] = true
		from := env.manifest.Packages[id].Version
		if !from.IsZero() && from.Equal(to) {
			continue
		}
		changes = append(changes, VersionChange{ID: id, Name: displayName(nameByID, universe, id), From: from, To: to})
	}
	for id, rec := range env.manifest.Packages {
		if seen[id] {
			continue
		}
		changes = append(changes, VersionChange{ID: id, Name: displayName(nameByID, universe, id), From: rec.Version})
	}

	return changes, nil
}

func displayName(nameByID map[string]string, universe *registryUniverse, id pkgid.ID) string {
	if name, ok := nameByID[id.String()]; ok {
		return name
	}
	return universe.Name(id)
}
