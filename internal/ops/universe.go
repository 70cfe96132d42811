package ops

import (
	"github.com/pkg/errors"

	"github.com/orbit-lang/orbitpkg/internal/pkgid"
	"github.com/orbit-lang/orbitpkg/internal/registry"
	"github.com/orbit-lang/orbitpkg/internal/resolve"
	"github.com/orbit-lang/orbitpkg/internal/semver"
	"github.com/orbit-lang/orbitpkg/internal/trust"
)

// registryUniverse adapts a federation of registry.Stores into a
// resolve.Universe: it merges every version a package's UUID appears
// under across all open registries, enforcing mutual trust between
// any pair of registries that both claim the UUID, and resolving
// duplicate (UUID, version) entries by registry.CompareHash's
// higher-tree-hash tie-break.
//
// In offline mode (policy.Offline), Versions never consults a
// registry: it answers only with whatever version locked reports
// already having been resolved for id in a previous run (Requirements
// still reads the open stores through Lookup), approximating "resolver sees only depot-present
// versions" without requiring a separate UUID->installed-version
// reverse index over the content-addressed depot (see DESIGN.md).
type registryUniverse struct {
	stores  []*registry.Store
	policy  *trust.Policy
	names   map[pkgid.ID]string
	locked  map[pkgid.ID]semver.Version
}

func newRegistryUniverse(stores []*registry.Store, policy *trust.Policy, locked map[pkgid.ID]semver.Version) *registryUniverse {
	return &registryUniverse{
		stores: stores,
		policy: policy,
		names:  make(map[pkgid.ID]string),
		locked: locked,
	}
}

var _ resolve.Universe = (*registryUniverse)(nil)

func (u *registryUniverse) Name(id pkgid.ID) string {
	if name, ok := u.names[id]; ok {
		return name
	}
	return id.String()
}

// mergedEntries gathers every registry.PackageEntry known for id
// across all stores, enforcing cross-registry trust and picking a
// single winner per version on disagreement.
func (u *registryUniverse) mergedEntries(id pkgid.ID) ([]registry.PackageEntry, error) {
	byVersion := make(map[string]registry.PackageEntry)
	var servingInfo *registry.Info

	for _, s := range u.stores {
		// A plain lookup first: an error here just means this
		// registry doesn't carry the package.
		entries, err := s.Lookup(id, nil)
		if err != nil {
			continue
		}

		if servingInfo != nil {
			// A second registry also serves id: it and the first
			// serving registry must trust each other, or the merge fails.
			if _, err := s.Lookup(id, servingInfo); err != nil {
				return nil, err
			}
		} else {
			info := s.Info()
			servingInfo = &info
		}

		u.names[id] = entries.Name
		for _, pe := range entries.Versions {
			key := pe.Version.String()
			existing, dup := byVersion[key]
			if !dup || registry.CompareHash(pe.TreeHash, existing.TreeHash) > 0 {
				byVersion[key] = pe
			}
		}
	}

	out := make([]registry.PackageEntry, 0, len(byVersion))
	for _, pe := range byVersion {
		out = append(out, pe)
	}
	return out, nil
}

func (u *registryUniverse) Versions(id pkgid.ID) ([]semver.Version, error) {
	if u.policy != nil && u.policy.Offline {
		v, ok := u.locked[id]
		if !ok {
			return nil, errors.Errorf("offline mode: no previously locked version available for %s", u.Name(id))
		}
		return []semver.Version{v}, nil
	}

	entries, err := u.mergedEntries(id)
	if err != nil {
		return nil, err
	}
	out := make([]semver.Version, 0, len(entries))
	for _, pe := range entries {
		if pe.Yanked {
			if locked, ok := u.locked[id]; !ok || !locked.Equal(pe.Version) {
				continue
			}
		}
		out = append(out, pe.Version)
	}
	return out, nil
}

func (u *registryUniverse) Requirements(id pkgid.ID, v semver.Version) (map[pkgid.ID]semver.Range, error) {
	entries, err := u.mergedEntries(id)
	if err != nil {
		return nil, err
	}
	for _, pe := range entries {
		if pe.Version.Equal(v) {
			out := make(map[pkgid.ID]semver.Range, len(pe.Compat))
			for depID, r := range pe.Compat {
				out[depID] = r
			}
			return out, nil
		}
	}
	return nil, errors.Errorf("%s: version %s not found in any registry", u.Name(id), v)
}
