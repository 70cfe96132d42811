package ops

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/orbit-lang/orbitpkg/internal/fsutil"
	"github.com/orbit-lang/orbitpkg/internal/manifest"
	"github.com/orbit-lang/orbitpkg/internal/pkgid"
	"github.com/orbit-lang/orbitpkg/internal/semver"
)

// AddRequest names a dependency to add, by registered name, to a
// project, plus an optional explicit compat range. An empty Compat
// leaves the resolver free to pick any version, recording no compat
// entry at all -- matching the "add with no version constraint" path.
type AddRequest struct {
	Name   string
	Compat string
}

// Add registers each requested dependency in dir's Project.toml
// (resolving each name to a UUID by searching o's registries) and
// then re-resolves the environment, so a failed solve leaves the
// project file untouched.
func (o *Operations) Add(dir string, reqs []AddRequest) (*ResolveResult, error) {
	env, err := o.loadEnvironment(dir)
	if err != nil {
		return nil, err
	}

	if env.project.Deps == nil {
		env.project.Deps = make(map[string]pkgid.ID)
	}
	if env.project.Compat == nil {
		env.project.Compat = make(map[string]semver.Range)
	}

	for _, req := range reqs {
		id, err := o.LookupByName(req.Name)
		if err != nil {
			return nil, errors.Wrapf(err, "resolving package name %q", req.Name)
		}
		env.project.Deps[req.Name] = id

		if req.Compat != "" {
			r, err := semver.ParseRange(req.Compat)
			if err != nil {
				return nil, errors.Wrapf(err, "invalid compat range %q for %s", req.Compat, req.Name)
			}
			env.project.Compat[req.Name] = r
		}
	}

	projectPath := filepath.Join(dir, manifest.ProjectFileName)
	orig, err := os.ReadFile(projectPath)
	if err != nil {
		return nil, errors.Wrap(err, "reading project file")
	}
	if err := manifest.WriteProject(dir, env.project); err != nil {
		return nil, errors.Wrap(err, "writing project file")
	}

	res, err := o.Resolve(dir, ResolveOptions{Force: true})
	if err != nil {
		if rerr := fsutil.WriteFileAtomic(projectPath, orig, 0o644); rerr != nil {
			return nil, errors.Wrapf(err, "restoring project file also failed: %v", rerr)
		}
		return nil, err
	}
	return res, nil
}

// LookupByName searches every open registry for a package named
// exactly name, via its radix-indexed prefix search, erroring if zero
// or more than one registry carries a distinct UUID under that name.
func (o *Operations) LookupByName(name string) (pkgid.ID, error) {
	var found []pkgid.ID
	for _, s := range o.Registries {
		matches, err := s.FindByNamePrefix(name)
		if err != nil {
			return pkgid.Nil, err
		}
		for _, id := range matches {
			entries, err := s.Lookup(id, nil)
			if err != nil || entries.Name != name {
				continue
			}
			found = append(found, id)
		}
	}

	switch len(found) {
	case 0:
		return pkgid.Nil, errors.Errorf("no registry has a package named %q", name)
	case 1:
		return found[0], nil
	default:
		first := found[0]
		for _, id := range found[1:] {
			if id.Compare(first) != 0 {
				return pkgid.Nil, errors.Errorf("package name %q is ambiguous across registries (multiple distinct UUIDs)", name)
			}
		}
		return first, nil
	}
}
