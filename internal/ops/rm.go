package ops

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/orbit-lang/orbitpkg/internal/fsutil"
	"github.com/orbit-lang/orbitpkg/internal/manifest"
)

// Rm removes each named dependency from dir's Project.toml (deps,
// compat, and sources entries alike) and re-resolves, so the lock
// never goes stale: a removed package that another dependency still
// needs is picked back up as a transitive dependency. If the solve
// fails, the original project file is written back.
func (o *Operations) Rm(dir string, names []string) (*ResolveResult, error) {
	env, err := o.loadEnvironment(dir)
	if err != nil {
		return nil, err
	}

	for _, name := range names {
		if _, ok := env.project.Deps[name]; !ok {
			return nil, errors.Errorf("%q is not a dependency of this project", name)
		}
		delete(env.project.Deps, name)
		delete(env.project.Compat, name)
		delete(env.project.Sources, name)
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
