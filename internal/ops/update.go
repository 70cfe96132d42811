package ops

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/pkg/errors"

	"github.com/orbit-lang/orbitpkg/internal/manifest"
	"github.com/orbit-lang/orbitpkg/internal/pkgid"
	"github.com/orbit-lang/orbitpkg/internal/resolve"
	"github.com/orbit-lang/orbitpkg/internal/semver"
)

// UpdateLevel bounds how far Update is allowed to move a package away
// from its currently locked version.
type UpdateLevel int

const (
	// LevelMajor allows any version satisfying the declared compat
	// range, i.e. an ordinary unconstrained re-resolve.
	LevelMajor UpdateLevel = iota
	// LevelMinor forbids a major version bump.
	LevelMinor
	// LevelPatch forbids a minor or major version bump.
	LevelPatch
	// LevelFixed (the "instantiate" end of the spectrum) applies no
	// narrowing and runs an ordinary non-forced Resolve: when the
	// project file is unchanged since the last resolve, the locked
	// versions are returned as-is; otherwise the solver tries the
	// locked versions first but does not hold any of them fixed.
	LevelFixed
)

// Update re-resolves names (or every non-pinned, non-sourced
// dependency if names is empty) up to the given level, narrowing each
// target's compat range to the locked version's allowed drift before
// invoking the ordinary Resolve path -- the level-bounded narrowing
// lives entirely in the Direct range passed to the solver, not in a
// separate code path.
func (o *Operations) Update(dir string, names []string, level UpdateLevel) (*ResolveResult, error) {
	env, err := o.loadEnvironment(dir)
	if err != nil {
		return nil, err
	}

	targets := make(map[pkgid.ID]bool)
	if len(names) == 0 {
		for name := range env.project.Deps {
			targets[env.project.Deps[name]] = true
		}
	} else {
		for _, name := range names {
			id, ok := env.project.Deps[name]
			if !ok {
				return nil, errors.Errorf("%q is not a dependency of this project", name)
			}
			targets[id] = true
		}
	}

	if level == LevelFixed {
		return o.Resolve(dir, ResolveOptions{Force: false})
	}

	root, merged, err := manifest.MergeWorkspace(dir)
	if err != nil {
		return nil, errors.Wrap(err, "merging workspace compat")
	}

	sourced := make(map[pkgid.ID]bool, len(root.Sources))
	for name := range root.Sources {
		if id, ok := root.Deps[name]; ok {
			sourced[id] = true
		}
	}

	direct := make(map[pkgid.ID]semver.Range)
	for _, id := range root.Deps {
		if sourced[id] {
			continue
		}
		base := semver.Any()
		if r, ok := merged.Ranges[id]; ok {
			base = r
		}
		if targets[id] {
			if locked, ok := env.manifest.Packages[id]; ok && !locked.Pinned {
				base = semver.Intersect(base, levelRange(locked.Version, level))
			}
		}
		if locked, ok := env.manifest.Packages[id]; ok && locked.Pinned {
			exact, err := semver.ParseRange("=" + locked.Version.String())
			if err != nil {
				return nil, errors.Wrapf(err, "pinned version of %s", id)
			}
			base = semver.Intersect(base, exact)
		}
		direct[id] = base
	}

	// Hash the project file as writeEnvironment will write it, so the
	// next staleness check sees this lock as current.
	projectBytes, err := env.project.Marshal()
	if err != nil {
		return nil, errors.Wrap(err, "marshaling project file")
	}
	projectSum := sha256.Sum256(projectBytes)

	req := resolve.Request{Direct: direct, Locked: lockedVersions(env)}
	universe := o.universeFor(env)
	solution, err := resolve.Resolve(universe, req)
	if err != nil {
		return nil, errors.Wrap(err, "resolving dependency graph")
	}

	if err := o.snapshot(env, "update"); err != nil {
		return nil, err
	}
	recordSolvedNames(env, solution, universe)
	env.manifest.Packages = mergeSolutionIntoPackages(env.manifest.Packages, solution, sourced)
	env.manifest.ProjectHash = hex.EncodeToString(projectSum[:])

	if err := o.writeEnvironment(env); err != nil {
		return nil, err
	}
	return &ResolveResult{Solution: solution, Wrote: true}, nil
}

// levelRange bounds the allowed drift from locked at level: the
// highest version component permitted to change is held fixed, the
// rest of the leading components free to move up to the next bump.
func levelRange(locked semver.Version, level UpdateLevel) semver.Range {
	switch level {
	case LevelPatch:
		return semver.MustParseRange("~" + locked.String())
	case LevelMinor:
		return semver.MustParseRange("^" + locked.String())
	default:
		return semver.Any()
	}
}
