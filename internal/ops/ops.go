// Package ops implements orbitpkg's operation layer: add, remove,
// update, pin/free, develop, instantiate, resolve, gc, and preview,
// each composing internal/manifest, internal/registry, internal/depot,
// internal/resolve, internal/fetch, internal/vcsfetch, and
// internal/trust the way golang-dep's top-level commands (ensure.go,
// status.go) compose *Ctx and *gps.SourceMgr.
package ops

import (
	"github.com/pkg/errors"

	"github.com/orbit-lang/orbitpkg/internal/depot"
	"github.com/orbit-lang/orbitpkg/internal/fetch"
	"github.com/orbit-lang/orbitpkg/internal/logging"
	"github.com/orbit-lang/orbitpkg/internal/manifest"
	"github.com/orbit-lang/orbitpkg/internal/pkgctx"
	"github.com/orbit-lang/orbitpkg/internal/pkgid"
	"github.com/orbit-lang/orbitpkg/internal/registry"
	"github.com/orbit-lang/orbitpkg/internal/resolve"
	"github.com/orbit-lang/orbitpkg/internal/semver"
	"github.com/orbit-lang/orbitpkg/internal/trust"
)

const hostMajor, hostMinor = 1, 0

// Operations bundles the context and collaborators every operation
// needs. Build one with New per invocation; it carries no state beyond
// what Ctx and the opened registries/depot already hold.
type Operations struct {
	Ctx        *pkgctx.Ctx
	Depot      depot.Stack
	Registries []*registry.Store
	Trust      *trust.Policy
	Fetcher    *fetch.Fetcher
	Log        *logging.Logger
}

// New opens the depot stack named in ctx and every registry in
// registryPaths (name -> path), building an Operations ready to run
// against a project directory.
func New(ctx *pkgctx.Ctx, registryPaths map[string]string, log *logging.Logger) (*Operations, error) {
	d, err := depot.Open(ctx.DepotDirs)
	if err != nil {
		return nil, errors.Wrap(err, "opening depot stack")
	}

	trusted := make([]pkgid.ID, 0, len(ctx.TrustedRegistries))
	for _, s := range ctx.TrustedRegistries {
		id, err := pkgid.Parse(s)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid trusted registry uuid %q", s)
		}
		trusted = append(trusted, id)
	}
	policy := trust.NewPolicy(trusted, true, ctx.Offline)
	if log != nil {
		policy.Warn = func(msg string) { log.Logln(msg) }
	}

	var stores []*registry.Store
	for name, path := range registryPaths {
		s, err := registry.Open(name, path, trusted)
		if err != nil {
			return nil, errors.Wrapf(err, "opening registry %q", name)
		}
		stores = append(stores, s)
	}

	return &Operations{
		Ctx:        ctx,
		Depot:      d,
		Registries: stores,
		Trust:      policy,
		Fetcher:    fetch.New(fetch.WithConcurrency(ctx.Concurrency)),
		Log:        log,
	}, nil
}

// environment is a loaded, in-memory (project, manifest) pair for one
// directory, the unit every mutating operation snapshots for undo and
// writes back atomically.
type environment struct {
	dir      string
	project  *manifest.Project
	manifest *manifest.Manifest
}

func (o *Operations) loadEnvironment(dir string) (*environment, error) {
	p, err := manifest.ReadProject(dir)
	if err != nil {
		return nil, errors.Wrap(err, "reading project file")
	}

	var m *manifest.Manifest
	if manifest.SelectManifestPath(dir, hostMajor, hostMinor) == "" {
		m = &manifest.Manifest{
			FormatVersion: manifest.CurrentManifestFormat,
			Packages:      make(map[pkgid.ID]manifest.PackageRecord),
			Names:         make(map[pkgid.ID]string),
		}
	} else {
		m, err = manifest.ReadManifest(dir, hostMajor, hostMinor)
		if err != nil {
			return nil, errors.Wrap(err, "reading manifest file")
		}
	}

	return &environment{dir: dir, project: p, manifest: m}, nil
}

// snapshot marshals env's in-memory project and manifest onto the
// undo stack, labeled
// for display by a later `undo`/`redo` listing.
func (o *Operations) snapshot(env *environment, label string) error {
	if o.Ctx.History() == nil {
		return nil
	}
	projectBytes, err := env.project.Marshal()
	if err != nil {
		return err
	}
	manifestBytes, err := env.manifest.Marshal(projectNameIndex(env.project))
	if err != nil {
		return err
	}
	o.Ctx.History().Push(pkgctx.Snapshot{Label: label, Project: projectBytes, Manifest: manifestBytes})
	return nil
}

// universeFor builds a resolve.Universe over o's registries, in
// offline mode restricted to env's currently locked versions.
func (o *Operations) universeFor(env *environment) *registryUniverse {
	return newRegistryUniverse(o.Registries, o.Trust, lockedVersions(env))
}

// writeEnvironment persists env's project and manifest. Both are
// marshaled first, so a marshaling error writes neither; then the
// manifest and the project file are each written atomically (temp
// file plus rename), one after the other. The pair as a whole is not
// atomic: a crash between the two writes leaves the new manifest
// beside the old project file.
func (o *Operations) writeEnvironment(env *environment) error {
	nameOf := make(map[string]string, len(env.project.Deps))
	for name, id := range env.project.Deps {
		nameOf[id.String()] = name
	}

	// Validate both documents marshal cleanly before writing either, so
	// a bad in-memory edit never clobbers a good on-disk file.
	if _, err := env.project.Marshal(); err != nil {
		return errors.Wrap(err, "marshaling project file")
	}
	if _, err := env.manifest.Marshal(projectNameIndex(env.project)); err != nil {
		return errors.Wrap(err, "marshaling manifest file")
	}

	if err := manifest.WriteManifest(env.dir, env.manifest, nameOf, hostMajor, hostMinor); err != nil {
		return errors.Wrap(err, "writing manifest file")
	}
	if err := manifest.WriteProject(env.dir, env.project); err != nil {
		return errors.Wrap(err, "writing project file")
	}
	return nil
}

// projectNameIndex builds the UUID->declared-name map manifest.Marshal
// needs, from a project's direct dependency table.
func projectNameIndex(p *manifest.Project) map[pkgid.ID]string {
	out := make(map[pkgid.ID]string, len(p.Deps))
	for name, id := range p.Deps {
		out[id] = name
	}
	return out
}

// recordSolvedNames fills in env.manifest.Names for every package a
// fresh Solution resolved, so Marshal has a name for transitive
// dependencies that never get an entry in Project.Deps (only direct
// dependencies do). Names already known -- from a prior lock file, or
// because the package is also a direct dependency -- are left as-is.
func recordSolvedNames(env *environment, sol *resolve.Solution, universe *registryUniverse) {
	if env.manifest.Names == nil {
		env.manifest.Names = make(map[pkgid.ID]string, len(sol.Versions))
	}
	for id := range sol.Versions {
		if _, ok := env.manifest.Names[id]; ok {
			continue
		}
		env.manifest.Names[id] = universe.Name(id)
	}
}

// lockedVersions extracts the currently resolved version of each
// package in env's manifest, the fallback resolve.Universe draws from
// when o.Trust.Offline forbids contacting a registry.
func lockedVersions(env *environment) map[pkgid.ID]semver.Version {
	out := make(map[pkgid.ID]semver.Version, len(env.manifest.Packages))
	for id, rec := range env.manifest.Packages {
		out[id] = rec.Version
	}
	return out
}
