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

// ResolveResult reports what a Resolve call computed and whether it
// changed anything on disk.
type ResolveResult struct {
	Solution *resolve.Solution
	Wrote    bool
}

// ResolveOptions configures a Resolve call beyond the defaults the
// `orbitpkg resolve`/instantiate-on-stale-lock path uses.
type ResolveOptions struct {
	// Force re-resolves even if the manifest's ProjectHash already
	// matches dir's current Project.toml.
	Force bool
	// DryRun computes a Solution but never writes Manifest.toml,
	// the backing behavior for the `preview` operation.
	DryRun bool
}

// Resolve (re-)solves dir's dependency graph against the registries
// and registry/depot trust policy o was built with, merging workspace
// compat ranges per manifest.MergeWorkspace, and writes the result
// back to dir's lock file unless opts.DryRun is set.
//
// It is staleness-gated: if the existing manifest's recorded
// ProjectHash already matches the project file's current hash, and
// opts.Force is false, it returns the manifest's existing versions
// without invoking the solver at all.
func (o *Operations) Resolve(dir string, opts ResolveOptions) (*ResolveResult, error) {
	root, merged, err := manifest.MergeWorkspace(dir)
	if err != nil {
		return nil, errors.Wrap(err, "merging workspace compat")
	}

	env, err := o.loadEnvironment(dir)
	if err != nil {
		return nil, err
	}
	env.project = root

	projectHash, err := manifest.ProjectHash(dir)
	if err != nil {
		return nil, errors.Wrap(err, "hashing project file")
	}

	if !opts.Force && env.manifest.IsCurrent(projectHash) {
		return &ResolveResult{Solution: &resolve.Solution{Versions: lockedVersions(env)}}, nil
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
			continue // develop/VCS-pinned deps bypass registry resolution entirely
		}
		if r, ok := merged.Ranges[id]; ok {
			direct[id] = r
		} else {
			direct[id] = semver.Any()
		}
		if rec, ok := env.manifest.Packages[id]; ok && rec.Pinned {
			exact, err := semver.ParseRange("=" + rec.Version.String())
			if err != nil {
				return nil, errors.Wrapf(err, "pinned version of %s", id)
			}
			direct[id] = semver.Intersect(direct[id], exact)
		}
	}

	req := resolve.Request{
		Direct: direct,
		Locked: lockedVersions(env),
	}

	var solveOpts []resolve.Option
	for _, rec := range env.manifest.Packages {
		if rec.Pinned {
			solveOpts = append(solveOpts, resolve.WithFixedTier(resolve.TierAll))
			break
		}
	}

	universe := o.universeFor(env)
	solution, err := resolve.Resolve(universe, req, solveOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "resolving dependency graph")
	}

	if opts.DryRun {
		return &ResolveResult{Solution: solution}, nil
	}

	if err := o.snapshot(env, "resolve"); err != nil {
		return nil, errors.Wrap(err, "snapshotting pre-resolve state")
	}

	recordSolvedNames(env, solution, universe)
	env.manifest.Packages = mergeSolutionIntoPackages(env.manifest.Packages, solution, sourced)
	// Hash the project file as writeEnvironment is about to write it,
	// so the next staleness check sees this lock as current.
	projectBytes, err := env.project.Marshal()
	if err != nil {
		return nil, errors.Wrap(err, "marshaling project file")
	}
	sum := sha256.Sum256(projectBytes)
	env.manifest.ProjectHash = hex.EncodeToString(sum[:])

	if err := o.writeEnvironment(env); err != nil {
		return nil, errors.Wrap(err, "writing resolved environment")
	}

	return &ResolveResult{Solution: solution, Wrote: true}, nil
}

// mergeSolutionIntoPackages folds a fresh Solution into the manifest's
// existing package records. Solver-managed packages take the solved
// version (a package the solution no longer needs is dropped);
// sourced packages (develop or VCS-pinned, never handed to the
// solver) are carried over untouched.
func mergeSolutionIntoPackages(existing map[pkgid.ID]manifest.PackageRecord, sol *resolve.Solution, sourced map[pkgid.ID]bool) map[pkgid.ID]manifest.PackageRecord {
	out := make(map[pkgid.ID]manifest.PackageRecord, len(sol.Versions)+len(sourced))
	for id, v := range sol.Versions {
		rec, ok := existing[id]
		if !ok {
			rec = manifest.PackageRecord{UUID: id}
		}
		rec.Version = v
		out[id] = rec
	}
	for id, rec := range existing {
		if sourced[id] {
			out[id] = rec
		}
	}
	return out
}
