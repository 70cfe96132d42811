package ops

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/orbit-lang/orbitpkg/internal/artifact"
	"github.com/orbit-lang/orbitpkg/internal/fsutil"
	"github.com/orbit-lang/orbitpkg/internal/manifest"
	"github.com/orbit-lang/orbitpkg/internal/pkgerrors"
	"github.com/orbit-lang/orbitpkg/internal/registry"
	"github.com/orbit-lang/orbitpkg/internal/treehash"
	"github.com/orbit-lang/orbitpkg/internal/vcsfetch"
)

// PackageServerURL, if set, is the base URL used to fetch a registered
// package's source tarball by (uuid, tree-hash) for registries served
// in packed (tarball) form, following the path convention
// "<base>/package/<uuid>/<tree-hash>" -- the same shape Julia's
// pkg-server protocol uses. Unpacked registries need no such server:
// their package content already lives on disk at
// "<registry path>/packages/<name>/<tree-hash>", so instantiate copies
// it directly without a network round-trip.
type PackageServerURL string

// InstantiateResult reports what instantiate materialized.
type InstantiateResult struct {
	Installed []string // dependency names newly installed this call
	Skipped   []string // already present in the depot
}

// Instantiate makes every package in dir's current Manifest actually
// present on disk: registry-tracked entries are installed into the
// depot (copied straight from an unpacked registry, or downloaded and
// verified for a packed one), develop/path entries are left as-is
// (they're already a live working tree), and VCS-tracked entries are
// checked out to their locked revision if missing. It never
// re-resolves; a stale manifest is the caller's problem (surface it
// via Resolve's staleness check first).
func (o *Operations) Instantiate(dir string, server PackageServerURL) (*InstantiateResult, error) {
	env, err := o.loadEnvironment(dir)
	if err != nil {
		return nil, err
	}

	nameByID := make(map[string]string, len(env.project.Deps))
	for name, id := range env.project.Deps {
		nameByID[id.String()] = name
	}

	result := &InstantiateResult{}
	for id, rec := range env.manifest.Packages {
		name := env.manifest.Names[id]
		if name == "" {
			name = nameByID[id.String()]
		}
		if name == "" {
			name = id.String()
		}

		switch {
		case rec.Path != "":
			result.Skipped = append(result.Skipped, name)
			continue

		case rec.RepoURL != "":
			installed, err := o.instantiateVCS(name, rec)
			if err != nil {
				return nil, errors.Wrapf(err, "instantiating %s", name)
			}
			if installed {
				result.Installed = append(result.Installed, name)
			} else {
				result.Skipped = append(result.Skipped, name)
			}

		default:
			installed, err := o.instantiateRegistry(name, rec, server)
			if err != nil {
				return nil, errors.Wrapf(err, "instantiating %s", name)
			}
			if installed {
				result.Installed = append(result.Installed, name)
			} else {
				result.Skipped = append(result.Skipped, name)
			}
		}
	}
	return result, nil
}

func (o *Operations) instantiateVCS(name string, rec manifest.PackageRecord) (bool, error) {
	checkoutDir, err := o.Depot.DevPath(name)
	if err != nil {
		return false, err
	}
	if ok, err := alreadyCheckedOut(checkoutDir); err != nil {
		return false, err
	} else if ok {
		return false, nil
	}

	if err := o.Trust.GuardNetwork("checkout of " + rec.RepoURL); err != nil {
		return false, err
	}

	co, err := vcsfetch.New(rec.RepoURL, checkoutDir)
	if err != nil {
		return false, err
	}
	ctx := context.Background()
	if err := co.Get(ctx); err != nil {
		return false, err
	}
	if rec.RepoRev != "" {
		if err := co.CheckoutRev(ctx, rec.RepoRev); err != nil {
			return false, err
		}
	}
	return true, nil
}

func (o *Operations) instantiateRegistry(name string, rec manifest.PackageRecord, server PackageServerURL) (bool, error) {
	if _, err := o.Depot.ResolvePath(name, rec.TreeHash); err == nil {
		return false, nil
	}

	entry, info, err := o.findRegistryEntry(name, rec)
	if err != nil {
		return false, err
	}

	family := treehash.Modern256
	if entry.HashFamily == "legacy160" {
		family = treehash.Legacy160
	}

	if info.Form == registry.Unpacked {
		srcDir := filepath.Join(info.Path, "packages", entry.Name, entry.TreeHash)
		if _, err := o.Depot.InstallPackage(name, rec.TreeHash, family, srcDir); err != nil {
			return false, errors.Wrapf(err, "installing %s from unpacked registry %s", name, info.Name)
		}
		return true, nil
	}

	if server == "" {
		return false, &pkgerrors.NotFound{Kind: "package source", ID: name + "@" + rec.TreeHash}
	}
	if err := o.Trust.GuardNetwork("download of " + name); err != nil {
		return false, err
	}

	url := fmt.Sprintf("%s/package/%s/%s", server, entry.UUID, entry.TreeHash)
	local, err := o.Fetcher.Fetch(url)
	if err != nil {
		return false, err
	}

	extractDir, err := os.MkdirTemp("", "orbitpkg-instantiate-*")
	if err != nil {
		return false, err
	}
	defer os.RemoveAll(extractDir)
	defer os.Remove(local)

	if err := artifact.ExtractTarball(local, extractDir); err != nil {
		return false, errors.Wrapf(err, "extracting package source for %s", name)
	}
	if _, err := o.Depot.InstallPackage(name, rec.TreeHash, family, extractDir); err != nil {
		return false, errors.Wrapf(err, "installing %s from package server", name)
	}
	return true, nil
}

// findRegistryEntry locates the registry.PackageEntry and its owning
// registry.Info for rec across every open registry.
func (o *Operations) findRegistryEntry(name string, rec manifest.PackageRecord) (registry.PackageEntry, registry.Info, error) {
	for _, s := range o.Registries {
		entries, err := s.Lookup(rec.UUID, nil)
		if err != nil {
			continue
		}
		for _, pe := range entries.Versions {
			if pe.TreeHash == rec.TreeHash {
				return pe, s.Info(), nil
			}
		}
	}
	return registry.PackageEntry{}, registry.Info{}, &pkgerrors.NotFound{Kind: "registry entry", ID: name + "@" + rec.TreeHash}
}

// alreadyCheckedOut reports whether a VCS develop/tracked checkout
// directory already has content, so Instantiate can skip a redundant
// clone.
func alreadyCheckedOut(dir string) (bool, error) {
	ok, err := fsutil.IsEmptyDirOrNotExist(dir)
	if err != nil {
		return false, err
	}
	return !ok, nil
}
