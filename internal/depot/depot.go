// Package depot implements orbitpkg's content-addressed on-disk
// package store: installation, override-aware path resolution, usage
// logging, and orphan-aging garbage collection. Cross-process install
// coordination uses github.com/theckman/go-flock pidfile locks, the
// same library golang-dep vendors for its own install safety.
package depot

import (
	"os"
	"path/filepath"
	"time"

	"github.com/theckman/go-flock"
	"github.com/pkg/errors"

	"github.com/orbit-lang/orbitpkg/internal/fsutil"
	"github.com/orbit-lang/orbitpkg/internal/pkgerrors"
	"github.com/orbit-lang/orbitpkg/internal/treehash"
)

// Depot is a single entry of the depot stack: a directory tree with
// packages/, artifacts/, registries/, logs/, dev/, and scratchspaces/
// subdirectories.
type Depot struct {
	Root     string
	ReadOnly bool
}

// Stack is an ordered list of depots, earlier entries writable, later
// ones read-only, mirroring DEPOT_PATH / GOPATH-list semantics.
type Stack []Depot

// Open returns a Stack over dirs, the first entry writable and the
// rest read-only, creating the standard subdirectory layout under the
// first (writable) entry if it doesn't exist yet.
func Open(dirs []string) (Stack, error) {
	if len(dirs) == 0 {
		return nil, errors.New("depot stack requires at least one directory")
	}
	stack := make(Stack, len(dirs))
	for i, d := range dirs {
		stack[i] = Depot{Root: d, ReadOnly: i > 0}
	}
	if err := stack[0].ensureLayout(); err != nil {
		return nil, err
	}
	return stack, nil
}

func (d Depot) ensureLayout() error {
	for _, sub := range []string{"packages", "artifacts", "registries", "logs", "dev", "scratchspaces"} {
		if err := os.MkdirAll(filepath.Join(d.Root, sub), 0o755); err != nil {
			return errors.Wrapf(err, "creating depot subdirectory %s", sub)
		}
	}
	return nil
}

func (d Depot) packagesDir() string      { return filepath.Join(d.Root, "packages") }
func (d Depot) artifactsDir() string     { return filepath.Join(d.Root, "artifacts") }
func (d Depot) registriesDir() string    { return filepath.Join(d.Root, "registries") }
func (d Depot) logsDir() string          { return filepath.Join(d.Root, "logs") }
func (d Depot) devDir() string           { return filepath.Join(d.Root, "dev") }
func (d Depot) scratchspacesDir() string { return filepath.Join(d.Root, "scratchspaces") }

// HashPrefixLen is the number of leading characters of a full tree
// hash used to name a package's install slot directory. Every caller
// that needs to match a slot against a full tree hash -- the usage log,
// GC's live set -- must truncate through HashPrefix first.
const HashPrefixLen = 16

// HashPrefix truncates a full tree hash to the prefix packageSlot
// names install directories with.
func HashPrefix(hash string) string {
	if len(hash) > HashPrefixLen {
		return hash[:HashPrefixLen]
	}
	return hash
}

// packageSlot returns the content-addressed install path for a
// package, e.g. packages/NAME/HASH_PREFIX/.
func (d Depot) packageSlot(name, hash string) string {
	return filepath.Join(d.packagesDir(), name, HashPrefix(hash))
}

func (d Depot) artifactSlot(hash string) string {
	return filepath.Join(d.artifactsDir(), hash)
}

// lockPath is the pidfile lock guarding concurrent installs into the
// same content-addressed slot.
func (d Depot) lockPath(slot string) string {
	return slot + ".lock"
}

// InstallPackage atomically installs the tree at srcDir into this
// depot's content-addressed slot for (name, hash, family), verifying
// the tree hash before making the install visible. It is a no-op if
// the slot is already populated.
func (stack Stack) InstallPackage(name, hash string, family treehash.Family, srcDir string) (string, error) {
	slot, err := stack.installSlot(stack[0].packageSlot(name, hash), hash, family, srcDir)
	if err != nil {
		return "", err
	}
	// The usage log and GC's live set key packages by the same
	// HASH_PREFIX packageSlot names install directories with, not the
	// full tree hash, so lastUsed lookups actually match.
	if err := stack.recordUsage(name, HashPrefix(hash), time.Now()); err != nil {
		return slot, err
	}
	return slot, nil
}

// InstallArtifact installs srcDir into this depot's content-addressed
// artifact slot for hash, verifying its tree hash first. Unlike
// InstallPackage, artifacts are not name-scoped: the hash alone is the
// address.
func (stack Stack) InstallArtifact(hash string, family treehash.Family, srcDir string) (string, error) {
	slot, err := stack.installSlot(stack[0].artifactSlot(hash), hash, family, srcDir)
	if err != nil {
		return "", err
	}
	if err := stack.recordUsage("artifact", hash, time.Now()); err != nil {
		return slot, err
	}
	return slot, nil
}

// installSlot is the shared locked-install-and-verify routine behind
// InstallPackage and InstallArtifact.
func (stack Stack) installSlot(slot, hash string, family treehash.Family, srcDir string) (string, error) {
	d := stack[0]
	if d.ReadOnly {
		return "", errors.New("cannot install into a read-only depot")
	}

	if ok, err := fsutil.IsEmptyDirOrNotExist(slot); err != nil {
		return "", err
	} else if !ok {
		return slot, nil
	}

	lock := flock.NewFlock(d.lockPath(slot))
	locked, err := lock.TryLock()
	if err != nil {
		return "", errors.Wrap(err, "acquiring install lock")
	}
	if !locked {
		if err := lock.Lock(); err != nil {
			return "", errors.Wrap(err, "waiting for install lock")
		}
	}
	defer lock.Unlock()

	// Re-check after acquiring the lock: another process may have
	// finished installing while we waited.
	if ok, err := fsutil.IsEmptyDirOrNotExist(slot); err != nil {
		return "", err
	} else if !ok {
		return slot, nil
	}

	match, err := treehash.Verify(srcDir, hash, family)
	if err != nil {
		return "", err
	}
	if !match {
		got, _ := treehash.Hash(srcDir, family)
		return "", &pkgerrors.HashMismatch{Source: srcDir, Expected: hash, Got: got}
	}

	tmp := slot + ".tmp"
	os.RemoveAll(tmp)
	if err := os.MkdirAll(filepath.Dir(slot), 0o755); err != nil {
		return "", err
	}
	if err := fsutil.CopyTree(srcDir, tmp); err != nil {
		return "", err
	}
	if err := fsutil.RenameWithFallback(tmp, slot); err != nil {
		return "", err
	}
	return slot, nil
}

// DevPath returns the writable depot's checkout directory for a
// develop-mode dependency named name, creating its parent if
// necessary. Unlike the content-addressed package/artifact slots,
// this path is keyed purely by name: development checkouts are mutable
// working trees, not immutable installs.
func (stack Stack) DevPath(name string) (string, error) {
	d := stack[0]
	if d.ReadOnly {
		return "", errors.New("cannot create a develop checkout in a read-only depot")
	}
	path := filepath.Join(d.devDir(), name)
	if err := os.MkdirAll(d.devDir(), 0o755); err != nil {
		return "", err
	}
	return path, nil
}

// RegistryPaths discovers the registries available across the stack by
// listing each depot's registries/ subdirectory, one registry per
// entry. Earlier (more writable) depots
// shadow later ones when both carry a registry of the same name.
func (stack Stack) RegistryPaths() (map[string]string, error) {
	out := make(map[string]string)
	for i := len(stack) - 1; i >= 0; i-- {
		entries, err := os.ReadDir(stack[i].registriesDir())
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, errors.Wrapf(err, "listing registries in %s", stack[i].Root)
		}
		for _, e := range entries {
			if e.IsDir() {
				out[e.Name()] = filepath.Join(stack[i].registriesDir(), e.Name())
			}
		}
	}
	return out, nil
}

// ResolvePath resolves a content hash to its on-disk location,
// applying the Overrides.toml chain (inner/earlier depots override
// outer/later ones) before falling through to the plain
// content-addressed slot in each depot in stack order. An override
// that resolves to an absolute path is returned directly: it names a
// location on disk supplied out of band, not a content-addressed slot,
// so it is used as-is without a tree-hash verification pass.
func (stack Stack) ResolvePath(name, hash string) (string, error) {
	ov, err := stack.loadOverrides()
	if err != nil {
		return "", err
	}
	resolved := ov.resolve(hash)
	if filepath.IsAbs(resolved) {
		return resolved, nil
	}

	for _, d := range stack {
		slot := d.packageSlot(name, resolved)
		if ok, _ := fsutil.IsEmptyDirOrNotExist(slot); !ok {
			return slot, nil
		}
	}
	return "", &pkgerrors.NotFound{Kind: "package", ID: name + "@" + hash}
}

// ResolveArtifactPath is ResolvePath's artifact-directory counterpart.
func (stack Stack) ResolveArtifactPath(hash string) (string, error) {
	ov, err := stack.loadOverrides()
	if err != nil {
		return "", err
	}
	resolved := ov.resolve(hash)
	if filepath.IsAbs(resolved) {
		return resolved, nil
	}

	for _, d := range stack {
		slot := d.artifactSlot(resolved)
		if ok, _ := fsutil.IsEmptyDirOrNotExist(slot); !ok {
			return slot, nil
		}
	}
	return "", &pkgerrors.NotFound{Kind: "artifact", ID: hash}
}
