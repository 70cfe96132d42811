// Package registry loads and indexes orbitpkg registries: collections
// of PackageEntry records keyed by UUID and version, served either
// from an unpacked directory tree or a packed tarball. It mirrors
// golang-dep's toml.go/registry_config.go approach of mapping TOML
// straight into small raw structs, generalized to go-toml/v2's
// struct-tag-driven Marshal/Unmarshal.
package registry

import (
	"github.com/orbit-lang/orbitpkg/internal/pkgid"
	"github.com/orbit-lang/orbitpkg/internal/semver"
)

// PackageEntry is the per-(UUID, Version) record a registry carries:
// content tree hash, resolved dependency names, compat ranges, and an
// optional artifact bindings reference.
type PackageEntry struct {
	UUID         pkgid.ID
	Name         string
	Version      semver.Version
	TreeHash     string
	HashFamily   string // "legacy160" or "modern256"
	Deps         map[string]pkgid.ID          // dep name -> dep UUID
	Compat       map[pkgid.ID]semver.Range    // dep UUID -> compat range
	ArtifactsRef string                       // path to this version's Artifacts.toml, if any
	Yanked       bool
}

// Entries is the full set of versions a registry carries for one
// package UUID, kept sorted ascending by Version.
type Entries struct {
	UUID     pkgid.ID
	Name     string
	Versions []PackageEntry
}

// Form distinguishes how a registry is physically stored.
type Form int

const (
	// Unpacked is a directory tree of per-package subdirectories.
	Unpacked Form = iota
	// Packed is a single tarball read lazily.
	Packed
)

// Info identifies a registry: its UUID, human name, trust set, and
// physical location.
type Info struct {
	UUID    pkgid.ID
	Name    string
	Path    string
	Form    Form
	Trusted []pkgid.ID
}
