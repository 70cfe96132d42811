package manifest

import (
	"fmt"
	"regexp"

	"github.com/pkg/errors"

	"github.com/orbit-lang/orbitpkg/internal/pkgid"
	"github.com/orbit-lang/orbitpkg/internal/semver"
)

// CurrentManifestFormat is the lock format version this build writes.
const CurrentManifestFormat = "2.0"

// ManifestBaseName is used when no version-specific file exists yet.
const ManifestBaseName = "Manifest.toml"

var versionedManifestRE = regexp.MustCompile(`^Manifest-v(\d+)\.(\d+)\.toml$`)

// VersionedManifestName returns the versioned lock filename for a
// given host-language major.minor, e.g. "Manifest-v1.9.toml".
func VersionedManifestName(major, minor uint64) string {
	return fmt.Sprintf("Manifest-v%d.%d.toml", major, minor)
}

// ParseVersionedManifestName extracts the (major, minor) pair from a
// versioned manifest filename, reporting false if name isn't one.
func ParseVersionedManifestName(name string) (major, minor uint64, ok bool) {
	m := versionedManifestRE.FindStringSubmatch(name)
	if m == nil {
		return 0, 0, false
	}
	var maj, min uint64
	fmt.Sscanf(m[1], "%d", &maj)
	fmt.Sscanf(m[2], "%d", &min)
	return maj, min, true
}

// PackageRecord is one locked package's resolved state.
type PackageRecord struct {
	UUID     pkgid.ID
	Version  semver.Version
	TreeHash string

	Deps map[string]pkgid.ID // resolved dep name -> uuid, as locked

	// These reflect the package's lifecycle kind: RepoURL and RepoRev
	// for a VCS-tracked package, Path for a develop path, Pinned for a
	// pinned version.
	RepoURL string
	RepoRev string
	Path    string
	Pinned  bool
}

// Manifest is the typed, validated form of a ManifestFile (lock).
type Manifest struct {
	FormatVersion string
	HostVersion   semver.Version
	ProjectHash   string
	Packages      map[pkgid.ID]PackageRecord

	// Names records each package's on-disk TOML key (its declared
	// name), as last read from or written to the lock file. A direct
	// dependency's name also lives in the owning Project's Deps table,
	// but a transitive dependency -- resolved into Packages without
	// ever being added to Project.Deps -- has no other home for its
	// name, so Marshal falls back to this map for any id a caller's
	// nameOf doesn't cover.
	Names map[pkgid.ID]string
}

type rawManifest struct {
	FormatVersion string                    `toml:"manifest_format"`
	HostVersion   string                    `toml:"julia_version,omitempty"`
	ProjectHash   string                    `toml:"project_hash,omitempty"`
	Deps          map[string]rawLockedEntry `toml:"deps"`
}

type rawLockedEntry struct {
	UUID     string            `toml:"uuid"`
	Version  string            `toml:"version,omitempty"`
	TreeHash string            `toml:"git-tree-sha1,omitempty"`
	Deps     map[string]string `toml:"deps,omitempty"`
	RepoURL  string            `toml:"repo-url,omitempty"`
	RepoRev  string            `toml:"repo-rev,omitempty"`
	Path     string            `toml:"path,omitempty"`
	Pinned   bool              `toml:"pinned,omitempty"`
}

// ParseManifest decodes raw TOML bytes into a validated Manifest,
// auto-upgrading a bare 1.0-style file (no manifest_format key,
// implicitly 1.0) to the current in-memory representation.
func ParseManifest(data []byte) (*Manifest, error) {
	var rm rawManifest
	if err := unmarshalTOML(data, &rm); err != nil {
		return nil, errors.Wrap(err, "parsing manifest file")
	}

	if rm.FormatVersion == "" {
		rm.FormatVersion = "1.0"
	}

	m := &Manifest{
		FormatVersion: rm.FormatVersion,
		ProjectHash:   rm.ProjectHash,
		Packages:      make(map[pkgid.ID]PackageRecord),
		Names:         make(map[pkgid.ID]string, len(rm.Deps)),
	}
	if rm.HostVersion != "" {
		v, err := semver.Parse(rm.HostVersion)
		if err != nil {
			return nil, errors.Wrap(err, "invalid julia_version")
		}
		m.HostVersion = v
	}

	for name, e := range rm.Deps {
		id, err := pkgid.Parse(e.UUID)
		if err != nil {
			return nil, errors.Wrapf(err, "package %q has invalid uuid", name)
		}
		rec := PackageRecord{
			UUID:     id,
			TreeHash: e.TreeHash,
			RepoURL:  e.RepoURL,
			RepoRev:  e.RepoRev,
			Path:     e.Path,
			Pinned:   e.Pinned,
		}
		if e.Version != "" {
			v, err := semver.Parse(e.Version)
			if err != nil {
				return nil, errors.Wrapf(err, "package %q has invalid version", name)
			}
			rec.Version = v
		}
		if len(e.Deps) > 0 {
			rec.Deps = make(map[string]pkgid.ID, len(e.Deps))
			if err := parseIDMap(e.Deps, rec.Deps); err != nil {
				return nil, errors.Wrapf(err, "package %q deps", name)
			}
		}
		m.Packages[id] = rec
		m.Names[id] = name
	}

	if err := m.upgrade(); err != nil {
		return nil, err
	}
	return m, nil
}

// upgrade migrates an older in-memory Manifest to the current format
// in place. 1.0 manifests carried no lifecycle disambiguation beyond
// the fields present, which the 2.0 representation already covers
// field-for-field, so the upgrade is purely a version-tag bump; kept
// as an explicit step so a future 3.0 migration has a home.
func (m *Manifest) upgrade() error {
	if m.FormatVersion == CurrentManifestFormat {
		return nil
	}
	if m.FormatVersion != "1.0" {
		return errors.Errorf("unsupported manifest format %q", m.FormatVersion)
	}
	m.FormatVersion = CurrentManifestFormat
	return nil
}

// Marshal serializes m back to ManifestFile TOML at the current
// format version, keyed by package name (the on-disk TOML key),
// looked up in nameOf.
func (m *Manifest) Marshal(nameOf map[pkgid.ID]string) ([]byte, error) {
	rm := rawManifest{
		FormatVersion: CurrentManifestFormat,
		ProjectHash:   m.ProjectHash,
		Deps:          make(map[string]rawLockedEntry, len(m.Packages)),
	}
	if !m.HostVersion.IsZero() {
		rm.HostVersion = m.HostVersion.String()
	}

	if m.Names == nil {
		m.Names = make(map[pkgid.ID]string, len(m.Packages))
	}

	for id, rec := range m.Packages {
		name, ok := nameOf[id]
		if !ok {
			name, ok = m.Names[id]
		}
		if !ok {
			return nil, errors.Errorf("no name recorded for package %s", id)
		}
		m.Names[id] = name
		entry := rawLockedEntry{
			UUID:     id.String(),
			TreeHash: rec.TreeHash,
			RepoURL:  rec.RepoURL,
			RepoRev:  rec.RepoRev,
			Path:     rec.Path,
			Pinned:   rec.Pinned,
		}
		if !rec.Version.IsZero() {
			entry.Version = rec.Version.String()
		}
		if len(rec.Deps) > 0 {
			entry.Deps = idMapToStrings(rec.Deps)
		}
		rm.Deps[name] = entry
	}

	return marshalTOML(rm)
}

// IsCurrent reports whether the manifest's recorded project hash
// matches projectHash, the staleness check gating instantiate/resolve
// from needing a full re-resolve.
func (m *Manifest) IsCurrent(projectHash string) bool {
	return m.ProjectHash != "" && m.ProjectHash == projectHash
}
