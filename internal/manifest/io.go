package manifest

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/orbit-lang/orbitpkg/internal/fsutil"
	"github.com/orbit-lang/orbitpkg/internal/pkgid"
)

// ReadProject reads and parses dir/Project.toml.
func ReadProject(dir string) (*Project, error) {
	data, err := os.ReadFile(filepath.Join(dir, ProjectFileName))
	if err != nil {
		return nil, errors.Wrap(err, "reading project file")
	}
	return ParseProject(data)
}

// WriteProject atomically writes p to dir/Project.toml.
func WriteProject(dir string, p *Project) error {
	data, err := p.Marshal()
	if err != nil {
		return err
	}
	return fsutil.WriteFileAtomic(filepath.Join(dir, ProjectFileName), data, 0o644)
}

// ProjectHash returns the hex sha256 of a project file's raw bytes,
// the staleness-detector value a Manifest's ProjectHash field is
// compared against.
func ProjectHash(dir string) (string, error) {
	data, err := os.ReadFile(filepath.Join(dir, ProjectFileName))
	if err != nil {
		return "", errors.Wrap(err, "reading project file for hashing")
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// ReadManifest selects and reads dir's lock file, preferring
// Manifest-vMAJOR.MINOR.toml (for the given running host version) over
// the bare Manifest.toml if the versioned form exists.
func ReadManifest(dir string, hostMajor, hostMinor uint64) (*Manifest, error) {
	path := SelectManifestPath(dir, hostMajor, hostMinor)
	if path == "" {
		return nil, errors.Errorf("no manifest file found in %s", dir)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading manifest file")
	}
	return ParseManifest(data)
}

// SelectManifestPath returns the path orbitpkg should read/write for
// dir's lock file: the versioned form if present and matching the
// running host version, otherwise the bare Manifest.toml path if that
// exists, otherwise "".
func SelectManifestPath(dir string, hostMajor, hostMinor uint64) string {
	versioned := filepath.Join(dir, VersionedManifestName(hostMajor, hostMinor))
	if _, err := os.Stat(versioned); err == nil {
		return versioned
	}
	bare := filepath.Join(dir, ManifestBaseName)
	if _, err := os.Stat(bare); err == nil {
		return bare
	}
	return ""
}

// WriteManifest atomically writes m to dir, using the versioned
// filename for the given host version so multiple host-language
// versions can keep independent locks side by side. nameOf maps each
// package's UUID string to its on-disk TOML key (package name).
func WriteManifest(dir string, m *Manifest, nameOf map[string]string, hostMajor, hostMinor uint64) error {
	byID := make(map[pkgid.ID]string, len(nameOf))
	for uuidStr, name := range nameOf {
		id, err := pkgid.Parse(uuidStr)
		if err != nil {
			return errors.Wrapf(err, "invalid uuid %q in name map", uuidStr)
		}
		byID[id] = name
	}

	data, err := m.Marshal(byID)
	if err != nil {
		return err
	}
	path := filepath.Join(dir, VersionedManifestName(hostMajor, hostMinor))
	return fsutil.WriteFileAtomic(path, data, 0o644)
}
