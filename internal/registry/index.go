package registry

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/orbit-lang/orbitpkg/internal/pkgid"
	"github.com/orbit-lang/orbitpkg/internal/semver"
)

// buildIndex walks the registry (unpacked directory tree, or packed
// tarball member list) and produces the in-memory UUID index.
func (s *Store) buildIndex() (map[pkgid.ID]*Entries, error) {
	if s.info.Form == Packed {
		return s.buildIndexPacked()
	}
	return s.buildIndexUnpacked()
}

// buildIndexUnpacked assumes the Julia-General-style registry layout:
// one subdirectory per package (grouped by first letter), each holding
// Package.toml, Versions.toml, Deps.toml, and Compat.toml.
func (s *Store) buildIndexUnpacked() (map[pkgid.ID]*Entries, error) {
	root := s.info.Path
	out := make(map[pkgid.ID]*Entries)

	letterDirs, err := os.ReadDir(root)
	if err != nil {
		return nil, errors.Wrapf(err, "reading registry root %s", root)
	}
	for _, ld := range letterDirs {
		if !ld.IsDir() || len(ld.Name()) != 1 {
			continue
		}
		letterPath := filepath.Join(root, ld.Name())
		pkgDirs, err := os.ReadDir(letterPath)
		if err != nil {
			return nil, err
		}
		for _, pd := range pkgDirs {
			if !pd.IsDir() {
				continue
			}
			pkgPath := filepath.Join(letterPath, pd.Name())
			entries, err := loadPackageDir(pkgPath)
			if err != nil {
				return nil, errors.Wrapf(err, "loading package dir %s", pkgPath)
			}
			if entries != nil {
				out[entries.UUID] = entries
			}
		}
	}
	return out, nil
}

func loadPackageDir(dir string) (*Entries, error) {
	pkgData, err := os.ReadFile(filepath.Join(dir, "Package.toml"))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var rp rawPackage
	if err := unmarshalTOML(pkgData, &rp); err != nil {
		return nil, err
	}
	uuid, err := pkgid.Parse(rp.UUID)
	if err != nil {
		return nil, errors.Wrapf(err, "package %s has invalid uuid", rp.Name)
	}

	verData, err := os.ReadFile(filepath.Join(dir, "Versions.toml"))
	if err != nil {
		return nil, errors.Wrapf(err, "reading Versions.toml for %s", rp.Name)
	}
	var rv rawVersions
	if err := unmarshalTOML(verData, &rv); err != nil {
		return nil, err
	}

	var rd rawDeps
	if data, err := os.ReadFile(filepath.Join(dir, "Deps.toml")); err == nil {
		if err := unmarshalTOML(data, &rd); err != nil {
			return nil, err
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	var rc rawCompat
	if data, err := os.ReadFile(filepath.Join(dir, "Compat.toml")); err == nil {
		if err := unmarshalTOML(data, &rc); err != nil {
			return nil, err
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	entries := &Entries{UUID: uuid, Name: rp.Name}
	for verStr, ve := range rv.Versions {
		v, err := semver.Parse(verStr)
		if err != nil {
			return nil, errors.Wrapf(err, "package %s has invalid version %q", rp.Name, verStr)
		}

		pe := PackageEntry{
			UUID:    uuid,
			Name:    rp.Name,
			Version: v,
			Yanked:  ve.Yanked,
		}
		if ve.TreeHash256 != "" {
			pe.TreeHash = ve.TreeHash256
			pe.HashFamily = "modern256"
		} else {
			pe.TreeHash = ve.GitTreeSHA1
			pe.HashFamily = "legacy160"
		}

		deps, err := depsForVersion(rd, v)
		if err != nil {
			return nil, err
		}
		pe.Deps = deps

		compat, err := compatForVersion(rc, deps, v)
		if err != nil {
			return nil, err
		}
		pe.Compat = compat

		entries.Versions = append(entries.Versions, pe)
	}
	sortEntries(entries.Versions)
	return entries, nil
}

// depsForVersion unions every range-keyed Deps.toml section whose
// range contains v, the way a Julia-General-style registry lets one
// dependency set cover a span of versions instead of repeating it per
// release.
func depsForVersion(rd rawDeps, v semver.Version) (map[string]pkgid.ID, error) {
	out := make(map[string]pkgid.ID)
	for rangeKey, depMap := range rd.Deps {
		r, err := parseRangeKey(rangeKey)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid Deps.toml range key %q", rangeKey)
		}
		if !r.Contains(v) {
			continue
		}
		for name, uuidStr := range depMap {
			id, err := pkgid.Parse(uuidStr)
			if err != nil {
				return nil, errors.Wrapf(err, "dep %q has invalid uuid", name)
			}
			out[name] = id
		}
	}
	return out, nil
}

// parseRangeKey parses a Deps.toml/Compat.toml section key. Registries
// write hyphen ranges compactly ("1.0.0-1.1.0"); ParseRange needs
// whitespace around the dash, so the first dash is spaced out first.
func parseRangeKey(key string) (semver.Range, error) {
	if !strings.Contains(key, " - ") {
		if i := strings.Index(key, "-"); i > 0 {
			key = key[:i] + " - " + key[i+1:]
		}
	}
	return semver.ParseRange(key)
}

func compatForVersion(rc rawCompat, deps map[string]pkgid.ID, v semver.Version) (map[pkgid.ID]semver.Range, error) {
	out := make(map[pkgid.ID]semver.Range)
	for rangeKey, compatMap := range rc.Compat {
		r, err := parseRangeKey(rangeKey)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid Compat.toml range key %q", rangeKey)
		}
		if !r.Contains(v) {
			continue
		}
		for name, rangeStr := range compatMap {
			id, ok := deps[name]
			if !ok {
				continue
			}
			cr, err := semver.ParseRange(rangeStr)
			if err != nil {
				return nil, errors.Wrapf(err, "dep %q has invalid compat range %q", name, rangeStr)
			}
			if existing, ok := out[id]; ok {
				out[id] = semver.Union(existing, cr)
			} else {
				out[id] = cr
			}
		}
	}
	return out, nil
}

// buildIndexPacked reads a gzipped tar archive whose internal layout
// matches the unpacked form, without ever extracting it to disk --
// matching the spec's "lazy in-memory index for packed" requirement.
func (s *Store) buildIndexPacked() (map[pkgid.ID]*Entries, error) {
	files, err := readAllTarballMembers(s.info.Path)
	if err != nil {
		return nil, err
	}

	dirs := make(map[string]bool)
	for name := range files {
		dirs[filepath.Dir(name)] = true
	}

	packages := make(map[string]map[string][]byte)
	for name, data := range files {
		dir := filepath.Dir(name)
		base := filepath.Base(name)
		if base != "Package.toml" && base != "Versions.toml" && base != "Deps.toml" && base != "Compat.toml" {
			continue
		}
		if packages[dir] == nil {
			packages[dir] = make(map[string][]byte)
		}
		packages[dir][base] = data
	}

	out := make(map[pkgid.ID]*Entries)
	for dir, fileset := range packages {
		if fileset["Package.toml"] == nil || fileset["Versions.toml"] == nil {
			continue
		}
		entries, err := loadPackageFromBytes(fileset)
		if err != nil {
			return nil, errors.Wrapf(err, "loading packed package at %s", dir)
		}
		out[entries.UUID] = entries
	}
	return out, nil
}

func loadPackageFromBytes(fileset map[string][]byte) (*Entries, error) {
	var rp rawPackage
	if err := unmarshalTOML(fileset["Package.toml"], &rp); err != nil {
		return nil, err
	}
	uuid, err := pkgid.Parse(rp.UUID)
	if err != nil {
		return nil, err
	}

	var rv rawVersions
	if err := unmarshalTOML(fileset["Versions.toml"], &rv); err != nil {
		return nil, err
	}
	var rd rawDeps
	if fileset["Deps.toml"] != nil {
		if err := unmarshalTOML(fileset["Deps.toml"], &rd); err != nil {
			return nil, err
		}
	}
	var rc rawCompat
	if fileset["Compat.toml"] != nil {
		if err := unmarshalTOML(fileset["Compat.toml"], &rc); err != nil {
			return nil, err
		}
	}

	entries := &Entries{UUID: uuid, Name: rp.Name}
	for verStr, ve := range rv.Versions {
		v, err := semver.Parse(verStr)
		if err != nil {
			return nil, err
		}
		pe := PackageEntry{UUID: uuid, Name: rp.Name, Version: v, Yanked: ve.Yanked}
		if ve.TreeHash256 != "" {
			pe.TreeHash, pe.HashFamily = ve.TreeHash256, "modern256"
		} else {
			pe.TreeHash, pe.HashFamily = ve.GitTreeSHA1, "legacy160"
		}
		deps, err := depsForVersion(rd, v)
		if err != nil {
			return nil, err
		}
		pe.Deps = deps
		compat, err := compatForVersion(rc, deps, v)
		if err != nil {
			return nil, err
		}
		pe.Compat = compat
		entries.Versions = append(entries.Versions, pe)
	}
	sortEntries(entries.Versions)
	return entries, nil
}

func readTarballMember(tarPath, member string) ([]byte, error) {
	files, err := readAllTarballMembers(tarPath)
	if err != nil {
		return nil, err
	}
	for name, data := range files {
		if name == member || strings.HasSuffix(name, "/"+member) {
			return data, nil
		}
	}
	return nil, errors.Errorf("member %s not found in %s", member, tarPath)
}

func readAllTarballMembers(tarPath string) (map[string][]byte, error) {
	f, err := os.Open(tarPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(tarPath, ".gz") || strings.HasSuffix(tarPath, ".tgz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		r = gz
	}

	tr := tar.NewReader(r)
	out := make(map[string][]byte)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		var buf bytes.Buffer
		if _, err := io.Copy(&buf, tr); err != nil {
			return nil, err
		}
		out[hdr.Name] = buf.Bytes()
	}
	return out, nil
}
