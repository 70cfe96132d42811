// Package manifest reads and writes orbitpkg's two environment files:
// the human-edited ProjectFile and the machine-managed ManifestFile
// (lock), plus workspace merging across nested sub-projects. It
// mirrors golang-dep's manifest.go raw/typed split -- a small raw
// struct for the wire format, decoded and validated into a richer
// typed struct -- generalized from JSON to TOML via go-toml/v2.
package manifest

import (
	"github.com/pkg/errors"

	"github.com/orbit-lang/orbitpkg/internal/pkgid"
	"github.com/orbit-lang/orbitpkg/internal/semver"
)

// ProjectFileName is the declarative, human-edited environment file.
const ProjectFileName = "Project.toml"

// SourceSpec pins where an unregistered dependency's code comes from:
// a VCS URL+revision, a local path, or a registry subdir.
type SourceSpec struct {
	URL      string
	Rev      string
	Path     string
	Subdir   string
}

// Project is the typed, validated form of a ProjectFile.
type Project struct {
	Name    string
	UUID    pkgid.ID
	Version semver.Version
	Authors []string

	Deps     map[string]pkgid.ID // name -> uuid
	WeakDeps map[string]pkgid.ID
	Extras   map[string]pkgid.ID

	// Compat maps a dependency name (or "orbit" for the host language
	// itself) to its compatibility range.
	Compat map[string]semver.Range

	Sources map[string]SourceSpec

	// Extensions maps an extension name to the weakdep names whose
	// co-presence triggers it.
	Extensions map[string][]string

	// Targets maps a target name (currently only "test") to the list
	// of dependency/extra names active in that target.
	Targets map[string][]string

	// WorkspaceProjects lists relative paths to sub-projects resolved
	// together with this one, if this project is a workspace root.
	WorkspaceProjects []string
}

type rawProject struct {
	Name    string   `toml:"name"`
	UUID    string   `toml:"uuid"`
	Version string   `toml:"version,omitempty"`
	Authors []string `toml:"authors,omitempty"`

	Deps     map[string]string `toml:"deps,omitempty"`
	WeakDeps map[string]string `toml:"weakdeps,omitempty"`
	Extras   map[string]string `toml:"extras,omitempty"`
	Compat   map[string]string `toml:"compat,omitempty"`

	Sources map[string]rawSourceSpec `toml:"sources,omitempty"`

	Extensions map[string][]string `toml:"extensions,omitempty"`
	Targets    map[string][]string `toml:"targets,omitempty"`

	Workspace *rawWorkspace `toml:"workspace,omitempty"`
}

type rawSourceSpec struct {
	URL    string `toml:"url,omitempty"`
	Rev    string `toml:"rev,omitempty"`
	Path   string `toml:"path,omitempty"`
	Subdir string `toml:"subdir,omitempty"`
}

type rawWorkspace struct {
	Projects []string `toml:"projects,omitempty"`
}

// ParseProject decodes raw TOML bytes into a validated Project.
func ParseProject(data []byte) (*Project, error) {
	var rp rawProject
	if err := unmarshalTOML(data, &rp); err != nil {
		return nil, errors.Wrap(err, "parsing project file")
	}

	id, err := pkgid.Parse(rp.UUID)
	if err != nil {
		return nil, errors.Wrapf(err, "project %s has invalid uuid", rp.Name)
	}

	p := &Project{
		Name:    rp.Name,
		UUID:    id,
		Authors: rp.Authors,

		Deps:       make(map[string]pkgid.ID),
		WeakDeps:   make(map[string]pkgid.ID),
		Extras:     make(map[string]pkgid.ID),
		Compat:     make(map[string]semver.Range),
		Sources:    make(map[string]SourceSpec),
		Extensions: rp.Extensions,
		Targets:    rp.Targets,
	}

	if rp.Version != "" {
		v, err := semver.Parse(rp.Version)
		if err != nil {
			return nil, errors.Wrapf(err, "project %s has invalid version", rp.Name)
		}
		p.Version = v
	}

	if err := parseIDMap(rp.Deps, p.Deps); err != nil {
		return nil, errors.Wrap(err, "deps")
	}
	if err := parseIDMap(rp.WeakDeps, p.WeakDeps); err != nil {
		return nil, errors.Wrap(err, "weakdeps")
	}
	if err := parseIDMap(rp.Extras, p.Extras); err != nil {
		return nil, errors.Wrap(err, "extras")
	}

	for name, rangeStr := range rp.Compat {
		r, err := semver.ParseRange(rangeStr)
		if err != nil {
			return nil, errors.Wrapf(err, "compat entry %q", name)
		}
		p.Compat[name] = r
	}

	for name, rs := range rp.Sources {
		p.Sources[name] = SourceSpec{URL: rs.URL, Rev: rs.Rev, Path: rs.Path, Subdir: rs.Subdir}
	}

	if rp.Workspace != nil {
		p.WorkspaceProjects = rp.Workspace.Projects
	}

	return p, nil
}

func parseIDMap(raw map[string]string, out map[string]pkgid.ID) error {
	for name, uuidStr := range raw {
		id, err := pkgid.Parse(uuidStr)
		if err != nil {
			return errors.Wrapf(err, "entry %q", name)
		}
		out[name] = id
	}
	return nil
}

// Marshal serializes p back to ProjectFile TOML with stable key
// ordering (go-toml/v2 marshals map keys sorted, which is sufficient
// for deterministic diffs across writes).
func (p *Project) Marshal() ([]byte, error) {
	rp := rawProject{
		Name:       p.Name,
		UUID:       p.UUID.String(),
		Authors:    p.Authors,
		Extensions: p.Extensions,
		Targets:    p.Targets,
	}
	if !p.Version.IsZero() {
		rp.Version = p.Version.String()
	}

	if len(p.Deps) > 0 {
		rp.Deps = idMapToStrings(p.Deps)
	}
	if len(p.WeakDeps) > 0 {
		rp.WeakDeps = idMapToStrings(p.WeakDeps)
	}
	if len(p.Extras) > 0 {
		rp.Extras = idMapToStrings(p.Extras)
	}
	if len(p.Compat) > 0 {
		rp.Compat = make(map[string]string, len(p.Compat))
		for name, r := range p.Compat {
			rp.Compat[name] = r.String()
		}
	}
	if len(p.Sources) > 0 {
		rp.Sources = make(map[string]rawSourceSpec, len(p.Sources))
		for name, s := range p.Sources {
			rp.Sources[name] = rawSourceSpec{URL: s.URL, Rev: s.Rev, Path: s.Path, Subdir: s.Subdir}
		}
	}
	if len(p.WorkspaceProjects) > 0 {
		rp.Workspace = &rawWorkspace{Projects: p.WorkspaceProjects}
	}

	return marshalTOML(rp)
}

func idMapToStrings(m map[string]pkgid.ID) map[string]string {
	out := make(map[string]string, len(m))
	for name, id := range m {
		out[name] = id.String()
	}
	return out
}
