package artifact

import (
	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"

	"github.com/orbit-lang/orbitpkg/internal/fsutil"
)

// BindArtifact adds or replaces a platform-independent binding for
// name in f, with the given content hash and optional download
// mirrors, then atomically rewrites the binding file on disk.
func (f *File) BindArtifact(name, hash string, downloads []Download) error {
	f.Bindings[name] = Binding{
		Name: name,
		Entries: []Entry{{
			GitTreeSHA1: hash,
			Downloads:   downloads,
		}},
	}
	return f.save()
}

// UnbindArtifact removes name from f entirely and rewrites the
// binding file on disk.
func (f *File) UnbindArtifact(name string) error {
	if _, ok := f.Bindings[name]; !ok {
		return errors.Errorf("artifact %q is not bound", name)
	}
	delete(f.Bindings, name)
	return f.save()
}

func (f *File) save() error {
	out := make(map[string]interface{}, len(f.Bindings))
	for name, b := range f.Bindings {
		if len(b.Entries) == 1 && b.Entries[0].Predicate.specificity() == 0 {
			out[name] = entryToMap(b.Entries[0])
			continue
		}
		list := make([]map[string]interface{}, 0, len(b.Entries))
		for _, e := range b.Entries {
			list = append(list, entryToMap(e))
		}
		out[name] = list
	}

	data, err := toml.Marshal(out)
	if err != nil {
		return errors.Wrap(err, "marshaling artifact binding file")
	}
	return fsutil.WriteFileAtomic(f.Path, data, 0o644)
}

func entryToMap(e Entry) map[string]interface{} {
	m := map[string]interface{}{"git-tree-sha1": e.GitTreeSHA1}
	if e.Predicate.OS != "" {
		m["os"] = e.Predicate.OS
	}
	if e.Predicate.Arch != "" {
		m["arch"] = e.Predicate.Arch
	}
	if e.Predicate.Libc != "" {
		m["libc"] = e.Predicate.Libc
	}
	for k, v := range e.Predicate.Extra {
		m[k] = v
	}
	if e.Lazy {
		m["lazy"] = true
	}
	if len(e.Downloads) > 0 {
		downloads := make([]map[string]interface{}, 0, len(e.Downloads))
		for _, d := range e.Downloads {
			downloads = append(downloads, map[string]interface{}{"url": d.URL, "sha256": d.SHA256})
		}
		m["download"] = downloads
	}
	return m
}
