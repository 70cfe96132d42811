// Package artifact parses artifact binding files and selects, installs,
// and verifies the platform-appropriate entry for a named external
// binary artifact, the way golang-dep's toml.go maps declarative TOML
// straight into typed structs.
package artifact

import (
	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
)

// Predicate is a platform-matching key (os, arch, libc, or an
// extensible key like cuda) constraining which host an Entry applies
// to.
type Predicate struct {
	OS    string
	Arch  string
	Libc  string
	Extra map[string]string
}

// specificity counts how many predicate fields are set, used by
// Select's most-specific-wins tie-break.
func (p Predicate) specificity() int {
	n := 0
	if p.OS != "" {
		n++
	}
	if p.Arch != "" {
		n++
	}
	if p.Libc != "" {
		n++
	}
	n += len(p.Extra)
	return n
}

// matches reports whether p is satisfied by the given host attributes.
// An unset predicate field matches any host value.
func (p Predicate) matches(host Host) bool {
	if p.OS != "" && p.OS != host.OS {
		return false
	}
	if p.Arch != "" && p.Arch != host.Arch {
		return false
	}
	if p.Libc != "" && p.Libc != host.Libc {
		return false
	}
	for k, v := range p.Extra {
		if host.Extra[k] != v {
			return false
		}
	}
	return true
}

// Host describes the platform orbitpkg is installing artifacts for.
type Host struct {
	OS    string
	Arch  string
	Libc  string
	Extra map[string]string
}

// Download is one candidate mirror for an artifact payload.
type Download struct {
	URL    string
	SHA256 string
}

// Entry is a single binding: the required content tree hash, optional
// download mirrors, optional platform predicate, and the lazy flag.
type Entry struct {
	Predicate   Predicate
	GitTreeSHA1 string
	Downloads   []Download
	Lazy        bool
}

// Binding is a named artifact's full entry list (a singleton list for
// platform-independent artifacts).
type Binding struct {
	Name    string
	Entries []Entry
}

// File is a parsed artifact binding file: a map from artifact name to
// its Binding.
type File struct {
	Path     string
	Bindings map[string]Binding
}

// Parse reads an artifact binding file's raw TOML bytes into a File.
// Each top-level key's value is decoded as either a single table (a
// one-entry binding) or an array of tables; any other shape is an
// error.
func Parse(path string, data []byte) (*File, error) {
	var generic map[string]interface{}
	if err := toml.Unmarshal(data, &generic); err != nil {
		return nil, errors.Wrapf(err, "parsing artifact binding file %s", path)
	}

	f := &File{Path: path, Bindings: make(map[string]Binding)}
	for name, raw := range generic {
		entries, err := decodeBindingValue(name, raw)
		if err != nil {
			return nil, err
		}
		f.Bindings[name] = Binding{Name: name, Entries: entries}
	}
	return f, nil
}

func decodeBindingValue(name string, raw interface{}) ([]Entry, error) {
	switch v := raw.(type) {
	case map[string]interface{}:
		e, err := decodeEntryMap(v)
		if err != nil {
			return nil, errors.Wrapf(err, "artifact %q", name)
		}
		return []Entry{e}, nil
	case []interface{}:
		out := make([]Entry, 0, len(v))
		for i, item := range v {
			m, ok := item.(map[string]interface{})
			if !ok {
				return nil, errors.Errorf("artifact %q entry %d is not a table", name, i)
			}
			e, err := decodeEntryMap(m)
			if err != nil {
				return nil, errors.Wrapf(err, "artifact %q entry %d", name, i)
			}
			out = append(out, e)
		}
		return out, nil
	default:
		return nil, errors.Errorf("artifact %q has unexpected TOML shape %T", name, raw)
	}
}

var knownPredicateKeys = map[string]bool{"os": true, "arch": true, "libc": true}

func decodeEntryMap(m map[string]interface{}) (Entry, error) {
	var e Entry
	e.Predicate.Extra = make(map[string]string)

	for k, v := range m {
		switch k {
		case "os":
			e.Predicate.OS, _ = v.(string)
		case "arch":
			e.Predicate.Arch, _ = v.(string)
		case "libc":
			e.Predicate.Libc, _ = v.(string)
		case "git-tree-sha1":
			e.GitTreeSHA1, _ = v.(string)
		case "lazy":
			e.Lazy, _ = v.(bool)
		case "download":
			list, ok := v.([]interface{})
			if !ok {
				return Entry{}, errors.New("download must be an array of tables")
			}
			for _, d := range list {
				dm, ok := d.(map[string]interface{})
				if !ok {
					return Entry{}, errors.New("download entry must be a table")
				}
				url, _ := dm["url"].(string)
				sum, _ := dm["sha256"].(string)
				e.Downloads = append(e.Downloads, Download{URL: url, SHA256: sum})
			}
		default:
			if s, ok := v.(string); ok {
				e.Predicate.Extra[k] = s
			}
		}
	}
	if e.GitTreeSHA1 == "" {
		return Entry{}, errors.New("git-tree-sha1 is required")
	}
	return e, nil
}
