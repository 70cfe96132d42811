package registry

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/armon/go-radix"
	"github.com/pkg/errors"

	"github.com/orbit-lang/orbitpkg/internal/pkgid"
	"github.com/orbit-lang/orbitpkg/internal/semver"
)

// Store is an opened, indexed registry. Open detects packed vs
// unpacked form; lookups against an unpacked registry build a lazy
// in-memory index keyed by package UUID, with a radix tree over names
// for prefix-style completion/search the way golang-dep's solver.go
// uses armon/go-radix for its own priority structure.
type Store struct {
	info Info

	mu      sync.RWMutex
	byUUID  map[pkgid.ID]*Entries
	byName  *radix.Tree // name -> pkgid.ID.String()
	loaded  bool
}

// Open opens the registry rooted at path, detecting packed (a single
// file) vs unpacked (a directory) form. Trusted carries the mutual
// trust set recorded for this registry by the caller (typically read
// from the depot's registry preference list), used later by Lookup to
// enforce cross-registry trust.
func Open(name, path string, trusted []pkgid.ID) (*Store, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening registry at %s", path)
	}

	form := Unpacked
	if !fi.IsDir() {
		form = Packed
	}

	uuid, err := readRegistryUUID(path, form)
	if err != nil {
		return nil, err
	}

	s := &Store{
		info: Info{
			UUID:    uuid,
			Name:    name,
			Path:    path,
			Form:    form,
			Trusted: trusted,
		},
		byUUID: make(map[pkgid.ID]*Entries),
		byName: radix.New(),
	}
	return s, nil
}

// readRegistryUUID reads the registry's own identity out of its root
// Registry.toml (unpacked) or its embedded copy (packed).
func readRegistryUUID(path string, form Form) (pkgid.ID, error) {
	var data []byte
	var err error
	if form == Unpacked {
		data, err = os.ReadFile(filepath.Join(path, "Registry.toml"))
	} else {
		data, err = readTarballMember(path, "Registry.toml")
	}
	if err != nil {
		return pkgid.Nil, errors.Wrap(err, "reading Registry.toml")
	}

	var raw struct {
		UUID string `toml:"uuid"`
		Name string `toml:"name"`
	}
	if err := unmarshalTOML(data, &raw); err != nil {
		return pkgid.Nil, err
	}
	id, err := pkgid.Parse(raw.UUID)
	if err != nil {
		return pkgid.Nil, errors.Wrap(err, "parsing registry uuid")
	}
	return id, nil
}

// Info returns the store's identity and location metadata.
func (s *Store) Info() Info {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.info
}

// Refresh reloads the registry's index from disk, replacing the
// existing in-memory index atomically (the caller's readers observe
// either the old or the new index, never a partial one).
func (s *Store) Refresh() error {
	fresh, err := s.buildIndex()
	if err != nil {
		return err
	}

	byName := radix.New()
	for id, e := range fresh {
		byName.Insert(strings.ToLower(e.Name), id.String())
	}

	s.mu.Lock()
	s.byUUID = fresh
	s.byName = byName
	s.loaded = true
	s.mu.Unlock()
	return nil
}

func (s *Store) ensureLoaded() error {
	s.mu.RLock()
	loaded := s.loaded
	s.mu.RUnlock()
	if loaded {
		return nil
	}
	return s.Refresh()
}

// Lookup returns the full version history for a package UUID,
// enforcing cross-registry trust: if otherRegistry also claims to
// serve this UUID, the lookup only succeeds when each registry's
// trust set lists the other's UUID.
func (s *Store) Lookup(id pkgid.ID, otherRegistry *Info) (Entries, error) {
	if err := s.ensureLoaded(); err != nil {
		return Entries{}, err
	}
	if otherRegistry != nil {
		if err := enforceTrust(s.info, *otherRegistry); err != nil {
			return Entries{}, err
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.byUUID[id]
	if !ok {
		return Entries{}, errors.Errorf("package %s not found in registry %s", id, s.info.Name)
	}
	return *e, nil
}

// Versions returns the sorted version list for a package UUID.
func (s *Store) Versions(id pkgid.ID) ([]semver.Version, error) {
	e, err := s.Lookup(id, nil)
	if err != nil {
		return nil, err
	}
	out := make([]semver.Version, 0, len(e.Versions))
	for _, pe := range e.Versions {
		out = append(out, pe.Version)
	}
	return out, nil
}

// FindByNamePrefix returns package UUIDs whose name starts with
// prefix, using the radix index built by Refresh, loading the index
// first if this is the first lookup against the store.
func (s *Store) FindByNamePrefix(prefix string) ([]pkgid.ID, error) {
	if err := s.ensureLoaded(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []pkgid.ID
	s.byName.WalkPrefix(strings.ToLower(prefix), func(_ string, v interface{}) bool {
		if idStr, ok := v.(string); ok {
			if id, err := pkgid.Parse(idStr); err == nil {
				out = append(out, id)
			}
		}
		return false
	})
	return out, nil
}

// enforceTrust checks that a and b mutually list each other's UUID in
// their trusted-registry sets. Either side omitting the other is a
// trust violation that must be resolved by the caller (warn, or
// accept via an explicit override and record it in the manifest).
func enforceTrust(a, b Info) error {
	if !containsID(a.Trusted, b.UUID) || !containsID(b.Trusted, a.UUID) {
		return errors.Errorf("registries %s and %s do not mutually trust each other", a.Name, b.Name)
	}
	return nil
}

func containsID(ids []pkgid.ID, target pkgid.ID) bool {
	for _, id := range ids {
		if id.Compare(target) == 0 {
			return true
		}
	}
	return false
}

// CompareHash implements the cross-registry newest-hash tie-break:
// when two registries disagree on the tree hash for the same (UUID,
// version), the lexicographically greater hash wins.
func CompareHash(a, b string) int {
	return strings.Compare(a, b)
}

// sortEntries sorts a package's versions ascending, the order every
// registry form is expected to deliver them in.
func sortEntries(versions []PackageEntry) {
	sort.Slice(versions, func(i, j int) bool {
		return versions[i].Version.Less(versions[j].Version)
	})
}
