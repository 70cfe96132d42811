package registry_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/orbit-lang/orbitpkg/internal/pkgid"
	"github.com/orbit-lang/orbitpkg/internal/registry"
)

const testUUID = "11111111-1111-1111-1111-111111111111"
const depUUID = "22222222-2222-2222-2222-222222222222"

func writeRegistry(t *testing.T, root string) {
	t.Helper()
	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatal(err)
		}
	}

	must(os.WriteFile(filepath.Join(root, "Registry.toml"),
		[]byte(`uuid = "`+testUUID+`"`+"\nname = \"TestRegistry\"\n"), 0o644))

	pkgDir := filepath.Join(root, "A", "Alpha")
	must(os.MkdirAll(pkgDir, 0o755))
	must(os.WriteFile(filepath.Join(pkgDir, "Package.toml"),
		[]byte("name = \"Alpha\"\nuuid = \""+depUUID+"\"\n"), 0o644))
	must(os.WriteFile(filepath.Join(pkgDir, "Versions.toml"), []byte(`
[versions."1.0.0"]
git-tree-sha1 = "abc123"

[versions."1.1.0"]
git-tree-sha1 = "def456"
`), 0o644))
	must(os.WriteFile(filepath.Join(pkgDir, "Deps.toml"), []byte(`
[deps."1.0.0-1.1.0"]
Bravo = "`+testUUID+`"
`), 0o644))
	must(os.WriteFile(filepath.Join(pkgDir, "Compat.toml"), []byte(`
[compat."1.0.0-1.1.0"]
Bravo = "^1.0.0"
`), 0o644))
}

func TestOpenAndLookupUnpacked(t *testing.T) {
	root := t.TempDir()
	writeRegistry(t, root)

	s, err := registry.Open("TestRegistry", root, nil)
	if err != nil {
		t.Fatal(err)
	}
	if s.Info().UUID.String() != testUUID {
		t.Fatalf("expected registry uuid %s, got %s", testUUID, s.Info().UUID)
	}

	id, err := pkgid.Parse(depUUID)
	if err != nil {
		t.Fatal(err)
	}

	entries, err := s.Lookup(id, nil)
	if err != nil {
		t.Fatal(err)
	}
	if entries.Name != "Alpha" {
		t.Fatalf("expected name Alpha, got %s", entries.Name)
	}
	if len(entries.Versions) != 2 {
		t.Fatalf("expected 2 versions, got %d", len(entries.Versions))
	}
	if entries.Versions[0].Version.String() != "1.0.0" {
		t.Fatalf("expected ascending order, got %s first", entries.Versions[0].Version)
	}
}

func TestVersionsAndPrefixSearch(t *testing.T) {
	root := t.TempDir()
	writeRegistry(t, root)

	s, err := registry.Open("TestRegistry", root, nil)
	if err != nil {
		t.Fatal(err)
	}
	id, _ := pkgid.Parse(depUUID)
	vs, err := s.Versions(id)
	if err != nil {
		t.Fatal(err)
	}
	if len(vs) != 2 {
		t.Fatalf("expected 2 versions, got %d", len(vs))
	}

	matches, err := s.FindByNamePrefix("alp")
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected 1 prefix match, got %d", len(matches))
	}
}

func TestLookupEnforcesMutualTrust(t *testing.T) {
	root := t.TempDir()
	writeRegistry(t, root)

	other := registry.Info{UUID: pkgid.New(), Name: "Other"}
	s, err := registry.Open("TestRegistry", root, nil)
	if err != nil {
		t.Fatal(err)
	}
	id, _ := pkgid.Parse(depUUID)

	if _, err := s.Lookup(id, &other); err == nil {
		t.Fatal("expected trust violation when registries do not mutually trust each other")
	}

	trusted, err := registry.Open("TestRegistry", root, []pkgid.ID{other.UUID})
	if err != nil {
		t.Fatal(err)
	}
	other.Trusted = []pkgid.ID{trusted.Info().UUID}
	if _, err := trusted.Lookup(id, &other); err != nil {
		t.Fatalf("expected mutual trust to permit lookup, got %v", err)
	}
}
