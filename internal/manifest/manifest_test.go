package manifest_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/orbit-lang/orbitpkg/internal/manifest"
)

const projectUUID = "11111111-1111-1111-1111-111111111111"
const depUUID = "22222222-2222-2222-2222-222222222222"

const projectTOML = `
name = "Demo"
uuid = "` + projectUUID + `"
version = "0.1.0"
authors = ["Dev <dev@example.com>"]

[deps]
Bravo = "` + depUUID + `"

[compat]
Bravo = "^1.0.0"
`

func TestParseAndMarshalProjectRoundTrip(t *testing.T) {
	p, err := manifest.ParseProject([]byte(projectTOML))
	if err != nil {
		t.Fatal(err)
	}
	if p.Name != "Demo" {
		t.Fatalf("expected name Demo, got %s", p.Name)
	}
	if p.UUID.String() != projectUUID {
		t.Fatalf("expected uuid %s, got %s", projectUUID, p.UUID)
	}
	if len(p.Deps) != 1 {
		t.Fatalf("expected 1 dep, got %d", len(p.Deps))
	}

	data, err := p.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	p2, err := manifest.ParseProject(data)
	if err != nil {
		t.Fatal(err)
	}
	if p2.Name != p.Name || p2.UUID.String() != p.UUID.String() {
		t.Fatal("round trip should preserve name and uuid")
	}
}

func TestReadWriteProject(t *testing.T) {
	dir := t.TempDir()
	p, err := manifest.ParseProject([]byte(projectTOML))
	if err != nil {
		t.Fatal(err)
	}
	if err := manifest.WriteProject(dir, p); err != nil {
		t.Fatal(err)
	}
	reread, err := manifest.ReadProject(dir)
	if err != nil {
		t.Fatal(err)
	}
	if reread.Name != p.Name {
		t.Fatalf("expected name %s, got %s", p.Name, reread.Name)
	}
}

func TestProjectHashChangesWithContent(t *testing.T) {
	dir := t.TempDir()
	p, _ := manifest.ParseProject([]byte(projectTOML))
	if err := manifest.WriteProject(dir, p); err != nil {
		t.Fatal(err)
	}
	h1, err := manifest.ProjectHash(dir)
	if err != nil {
		t.Fatal(err)
	}

	p.Authors = append(p.Authors, "Someone Else <else@example.com>")
	if err := manifest.WriteProject(dir, p); err != nil {
		t.Fatal(err)
	}
	h2, err := manifest.ProjectHash(dir)
	if err != nil {
		t.Fatal(err)
	}
	if h1 == h2 {
		t.Fatal("expected project hash to change with content")
	}
}

const manifestTOML = `
manifest_format = "2.0"
julia_version = "1.9.0"
project_hash = "deadbeef"

[deps.Bravo]
uuid = "` + depUUID + `"
version = "1.2.0"
git-tree-sha1 = "abc123"
`

func TestParseManifestAndStaleness(t *testing.T) {
	m, err := manifest.ParseManifest([]byte(manifestTOML))
	if err != nil {
		t.Fatal(err)
	}
	if len(m.Packages) != 1 {
		t.Fatalf("expected 1 package, got %d", len(m.Packages))
	}
	if !m.IsCurrent("deadbeef") {
		t.Fatal("expected manifest to be current against its own recorded hash")
	}
	if m.IsCurrent("somethingelse") {
		t.Fatal("expected manifest to be stale against a different hash")
	}
}

func TestParseManifestUpgradesV1(t *testing.T) {
	v1 := `
[deps.Bravo]
uuid = "` + depUUID + `"
version = "1.0.0"
`
	m, err := manifest.ParseManifest([]byte(v1))
	if err != nil {
		t.Fatal(err)
	}
	if m.FormatVersion != manifest.CurrentManifestFormat {
		t.Fatalf("expected upgrade to %s, got %s", manifest.CurrentManifestFormat, m.FormatVersion)
	}
}

func TestSelectManifestPathPrefersVersioned(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, manifest.ManifestBaseName), []byte(""), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, manifest.VersionedManifestName(1, 9)), []byte(""), 0o644); err != nil {
		t.Fatal(err)
	}

	got := manifest.SelectManifestPath(dir, 1, 9)
	want := filepath.Join(dir, manifest.VersionedManifestName(1, 9))
	if got != want {
		t.Fatalf("expected versioned manifest to be preferred, got %s want %s", got, want)
	}
}

func TestMergeWorkspaceIntersectsCompat(t *testing.T) {
	root := t.TempDir()
	rootProject := `
name = "Root"
uuid = "` + projectUUID + `"

[deps]
Bravo = "` + depUUID + `"

[compat]
Bravo = ">=1.0.0, <2.0.0"

[workspace]
projects = ["sub"]
`
	if err := os.WriteFile(filepath.Join(root, manifest.ProjectFileName), []byte(rootProject), 0o644); err != nil {
		t.Fatal(err)
	}

	subDir := filepath.Join(root, "sub")
	if err := os.MkdirAll(subDir, 0o755); err != nil {
		t.Fatal(err)
	}
	subProject := `
name = "Sub"
uuid = "33333333-3333-3333-3333-333333333333"

[deps]
Bravo = "` + depUUID + `"

[compat]
Bravo = ">=1.5.0, <1.8.0"
`
	if err := os.WriteFile(filepath.Join(subDir, manifest.ProjectFileName), []byte(subProject), 0o644); err != nil {
		t.Fatal(err)
	}

	_, merged, err := manifest.MergeWorkspace(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(merged.Ranges) != 1 {
		t.Fatalf("expected 1 merged dependency, got %d", len(merged.Ranges))
	}
}

func TestMergeWorkspaceConflictIsError(t *testing.T) {
	root := t.TempDir()
	rootProject := `
name = "Root"
uuid = "` + projectUUID + `"

[deps]
Bravo = "` + depUUID + `"

[compat]
Bravo = "^1.0.0"

[workspace]
projects = ["sub"]
`
	if err := os.WriteFile(filepath.Join(root, manifest.ProjectFileName), []byte(rootProject), 0o644); err != nil {
		t.Fatal(err)
	}

	subDir := filepath.Join(root, "sub")
	if err := os.MkdirAll(subDir, 0o755); err != nil {
		t.Fatal(err)
	}
	subProject := `
name = "Sub"
uuid = "33333333-3333-3333-3333-333333333333"

[deps]
Bravo = "` + depUUID + `"

[compat]
Bravo = "^2.0.0"
`
	if err := os.WriteFile(filepath.Join(subDir, manifest.ProjectFileName), []byte(subProject), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, _, err := manifest.MergeWorkspace(root); err == nil {
		t.Fatal("expected workspace compat conflict to be reported")
	}
}
