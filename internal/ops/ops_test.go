package ops_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/orbit-lang/orbitpkg/internal/logging"
	"github.com/orbit-lang/orbitpkg/internal/ops"
	"github.com/orbit-lang/orbitpkg/internal/pkgctx"
)

const rootUUID = "aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa"
const registryUUID = "bbbbbbbb-bbbb-bbbb-bbbb-bbbbbbbbbbbb"
const alphaUUID = "cccccccc-cccc-cccc-cccc-cccccccccccc"

func writeTestRegistry(t *testing.T, root string) {
	t.Helper()
	write := func(path, content string) {
		t.Helper()
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	write(filepath.Join(root, "Registry.toml"), `uuid = "`+registryUUID+`"
name = "TestRegistry"
`)

	pkgDir := filepath.Join(root, "packages", "Alpha", "tree-1")
	write(filepath.Join(root, "A", "Alpha", "Package.toml"), `name = "Alpha"
uuid = "`+alphaUUID+`"
`)
	write(filepath.Join(root, "A", "Alpha", "Versions.toml"), `
[versions."1.0.0"]
git-tree-sha1 = "tree-1"

[versions."1.1.0"]
git-tree-sha1 = "tree-2"
`)
	// Unpacked registries carry package source alongside the index, at
	// packages/<name>/<tree-hash>, per internal/ops's instantiate
	// convention.
	write(filepath.Join(pkgDir, "src", "main.orbit"), "# placeholder source\n")
}

func writeTestProject(t *testing.T, dir string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, "Project.toml"), []byte(`name = "Demo"
uuid = "`+rootUUID+`"
version = "0.1.0"
`), 0o644); err != nil {
		t.Fatal(err)
	}
}

func newTestOperations(t *testing.T, registryRoot string) *ops.Operations {
	t.Helper()
	depotRoot := t.TempDir()

	ctx, err := pkgctx.New(pkgctx.WithDepotDirs([]string{depotRoot}))
	if err != nil {
		t.Fatal(err)
	}

	o, err := ops.New(ctx, map[string]string{"TestRegistry": registryRoot}, logging.New(os.Stderr))
	if err != nil {
		t.Fatal(err)
	}
	return o
}

func TestAddResolvesAndWritesManifest(t *testing.T) {
	registryRoot := t.TempDir()
	writeTestRegistry(t, registryRoot)

	projectDir := t.TempDir()
	writeTestProject(t, projectDir)

	o := newTestOperations(t, registryRoot)

	result, err := o.Add(projectDir, []ops.AddRequest{{Name: "Alpha"}})
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if !result.Wrote {
		t.Fatal("expected Add to write a manifest")
	}
	if len(result.Solution.Versions) != 1 {
		t.Fatalf("expected 1 resolved package, got %d", len(result.Solution.Versions))
	}

	if _, err := os.Stat(filepath.Join(projectDir, "Project.toml")); err != nil {
		t.Fatalf("expected project file to exist: %v", err)
	}
}

func TestRmRejectsUnknownDependency(t *testing.T) {
	registryRoot := t.TempDir()
	writeTestRegistry(t, registryRoot)

	projectDir := t.TempDir()
	writeTestProject(t, projectDir)

	o := newTestOperations(t, registryRoot)

	if _, err := o.Rm(projectDir, []string{"NotADependency"}); err == nil {
		t.Fatal("expected an error removing a dependency that was never added")
	}
}

func TestResolveIsStalenessGated(t *testing.T) {
	registryRoot := t.TempDir()
	writeTestRegistry(t, registryRoot)

	projectDir := t.TempDir()
	writeTestProject(t, projectDir)

	o := newTestOperations(t, registryRoot)

	first, err := o.Resolve(projectDir, ops.ResolveOptions{})
	if err != nil {
		t.Fatalf("first resolve failed: %v", err)
	}
	if !first.Wrote {
		t.Fatal("expected the first resolve (no existing manifest) to write")
	}

	second, err := o.Resolve(projectDir, ops.ResolveOptions{})
	if err != nil {
		t.Fatalf("second resolve failed: %v", err)
	}
	if second.Wrote {
		t.Fatal("expected a staleness-gated resolve to skip writing")
	}
}
