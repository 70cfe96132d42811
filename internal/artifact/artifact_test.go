package artifact_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/orbit-lang/orbitpkg/internal/artifact"
)

const bindingTOML = `
[libfoo]
git-tree-sha1 = "plainhash"

[[libbar]]
os = "linux"
arch = "x86_64"
git-tree-sha1 = "linuxhash"

[[libbar]]
os = "darwin"
git-tree-sha1 = "darwinhash"

[[libbar]]
os = "linux"
arch = "x86_64"
libc = "musl"
git-tree-sha1 = "muslhash"
`

func TestParseAndSelect(t *testing.T) {
	f, err := artifact.Parse("Artifacts.toml", []byte(bindingTOML))
	if err != nil {
		t.Fatal(err)
	}

	plain, ok := f.Bindings["libfoo"]
	if !ok {
		t.Fatal("expected libfoo binding")
	}
	e, err := artifact.Select(plain, artifact.Host{OS: "linux", Arch: "x86_64"})
	if err != nil {
		t.Fatal(err)
	}
	if e.GitTreeSHA1 != "plainhash" {
		t.Fatalf("expected plainhash, got %s", e.GitTreeSHA1)
	}

	multi := f.Bindings["libbar"]
	e, err = artifact.Select(multi, artifact.Host{OS: "linux", Arch: "x86_64"})
	if err != nil {
		t.Fatal(err)
	}
	if e.GitTreeSHA1 != "linuxhash" {
		t.Fatalf("expected the generic linux/x86_64 entry, got %s", e.GitTreeSHA1)
	}

	e, err = artifact.Select(multi, artifact.Host{OS: "linux", Arch: "x86_64", Libc: "musl"})
	if err != nil {
		t.Fatal(err)
	}
	if e.GitTreeSHA1 != "muslhash" {
		t.Fatalf("expected the more specific musl entry to win, got %s", e.GitTreeSHA1)
	}

	if _, err := artifact.Select(multi, artifact.Host{OS: "windows"}); err == nil {
		t.Fatal("expected no match for an unlisted platform")
	}
}

func TestSelectAmbiguousTieIsError(t *testing.T) {
	data := `
[[lib]]
os = "linux"
git-tree-sha1 = "a"

[[lib]]
os = "linux"
git-tree-sha1 = "b"
`
	f, err := artifact.Parse("Artifacts.toml", []byte(data))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := artifact.Select(f.Bindings["lib"], artifact.Host{OS: "linux"}); err == nil {
		t.Fatal("expected ambiguity error for equally specific matches")
	}
}

func TestBindAndUnbindRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Artifacts.toml")
	if err := os.WriteFile(path, []byte(bindingTOML), 0o644); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	f, err := artifact.Parse(path, data)
	if err != nil {
		t.Fatal(err)
	}

	if err := f.BindArtifact("libbaz", "bazhash", nil); err != nil {
		t.Fatal(err)
	}

	reread, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	f2, err := artifact.Parse(path, reread)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := f2.Bindings["libbaz"]; !ok {
		t.Fatal("expected libbaz to persist after BindArtifact")
	}

	if err := f2.UnbindArtifact("libbaz"); err != nil {
		t.Fatal(err)
	}
	reread2, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	f3, err := artifact.Parse(path, reread2)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := f3.Bindings["libbaz"]; ok {
		t.Fatal("expected libbaz to be gone after UnbindArtifact")
	}
}
