package depot_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/orbit-lang/orbitpkg/internal/depot"
	"github.com/orbit-lang/orbitpkg/internal/treehash"
)

func writeSrcTree(t *testing.T) (string, string) {
	t.Helper()
	src := t.TempDir()
	if err := os.WriteFile(filepath.Join(src, "a.txt"), []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}
	hash, err := treehash.Hash(src, treehash.Modern256)
	if err != nil {
		t.Fatal(err)
	}
	return src, hash
}

func TestInstallAndResolvePath(t *testing.T) {
	root := t.TempDir()
	stack, err := depot.Open([]string{root})
	if err != nil {
		t.Fatal(err)
	}

	src, hash := writeSrcTree(t)
	slot, err := stack.InstallPackage("Alpha", hash, treehash.Modern256, src)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(slot, "a.txt")); err != nil {
		t.Fatalf("expected installed file to exist: %v", err)
	}

	resolved, err := stack.ResolvePath("Alpha", hash)
	if err != nil {
		t.Fatal(err)
	}
	if resolved != slot {
		t.Fatalf("expected resolved path %s, got %s", slot, resolved)
	}
}

func TestInstallRejectsHashMismatch(t *testing.T) {
	root := t.TempDir()
	stack, err := depot.Open([]string{root})
	if err != nil {
		t.Fatal(err)
	}
	src, _ := writeSrcTree(t)
	if _, err := stack.InstallPackage("Alpha", "0000000000000000000000000000000000000000000000000000000000000000", treehash.Modern256, src); err == nil {
		t.Fatal("expected hash mismatch error")
	}
}

func TestResolvePathHonorsOverrides(t *testing.T) {
	root := t.TempDir()
	stack, err := depot.Open([]string{root})
	if err != nil {
		t.Fatal(err)
	}
	src, hash := writeSrcTree(t)
	if _, err := stack.InstallPackage("Alpha", hash, treehash.Modern256, src); err != nil {
		t.Fatal(err)
	}

	// Install a second tree under a different hash and override the
	// first hash to point at it.
	src2, hash2 := writeSecondTree(t)
	if _, err := stack.InstallPackage("Alpha", hash2, treehash.Modern256, src2); err != nil {
		t.Fatal(err)
	}

	overridesTOML := "\"" + hash + "\" = \"" + hash2 + "\"\n"
	if err := os.WriteFile(filepath.Join(root, "artifacts", "Overrides.toml"), []byte(overridesTOML), 0o644); err != nil {
		t.Fatal(err)
	}

	resolved, err := stack.ResolvePath("Alpha", hash)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(resolved, "b.txt")); err != nil {
		t.Fatalf("expected override to redirect to the second tree: %v", err)
	}
}

func TestResolvePathHonorsAbsolutePathOverride(t *testing.T) {
	root := t.TempDir()
	stack, err := depot.Open([]string{root})
	if err != nil {
		t.Fatal(err)
	}

	override := t.TempDir()
	if err := os.WriteFile(filepath.Join(override, "c.txt"), []byte("local"), 0o644); err != nil {
		t.Fatal(err)
	}

	const hash = "deadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeef"
	overridesTOML := "\"" + hash + "\" = \"" + override + "\"\n"
	if err := os.WriteFile(filepath.Join(root, "artifacts", "Overrides.toml"), []byte(overridesTOML), 0o644); err != nil {
		t.Fatal(err)
	}

	resolved, err := stack.ResolvePath("Alpha", hash)
	if err != nil {
		t.Fatal(err)
	}
	if resolved != override {
		t.Fatalf("expected absolute override to be returned directly, got %q", resolved)
	}
	if _, err := os.Stat(filepath.Join(resolved, "c.txt")); err != nil {
		t.Fatalf("expected override path to be usable directly: %v", err)
	}
}

func writeSecondTree(t *testing.T) (string, string) {
	t.Helper()
	src := t.TempDir()
	if err := os.WriteFile(filepath.Join(src, "b.txt"), []byte("world"), 0o644); err != nil {
		t.Fatal(err)
	}
	hash, err := treehash.Hash(src, treehash.Modern256)
	if err != nil {
		t.Fatal(err)
	}
	return src, hash
}

func TestGCCollectsOrphansPastCollectDelay(t *testing.T) {
	root := t.TempDir()
	stack, err := depot.Open([]string{root})
	if err != nil {
		t.Fatal(err)
	}
	src, hash := writeSrcTree(t)
	if _, err := stack.InstallPackage("Alpha", hash, treehash.Modern256, src); err != nil {
		t.Fatal(err)
	}

	result, err := stack.GC(depot.GCOptions{CollectDelay: -time.Hour})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Collected) != 1 {
		t.Fatalf("expected 1 collected entry, got %d: %v", len(result.Collected), result.Collected)
	}
}

func TestGCSkipsLiveHashes(t *testing.T) {
	root := t.TempDir()
	stack, err := depot.Open([]string{root})
	if err != nil {
		t.Fatal(err)
	}
	src, hash := writeSrcTree(t)
	if _, err := stack.InstallPackage("Alpha", hash, treehash.Modern256, src); err != nil {
		t.Fatal(err)
	}

	result, err := stack.GC(depot.GCOptions{
		CollectDelay: -time.Hour,
		LiveHashes:   map[string]bool{depot.Key("Alpha", depot.HashPrefix(hash)): true},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Collected) != 0 {
		t.Fatalf("expected live hash to be skipped, collected %v", result.Collected)
	}
	if len(result.Skipped) != 1 {
		t.Fatalf("expected 1 skipped entry, got %d", len(result.Skipped))
	}
}
