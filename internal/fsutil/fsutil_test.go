package fsutil_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/orbit-lang/orbitpkg/internal/fsutil"
)

func TestIsDir(t *testing.T) {
	dir := t.TempDir()
	ok, err := fsutil.IsDir(dir)
	if err != nil || !ok {
		t.Fatalf("expected %s to be a directory, ok=%v err=%v", dir, ok, err)
	}

	file := filepath.Join(dir, "f")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if ok, err := fsutil.IsDir(file); err == nil || ok {
		t.Fatal("expected IsDir to reject a regular file")
	}

	if ok, err := fsutil.IsDir(filepath.Join(dir, "missing")); err != nil || ok {
		t.Fatalf("expected a missing path to report false, nil; got ok=%v err=%v", ok, err)
	}
}

func TestIsEmptyDirOrNotExist(t *testing.T) {
	dir := t.TempDir()
	ok, err := fsutil.IsEmptyDirOrNotExist(filepath.Join(dir, "missing"))
	if err != nil || !ok {
		t.Fatalf("missing path should count as empty-or-not-exist, ok=%v err=%v", ok, err)
	}

	ok, err = fsutil.IsEmptyDirOrNotExist(dir)
	if err != nil || !ok {
		t.Fatalf("fresh temp dir should be empty, ok=%v err=%v", ok, err)
	}

	if err := os.WriteFile(filepath.Join(dir, "f"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	ok, err = fsutil.IsEmptyDirOrNotExist(dir)
	if err != nil || ok {
		t.Fatalf("non-empty dir should report false, ok=%v err=%v", ok, err)
	}
}

func TestWriteFileAtomicAndRename(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "manifest.toml")

	if err := fsutil.WriteFileAtomic(target, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := os.ReadFile(target)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "hello" {
		t.Fatalf("expected content 'hello', got %q", got)
	}

	if err := fsutil.WriteFileAtomic(target, []byte("updated"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err = os.ReadFile(target)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "updated" {
		t.Fatalf("expected content 'updated', got %q", got)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if e.Name() != "manifest.toml" {
			t.Fatalf("expected no leftover temp files, found %s", e.Name())
		}
	}
}

func TestCopyTreeSkipsVendorDirs(t *testing.T) {
	src := t.TempDir()
	if err := os.MkdirAll(filepath.Join(src, "vendor", "x"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(src, "vendor", "x", "f.go"), []byte("package x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(src, "keep.go"), []byte("package main"), 0o644); err != nil {
		t.Fatal(err)
	}

	dest := filepath.Join(t.TempDir(), "out")
	if err := fsutil.CopyTree(src, dest); err != nil {
		t.Fatal(err)
	}

	if _, err := os.Stat(filepath.Join(dest, "keep.go")); err != nil {
		t.Fatalf("expected keep.go to be copied: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dest, "vendor")); !os.IsNotExist(err) {
		t.Fatalf("expected vendor/ to be skipped, stat err=%v", err)
	}
}
