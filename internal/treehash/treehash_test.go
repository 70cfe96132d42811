package treehash_test

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/orbit-lang/orbitpkg/internal/treehash"
)

func writeTree(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "sub", "b.txt"), []byte("world"), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestHashIndependentOfEnumerationOrder(t *testing.T) {
	dir := writeTree(t)
	h1, err := treehash.Hash(dir, treehash.Modern256)
	if err != nil {
		t.Fatal(err)
	}

	// Recreate the same content from scratch -- a fresh walk should
	// always reach the same canonical ordering regardless of
	// filesystem enumeration order.
	dir2 := writeTree(t)
	h2, err := treehash.Hash(dir2, treehash.Modern256)
	if err != nil {
		t.Fatal(err)
	}

	if h1 != h2 {
		t.Fatalf("hashes differ for identical trees: %s != %s", h1, h2)
	}
}

func TestHashDiffersOnContentChange(t *testing.T) {
	dir := writeTree(t)
	h1, _ := treehash.Hash(dir, treehash.Modern256)

	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("changed"), 0o644); err != nil {
		t.Fatal(err)
	}
	h2, _ := treehash.Hash(dir, treehash.Modern256)

	if h1 == h2 {
		t.Fatal("expected hash to change when content changes")
	}
}

func TestHashEncodesExecutableBit(t *testing.T) {
	dir := writeTree(t)
	h1, _ := treehash.Hash(dir, treehash.Modern256)

	if err := os.Chmod(filepath.Join(dir, "a.txt"), 0o755); err != nil {
		t.Fatal(err)
	}
	h2, _ := treehash.Hash(dir, treehash.Modern256)

	if h1 != h2 {
		return
	}
	t.Fatal("expected hash to change when the executable bit is set")
}

func TestVerify(t *testing.T) {
	dir := writeTree(t)
	h, err := treehash.Hash(dir, treehash.Legacy160)
	if err != nil {
		t.Fatal(err)
	}
	ok, err := treehash.Verify(dir, h, treehash.Legacy160)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected verify to succeed against its own hash")
	}
	ok, err = treehash.Verify(dir, "deadbeef", treehash.Legacy160)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected verify to fail against a bogus hash")
	}
}

func TestLegacyAndModernFamiliesDiffer(t *testing.T) {
	dir := writeTree(t)
	h1, _ := treehash.Hash(dir, treehash.Legacy160)
	h2, _ := treehash.Hash(dir, treehash.Modern256)
	if h1 == h2 {
		t.Fatal("the two hash families should never collide")
	}
	if len(h1) == len(h2) {
		t.Fatal("legacy (160-bit) and modern (256-bit) hex digests should differ in length")
	}
}

func TestVerifyTarball(t *testing.T) {
	payload := []byte("a fake tarball payload")
	sum := sha256.Sum256(payload)
	expected := hex.EncodeToString(sum[:])

	ok, err := treehash.VerifyTarball(bytes.NewReader(payload), expected)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected tarball verification to succeed")
	}

	ok, err = treehash.VerifyTarball(bytes.NewReader(payload), "deadbeef")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected tarball verification to fail against a bogus hash")
	}
}
