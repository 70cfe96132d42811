// Package treehash computes a deterministic content hash of a
// directory tree, matching the tree hash recorded by registries so
// depot installs can be verified byte-for-byte. Two hash families are
// supported side by side (legacy 160-bit, modern 256-bit) because
// registries are free to record either, and orbitpkg must be able to
// recompute whichever one a given package entry carries (§9's
// "tree-hash algorithm compatibility" design note).
//
// The algorithm mirrors the widely implemented git tree-object
// scheme: a blob is hashed as "blob <len>\0"+content, a tree as
// "tree <len>\0"+sorted(mode name\0hash) entries, recursively, with
// entries sorted byte-wise by name. Directory traversal uses
// karrick/godirwalk (as vendored by the teacher) for a fast, stable
// walk whose result we still re-sort ourselves to stay independent of
// the walker's own ordering guarantees.
package treehash

import (
	"crypto/sha1" //nolint:gosec // legacy hash family, required for backward-compatible registries
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/karrick/godirwalk"
	"github.com/pkg/errors"
)

// Family selects which hash construction to use.
type Family int

const (
	// Legacy160 is the original 160-bit tree hash family.
	Legacy160 Family = iota
	// Modern256 is the 256-bit tree hash family registries are
	// migrating to.
	Modern256
)

func (f Family) newHash() hash.Hash {
	switch f {
	case Modern256:
		return sha256.New()
	default:
		return sha1.New() //nolint:gosec
	}
}

const (
	modeFile = "100644"
	modeExec = "100755"
	modeLink = "120000"
	modeDir  = "40000"
)

// Hash computes the tree hash of the directory at root using the
// given hash family. It is independent of filesystem enumeration
// order and encodes executable and symlink mode bits, as required.
func Hash(root string, fam Family) (string, error) {
	h, err := hashDir(root, fam)
	if err != nil {
		return "", errors.Wrapf(err, "hashing tree at %s", root)
	}
	return hex.EncodeToString(h), nil
}

type dirent struct {
	name string
	mode string
	sum  []byte
}

func hashDir(dir string, fam Family) ([]byte, error) {
	entries, err := godirwalk.ReadDirents(dir, nil)
	if err != nil {
		return nil, err
	}

	var children []dirent
	for _, e := range entries {
		full := filepath.Join(dir, e.Name())
		fi, err := os.Lstat(full)
		if err != nil {
			return nil, err
		}

		switch {
		case fi.Mode()&os.ModeSymlink != 0:
			target, err := os.Readlink(full)
			if err != nil {
				return nil, err
			}
			sum := hashBlob([]byte(target), fam)
			children = append(children, dirent{name: e.Name(), mode: modeLink, sum: sum})
		case fi.IsDir():
			sum, err := hashDir(full, fam)
			if err != nil {
				return nil, err
			}
			children = append(children, dirent{name: e.Name(), mode: modeDir, sum: sum})
		default:
			sum, err := hashFile(full, fam)
			if err != nil {
				return nil, err
			}
			mode := modeFile
			if fi.Mode()&0o111 != 0 {
				mode = modeExec
			}
			children = append(children, dirent{name: e.Name(), mode: mode, sum: sum})
		}
	}

	sort.Slice(children, func(i, j int) bool {
		return treeSortKey(children[i]) < treeSortKey(children[j])
	})

	h := fam.newHash()
	// The canonical entry block is raw bytes (mode, name, NUL, raw
	// digest bytes); it can't be built through a strings.Builder since
	// digests are arbitrary binary.
	var raw []byte
	for _, c := range children {
		raw = append(raw, []byte(fmt.Sprintf("%s %s\x00", c.mode, c.name))...)
		raw = append(raw, c.sum...)
	}
	header := fmt.Sprintf("tree %d\x00", len(raw))
	h.Write([]byte(header))
	h.Write(raw)
	return h.Sum(nil), nil
}

// treeSortKey orders entries the way git does: by raw name bytes,
// treating directories as if their name had a trailing slash, so that
// "foo" sorts before "foo.go" but after "foo/".
func treeSortKey(d dirent) string {
	if d.mode == modeDir {
		return d.name + "/"
	}
	return d.name
}

func hashBlob(content []byte, fam Family) []byte {
	h := fam.newHash()
	fmt.Fprintf(h, "blob %d\x00", len(content))
	h.Write(content)
	return h.Sum(nil)
}

func hashFile(path string, fam Family) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}

	h := fam.newHash()
	fmt.Fprintf(h, "blob %d\x00", fi.Size())
	if _, err := io.Copy(h, f); err != nil {
		return nil, err
	}
	return h.Sum(nil), nil
}

// Verify reports whether the tree at dir hashes to expectedHex under
// the given family.
func Verify(dir string, expectedHex string, fam Family) (bool, error) {
	got, err := Hash(dir, fam)
	if err != nil {
		return false, err
	}
	return strings.EqualFold(got, expectedHex), nil
}

// VerifyTarball computes the raw byte hash (sha256) of an entire
// tarball payload stream, independent of tree structure -- used at
// download time, before extraction, to check against a registry's
// recorded download hash.
func VerifyTarball(r io.Reader, expectedHexSHA256 string) (bool, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return false, errors.Wrap(err, "reading tarball payload")
	}
	got := hex.EncodeToString(h.Sum(nil))
	return strings.EqualFold(got, expectedHexSHA256), nil
}
