package artifact

import (
	"archive/tar"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/orbit-lang/orbitpkg/internal/depot"
	"github.com/orbit-lang/orbitpkg/internal/pkgerrors"
	"github.com/orbit-lang/orbitpkg/internal/treehash"
)

// Fetcher downloads a single URL to a local temp file and returns its
// path. internal/fetch's bounded-concurrency orchestrator implements
// this for real downloads; tests can supply a stub.
type Fetcher interface {
	Fetch(url string) (localPath string, err error)
}

// EnsureInstalled makes entry's artifact present in stack, downloading
// and verifying it if necessary. If stack already has a slot for
// entry.GitTreeSHA1, this is a no-op. Lazy entries are expected to be
// routed through this function only at first access, not at eager
// environment instantiation -- callers decide when to call it.
func EnsureInstalled(entry Entry, stack depot.Stack, fetcher Fetcher) (string, error) {
	if path, err := stack.ResolveArtifactPath(entry.GitTreeSHA1); err == nil {
		return path, nil
	}

	if len(entry.Downloads) == 0 {
		return "", &pkgerrors.NotFound{Kind: "artifact", ID: entry.GitTreeSHA1}
	}

	var lastErr error
	for _, dl := range entry.Downloads {
		path, err := tryDownload(dl, entry, stack, fetcher)
		if err != nil {
			lastErr = err
			continue
		}
		return path, nil
	}
	return "", errors.Wrap(lastErr, "all download mirrors failed")
}

func tryDownload(dl Download, entry Entry, stack depot.Stack, fetcher Fetcher) (string, error) {
	local, err := fetcher.Fetch(dl.URL)
	if err != nil {
		return "", err
	}
	defer os.Remove(local)

	if dl.SHA256 != "" {
		sum, err := sha256File(local)
		if err != nil {
			return "", err
		}
		if sum != dl.SHA256 {
			return "", &pkgerrors.HashMismatch{Source: dl.URL, Expected: dl.SHA256, Got: sum}
		}
	}

	extractDir, err := os.MkdirTemp("", "orbitpkg-artifact-*")
	if err != nil {
		return "", err
	}
	defer os.RemoveAll(extractDir)

	if err := ExtractTarball(local, extractDir); err != nil {
		return "", err
	}

	return stack.InstallArtifact(entry.GitTreeSHA1, treehash.Legacy160, extractDir)
}

func sha256File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// ExtractTarball unpacks a (possibly gzip-compressed) tar archive at
// tarballPath into destDir, preserving regular file modes, directories,
// and symlinks. Exported so internal/ops can reuse it for registered
// package source tarballs, not just artifact archives.
func ExtractTarball(tarballPath, destDir string) error {
	f, err := os.Open(tarballPath)
	if err != nil {
		return err
	}
	defer f.Close()

	var r io.Reader = f
	gz, err := gzip.NewReader(f)
	if err == nil {
		defer gz.Close()
		r = gz
	} else {
		if _, serr := f.Seek(0, io.SeekStart); serr != nil {
			return serr
		}
	}

	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		target := filepath.Join(destDir, hdr.Name)
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(hdr.Mode))
			if err != nil {
				return err
			}
			if _, err := io.Copy(out, tr); err != nil {
				out.Close()
				return err
			}
			out.Close()
		case tar.TypeSymlink:
			if err := os.Symlink(hdr.Linkname, target); err != nil {
				return err
			}
		}
	}
}
