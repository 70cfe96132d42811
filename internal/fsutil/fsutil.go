// Package fsutil collects the filesystem primitives every on-disk
// component of orbitpkg needs: atomic rename-with-fallback, recursive
// tree copy, and directory existence checks. It generalizes
// golang-dep's fs.go to the depot/artifact/manifest install paths,
// keeping the same cross-device rename fallback behavior.
package fsutil

import (
	"io"
	"os"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/pkg/errors"
	"github.com/termie/go-shutil"
)

// IsDir reports whether name exists and is a directory.
func IsDir(name string) (bool, error) {
	fi, err := os.Stat(name)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if !fi.IsDir() {
		return false, errors.Errorf("%q is not a directory", name)
	}
	return true, nil
}

// IsEmptyDirOrNotExist reports whether name is a directory with no
// entries, or doesn't exist at all -- the precondition orbitpkg checks
// before installing into a depot content slot.
func IsEmptyDirOrNotExist(name string) (bool, error) {
	entries, err := os.ReadDir(name)
	if err != nil {
		if os.IsNotExist(err) {
			return true, nil
		}
		return false, err
	}
	return len(entries) == 0, nil
}

// RenameWithFallback attempts an atomic rename, falling back to a
// recursive copy-then-remove when src and dest span different
// filesystems (EXDEV) -- the depot's temp-dir-then-rename install
// pattern needs this because ORBIT_PKG_DEPOT_PATH entries may be
// mounted separately from the system temp directory.
func RenameWithFallback(src, dest string) error {
	fi, err := os.Lstat(src)
	if err != nil {
		return err
	}

	if runtime.GOOS == "windows" && fi.IsDir() {
		if err := CopyTree(src, dest); err != nil {
			return err
		}
		return os.RemoveAll(src)
	}

	if err := os.Rename(src, dest); err == nil {
		return nil
	} else if cerr := crossDeviceFallback(err, src, dest, fi); cerr != nil {
		return cerr
	} else {
		return os.RemoveAll(src)
	}
}

func crossDeviceFallback(err error, src, dest string, fi os.FileInfo) error {
	terr, ok := err.(*os.LinkError)
	if !ok {
		return err
	}

	isCrossDevice := terr.Err == syscall.EXDEV
	if runtime.GOOS == "windows" {
		if errno, ok := terr.Err.(syscall.Errno); ok && errno == 0x11 {
			isCrossDevice = true
		}
	}
	if !isCrossDevice {
		return terr
	}

	if fi.IsDir() {
		return CopyTree(src, dest)
	}
	return CopyFile(src, dest)
}

// CopyFile copies a single file, preserving its permission bits.
func CopyFile(src, dest string) error {
	if err := shutil.CopyFile(src, dest, false); err != nil {
		return errors.Wrapf(err, "copying %s to %s", src, dest)
	}
	return nil
}

// ignoredTreeNames are version-control and vendor directories that
// never belong inside a depot content slot or artifact payload.
var ignoredTreeNames = map[string]bool{
	"vendor": true,
	".git":   true,
	".bzr":   true,
	".svn":   true,
	".hg":    true,
}

// CopyTree recursively copies src to dest, preserving symlinks and
// skipping VCS/vendor directories, mirroring the CopyTreeOptions the
// teacher configures for its vendor-aware repo export.
func CopyTree(src, dest string) error {
	cfg := &shutil.CopyTreeOptions{
		Symlinks:     true,
		CopyFunction: shutil.Copy,
		Ignore: func(_ string, contents []os.FileInfo) []string {
			var ignore []string
			for _, fi := range contents {
				if fi.IsDir() && ignoredTreeNames[fi.Name()] {
					ignore = append(ignore, fi.Name())
				}
			}
			return ignore
		},
	}
	if err := shutil.CopyTree(src, dest, cfg); err != nil {
		return errors.Wrapf(err, "copying tree %s to %s", src, dest)
	}
	return nil
}

// WriteFileAtomic writes content to path by writing to a sibling temp
// file and renaming it into place, so readers never observe a
// partially written file. Used by the manifest and project file writers.
func WriteFileAtomic(path string, content []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return errors.Wrap(err, "creating temp file for atomic write")
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return errors.Wrap(err, "writing temp file")
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return errors.Wrap(err, "syncing temp file")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return errors.Wrap(err, "closing temp file")
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		os.Remove(tmpPath)
		return errors.Wrap(err, "chmod on temp file")
	}
	if err := RenameWithFallback(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return errors.Wrap(err, "renaming temp file into place")
	}
	return nil
}

// CopyStream copies all of r into w, a thin helper kept for symmetry
// with the hash/verify helpers that also stream over io.Reader/Writer.
func CopyStream(w io.Writer, r io.Reader) (int64, error) {
	return io.Copy(w, r)
}
