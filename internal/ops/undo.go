package ops

import (
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/orbit-lang/orbitpkg/internal/fsutil"
	"github.com/orbit-lang/orbitpkg/internal/manifest"
)

// Undo restores dir's Project.toml and current-format Manifest file to
// the snapshot captured immediately before the most recent mutating
// operation. It returns the label of the operation undone.
func (o *Operations) Undo(dir string) (string, error) {
	h := o.Ctx.History()
	if h == nil {
		return "", errors.New("undo history is disabled (UndoDepth is 0)")
	}
	snap, ok := h.Undo()
	if !ok {
		return "", errors.New("nothing to undo")
	}
	if err := restoreSnapshot(dir, snap.Project, snap.Manifest); err != nil {
		return "", err
	}
	return snap.Label, nil
}

// Redo re-applies the most recently undone snapshot.
func (o *Operations) Redo(dir string) (string, error) {
	h := o.Ctx.History()
	if h == nil {
		return "", errors.New("undo history is disabled (UndoDepth is 0)")
	}
	snap, ok := h.Redo()
	if !ok {
		return "", errors.New("nothing to redo")
	}
	if err := restoreSnapshot(dir, snap.Project, snap.Manifest); err != nil {
		return "", err
	}
	return snap.Label, nil
}

func restoreSnapshot(dir string, projectBytes, manifestBytes []byte) error {
	if err := fsutil.WriteFileAtomic(filepath.Join(dir, manifest.ProjectFileName), projectBytes, 0o644); err != nil {
		return errors.Wrap(err, "restoring project file")
	}
	path := manifest.SelectManifestPath(dir, hostMajor, hostMinor)
	if path == "" {
		path = filepath.Join(dir, manifest.VersionedManifestName(hostMajor, hostMinor))
	}
	if err := fsutil.WriteFileAtomic(path, manifestBytes, 0o644); err != nil {
		return errors.Wrap(err, "restoring manifest file")
	}
	return nil
}
