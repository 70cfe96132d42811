package ops

import (
	"github.com/pkg/errors"

	"github.com/orbit-lang/orbitpkg/internal/manifest"
)

// Pin marks name's currently locked version as fixed: future resolves
// and updates restrict it to exactly that version (a hard constraint
// rather than a preference), the same way `go mod edit -require` or
// golang-dep's lockfile overrides behave, until a matching Unpin call
// lifts it.
func (o *Operations) Pin(dir string, name string) error {
	env, err := o.loadEnvironment(dir)
	if err != nil {
		return err
	}
	id, ok := env.project.Deps[name]
	if !ok {
		return errors.Errorf("%q is not a dependency of this project", name)
	}
	rec, ok := env.manifest.Packages[id]
	if !ok {
		return errors.Errorf("%q has no resolved version to pin; run resolve first", name)
	}
	if err := o.snapshot(env, "pin "+name); err != nil {
		return err
	}
	rec.Pinned = true
	env.manifest.Packages[id] = rec

	return manifest.WriteManifest(dir, env.manifest, projectNameIndexStrings(env.project), hostMajor, hostMinor)
}

// Unpin clears name's pinned flag, letting it move again on the next
// resolve.
func (o *Operations) Unpin(dir string, name string) error {
	env, err := o.loadEnvironment(dir)
	if err != nil {
		return err
	}
	id, ok := env.project.Deps[name]
	if !ok {
		return errors.Errorf("%q is not a dependency of this project", name)
	}
	rec, ok := env.manifest.Packages[id]
	if !ok {
		return nil
	}
	if err := o.snapshot(env, "unpin "+name); err != nil {
		return err
	}
	rec.Pinned = false
	env.manifest.Packages[id] = rec

	return manifest.WriteManifest(dir, env.manifest, projectNameIndexStrings(env.project), hostMajor, hostMinor)
}

// projectNameIndexStrings is projectNameIndex with string-keyed UUIDs,
// the form manifest.WriteManifest expects.
func projectNameIndexStrings(p *manifest.Project) map[string]string {
	out := make(map[string]string, len(p.Deps))
	for name, id := range p.Deps {
		out[id.String()] = name
	}
	return out
}
