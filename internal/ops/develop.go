package ops

import (
	"context"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/orbit-lang/orbitpkg/internal/fsutil"
	"github.com/orbit-lang/orbitpkg/internal/manifest"
	"github.com/orbit-lang/orbitpkg/internal/pkgid"
	"github.com/orbit-lang/orbitpkg/internal/vcsfetch"
)

// DevelopRequest points a dependency at a live working tree instead of
// an immutable registry install: either an existing local Path, or a
// git URL+Rev that gets cloned into the depot's dev/ directory.
// Exactly one of Path or URL must be set.
type DevelopRequest struct {
	Name string
	ID   pkgid.ID

	Path string

	URL string
	Rev string
}

// Develop records req in dir's Project.toml sources table and pins the
// corresponding manifest entry directly to that working tree,
// bypassing the resolver entirely. The working tree's own Project.toml
// is not read, here or by Resolve or Instantiate, so its requirements
// take no part in resolution.
func (o *Operations) Develop(dir string, req DevelopRequest) error {
	if (req.Path == "") == (req.URL == "") {
		return errors.New("develop requires exactly one of Path or URL")
	}

	env, err := o.loadEnvironment(dir)
	if err != nil {
		return err
	}
	if err := o.snapshot(env, "develop "+req.Name); err != nil {
		return err
	}
	if env.project.Sources == nil {
		env.project.Sources = make(map[string]manifest.SourceSpec)
	}
	if env.project.Deps == nil {
		env.project.Deps = make(map[string]pkgid.ID)
	}

	rec := manifest.PackageRecord{UUID: req.ID}

	switch {
	case req.Path != "":
		env.project.Sources[req.Name] = manifest.SourceSpec{Path: req.Path}
		rec.Path = req.Path

	case req.URL != "":
		checkoutDir, err := o.Depot.DevPath(req.Name)
		if err != nil {
			return err
		}
		if err := o.Trust.GuardNetwork("develop checkout of " + req.URL); err != nil {
			return err
		}
		co, err := vcsfetch.New(req.URL, checkoutDir)
		if err != nil {
			return errors.Wrapf(err, "preparing checkout for %s", req.Name)
		}
		ctx := context.Background()
		if err := co.Get(ctx); err != nil {
			return errors.Wrapf(err, "cloning %s", req.URL)
		}
		if req.Rev != "" {
			if err := co.CheckoutRev(ctx, req.Rev); err != nil {
				return errors.Wrapf(err, "checking out %s at %s", req.URL, req.Rev)
			}
		}
		rev, err := co.CurrentRev()
		if err != nil {
			return errors.Wrap(err, "reading checked out revision")
		}

		env.project.Sources[req.Name] = manifest.SourceSpec{URL: req.URL, Rev: req.Rev}
		rec.RepoURL = req.URL
		rec.RepoRev = rev
	}

	env.project.Deps[req.Name] = req.ID
	if env.manifest.Packages == nil {
		env.manifest.Packages = make(map[pkgid.ID]manifest.PackageRecord)
	}
	if env.manifest.Names == nil {
		env.manifest.Names = make(map[pkgid.ID]string)
	}
	env.manifest.Packages[req.ID] = rec
	env.manifest.Names[req.ID] = req.Name

	return o.writeEnvironment(env)
}

// Free removes the develop-mode source pin for name, reverting it to
// an ordinary registry-tracked dependency and triggering a fresh
// resolve so a concrete version is chosen again.
func (o *Operations) Free(dir string, name string) (*ResolveResult, error) {
	env, err := o.loadEnvironment(dir)
	if err != nil {
		return nil, err
	}
	id, ok := env.project.Deps[name]
	if !ok {
		return nil, errors.Errorf("%q is not a dependency of this project", name)
	}
	delete(env.project.Sources, name)
	delete(env.manifest.Packages, id)

	projectPath := filepath.Join(dir, manifest.ProjectFileName)
	orig, err := os.ReadFile(projectPath)
	if err != nil {
		return nil, errors.Wrap(err, "reading project file")
	}
	if err := manifest.WriteProject(dir, env.project); err != nil {
		return nil, errors.Wrap(err, "writing project file")
	}
	res, err := o.Resolve(dir, ResolveOptions{Force: true})
	if err != nil {
		if rerr := fsutil.WriteFileAtomic(projectPath, orig, 0o644); rerr != nil {
			return nil, errors.Wrapf(err, "restoring project file also failed: %v", rerr)
		}
		return nil, err
	}
	return res, nil
}
