package main

import (
	"os"

	"github.com/pkg/errors"

	"github.com/orbit-lang/orbitpkg/internal/depot"
	"github.com/orbit-lang/orbitpkg/internal/ops"
	"github.com/orbit-lang/orbitpkg/internal/pkgctx"
)

// packageServerEnv is the environment variable naming the fallback
// download host for packed-registry package source, read by the
// instantiate command.
const packageServerEnv = "ORBIT_PKG_SERVER"

// buildOperations assembles a *pkgctx.Ctx and opens every registry the
// depot stack knows about, the shared setup every subcommand other
// than `version` needs before it can call into internal/ops.
func (e *Env) buildOperations() (*ops.Operations, error) {
	ctx, err := pkgctx.New(e.ctxOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "building context")
	}

	stack, err := depot.Open(ctx.DepotDirs)
	if err != nil {
		return nil, errors.Wrap(err, "opening depot")
	}
	registryPaths, err := stack.RegistryPaths()
	if err != nil {
		return nil, errors.Wrap(err, "discovering registries")
	}
	if len(registryPaths) == 0 {
		e.Loggers.Err.Warnf("no registries found under %s/registries; clone one there before resolving", ctx.PrimaryDepot())
	}

	return ops.New(ctx, registryPaths, e.Loggers.Out)
}

// packageServer reads the configured package-server URL, empty if
// unset (meaning instantiate can only serve unpacked registries'
// on-disk package source).
func packageServer() ops.PackageServerURL {
	return ops.PackageServerURL(os.Getenv(packageServerEnv))
}
