package main

import (
	"flag"

	"github.com/orbit-lang/orbitpkg/internal/ops"
)

const updateShortHelp = `Re-resolve dependencies within their declared compat`
const updateLongHelp = `
Update re-resolves the named dependencies (or every non-pinned,
non-sourced dependency if none are named) up to the given level:
-major (default) allows any compatible version, -minor forbids a major
version bump, -patch forbids a minor or major bump, -fixed applies no
narrowing: it re-resolves only if Project.toml changed since the last
resolve, trying the locked versions first without holding them fixed.
`

type updateCommand struct {
	major bool
	minor bool
	patch bool
	fixed bool
}

func (cmd *updateCommand) Name() string     { return "update" }
func (cmd *updateCommand) Args() string     { return "[name ...]" }
func (cmd *updateCommand) ShortHelp() string { return updateShortHelp }
func (cmd *updateCommand) LongHelp() string  { return updateLongHelp }
func (cmd *updateCommand) Hidden() bool      { return false }

func (cmd *updateCommand) Register(fs *flag.FlagSet) {
	fs.BoolVar(&cmd.major, "major", false, "allow any version satisfying the declared compat range")
	fs.BoolVar(&cmd.minor, "minor", false, "forbid a major version bump")
	fs.BoolVar(&cmd.patch, "patch", false, "forbid a minor or major version bump")
	fs.BoolVar(&cmd.fixed, "fixed", false, "re-resolve only if Project.toml changed, trying locked versions first")
}

func (cmd *updateCommand) Run(env *Env, args []string) error {
	level := ops.LevelMajor
	switch {
	case cmd.fixed:
		level = ops.LevelFixed
	case cmd.patch:
		level = ops.LevelPatch
	case cmd.minor:
		level = ops.LevelMinor
	}

	o, err := env.buildOperations()
	if err != nil {
		return err
	}

	result, err := o.Update(env.WorkingDir, args, level)
	if err != nil {
		return err
	}
	env.Loggers.Out.LogPkgfln("resolved %d packages", len(result.Solution.Versions))
	return nil
}
