package main

import (
	"flag"

	"github.com/orbit-lang/orbitpkg/internal/ops"
)

const resolveShortHelp = `(Re-)solve the project's dependency graph`
const resolveLongHelp = `
Resolve re-solves the project's dependency graph against the open
registries and writes the result to the lock file. It is a no-op if
the lock file's recorded project hash already matches Project.toml,
unless -force is given.
`

type resolveCommand struct {
	force bool
}

func (cmd *resolveCommand) Name() string     { return "resolve" }
func (cmd *resolveCommand) Args() string     { return "" }
func (cmd *resolveCommand) ShortHelp() string { return resolveShortHelp }
func (cmd *resolveCommand) LongHelp() string  { return resolveLongHelp }
func (cmd *resolveCommand) Hidden() bool      { return false }

func (cmd *resolveCommand) Register(fs *flag.FlagSet) {
	fs.BoolVar(&cmd.force, "force", false, "re-solve even if the lock file is already current")
}

func (cmd *resolveCommand) Run(env *Env, args []string) error {
	o, err := env.buildOperations()
	if err != nil {
		return err
	}

	result, err := o.Resolve(env.WorkingDir, ops.ResolveOptions{Force: cmd.force})
	if err != nil {
		return err
	}
	if !result.Wrote {
		env.Loggers.Out.LogPkgfln("lock file already current, nothing to do")
		return nil
	}
	env.Loggers.Out.LogPkgfln("resolved %d packages", len(result.Solution.Versions))
	return nil
}
