package main

import (
	"flag"

	"github.com/pkg/errors"
)

const rmShortHelp = `Remove a dependency from the project`
const rmLongHelp = `
Remove deletes one or more dependencies from Project.toml (and any
compat or develop/VCS source entries for them), then re-resolves. If
another dependency still needs it transitively, the re-resolve simply
picks it back up as an indirect dependency.
`

type rmCommand struct{}

func (cmd *rmCommand) Name() string            { return "rm" }
func (cmd *rmCommand) Args() string             { return "<name> ..." }
func (cmd *rmCommand) ShortHelp() string        { return rmShortHelp }
func (cmd *rmCommand) LongHelp() string         { return rmLongHelp }
func (cmd *rmCommand) Hidden() bool             { return false }
func (cmd *rmCommand) Register(fs *flag.FlagSet) {}

func (cmd *rmCommand) Run(env *Env, args []string) error {
	if len(args) == 0 {
		return errors.New("rm requires at least one package name")
	}

	o, err := env.buildOperations()
	if err != nil {
		return err
	}

	result, err := o.Rm(env.WorkingDir, args)
	if err != nil {
		return err
	}
	env.Loggers.Out.LogPkgfln("resolved %d packages", len(result.Solution.Versions))
	return nil
}
