package main

import (
	"flag"
	"strings"

	"github.com/pkg/errors"

	"github.com/orbit-lang/orbitpkg/internal/ops"
)

const addShortHelp = `Add a dependency to the project`
const addLongHelp = `
Add registers one or more dependencies in Project.toml by name,
resolved against the open registries, and re-resolves the project.
Each argument may carry an explicit compat range as name@range, e.g.
Alpha@^1.2.0; without one, the resolver is free to pick any version.
`

type addCommand struct{}

func (cmd *addCommand) Name() string            { return "add" }
func (cmd *addCommand) Args() string             { return "<name>[@compat] ..." }
func (cmd *addCommand) ShortHelp() string        { return addShortHelp }
func (cmd *addCommand) LongHelp() string         { return addLongHelp }
func (cmd *addCommand) Hidden() bool             { return false }
func (cmd *addCommand) Register(fs *flag.FlagSet) {}

func (cmd *addCommand) Run(env *Env, args []string) error {
	if len(args) == 0 {
		return errors.New("add requires at least one package name")
	}

	reqs := make([]ops.AddRequest, 0, len(args))
	for _, arg := range args {
		name, compat, _ := strings.Cut(arg, "@")
		reqs = append(reqs, ops.AddRequest{Name: name, Compat: compat})
	}

	o, err := env.buildOperations()
	if err != nil {
		return err
	}

	result, err := o.Add(env.WorkingDir, reqs)
	if err != nil {
		return err
	}
	env.Loggers.Out.LogPkgfln("resolved %d packages", len(result.Solution.Versions))
	return nil
}
