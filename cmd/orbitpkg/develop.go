package main

import (
	"flag"

	"github.com/pkg/errors"

	"github.com/orbit-lang/orbitpkg/internal/ops"
	"github.com/orbit-lang/orbitpkg/internal/pkgid"
)

const developShortHelp = `Track a dependency against a live working tree`
const developLongHelp = `
Develop points a dependency at a local directory (-path) or a git
checkout (-url, optionally -rev) instead of an immutable registry
install, bypassing the resolver for that package entirely. The
package's UUID is looked up from the open registries unless -uuid
overrides it, which unregistered local packages require.
`

type developCommand struct {
	path string
	url  string
	rev  string
	uuid string
}

func (cmd *developCommand) Name() string     { return "develop" }
func (cmd *developCommand) Args() string     { return "<name>" }
func (cmd *developCommand) ShortHelp() string { return developShortHelp }
func (cmd *developCommand) LongHelp() string  { return developLongHelp }
func (cmd *developCommand) Hidden() bool      { return false }

func (cmd *developCommand) Register(fs *flag.FlagSet) {
	fs.StringVar(&cmd.path, "path", "", "local directory to track")
	fs.StringVar(&cmd.url, "url", "", "git URL to clone and track")
	fs.StringVar(&cmd.rev, "rev", "", "revision to check out (with -url)")
	fs.StringVar(&cmd.uuid, "uuid", "", "package UUID, overriding registry lookup")
}

func (cmd *developCommand) Run(env *Env, args []string) error {
	if len(args) != 1 {
		return errors.New("develop takes exactly one package name")
	}
	name := args[0]

	o, err := env.buildOperations()
	if err != nil {
		return err
	}

	id, err := cmd.resolveID(o, name)
	if err != nil {
		return err
	}

	req := ops.DevelopRequest{Name: name, ID: id, Path: cmd.path, URL: cmd.url, Rev: cmd.rev}
	if err := o.Develop(env.WorkingDir, req); err != nil {
		return err
	}
	env.Loggers.Out.LogPkgfln("%s now tracks a working tree", name)
	return nil
}

func (cmd *developCommand) resolveID(o *ops.Operations, name string) (pkgid.ID, error) {
	if cmd.uuid != "" {
		return pkgid.Parse(cmd.uuid)
	}
	return o.LookupByName(name)
}

const freeShortHelp = `Stop tracking a dependency's working tree`
const freeLongHelp = `
Free removes a develop-mode source pin, reverting the dependency to an
ordinary registry-tracked package and triggering a fresh resolve.
`

type freeCommand struct{}

func (cmd *freeCommand) Name() string            { return "free" }
func (cmd *freeCommand) Args() string             { return "<name>" }
func (cmd *freeCommand) ShortHelp() string        { return freeShortHelp }
func (cmd *freeCommand) LongHelp() string         { return freeLongHelp }
func (cmd *freeCommand) Hidden() bool             { return false }
func (cmd *freeCommand) Register(fs *flag.FlagSet) {}

func (cmd *freeCommand) Run(env *Env, args []string) error {
	if len(args) != 1 {
		return errors.New("free takes exactly one package name")
	}

	o, err := env.buildOperations()
	if err != nil {
		return err
	}

	result, err := o.Free(env.WorkingDir, args[0])
	if err != nil {
		return err
	}
	env.Loggers.Out.LogPkgfln("resolved %d packages", len(result.Solution.Versions))
	return nil
}
