package main

import "flag"

const instantiateShortHelp = `Materialize the locked manifest onto disk`
const instantiateLongHelp = `
Instantiate makes every package named in the current lock file
actually present: registry-tracked packages are installed into the
depot, develop-mode packages are left as their existing working tree,
and VCS-tracked packages are checked out to their locked revision if
missing. It never re-resolves; run resolve first if the lock file is
stale. Packed registries need ORBIT_PKG_SERVER set to fetch package
source over the network.
`

type instantiateCommand struct{}

func (cmd *instantiateCommand) Name() string            { return "instantiate" }
func (cmd *instantiateCommand) Args() string             { return "" }
func (cmd *instantiateCommand) ShortHelp() string        { return instantiateShortHelp }
func (cmd *instantiateCommand) LongHelp() string         { return instantiateLongHelp }
func (cmd *instantiateCommand) Hidden() bool             { return false }
func (cmd *instantiateCommand) Register(fs *flag.FlagSet) {}

func (cmd *instantiateCommand) Run(env *Env, args []string) error {
	o, err := env.buildOperations()
	if err != nil {
		return err
	}

	result, err := o.Instantiate(env.WorkingDir, packageServer())
	if err != nil {
		return err
	}
	env.Loggers.Out.LogPkgfln("installed %d, skipped %d (already present)", len(result.Installed), len(result.Skipped))
	for _, name := range result.Installed {
		env.Loggers.Out.Verbosef("  + %s\n", name)
	}
	return nil
}
