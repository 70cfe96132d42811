package main

import (
	"flag"
	"time"

	"github.com/orbit-lang/orbitpkg/internal/depot"
)

const gcShortHelp = `Collect depot installs no known project uses`
const gcLongHelp = `
GC walks the given project roots' lock files (or the current directory
if none are given) to build a live-package set, then removes any
depot-installed package older than the collection delay that isn't in
it. -n reports what would be collected without deleting anything.
`

type gcCommand struct {
	dryRun bool
	delay  time.Duration
}

func (cmd *gcCommand) Name() string     { return "gc" }
func (cmd *gcCommand) Args() string     { return "[root ...]" }
func (cmd *gcCommand) ShortHelp() string { return gcShortHelp }
func (cmd *gcCommand) LongHelp() string  { return gcLongHelp }
func (cmd *gcCommand) Hidden() bool      { return false }

func (cmd *gcCommand) Register(fs *flag.FlagSet) {
	fs.BoolVar(&cmd.dryRun, "n", false, "dry run, report without deleting")
	fs.DurationVar(&cmd.delay, "delay", depot.DefaultCollectDelay, "orphan-aging window before a package is collectible")
}

func (cmd *gcCommand) Run(env *Env, args []string) error {
	roots := args
	if len(roots) == 0 {
		roots = []string{env.WorkingDir}
	}

	o, err := env.buildOperations()
	if err != nil {
		return err
	}

	result, err := o.GC(roots, depot.GCOptions{CollectDelay: cmd.delay, DryRun: cmd.dryRun})
	if err != nil {
		return err
	}
	env.Loggers.Out.LogPkgfln("collected %d, skipped %d", len(result.Collected), len(result.Skipped))
	for _, key := range result.Collected {
		env.Loggers.Out.Verbosef("  - %s\n", key)
	}
	return nil
}
