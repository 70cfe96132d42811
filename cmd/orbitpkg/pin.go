package main

import (
	"flag"

	"github.com/pkg/errors"
)

const pinShortHelp = `Fix a dependency's locked version`
const pinLongHelp = `
Pin marks a dependency's currently locked version as fixed: future
resolve/update calls treat it as a hard constraint rather than a
preference, until a matching unpin.
`

type pinCommand struct{}

func (cmd *pinCommand) Name() string            { return "pin" }
func (cmd *pinCommand) Args() string             { return "<name>" }
func (cmd *pinCommand) ShortHelp() string        { return pinShortHelp }
func (cmd *pinCommand) LongHelp() string         { return pinLongHelp }
func (cmd *pinCommand) Hidden() bool             { return false }
func (cmd *pinCommand) Register(fs *flag.FlagSet) {}

func (cmd *pinCommand) Run(env *Env, args []string) error {
	if len(args) != 1 {
		return errors.New("pin takes exactly one package name")
	}
	o, err := env.buildOperations()
	if err != nil {
		return err
	}
	if err := o.Pin(env.WorkingDir, args[0]); err != nil {
		return err
	}
	env.Loggers.Out.LogPkgfln("%s pinned", args[0])
	return nil
}

const unpinShortHelp = `Release a dependency's fixed version`
const unpinLongHelp = `
Unpin clears a previously pinned dependency's fixed-version flag,
letting it move again on the next resolve or update.
`

type unpinCommand struct{}

func (cmd *unpinCommand) Name() string            { return "unpin" }
func (cmd *unpinCommand) Args() string             { return "<name>" }
func (cmd *unpinCommand) ShortHelp() string        { return unpinShortHelp }
func (cmd *unpinCommand) LongHelp() string         { return unpinLongHelp }
func (cmd *unpinCommand) Hidden() bool             { return false }
func (cmd *unpinCommand) Register(fs *flag.FlagSet) {}

func (cmd *unpinCommand) Run(env *Env, args []string) error {
	if len(args) != 1 {
		return errors.New("unpin takes exactly one package name")
	}
	o, err := env.buildOperations()
	if err != nil {
		return err
	}
	if err := o.Unpin(env.WorkingDir, args[0]); err != nil {
		return err
	}
	env.Loggers.Out.LogPkgfln("%s unpinned", args[0])
	return nil
}
