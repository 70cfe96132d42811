package main

import "flag"

const undoShortHelp = `Revert the project to its state before the last operation`
const undoLongHelp = `
Undo restores Project.toml and the lock file to their state
immediately before the most recently run mutating operation, from an
in-memory session history (not persisted across invocations).
`

type undoCommand struct{}

func (cmd *undoCommand) Name() string            { return "undo" }
func (cmd *undoCommand) Args() string             { return "" }
func (cmd *undoCommand) ShortHelp() string        { return undoShortHelp }
func (cmd *undoCommand) LongHelp() string         { return undoLongHelp }
func (cmd *undoCommand) Hidden() bool             { return false }
func (cmd *undoCommand) Register(fs *flag.FlagSet) {}

func (cmd *undoCommand) Run(env *Env, args []string) error {
	o, err := env.buildOperations()
	if err != nil {
		return err
	}
	label, err := o.Undo(env.WorkingDir)
	if err != nil {
		return err
	}
	env.Loggers.Out.LogPkgfln("undid %q", label)
	return nil
}

const redoShortHelp = `Reapply the state undo last reverted`
const redoLongHelp = `
Redo restores Project.toml and the lock file to the snapshot the most
recent undo reverted from.
`

type redoCommand struct{}

func (cmd *redoCommand) Name() string            { return "redo" }
func (cmd *redoCommand) Args() string             { return "" }
func (cmd *redoCommand) ShortHelp() string        { return redoShortHelp }
func (cmd *redoCommand) LongHelp() string         { return redoLongHelp }
func (cmd *redoCommand) Hidden() bool             { return false }
func (cmd *redoCommand) Register(fs *flag.FlagSet) {}

func (cmd *redoCommand) Run(env *Env, args []string) error {
	o, err := env.buildOperations()
	if err != nil {
		return err
	}
	label, err := o.Redo(env.WorkingDir)
	if err != nil {
		return err
	}
	env.Loggers.Out.LogPkgfln("redid %q", label)
	return nil
}
