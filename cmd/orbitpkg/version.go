package main

import "flag"

const versionShortHelp = `Display version`
const versionLongHelp = `
Display the version of this orbitpkg build.
`

// Version is the orbitpkg build version, overridden at release build
// time via -ldflags.
var Version = "0.0.1-dev"

type versionCommand struct{}

func (cmd *versionCommand) Name() string            { return "version" }
func (cmd *versionCommand) Args() string             { return "" }
func (cmd *versionCommand) ShortHelp() string        { return versionShortHelp }
func (cmd *versionCommand) LongHelp() string         { return versionLongHelp }
func (cmd *versionCommand) Hidden() bool             { return false }
func (cmd *versionCommand) Register(fs *flag.FlagSet) {}

func (cmd *versionCommand) Run(env *Env, args []string) error {
	env.Loggers.Out.Logln(Version)
	return nil
}
