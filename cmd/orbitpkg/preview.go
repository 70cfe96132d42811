package main

import "flag"

const previewShortHelp = `Show what resolve would change`
const previewLongHelp = `
Preview computes the solve resolve would perform without writing
anything, and prints each package whose version would move, or that
would be added or removed.
`

type previewCommand struct{}

func (cmd *previewCommand) Name() string            { return "preview" }
func (cmd *previewCommand) Args() string             { return "" }
func (cmd *previewCommand) ShortHelp() string        { return previewShortHelp }
func (cmd *previewCommand) LongHelp() string         { return previewLongHelp }
func (cmd *previewCommand) Hidden() bool             { return false }
func (cmd *previewCommand) Register(fs *flag.FlagSet) {}

func (cmd *previewCommand) Run(env *Env, args []string) error {
	o, err := env.buildOperations()
	if err != nil {
		return err
	}

	changes, err := o.Preview(env.WorkingDir)
	if err != nil {
		return err
	}
	if len(changes) == 0 {
		env.Loggers.Out.LogPkgfln("no changes")
		return nil
	}
	for _, c := range changes {
		switch {
		case c.From.IsZero():
			env.Loggers.Out.Logf("  + %s %s\n", c.Name, c.To)
		case c.To.IsZero():
			env.Loggers.Out.Logf("  - %s %s\n", c.Name, c.From)
		default:
			env.Loggers.Out.Logf("  ~ %s %s -> %s\n", c.Name, c.From, c.To)
		}
	}
	return nil
}
