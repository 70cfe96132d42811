// Command orbitpkg manages dependencies for Orbit packages and
// projects: registry-backed resolution, a content-addressed depot, and
// reproducible per-project lock files.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/orbit-lang/orbitpkg/internal/logging"
	"github.com/orbit-lang/orbitpkg/internal/pkgctx"
)

// command is the interface every orbitpkg subcommand implements,
// registered once in Config.Run's command table.
type command interface {
	Name() string           // "add"
	Args() string            // "<name>[@compat] ..."
	ShortHelp() string       // "Add a dependency to the project"
	LongHelp() string        // full usage prose
	Register(*flag.FlagSet) // command-specific flags
	Hidden() bool            // omit from the top-level help listing
	Run(*Env, []string) error
}

// Env bundles the per-invocation state a command's Run method needs:
// loggers, the working directory it operates against, and the pkgctx
// options buildOperations turns into the pkgctx.Ctx every internal/ops
// call requires. It is built fresh once
// the subcommand's flags have been parsed, mirroring how golang-dep's
// main.go assembles a *dep.Ctx only after flag parsing completes.
type Env struct {
	WorkingDir string
	Loggers    Loggers
	Verbose    bool

	ctxOpts []pkgctx.Option
}

func main() {
	wd, err := os.Getwd()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to get working directory:", err)
		os.Exit(1)
	}
	c := &Config{
		Args:       os.Args,
		Stdout:     os.Stdout,
		Stderr:     os.Stderr,
		WorkingDir: wd,
		Env:        os.Environ(),
	}
	os.Exit(c.Run())
}

// Config specifies a full configuration for one orbitpkg invocation.
type Config struct {
	WorkingDir     string
	Args           []string
	Env            []string
	Stdout, Stderr io.Writer
}

// Run dispatches to the named subcommand and returns an exit code.
func (c *Config) Run() (exitCode int) {
	commands := []command{
		&addCommand{},
		&rmCommand{},
		&developCommand{},
		&freeCommand{},
		&pinCommand{},
		&unpinCommand{},
		&updateCommand{},
		&resolveCommand{},
		&instantiateCommand{},
		&gcCommand{},
		&previewCommand{},
		&undoCommand{},
		&redoCommand{},
		&versionCommand{},
	}

	examples := [][2]string{
		{"orbitpkg add Alpha", "add a registered dependency at any compatible version"},
		{"orbitpkg add Alpha@^1.2.0", "add a dependency constrained to a compat range"},
		{"orbitpkg resolve", "(re-)solve the project's dependency graph"},
		{"orbitpkg update", "update every non-pinned dependency within its declared compat"},
		{"orbitpkg instantiate", "materialize the locked manifest onto disk"},
	}

	outLogger := logging.New(c.Stdout)
	errLogger := logging.New(c.Stderr)

	usage := func() {
		errLogger.Logln("orbitpkg manages dependencies for Orbit packages and projects")
		errLogger.Logln()
		errLogger.Logln("Usage: orbitpkg <command>")
		errLogger.Logln()
		errLogger.Logln("Commands:")
		errLogger.Logln()
		w := tabwriter.NewWriter(c.Stderr, 0, 4, 2, ' ', 0)
		for _, cmd := range commands {
			if !cmd.Hidden() {
				fmt.Fprintf(w, "\t%s\t%s\n", cmd.Name(), cmd.ShortHelp())
			}
		}
		w.Flush()
		errLogger.Logln()
		errLogger.Logln("Examples:")
		for _, ex := range examples {
			fmt.Fprintf(w, "\t%s\t%s\n", ex[0], ex[1])
		}
		w.Flush()
		errLogger.Logln()
		errLogger.Logln(`Use "orbitpkg help <command>" for more information about a command.`)
	}

	cmdName, printCommandHelp, exit := parseArgs(c.Args)
	if exit {
		usage()
		exitCode = 1
		return
	}

	for _, cmd := range commands {
		if cmd.Name() != cmdName {
			continue
		}

		fs := flag.NewFlagSet(cmdName, flag.ContinueOnError)
		fs.SetOutput(c.Stderr)
		verbose := fs.Bool("v", false, "enable verbose logging")
		offline := fs.Bool("offline", false, "restrict to what's already present in the depot")
		depotPath := fs.String("depot", "", "override the depot search path (colon-separated)")

		cmd.Register(fs)
		resetUsage(errLogger, fs, cmdName, cmd.Args(), cmd.LongHelp())

		if printCommandHelp {
			fs.Usage()
			exitCode = 1
			return
		}

		if err := fs.Parse(c.Args[2:]); err != nil {
			exitCode = 1
			return
		}

		outLogger.Verbose = *verbose
		errLogger.Verbose = *verbose

		var opts []pkgctx.Option
		if *offline {
			opts = append(opts, pkgctx.WithOffline(true))
		}
		if *depotPath != "" {
			opts = append(opts, pkgctx.WithDepotDirs(filepath.SplitList(*depotPath)))
		}

		env := &Env{
			WorkingDir: c.WorkingDir,
			Loggers:    Loggers{Out: outLogger, Err: errLogger},
			Verbose:    *verbose,
			ctxOpts:    opts,
		}

		if err := cmd.Run(env, fs.Args()); err != nil {
			errLogger.LogPkgfln("%v", err)
			exitCode = 1
			return
		}
		return
	}

	errLogger.LogPkgfln("%s: no such command", cmdName)
	usage()
	exitCode = 1
	return
}

func resetUsage(logger *logging.Logger, fs *flag.FlagSet, name, args, longHelp string) {
	var (
		hasFlags   bool
		flagBlock  bytes.Buffer
		flagWriter = tabwriter.NewWriter(&flagBlock, 0, 4, 2, ' ', 0)
	)
	fs.VisitAll(func(f *flag.Flag) {
		hasFlags = true
		defValue := f.DefValue
		if defValue == "" {
			defValue = "<none>"
		}
		fmt.Fprintf(flagWriter, "\t-%s\t%s (default: %s)\n", f.Name, f.Usage, defValue)
	})
	flagWriter.Flush()
	fs.Usage = func() {
		logger.Logf("Usage: orbitpkg %s %s\n", name, args)
		logger.Logln()
		logger.Logln(strings.TrimSpace(longHelp))
		logger.Logln()
		if hasFlags {
			logger.Logln("Flags:")
			logger.Logln()
			logger.Logln(flagBlock.String())
		}
	}
}

// parseArgs determines the subcommand name and whether the user asked
// for help to be printed.
func parseArgs(args []string) (cmdName string, printCmdUsage bool, exit bool) {
	isHelpArg := func() bool {
		return strings.Contains(strings.ToLower(args[1]), "help") || strings.ToLower(args[1]) == "-h"
	}

	switch len(args) {
	case 0, 1:
		exit = true
	case 2:
		if isHelpArg() {
			exit = true
		}
		cmdName = args[1]
	default:
		if isHelpArg() {
			cmdName = args[2]
			printCmdUsage = true
		} else {
			cmdName = args[1]
		}
	}
	return cmdName, printCmdUsage, exit
}
