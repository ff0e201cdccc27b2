package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/informatter/flux/cache"
	"github.com/informatter/flux/config"
)

// runCmd executes a Flux source file to completion, the way the teacher's
// runCompiledCmd drove nilan's lexer/parser/compiler/vm in one shot, but
// through the module graph and bytecode cache instead of a single file's
// worth of tokens.
type runCmd struct {
	cfg config.Config
}

func (*runCmd) Name() string     { return "run" }
func (*runCmd) Synopsis() string { return "Execute a Flux source file" }
func (*runCmd) Usage() string {
	return `run [flags] <file.flx>:
  Resolve the module graph rooted at <file.flx>, compile it, and execute it.
`
}

func (cmd *runCmd) SetFlags(f *flag.FlagSet) {
	cmd.cfg = config.Default()
	cmd.cfg.RegisterFlags(f)
}

func (cmd *runCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	args := f.Args()
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "flux run: no source file given")
		return subcommands.ExitUsageError
	}
	entryPath := args[0]

	c := cache.New(cmd.cfg.CacheDir, cmd.cfg.CacheEnabled)
	bc, err := compileProgram(cmd.cfg, c, entryPath)
	if err != nil {
		renderErr(err, sourceOf(entryPath), cmd.cfg.NoColor)
		return subcommands.ExitFailure
	}

	machine := newVM(entryPath, cmd.cfg)
	if _, err := machine.Run(bc); err != nil {
		renderErr(err, sourceOf(entryPath), cmd.cfg.NoColor)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// sourceOf reads path for diagnostic source-line rendering, swallowing any
// error — a missing file was already reported by whatever failed to read
// it in the first place, so the renderer just falls back to no source
// context rather than double-reporting.
func sourceOf(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return string(data)
}
