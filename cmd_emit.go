package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/subcommands"

	"github.com/informatter/flux/ast"
	"github.com/informatter/flux/astpass"
	"github.com/informatter/flux/cache"
	"github.com/informatter/flux/compiler"
	"github.com/informatter/flux/config"
	"github.com/informatter/flux/lexer"
	"github.com/informatter/flux/parser"
)

// emitCmd is the teacher's emitBytecodeCmd, generalized from a single
// file's worth of nilan bytecode to a whole module graph: it writes a
// disassembly (.dis) and the raw bytecode as hex (.hex) alongside the entry
// file, plus the parsed AST as JSON (.ast.json) when -dumpAST is given,
// instead of nilan's single .dnic/.nic pair. It reuses config.Config's own
// -diassemble/-dumpBytecode/-dumpAST flags rather than declaring a second
// set of bools under different names, overriding only the -diassemble and
// -dumpBytecode defaults to on (run/repl default them to off); -dumpAST
// stays off unless passed.
type emitCmd struct {
	cfg config.Config
}

func (*emitCmd) Name() string     { return "emit" }
func (*emitCmd) Synopsis() string { return "Emit the compiled representation of a source file" }
func (*emitCmd) Usage() string {
	return `emit [flags] <file.flx>`
}

func (cmd *emitCmd) SetFlags(f *flag.FlagSet) {
	cmd.cfg = config.Default()
	cmd.cfg.RegisterFlags(f)
	// RegisterFlags just reset these to their run/repl default of false
	// (via its own literal BoolVar default) — flip them back to emit's
	// own default of on; flag.Parse still wins if the user passes
	// -diassemble=false/-dumpBytecode=false explicitly.
	cmd.cfg.Disassemble = true
	cmd.cfg.DumpBytecode = true
}

func (cmd *emitCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	args := f.Args()
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "flux emit: no source file given")
		return subcommands.ExitUsageError
	}
	entryPath := args[0]
	base := strings.TrimSuffix(entryPath, filepath.Ext(entryPath))

	if cmd.cfg.DumpAST {
		if err := cmd.writeAST(entryPath, base); err != nil {
			fmt.Fprintf(os.Stderr, "flux emit: %v\n", err)
			return subcommands.ExitFailure
		}
	}

	c := cache.New(cmd.cfg.CacheDir, false)
	bc, err := compileProgram(cmd.cfg, c, entryPath)
	if err != nil {
		renderErr(err, sourceOf(entryPath), cmd.cfg.NoColor)
		return subcommands.ExitFailure
	}

	if cmd.cfg.Disassemble {
		text := compiler.Disassemble(bc.Instructions)
		if err := os.WriteFile(base+".dis", []byte(text), 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "flux emit: writing disassembly: %v\n", err)
			return subcommands.ExitFailure
		}
	}
	if cmd.cfg.DumpBytecode {
		encoded, err := cache.Encode(bc)
		if err != nil {
			fmt.Fprintf(os.Stderr, "flux emit: encoding bytecode: %v\n", err)
			return subcommands.ExitFailure
		}
		if err := os.WriteFile(base+".hex", []byte(hex.EncodeToString(encoded)), 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "flux emit: writing bytecode: %v\n", err)
			return subcommands.ExitFailure
		}
	}
	return subcommands.ExitSuccess
}

func (cmd *emitCmd) writeAST(entryPath, base string) error {
	data, err := os.ReadFile(entryPath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", entryPath, err)
	}
	toks, err := lexer.New(entryPath, string(data)).Scan()
	if err != nil {
		return fmt.Errorf("lexing %s: %w", entryPath, err)
	}
	file, err := parser.Make(entryPath, toks).Parse()
	if err != nil {
		return fmt.Errorf("parsing %s: %w", entryPath, err)
	}
	if cmd.cfg.OptimizeEnabled {
		file = astpass.Fold(file)
	}
	return ast.WriteJSONToFile(file, base+".ast.json")
}
