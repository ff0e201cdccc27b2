package main

import (
	"fmt"
	"os"

	"github.com/hashicorp/go-multierror"

	"github.com/informatter/flux/astpass"
	"github.com/informatter/flux/builtins"
	"github.com/informatter/flux/cache"
	"github.com/informatter/flux/compiler"
	"github.com/informatter/flux/config"
	"github.com/informatter/flux/diagnostics"
	"github.com/informatter/flux/flog"
	"github.com/informatter/flux/modgraph"
	"github.com/informatter/flux/vm"
)

// compileProgram resolves entryPath's module graph, folds constants when
// cfg.OptimizeEnabled, and compiles the whole graph into one shared
// Bytecode — consulting and populating the bytecode cache along the way.
// This is the one pipeline main.go's run/repl/emit subcommands all share,
// so -cache/-optimize/-root behave identically no matter which one is
// driving.
func compileProgram(cfg config.Config, c *cache.Cache, entryPath string) (compiler.Bytecode, error) {
	g, err := modgraph.Build(entryPath, cfg.Roots(), cfg.SuppressDefaultRoots)
	if err != nil {
		return compiler.Bytecode{}, err
	}

	hashes, err := moduleHashes(g)
	if err != nil {
		return compiler.Bytecode{}, err
	}
	entryHash := hashes[g.Entry]

	if bc, ok := c.Get(entryHash); ok {
		flog.For("cli").Debug().Str("entry", entryPath).Msg("bytecode cache hit")
		return bc, nil
	}

	if cfg.OptimizeEnabled {
		for _, m := range g.Order {
			m.File = astpass.Fold(m.File)
		}
	}

	bc, _, err := modgraph.CompileAll(g)
	if err != nil {
		return compiler.Bytecode{}, err
	}

	if err := c.Put(entryHash, bc); err != nil {
		flog.For("cli").Warn().Err(err).Msg("could not persist bytecode cache entry")
	}
	return bc, nil
}

// moduleHashes computes cache.ContentHash for every module in g, in
// topological order so each module's direct imports already have a hash
// by the time it's their turn — the recursive hash spec.md §4.5 describes
// without re-hashing a dependency's source at every importer.
func moduleHashes(g *modgraph.Graph) (map[*modgraph.Module]string, error) {
	hashes := make(map[*modgraph.Module]string, len(g.Order))
	for _, m := range g.Order {
		src, err := os.ReadFile(m.Path)
		if err != nil {
			return nil, fmt.Errorf("reading %s for cache hash: %w", m.Path, err)
		}
		importHashes := make([]string, len(m.Imports))
		for i, imp := range m.Imports {
			importHashes[i] = hashes[imp.Target]
		}
		hashes[m] = cache.ContentHash(src, importHashes)
	}
	return hashes, nil
}

// newVM wires one VM together with its builtin table, the two-step
// construction vm.New's doc comment describes: builtins close over the
// heap New already created, so they can only be built after New returns.
func newVM(file string, cfg config.Config) *vm.VM {
	machine := vm.New(file, cfg.GCEnabled, cfg.GCInitialThreshold)
	machine.SetBuiltins(builtins.New(machine))
	return machine
}

// renderErr prints err to stderr as one or more diagnostics.Diagnostic
// renderings when possible, falling back to a plain line for errors that
// originate outside the compiler pipeline (a missing file, an I/O failure).
func renderErr(err error, src string, noColor bool) {
	if noColor {
		os.Setenv("NO_COLOR", "1")
	}
	renderer := diagnostics.NewRenderer(os.Stderr)

	if merr, ok := err.(*multierror.Error); ok {
		for _, e := range merr.Errors {
			renderOne(renderer, e, src)
		}
		return
	}
	renderOne(renderer, err, src)
}

func renderOne(renderer *diagnostics.Renderer, err error, src string) {
	if d, ok := err.(diagnostics.Diagnostic); ok {
		renderer.Render(d, src)
		return
	}
	fmt.Fprintln(os.Stderr, err.Error())
}
