// Package config centralizes the settings every Flux subcommand needs, so
// each cmd_*.go file builds one Config from its flag.FlagSet instead of
// repeating flag wiring, following the per-subcommand SetFlags pattern the
// teacher's cmd_repl_compiled.go already used for -diassemble/-dumpBytecode/
// -dumpAST.
package config

import (
	"flag"
	"os"
	"strings"
)

// Config carries every cross-cutting option the pipeline needs: where to
// resolve imports from, whether to use the bytecode cache, whether to run
// AST optimization passes, whether the GC heap is enabled, and how
// diagnostics should be colored.
type Config struct {
	SearchRoots        []string
	SuppressDefaultRoots bool
	CacheEnabled       bool
	CacheDir           string
	OptimizeEnabled    bool
	GCEnabled          bool
	GCInitialThreshold int
	NoColor            bool
	DumpAST            bool
	DumpBytecode       bool
	Disassemble        bool
}

// Default returns the baseline Config before flags are applied.
func Default() Config {
	cacheDir := os.Getenv("FLUX_CACHE_DIR")
	if cacheDir == "" {
		cacheDir = "target/flux"
	}
	return Config{
		SearchRoots:        []string{"."},
		CacheEnabled:       true,
		CacheDir:           cacheDir,
		OptimizeEnabled:    true,
		GCEnabled:          true,
		GCInitialThreshold: 10000,
		NoColor:            os.Getenv("NO_COLOR") != "",
	}
}

// RegisterFlags adds the common flag set to fs, mutating cfg in place when
// fs.Parse runs. Individual subcommands call this from their SetFlags
// implementation, then add any subcommand-specific flags of their own.
func (cfg *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.Func("root", "additional module search root (repeatable)", func(v string) error {
		cfg.SearchRoots = append(cfg.SearchRoots, v)
		return nil
	})
	fs.BoolVar(&cfg.SuppressDefaultRoots, "no-default-roots", false, "do not search the current directory for imports")
	fs.BoolVar(&cfg.CacheEnabled, "cache", cfg.CacheEnabled, "enable the bytecode cache")
	fs.StringVar(&cfg.CacheDir, "cache-dir", cfg.CacheDir, "bytecode cache directory")
	fs.BoolVar(&cfg.OptimizeEnabled, "optimize", cfg.OptimizeEnabled, "run AST optimization passes")
	fs.BoolVar(&cfg.GCEnabled, "gc", cfg.GCEnabled, "enable the heap garbage collector")
	fs.IntVar(&cfg.GCInitialThreshold, "gc-threshold", cfg.GCInitialThreshold, "initial GC allocation threshold")
	fs.BoolVar(&cfg.NoColor, "no-color", cfg.NoColor, "disable colored diagnostics")
	fs.BoolVar(&cfg.DumpAST, "dumpAST", false, "print the parsed AST as JSON")
	fs.BoolVar(&cfg.DumpBytecode, "dumpBytecode", false, "print the compiled bytecode")
	fs.BoolVar(&cfg.Disassemble, "diassemble", false, "print disassembled instructions")
}

// Roots returns the effective module search roots, honoring
// SuppressDefaultRoots.
func (cfg Config) Roots() []string {
	if !cfg.SuppressDefaultRoots {
		return cfg.SearchRoots
	}
	out := make([]string, 0, len(cfg.SearchRoots))
	for _, r := range cfg.SearchRoots {
		if r != "." {
			out = append(out, r)
		}
	}
	return out
}

func envBool(name string) bool {
	v := strings.ToLower(os.Getenv(name))
	return v == "1" || v == "true" || v == "yes"
}
