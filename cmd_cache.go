package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/subcommands"

	"github.com/informatter/flux/config"
)

// cacheCmd manages the on-disk .fxc bytecode cache directly, the way the
// teacher's cmd_emit_bytecode.go let a developer inspect compiled output
// without running a program. "clear" is the only mutating action; it
// never touches anything outside cfg.CacheDir.
type cacheCmd struct {
	cfg   config.Config
	clear bool
}

func (*cacheCmd) Name() string     { return "cache" }
func (*cacheCmd) Synopsis() string { return "Inspect or clear the bytecode cache" }
func (*cacheCmd) Usage() string {
	return `cache [-clear] [-cache-dir <dir>]`
}

func (cmd *cacheCmd) SetFlags(f *flag.FlagSet) {
	cmd.cfg = config.Default()
	cmd.cfg.RegisterFlags(f)
	f.BoolVar(&cmd.clear, "clear", false, "remove every .fxc entry from the cache directory")
}

func (cmd *cacheCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	entries, err := os.ReadDir(cmd.cfg.CacheDir)
	if os.IsNotExist(err) {
		fmt.Printf("%s: no cache entries yet\n", cmd.cfg.CacheDir)
		return subcommands.ExitSuccess
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "flux cache: %v\n", err)
		return subcommands.ExitFailure
	}

	if cmd.clear {
		n := 0
		for _, e := range entries {
			if filepath.Ext(e.Name()) != ".fxc" {
				continue
			}
			if err := os.Remove(filepath.Join(cmd.cfg.CacheDir, e.Name())); err != nil {
				fmt.Fprintf(os.Stderr, "flux cache: removing %s: %v\n", e.Name(), err)
				continue
			}
			n++
		}
		fmt.Printf("removed %d cache entries from %s\n", n, cmd.cfg.CacheDir)
		return subcommands.ExitSuccess
	}

	count, total := 0, int64(0)
	for _, e := range entries {
		if filepath.Ext(e.Name()) != ".fxc" {
			continue
		}
		if info, err := e.Info(); err == nil {
			count++
			total += info.Size()
		}
	}
	fmt.Printf("%s: %d entries, %d bytes\n", cmd.cfg.CacheDir, count, total)
	return subcommands.ExitSuccess
}
