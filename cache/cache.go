// Package cache implements spec.md §4.5's bytecode cache: a content-hashed
// .fxc file per compiled module under a configurable directory, fronted by
// an in-process LRU so a single run never re-reads a .fxc it already
// decoded. No teacher equivalent exists (nilan recompiles from source on
// every run); grounded on ProbeChain-go-probe's Keccak/SHA-3 content
// hashing (see hash.go) for the digest and on that repo's
// hashicorp/golang-lru hot-object cache for the in-memory front.
package cache

import (
	"os"
	"path/filepath"

	"github.com/hashicorp/golang-lru/v2"

	"github.com/informatter/flux/compiler"
	"github.com/informatter/flux/flog"
)

// defaultMemEntries bounds how many decoded Bytecode values the in-memory
// front keeps resident; a single compiler invocation rarely touches more
// than a few dozen modules, so this comfortably covers a cold run without
// holding an unbounded amount of decoded bytecode in memory for a long-
// lived process like a language server.
const defaultMemEntries = 256

// Cache is a two-level store: an in-memory LRU in front of a directory of
// .fxc files. Both levels are keyed by the same ContentHash digest, so a
// process-local hit never touches disk and a disk hit never re-lexes or
// re-parses.
type Cache struct {
	dir     string
	mem     *lru.Cache[string, compiler.Bytecode]
	enabled bool
}

// New creates a Cache rooted at dir. enabled false turns every Get into a
// permanent miss and every Put into a no-op, the switch config.Config's
// -cache flag drives.
func New(dir string, enabled bool) *Cache {
	mem, err := lru.New[string, compiler.Bytecode](defaultMemEntries)
	if err != nil {
		// Only returns an error for a non-positive size, which
		// defaultMemEntries never is.
		panic(err)
	}
	return &Cache{dir: dir, mem: mem, enabled: enabled}
}

// Get returns the cached Bytecode for hash, checking the in-memory front
// before falling back to disk. A disk hit is decoded and back-filled into
// the memory tier so the next lookup for the same hash skips the read
// entirely.
func (c *Cache) Get(hash string) (compiler.Bytecode, bool) {
	if !c.enabled {
		return compiler.Bytecode{}, false
	}
	if bc, ok := c.mem.Get(hash); ok {
		flog.For("cache").Debug().Str("hash", hash).Msg("memory hit")
		return bc, true
	}

	data, err := os.ReadFile(c.path(hash))
	if err != nil {
		return compiler.Bytecode{}, false
	}
	bc, err := Decode(data)
	if err != nil {
		flog.For("cache").Warn().Str("hash", hash).Err(err).Msg("discarding unreadable .fxc entry")
		_ = os.Remove(c.path(hash))
		return compiler.Bytecode{}, false
	}
	c.mem.Add(hash, bc)
	flog.For("cache").Debug().Str("hash", hash).Msg("disk hit")
	return bc, true
}

// Put stores bc under hash in both tiers. The disk write is a write-then-
// rename into place: two compiler processes racing to cache the same
// module both write to distinct temp files and only one rename wins, so a
// reader never observes a partially written .fxc.
func (c *Cache) Put(hash string, bc compiler.Bytecode) error {
	if !c.enabled {
		return nil
	}
	c.mem.Add(hash, bc)

	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return errf(codeCacheWrite, c.dir, "cannot create cache directory: %v", err)
	}
	data, err := Encode(bc)
	if err != nil {
		return errf(codeCacheWrite, hash, "cannot encode bytecode: %v", err)
	}

	final := c.path(hash)
	tmp, err := os.CreateTemp(c.dir, "."+hash+".*.tmp")
	if err != nil {
		return errf(codeCacheWrite, final, "cannot create temp file: %v", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return errf(codeCacheWrite, final, "cannot write temp file: %v", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return errf(codeCacheWrite, final, "cannot close temp file: %v", err)
	}
	if err := os.Rename(tmpPath, final); err != nil {
		os.Remove(tmpPath)
		return errf(codeCacheWrite, final, "cannot rename into place: %v", err)
	}
	flog.For("cache").Debug().Str("hash", hash).Msg("wrote .fxc entry")
	return nil
}

func (c *Cache) path(hash string) string {
	return filepath.Join(c.dir, hash+".fxc")
}
