package cache

import (
	"encoding/hex"
	"sort"

	"golang.org/x/crypto/sha3"

	"github.com/informatter/flux/compiler"
)

// ContentHash computes the key spec.md §4.5 caches bytecode under: a digest
// over the compiler version, this module's own canonical source bytes, and
// the (already-computed) content hashes of its direct imports. Folding a
// dependency's hash into its importer's means any change to a transitive
// import — not just the file being compiled — invalidates every .fxc that
// depended on it, without needing to re-hash the dependency's source here.
//
// Import hashes are sorted before hashing so import declaration order
// doesn't change the digest; two modules importing the same set of
// dependencies in a different order still hit the same cache entry.
func ContentHash(source []byte, importHashes []string) string {
	sorted := append([]string{}, importHashes...)
	sort.Strings(sorted)

	h := sha3.New256()
	h.Write([]byte(compiler.Version))
	h.Write([]byte{0})
	h.Write(source)
	for _, ih := range sorted {
		h.Write([]byte{0})
		h.Write([]byte(ih))
	}
	return hex.EncodeToString(h.Sum(nil))
}
