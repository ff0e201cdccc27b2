package cache_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/informatter/flux/cache"
	"github.com/informatter/flux/compiler"
	"github.com/informatter/flux/lexer"
	"github.com/informatter/flux/parser"
	"github.com/informatter/flux/value"
	"github.com/informatter/flux/vm"
)

func compileSource(t *testing.T, src string) compiler.Bytecode {
	t.Helper()
	toks, err := lexer.New("test.flux", src).Scan()
	require.NoError(t, err)
	file, err := parser.Make("test.flux", toks).Parse()
	require.NoError(t, err)
	c := compiler.New("test.flux")
	require.NoError(t, c.Compile(file))
	return c.Bytecode()
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	bc := compileSource(t, "let square = \\x -> x * x\nsquare(6)")

	data, err := cache.Encode(bc)
	require.NoError(t, err)

	got, err := cache.Decode(data)
	require.NoError(t, err)
	require.Equal(t, bc.Instructions, got.Instructions)
	require.Equal(t, bc.ConstantsPool, got.ConstantsPool)
	require.Equal(t, bc.NameConstants, got.NameConstants)

	machine := vm.New("test.flux", false, 0)
	result, err := machine.Run(got)
	require.NoError(t, err)
	require.Equal(t, value.Integer(36), result)
}

func TestCachePutThenGetRoundTrips(t *testing.T) {
	dir := t.TempDir()
	c := cache.New(dir, true)
	bc := compileSource(t, "1 + 2")
	hash := cache.ContentHash([]byte("1 + 2"), nil)

	_, ok := c.Get(hash)
	require.False(t, ok)

	require.NoError(t, c.Put(hash, bc))

	got, ok := c.Get(hash)
	require.True(t, ok)
	require.Equal(t, bc.Instructions, got.Instructions)
}

func TestCacheDisabledNeverPersists(t *testing.T) {
	dir := t.TempDir()
	c := cache.New(dir, false)
	bc := compileSource(t, "1 + 2")
	hash := cache.ContentHash([]byte("1 + 2"), nil)

	require.NoError(t, c.Put(hash, bc))
	_, ok := c.Get(hash)
	require.False(t, ok)
}

func TestContentHashStableUnderImportOrder(t *testing.T) {
	a := cache.ContentHash([]byte("src"), []string{"h1", "h2"})
	b := cache.ContentHash([]byte("src"), []string{"h2", "h1"})
	require.Equal(t, a, b)
}

func TestContentHashChangesWithSource(t *testing.T) {
	a := cache.ContentHash([]byte("src-a"), nil)
	b := cache.ContentHash([]byte("src-b"), nil)
	require.NotEqual(t, a, b)
}
