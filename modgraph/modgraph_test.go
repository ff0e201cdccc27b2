package modgraph_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/informatter/flux/modgraph"
	"github.com/informatter/flux/value"
	"github.com/informatter/flux/vm"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, src string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func TestBuildResolvesSingleImport(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "Math/Utils.flx", "module Math.Utils\n\nfn square(x) -> x * x\n")
	entry := writeFile(t, dir, "main.flx", "import Math.Utils as MU\n\nMU.square(4)\n")

	g, err := modgraph.Build(entry, nil, false)
	require.NoError(t, err)
	require.Len(t, g.Order, 2)
	require.Equal(t, "Math.Utils", g.Order[0].Name)
	require.Equal(t, g.Entry, g.Order[len(g.Order)-1])
}

func TestCompileAllResolvesQualifiedCall(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "Math/Utils.flx", "module Math.Utils\n\nfn square(x) -> x * x\n")
	entry := writeFile(t, dir, "main.flx", "import Math.Utils as MU\n\nMU.square(4)\n")

	g, err := modgraph.Build(entry, nil, false)
	require.NoError(t, err)

	bc, _, err := modgraph.CompileAll(g)
	require.NoError(t, err)

	machine := vm.New(entry, false, 0)
	result, err := machine.Run(bc)
	require.NoError(t, err)
	require.Equal(t, value.Integer(16), result)
}

func TestBuildDetectsImportCycle(t *testing.T) {
	dir := t.TempDir()
	entry := writeFile(t, dir, "A.flx", "module A\n\nimport B\n\nfn a() -> B.b()\n")
	writeFile(t, dir, "B.flx", "module B\n\nimport A\n\nfn b() -> A.a()\n")

	_, err := modgraph.Build(entry, nil, false)
	require.Error(t, err)
}

func TestBuildReportsModuleNotFound(t *testing.T) {
	dir := t.TempDir()
	entry := writeFile(t, dir, "main.flx", "import Missing.Module\n\n1\n")

	_, err := modgraph.Build(entry, nil, false)
	require.Error(t, err)
}
