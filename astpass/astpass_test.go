package astpass_test

import (
	"testing"

	"github.com/informatter/flux/ast"
	"github.com/informatter/flux/astpass"
	"github.com/informatter/flux/compiler"
	"github.com/informatter/flux/lexer"
	"github.com/informatter/flux/parser"
	"github.com/informatter/flux/value"
	"github.com/informatter/flux/vm"
)

func parse(t *testing.T, source string) *ast.File {
	t.Helper()
	toks, err := lexer.New("test.flux", source).Scan()
	if err != nil {
		t.Fatalf("lexing failed: %v", err)
	}
	file, err := parser.Make("test.flux", toks).Parse()
	if err != nil {
		t.Fatalf("parsing failed: %v", err)
	}
	return file
}

func runFile(t *testing.T, file *ast.File) value.Value {
	t.Helper()
	c := compiler.New("test.flux")
	if err := c.Compile(file); err != nil {
		t.Fatalf("compilation failed: %v", err)
	}
	if len(c.Errors()) > 0 {
		t.Fatalf("compilation produced diagnostics: %v", c.Errors())
	}
	machine := vm.New("test.flux", false, 0)
	result, err := machine.Run(c.Bytecode())
	if err != nil {
		t.Fatalf("execution failed: %v", err)
	}
	return result
}

// TestFoldProducesSameResultAsUnfolded exercises spec.md §8's testable
// property directly: running with and without the optional fold pass must
// be bit-identical for pure expressions.
func TestFoldProducesSameResultAsUnfolded(t *testing.T) {
	tests := []string{
		"1 + 2 * 3",
		"(1 + 2) * (10 - 4)",
		"1.5 + 2.5 * 2",
		`"foo" + "bar"`,
		"1 < 2 && 3 > 2",
		"!(1 == 2)",
		"-(-5)",
		"10 % 3 == 1",
		"if 1 < 2 { 1 + 1 } else { 0 }",
	}
	for _, src := range tests {
		unfolded := runFile(t, parse(t, src))
		folded := runFile(t, astpass.Fold(parse(t, src)))
		if unfolded != folded {
			t.Errorf("%q: unfolded=%v folded=%v", src, unfolded, folded)
		}
	}
}

func TestFoldLeavesDivisionByZeroUnfolded(t *testing.T) {
	file := astpass.Fold(parse(t, "1 / 0"))
	c := compiler.New("test.flux")
	if err := c.Compile(file); err != nil {
		t.Fatalf("compilation failed: %v", err)
	}
	machine := vm.New("test.flux", false, 0)
	if _, err := machine.Run(c.Bytecode()); err == nil {
		t.Error("expected a division-by-zero error to survive folding")
	}
}

func TestFreeVarsExcludesParamsAndLets(t *testing.T) {
	file := parse(t, "fn f(x) -> do { let y = x + outer\n y * another }")
	fn := file.Statements[0].(ast.FuncDeclStmt).Fn
	free := astpass.FreeVars(fn)
	want := []string{"another", "outer"}
	if len(free) != len(want) {
		t.Fatalf("got %v, want %v", free, want)
	}
	for i := range want {
		if free[i] != want[i] {
			t.Errorf("got %v, want %v", free, want)
		}
	}
}

func TestFreeVarsEmptyForSelfContained(t *testing.T) {
	file := parse(t, "fn square(x) -> x * x")
	fn := file.Statements[0].(ast.FuncDeclStmt).Fn
	if free := astpass.FreeVars(fn); len(free) != 0 {
		t.Errorf("expected no free variables, got %v", free)
	}
}
