package compiler

import (
	"testing"

	"github.com/informatter/flux/lexer"
	"github.com/informatter/flux/parser"
)

// TestFullPipelineLetAndFunctions demonstrates the complete pipeline
// (tokens -> AST -> bytecode) for the constructs arithmetic-only tests
// don't reach: global bindings, closures, and calls.
func TestFullPipelineLetAndFunctions(t *testing.T) {
	tests := []struct {
		name   string
		source string
	}{
		{"global let binding", "let x = 5"},
		{"function declaration and call", "fn add(a, b) -> a + b\nadd(1, 2)"},
		{"closure over an outer binding", "let n = 10\nfn addN(x) -> x + n\naddN(5)"},
		{"if expression", "let x = if 1 < 2 { 1 } else { 2 }"},
		{"match expression", "match 1 with { 0 -> \"zero\", _ -> \"other\" }"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			toks, err := lexer.New("test.flux", tt.source).Scan()
			if err != nil {
				t.Fatalf("lexing failed: %v", err)
			}
			file, err := parser.Make("test.flux", toks).Parse()
			if err != nil {
				t.Fatalf("parsing failed: %v", err)
			}
			c := New("test.flux")
			if err := c.Compile(file); err != nil {
				t.Fatalf("compilation failed: %v", err)
			}
			if errs := c.Errors(); len(errs) > 0 {
				t.Fatalf("compilation produced diagnostics: %v", errs)
			}
			bc := c.Bytecode()
			if len(bc.Instructions) == 0 {
				t.Fatal("expected non-empty instructions")
			}
		})
	}
}

// TestGlobalBindingReused checks that a global, once bound, resolves to
// the same OP_GET_GLOBAL slot on every subsequent read rather than being
// redefined.
func TestGlobalBindingReused(t *testing.T) {
	source := "let x = 1\nx + x"
	toks, err := lexer.New("test.flux", source).Scan()
	if err != nil {
		t.Fatalf("lexing failed: %v", err)
	}
	file, err := parser.Make("test.flux", toks).Parse()
	if err != nil {
		t.Fatalf("parsing failed: %v", err)
	}
	c := New("test.flux")
	if err := c.Compile(file); err != nil {
		t.Fatalf("compilation failed: %v", err)
	}
	sym, ok := c.SymbolTable().Resolve("x")
	if !ok {
		t.Fatal("expected x to resolve in the global symbol table")
	}
	if sym.Scope != GlobalScope {
		t.Errorf("expected GlobalScope, got %s", sym.Scope)
	}
}
