package compiler

import (
	"testing"

	"github.com/informatter/flux/ast"
	"github.com/informatter/flux/lexer"
	"github.com/informatter/flux/parser"
	"github.com/informatter/flux/token"
)

func assertBytecodeEquals(t *testing.T, got Bytecode, want Bytecode) {
	t.Helper()
	if len(got.Instructions) != len(want.Instructions) {
		t.Fatalf("computed instructions has a different length than expected - got: %d, want: %d\ngot:  %v\nwant: %v",
			len(got.Instructions), len(want.Instructions), got.Instructions, want.Instructions)
	}
	for i, instruction := range got.Instructions {
		if instruction != want.Instructions[i] {
			t.Errorf("computed instruction does not equal expected instruction at index %d - got: %d, want: %d", i, instruction, want.Instructions[i])
		}
	}
	if len(got.ConstantsPool) != len(want.ConstantsPool) {
		t.Fatalf("constants pool length mismatch - got: %d, want: %d", len(got.ConstantsPool), len(want.ConstantsPool))
	}
	for i, constant := range got.ConstantsPool {
		if constant != want.ConstantsPool[i] {
			t.Errorf("computed constant does not equal expected constant at index %d - want: %v, got: %v", i, want.ConstantsPool[i], constant)
		}
	}
}

// compileSource runs the full lexer -> parser -> compiler pipeline, the
// same integration shape the teacher's integration_test.go exercised,
// re-targeted at the new statement-based Compiler.
func compileSource(t *testing.T, source string) Bytecode {
	t.Helper()
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
	if len(c.Errors()) > 0 {
		t.Fatalf("compilation produced diagnostics: %v", c.Errors())
	}
	return c.Bytecode()
}

func TestCompileBinaryExpressions(t *testing.T) {
	tests := []struct {
		name             string
		source           string
		expectedBytecode Bytecode
	}{
		{
			name:   "addition",
			source: "5 + 1",
			expectedBytecode: Bytecode{
				Instructions:  []byte{byte(OP_CONSTANT), 0, 0, byte(OP_CONSTANT), 0, 1, byte(OP_ADD), byte(OP_POP), byte(OP_END)},
				ConstantsPool: []any{int64(5), int64(1)},
			},
		},
		{
			name:   "multiplication",
			source: "5 * 3",
			expectedBytecode: Bytecode{
				Instructions:  []byte{byte(OP_CONSTANT), 0, 0, byte(OP_CONSTANT), 0, 1, byte(OP_MULTIPLY), byte(OP_POP), byte(OP_END)},
				ConstantsPool: []any{int64(5), int64(3)},
			},
		},
		{
			name:   "negation",
			source: "-5",
			expectedBytecode: Bytecode{
				Instructions:  []byte{byte(OP_CONSTANT), 0, 0, byte(OP_NEGATE), byte(OP_POP), byte(OP_END)},
				ConstantsPool: []any{int64(5)},
			},
		},
		{
			name:   "precedence",
			source: "5 * 3 + 2",
			expectedBytecode: Bytecode{
				Instructions: []byte{
					byte(OP_CONSTANT), 0, 0,
					byte(OP_CONSTANT), 0, 1,
					byte(OP_MULTIPLY),
					byte(OP_CONSTANT), 0, 2,
					byte(OP_ADD),
					byte(OP_POP),
					byte(OP_END),
				},
				ConstantsPool: []any{int64(5), int64(3), int64(2)},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertBytecodeEquals(t, compileSource(t, tt.source), tt.expectedBytecode)
		})
	}
}

func TestCompileManualAST(t *testing.T) {
	// Exercise the Compiler directly against a hand-built AST, the way a
	// compiler stage test should — without depending on the parser ever
	// producing exactly this shape.
	file := &ast.File{
		Statements: []ast.Stmt{
			ast.ExpressionStmt{
				Expression: ast.Binary{
					Left:     ast.Literal{Value: int64(5)},
					Operator: token.CreateToken(token.ADD, 0, 0),
					Right:    ast.Literal{Value: int64(1)},
				},
			},
		},
	}
	c := New("test.flux")
	if err := c.Compile(file); err != nil {
		t.Fatalf("compilation failed: %v", err)
	}
	bc := c.Bytecode()
	if len(bc.Instructions) == 0 {
		t.Fatal("expected non-empty instructions")
	}
	if bc.ConstantsPool[0] != int64(5) || bc.ConstantsPool[1] != int64(1) {
		t.Errorf("unexpected constants pool: %v", bc.ConstantsPool)
	}
}

func TestDisassembleBytecode(t *testing.T) {
	bc := compileSource(t, "1 + 2 * 4 + 3")
	out := Disassemble(bc.Instructions)
	if out == "" {
		t.Fatal("expected non-empty disassembly")
	}
}
