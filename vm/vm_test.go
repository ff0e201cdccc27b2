package vm

import (
	"testing"

	"github.com/informatter/flux/compiler"
	"github.com/informatter/flux/lexer"
	"github.com/informatter/flux/parser"
	"github.com/informatter/flux/value"
)

// compileSource runs the full lexer -> parser -> compiler pipeline, the same
// integration shape compiler_test.go exercises, and returns the resulting
// bytecode ready to feed to a VM.
func compileSource(t *testing.T, source string) compiler.Bytecode {
	t.Helper()
	toks, err := lexer.New("test.flux", source).Scan()
	if err != nil {
		t.Fatalf("lexing failed: %v", err)
	}
	file, err := parser.Make("test.flux", toks).Parse()
	if err != nil {
		t.Fatalf("parsing failed: %v", err)
	}
	c := compiler.New("test.flux")
	if err := c.Compile(file); err != nil {
		t.Fatalf("compilation failed: %v", err)
	}
	if len(c.Errors()) > 0 {
		t.Fatalf("compilation produced diagnostics: %v", c.Errors())
	}
	return c.Bytecode()
}

// run compiles and executes source on a fresh VM with GC disabled, the
// shape most VM-semantics tests want.
func run(t *testing.T, source string) value.Value {
	t.Helper()
	machine := New("test.flux", false, 0)
	result, err := machine.Run(compileSource(t, source))
	if err != nil {
		t.Fatalf("execution failed: %v", err)
	}
	return result
}

func TestRunArithmetic(t *testing.T) {
	tests := []struct {
		source string
		want   value.Value
	}{
		{"1 + 2 * 3", value.Integer(7)},
		{"(1 + 2) * 3", value.Integer(9)},
		{"10 / 3", value.Integer(3)},
		{"10 % 3", value.Integer(1)},
		{"1 + 2.5", value.Float(3.5)},
		{`"foo" + "bar"`, value.Str("foobar")},
		{"-5", value.Integer(-5)},
		{"!true", value.Boolean(false)},
	}
	for _, tt := range tests {
		got := run(t, tt.source)
		if got != tt.want {
			t.Errorf("%q: got %v, want %v", tt.source, got, tt.want)
		}
	}
}

func TestRunComparisons(t *testing.T) {
	tests := []struct {
		source string
		want   bool
	}{
		{"1 < 2", true},
		{"2 <= 2", true},
		{"3 > 2", true},
		{"3 >= 4", false},
		{"1 == 1", true},
		{"1 != 2", true},
		{`"a" < "b"`, true},
	}
	for _, tt := range tests {
		got := run(t, tt.source)
		if got != value.Boolean(tt.want) {
			t.Errorf("%q: got %v, want %v", tt.source, got, tt.want)
		}
	}
}

func TestRunLogical(t *testing.T) {
	tests := []struct {
		source string
		want   value.Value
	}{
		{"true and false", value.Boolean(false)},
		{"false or 3", value.Integer(3)},
		{"true and 3", value.Integer(3)},
	}
	for _, tt := range tests {
		got := run(t, tt.source)
		if got != tt.want {
			t.Errorf("%q: got %v, want %v", tt.source, got, tt.want)
		}
	}
}

func TestRunGlobalBinding(t *testing.T) {
	got := run(t, "let x = 40; x + 2")
	if got != value.Integer(42) {
		t.Errorf("got %v, want 42", got)
	}
}

func TestRunFunctionCallAndRecursion(t *testing.T) {
	source := `
fn fact(n) {
	if n <= 1 { 1 } else { n * fact(n - 1) }
}
fact(6)
`
	got := run(t, source)
	if got != value.Integer(720) {
		t.Errorf("got %v, want 720", got)
	}
}

func TestRunTailRecursionConstantStack(t *testing.T) {
	source := `
fn loop(n, acc) {
	if n == 0 { acc } else { loop(n - 1, acc + n) }
}
loop(100000, 0)
`
	got := run(t, source)
	if got != value.Integer(5000050000) {
		t.Errorf("got %v, want 5000050000", got)
	}
}

func TestRunClosureCapturesFreeVariable(t *testing.T) {
	source := `
let makeAdder = \x -> \y -> x + y;
let addFive = makeAdder(5);
addFive(3)
`
	got := run(t, source)
	if got != value.Integer(8) {
		t.Errorf("got %v, want 8", got)
	}
}

func TestRunArrayIndexingReturnsOption(t *testing.T) {
	inBounds := run(t, "[| 10, 20, 30 |][1]")
	if inBounds != (value.Some{Inner: value.Integer(20)}) {
		t.Errorf("got %v, want Some(20)", inBounds)
	}
	outOfBounds := run(t, "[| 10, 20, 30 |][9]")
	if outOfBounds != value.None {
		t.Errorf("got %v, want None", outOfBounds)
	}
}

func TestRunHashLiteralMissingKeyReturnsNone(t *testing.T) {
	missing := run(t, `{"a": 1, "b": 2}["c"]`)
	if missing != value.None {
		t.Errorf("got %v, want None", missing)
	}
}

func TestRunConsHeadTail(t *testing.T) {
	source := `
let xs = 1 :: 2 :: 3 :: None;
match xs { [h | t] -> Some(h), [] -> None }
`
	got := run(t, source)
	if got != (value.Some{Inner: value.Integer(1)}) {
		t.Errorf("got %v, want Some(1)", got)
	}
}

func TestRunTupleAndOptionLiterals(t *testing.T) {
	tup := run(t, `(1, "two", true)`)
	want := value.NewTuple(value.Integer(1), value.Str("two"), value.Boolean(true))
	if !value.DeepEqual(tup, want) {
		t.Errorf("got %v, want %v", tup, want)
	}

	some := run(t, "Some(5)")
	if some != (value.Some{Inner: value.Integer(5)}) {
		t.Errorf("got %v, want Some(5)", some)
	}
}

func TestRunDivisionByZero(t *testing.T) {
	machine := New("test.flux", false, 0)
	_, err := machine.Run(compileSource(t, "1 / 0"))
	if err == nil {
		t.Fatal("expected a division-by-zero error, got none")
	}
}

// TestVMSynthesizedBytecodeSimpleArithmetic exercises Run directly against
// hand-assembled bytecode, the lower-level shape the teacher's original
// vm_test.go used before the VM grew past two opcodes.
func TestVMSynthesizedBytecodeSimpleArithmetic(t *testing.T) {
	bc := compiler.Bytecode{
		Instructions: compiler.Instructions{
			byte(compiler.OP_CONSTANT), 0, 0,
			byte(compiler.OP_CONSTANT), 0, 1,
			byte(compiler.OP_ADD),
			byte(compiler.OP_END),
		},
		ConstantsPool: []any{int64(5), int64(7)},
	}
	machine := New("test.flux", false, 0)
	got, err := machine.Run(bc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != value.Integer(12) {
		t.Errorf("got %v, want 12", got)
	}
}
