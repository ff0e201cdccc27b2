package builtins_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/informatter/flux/builtins"
	"github.com/informatter/flux/compiler"
	"github.com/informatter/flux/lexer"
	"github.com/informatter/flux/parser"
	"github.com/informatter/flux/value"
	"github.com/informatter/flux/vm"
)

// run compiles and executes source on a fresh VM with its builtin table
// installed, the same two-phase construction cmd_run.go/cmd_repl.go use.
func run(t *testing.T, source string) value.Value {
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

	machine := vm.New("test.flux", false, 0)
	machine.SetBuiltins(builtins.New(machine))
	result, err := machine.Run(c.Bytecode())
	if err != nil {
		t.Fatalf("execution failed: %v", err)
	}
	return result
}

func runErr(t *testing.T, source string) error {
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

	machine := vm.New("test.flux", false, 0)
	machine.SetBuiltins(builtins.New(machine))
	_, err = machine.Run(c.Bytecode())
	return err
}

func TestLenAcrossKinds(t *testing.T) {
	tests := []struct {
		source string
		want   value.Value
	}{
		{`len("hello")`, value.Integer(5)},
		{"len([1, 2, 3])", value.Integer(3)},
		{"len(1 :: 2 :: None)", value.Integer(2)},
		{"len(None)", value.Integer(0)},
		{`len({"a": 1, "b": 2})`, value.Integer(2)},
	}
	for _, tt := range tests {
		got := run(t, tt.source)
		if got != tt.want {
			t.Errorf("%q: got %v, want %v", tt.source, got, tt.want)
		}
	}
}

func TestHeadTailOnEmptyListReturnNone(t *testing.T) {
	if got := run(t, "head(None)"); got != value.None {
		t.Errorf("head(None): got %v, want None", got)
	}
	if got := run(t, "tail(None)"); got != value.None {
		t.Errorf("tail(None): got %v, want None", got)
	}
}

func TestAppendPrependReverse(t *testing.T) {
	got := run(t, `len(append(1 :: 2 :: None, 3))`)
	if got != value.Integer(3) {
		t.Errorf("append: got %v, want 3", got)
	}
	got = run(t, "head(prepend(1 :: 2 :: None, 0))")
	if got != (value.Some{Inner: value.Integer(0)}) {
		t.Errorf("prepend: got %v, want Some(0)", got)
	}
	got = run(t, "head(reverse(1 :: 2 :: 3 :: None))")
	if got != (value.Some{Inner: value.Integer(3)}) {
		t.Errorf("reverse: got %v, want Some(3)", got)
	}
}

func TestMapFilterFoldReduce(t *testing.T) {
	got := run(t, "head(map(1 :: 2 :: 3 :: None, \\x -> x * x))")
	if got != (value.Some{Inner: value.Integer(1)}) {
		t.Errorf("map: got %v, want Some(1)", got)
	}
	got = run(t, "len(filter(1 :: 2 :: 3 :: 4 :: None, \\x -> x % 2 == 0))")
	if got != value.Integer(2) {
		t.Errorf("filter: got %v, want 2", got)
	}
	got = run(t, "fold(1 :: 2 :: 3 :: None, 0, \\acc, x -> acc + x)")
	if got != value.Integer(6) {
		t.Errorf("fold: got %v, want 6", got)
	}
	got = run(t, "reduce(1 :: 2 :: 3 :: None, \\acc, x -> acc + x)")
	if got != value.Integer(6) {
		t.Errorf("reduce: got %v, want 6", got)
	}
}

func TestAnyAllFind(t *testing.T) {
	got := run(t, "any(1 :: 2 :: 3 :: None, \\x -> x > 2)")
	if got != value.Boolean(true) {
		t.Errorf("any: got %v, want true", got)
	}
	got = run(t, "all(1 :: 2 :: 3 :: None, \\x -> x > 0)")
	if got != value.Boolean(true) {
		t.Errorf("all: got %v, want true", got)
	}
	got = run(t, "find(1 :: 2 :: 3 :: None, \\x -> x > 1)")
	if got != (value.Some{Inner: value.Integer(2)}) {
		t.Errorf("find: got %v, want Some(2)", got)
	}
}

func TestTakeDropRangeSort(t *testing.T) {
	got := run(t, "len(take(1 :: 2 :: 3 :: None, 2))")
	if got != value.Integer(2) {
		t.Errorf("take: got %v, want 2", got)
	}
	got = run(t, "len(drop(1 :: 2 :: 3 :: None, 2))")
	if got != value.Integer(1) {
		t.Errorf("drop: got %v, want 1", got)
	}
	got = run(t, "len(range(0, 5))")
	if got != value.Integer(5) {
		t.Errorf("range: got %v, want 5", got)
	}
	got = run(t, "head(sort(3 :: 1 :: 2 :: None))")
	if got != (value.Some{Inner: value.Integer(1)}) {
		t.Errorf("sort: got %v, want Some(1)", got)
	}
}

func TestZipAndFlatten(t *testing.T) {
	got := run(t, "len(zip(1 :: 2 :: None, 3 :: 4 :: None))")
	if got != value.Integer(2) {
		t.Errorf("zip: got %v, want 2", got)
	}
	got = run(t, "len(flatten((1 :: 2 :: None) :: (3 :: None) :: None))")
	if got != value.Integer(3) {
		t.Errorf("flatten: got %v, want 3", got)
	}
}

func TestHashBuiltins(t *testing.T) {
	got := run(t, `get(insert({}, "a", 1), "a")`)
	if got != (value.Some{Inner: value.Integer(1)}) {
		t.Errorf("insert/get: got %v, want Some(1)", got)
	}
	got = run(t, `has(remove({"a": 1}, "a"), "a")`)
	if got != value.Boolean(false) {
		t.Errorf("remove/has: got %v, want false", got)
	}
	got = run(t, `get(merge({"a": 1}, {"a": 2}), "a")`)
	if got != (value.Some{Inner: value.Integer(2)}) {
		t.Errorf("merge: got %v, want Some(2) (right-biased)", got)
	}
}

func TestStringBuiltins(t *testing.T) {
	tests := []struct {
		source string
		want   value.Value
	}{
		{`upper("flux")`, value.Str("FLUX")},
		{`lower("FLUX")`, value.Str("flux")},
		{`join(split("a,b,c", ","), "-")`, value.Str("a-b-c")},
		{`trim("  hi  ")`, value.Str("hi")},
		{`contains("hello", "ell")`, value.Boolean(true)},
		{`startsWith("hello", "he")`, value.Boolean(true)},
		{`endsWith("hello", "lo")`, value.Boolean(true)},
		{`replace("aaa", "a", "b")`, value.Str("bbb")},
		{`toString(42)`, value.Str("42")},
	}
	for _, tt := range tests {
		got := run(t, tt.source)
		if got != tt.want {
			t.Errorf("%q: got %v, want %v", tt.source, got, tt.want)
		}
	}
}

func TestToIntToFloat(t *testing.T) {
	got := run(t, `toInt("42")`)
	if got != (value.Some{Inner: value.Integer(42)}) {
		t.Errorf("toInt: got %v, want Some(42)", got)
	}
	got = run(t, `toInt("nope")`)
	if got != value.None {
		t.Errorf("toInt invalid: got %v, want None", got)
	}
	got = run(t, `toFloat("1.5")`)
	if got != (value.Some{Inner: value.Float(1.5)}) {
		t.Errorf("toFloat: got %v, want Some(1.5)", got)
	}
}

func TestAssertAndAssertEqual(t *testing.T) {
	if err := runErr(t, "assert(1 == 1)"); err != nil {
		t.Errorf("assert(true): unexpected error: %v", err)
	}
	if err := runErr(t, "assert(1 == 2)"); err == nil {
		t.Error("assert(false): expected an error")
	}
	if err := runErr(t, "assertEqual(1, 1)"); err != nil {
		t.Errorf("assertEqual(1,1): unexpected error: %v", err)
	}
	if err := runErr(t, "assertEqual(1, 2)"); err == nil {
		t.Error("assertEqual(1,2): expected an error")
	}
}

func TestTypeOf(t *testing.T) {
	tests := []struct {
		source string
		want   string
	}{
		{"typeOf(1)", "Int"},
		{"typeOf(1.0)", "Float"},
		{"typeOf(true)", "Bool"},
		{`typeOf("s")`, "String"},
		{"typeOf(None)", "None"},
	}
	for _, tt := range tests {
		got := run(t, tt.source)
		if got != value.Str(tt.want) {
			t.Errorf("%q: got %v, want %v", tt.source, got, tt.want)
		}
	}
}

func TestReduceOnEmptyListErrors(t *testing.T) {
	if err := runErr(t, "reduce(None, \\acc, x -> acc + x)"); err == nil {
		t.Error("expected an error reducing an empty list")
	}
}

// TestSpecNamedBuiltinAliases covers the snake_case names spec.md §4.8 names
// directly, registered alongside the pre-existing camelCase entries they
// share an implementation with.
func TestSpecNamedBuiltinAliases(t *testing.T) {
	got := run(t, "hd(1 :: 2 :: None)")
	if got != (value.Some{Inner: value.Integer(1)}) {
		t.Errorf("hd: got %v, want Some(1)", got)
	}
	got = run(t, "match tl(1 :: 2 :: None) { Some(t) -> len(t), _ -> 0 }")
	if got != value.Integer(1) {
		t.Errorf("tl: got %v, want 1", got)
	}
	got = run(t, `has_key({"a": 1}, "a")`)
	if got != value.Boolean(true) {
		t.Errorf("has_key: got %v, want true", got)
	}
	got = run(t, `get(put({}, "a", 1), "a")`)
	if got != (value.Some{Inner: value.Integer(1)}) {
		t.Errorf("put/get: got %v, want Some(1)", got)
	}
	if err := runErr(t, "assert_eq(1, 1)"); err != nil {
		t.Errorf("assert_eq(1,1): unexpected error: %v", err)
	}
	if err := runErr(t, "assert_eq(1, 2)"); err == nil {
		t.Error("assert_eq(1,2): expected an error")
	}
}

// TestListBuiltinAndArrayConversions exercises list/to_list/to_array,
// including the to_array(to_list(arr)) == arr round-trip spec.md §4.8
// documents as a testable property.
func TestListBuiltinAndArrayConversions(t *testing.T) {
	got := run(t, "len(list(1, 2, 3, 4))")
	if got != value.Integer(4) {
		t.Errorf("list: got %v, want 4", got)
	}
	got = run(t, "len(to_list([| 1, 2, 3 |]))")
	if got != value.Integer(3) {
		t.Errorf("to_list: got %v, want 3", got)
	}
	got = run(t, "to_array(to_list([| 1, 2, 3 |]))")
	want := value.NewArray(value.Integer(1), value.Integer(2), value.Integer(3))
	if got.String() != want.String() {
		t.Errorf("to_array(to_list(arr)): got %v, want %v", got, want)
	}
}

func TestFlatMapCountSortBy(t *testing.T) {
	got := run(t, "len(flat_map(1 :: 2 :: None, \\x -> x :: x :: None))")
	if got != value.Integer(4) {
		t.Errorf("flat_map: got %v, want 4", got)
	}
	got = run(t, "count(1 :: 2 :: 3 :: 4 :: None, \\x -> x % 2 == 0)")
	if got != value.Integer(2) {
		t.Errorf("count: got %v, want 2", got)
	}
	got = run(t, `head(sort_by(3 :: 1 :: 2 :: None, \x -> 0 - x))`)
	if got != (value.Some{Inner: value.Integer(3)}) {
		t.Errorf("sort_by: got %v, want Some(3)", got)
	}
}

func TestCharsAndSubstring(t *testing.T) {
	got := run(t, `len(chars("flux"))`)
	if got != value.Integer(4) {
		t.Errorf("chars: got %v, want 4", got)
	}
	got = run(t, `substring("flux lang", 0, 4)`)
	if got != value.Str("flux") {
		t.Errorf("substring: got %v, want \"flux\"", got)
	}
}

func TestReadFileAndReadLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "greeting.txt")
	if err := os.WriteFile(path, []byte("hello\nworld\n"), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	escaped := strings.ReplaceAll(path, `\`, `\\`)

	got := run(t, `read_file("`+escaped+`")`)
	want := value.Some{Inner: value.Str("hello\nworld\n")}
	if got != want {
		t.Errorf("read_file: got %v, want %v", got, want)
	}

	got = run(t, `read_file("/nonexistent/path/does-not-exist.txt")`)
	if got != value.None {
		t.Errorf("read_file missing: got %v, want None", got)
	}

	src := `match read_lines("` + escaped + `") { Some(ls) -> len(ls), _ -> 0 - 1 }`
	got = run(t, src)
	if got != value.Integer(2) {
		t.Errorf("read_lines: got %v, want 2", got)
	}
}

// TestListComprehension covers the map/filter/flat_map desugaring spec.md
// §4.2 specifies for `[e | x <- xs, ...]`.
func TestListComprehension(t *testing.T) {
	got := run(t, "head([x * x | x <- 1 :: 2 :: 3 :: None])")
	if got != (value.Some{Inner: value.Integer(1)}) {
		t.Errorf("comprehension map: got %v, want Some(1)", got)
	}
	got = run(t, "len([x | x <- 1 :: 2 :: 3 :: 4 :: None, x % 2 == 0])")
	if got != value.Integer(2) {
		t.Errorf("comprehension with guard: got %v, want 2", got)
	}
	got = run(t, "len([x :: y :: None | x <- 1 :: 2 :: None, y <- 3 :: 4 :: None])")
	if got != value.Integer(4) {
		t.Errorf("nested comprehension via flat_map: got %v, want 4", got)
	}
}

// TestWhereClause covers the `expr where pattern = value` desugaring into a
// DoBlock spec.md §4.2 specifies.
func TestWhereClause(t *testing.T) {
	got := run(t, "x * x where x = 5")
	if got != value.Integer(25) {
		t.Errorf("where: got %v, want 25", got)
	}
}

// TestBraceBodiedFunction covers the brace-bodied `fn` form spec.md's worked
// scenarios use alongside the arrow-bodied form.
func TestBraceBodiedFunction(t *testing.T) {
	src := `
fn isEven(n) { if n == 0 { true } else { isOdd(n - 1) } }
fn isOdd(n) { if n == 0 { false } else { isEven(n - 1) } }
isEven(4)
`
	got := run(t, src)
	if got != value.Boolean(true) {
		t.Errorf("brace-bodied fn: got %v, want true", got)
	}
}

// TestMatchWithoutWithKeyword covers match expressions whose arms omit the
// optional `with` keyword before the arm list.
func TestMatchWithoutWithKeyword(t *testing.T) {
	got := run(t, `match 2 { 1 -> "one", 2 -> "two", _ -> "other" }`)
	if got != value.Str("two") {
		t.Errorf("match without with: got %v, want \"two\"", got)
	}
}

// TestArrayLiteralVsConsList covers the `[| |]` array surface alongside the
// plain `[]` cons-list surface spec.md §6 documents as distinct.
func TestArrayLiteralVsConsList(t *testing.T) {
	got := run(t, "[| 1, 2, 3 |]")
	want := value.NewArray(value.Integer(1), value.Integer(2), value.Integer(3))
	if got.String() != want.String() {
		t.Errorf("array literal: got %v, want %v", got, want)
	}
	got = run(t, "len([1, 2, 3])")
	if got != value.Integer(3) {
		t.Errorf("cons-list literal: got %v, want 3", got)
	}
}
