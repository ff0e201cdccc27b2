package compiler

// builtinNames fixes the order in which package builtins registers its
// implementations: the compiler resolves a bare reference to one of these
// names at compile time to its index here and emits OP_GET_BUILTIN with that
// index, so the VM's builtins table must be populated in exactly this
// order. Adding a builtin means appending to this list, never reordering it
// — reordering would silently change what already-cached bytecode calls.
var builtinNames = []string{
	"len", "head", "tail", "append", "prepend", "reverse",
	"map", "filter", "reduce", "fold", "zip", "flatten",
	"any", "all", "find", "take", "drop", "range", "sort",

	"keys", "values", "has", "get", "insert", "remove", "merge",

	"upper", "lower", "split", "join", "trim", "contains",
	"startsWith", "endsWith", "replace", "toInt", "toFloat", "toString",

	"print", "println", "readLine",

	"assert", "assertEqual", "typeOf",

	// spec.md §4.8 names the builtins below directly; they're kept as
	// separate entries alongside their camelCase/alternate-named
	// equivalents above rather than renaming those and breaking every
	// caller already written against the original names.
	"hd", "tl", "list", "to_list", "to_array", "flat_map",
	"has_key", "put", "count", "sort_by", "assert_eq",
	"read_file", "read_lines", "chars", "substring",
}

// BuiltinIndex returns the compile-time index of a builtin name, as wired
// into every SymbolTable via DefineBuiltin.
func BuiltinIndex(name string) (int, bool) {
	for i, n := range builtinNames {
		if n == name {
			return i, true
		}
	}
	return 0, false
}

// BuiltinNames exposes the canonical ordering to package vm/builtins so
// their runtime table lines up with what the compiler resolved.
func BuiltinNames() []string {
	return builtinNames
}
