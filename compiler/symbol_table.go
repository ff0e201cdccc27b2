package compiler

import "github.com/informatter/flux/interner"

// SymbolScope classifies where a resolved name lives at runtime.
type SymbolScope string

const (
	GlobalScope   SymbolScope = "GLOBAL"
	LocalScope    SymbolScope = "LOCAL"
	FreeScope     SymbolScope = "FREE"
	BuiltinScope  SymbolScope = "BUILTIN"
	FunctionScope SymbolScope = "FUNCTION"
)

// Symbol records where a name resolved to: which scope, and its slot
// index within that scope. Sym is the interned identity Resolve actually
// keys lookups on; Name is kept alongside only for diagnostics and the
// REPL's globalNames debug table — equality between two Symbols should
// always be tested via Sym, not Name.
type Symbol struct {
	Sym   interner.Symbol
	Name  string
	Scope SymbolScope
	Index int
}

// SymbolTable generalizes the teacher's flat `locals []Local` +
// `scopeDepth` bookkeeping (compiler/ast_compiler.go) into a proper nested
// table with an Outer pointer, needed once functions can nest arbitrarily
// and must capture free variables from enclosing functions rather than
// only from enclosing blocks of the same function. Every name passed in is
// interned (package interner) before it is ever compared, so two identical
// identifiers anywhere in a program — different modules, different REPL
// lines — always resolve through the same small integer key rather than a
// fresh string comparison each time.
type SymbolTable struct {
	Outer *SymbolTable

	FreeSymbols []Symbol

	store          map[interner.Symbol]Symbol
	numDefinitions int
}

// NewSymbolTable creates a top-level (global) symbol table.
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{store: make(map[interner.Symbol]Symbol)}
}

// NewEnclosedSymbolTable creates a symbol table for a nested function
// scope, chained to outer so name resolution can walk upward.
func NewEnclosedSymbolTable(outer *SymbolTable) *SymbolTable {
	st := NewSymbolTable()
	st.Outer = outer
	return st
}

// Define introduces a new name in this scope (Global if there is no
// Outer, Local otherwise) and returns its Symbol.
func (s *SymbolTable) Define(name string) Symbol {
	sym := Symbol{Sym: interner.Intern(name), Name: name, Index: s.numDefinitions}
	if s.Outer == nil {
		sym.Scope = GlobalScope
	} else {
		sym.Scope = LocalScope
	}
	s.store[sym.Sym] = sym
	s.numDefinitions++
	return sym
}

// DefineBuiltin registers a builtin function name at a fixed index,
// available from every scope.
func (s *SymbolTable) DefineBuiltin(index int, name string) Symbol {
	isym := interner.Intern(name)
	sym := Symbol{Sym: isym, Name: name, Index: index, Scope: BuiltinScope}
	s.store[isym] = sym
	return sym
}

// DefineAlias binds an additional name to a symbol that already exists
// (possibly in another SymbolTable entirely) without allocating a new slot.
// Package modgraph uses this to splice a module's exported globals into a
// shared table under their qualified name (`Module.name`, or an import's
// `as Alias` name) so the importing unit's compile-time FieldExpr lookup
// resolves to the exact same runtime global the exporting module already
// populated — a second Define would hand it a fresh, never-written slot.
func (s *SymbolTable) DefineAlias(alias string, original Symbol) Symbol {
	isym := interner.Intern(alias)
	sym := Symbol{Sym: isym, Name: alias, Scope: original.Scope, Index: original.Index}
	s.store[isym] = sym
	return sym
}

// DefineFunctionName records a named function's own name inside its body's
// scope, so a self-recursive reference resolves to FunctionScope instead of
// being captured as a free variable — the compiler emits OP_CURRENT_CLOSURE
// for it rather than threading the closure through its own free-variable
// list.
func (s *SymbolTable) DefineFunctionName(name string) Symbol {
	isym := interner.Intern(name)
	sym := Symbol{Sym: isym, Name: name, Index: 0, Scope: FunctionScope}
	s.store[isym] = sym
	return sym
}

// defineFree records that an outer-scope symbol was captured by this
// function, returning the new FreeScope Symbol that stands in for it
// inside this scope's body.
func (s *SymbolTable) defineFree(original Symbol) Symbol {
	s.FreeSymbols = append(s.FreeSymbols, original)
	sym := Symbol{Sym: original.Sym, Name: original.Name, Index: len(s.FreeSymbols) - 1, Scope: FreeScope}
	s.store[original.Sym] = sym
	return sym
}

// DefinedLocally reports whether name is already bound in this exact scope
// (not an enclosing one) — checkRebind's single-assignment check.
func (s *SymbolTable) DefinedLocally(name string) bool {
	_, ok := s.store[interner.Intern(name)]
	return ok
}

// Resolve looks up name in this scope, then walks outward through
// enclosing scopes. A name found in a non-global outer scope is captured
// as a free variable in every scope between its definition and its use,
// so a deeply nested closure only has to carry the variables it actually
// reads.
func (s *SymbolTable) Resolve(name string) (Symbol, bool) {
	return s.resolveSymbol(interner.Intern(name))
}

func (s *SymbolTable) resolveSymbol(isym interner.Symbol) (Symbol, bool) {
	sym, ok := s.store[isym]
	if ok {
		return sym, true
	}
	if s.Outer == nil {
		return Symbol{}, false
	}
	sym, ok = s.Outer.resolveSymbol(isym)
	if !ok {
		return sym, false
	}
	if sym.Scope == GlobalScope || sym.Scope == BuiltinScope || sym.Scope == FunctionScope {
		return sym, true
	}
	return s.defineFree(sym), true
}
