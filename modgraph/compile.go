package modgraph

import (
	"fmt"

	"github.com/informatter/flux/ast"
	"github.com/informatter/flux/compiler"
)

// CompileAll compiles every module in g.Order into a single instruction
// stream, one shared compiler.SymbolTable, and one shared constant pool —
// a dependency module's top-level statements run before the modules that
// import it, so by the time a dependent references `Module.name` the
// global it resolves to has already been written.
//
// Only the last module in g.Order (the entry module) gets the compiler's
// normal Compile call, which appends the trailing OP_END the VM's fetch
// loop stops on; every earlier module compiles statement-by-statement via
// CompileStmt, falling straight through into the next module's code with
// no terminator in between.
func CompileAll(g *Graph) (compiler.Bytecode, *compiler.SymbolTable, error) {
	if len(g.Order) == 0 {
		return compiler.Bytecode{}, nil, fmt.Errorf("modgraph: empty module graph")
	}

	c := compiler.New(g.Order[0].Path)
	importedBy := reverseEdges(g.Order)

	for i, m := range g.Order {
		if i == len(g.Order)-1 {
			if err := c.Compile(m.File); err != nil {
				return compiler.Bytecode{}, nil, err
			}
		} else {
			for _, stmt := range m.File.Statements {
				if err := c.CompileStmt(stmt); err != nil {
					return compiler.Bytecode{}, nil, err
				}
			}
		}
		aliasExports(c.SymbolTable(), m, importedBy[m])
	}
	return c.Bytecode(), c.SymbolTable(), nil
}

// reverseEdges groups, per target module, the distinct local names other
// modules import it under (the alias if `as A` was used, else the last
// dotted-path segment) — the qualifying prefix a FieldExpr like `A.square`
// compiles against.
func reverseEdges(modules []*Module) map[*Module][]string {
	out := make(map[*Module][]string)
	seen := make(map[*Module]map[string]bool)
	for _, m := range modules {
		for _, imp := range m.Imports {
			if seen[imp.Target] == nil {
				seen[imp.Target] = make(map[string]bool)
			}
			if seen[imp.Target][imp.Local] {
				continue
			}
			seen[imp.Target][imp.Local] = true
			out[imp.Target] = append(out[imp.Target], imp.Local)
		}
	}
	return out
}

// aliasExports binds every one of m's top-level names under
// "<local>.<name>" for each local qualifier some importer uses for m, so
// the importer's compile-time FieldExpr lookup for "<local>.<name>"
// resolves to the exact global slot m's own bare binding already occupies.
func aliasExports(st *compiler.SymbolTable, m *Module, localNames []string) {
	if len(localNames) == 0 {
		return
	}
	for _, name := range topLevelNames(m.File) {
		sym, ok := st.Resolve(name)
		if !ok {
			continue
		}
		for _, local := range localNames {
			st.DefineAlias(local+"."+name, sym)
		}
	}
}

// topLevelNames lists the names a module binds at its outermost scope —
// exactly the set compileStmt's LetStmt/FuncDeclStmt cases Define as
// globals when this module's statements compile.
func topLevelNames(file *ast.File) []string {
	var names []string
	for _, stmt := range file.Statements {
		switch n := stmt.(type) {
		case ast.LetStmt:
			if bind, ok := n.Pattern.(ast.BindPattern); ok {
				names = append(names, bind.Name.Lexeme)
			}
		case ast.FuncDeclStmt:
			names = append(names, n.Fn.Name.Lexeme)
		}
	}
	return names
}
