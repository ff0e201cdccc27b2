package astpass

import (
	"sort"

	"github.com/informatter/flux/ast"
)

// FreeVars collects the names fn's body references that aren't bound by
// fn's own parameters, lets, or match arms — the same classification
// compiler.SymbolTable.Resolve performs at compile time (any name resolved
// in an enclosing scope becomes a free variable), reimplemented here purely
// over the AST so a pass, a linter, or a --dump-freevars debug flag can ask
// the question without instantiating a compiler. Returned in sorted order
// for deterministic output.
func FreeVars(fn ast.FuncLit) []string {
	bound := make(map[string]bool)
	for _, p := range fn.Params {
		for _, name := range patternNames(p.Pattern) {
			bound[name] = true
		}
	}
	free := make(map[string]bool)
	walkExpr(fn.Body, bound, free)

	names := make([]string, 0, len(free))
	for name := range free {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func patternNames(p ast.Pattern) []string {
	switch n := p.(type) {
	case ast.BindPattern:
		return []string{n.Name.Lexeme}
	case ast.TuplePattern:
		var out []string
		for _, elem := range n.Elements {
			out = append(out, patternNames(elem)...)
		}
		return out
	case ast.ConsPattern:
		return append(patternNames(n.Head), patternNames(n.Tail)...)
	case ast.OptionPattern:
		if n.Inner != nil {
			return patternNames(n.Inner)
		}
	case ast.EitherPattern:
		if n.Inner != nil {
			return patternNames(n.Inner)
		}
	}
	return nil
}

func bindNames(bound map[string]bool, names []string) map[string]bool {
	out := make(map[string]bool, len(bound)+len(names))
	for k := range bound {
		out[k] = true
	}
	for _, n := range names {
		out[n] = true
	}
	return out
}

func walkStmts(stmts []ast.Stmt, bound map[string]bool, free map[string]bool) map[string]bool {
	for _, stmt := range stmts {
		switch n := stmt.(type) {
		case ast.ExpressionStmt:
			walkExpr(n.Expression, bound, free)
		case ast.LetStmt:
			walkExpr(n.Value, bound, free)
			bound = bindNames(bound, patternNames(n.Pattern))
		case ast.FuncDeclStmt:
			bound = bindNames(bound, []string{n.Fn.Name.Lexeme})
			walkExpr(n.Fn, bound, free)
		case ast.BlockStmt:
			bound = walkStmts(n.Statements, bound, free)
		}
	}
	return bound
}

func walkExpr(expr ast.Expr, bound map[string]bool, free map[string]bool) {
	if expr == nil {
		return
	}
	switch n := expr.(type) {
	case ast.Identifier:
		if !bound[n.Name.Lexeme] {
			free[n.Name.Lexeme] = true
		}
	case ast.Grouping:
		walkExpr(n.Expression, bound, free)
	case ast.Unary:
		walkExpr(n.Right, bound, free)
	case ast.Binary:
		walkExpr(n.Left, bound, free)
		walkExpr(n.Right, bound, free)
	case ast.Logical:
		walkExpr(n.Left, bound, free)
		walkExpr(n.Right, bound, free)
	case ast.ConsExpr:
		walkExpr(n.Head, bound, free)
		walkExpr(n.Tail, bound, free)
	case ast.Tuple:
		for _, e := range n.Elements {
			walkExpr(e, bound, free)
		}
	case ast.ArrayLit:
		for _, e := range n.Elements {
			walkExpr(e, bound, free)
		}
	case ast.HashLit:
		for _, p := range n.Pairs {
			walkExpr(p.Key, bound, free)
			walkExpr(p.Value, bound, free)
		}
	case ast.IndexExpr:
		walkExpr(n.Target, bound, free)
		walkExpr(n.Index, bound, free)
	case ast.FieldExpr:
		walkExpr(n.Target, bound, free)
	case ast.Call:
		walkExpr(n.Callee, bound, free)
		for _, a := range n.Args {
			walkExpr(a, bound, free)
		}
	case ast.If:
		walkExpr(n.Cond, bound, free)
		walkExpr(n.Then, bound, free)
		walkExpr(n.Else, bound, free)
	case ast.Match:
		walkExpr(n.Scrutinee, bound, free)
		for _, arm := range n.Arms {
			armBound := bindNames(bound, patternNames(arm.Pattern))
			if arm.Guard != nil {
				walkExpr(arm.Guard, armBound, free)
			}
			walkExpr(arm.Body, armBound, free)
		}
	case ast.DoBlock:
		blockBound := walkStmts(n.Statements, bound, free)
		walkExpr(n.Result, blockBound, free)
	case ast.FuncLit:
		fnBound := bound
		for _, p := range n.Params {
			fnBound = bindNames(fnBound, patternNames(p.Pattern))
		}
		if n.Name.Lexeme != "" {
			fnBound = bindNames(fnBound, []string{n.Name.Lexeme})
		}
		walkExpr(n.Body, fnBound, free)
	case ast.StringInterp:
		for _, h := range n.Holes {
			walkExpr(h, bound, free)
		}
	}
}
