// Package astpass implements the optional AST-level passes spec.md §2 and
// §9 describe as gated behind an `--optimize` flag: constant folding and a
// handful of additional desugaring/analysis steps that run after parsing
// and before the compiler ever sees the tree. None of these passes change
// what a program computes — spec.md §8's testable property is that
// `--optimize` and its absence produce bit-identical results for any pure
// expression — they only let the compiler start from a smaller tree.
//
// No teacher equivalent exists (nilan compiles straight from its token
// stream, with no intermediate AST-rewrite stage). Grounded on spec.md
// §4.4's free-variable/tail-call description for what FreeVars collects,
// and on the constant-folding passes described in the gad-lang-gad and
// ozanh-ugo retrieval-pack manifests for the general shape of an
// AST-to-AST optimization pass operating over a type-switch rather than a
// visitor.
package astpass

import "github.com/informatter/flux/ast"

// Fold runs constant folding over every statement in file and returns the
// rewritten file. The original file is left untouched; Fold only ever
// returns new node values, since every ast node is a plain struct stored
// behind an interface rather than a pointer.
func Fold(file *ast.File) *ast.File {
	out := &ast.File{Module: file.Module, Imports: file.Imports}
	out.Statements = make([]ast.Stmt, len(file.Statements))
	for i, stmt := range file.Statements {
		out.Statements[i] = foldStmt(stmt)
	}
	return out
}
