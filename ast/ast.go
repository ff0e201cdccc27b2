// Package ast defines Flux's abstract syntax tree. Unlike the teacher's
// nilan/ast package, node kinds here are not dispatched through a
// double-dispatch Visitor: with function/lambda literals, match arms,
// imports, modules, comprehension desugaring targets, and literal
// containers added on top of the teacher's original handful of node kinds,
// a visitor interface would need a method per kind on every consumer. The
// compiler instead type-switches over these nodes directly (the same style
// used by the ozanh-ugo and gad-lang-gad compilers in the retrieval pack).
package ast

import "github.com/informatter/flux/token"

// Node is implemented by every AST node; it exists only so printers and
// passes can hold a heterogeneous slice without reaching for `any`.
type Node interface {
	node()
}

// Expr is implemented by every expression node. In Flux almost everything
// is an expression — if/match/do-blocks all produce a value — so Expr is
// the workhorse interface of this package.
type Expr interface {
	Node
	exprNode()
}

// Stmt is implemented by every statement node. Statements are the things
// that can appear at module top level or inside a do-block's body: let
// bindings, function declarations, imports, and bare expression statements.
type Stmt interface {
	Node
	stmtNode()
}

type baseNode struct{}

func (baseNode) node() {}
