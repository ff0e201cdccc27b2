// patterns.go contains the pattern grammar used by `let` destructuring,
// function parameters, and `match` arms.
package ast

import "github.com/informatter/flux/token"

// Pattern is implemented by every pattern node.
type Pattern interface {
	Node
	patternNode()
}

// WildcardPattern matches anything and binds nothing (`_`).
type WildcardPattern struct {
	baseNode
	Tok token.Token
}

func (WildcardPattern) patternNode() {}

// BindPattern matches anything and binds it to Name.
type BindPattern struct {
	baseNode
	Name token.Token
}

func (BindPattern) patternNode() {}

// LiteralPattern matches a literal value exactly (int, float, bool,
// string).
type LiteralPattern struct {
	baseNode
	Literal Literal
}

func (LiteralPattern) patternNode() {}

// TuplePattern matches a tuple, destructuring each element against a
// sub-pattern.
type TuplePattern struct {
	baseNode
	Elements []Pattern
}

func (TuplePattern) patternNode() {}

// ConsPattern matches a non-empty list, `[h | t]`: Head binds the first
// element, Tail binds the remainder (itself a list).
type ConsPattern struct {
	baseNode
	Head Pattern
	Tail Pattern
}

func (ConsPattern) patternNode() {}

// EmptyListPattern matches the empty array/list literal, `[]`.
type EmptyListPattern struct {
	baseNode
	Tok token.Token
}

func (EmptyListPattern) patternNode() {}

// OptionPattern matches `Some(p)` or a bare `None`. Inner is nil for None.
type OptionPattern struct {
	baseNode
	IsSome bool
	Inner  Pattern
	Tok    token.Token
}

func (OptionPattern) patternNode() {}

// EitherPattern matches `Left(p)` or `Right(p)`.
type EitherPattern struct {
	baseNode
	IsLeft bool
	Inner  Pattern
	Tok    token.Token
}

func (EitherPattern) patternNode() {}
