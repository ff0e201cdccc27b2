package parser

import (
	"github.com/informatter/flux/ast"
	"github.com/informatter/flux/token"
)

// pattern parses the pattern grammar shared by `let` destructuring,
// function parameters, and `match` arms:
//
//	pattern -> "_" | literal | IDENTIFIER | "[" "]" | "[" pattern "|" pattern "]"
//	         | "(" pattern ( "," pattern )* ")" | "None" | "Some" "(" pattern ")"
//	         | "Left" "(" pattern ")" | "Right" "(" pattern ")"
func (p *Parser) pattern() ast.Pattern {
	switch {
	case p.checkType(token.WILDCARD):
		tok := p.advance()
		return ast.WildcardPattern{Tok: tok}
	case p.checkType(token.INT):
		tok := p.advance()
		return ast.LiteralPattern{Literal: ast.Literal{Kind: ast.LitInt, Value: tok.Literal}}
	case p.checkType(token.FLOAT):
		tok := p.advance()
		return ast.LiteralPattern{Literal: ast.Literal{Kind: ast.LitFloat, Value: tok.Literal}}
	case p.checkType(token.STRING):
		tok := p.advance()
		return ast.LiteralPattern{Literal: ast.Literal{Kind: ast.LitString, Value: tok.Literal}}
	case p.checkType(token.TRUE):
		p.advance()
		return ast.LiteralPattern{Literal: ast.Literal{Kind: ast.LitBool, Value: true}}
	case p.checkType(token.FALSE):
		p.advance()
		return ast.LiteralPattern{Literal: ast.Literal{Kind: ast.LitBool, Value: false}}
	case p.checkType(token.NONE):
		tok := p.advance()
		return ast.OptionPattern{IsSome: false, Tok: tok}
	case p.checkType(token.SOME):
		tok := p.advance()
		p.consume(token.LPA, "E074", "expected '(' after Some")
		inner := p.pattern()
		p.consume(token.RPA, "E076", "expected ')' to close Some pattern")
		return ast.OptionPattern{IsSome: true, Inner: inner, Tok: tok}
	case p.checkType(token.LEFT), p.checkType(token.RIGHT):
		isLeft := p.checkType(token.LEFT)
		tok := p.advance()
		p.consume(token.LPA, "E074", "expected '(' after Left/Right")
		inner := p.pattern()
		p.consume(token.RPA, "E076", "expected ')' to close Either pattern")
		return ast.EitherPattern{IsLeft: isLeft, Inner: inner, Tok: tok}
	case p.checkType(token.LBRK):
		return p.listPattern()
	case p.checkType(token.LPA):
		return p.tuplePattern()
	case p.checkType(token.IDENTIFIER):
		tok := p.advance()
		return ast.BindPattern{Name: tok}
	default:
		p.errf("E074", "expected a pattern, found %s", p.peek().TokenType)
		tok := p.advance()
		return ast.WildcardPattern{Tok: tok}
	}
}

// listPattern parses `[]` (empty list) or `[h | t]` (cons).
func (p *Parser) listPattern() ast.Pattern {
	lbrk := p.advance() // `[`
	if p.checkType(token.RBRK) {
		p.advance()
		return ast.EmptyListPattern{Tok: lbrk}
	}
	head := p.pattern()
	p.consume(token.PIPE_BAR, "E074", "expected '|' between cons pattern head and tail")
	tail := p.pattern()
	p.consume(token.RBRK, "E076", "expected ']' to close cons pattern")
	return ast.ConsPattern{Head: head, Tail: tail}
}

func (p *Parser) tuplePattern() ast.Pattern {
	p.advance() // `(`
	var elems []ast.Pattern
	if !p.checkType(token.RPA) {
		for {
			elems = append(elems, p.pattern())
			if !p.checkType(token.COMMA) {
				break
			}
			p.advance()
		}
	}
	p.consume(token.RPA, "E076", "expected ')' to close tuple pattern")
	if len(elems) == 1 {
		// a single parenthesized pattern with no trailing comma is just a
		// grouped pattern, not a 1-tuple.
		return elems[0]
	}
	return ast.TuplePattern{Elements: elems}
}
