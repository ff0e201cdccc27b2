package parser

import (
	"github.com/informatter/flux/ast"
	"github.com/informatter/flux/token"
)

// expression is the grammar's entry point. Precedence, loosest to
// tightest:
//
//	expression -> where
//	where      -> pipe ( "where" pattern "=" pipe )*
//	pipe       -> or ( "|>" or )*
//	or         -> and ( ("or" | "||") and )*
//	and        -> equality ( ("and" | "&&") equality )*
//	equality   -> comparison ( ("==" | "!=") comparison )*
//	comparison -> cons ( (">" | ">=" | "<" | "<=") cons )*
//	cons       -> term ( "::" cons )?
//	term       -> factor ( ("+" | "-") factor )*
//	factor     -> unary ( ("*" | "/" | "%") unary )*
//	unary      -> ("!" | "-") unary | call
//	call       -> primary ( "(" args ")" | "[" expr "]" | "." IDENT )*
//	primary    -> literal | identifier | grouping | lambda | if | match |
//	              tuple | array | hash | do-block | cons
func (p *Parser) expression() ast.Expr {
	return p.whereExpr()
}

// whereExpr desugars the trailing `expr where pattern = value` modifier into
// a DoBlock at parse time, the same way pipe() desugars `|>`: `e where x = v`
// becomes `{ let x = v; e }`. It is the loosest-binding form, parsed after
// pipe so `a |> f where x = v` binds x around the whole piped expression.
func (p *Parser) whereExpr() ast.Expr {
	expr := p.pipe()
	for p.checkType(token.WHERE) {
		p.advance()
		pat := p.pattern()
		p.consume(token.ASSIGN, "E074", "expected '=' after where-bound pattern")
		value := p.pipe()
		expr = ast.DoBlock{Statements: []ast.Stmt{ast.LetStmt{Pattern: pat, Value: value}}, Result: expr}
	}
	return expr
}

// pipe desugars `x |> f |> g(1)` into `g(f(x), 1)` at parse time: each
// right-hand side must itself be a call (or bare identifier, treated as a
// zero-arg call target), and the piped value is inserted as that call's
// first argument.
func (p *Parser) pipe() ast.Expr {
	expr := p.or()
	for p.checkType(token.PIPE) {
		tok := p.advance()
		rhs := p.or()
		expr = desugarPipe(expr, rhs, tok)
	}
	return expr
}

func desugarPipe(piped, rhs ast.Expr, tok token.Token) ast.Expr {
	if call, ok := rhs.(ast.Call); ok {
		args := append([]ast.Expr{piped}, call.Args...)
		return ast.Call{Callee: call.Callee, Args: args, ParenTok: call.ParenTok}
	}
	return ast.Call{Callee: rhs, Args: []ast.Expr{piped}, ParenTok: tok}
}

func (p *Parser) or() ast.Expr {
	expr := p.and()
	for p.checkType(token.OR) {
		op := p.advance()
		right := p.and()
		expr = ast.Logical{Left: expr, Operator: op, Right: right}
	}
	return expr
}

func (p *Parser) and() ast.Expr {
	expr := p.equality()
	for p.checkType(token.AND) {
		op := p.advance()
		right := p.equality()
		expr = ast.Logical{Left: expr, Operator: op, Right: right}
	}
	return expr
}

func (p *Parser) equality() ast.Expr {
	expr := p.comparison()
	for p.isMatchAny(equalityTokenTypes) {
		op := p.previous()
		right := p.comparison()
		expr = ast.Binary{Left: expr, Operator: op, Right: right}
	}
	return expr
}

func (p *Parser) comparison() ast.Expr {
	expr := p.cons()
	for p.isMatchAny(comparisonTokenTypes) {
		op := p.previous()
		right := p.cons()
		expr = ast.Binary{Left: expr, Operator: op, Right: right}
	}
	return expr
}

// cons is right-associative: `1 :: 2 :: tail` parses as `1 :: (2 :: tail)`.
func (p *Parser) cons() ast.Expr {
	expr := p.term()
	if p.checkType(token.CONS) {
		p.advance()
		tail := p.cons()
		return ast.ConsExpr{Head: expr, Tail: tail}
	}
	return expr
}

func (p *Parser) term() ast.Expr {
	expr := p.factor()
	for p.isMatchAny(termTokenTypes) {
		op := p.previous()
		right := p.factor()
		expr = ast.Binary{Left: expr, Operator: op, Right: right}
	}
	return expr
}

func (p *Parser) factor() ast.Expr {
	expr := p.unary()
	for p.isMatchAny(factorTokenTypes) {
		op := p.previous()
		right := p.unary()
		expr = ast.Binary{Left: expr, Operator: op, Right: right}
	}
	return expr
}

func (p *Parser) unary() ast.Expr {
	if p.isMatchAny([]token.TokenType{token.BANG, token.SUB}) {
		op := p.previous()
		right := p.unary()
		return ast.Unary{Operator: op, Right: right}
	}
	return p.call()
}

func (p *Parser) isMatchAny(types []token.TokenType) bool {
	return p.isMatch(types...)
}

// call handles postfix application, indexing, and field access chained
// onto a primary expression: `f(a)(b)[0].Field`.
func (p *Parser) call() ast.Expr {
	expr := p.primary()
	for {
		switch {
		case p.checkType(token.LPA):
			expr = p.finishCall(expr)
		case p.checkType(token.LBRK):
			bracket := p.advance()
			idx := p.expression()
			p.consume(token.RBRK, "E074", "expected ']' after index expression")
			expr = ast.IndexExpr{Target: expr, Index: idx, Bracket: bracket}
		case p.checkType(token.DOT):
			p.advance()
			field := p.consume(token.IDENTIFIER, "E074", "expected field name after '.'")
			expr = ast.FieldExpr{Target: expr, Field: field}
		default:
			return expr
		}
	}
}

func (p *Parser) finishCall(callee ast.Expr) ast.Expr {
	paren := p.advance() // `(`
	var args []ast.Expr
	if !p.checkType(token.RPA) {
		for {
			args = append(args, p.expression())
			if !p.checkType(token.COMMA) {
				break
			}
			p.advance()
		}
	}
	p.consume(token.RPA, "E074", "expected ')' after call arguments")
	return ast.Call{Callee: callee, Args: args, ParenTok: paren}
}

func (p *Parser) primary() ast.Expr {
	switch {
	case p.checkType(token.FALSE):
		p.advance()
		return ast.Literal{Kind: ast.LitBool, Value: false}
	case p.checkType(token.TRUE):
		p.advance()
		return ast.Literal{Kind: ast.LitBool, Value: true}
	case p.checkType(token.NONE):
		p.advance()
		return ast.Literal{Kind: ast.LitNone, Value: nil}
	case p.checkType(token.SOME):
		return p.someOrEitherExpr(true, false)
	case p.checkType(token.LEFT):
		return p.someOrEitherExpr(false, true)
	case p.checkType(token.RIGHT):
		return p.someOrEitherExpr(false, false)
	case p.checkType(token.INT):
		tok := p.advance()
		return ast.Literal{Kind: ast.LitInt, Value: tok.Literal}
	case p.checkType(token.FLOAT):
		tok := p.advance()
		return ast.Literal{Kind: ast.LitFloat, Value: tok.Literal}
	case p.checkType(token.STRING):
		tok := p.advance()
		return ast.Literal{Kind: ast.LitString, Value: tok.Literal}
	case p.checkType(token.STR_INTERP_START):
		return p.stringInterp()
	case p.checkType(token.IDENTIFIER):
		tok := p.advance()
		return ast.Identifier{Name: tok}
	case p.checkType(token.LAMBDA):
		return p.lambda()
	case p.checkType(token.IF):
		return p.ifExpr()
	case p.checkType(token.MATCH):
		return p.matchExpr()
	case p.checkType(token.DO):
		return p.doBlock()
	case p.checkType(token.LBRK):
		return p.listLit()
	case p.checkType(token.ARRAY_OPEN):
		return p.arrayLit()
	case p.checkType(token.LCUR):
		return p.hashLit()
	case p.checkType(token.LPA):
		return p.groupingOrTuple()
	default:
		p.errf("E074", "expected an expression, found %s", p.peek().TokenType)
		p.advance()
		return ast.Literal{Kind: ast.LitNone, Value: nil}
	}
}

func (p *Parser) someOrEitherExpr(isSome, isLeft bool) ast.Expr {
	p.advance()
	p.consume(token.LPA, "E074", "expected '(' after constructor")
	inner := p.expression()
	p.consume(token.RPA, "E074", "expected ')' to close constructor")
	if isSome {
		return ast.Call{Callee: ast.Identifier{Name: token.CreateLiteralToken(token.IDENTIFIER, nil, "Some", 0, 0)}, Args: []ast.Expr{inner}}
	}
	name := "Right"
	if isLeft {
		name = "Left"
	}
	return ast.Call{Callee: ast.Identifier{Name: token.CreateLiteralToken(token.IDENTIFIER, nil, name, 0, 0)}, Args: []ast.Expr{inner}}
}

func (p *Parser) stringInterp() ast.Expr {
	tok := p.advance() // STR_INTERP_START
	node := ast.StringInterp{Segments: []string{tok.Lexeme}}
	for {
		hole := p.expression()
		node.Holes = append(node.Holes, hole)
		switch {
		case p.checkType(token.STR_INTERP_MID):
			mid := p.advance()
			node.Segments = append(node.Segments, mid.Lexeme)
		case p.checkType(token.STR_INTERP_END):
			end := p.advance()
			node.Segments = append(node.Segments, end.Lexeme)
			return node
		default:
			p.errf("E074", "unterminated string interpolation")
			return node
		}
	}
}

func (p *Parser) lambda() ast.Expr {
	p.advance() // `\`
	var params []ast.Param
	if !p.checkType(token.ARROW) {
		for {
			params = append(params, ast.Param{Pattern: p.pattern()})
			if !p.checkType(token.COMMA) {
				break
			}
			p.advance()
		}
	}
	body := p.funcBody()
	return ast.FuncLit{Params: params, Body: body}
}

// ifExpr parses `if cond then else-clause`, where `else-clause` recurses
// through ifExprElif or thenBody so `elif`/`else if` chains nest naturally, and a
// missing `else` implicitly evaluates to `None`.
func (p *Parser) ifExpr() ast.Expr {
	p.advance() // `if`
	cond := p.expression()
	then := p.thenBody()
	var elseExpr ast.Expr = ast.Literal{Kind: ast.LitNone}
	if p.checkType(token.ELIF) {
		elseExpr = p.ifExprElif()
	} else if p.checkType(token.ELSE) {
		p.advance()
		elseExpr = p.thenBody()
	}
	return ast.If{Cond: cond, Then: then, Else: elseExpr}
}

func (p *Parser) ifExprElif() ast.Expr {
	// `elif` behaves exactly like a nested `if`.
	return p.ifExpr()
}

func (p *Parser) thenBody() ast.Expr {
	if p.checkType(token.LCUR) {
		return p.doBlockBody()
	}
	return p.expression()
}

func (p *Parser) doBlock() ast.Expr {
	p.advance() // `do`
	return p.doBlockBody()
}

func (p *Parser) doBlockBody() ast.Expr {
	p.consume(token.LCUR, "E074", "expected '{' to start block")
	var stmts []ast.Stmt
	var result ast.Expr = ast.Literal{Kind: ast.LitNone}
	for !p.checkType(token.RCUR) && !p.isFinished() {
		if p.checkType(token.LET) {
			stmts = append(stmts, p.letStatement())
			continue
		}
		if p.checkType(token.FUNC) {
			stmts = append(stmts, p.funcDeclStatement())
			continue
		}
		expr := p.expression()
		if p.checkType(token.RCUR) {
			result = expr
			break
		}
		stmts = append(stmts, ast.ExpressionStmt{Expression: expr})
	}
	p.consume(token.RCUR, "E076", "expected '}' to close block")
	return ast.DoBlock{Statements: stmts, Result: result}
}

func (p *Parser) matchExpr() ast.Expr {
	tok := p.advance() // `match`
	scrutinee := p.expression()
	if p.checkType(token.WITH) {
		// `with` is accepted but not required: `match x with { ... }` and
		// `match x { ... }` parse identically.
		p.advance()
	}
	p.consume(token.LCUR, "E074", "expected '{' to start match arms")

	var arms []ast.MatchArm
	sawWildcard := false
	for !p.checkType(token.RCUR) && !p.isFinished() {
		pat := p.pattern()
		if _, ok := pat.(ast.WildcardPattern); ok {
			if sawWildcard {
				p.errf("E016", "wildcard pattern must be the last match arm")
			}
			sawWildcard = true
		} else if sawWildcard {
			p.errf("E016", "unreachable pattern after wildcard arm")
		}
		var guard ast.Expr
		if p.checkType(token.WHERE) {
			p.advance()
			guard = p.expression()
		}
		p.consume(token.ARROW, "E074", "expected '->' after match pattern")
		body := p.expression()
		arms = append(arms, ast.MatchArm{Pattern: pat, Guard: guard, Body: body})
		if p.checkType(token.COMMA) {
			p.advance()
		}
	}
	p.consume(token.RCUR, "E076", "expected '}' to close match expression")
	p.checkExhaustiveness(tok, arms)
	return ast.Match{Scrutinee: scrutinee, Arms: arms, Tok: tok}
}

// checkExhaustiveness applies the constructor-coverage policy: list, Option,
// and Either patterns are "closed" families whose full variant set is known
// statically (EmptyListPattern+ConsPattern; Some+None; Left+Right). When
// every arm belongs to one such family, coverage can be proven without a
// catch-all arm. Anything else (literals, tuples, hashes, or a mix of
// families) can never be proven exhaustive here, so it conservatively
// requires a catch-all (WildcardPattern or BindPattern) arm.
//
// A guarded arm (`pattern where cond -> body`) never counts towards
// coverage: cond may be false, so the constructor it matches isn't
// guaranteed handled.
func (p *Parser) checkExhaustiveness(tok token.Token, arms []ast.MatchArm) {
	if len(arms) == 0 {
		return
	}

	var catchAll bool
	var sawEmptyList, sawCons, sawSome, sawNone, sawLeft, sawRight bool
	recognized := true

	for _, arm := range arms {
		switch pat := arm.Pattern.(type) {
		case ast.WildcardPattern, ast.BindPattern:
			catchAll = true
		case ast.EmptyListPattern:
			if arm.Guard == nil {
				sawEmptyList = true
			}
		case ast.ConsPattern:
			if arm.Guard == nil {
				sawCons = true
			}
		case ast.OptionPattern:
			if arm.Guard == nil {
				if pat.IsSome {
					sawSome = true
				} else {
					sawNone = true
				}
			}
		case ast.EitherPattern:
			if arm.Guard == nil {
				if pat.IsLeft {
					sawLeft = true
				} else {
					sawRight = true
				}
			}
		default:
			recognized = false
		}
	}

	fullyCovered := recognized && ((sawEmptyList && sawCons) ||
		(sawSome && sawNone) ||
		(sawLeft && sawRight))

	switch {
	case fullyCovered && catchAll:
		p.warnf("W201", "match is already exhaustive; the catch-all arm is never reached")
	case !fullyCovered && !catchAll:
		p.errf("E015", "match is not exhaustive: add the missing pattern(s) or a catch-all arm")
	}
}

// arrayLit parses `[| a, b, c |]`, the true (non-cons) array type indexed
// and updated in O(1)/O(log n) via value.Array rather than walked link by
// link.
func (p *Parser) arrayLit() ast.Expr {
	p.advance() // `[|`
	var elems []ast.Expr
	if !p.checkType(token.ARRAY_CLOSE) {
		for {
			elems = append(elems, p.expression())
			if !p.checkType(token.COMMA) {
				break
			}
			p.advance()
		}
	}
	p.consume(token.ARRAY_CLOSE, "E076", "expected '|]' to close array literal")
	return ast.ArrayLit{Elements: elems}
}

// listLit parses the cons-list surface that shares `[`/`]` with
// listPattern: `[]` (the empty list, the same None sentinel
// execIsEmptyList checks for), `[e1, e2, e3]` (desugared here into a
// right-folded ConsExpr chain, `e1 :: (e2 :: (e3 :: None))`), or a
// comprehension `[e | x <- xs, ...]`.
func (p *Parser) listLit() ast.Expr {
	p.advance() // `[`
	if p.checkType(token.RBRK) {
		p.advance()
		return ast.Literal{Kind: ast.LitNone, Value: nil}
	}
	first := p.expression()
	if p.checkType(token.PIPE_BAR) {
		return p.comprehensionTail(first)
	}
	elems := []ast.Expr{first}
	for p.checkType(token.COMMA) {
		p.advance()
		elems = append(elems, p.expression())
	}
	p.consume(token.RBRK, "E076", "expected ']' to close list literal")
	return desugarConsList(elems)
}

// desugarConsList right-folds a literal's elements into nested ConsExpr
// nodes terminated by the empty-list sentinel.
func desugarConsList(elems []ast.Expr) ast.Expr {
	var tail ast.Expr = ast.Literal{Kind: ast.LitNone, Value: nil}
	for i := len(elems) - 1; i >= 0; i-- {
		tail = ast.ConsExpr{Head: elems[i], Tail: tail}
	}
	return tail
}

// comprehensionGen is one `x <- xs` generator clause; guards collected
// after it (until the next generator) narrow its source before the next
// stage runs.
type comprehensionGen struct {
	name   token.Token
	source ast.Expr
	guards []ast.Expr
}

// comprehensionTail parses the `| x <- xs, guard, y <- ys, ... ]` tail of a
// list comprehension whose result expression (`e` in `[e | ...]`) has
// already been parsed as result, and desugars it into nested
// map/filter/flat_map calls:
//
//	[e | x <- xs]            -> map(xs, \x -> e)
//	[e | x <- xs, guard]     -> map(filter(xs, \x -> guard), \x -> e)
//	[e | x <- xs, y <- ys]   -> flat_map(xs, \x -> [e | y <- ys])
func (p *Parser) comprehensionTail(result ast.Expr) ast.Expr {
	p.advance() // `|`
	var gens []*comprehensionGen
	for {
		if p.checkType(token.IDENTIFIER) && p.checkNextType(token.GEN_ARROW) {
			name := p.advance()
			p.advance() // `<-`
			source := p.pipe()
			gens = append(gens, &comprehensionGen{name: name, source: source})
		} else if len(gens) > 0 {
			guard := p.pipe()
			gens[len(gens)-1].guards = append(gens[len(gens)-1].guards, guard)
		} else {
			p.errf("E074", "comprehension must start with a 'x <- xs' generator")
			p.pipe()
		}
		if !p.checkType(token.COMMA) {
			break
		}
		p.advance()
	}
	p.consume(token.RBRK, "E076", "expected ']' to close comprehension")

	acc := result
	for i := len(gens) - 1; i >= 0; i-- {
		gen := gens[i]
		src := gen.source
		for _, guard := range gen.guards {
			src = builtinCall("filter", src, gen.name, guard)
		}
		if i == len(gens)-1 {
			acc = builtinCall("map", src, gen.name, acc)
		} else {
			acc = builtinCall("flat_map", src, gen.name, acc)
		}
	}
	return acc
}

// builtinCall builds `name(source, \param -> body)`, the shape every
// comprehension stage desugars to.
func builtinCall(name string, source ast.Expr, param token.Token, body ast.Expr) ast.Expr {
	callee := ast.Identifier{Name: token.CreateLiteralToken(token.IDENTIFIER, nil, name, 0, 0)}
	fn := ast.FuncLit{Params: []ast.Param{{Pattern: ast.BindPattern{Name: param}}}, Body: body}
	return ast.Call{Callee: callee, Args: []ast.Expr{source, fn}}
}

func (p *Parser) hashLit() ast.Expr {
	p.advance() // `{`
	var pairs []ast.HashPair
	if !p.checkType(token.RCUR) {
		for {
			key := p.expression()
			p.consume(token.COLON, "E074", "expected ':' after hash key")
			val := p.expression()
			pairs = append(pairs, ast.HashPair{Key: key, Value: val})
			if !p.checkType(token.COMMA) {
				break
			}
			p.advance()
		}
	}
	p.consume(token.RCUR, "E076", "expected '}' to close hash literal")
	return ast.HashLit{Pairs: pairs}
}

// groupingOrTuple disambiguates `(expr)` (a Grouping) from `(a, b, ...)` (a
// Tuple) by looking for a comma before the closing paren.
func (p *Parser) groupingOrTuple() ast.Expr {
	p.advance() // `(`
	if p.checkType(token.RPA) {
		p.advance()
		return ast.Tuple{}
	}
	first := p.expression()
	if p.checkType(token.COMMA) {
		elems := []ast.Expr{first}
		for p.checkType(token.COMMA) {
			p.advance()
			elems = append(elems, p.expression())
		}
		p.consume(token.RPA, "E076", "expected ')' to close tuple")
		return ast.Tuple{Elements: elems}
	}
	p.consume(token.RPA, "E076", "expected ')' to close grouping")
	return ast.Grouping{Expression: first}
}
